package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentationName names the tracer and meter used by Middleware.
const InstrumentationName = "github.com/wagiedev/mcp-toolhost"

// Attribute keys set on spans and metric points.
const (
	AttrMethod  = attribute.Key("mcp.method.name")
	AttrTool    = attribute.Key("mcp.tool.name")
	AttrOutcome = attribute.Key("outcome")
)

// Outcomes recorded on tool call metrics.
const (
	OutcomeOK        = "ok"
	OutcomeError     = "error"
	OutcomeToolError = "tool_error"
)

// Middleware returns a receiving middleware tracing every MCP method and
// measuring tools/call. Nil providers fall back to the otel globals.
func Middleware(tp trace.TracerProvider, mp metric.MeterProvider) (mcp.Middleware, error) {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	if mp == nil {
		mp = otel.GetMeterProvider()
	}

	tracer := tp.Tracer(InstrumentationName)
	meter := mp.Meter(InstrumentationName)

	calls, err := meter.Int64Counter(
		"toolhost.tool.calls",
		metric.WithDescription("Number of tools/call requests"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create tool call counter: %w", err)
	}

	duration, err := meter.Float64Histogram(
		"toolhost.tool.duration",
		metric.WithDescription("Duration of tools/call requests"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create tool duration histogram: %w", err)
	}

	return func(next mcp.MethodHandler) mcp.MethodHandler {
		return func(ctx context.Context, method string, req mcp.Request) (mcp.Result, error) {
			attrs := []attribute.KeyValue{AttrMethod.String(method)}

			tool := toolName(req)
			if tool != "" {
				attrs = append(attrs, AttrTool.String(tool))
			}

			ctx, span := tracer.Start(ctx, "mcp "+method,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(attrs...),
			)
			defer span.End()

			start := time.Now()
			res, err := next(ctx, method, req)

			outcome := OutcomeOK

			switch {
			case err != nil:
				outcome = OutcomeError

				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			case isToolError(res):
				outcome = OutcomeToolError

				span.SetStatus(codes.Error, "tool returned an error result")
			}

			if tool != "" {
				set := metric.WithAttributes(AttrTool.String(tool), AttrOutcome.String(outcome))
				calls.Add(ctx, 1, set)
				duration.Record(ctx, time.Since(start).Seconds(), set)
			}

			return res, err
		}
	}, nil
}

func toolName(req mcp.Request) string {
	if req == nil {
		return ""
	}

	if params, ok := req.GetParams().(*mcp.CallToolParamsRaw); ok && params != nil {
		return params.Name
	}

	return ""
}

func isToolError(res mcp.Result) bool {
	r, ok := res.(*mcp.CallToolResult)

	return ok && r != nil && r.IsError
}
