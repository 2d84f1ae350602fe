package transport

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	herrors "github.com/wagiedev/mcp-toolhost/internal/errors"
	toolmcp "github.com/wagiedev/mcp-toolhost/internal/mcp"
	"github.com/wagiedev/mcp-toolhost/internal/protocol"
)

const maxRPCBody = 4 << 20

// RouterOptions configures NewRouter.
type RouterOptions struct {
	Logger *slog.Logger
	// Stateless disables session tracking on the streamable HTTP endpoint.
	Stateless bool
}

// NewRouter returns the HTTP handler serving host.
func NewRouter(host *toolmcp.Host, opts RouterOptions) http.Handler {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	log = log.With("component", "http")
	getServer := func(*http.Request) *mcp.Server { return host.Server() }
	dispatcher := protocol.NewDispatcher(log, host)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(log))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, host.Status())
	})

	r.Get("/tools", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"tools": host.ListTools()})
	})

	r.Post("/rpc", func(w http.ResponseWriter, req *http.Request) {
		var msg map[string]any

		if err := json.NewDecoder(io.LimitReader(req.Body, maxRPCBody)).Decode(&msg); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"jsonrpc": "2.0",
				"id":      nil,
				"error": map[string]any{
					"code":    herrors.CodeInvalidRequest,
					"message": "parse error: " + err.Error(),
				},
			})

			return
		}

		resp, err := dispatcher.HandleMessage(req.Context(), host.Name(), msg)
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)

			return
		}

		if resp == nil {
			w.WriteHeader(http.StatusAccepted)

			return
		}

		writeJSON(w, http.StatusOK, resp)
	})

	r.Handle("/sse", mcp.NewSSEHandler(getServer, nil))
	r.Handle("/mcp", mcp.NewStreamableHTTPHandler(getServer, &mcp.StreamableHTTPOptions{
		Stateless: opts.Stateless,
		Logger:    log,
	}))

	return r
}

func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			log.Debug("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"size", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
