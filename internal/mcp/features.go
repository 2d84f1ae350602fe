package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	herrors "github.com/wagiedev/mcp-toolhost/internal/errors"
)

// ResourceReader returns the contents of a resource.
type ResourceReader func(ctx context.Context, uri string) (*mcp.ResourceContents, error)

// Resource is a static resource exposed alongside the tools.
type Resource struct {
	URI         string
	Name        string
	Title       string
	Description string
	MIMEType    string
	Read        ResourceReader
}

// PromptRenderer renders a prompt from its string arguments.
type PromptRenderer func(ctx context.Context, args map[string]string) (*mcp.GetPromptResult, error)

// Prompt is a prompt template exposed alongside the tools.
type Prompt struct {
	Name        string
	Title       string
	Description string
	Arguments   []*mcp.PromptArgument
	Render      PromptRenderer
}

func (h *Host) addResource(r *Resource) error {
	switch {
	case r == nil:
		return errors.New("resource is nil")
	case r.URI == "":
		return errors.New("resource URI is empty")
	case r.Read == nil:
		return fmt.Errorf("resource %q has no reader", r.URI)
	}

	if _, err := url.Parse(r.URI); err != nil {
		return fmt.Errorf("resource URI: %w", err)
	}

	if _, exists := h.resources[r.URI]; !exists {
		h.resOrder = append(h.resOrder, r.URI)
	}

	h.resources[r.URI] = r

	h.server.AddResource(&mcp.Resource{
		URI:         r.URI,
		Name:        r.Name,
		Title:       r.Title,
		Description: r.Description,
		MIMEType:    r.MIMEType,
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		return h.ReadResource(ctx, req.Params.URI)
	})

	return nil
}

func (h *Host) addPrompt(p *Prompt) error {
	switch {
	case p == nil:
		return errors.New("prompt is nil")
	case p.Name == "":
		return errors.New("prompt name is empty")
	case p.Render == nil:
		return fmt.Errorf("prompt %q has no renderer", p.Name)
	}

	if _, exists := h.prompts[p.Name]; !exists {
		h.prmOrder = append(h.prmOrder, p.Name)
	}

	h.prompts[p.Name] = p

	h.server.AddPrompt(&mcp.Prompt{
		Name:        p.Name,
		Title:       p.Title,
		Description: p.Description,
		Arguments:   p.Arguments,
	}, func(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		return h.GetPrompt(ctx, req.Params.Name, req.Params.Arguments)
	})

	return nil
}

// ListResources returns the advertised resources as plain maps.
func (h *Host) ListResources() []map[string]any {
	result := make([]map[string]any, 0, len(h.resOrder))

	for _, uri := range h.resOrder {
		r := h.resources[uri]
		result = append(result, toMap(&mcp.Resource{
			URI:         r.URI,
			Name:        r.Name,
			Title:       r.Title,
			Description: r.Description,
			MIMEType:    r.MIMEType,
		}))
	}

	return result
}

// ReadResource reads the resource at uri.
func (h *Host) ReadResource(ctx context.Context, uri string) (*mcp.ReadResourceResult, error) {
	r, ok := h.resources[uri]
	if !ok {
		return nil, mcp.ResourceNotFoundError(uri)
	}

	contents, err := r.Read(ctx, uri)
	if err != nil {
		h.log.Warn("resource read failed", "uri", uri, "error", err)

		return nil, herrors.ToWire(err)
	}

	if contents == nil {
		contents = &mcp.ResourceContents{}
	}

	if contents.URI == "" {
		contents.URI = uri
	}

	if contents.MIMEType == "" {
		contents.MIMEType = r.MIMEType
	}

	return &mcp.ReadResourceResult{Contents: []*mcp.ResourceContents{contents}}, nil
}

// ListPrompts returns the advertised prompts as plain maps.
func (h *Host) ListPrompts() []map[string]any {
	result := make([]map[string]any, 0, len(h.prmOrder))

	for _, name := range h.prmOrder {
		p := h.prompts[name]
		result = append(result, toMap(&mcp.Prompt{
			Name:        p.Name,
			Title:       p.Title,
			Description: p.Description,
			Arguments:   p.Arguments,
		}))
	}

	return result
}

// GetPrompt renders the named prompt. Unknown prompts and missing required
// arguments are invalid-params errors.
func (h *Host) GetPrompt(ctx context.Context, name string, args map[string]string) (*mcp.GetPromptResult, error) {
	p, ok := h.prompts[name]
	if !ok {
		return nil, &jsonrpc.Error{
			Code:    herrors.CodeInvalidParams,
			Message: fmt.Sprintf("unknown prompt %q", name),
		}
	}

	for _, arg := range p.Arguments {
		if !arg.Required {
			continue
		}

		if _, ok := args[arg.Name]; !ok {
			return nil, &jsonrpc.Error{
				Code:    herrors.CodeInvalidParams,
				Message: fmt.Sprintf("prompt %q: missing required argument %q", name, arg.Name),
			}
		}
	}

	if args == nil {
		args = map[string]string{}
	}

	result, err := p.Render(ctx, args)
	if err != nil {
		h.log.Warn("prompt render failed", "prompt", name, "error", err)

		return nil, herrors.ToWire(err)
	}

	return result, nil
}
