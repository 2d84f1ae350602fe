package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	toolhost "github.com/wagiedev/mcp-toolhost"
)

// NotesURI is the resource listing every note.
const NotesURI = "notes://all"

// Set is the demo toolset together with its resources and prompts.
type Set struct {
	Tools     []*toolhost.Tool
	Resources []*toolhost.Resource
	Prompts   []*toolhost.Prompt
	Notes     *Notes
}

// Options returns server options serving the set's resources and prompts.
func (s *Set) Options() []toolhost.Option {
	return []toolhost.Option{
		toolhost.WithResources(s.Resources...),
		toolhost.WithPrompts(s.Prompts...),
	}
}

type echoInput struct {
	Text string `json:"text" jsonschema:"text to echo back"`
}

type clockInput struct {
	Timezone string `json:"timezone,omitempty" jsonschema:"IANA time zone name, UTC when empty"`
}

type listInput struct {
	Tag string `json:"tag,omitempty" jsonschema:"only list notes carrying this tag"`
}

type putInput struct {
	ID   string   `json:"id,omitempty" jsonschema:"note ID; a new ID is allocated when empty"`
	Text string   `json:"text" jsonschema:"note text"`
	Tags []string `json:"tags,omitempty" jsonschema:"tags attached to the note"`
}

type deleteInput struct {
	ID string `json:"id" jsonschema:"ID of the note to delete"`
}

// New builds the demo toolset. A nil now uses time.Now.
func New(now func() time.Time) (*Set, error) {
	if now == nil {
		now = time.Now
	}

	notes := NewNotes(now)
	readOnly := toolhost.WithAnnotations(&toolhost.ToolAnnotations{ReadOnlyHint: true, IdempotentHint: true})

	echo, err := toolhost.NewTypedTool("echo", "Echo the given text back",
		func(_ context.Context, in echoInput) (*toolhost.CallToolResult, error) {
			return toolhost.TextResult(in.Text), nil
		},
		readOnly,
	)
	if err != nil {
		return nil, err
	}

	clock, err := toolhost.NewTypedTool("clock_now", "Return the current time in RFC 3339",
		func(_ context.Context, in clockInput) (*toolhost.CallToolResult, error) {
			loc := time.UTC

			if in.Timezone != "" {
				var err error

				loc, err = time.LoadLocation(in.Timezone)
				if err != nil {
					return toolhost.ErrorResult(fmt.Sprintf("unknown time zone %q", in.Timezone)), nil
				}
			}

			return toolhost.TextResult(now().In(loc).Format(time.RFC3339)), nil
		},
		readOnly,
	)
	if err != nil {
		return nil, err
	}

	list, err := toolhost.NewTypedTool("note_list", "List notes, optionally filtered by tag",
		func(_ context.Context, in listInput) (*toolhost.CallToolResult, error) {
			return toolhost.JSONResult(map[string]any{"notes": notes.List(in.Tag)})
		},
		readOnly,
	)
	if err != nil {
		return nil, err
	}

	put, err := toolhost.NewTypedTool("note_put", "Create or replace a note",
		func(_ context.Context, in putInput) (*toolhost.CallToolResult, error) {
			if strings.TrimSpace(in.Text) == "" {
				return toolhost.ErrorResult("note text is empty"), nil
			}

			return toolhost.JSONResult(notes.Put(in.ID, in.Text, in.Tags))
		},
	)
	if err != nil {
		return nil, err
	}

	destructive := true

	del, err := toolhost.NewTypedTool("note_delete", "Delete a note by ID",
		func(_ context.Context, in deleteInput) (*toolhost.CallToolResult, error) {
			if !notes.Delete(in.ID) {
				return toolhost.ErrorResult(fmt.Sprintf("note %q not found", in.ID)), nil
			}

			return toolhost.TextResult("deleted " + in.ID), nil
		},
		toolhost.WithAnnotations(&toolhost.ToolAnnotations{DestructiveHint: &destructive}),
	)
	if err != nil {
		return nil, err
	}

	return &Set{
		Tools:     []*toolhost.Tool{echo, clock, list, put, del},
		Resources: []*toolhost.Resource{notesResource(notes)},
		Prompts:   []*toolhost.Prompt{summarizePrompt(notes)},
		Notes:     notes,
	}, nil
}

func notesResource(notes *Notes) *toolhost.Resource {
	return &toolhost.Resource{
		URI:         NotesURI,
		Name:        "notes",
		Title:       "All notes",
		Description: "Every note in the store as JSON",
		MIMEType:    "application/json",
		Read: func(context.Context, string) (*toolhost.ResourceContents, error) {
			data, err := json.Marshal(notes.List(""))
			if err != nil {
				return nil, err
			}

			return &toolhost.ResourceContents{Text: string(data)}, nil
		},
	}
}

func summarizePrompt(notes *Notes) *toolhost.Prompt {
	return &toolhost.Prompt{
		Name:        "summarize_notes",
		Title:       "Summarize notes",
		Description: "Ask the model to summarize the stored notes",
		Arguments: []*toolhost.PromptArgument{
			{Name: "tag", Description: "only summarize notes with this tag"},
			{Name: "style", Description: "summary style, e.g. bullets or prose"},
		},
		Render: func(_ context.Context, args map[string]string) (*toolhost.GetPromptResult, error) {
			style := args["style"]
			if style == "" {
				style = "bullets"
			}

			var b strings.Builder

			fmt.Fprintf(&b, "Summarize the following notes as %s.\n", style)

			for _, note := range notes.List(args["tag"]) {
				fmt.Fprintf(&b, "\n- [%s] %s", note.ID, note.Text)
			}

			return &toolhost.GetPromptResult{
				Description: "Summary request for stored notes",
				Messages: []*toolhost.PromptMessage{
					{Role: "user", Content: &toolhost.TextContent{Text: b.String()}},
				},
			}, nil
		},
	}
}
