package builtin

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Note is one entry of the notes store.
type Note struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Tags      []string  `json:"tags,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Notes is a concurrency-safe in-memory note store.
type Notes struct {
	mu    sync.RWMutex
	now   func() time.Time
	notes map[string]Note
}

// NewNotes creates an empty store. A nil now uses time.Now.
func NewNotes(now func() time.Time) *Notes {
	if now == nil {
		now = time.Now
	}

	return &Notes{
		now:   now,
		notes: make(map[string]Note),
	}
}

// List returns the notes sorted by ID, optionally filtered by tag.
func (n *Notes) List(tag string) []Note {
	n.mu.RLock()
	defer n.mu.RUnlock()

	out := make([]Note, 0, len(n.notes))

	for _, note := range n.notes {
		if tag != "" && !slices.Contains(note.Tags, tag) {
			continue
		}

		out = append(out, note)
	}

	slices.SortFunc(out, func(a, b Note) int { return strings.Compare(a.ID, b.ID) })

	return out
}

// Put creates or replaces a note. An empty id allocates a new ULID.
func (n *Notes) Put(id, text string, tags []string) Note {
	n.mu.Lock()
	defer n.mu.Unlock()

	now := n.now()

	if id == "" {
		id = ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String()
	}

	note := Note{
		ID:        id,
		Text:      text,
		Tags:      slices.Clone(tags),
		UpdatedAt: now.UTC(),
	}
	n.notes[id] = note

	return note
}

// Delete removes a note and reports whether it existed.
func (n *Notes) Delete(id string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	_, ok := n.notes[id]
	delete(n.notes, id)

	return ok
}
