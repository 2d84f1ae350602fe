package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	herrors "github.com/wagiedev/mcp-toolhost/internal/errors"
	"github.com/wagiedev/mcp-toolhost/internal/schema"
)

type entry struct {
	cap    Capability
	schema *schema.Compiled
	meta   bool
}

type subscription struct {
	id SubscriptionID
	fn ChangeFunc
}

// Registry holds tool capabilities and the set of tools currently enabled.
// All methods are safe for concurrent use. Handlers and change callbacks run
// without the registry lock held.
type Registry struct {
	log      *slog.Logger
	mode     Mode
	dynamic  DynamicConfig
	defaults map[string]struct{}

	listName    string
	triggerName string

	mu      sync.RWMutex
	names   NameMapper
	order   []string
	tools   map[string]*entry
	enabled map[string]struct{}

	subsMu  sync.Mutex
	subs    []subscription
	nextSub SubscriptionID
}

// New creates a registry from caps. Duplicate names keep the first position
// and the last definition.
func New(caps []Capability, opts ...Option) (*Registry, error) {
	o := Options{Mode: ModeReadWrite}
	for _, opt := range opts {
		opt(&o)
	}

	if o.Mode == "" {
		o.Mode = ModeReadWrite
	}

	if o.Mode != ModeReadOnly && o.Mode != ModeReadWrite {
		return nil, fmt.Errorf("unsupported mode %q", o.Mode)
	}

	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	r := &Registry{
		log:      o.Logger.With("component", "registry"),
		mode:     o.Mode,
		dynamic:  o.Dynamic,
		names:    o.Names,
		defaults: make(map[string]struct{}, len(o.Dynamic.DefaultEnabledToolsets)),
		tools:    make(map[string]*entry, len(caps)+2),
		enabled:  make(map[string]struct{}, len(caps)+2),
	}

	r.listName, r.triggerName = MetaToolNames(o.Dynamic.Name)

	for _, name := range o.Dynamic.DefaultEnabledToolsets {
		r.defaults[name] = struct{}{}
	}

	for _, c := range caps {
		e, err := newEntry(c)
		if err != nil {
			return nil, err
		}

		r.put(e)
	}

	for _, name := range r.order {
		if r.startsEnabled(r.tools[name]) {
			r.enabled[name] = struct{}{}
		}
	}

	if r.dynamic.Enabled {
		for _, name := range o.Dynamic.DefaultEnabledToolsets {
			if _, ok := r.tools[name]; !ok {
				r.log.Warn("default toolset does not exist", "tool", name)
			}
		}

		for _, c := range r.metaCapabilities() {
			e, err := newEntry(c)
			if err != nil {
				return nil, err
			}

			e.meta = true
			r.put(e)
			r.enabled[c.Name] = struct{}{}
		}
	}

	r.log.Debug("registry created",
		"mode", r.mode,
		"dynamic", r.dynamic.Enabled,
		"tools", len(r.order),
		"enabled", len(r.enabled),
	)

	return r, nil
}

func newEntry(c Capability) (*entry, error) {
	if c.Name == "" {
		return nil, herrors.ErrEmptyToolName
	}

	if c.Handler == nil {
		return nil, fmt.Errorf("%w: %s", herrors.ErrNilHandler, c.Name)
	}

	compiled, err := schema.Compile(c.InputSchema)
	if err != nil {
		return nil, &herrors.SchemaError{Tool: c.Name, Err: err}
	}

	return &entry{cap: c, schema: compiled}, nil
}

// put inserts or replaces e. Caller must hold mu or be the constructor.
func (r *Registry) put(e *entry) {
	if _, exists := r.tools[e.cap.Name]; !exists {
		r.order = append(r.order, e.cap.Name)
	}

	r.tools[e.cap.Name] = e
}

// permitted reports whether the mode allows e to be enabled.
func (r *Registry) permitted(e *entry) bool {
	return e.meta || r.mode == ModeReadWrite || e.cap.ReadOnly()
}

// startsEnabled reports whether a newly registered tool begins enabled.
func (r *Registry) startsEnabled(e *entry) bool {
	if !r.permitted(e) {
		return false
	}

	if !r.dynamic.Enabled {
		return true
	}

	_, ok := r.defaults[e.cap.Name]

	return ok
}

// SetNameMapper replaces the name mapping used by the meta-tools. A nil
// mapper uses registry names as is.
func (r *Registry) SetNameMapper(names NameMapper) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.names = names
}

// Mode returns the registry's read/write mode.
func (r *Registry) Mode() Mode {
	return r.mode
}

// DynamicEnabled reports whether the dynamic discovery meta-tools are registered.
func (r *Registry) DynamicEnabled() bool {
	return r.dynamic.Enabled
}

// ListTools returns the enabled tools in registration order.
func (r *Registry) ListTools() []*mcp.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.listLocked()
}

func (r *Registry) listLocked() []*mcp.Tool {
	tools := make([]*mcp.Tool, 0, len(r.enabled))

	for _, name := range r.order {
		if _, ok := r.enabled[name]; !ok {
			continue
		}

		tools = append(tools, describe(r.tools[name]))
	}

	return tools
}

func describe(e *entry) *mcp.Tool {
	t := &mcp.Tool{
		Name:        e.cap.Name,
		Description: e.cap.Description,
		InputSchema: e.schema.Advertise(),
	}

	if e.cap.Annotations != nil {
		ann := *e.cap.Annotations
		t.Annotations = &ann
	}

	return t
}

// Names returns every registered tool name in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Clone(r.order)
}

// IsEnabled reports whether name is registered and enabled.
func (r *Registry) IsEnabled(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.enabled[name]

	return ok
}

// Snapshot returns the available and enabled tool names.
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.snapshotLocked()
}

func (r *Registry) snapshotLocked() Snapshot {
	s := Snapshot{
		Available: slices.Clone(r.order),
		Enabled:   make([]string, 0, len(r.enabled)),
	}

	if s.Available == nil {
		s.Available = []string{}
	}

	for _, name := range r.order {
		if _, ok := r.enabled[name]; ok {
			s.Enabled = append(s.Enabled, name)
		}
	}

	return s
}

// CallTool validates args and invokes the named tool. Unknown, disabled and
// invalid calls fail before the handler runs; handler results and errors are
// returned unchanged.
func (r *Registry) CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	res, err := r.Invoke(ctx, name, args)
	if he, ok := errors.AsType[*herrors.HandlerError](err); ok {
		return res, he.Err
	}

	return res, err
}

// Invoke is CallTool for protocol hosts. Errors returned by a tool handler
// come back as *errors.HandlerError, so they are reported as internal
// failures even when they wrap a registry error kind. Meta-tool errors are
// returned as is.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	r.mu.RLock()
	e, known := r.tools[name]
	_, enabled := r.enabled[name]
	r.mu.RUnlock()

	if !known {
		return nil, herrors.UnknownTool(name)
	}

	if !enabled {
		return nil, herrors.ToolNotEnabled(name)
	}

	if args == nil {
		return nil, herrors.InvalidParams(name, "arguments are required")
	}

	if err := e.schema.Validate(args); err != nil {
		var failure *schema.Failure
		if errors.As(err, &failure) {
			return nil, herrors.InvalidParams(name, "arguments do not match input schema", failure.Diagnostics...)
		}

		return nil, herrors.InvalidParams(name, err.Error())
	}

	r.log.Debug("calling tool", "tool", name)

	res, err := e.cap.Handler(ctx, args)
	if err != nil && !e.meta {
		return res, &herrors.HandlerError{Tool: name, Err: err}
	}

	return res, err
}

// Apply validates every change, then applies them in order. Subscribers are
// notified exactly once, even when the enabled set did not change.
func (r *Registry) Apply(changes []ToolsetChange) (Snapshot, error) {
	return r.apply("", changes)
}

// Enable enables the named tools as a single batch.
func (r *Registry) Enable(names ...string) (Snapshot, error) {
	return r.Apply(changesFor(names, TriggerEnable))
}

// Disable disables the named tools as a single batch.
func (r *Registry) Disable(names ...string) (Snapshot, error) {
	return r.Apply(changesFor(names, TriggerDisable))
}

func changesFor(names []string, trigger Trigger) []ToolsetChange {
	changes := make([]ToolsetChange, 0, len(names))
	for _, name := range names {
		changes = append(changes, ToolsetChange{Name: name, Trigger: trigger})
	}

	return changes
}

func (r *Registry) apply(tool string, changes []ToolsetChange) (Snapshot, error) {
	r.mu.Lock()

	if err := r.checkLocked(tool, changes); err != nil {
		r.mu.Unlock()

		return Snapshot{}, err
	}

	for _, c := range changes {
		if r.tools[c.Name].meta {
			continue
		}

		switch c.Trigger {
		case TriggerEnable:
			r.enabled[c.Name] = struct{}{}
		case TriggerDisable:
			delete(r.enabled, c.Name)
		}
	}

	snap := r.snapshotLocked()
	listing := r.listLocked()
	r.mu.Unlock()

	r.log.Info("enabled tools changed", "changes", len(changes), "enabled", len(snap.Enabled))
	r.notify(listing)

	return snap, nil
}

// checkLocked validates a whole batch without mutating anything.
func (r *Registry) checkLocked(tool string, changes []ToolsetChange) error {
	var missing []string

	for _, c := range changes {
		if _, ok := r.tools[c.Name]; !ok && !slices.Contains(missing, c.Name) {
			missing = append(missing, c.Name)
		}
	}

	if len(missing) > 0 {
		return herrors.InvalidToolsetName(tool, missing)
	}

	for _, c := range changes {
		switch c.Trigger {
		case TriggerEnable:
			if e := r.tools[c.Name]; !r.permitted(e) {
				return herrors.InvalidParams(tool,
					fmt.Sprintf("tool %q cannot be enabled in %s mode", c.Name, r.mode))
			}
		case TriggerDisable:
		default:
			return herrors.InvalidParams(tool,
				fmt.Sprintf("unknown trigger %q for tool %q", c.Trigger, c.Name))
		}
	}

	return nil
}

// AddTool registers c after construction. Replacing an existing tool keeps
// its position and enabled state; a new tool starts enabled by the same rules
// as at construction. Meta-tools cannot be replaced.
func (r *Registry) AddTool(c Capability) error {
	e, err := newEntry(c)
	if err != nil {
		return err
	}

	r.mu.Lock()

	prev, exists := r.tools[c.Name]
	if exists && prev.meta {
		r.mu.Unlock()

		return &herrors.ToolError{Kind: herrors.ErrMetaTool, Tool: c.Name}
	}

	_, wasEnabled := r.enabled[c.Name]

	r.put(e)

	var enable bool
	if exists {
		enable = wasEnabled && r.permitted(e)
	} else {
		enable = r.startsEnabled(e)
	}

	if enable {
		r.enabled[c.Name] = struct{}{}
	} else {
		delete(r.enabled, c.Name)
	}

	var listing []*mcp.Tool

	changed := wasEnabled || enable
	if changed {
		listing = r.listLocked()
	}

	r.mu.Unlock()

	r.log.Info("tool added", "tool", c.Name, "replaced", exists, "enabled", enable)

	if changed {
		r.notify(listing)
	}

	return nil
}

// RemoveTool unregisters name and drops it from the enabled set.
func (r *Registry) RemoveTool(name string) error {
	r.mu.Lock()

	e, ok := r.tools[name]
	if !ok {
		r.mu.Unlock()

		return herrors.UnknownTool(name)
	}

	if e.meta {
		r.mu.Unlock()

		return &herrors.ToolError{Kind: herrors.ErrMetaTool, Tool: name}
	}

	_, wasEnabled := r.enabled[name]

	delete(r.tools, name)
	delete(r.enabled, name)
	r.order = slices.DeleteFunc(r.order, func(n string) bool { return n == name })

	var listing []*mcp.Tool
	if wasEnabled {
		listing = r.listLocked()
	}

	r.mu.Unlock()

	r.log.Info("tool removed", "tool", name)

	if wasEnabled {
		r.notify(listing)
	}

	return nil
}

// OnEnabledToolsChanged registers fn to be called synchronously with the
// enabled tool listing after every change.
func (r *Registry) OnEnabledToolsChanged(fn ChangeFunc) SubscriptionID {
	r.subsMu.Lock()
	defer r.subsMu.Unlock()

	r.nextSub++
	r.subs = append(r.subs, subscription{id: r.nextSub, fn: fn})

	return r.nextSub
}

// OffEnabledToolsChanged removes a subscription. It reports whether the
// subscription existed.
func (r *Registry) OffEnabledToolsChanged(id SubscriptionID) bool {
	r.subsMu.Lock()
	defer r.subsMu.Unlock()

	before := len(r.subs)
	r.subs = slices.DeleteFunc(r.subs, func(s subscription) bool { return s.id == id })

	return len(r.subs) != before
}

func (r *Registry) notify(listing []*mcp.Tool) {
	r.subsMu.Lock()
	subs := slices.Clone(r.subs)
	r.subsMu.Unlock()

	for _, s := range subs {
		s.fn(listing)
	}
}
