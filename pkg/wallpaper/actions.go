package wallpaper

import (
	"context"
	"fmt"
	"sort"
)

// Action names an operation that can be invoked on an item.
type Action string

const (
	ActionApply          Action = "apply"
	ActionDelete         Action = "delete"
	ActionDownload       Action = "download"
	ActionCancelDownload Action = "cancel-download"
	ActionThumbnail      Action = "thumbnail"
)

// allActions is the complete set of actions the engine exposes. Verify
// checks a registry against this list, so a missing handler is caught at
// startup instead of on first use.
var allActions = []Action{
	ActionApply,
	ActionDelete,
	ActionDownload,
	ActionCancelDownload,
	ActionThumbnail,
}

// Handler executes an action against one item.
type Handler func(ctx context.Context, itemID string) error

// Registry maps actions to their handlers. It is populated once at startup
// and read-only afterwards.
type Registry struct {
	handlers map[Action]Handler
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[Action]Handler)}
}

// Register binds an action to its handler. Rebinding an action is a
// programming error.
func (r *Registry) Register(a Action, h Handler) error {
	if h == nil {
		return fmt.Errorf("nil handler for action %q", a)
	}
	if _, dup := r.handlers[a]; dup {
		return fmt.Errorf("duplicate handler for action %q", a)
	}
	r.handlers[a] = h
	return nil
}

// Verify checks that every known action has a handler and that no unknown
// action was registered.
func (r *Registry) Verify() error {
	known := make(map[Action]bool, len(allActions))
	for _, a := range allActions {
		known[a] = true
		if _, ok := r.handlers[a]; !ok {
			return fmt.Errorf("no handler registered for action %q", a)
		}
	}
	for a := range r.handlers {
		if !known[a] {
			return fmt.Errorf("handler registered for unknown action %q", a)
		}
	}
	return nil
}

// Dispatch runs the handler for the given action.
func (r *Registry) Dispatch(ctx context.Context, a Action, itemID string) error {
	h, ok := r.handlers[a]
	if !ok {
		return fmt.Errorf("unknown action %q", a)
	}
	return h(ctx, itemID)
}

// Actions returns the registered action names, sorted.
func (r *Registry) Actions() []Action {
	out := make([]Action, 0, len(r.handlers))
	for a := range r.handlers {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
