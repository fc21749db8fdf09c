// Package tool defines the named external actions the agent can take and the
// registry that advertises them to the generation layer.
package tool

import (
	"context"
	"fmt"

	contractx "github.com/nguyentrungtung/sitebuilder-agent/agent/contract"
)

// Tool is a named, typed external action. Implementations must be safe for
// concurrent use; the registry is populated once at startup and read-only
// afterwards.
type Tool interface {
	// Name returns the unique key used in function call declarations.
	Name() string

	// Description tells the model what the tool does and when to use it.
	Description() string

	// Parameters returns a JSON-schema-shaped map describing the arguments.
	Parameters() map[string]any

	// Invoke executes the tool with model-supplied arguments.
	Invoke(ctx context.Context, args map[string]any) (any, error)
}

// Registry maps tool names to tools, preserving registration order for
// capability advertising.
type Registry struct {
	order  []Tool
	byName map[string]Tool
}

// NewRegistry registers the given tools. A duplicate name is a fatal
// configuration error, not a runtime condition.
func NewRegistry(tools ...Tool) (*Registry, error) {
	r := &Registry{
		byName: make(map[string]Tool, len(tools)),
	}
	for _, t := range tools {
		if t == nil {
			continue
		}
		name := t.Name()
		if name == "" {
			return nil, fmt.Errorf("%w: tool name is empty", contractx.ErrValidation)
		}
		if _, exists := r.byName[name]; exists {
			return nil, fmt.Errorf("%w: %s", contractx.ErrDuplicateTool, name)
		}
		r.byName[name] = t
		r.order = append(r.order, t)
	}
	return r, nil
}

// Get returns the tool registered under name.
func (r *Registry) Get(name string) (Tool, error) {
	t, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", contractx.ErrToolNotFound, name)
	}
	return t, nil
}

// List returns the tools in registration order.
func (r *Registry) List() []Tool {
	out := make([]Tool, len(r.order))
	copy(out, r.order)
	return out
}
