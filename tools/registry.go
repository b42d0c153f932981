package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownTool is returned by the not-found handler.
var ErrUnknownTool = errors.New("unknown tool")

// Registry maps tool names to definitions. It is immutable after construction.
type Registry struct {
	defs   []Definition
	byName map[string]Definition
}

// NewRegistry builds a registry; later definitions with a duplicate name win.
func NewRegistry(defs ...Definition) *Registry {
	r := &Registry{byName: make(map[string]Definition, len(defs))}
	for _, d := range defs {
		if _, dup := r.byName[d.Name]; !dup {
			r.defs = append(r.defs, d)
		} else {
			for i := range r.defs {
				if r.defs[i].Name == d.Name {
					r.defs[i] = d
				}
			}
		}
		r.byName[d.Name] = d
	}
	return r
}

// Deps carries the collaborators some tools need.
type Deps struct {
	History HistoryQuerier
	Person  PersonOptions
}

// Default returns the registry with every analysis tool wired.
func Default(deps Deps) *Registry {
	return NewRegistry(
		DomainCredibilityDefinition,
		ClaimExtractionDefinition,
		SentimentBiasDefinition,
		FactSearchDefinition(deps.History),
		CrossReferenceDefinition(deps.History),
		PersonVerifyDefinition(NewPersonVerifier(deps.Person)),
	)
}

// Definitions returns the tools in registration order.
func (r *Registry) Definitions() []Definition {
	out := make([]Definition, len(r.defs))
	copy(out, r.defs)
	return out
}

// Names returns the tool names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.defs))
	for _, d := range r.defs {
		out = append(out, d.Name)
	}
	return out
}

// Lookup resolves name. Unknown names get a definition whose handler fails
// with ErrUnknownTool; ok reports whether the name was registered.
func (r *Registry) Lookup(name string) (def Definition, ok bool) {
	if d, found := r.byName[name]; found {
		return d, true
	}
	return notFound(name), false
}

func notFound(name string) Definition {
	return Definition{
		Name: name,
		Function: func(context.Context, json.RawMessage) (any, error) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
		},
	}
}
