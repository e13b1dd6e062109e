package core

import "fmt"

// Registry is the static catalogue of evaluator agents. It is built once at
// process start and never mutated afterwards; the coordinator and the state
// machine receive it by injection and only read from it.
type Registry struct {
	byID  map[string]Agent
	order []string
}

// NewRegistry catalogues the given agents. Agent IDs must be unique and
// non-empty; registration order is preserved for deterministic dispatch.
func NewRegistry(agents ...Agent) (*Registry, error) {
	r := &Registry{byID: make(map[string]Agent, len(agents))}
	for _, a := range agents {
		d := a.Descriptor()
		if d.ID == "" {
			return nil, fmt.Errorf("core: agent %q has empty ID", d.Name)
		}
		if _, dup := r.byID[d.ID]; dup {
			return nil, fmt.Errorf("core: duplicate agent ID %q", d.ID)
		}
		r.byID[d.ID] = a
		r.order = append(r.order, d.ID)
	}
	return r, nil
}

// Agent looks up an agent by ID.
func (r *Registry) Agent(id string) (Agent, bool) {
	a, ok := r.byID[id]
	return a, ok
}

// ForPhase returns, in registration order, every agent bound to the phase.
// All returned agents are required before the phase can be consolidated.
func (r *Registry) ForPhase(p Phase) []Agent {
	var out []Agent
	for _, id := range r.order {
		if a := r.byID[id]; a.Descriptor().ParticipatesIn(p) {
			out = append(out, a)
		}
	}
	return out
}

// BlockCapable returns the subset of phase agents holding block authority.
func (r *Registry) BlockCapable(p Phase) []Agent {
	var out []Agent
	for _, a := range r.ForPhase(p) {
		if a.Descriptor().BlockAuthority {
			out = append(out, a)
		}
	}
	return out
}

// Size returns the number of catalogued agents.
func (r *Registry) Size() int { return len(r.order) }
