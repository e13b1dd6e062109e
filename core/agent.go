package core

import "context"

// AgentKind distinguishes principal evaluators from supporting sub-agents.
// The distinction is descriptive metadata for registries and reports; the
// coordinator treats every agent bound to a phase as required.
type AgentKind string

const (
	AgentPrimary AgentKind = "primary"
	AgentSub     AgentKind = "sub"
)

// Descriptor is the tagged capability descriptor for an evaluator agent:
// identity, classification, the phases it participates in, the capabilities
// it exposes and whether it holds block authority (its non-conform verdicts
// feed hard-lock evaluation rather than scoring alone).
type Descriptor struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Kind           AgentKind `json:"kind"`
	Phases         []Phase   `json:"phases"`
	Capabilities   []string  `json:"capabilities,omitempty"`
	BlockAuthority bool      `json:"block_authority"`
}

// ParticipatesIn reports whether the agent is bound to the given phase.
func (d Descriptor) ParticipatesIn(p Phase) bool {
	for _, ph := range d.Phases {
		if ph == p {
			return true
		}
	}
	return false
}

// Agent is the evaluation capability consumed by the Invocation Coordinator.
//
// Evaluate receives a read-only transaction snapshot and must return a
// dictamen for the given phase within the coordinator's per-agent timeout,
// respecting ctx cancellation. Implementations may internally call an LLM,
// a rules check, or an external verification service; the coordinator does
// not care. Errors and timeouts are absorbed by the coordinator as abstain
// dictamenes, never propagated to the state machine.
type Agent interface {
	Descriptor() Descriptor
	Evaluate(ctx context.Context, txn Transaction, phase Phase) (Dictamen, error)
}
