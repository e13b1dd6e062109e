// Package agents provides concrete core.Agent implementations: FuncAgent for
// rules checks and test wiring, and ModelAgent for LLM-backed evaluators.
package agents

import (
	"context"

	"github.com/fiscalmesh/fiscalmesh/core"
)

// EvaluateFunc is the plain-function form of an evaluation capability.
type EvaluateFunc func(ctx context.Context, txn core.Transaction, phase core.Phase) (core.Dictamen, error)

// FuncAgent adapts a plain function to the core.Agent interface. Useful for
// deterministic rules-based evaluators and for tests.
type FuncAgent struct {
	desc core.Descriptor
	fn   EvaluateFunc
}

var _ core.Agent = (*FuncAgent)(nil)

// NewFuncAgent wraps fn under the given descriptor.
func NewFuncAgent(desc core.Descriptor, fn EvaluateFunc) *FuncAgent {
	return &FuncAgent{desc: desc, fn: fn}
}

// Descriptor returns the agent's capability descriptor.
func (a *FuncAgent) Descriptor() core.Descriptor { return a.desc }

// Evaluate invokes the wrapped function.
func (a *FuncAgent) Evaluate(ctx context.Context, txn core.Transaction, phase core.Phase) (core.Dictamen, error) {
	return a.fn(ctx, txn, phase)
}
