// Package dispatch provides the Agent Invocation Coordinator: concurrent
// fan-out of evaluation requests to the agents bound to a phase, and fan-in
// of their dictamenes under per-agent and phase-level timeouts.
package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/fiscalmesh/fiscalmesh/core"
	"github.com/fiscalmesh/fiscalmesh/logging"
)

// Options configures a Coordinator.
type Options struct {
	// AgentTimeout bounds a single agent invocation. The default captures
	// realistic LLM inference plus verification-lookup latency.
	AgentTimeout time.Duration

	// PhaseTimeout bounds total fan-in latency for one dispatch. Agents
	// still pending at the deadline are recorded as abstentions; fan-in
	// always completes.
	PhaseTimeout time.Duration

	// Logger receives dispatch diagnostics. Defaults to NoOp.
	Logger logging.Logger
}

// Coordinator fans evaluation requests out to the registry's agents for a
// phase and collects the responses into a ResponseSet. Agent failures never
// propagate: a timeout, error or panic becomes an abstain dictamen annotated
// with the failure reason, so one flaky evaluator cannot crash a phase
// evaluation.
type Coordinator struct {
	registry *core.Registry
	store    core.DeliberationStore
	opts     Options
}

// NewCoordinator wires a coordinator to an immutable registry and the
// deliberation store.
func NewCoordinator(registry *core.Registry, store core.DeliberationStore, optFns ...func(o *Options)) *Coordinator {
	opts := Options{
		AgentTimeout: 90 * time.Second,
		PhaseTimeout: 5 * time.Minute,
		Logger:       logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Coordinator{registry: registry, store: store, opts: opts}
}

// ResponseSet is the fan-in result for one transaction at one phase:
// exactly one dictamen per required agent, in registration order.
type ResponseSet struct {
	TransactionID string
	Phase         core.Phase
	Dictamenes    core.DictamenSet
}

// indexed pairs a fan-out slot with its dictamen so late arrivals land in
// registration order regardless of completion order.
type indexed struct {
	slot     int
	dictamen core.Dictamen
}

// Dispatch issues concurrent evaluation requests to every agent bound to the
// phase and collects the results. Every dictamen (including abstentions for
// timeouts and failures) is written to the deliberation store before
// Dispatch returns.
func (c *Coordinator) Dispatch(ctx context.Context, txn core.Transaction, phase core.Phase) (*ResponseSet, error) {
	agents := c.registry.ForPhase(phase)
	set := &ResponseSet{TransactionID: txn.ID, Phase: phase}
	if len(agents) == 0 {
		return set, nil
	}

	phaseCtx, cancel := context.WithTimeout(ctx, c.opts.PhaseTimeout)
	defer cancel()

	results := make(chan indexed, len(agents))
	for i, agent := range agents {
		go c.invoke(phaseCtx, i, agent, txn.Clone(), phase, results)
	}

	dictamenes := make(core.DictamenSet, len(agents))
	received := make([]bool, len(agents))
	pending := len(agents)

collect:
	for pending > 0 {
		select {
		case res := <-results:
			dictamenes[res.slot] = res.dictamen
			received[res.slot] = true
			pending--
		case <-phaseCtx.Done():
			break collect
		}
	}

	// The aggregate timeout guarantees fan-in completes: any agent still
	// pending is recorded as an abstention.
	for i, agent := range agents {
		if !received[i] {
			id := agent.Descriptor().ID
			c.opts.Logger.Warn("phase timeout elapsed before agent responded",
				"agent", id, "transaction", txn.ID, "phase", phase.String())
			dictamenes[i] = core.NewAbstainDictamen(id, txn.ID, phase,
				fmt.Sprintf("phase timeout %s elapsed", c.opts.PhaseTimeout))
		}
	}

	for _, d := range dictamenes {
		rec := core.NewRecord(txn.ID, core.RecordDictamen, phase, d.AgentID, d.FailureReason)
		dict := d
		rec.Dictamen = &dict
		if _, err := c.store.Append(rec); err != nil {
			return nil, fmt.Errorf("dispatch: persist dictamen from %s: %w", d.AgentID, err)
		}
	}

	set.Dictamenes = dictamenes
	return set, nil
}

// invoke runs one agent under the per-agent timeout, converting every
// failure mode (error, timeout, panic) into an abstain dictamen.
func (c *Coordinator) invoke(ctx context.Context, slot int, agent core.Agent, txn core.Transaction, phase core.Phase, results chan<- indexed) {
	id := agent.Descriptor().ID
	agentCtx, cancel := context.WithTimeout(ctx, c.opts.AgentTimeout)
	defer cancel()

	started := time.Now()
	dictamen, err := c.safeEvaluate(agentCtx, agent, txn, phase)
	latency := time.Since(started)

	switch {
	case err != nil && agentCtx.Err() != nil:
		c.opts.Logger.Warn("agent timed out", "agent", id, "transaction", txn.ID, "phase", phase.String())
		dictamen = core.NewAbstainDictamen(id, txn.ID, phase,
			fmt.Sprintf("timed out after %s", c.opts.AgentTimeout))
	case err != nil:
		c.opts.Logger.Warn("agent invocation failed", "agent", id, "transaction", txn.ID, "error", err)
		dictamen = core.NewAbstainDictamen(id, txn.ID, phase, err.Error())
	default:
		// Normalize identity fields so agents cannot misattribute
		// their own opinions.
		dictamen.AgentID = id
		dictamen.TransactionID = txn.ID
		dictamen.Phase = phase
		if dictamen.ID == "" {
			dictamen.ID = core.NewID()
		}
		if dictamen.Timestamp.IsZero() {
			dictamen.Timestamp = time.Now().UTC()
		}
	}
	dictamen.Latency = latency

	select {
	case results <- indexed{slot: slot, dictamen: dictamen}:
	case <-ctx.Done():
	}
}

// safeEvaluate shields the coordinator from panicking agents.
func (c *Coordinator) safeEvaluate(ctx context.Context, agent core.Agent, txn core.Transaction, phase core.Phase) (d core.Dictamen, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("agent panicked: %v", r)
		}
	}()
	return agent.Evaluate(ctx, txn, phase)
}
