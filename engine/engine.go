// Package engine implements the Phase State Machine: the top-level driver
// that advances transactions through the fixed F0..F9 lifecycle, gated by
// required agent dictamenes, hard locks and minimum admission scores.
//
// Concurrency model: phase-to-phase transitions are strictly sequential per
// transaction (a per-transaction mutex serializes Advance/Resolve), while
// different transactions proceed fully independently. The engine is the sole
// writer of a transaction's phase, status, score and lock states; every
// other component works on read-only clones.
package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fiscalmesh/fiscalmesh/config"
	"github.com/fiscalmesh/fiscalmesh/conflict"
	"github.com/fiscalmesh/fiscalmesh/core"
	"github.com/fiscalmesh/fiscalmesh/lock"
	"github.com/fiscalmesh/fiscalmesh/logging"
	"github.com/fiscalmesh/fiscalmesh/score"
	"github.com/fiscalmesh/fiscalmesh/store"
)

// Options configures an Engine instance.
type Options struct {
	// Config carries the deployment-fixed policy parameters.
	Config config.Config

	// Store persists transactions and the audit trail. Defaults to the
	// in-memory implementation.
	Store core.DeliberationStore

	// Blacklist is the counterparty verification lookup consumed by the
	// counterparty-risk lock. Required if that lock is bound to a phase.
	Blacklist core.BlacklistChecker

	// Evidence is the evidence repository consumed by the
	// fiscal-compliance lock. Required if that lock is bound to a phase.
	Evidence core.EvidenceRepository

	// Notifier receives fire-and-forget events on every transition, lock
	// failure and escalation. Defaults to a no-op sink.
	Notifier core.Notifier

	// Logger defaults to NoOp.
	Logger logging.Logger
}

// Engine drives transactions through the phase state machine.
type Engine struct {
	registry *core.Registry
	store    core.DeliberationStore
	cfg      config.Config
	checker  core.BlacklistChecker
	evidence core.EvidenceRepository
	notifier core.Notifier
	logger   logging.Logger
	router   *conflict.Router
	txnLocks *keyedMutex
}

// New creates an engine bound to an immutable agent registry.
func New(registry *core.Registry, optFns ...func(o *Options)) *Engine {
	opts := Options{
		Config:   config.Default(),
		Store:    store.NewInMemory(),
		Notifier: core.NoopNotifier{},
		Logger:   logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Engine{
		registry: registry,
		store:    opts.Store,
		cfg:      opts.Config,
		checker:  opts.Blacklist,
		evidence: opts.Evidence,
		notifier: opts.Notifier,
		logger:   opts.Logger,
		router:   conflict.NewRouter(opts.Store, opts.Notifier, opts.Logger),
		txnLocks: newKeyedMutex(),
	}
}

// Store exposes the deliberation store for downstream consumers (reports,
// journal export). Consumers read only.
func (e *Engine) Store() core.DeliberationStore { return e.store }

// Config returns the engine's policy configuration.
func (e *Engine) Config() config.Config { return e.cfg }

// OutcomeKind classifies the result of one Advance call.
type OutcomeKind string

const (
	OutcomeAdvanced  OutcomeKind = "advanced"
	OutcomeParked    OutcomeKind = "parked"
	OutcomeEscalated OutcomeKind = "escalated"
	OutcomeClosed    OutcomeKind = "closed"
)

// Outcome reports what Advance decided and why. Reason always names the
// contributing dictamen, lock or score; a transaction is never parked or
// escalated without a human-readable cause.
type Outcome struct {
	Kind       OutcomeKind
	Phase      core.Phase
	Status     core.Status
	Reason     string
	Score      *score.Composite
	Escalation *core.Escalation
}

// Submit registers a new transaction at intake (F0) and opens its audit
// trail.
func (e *Engine) Submit(_ context.Context, txn core.Transaction) (core.Transaction, error) {
	if txn.ID == "" {
		txn.ID = core.NewID()
	}
	txn.Phase = core.PhaseIntake
	txn.Status = core.StatusActive
	if txn.Locks == nil {
		txn.Locks = map[string]core.LockState{}
	}
	now := time.Now().UTC()
	if txn.Created.IsZero() {
		txn.Created = now
	}
	txn.Updated = now

	if err := e.store.Create(txn); err != nil {
		return core.Transaction{}, err
	}
	rec := core.NewRecord(txn.ID, core.RecordPhaseEntered, txn.Phase, core.EngineActor, "transaction created at intake")
	if _, err := e.store.Append(rec); err != nil {
		return core.Transaction{}, err
	}
	e.logger.Info("transaction submitted", "transaction", txn.ID, "counterparty", txn.Counterparty)
	return txn, nil
}

// Transaction returns a read-only clone of the transaction.
func (e *Engine) Transaction(id string) (core.Transaction, error) { return e.store.Get(id) }

// Advance attempts to move the transaction out of its current phase.
//
// The transaction must be in a non-terminal, non-escalated state. Advance
// never dispatches agents itself; it consolidates whatever dictamenes the
// coordinator has already persisted for the current phase:
//
//  1. missing required dictamenes park the transaction ("awaiting agents"),
//  2. pillar disagreement beyond tolerance escalates (never averaged),
//  3. a failed phase lock escalates; a pending one parks,
//  4. a composite below the phase threshold escalates,
//  5. otherwise the phase increments by exactly one; advancing out of
//     final approval closes the transaction as approved.
//
// Every outcome appends a deliberation record and publishes a notification.
func (e *Engine) Advance(ctx context.Context, transactionID string) (Outcome, error) {
	unlock := e.txnLocks.lock(transactionID)
	defer unlock()

	txn, err := e.store.Get(transactionID)
	if err != nil {
		return Outcome{}, err
	}
	if txn.Status.Terminal() {
		return Outcome{}, &core.InvalidTransitionError{
			TransactionID: txn.ID, Phase: txn.Phase, Status: txn.Status,
			Reason: "transaction is closed; no further transitions are possible",
		}
	}
	if txn.Status == core.StatusEscalated {
		return Outcome{}, &core.InvalidTransitionError{
			TransactionID: txn.ID, Phase: txn.Phase, Status: txn.Status,
			Reason: "escalated transaction requires an explicit human resolution",
		}
	}

	required := e.registry.ForPhase(txn.Phase)
	set, err := e.store.Dictamenes(txn.ID, txn.Phase)
	if err != nil {
		return Outcome{}, err
	}
	// A re-evaluation supersedes the agent's earlier opinion; only each
	// agent's latest dictamen feeds disagreement checks and consolidation.
	set = set.LatestPerAgent()
	if missing := missingAgents(required, set); len(missing) > 0 {
		reason := "awaiting agents: " + strings.Join(missing, ", ")
		return e.park(txn, reason)
	}

	if disputed := conflict.Disagreements(set, e.cfg.DisagreementTolerance); len(disputed) > 0 {
		esc := conflict.FromDisagreement(txn, disputed, e.cfg.DisagreementTolerance, set)
		return e.escalate(txn, esc)
	}

	composite := score.Consolidate(set, e.cfg.Weights)
	for _, w := range composite.Warnings {
		e.logger.Warn("scoring data-quality issue", "transaction", txn.ID, "detail", w)
	}

	if lockName, bound := e.cfg.LockFor(txn.Phase); bound {
		ev, err := e.evaluateLock(ctx, lockName, txn, set, composite, required)
		if err != nil {
			return Outcome{}, err
		}
		txn.Locks[lockName] = ev.State
		rec := core.NewRecord(txn.ID, core.RecordLockEvaluated, txn.Phase, core.EngineActor, ev.Reason)
		lockRec := ev.Record()
		rec.Lock = &lockRec
		if _, err := e.store.Append(rec); err != nil {
			return Outcome{}, err
		}

		switch ev.State {
		case core.LockFailed:
			e.notifier.Notify(core.Notification{
				Kind: core.NotifyLockFailed, TransactionID: txn.ID, Phase: txn.Phase,
				Status: core.StatusEscalated, Reason: ev.Reason, Timestamp: time.Now().UTC(),
			})
			return e.escalate(txn, conflict.FromLockFailure(txn, ev, set))
		case core.LockPending:
			return e.park(txn, ev.Reason)
		}
	}

	txn.Score = composite.Total
	txn.Tier = composite.Tier
	scoreRec := core.NewRecord(txn.ID, core.RecordScore, txn.Phase, core.EngineActor,
		fmt.Sprintf("composite recomputed from %d dictamenes", len(set)))
	snap := composite.Snapshot()
	scoreRec.Score = &snap
	if _, err := e.store.Append(scoreRec); err != nil {
		return Outcome{}, err
	}

	threshold := e.cfg.Threshold(txn.Phase)
	if composite.Total < threshold {
		out, err := e.escalate(txn, conflict.FromScore(txn, composite, threshold, set))
		out.Score = &composite
		return out, err
	}

	return e.transition(txn, composite)
}

// transition increments the phase by exactly one and closes the transaction
// when it reaches F9.
func (e *Engine) transition(txn core.Transaction, composite score.Composite) (Outcome, error) {
	from := txn.Phase
	txn.Phase = from.Next()
	txn.Status = core.StatusActive
	kind := OutcomeAdvanced
	notifyKind := core.NotifyTransition
	reason := fmt.Sprintf("advanced %s -> %s with composite %d (%s)", from, txn.Phase, composite.Total, composite.Tier)
	if txn.Phase == core.PhaseClosed {
		txn.Status = core.StatusClosedApproved
		kind = OutcomeClosed
		notifyKind = core.NotifyClosed
		reason = fmt.Sprintf("closed approved at %s with composite %d (%s)", txn.Phase, composite.Total, composite.Tier)
	}

	if err := e.store.Update(txn); err != nil {
		return Outcome{}, err
	}
	rec := core.NewRecord(txn.ID, core.RecordTransition, from, core.EngineActor, reason)
	if _, err := e.store.Append(rec); err != nil {
		return Outcome{}, err
	}
	entered := core.NewRecord(txn.ID, core.RecordPhaseEntered, txn.Phase, core.EngineActor, "")
	if _, err := e.store.Append(entered); err != nil {
		return Outcome{}, err
	}

	e.logger.Info("phase transition", "transaction", txn.ID, "from", from.String(), "to", txn.Phase.String(), "composite", composite.Total)
	e.notifier.Notify(core.Notification{
		Kind: notifyKind, TransactionID: txn.ID, Phase: txn.Phase,
		Status: txn.Status, Reason: reason, Timestamp: time.Now().UTC(),
	})
	return Outcome{Kind: kind, Phase: txn.Phase, Status: txn.Status, Reason: reason, Score: &composite}, nil
}

// park moves the transaction to PARKED without touching its phase.
func (e *Engine) park(txn core.Transaction, reason string) (Outcome, error) {
	txn.Status = core.StatusParked
	if err := e.store.Update(txn); err != nil {
		return Outcome{}, err
	}
	rec := core.NewRecord(txn.ID, core.RecordParked, txn.Phase, core.EngineActor, reason)
	if _, err := e.store.Append(rec); err != nil {
		return Outcome{}, err
	}
	e.logger.Info("transaction parked", "transaction", txn.ID, "phase", txn.Phase.String(), "reason", reason)
	e.notifier.Notify(core.Notification{
		Kind: core.NotifyParked, TransactionID: txn.ID, Phase: txn.Phase,
		Status: txn.Status, Reason: reason, Timestamp: time.Now().UTC(),
	})
	return Outcome{Kind: OutcomeParked, Phase: txn.Phase, Status: txn.Status, Reason: reason}, nil
}

// escalate moves the transaction to ESCALATED and routes the conflict
// record. Escalation always wins over silent consolidation.
func (e *Engine) escalate(txn core.Transaction, esc core.Escalation) (Outcome, error) {
	txn.Status = core.StatusEscalated
	if err := e.store.Update(txn); err != nil {
		return Outcome{}, err
	}
	if err := e.router.Raise(txn, esc); err != nil {
		return Outcome{}, err
	}
	return Outcome{Kind: OutcomeEscalated, Phase: txn.Phase, Status: txn.Status, Reason: esc.Reason, Escalation: &esc}, nil
}

// evaluateLock gathers the external facts the named lock reads and runs the
// pure predicate over them.
func (e *Engine) evaluateLock(ctx context.Context, name string, txn core.Transaction, set core.DictamenSet, composite score.Composite, required []core.Agent) (lock.Evaluation, error) {
	in := lock.Inputs{
		Composite:       composite,
		ComplianceFloor: e.cfg.ComplianceFloor,
		RequiredAgents:  agentIDs(required),
	}
	switch name {
	case lock.CounterpartyRisk:
		if e.checker == nil {
			return lock.Evaluation{}, fmt.Errorf("engine: counterparty-risk lock bound but no blacklist checker configured")
		}
		status, err := e.checker.CheckBlacklist(ctx, txn.CounterpartyTaxID)
		if err != nil {
			return lock.Evaluation{}, fmt.Errorf("engine: blacklist lookup for %s: %w", txn.CounterpartyTaxID, err)
		}
		in.Blacklist = status
	case lock.FiscalCompliance:
		if e.evidence == nil {
			return lock.Evaluation{}, fmt.Errorf("engine: fiscal-compliance lock bound but no evidence repository configured")
		}
		present, err := e.evidence.HasArtifacts(ctx, txn.ID, core.RequiredArtifacts())
		if err != nil {
			return lock.Evaluation{}, fmt.Errorf("engine: artifact lookup for %s: %w", txn.ID, err)
		}
		in.ArtifactsPresent = present
	}
	return lock.Evaluate(name, txn, set, in)
}

// Stale returns parked transactions inactive beyond the window, for human
// attention. Staleness never escalates or fails a transaction by itself.
func (e *Engine) Stale(window time.Duration) ([]core.Transaction, error) {
	all, err := e.store.List()
	if err != nil {
		return nil, err
	}
	cutoff := time.Now().UTC().Add(-window)
	var stale []core.Transaction
	for _, txn := range all {
		if txn.Status == core.StatusParked && txn.Updated.Before(cutoff) {
			stale = append(stale, txn)
		}
	}
	return stale, nil
}

func missingAgents(required []core.Agent, set core.DictamenSet) []string {
	var missing []string
	for _, a := range required {
		id := a.Descriptor().ID
		if _, ok := set.ByAgent(id); !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

func agentIDs(agents []core.Agent) []string {
	ids := make([]string, len(agents))
	for i, a := range agents {
		ids[i] = a.Descriptor().ID
	}
	return ids
}
