// Package fiscalmesh provides a high-level façade over the phase-gated
// deliberation engine and its services (deliberation store, agent registry,
// invocation coordinator, notification sink & logging), enabling rapid
// construction of tax-compliance evaluation pipelines. Most applications
// interact with this package by:
//  1. Creating a FiscalMesh via New() with the evaluator agents and the
//     external collaborators (blacklist lookup, evidence repository)
//  2. Submitting transactions at intake
//  3. Driving each phase with Deliberate (dispatch + advance) and handling
//     parked/escalated outcomes, resolving escalations with Resolve
//
// All defaults are safe for local development and testing; production
// deployments typically supply a durable store implementation, a structured
// logger and real collaborator clients.
package fiscalmesh

import (
	"context"
	"io"
	"time"

	"github.com/fiscalmesh/fiscalmesh/config"
	"github.com/fiscalmesh/fiscalmesh/core"
	"github.com/fiscalmesh/fiscalmesh/dispatch"
	"github.com/fiscalmesh/fiscalmesh/engine"
	"github.com/fiscalmesh/fiscalmesh/logging"
	"github.com/fiscalmesh/fiscalmesh/report"
	"github.com/fiscalmesh/fiscalmesh/store"
)

// Options configures the FiscalMesh instance.
type Options struct {
	// Config carries the deployment-fixed policy parameters
	// (thresholds, weights, tolerance, timeouts, lock bindings).
	Config config.Config

	// Store defaults to the in-memory deliberation store.
	Store core.DeliberationStore

	// Blacklist is the counterparty verification lookup. Required when
	// the counterparty-risk lock is bound (it is, by default).
	Blacklist core.BlacklistChecker

	// Evidence is the evidence repository. Required when the
	// fiscal-compliance lock is bound (it is, by default).
	Evidence core.EvidenceRepository

	// Notifier defaults to a no-op sink.
	Notifier core.Notifier

	// Logger defaults to NoOp.
	Logger logging.Logger
}

// FiscalMesh aggregates the engine, coordinator and store behind one handle.
type FiscalMesh struct {
	registry    *core.Registry
	engine      *engine.Engine
	coordinator *dispatch.Coordinator
	store       core.DeliberationStore
	cfg         config.Config
}

// New creates a FiscalMesh instance over the given evaluator agents. Any
// unset service is initialized with an in-memory or no-op implementation.
func New(evaluators []core.Agent, optFns ...func(o *Options)) (*FiscalMesh, error) {
	opts := Options{
		Config:   config.Default(),
		Store:    store.NewInMemory(),
		Notifier: core.NoopNotifier{},
		Logger:   logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	registry, err := core.NewRegistry(evaluators...)
	if err != nil {
		return nil, err
	}

	eng := engine.New(registry, func(o *engine.Options) {
		o.Config = opts.Config
		o.Store = opts.Store
		o.Blacklist = opts.Blacklist
		o.Evidence = opts.Evidence
		o.Notifier = opts.Notifier
		o.Logger = opts.Logger
	})
	coord := dispatch.NewCoordinator(registry, opts.Store, func(o *dispatch.Options) {
		o.AgentTimeout = opts.Config.AgentTimeout
		o.PhaseTimeout = opts.Config.PhaseTimeout
		o.Logger = opts.Logger
	})

	return &FiscalMesh{
		registry:    registry,
		engine:      eng,
		coordinator: coord,
		store:       opts.Store,
		cfg:         opts.Config,
	}, nil
}

// Submit registers a new transaction at intake (F0).
func (m *FiscalMesh) Submit(ctx context.Context, txn core.Transaction) (core.Transaction, error) {
	return m.engine.Submit(ctx, txn)
}

// Deliberate runs one full phase step: it dispatches the phase's agents,
// waits for fan-in, then attempts the phase transition. The returned outcome
// reports whether the transaction advanced, parked or escalated, and why.
func (m *FiscalMesh) Deliberate(ctx context.Context, transactionID string) (engine.Outcome, error) {
	txn, err := m.engine.Transaction(transactionID)
	if err != nil {
		return engine.Outcome{}, err
	}
	if _, err := m.coordinator.Dispatch(ctx, txn, txn.Phase); err != nil {
		return engine.Outcome{}, err
	}
	return m.engine.Advance(ctx, transactionID)
}

// Advance attempts a phase transition using already-recorded dictamenes,
// without dispatching agents. See engine.Engine.Advance.
func (m *FiscalMesh) Advance(ctx context.Context, transactionID string) (engine.Outcome, error) {
	return m.engine.Advance(ctx, transactionID)
}

// Resolve applies an explicit human decision to an escalated transaction.
func (m *FiscalMesh) Resolve(ctx context.Context, transactionID string, res core.Resolution) (core.Transaction, error) {
	return m.engine.Resolve(ctx, transactionID, res)
}

// Transaction returns a read-only clone of the transaction.
func (m *FiscalMesh) Transaction(id string) (core.Transaction, error) {
	return m.store.Get(id)
}

// Records returns the transaction's full audit trail in sequence order.
func (m *FiscalMesh) Records(id string) ([]core.DeliberationRecord, error) {
	return m.store.Records(id)
}

// Stale lists parked transactions inactive beyond the configured window.
func (m *FiscalMesh) Stale() ([]core.Transaction, error) {
	return m.engine.Stale(m.cfg.StaleWindow)
}

// StaleSince lists parked transactions inactive beyond an explicit window.
func (m *FiscalMesh) StaleSince(window time.Duration) ([]core.Transaction, error) {
	return m.engine.Stale(window)
}

// Dossier renders the human-readable audit dossier of a closed transaction.
func (m *FiscalMesh) Dossier(id string) (string, error) {
	return report.Dossier(m.store, id)
}

// ExportJournal writes the transaction's hash-chained audit journal to w.
func (m *FiscalMesh) ExportJournal(id string, w io.Writer) error {
	return store.ExportJournal(m.store, id, w)
}
