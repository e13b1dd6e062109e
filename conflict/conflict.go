// Package conflict builds and routes escalations: the human-reviewable
// deliberation records produced when automatic consolidation cannot safely
// transition a transaction. The engine never auto-resolves a disagreement;
// given the legal stakes, wrongly blocking is preferred over wrongly
// approving, so every escalation waits for an explicit human resolution.
package conflict

import (
	"fmt"
	"strings"
	"time"

	"github.com/fiscalmesh/fiscalmesh/core"
	"github.com/fiscalmesh/fiscalmesh/lock"
	"github.com/fiscalmesh/fiscalmesh/logging"
	"github.com/fiscalmesh/fiscalmesh/score"
)

// Router appends escalation records to the audit trail and publishes the
// matching notification.
type Router struct {
	store    core.DeliberationStore
	notifier core.Notifier
	logger   logging.Logger
}

// NewRouter wires a router to the store and notification sink.
func NewRouter(store core.DeliberationStore, notifier core.Notifier, logger logging.Logger) *Router {
	if notifier == nil {
		notifier = core.NoopNotifier{}
	}
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Router{store: store, notifier: notifier, logger: logger}
}

// Raise appends the escalation to the transaction's audit trail and emits a
// notification. The caller (the state machine) is responsible for having
// moved the transaction to ESCALATED first.
func (r *Router) Raise(txn core.Transaction, esc core.Escalation) error {
	rec := core.NewRecord(txn.ID, core.RecordEscalation, esc.Phase, core.EngineActor, esc.Reason)
	e := esc
	rec.Escalation = &e
	if _, err := r.store.Append(rec); err != nil {
		return fmt.Errorf("conflict: record escalation: %w", err)
	}
	r.logger.Info("escalation raised",
		"transaction", txn.ID, "phase", esc.Phase.String(), "trigger", string(esc.Trigger))
	r.notifier.Notify(core.Notification{
		Kind:          core.NotifyEscalated,
		TransactionID: txn.ID,
		Phase:         esc.Phase,
		Status:        core.StatusEscalated,
		Reason:        esc.Reason,
		Timestamp:     time.Now().UTC(),
	})
	return nil
}

// FromLockFailure builds the escalation for a failed hard lock. Terminal
// failures suggest rejection; resolvable ones suggest gathering evidence.
func FromLockFailure(txn core.Transaction, ev lock.Evaluation, set core.DictamenSet) core.Escalation {
	suggested := core.RemediationRequestEvidence
	if ev.Terminal {
		suggested = core.RemediationReject
	}
	return core.Escalation{
		ID:            core.NewID(),
		TransactionID: txn.ID,
		Phase:         txn.Phase,
		Trigger:       core.TriggerLockFailed,
		Dictamenes:    set,
		LockName:      ev.Name,
		LockTerminal:  ev.Terminal,
		Reason:        fmt.Sprintf("hard lock %s failed: %s", ev.Name, ev.Reason),
		Suggested:     suggested,
		Timestamp:     time.Now().UTC(),
	}
}

// FromScore builds the escalation for a composite below the phase's
// admission threshold. Non-conforming composites suggest rejection;
// conditioned ones suggest more evidence.
func FromScore(txn core.Transaction, composite score.Composite, threshold int, set core.DictamenSet) core.Escalation {
	suggested := core.RemediationRequestEvidence
	if composite.Tier == core.TierNonConforming {
		suggested = core.RemediationReject
	}
	return core.Escalation{
		ID:            core.NewID(),
		TransactionID: txn.ID,
		Phase:         txn.Phase,
		Trigger:       core.TriggerScoreBelowMin,
		Dictamenes:    set,
		Reason: fmt.Sprintf("composite %d (%s) below admission threshold %d for %s",
			composite.Total, composite.Tier, threshold, txn.Phase),
		Suggested: suggested,
		Timestamp: time.Now().UTC(),
	}
}

// FromDisagreement builds the escalation for pillar scores spread beyond the
// configured tolerance. Disagreement between independent evaluators is a
// judgment call, so the suggestion is always a manual override review.
func FromDisagreement(txn core.Transaction, disputed []core.Pillar, tolerance int, set core.DictamenSet) core.Escalation {
	names := make([]string, len(disputed))
	for i, p := range disputed {
		names[i] = string(p)
	}
	return core.Escalation{
		ID:              core.NewID(),
		TransactionID:   txn.ID,
		Phase:           txn.Phase,
		Trigger:         core.TriggerPillarDispute,
		DisputedPillars: disputed,
		Dictamenes:      conflicting(set, disputed),
		Reason: fmt.Sprintf("agents disagree beyond tolerance %d on pillar(s) %s",
			tolerance, strings.Join(names, ", ")),
		Suggested: core.RemediationManualOverride,
		Timestamp: time.Now().UTC(),
	}
}

// Disagreements returns the pillars whose score spread across agents exceeds
// the tolerance, in canonical pillar order.
func Disagreements(set core.DictamenSet, tolerance int) []core.Pillar {
	var disputed []core.Pillar
	for _, pillar := range core.Pillars() {
		if score.Spread(set, pillar) > tolerance {
			disputed = append(disputed, pillar)
		}
	}
	return disputed
}

// conflicting keeps only the dictamenes that actually scored a disputed
// pillar, so the escalation record names the conflicting opinions rather
// than the whole response set.
func conflicting(set core.DictamenSet, disputed []core.Pillar) core.DictamenSet {
	if len(disputed) == 0 {
		return nil
	}
	return set.Scoring()
}
