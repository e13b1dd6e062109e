package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/fiscalmesh/fiscalmesh/core"
	"github.com/fiscalmesh/fiscalmesh/lock"
)

// Resolve applies an explicit, auditable human decision to a transaction.
// A human resolution is the only way out of ESCALATED; the engine never
// auto-resolves a disagreement or a failed lock.
//
// Rules:
//   - Actor and Rationale are mandatory; the audit trail must name who
//     decided and why.
//   - Withdraw is accepted from any non-terminal state.
//   - ApproveAdvance, Reject and RequestEvidence require ESCALATED.
//   - ApproveAdvance is refused while any hard lock is failed: a definitive
//     counterparty listing cannot be overridden, only re-deliberated after a
//     new due-diligence cycle (RequestEvidence) or rejected.
//   - RequestEvidence may roll the phase back via RollbackTo; this is the
//     sole sanctioned phase decrease.
func (e *Engine) Resolve(_ context.Context, transactionID string, res core.Resolution) (core.Transaction, error) {
	if res.Actor == "" || res.Rationale == "" {
		return core.Transaction{}, fmt.Errorf("engine: resolution requires actor and rationale")
	}

	unlock := e.txnLocks.lock(transactionID)
	defer unlock()

	txn, err := e.store.Get(transactionID)
	if err != nil {
		return core.Transaction{}, err
	}
	if txn.Status.Terminal() {
		return core.Transaction{}, &core.InvalidTransitionError{
			TransactionID: txn.ID, Phase: txn.Phase, Status: txn.Status,
			Reason: "transaction is closed; resolutions no longer apply",
		}
	}

	if res.Kind != core.ResolutionWithdraw && txn.Status != core.StatusEscalated {
		return core.Transaction{}, &core.InvalidTransitionError{
			TransactionID: txn.ID, Phase: txn.Phase, Status: txn.Status,
			Reason: fmt.Sprintf("resolution %s applies only to escalated transactions", res.Kind),
		}
	}

	notifyKind := core.NotifyResolved
	switch res.Kind {
	case core.ResolutionApproveAdvance:
		if txn.LockEverFailed() {
			return core.Transaction{}, &core.InvalidTransitionError{
				TransactionID: txn.ID, Phase: txn.Phase, Status: txn.Status,
				Reason: "a failed hard lock cannot be overridden; request a new due-diligence cycle or reject",
			}
		}
		from := txn.Phase
		txn.Phase = from.Next()
		txn.Status = core.StatusActive
		if txn.Phase == core.PhaseClosed {
			txn.Status = core.StatusClosedApproved
			notifyKind = core.NotifyClosed
		}
	case core.ResolutionReject:
		txn.Status = core.StatusClosedRejected
		notifyKind = core.NotifyClosed
	case core.ResolutionWithdraw:
		txn.Status = core.StatusClosedWithdrawn
		notifyKind = core.NotifyClosed
	case core.ResolutionRequestEvidence:
		if res.RollbackTo != nil {
			if !res.RollbackTo.Valid() || *res.RollbackTo > txn.Phase {
				return core.Transaction{}, fmt.Errorf("engine: rollback target %v is not an earlier phase", res.RollbackTo)
			}
			txn.Phase = *res.RollbackTo
		}
		// A failed resolvable lock returns to pending so the phase can be
		// re-deliberated once evidence arrives. A definitive counterparty
		// failure never resets.
		for name, st := range txn.Locks {
			if st == core.LockFailed && name != lock.CounterpartyRisk {
				txn.Locks[name] = core.LockPending
			}
		}
		txn.Status = core.StatusParked
	default:
		return core.Transaction{}, fmt.Errorf("engine: unknown resolution kind %q", res.Kind)
	}

	if err := e.store.Update(txn); err != nil {
		return core.Transaction{}, err
	}
	rec := core.NewRecord(txn.ID, core.RecordResolution, txn.Phase, res.Actor, res.Rationale)
	r := res
	rec.Resolution = &r
	if _, err := e.store.Append(rec); err != nil {
		return core.Transaction{}, err
	}

	e.logger.Info("human resolution applied",
		"transaction", txn.ID, "kind", string(res.Kind), "actor", res.Actor, "status", string(txn.Status))
	e.notifier.Notify(core.Notification{
		Kind: notifyKind, TransactionID: txn.ID, Phase: txn.Phase,
		Status: txn.Status, Reason: fmt.Sprintf("%s by %s: %s", res.Kind, res.Actor, res.Rationale),
		Timestamp: time.Now().UTC(),
	})
	return txn, nil
}
