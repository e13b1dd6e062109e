package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fiscalmesh/fiscalmesh/core"
	"github.com/fiscalmesh/fiscalmesh/internal/testutil"
	"github.com/fiscalmesh/fiscalmesh/store"
)

func TestDossierRequiresTerminalTransaction(t *testing.T) {
	st := store.NewInMemory()
	txn := testutil.NewTransaction().Build()
	require.NoError(t, st.Create(txn))

	_, err := Dossier(st, txn.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "closed transactions only")
}

func TestDossierUnknownTransaction(t *testing.T) {
	_, err := Dossier(store.NewInMemory(), "missing")
	require.ErrorIs(t, err, core.ErrUnknownTransaction)
}

func TestDossierRendersFullTrail(t *testing.T) {
	st := store.NewInMemory()
	txn := testutil.NewTransaction().
		AtPhase(core.PhaseClosed).
		WithStatus(core.StatusClosedApproved).
		Build()
	txn.Score = 88
	txn.Tier = core.TierConforming
	require.NoError(t, st.Create(txn))

	d := testutil.NewDictamen("fiscal-evaluator").
		ForTransaction(txn.ID).AtPhase(core.PhaseFiscalCheckpoint).
		WithUniformScores(22).WithRationale("CFDI set complete and consistent").Build()
	rec := core.NewRecord(txn.ID, core.RecordDictamen, core.PhaseFiscalCheckpoint, "fiscal-evaluator", "")
	rec.Dictamen = &d
	_, err := st.Append(rec)
	require.NoError(t, err)

	lockRec := core.NewRecord(txn.ID, core.RecordLockEvaluated, core.PhaseFiscalCheckpoint, core.EngineActor, "")
	lockRec.Lock = &core.LockEvaluation{Name: "fiscal_compliance", State: core.LockOpen, Reason: "artifacts present, evidentiary floor met"}
	_, err = st.Append(lockRec)
	require.NoError(t, err)

	resRec := core.NewRecord(txn.ID, core.RecordResolution, core.PhaseFinalApproval, "comptroller", "approved for close")
	resRec.Resolution = &core.Resolution{Kind: core.ResolutionApproveAdvance, Actor: "comptroller", Rationale: "approved for close"}
	_, err = st.Append(resRec)
	require.NoError(t, err)

	out, err := Dossier(st, txn.ID)
	require.NoError(t, err)

	assert.Contains(t, out, "DELIBERATION DOSSIER")
	assert.Contains(t, out, txn.ID)
	assert.Contains(t, out, "Servicios Corporativos del Valle SC")
	assert.Contains(t, out, "closed_approved")
	assert.Contains(t, out, "verdict=conform scores=22/22/22/22")
	assert.Contains(t, out, "CFDI set complete and consistent")
	assert.Contains(t, out, "lock fiscal_compliance -> open")
	assert.Contains(t, out, "approve_advance by comptroller")
	// Human actors are named; engine records are not attributed.
	assert.Contains(t, out, "by fiscal-evaluator")
	assert.NotContains(t, out, "by engine")
}

func TestDossierMarksTerminalLock(t *testing.T) {
	st := store.NewInMemory()
	txn := testutil.NewTransaction().WithStatus(core.StatusClosedRejected).Build()
	require.NoError(t, st.Create(txn))

	rec := core.NewRecord(txn.ID, core.RecordLockEvaluated, core.PhaseRiskScreening, core.EngineActor, "")
	rec.Lock = &core.LockEvaluation{
		Name: "counterparty_risk", State: core.LockFailed, Terminal: true,
		Reason: "counterparty is definitively listed",
	}
	_, err := st.Append(rec)
	require.NoError(t, err)

	out, err := Dossier(st, txn.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "lock counterparty_risk -> failed (terminal)")
	assert.Contains(t, out, "definitively listed")
}
