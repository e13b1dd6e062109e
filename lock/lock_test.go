package lock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fiscalmesh/fiscalmesh/core"
	"github.com/fiscalmesh/fiscalmesh/internal/testutil"
	"github.com/fiscalmesh/fiscalmesh/score"
)

func scoringSet(agentID string, v int) core.DictamenSet {
	return core.DictamenSet{testutil.NewDictamen(agentID).WithUniformScores(v).Build()}
}

func compositeOf(set core.DictamenSet) score.Composite {
	return score.Consolidate(set, score.DefaultWeights())
}

func TestCounterpartyRiskLock(t *testing.T) {
	txn := testutil.NewTransaction().AtPhase(core.PhaseRiskScreening).Build()

	tests := []struct {
		name     string
		status   core.BlacklistStatus
		state    core.LockState
		terminal bool
	}{
		{"clear opens", core.BlacklistClear, core.LockOpen, false},
		{"pending flag parks", core.BlacklistFlaggedPending, core.LockPending, false},
		{"definitive flag fails permanently", core.BlacklistFlaggedDefinitive, core.LockFailed, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := Evaluate(CounterpartyRisk, txn, nil, Inputs{Blacklist: tt.status})
			require.NoError(t, err)
			assert.Equal(t, tt.state, ev.State)
			assert.Equal(t, tt.terminal, ev.Terminal)
			assert.NotEmpty(t, ev.Reason)
		})
	}
}

func TestEvaluateIsIdempotent(t *testing.T) {
	txn := testutil.NewTransaction().AtPhase(core.PhaseFiscalCheckpoint).Build()
	set := scoringSet("fiscal", 20)
	in := Inputs{
		ArtifactsPresent: true,
		Composite:        compositeOf(set),
		ComplianceFloor:  30,
		RequiredAgents:   []string{"fiscal"},
	}

	first, err := Evaluate(FiscalCompliance, txn, set, in)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := Evaluate(FiscalCompliance, txn, set, in)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestFiscalComplianceLock(t *testing.T) {
	txn := testutil.NewTransaction().AtPhase(core.PhaseFiscalCheckpoint).Build()
	strong := scoringSet("fiscal", 20)

	t.Run("pending without artifacts", func(t *testing.T) {
		ev, err := Evaluate(FiscalCompliance, txn, strong, Inputs{
			ArtifactsPresent: false, Composite: compositeOf(strong),
			ComplianceFloor: 30, RequiredAgents: []string{"fiscal"},
		})
		require.NoError(t, err)
		assert.Equal(t, core.LockPending, ev.State)
		assert.False(t, ev.Terminal)
		assert.Contains(t, ev.Reason, "artifacts")
	})

	t.Run("pending below compliance floor", func(t *testing.T) {
		weak := scoringSet("fiscal", 10) // materiality+traceability = 20
		ev, err := Evaluate(FiscalCompliance, txn, weak, Inputs{
			ArtifactsPresent: true, Composite: compositeOf(weak),
			ComplianceFloor: 30, RequiredAgents: []string{"fiscal"},
		})
		require.NoError(t, err)
		assert.Equal(t, core.LockPending, ev.State)
		assert.Contains(t, ev.Reason, "floor")
	})

	t.Run("opens with artifacts and floor met", func(t *testing.T) {
		ev, err := Evaluate(FiscalCompliance, txn, strong, Inputs{
			ArtifactsPresent: true, Composite: compositeOf(strong),
			ComplianceFloor: 30, RequiredAgents: []string{"fiscal"},
		})
		require.NoError(t, err)
		assert.Equal(t, core.LockOpen, ev.State)
	})
}

func TestFinalApprovalLock(t *testing.T) {
	set := scoringSet("final", 22) // composite 88, conforming

	t.Run("never opens after an upstream failure", func(t *testing.T) {
		txn := testutil.NewTransaction().
			AtPhase(core.PhaseFinalApproval).
			WithLock(CounterpartyRisk, core.LockFailed).
			Build()
		ev, err := Evaluate(FinalApproval, txn, set, Inputs{
			Composite: compositeOf(set), RequiredAgents: []string{"final"},
		})
		require.NoError(t, err)
		assert.Equal(t, core.LockFailed, ev.State)
		assert.True(t, ev.Terminal)
	})

	t.Run("opens for conforming tier", func(t *testing.T) {
		txn := testutil.NewTransaction().AtPhase(core.PhaseFinalApproval).Build()
		ev, err := Evaluate(FinalApproval, txn, set, Inputs{
			Composite: compositeOf(set), RequiredAgents: []string{"final"},
		})
		require.NoError(t, err)
		assert.Equal(t, core.LockOpen, ev.State)
	})

	t.Run("conditioned requires signed remediation", func(t *testing.T) {
		conditioned := scoringSet("final", 17) // composite 68
		txn := testutil.NewTransaction().AtPhase(core.PhaseFinalApproval).Build()
		ev, err := Evaluate(FinalApproval, txn, conditioned, Inputs{
			Composite: compositeOf(conditioned), RequiredAgents: []string{"final"},
		})
		require.NoError(t, err)
		assert.Equal(t, core.LockPending, ev.State)

		signed := testutil.NewTransaction().AtPhase(core.PhaseFinalApproval).WithRemediationSigned().Build()
		ev, err = Evaluate(FinalApproval, signed, conditioned, Inputs{
			Composite: compositeOf(conditioned), RequiredAgents: []string{"final"},
		})
		require.NoError(t, err)
		assert.Equal(t, core.LockOpen, ev.State)
	})

	t.Run("fails for non-conforming tier", func(t *testing.T) {
		poor := scoringSet("final", 10)
		txn := testutil.NewTransaction().AtPhase(core.PhaseFinalApproval).Build()
		ev, err := Evaluate(FinalApproval, txn, poor, Inputs{
			Composite: compositeOf(poor), RequiredAgents: []string{"final"},
		})
		require.NoError(t, err)
		assert.Equal(t, core.LockFailed, ev.State)
		assert.False(t, ev.Terminal)
	})
}

func TestEvaluateMissingDictamenesIsCallerError(t *testing.T) {
	txn := testutil.NewTransaction().AtPhase(core.PhaseFiscalCheckpoint).Build()
	_, err := Evaluate(FiscalCompliance, txn, nil, Inputs{
		ArtifactsPresent: true, ComplianceFloor: 30, RequiredAgents: []string{"fiscal", "auditor"},
	})
	require.Error(t, err)
	var missing *core.MissingDictamenError
	require.ErrorAs(t, err, &missing)
	assert.ElementsMatch(t, []string{"fiscal", "auditor"}, missing.AgentIDs)
}

func TestEvaluateUnknownLock(t *testing.T) {
	txn := testutil.NewTransaction().Build()
	_, err := Evaluate("nonexistent", txn, nil, Inputs{})
	assert.ErrorIs(t, err, core.ErrUnknownLock)
}
