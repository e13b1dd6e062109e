package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fiscalmesh/fiscalmesh/agents"
	"github.com/fiscalmesh/fiscalmesh/core"
	"github.com/fiscalmesh/fiscalmesh/internal/testutil"
	"github.com/fiscalmesh/fiscalmesh/store"
)

func scoringAgent(id string, score int) core.Agent {
	return agents.NewFuncAgent(
		core.Descriptor{ID: id, Kind: core.AgentPrimary, Phases: []core.Phase{core.PhaseIntake}},
		func(_ context.Context, txn core.Transaction, phase core.Phase) (core.Dictamen, error) {
			return testutil.NewDictamen(id).ForTransaction(txn.ID).AtPhase(phase).WithUniformScores(score).Build(), nil
		},
	)
}

func hangingAgent(id string) core.Agent {
	return agents.NewFuncAgent(
		core.Descriptor{ID: id, Kind: core.AgentSub, Phases: []core.Phase{core.PhaseIntake}},
		func(ctx context.Context, _ core.Transaction, _ core.Phase) (core.Dictamen, error) {
			<-ctx.Done()
			return core.Dictamen{}, ctx.Err()
		},
	)
}

func newEnv(t *testing.T, evaluators ...core.Agent) (*Coordinator, *store.InMemory, core.Transaction) {
	t.Helper()
	reg, err := core.NewRegistry(evaluators...)
	require.NoError(t, err)
	st := store.NewInMemory()
	txn := testutil.NewTransaction().Build()
	require.NoError(t, st.Create(txn))
	coord := NewCoordinator(reg, st, func(o *Options) {
		o.AgentTimeout = 100 * time.Millisecond
		o.PhaseTimeout = time.Second
	})
	return coord, st, txn
}

func TestDispatchFanInAllAgents(t *testing.T) {
	coord, st, txn := newEnv(t, scoringAgent("a", 22), scoringAgent("b", 18))

	set, err := coord.Dispatch(context.Background(), txn, core.PhaseIntake)
	require.NoError(t, err)
	require.Len(t, set.Dictamenes, 2)

	// Registration order regardless of completion order.
	assert.Equal(t, "a", set.Dictamenes[0].AgentID)
	assert.Equal(t, "b", set.Dictamenes[1].AgentID)

	// Every dictamen persisted before return.
	stored, err := st.Dictamenes(txn.ID, core.PhaseIntake)
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestDispatchTimeoutRecordedAsAbstain(t *testing.T) {
	coord, st, txn := newEnv(t, scoringAgent("fast", 22), hangingAgent("slow"))

	set, err := coord.Dispatch(context.Background(), txn, core.PhaseIntake)
	require.NoError(t, err)
	require.Len(t, set.Dictamenes, 2)

	slow, ok := set.Dictamenes.ByAgent("slow")
	require.True(t, ok)
	assert.Equal(t, core.VerdictAbstain, slow.Verdict)
	assert.Zero(t, slow.Contribution())
	assert.Contains(t, slow.FailureReason, "timed out")

	fast, ok := set.Dictamenes.ByAgent("fast")
	require.True(t, ok)
	assert.Equal(t, core.VerdictConform, fast.Verdict)

	stored, err := st.Dictamenes(txn.ID, core.PhaseIntake)
	require.NoError(t, err)
	assert.Len(t, stored, 2, "abstentions are persisted like any dictamen")
}

func TestDispatchErrorAbsorbedAsAbstain(t *testing.T) {
	failing := agents.NewFuncAgent(
		core.Descriptor{ID: "broken", Phases: []core.Phase{core.PhaseIntake}},
		func(context.Context, core.Transaction, core.Phase) (core.Dictamen, error) {
			return core.Dictamen{}, errors.New("verification backend unavailable")
		},
	)
	coord, _, txn := newEnv(t, failing)

	set, err := coord.Dispatch(context.Background(), txn, core.PhaseIntake)
	require.NoError(t, err, "agent failures never propagate to the caller")
	require.Len(t, set.Dictamenes, 1)
	assert.Equal(t, core.VerdictAbstain, set.Dictamenes[0].Verdict)
	assert.Contains(t, set.Dictamenes[0].FailureReason, "verification backend unavailable")
}

func TestDispatchPanicAbsorbedAsAbstain(t *testing.T) {
	panicking := agents.NewFuncAgent(
		core.Descriptor{ID: "panicky", Phases: []core.Phase{core.PhaseIntake}},
		func(context.Context, core.Transaction, core.Phase) (core.Dictamen, error) {
			panic("nil map write")
		},
	)
	coord, _, txn := newEnv(t, panicking)

	set, err := coord.Dispatch(context.Background(), txn, core.PhaseIntake)
	require.NoError(t, err)
	require.Len(t, set.Dictamenes, 1)
	assert.Equal(t, core.VerdictAbstain, set.Dictamenes[0].Verdict)
	assert.Contains(t, set.Dictamenes[0].FailureReason, "panicked")
}

func TestDispatchNormalizesIdentityFields(t *testing.T) {
	// An agent returning someone else's identity is corrected.
	impersonator := agents.NewFuncAgent(
		core.Descriptor{ID: "honest", Phases: []core.Phase{core.PhaseIntake}},
		func(context.Context, core.Transaction, core.Phase) (core.Dictamen, error) {
			return core.Dictamen{AgentID: "someone-else", Verdict: core.VerdictConform}, nil
		},
	)
	coord, _, txn := newEnv(t, impersonator)

	set, err := coord.Dispatch(context.Background(), txn, core.PhaseIntake)
	require.NoError(t, err)
	require.Len(t, set.Dictamenes, 1)
	assert.Equal(t, "honest", set.Dictamenes[0].AgentID)
	assert.Equal(t, txn.ID, set.Dictamenes[0].TransactionID)
	assert.NotEmpty(t, set.Dictamenes[0].ID)
}

func TestDispatchNoAgentsForPhase(t *testing.T) {
	coord, _, txn := newEnv(t, scoringAgent("a", 20))
	set, err := coord.Dispatch(context.Background(), txn, core.PhaseExecution)
	require.NoError(t, err)
	assert.Empty(t, set.Dictamenes)
}
