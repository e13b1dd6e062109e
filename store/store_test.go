package store

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fiscalmesh/fiscalmesh/core"
	"github.com/fiscalmesh/fiscalmesh/internal/testutil"
)

var _ core.DeliberationStore = (*InMemory)(nil)

func seedTransaction(t *testing.T, s *InMemory) core.Transaction {
	t.Helper()
	txn := testutil.NewTransaction().Build()
	require.NoError(t, s.Create(txn))
	return txn
}

func TestCreateGetUpdate(t *testing.T) {
	s := NewInMemory()
	txn := seedTransaction(t, s)

	assert.ErrorIs(t, s.Create(txn), core.ErrDuplicateTransaction)

	got, err := s.Get(txn.ID)
	require.NoError(t, err)
	assert.Equal(t, txn.ID, got.ID)

	got.Phase = core.PhaseRiskScreening
	require.NoError(t, s.Update(got))
	again, err := s.Get(txn.ID)
	require.NoError(t, err)
	assert.Equal(t, core.PhaseRiskScreening, again.Phase)

	_, err = s.Get("missing")
	assert.ErrorIs(t, err, core.ErrUnknownTransaction)
}

func TestGetReturnsClones(t *testing.T) {
	s := NewInMemory()
	txn := seedTransaction(t, s)

	first, err := s.Get(txn.ID)
	require.NoError(t, err)
	first.Locks["counterparty_risk"] = core.LockFailed

	second, err := s.Get(txn.ID)
	require.NoError(t, err)
	assert.NotContains(t, second.Locks, "counterparty_risk")
}

func TestAppendAssignsStrictlyIncreasingSeq(t *testing.T) {
	s := NewInMemory()
	txn := seedTransaction(t, s)

	var last uint64
	for i := 0; i < 5; i++ {
		rec, err := s.Append(core.NewRecord(txn.ID, core.RecordPhaseEntered, core.PhaseIntake, core.EngineActor, ""))
		require.NoError(t, err)
		assert.Greater(t, rec.Seq, last)
		last = rec.Seq
	}

	records, err := s.Records(txn.ID)
	require.NoError(t, err)
	require.Len(t, records, 5)
	for i := 1; i < len(records); i++ {
		assert.Greater(t, records[i].Seq, records[i-1].Seq)
	}
}

func TestAppendUnknownTransaction(t *testing.T) {
	s := NewInMemory()
	_, err := s.Append(core.NewRecord("ghost", core.RecordParked, core.PhaseIntake, core.EngineActor, ""))
	assert.ErrorIs(t, err, core.ErrUnknownTransaction)
}

func TestDictamenesFiltersByPhase(t *testing.T) {
	s := NewInMemory()
	txn := seedTransaction(t, s)

	appendDictamen := func(agentID string, phase core.Phase) {
		d := testutil.NewDictamen(agentID).ForTransaction(txn.ID).AtPhase(phase).WithUniformScores(20).Build()
		rec := core.NewRecord(txn.ID, core.RecordDictamen, phase, agentID, "")
		rec.Dictamen = &d
		_, err := s.Append(rec)
		require.NoError(t, err)
	}
	appendDictamen("a", core.PhaseIntake)
	appendDictamen("b", core.PhaseIntake)
	appendDictamen("a", core.PhaseProfiling)

	set, err := s.Dictamenes(txn.ID, core.PhaseIntake)
	require.NoError(t, err)
	require.Len(t, set, 2)
	assert.Equal(t, "a", set[0].AgentID)
	assert.Equal(t, "b", set[1].AgentID)
}

func TestListOrderedByCreation(t *testing.T) {
	s := NewInMemory()
	first := seedTransaction(t, s)
	second := testutil.NewTransaction().WithID("zzz-later").Build()
	second.Created = first.Created.Add(1)
	require.NoError(t, s.Create(second))

	all, err := s.List()
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, first.ID, all[0].ID)
}

func TestJournalExportAndVerify(t *testing.T) {
	s := NewInMemory()
	txn := seedTransaction(t, s)
	for i := 0; i < 3; i++ {
		_, err := s.Append(core.NewRecord(txn.ID, core.RecordPhaseEntered, core.Phase(i), core.EngineActor, "entered"))
		require.NoError(t, err)
	}

	var buf bytes.Buffer
	require.NoError(t, ExportJournal(s, txn.ID, &buf))

	n, err := VerifyJournal(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestJournalDetectsTampering(t *testing.T) {
	s := NewInMemory()
	txn := seedTransaction(t, s)
	for i := 0; i < 3; i++ {
		_, err := s.Append(core.NewRecord(txn.ID, core.RecordParked, core.PhaseIntake, core.EngineActor, "waiting"))
		require.NoError(t, err)
	}

	var buf bytes.Buffer
	require.NoError(t, ExportJournal(s, txn.ID, &buf))

	tampered := strings.Replace(buf.String(), "waiting", "approved", 1)
	_, err := VerifyJournal(strings.NewReader(tampered))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chain broken")
}

func TestJournalEmptyTrailVerifies(t *testing.T) {
	s := NewInMemory()
	txn := seedTransaction(t, s)

	var buf bytes.Buffer
	require.NoError(t, ExportJournal(s, txn.ID, &buf))
	n, err := VerifyJournal(&buf)
	require.NoError(t, err)
	assert.Zero(t, n)
}
