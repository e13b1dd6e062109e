package core

import "time"

// RecordKind classifies the meaningful events captured in the audit trail.
type RecordKind string

const (
	RecordPhaseEntered  RecordKind = "phase_entered"
	RecordDictamen      RecordKind = "dictamen_received"
	RecordLockEvaluated RecordKind = "lock_evaluated"
	RecordScore         RecordKind = "score_recomputed"
	RecordParked        RecordKind = "parked"
	RecordEscalation    RecordKind = "escalation_raised"
	RecordTransition    RecordKind = "phase_transition"
	RecordResolution    RecordKind = "human_resolution"
)

// LockEvaluation is the audit-trail snapshot of one hard-lock evaluation.
type LockEvaluation struct {
	Name     string    `json:"name"`
	State    LockState `json:"state"`
	Terminal bool      `json:"terminal,omitempty"`
	Reason   string    `json:"reason"`
}

// ScoreSnapshot is the audit-trail snapshot of one score recomputation.
type ScoreSnapshot struct {
	Composite int          `json:"composite"`
	Tier      Tier         `json:"tier"`
	Pillars   PillarScores `json:"pillars"`
	Warnings  []string     `json:"warnings,omitempty"`
}

// DeliberationRecord is one append-only audit entry. Within a transaction,
// Seq (a store-assigned logical sequence number) is the sole source of
// truth for ordering; wall-clock timestamps are informational only and may
// skew across distributed agent invocations.
//
// Exactly one of the optional payloads (Dictamen, Lock, Score, Escalation,
// Resolution) is set, matching Kind. Payloads are flat structs so JSON
// marshaling is deterministic for the hash-chained journal.
type DeliberationRecord struct {
	ID            string     `json:"id"`
	TransactionID string     `json:"transaction_id"`
	Seq           uint64     `json:"seq"`
	Kind          RecordKind `json:"kind"`
	Phase         Phase      `json:"phase"`
	Actor         string     `json:"actor"`
	Reason        string     `json:"reason,omitempty"`
	Timestamp     time.Time  `json:"timestamp"`

	Dictamen   *Dictamen       `json:"dictamen,omitempty"`
	Lock       *LockEvaluation `json:"lock,omitempty"`
	Score      *ScoreSnapshot  `json:"score,omitempty"`
	Escalation *Escalation     `json:"escalation,omitempty"`
	Resolution *Resolution     `json:"resolution,omitempty"`
}

// EngineActor is the Actor value for records produced by the state machine
// itself rather than an agent or a human.
const EngineActor = "engine"

// NewRecord creates an unsequenced record; the store assigns Seq and, when
// unset, the timestamp on append.
func NewRecord(transactionID string, kind RecordKind, phase Phase, actor, reason string) DeliberationRecord {
	return DeliberationRecord{
		ID:            NewID(),
		TransactionID: transactionID,
		Kind:          kind,
		Phase:         phase,
		Actor:         actor,
		Reason:        reason,
		Timestamp:     time.Now().UTC(),
	}
}
