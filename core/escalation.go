package core

import "time"

// EscalationTrigger names the condition that forced an escalation.
type EscalationTrigger string

const (
	TriggerLockFailed    EscalationTrigger = "lock_failed"
	TriggerScoreBelowMin EscalationTrigger = "score_below_threshold"
	TriggerPillarDispute EscalationTrigger = "pillar_disagreement"
)

// RemediationPath is the conflict resolver's suggested way forward. It is a
// suggestion only: a human resolution is the sole exit from ESCALATED.
type RemediationPath string

const (
	RemediationRequestEvidence RemediationPath = "request_evidence"
	RemediationReject          RemediationPath = "reject"
	RemediationManualOverride  RemediationPath = "manual_override"
)

// Escalation is the human-reviewable deliberation record produced when
// automatic consolidation cannot safely transition a transaction: the
// disputed pillars, the conflicting dictamenes, and a suggested remediation.
type Escalation struct {
	ID              string            `json:"id"`
	TransactionID   string            `json:"transaction_id"`
	Phase           Phase             `json:"phase"`
	Trigger         EscalationTrigger `json:"trigger"`
	DisputedPillars []Pillar          `json:"disputed_pillars,omitempty"`
	Dictamenes      []Dictamen        `json:"dictamenes,omitempty"`
	LockName        string            `json:"lock_name,omitempty"`
	LockTerminal    bool              `json:"lock_terminal,omitempty"`
	Reason          string            `json:"reason"`
	Suggested       RemediationPath   `json:"suggested"`
	Timestamp       time.Time         `json:"timestamp"`
}

// ResolutionKind enumerates the explicit human decisions that move a
// transaction out of ESCALATED (or refresh a parked one).
type ResolutionKind string

const (
	// ResolutionApproveAdvance overrides an escalation and advances the
	// phase by one. Not permitted after a terminal lock failure.
	ResolutionApproveAdvance ResolutionKind = "approve_advance"
	// ResolutionReject closes the transaction as rejected.
	ResolutionReject ResolutionKind = "reject"
	// ResolutionWithdraw closes the transaction as withdrawn.
	ResolutionWithdraw ResolutionKind = "withdraw"
	// ResolutionRequestEvidence returns the transaction to parked at its
	// current phase (or an earlier one via RollbackTo) so more evidence
	// can be gathered and the phase re-deliberated.
	ResolutionRequestEvidence ResolutionKind = "request_evidence"
)

// Resolution is an auditable human override. Actor and Rationale are
// mandatory: the audit trail must show who decided and why.
type Resolution struct {
	Kind       ResolutionKind `json:"kind"`
	Actor      string         `json:"actor"`
	Rationale  string         `json:"rationale"`
	RollbackTo *Phase         `json:"rollback_to,omitempty"`
}
