package core

import (
	"fmt"
	"time"
)

// Phase identifies one of the ten fixed lifecycle phases F0..F9.
//
// The phase graph is fixed per deployment: a transaction enters at F0
// (intake) and, absent escalation, increments by exactly one phase per
// successful advance until F9 (archival close). PARKED and ESCALATED are not
// phases; they are statuses a transaction holds while sitting at a phase.
type Phase int

const (
	// PhaseIntake is F0, where transactions are created.
	PhaseIntake Phase = iota
	PhaseProfiling
	// PhaseRiskScreening is F2, home of the counterparty-risk lock.
	PhaseRiskScreening
	PhaseSubstanceReview
	PhaseContracting
	// PhaseFiscalCheckpoint is F5, home of the fiscal-compliance lock.
	PhaseFiscalCheckpoint
	PhaseExecution
	PhaseTraceabilityReview
	// PhaseFinalApproval is F8, home of the final-approval lock.
	PhaseFinalApproval
	// PhaseClosed is F9, the archival close reached only by advancing
	// past final approval.
	PhaseClosed
)

// String renders the canonical phase identifier ("F0".."F9").
func (p Phase) String() string { return fmt.Sprintf("F%d", int(p)) }

// Valid reports whether p is one of the ten fixed phases.
func (p Phase) Valid() bool { return p >= PhaseIntake && p <= PhaseClosed }

// Next returns the successor phase. Calling Next on F9 is a programming
// error; the state machine never does so because F9 is terminal.
func (p Phase) Next() Phase { return p + 1 }

// ParsePhase converts a canonical identifier ("F0".."F9") back to a Phase.
func ParsePhase(s string) (Phase, error) {
	var n int
	if _, err := fmt.Sscanf(s, "F%d", &n); err != nil {
		return 0, fmt.Errorf("core: invalid phase %q", s)
	}
	p := Phase(n)
	if !p.Valid() {
		return 0, fmt.Errorf("core: phase %q out of range", s)
	}
	return p, nil
}

// Status is the engine-level disposition of a transaction at its current
// phase. Closed statuses are terminal; Escalated can only be left through an
// explicit human resolution.
type Status string

const (
	// StatusActive means the transaction is eligible for dispatch/advance.
	StatusActive Status = "active"
	// StatusParked means advance was attempted but preconditions (agent
	// dictamenes, resolvable lock) are not yet met. Parked is not failure.
	StatusParked Status = "parked"
	// StatusEscalated means automatic consolidation could not safely
	// produce a transition; a human resolution is required to proceed.
	StatusEscalated Status = "escalated"
	// StatusClosedApproved is the F9 terminal outcome.
	StatusClosedApproved Status = "closed_approved"
	// StatusClosedRejected is the rejected terminal outcome (F9-REJECTED).
	StatusClosedRejected Status = "closed_rejected"
	// StatusClosedWithdrawn is the withdrawn terminal outcome (F9-WITHDRAWN).
	StatusClosedWithdrawn Status = "closed_withdrawn"
)

// Terminal reports whether the status permits no further transitions.
func (s Status) Terminal() bool {
	switch s {
	case StatusClosedApproved, StatusClosedRejected, StatusClosedWithdrawn:
		return true
	}
	return false
}

// Tier is the qualitative band mapped from the 0-100 composite score.
type Tier string

const (
	TierConforming    Tier = "conforming"
	TierConditioned   Tier = "conditioned"
	TierNonConforming Tier = "non_conforming"
)

// LockState is the current evaluation state of a named hard lock.
type LockState string

const (
	LockOpen    LockState = "open"
	LockPending LockState = "pending"
	LockFailed  LockState = "failed"
)

// Transaction is the unit under evaluation: one procurement of services or
// intangibles routed through the F0..F9 lifecycle.
//
// The Phase State Machine is the sole writer of Phase, Status, Score, Tier
// and Locks; the Conflict Resolver writes only the human-override fields
// carried on resolution records. All other components receive value copies
// (Clone) and must treat them as read-only snapshots.
type Transaction struct {
	ID                string              `json:"id"`
	Requestor         string              `json:"requestor"`
	Counterparty      string              `json:"counterparty"`
	CounterpartyTaxID string              `json:"counterparty_tax_id"`
	Amount            float64             `json:"amount"`
	Currency          string              `json:"currency"`
	ServiceClass      string              `json:"service_class"`
	Phase             Phase               `json:"phase"`
	Status            Status              `json:"status"`
	Score             int                 `json:"score"`
	Tier              Tier                `json:"tier"`
	Locks             map[string]LockState `json:"locks"`
	RemediationSigned bool                `json:"remediation_signed"`
	Created           time.Time           `json:"created"`
	Updated           time.Time           `json:"updated"`
}

// NewTransaction creates an intake-phase transaction with a fresh ID.
func NewTransaction(requestor, counterparty, counterpartyTaxID string, amount float64, currency, serviceClass string) Transaction {
	now := time.Now().UTC()
	return Transaction{
		ID:                NewID(),
		Requestor:         requestor,
		Counterparty:      counterparty,
		CounterpartyTaxID: counterpartyTaxID,
		Amount:            amount,
		Currency:          currency,
		ServiceClass:      serviceClass,
		Phase:             PhaseIntake,
		Status:            StatusActive,
		Tier:              TierNonConforming,
		Locks:             map[string]LockState{},
		Created:           now,
		Updated:           now,
	}
}

// Clone returns a value copy safe for hand-off to agents and evaluators.
// The lock-state map is duplicated so callers cannot mutate engine state.
func (t Transaction) Clone() Transaction {
	locks := make(map[string]LockState, len(t.Locks))
	for k, v := range t.Locks {
		locks[k] = v
	}
	t.Locks = locks
	return t
}

// LockEverFailed reports whether any lock on this transaction has recorded a
// failed state. Used by the final-approval lock, which must never open after
// an upstream failure.
func (t Transaction) LockEverFailed() bool {
	for _, st := range t.Locks {
		if st == LockFailed {
			return true
		}
	}
	return false
}
