package core

import (
	"context"
	"time"
)

// BlacklistStatus is the result of a counterparty verification lookup
// against the authoritative non-existent-operations list.
type BlacklistStatus string

const (
	BlacklistClear             BlacklistStatus = "clear"
	BlacklistFlaggedPending    BlacklistStatus = "flagged_pending"
	BlacklistFlaggedDefinitive BlacklistStatus = "flagged_definitive"
)

// BlacklistChecker is the external counterparty verification capability,
// consumed only by the counterparty-risk lock.
type BlacklistChecker interface {
	CheckBlacklist(ctx context.Context, counterpartyTaxID string) (BlacklistStatus, error)
}

// ArtifactType names an evidentiary artifact class the fiscal-compliance
// lock requires.
type ArtifactType string

const (
	ArtifactContract      ArtifactType = "contract"
	ArtifactDeliveryProof ArtifactType = "delivery_proof"
	ArtifactBankPayment   ArtifactType = "bank_payment"
)

// RequiredArtifacts returns the evidentiary artifact classes the
// fiscal-compliance lock demands, in canonical order.
func RequiredArtifacts() []ArtifactType {
	return []ArtifactType{ArtifactContract, ArtifactDeliveryProof, ArtifactBankPayment}
}

// EvidenceRepository is the external evidence storage capability, consumed
// only by the fiscal-compliance lock.
type EvidenceRepository interface {
	HasArtifacts(ctx context.Context, transactionID string, required []ArtifactType) (bool, error)
}

// NotificationKind classifies outbound engine events.
type NotificationKind string

const (
	NotifyTransition NotificationKind = "phase_transition"
	NotifyParked     NotificationKind = "parked"
	NotifyEscalated  NotificationKind = "escalated"
	NotifyLockFailed NotificationKind = "lock_failed"
	NotifyClosed     NotificationKind = "closed"
	NotifyResolved   NotificationKind = "resolved"
)

// Notification is the outbound message published after each state mutation.
type Notification struct {
	Kind          NotificationKind `json:"kind"`
	TransactionID string           `json:"transaction_id"`
	Phase         Phase            `json:"phase"`
	Status        Status           `json:"status"`
	Reason        string           `json:"reason,omitempty"`
	Timestamp     time.Time        `json:"timestamp"`
}

// Notifier is the fire-and-forget notification sink. Implementations must
// not block the caller; the engine neither waits for nor depends on
// delivery confirmation.
type Notifier interface {
	Notify(n Notification)
}

// NoopNotifier discards all notifications.
type NoopNotifier struct{}

// Notify implements Notifier.
func (NoopNotifier) Notify(Notification) {}
