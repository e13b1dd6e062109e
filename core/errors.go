package core

import (
	"errors"
	"fmt"
)

// ErrUnknownTransaction is returned by stores for missing transaction IDs.
var ErrUnknownTransaction = errors.New("unknown transaction")

// ErrDuplicateTransaction is returned by Create for an already stored ID.
var ErrDuplicateTransaction = errors.New("transaction already exists")

// ErrUnknownLock is returned when evaluating a lock name outside the fixed set.
var ErrUnknownLock = errors.New("unknown lock")

// InvalidTransitionError reports structural misuse of the state machine:
// advancing a terminal or escalated transaction without an explicit human
// resolution, or resolving a transaction that does not need one. It is
// raised immediately and never retried automatically.
type InvalidTransitionError struct {
	TransactionID string
	Phase         Phase
	Status        Status
	Reason        string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition for transaction %s at %s (%s): %s",
		e.TransactionID, e.Phase, e.Status, e.Reason)
}

// IsInvalidTransition reports whether err is an InvalidTransitionError.
func IsInvalidTransition(err error) bool {
	var ite *InvalidTransitionError
	return errors.As(err, &ite)
}

// MissingDictamenError reports a lock evaluation attempted before all
// required dictamenes were recorded. This is a caller error, not a lock
// verdict: lock evaluation must be a pure function of complete inputs.
type MissingDictamenError struct {
	Lock     string
	Phase    Phase
	AgentIDs []string
}

func (e *MissingDictamenError) Error() string {
	return fmt.Sprintf("lock %s at %s evaluated without dictamenes from %v", e.Lock, e.Phase, e.AgentIDs)
}
