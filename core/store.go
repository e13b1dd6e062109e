package core

// DeliberationStore persists transactions and their append-only audit trail.
//
// Contract:
//   - Records are append-only; the store assigns each record a per-transaction
//     logical sequence number that is strictly increasing.
//   - Get and List return clones; callers never observe or mutate live state.
//   - Update replaces the stored transaction snapshot. Only the Phase State
//     Machine calls Update, and it serializes same-transaction writes, so the
//     store needs to be safe for concurrent writers only across different
//     transactions.
//   - Transactions are never deleted; superseded ones are closed, not purged.
type DeliberationStore interface {
	// Create persists a new transaction. Fails if the ID already exists.
	Create(txn Transaction) error

	// Get returns a clone of the stored transaction.
	Get(id string) (Transaction, error)

	// Update replaces the stored transaction snapshot.
	Update(txn Transaction) error

	// List returns clones of every stored transaction.
	List() ([]Transaction, error)

	// Append adds a record to the transaction's audit trail, assigning Seq,
	// and returns the sequenced record.
	Append(rec DeliberationRecord) (DeliberationRecord, error)

	// Records returns the full audit trail in sequence order.
	Records(transactionID string) ([]DeliberationRecord, error)

	// Dictamenes returns, in sequence order, the dictamenes recorded for
	// the transaction at the given phase.
	Dictamenes(transactionID string, phase Phase) (DictamenSet, error)
}
