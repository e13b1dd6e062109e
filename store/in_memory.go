// Package store houses concrete implementations of core.DeliberationStore.
// Keeping only implementations here prevents higher-level packages (engine,
// dispatch) from depending on concrete storage; the wiring layer decides
// which backend to instantiate.
package store

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/fiscalmesh/fiscalmesh/core"
)

// deliberation bundles a transaction with its append-only record history and
// the per-transaction sequence counter.
type deliberation struct {
	txn     core.Transaction
	records []core.DeliberationRecord
	seq     uint64
}

// InMemory is a volatile DeliberationStore keeping deliberations in a
// process-local map. Safe for concurrent access across transactions; every
// read returns clones so callers never observe live state. Best suited for
// tests, demos and single-process deployments.
type InMemory struct {
	mu    sync.RWMutex
	items map[string]*deliberation
}

var _ core.DeliberationStore = (*InMemory)(nil)

// NewInMemory constructs an empty in-memory deliberation store.
func NewInMemory() *InMemory {
	return &InMemory{items: make(map[string]*deliberation)}
}

// Create persists a new transaction.
func (s *InMemory) Create(txn core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.items[txn.ID]; exists {
		return fmt.Errorf("%w: %s", core.ErrDuplicateTransaction, txn.ID)
	}
	s.items[txn.ID] = &deliberation{txn: txn.Clone()}
	return nil
}

// Get returns a clone of the stored transaction.
func (s *InMemory) Get(id string) (core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.items[id]
	if !ok {
		return core.Transaction{}, fmt.Errorf("%w: %s", core.ErrUnknownTransaction, id)
	}
	return d.txn.Clone(), nil
}

// Update replaces the stored transaction snapshot.
func (s *InMemory) Update(txn core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.items[txn.ID]
	if !ok {
		return fmt.Errorf("%w: %s", core.ErrUnknownTransaction, txn.ID)
	}
	txn.Updated = time.Now().UTC()
	d.txn = txn.Clone()
	return nil
}

// List returns clones of every stored transaction, ordered by creation time
// for stable iteration.
func (s *InMemory) List() ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Transaction, 0, len(s.items))
	for _, d := range s.items {
		out = append(out, d.txn.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Created.Equal(out[j].Created) {
			return out[i].ID < out[j].ID
		}
		return out[i].Created.Before(out[j].Created)
	})
	return out, nil
}

// Append adds a record to the transaction's audit trail, assigning the next
// logical sequence number.
func (s *InMemory) Append(rec core.DeliberationRecord) (core.DeliberationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.items[rec.TransactionID]
	if !ok {
		return core.DeliberationRecord{}, fmt.Errorf("%w: %s", core.ErrUnknownTransaction, rec.TransactionID)
	}
	d.seq++
	rec.Seq = d.seq
	if rec.ID == "" {
		rec.ID = core.NewID()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	d.records = append(d.records, rec)
	return rec, nil
}

// Records returns the full audit trail in sequence order.
func (s *InMemory) Records(transactionID string) ([]core.DeliberationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.items[transactionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrUnknownTransaction, transactionID)
	}
	out := make([]core.DeliberationRecord, len(d.records))
	copy(out, d.records)
	return out, nil
}

// Dictamenes returns the dictamenes recorded for the transaction at the
// given phase, in sequence order.
func (s *InMemory) Dictamenes(transactionID string, phase core.Phase) (core.DictamenSet, error) {
	records, err := s.Records(transactionID)
	if err != nil {
		return nil, err
	}
	var set core.DictamenSet
	for _, rec := range records {
		if rec.Kind == core.RecordDictamen && rec.Dictamen != nil && rec.Dictamen.Phase == phase {
			set = append(set, *rec.Dictamen)
		}
	}
	return set, nil
}
