// Package testutil provides fluent builders for transactions and dictamenes
// used across package tests.
package testutil

import (
	"time"

	"github.com/fiscalmesh/fiscalmesh/core"
)

// TransactionBuilder assembles test transactions with sane defaults.
type TransactionBuilder struct {
	txn core.Transaction
}

// NewTransaction starts a builder for a typical services procurement.
func NewTransaction() *TransactionBuilder {
	return &TransactionBuilder{txn: core.NewTransaction(
		"Grupo Industrial Norte SA", "Servicios Corporativos del Valle SC",
		"SCV910523AB1", 250000, "MXN", "consulting",
	)}
}

func (b *TransactionBuilder) WithID(id string) *TransactionBuilder {
	b.txn.ID = id
	return b
}

func (b *TransactionBuilder) WithCounterpartyTaxID(taxID string) *TransactionBuilder {
	b.txn.CounterpartyTaxID = taxID
	return b
}

func (b *TransactionBuilder) AtPhase(p core.Phase) *TransactionBuilder {
	b.txn.Phase = p
	return b
}

func (b *TransactionBuilder) WithStatus(s core.Status) *TransactionBuilder {
	b.txn.Status = s
	return b
}

func (b *TransactionBuilder) WithLock(name string, st core.LockState) *TransactionBuilder {
	b.txn.Locks[name] = st
	return b
}

func (b *TransactionBuilder) WithRemediationSigned() *TransactionBuilder {
	b.txn.RemediationSigned = true
	return b
}

// Build returns the assembled transaction.
func (b *TransactionBuilder) Build() core.Transaction { return b.txn.Clone() }

// DictamenBuilder assembles test dictamenes.
type DictamenBuilder struct {
	d core.Dictamen
}

// NewDictamen starts a builder for a conforming dictamen from agentID.
func NewDictamen(agentID string) *DictamenBuilder {
	return &DictamenBuilder{d: core.Dictamen{
		ID:        core.NewID(),
		AgentID:   agentID,
		Verdict:   core.VerdictConform,
		Timestamp: time.Now().UTC(),
	}}
}

func (b *DictamenBuilder) ForTransaction(id string) *DictamenBuilder {
	b.d.TransactionID = id
	return b
}

func (b *DictamenBuilder) AtPhase(p core.Phase) *DictamenBuilder {
	b.d.Phase = p
	return b
}

func (b *DictamenBuilder) WithVerdict(v core.Verdict) *DictamenBuilder {
	b.d.Verdict = v
	return b
}

// WithUniformScores sets every pillar to the same score.
func (b *DictamenBuilder) WithUniformScores(v int) *DictamenBuilder {
	for _, p := range core.Pillars() {
		b.d.Scores = b.d.Scores.Set(p, v)
	}
	return b
}

func (b *DictamenBuilder) WithScore(p core.Pillar, v int) *DictamenBuilder {
	b.d.Scores = b.d.Scores.Set(p, v)
	return b
}

func (b *DictamenBuilder) WithRationale(r string) *DictamenBuilder {
	b.d.Rationale = r
	return b
}

// Build returns the assembled dictamen.
func (b *DictamenBuilder) Build() core.Dictamen { return b.d }
