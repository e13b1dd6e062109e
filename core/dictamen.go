package core

import (
	"time"

	"github.com/google/uuid"
)

// Pillar is one of the four independently scored compliance dimensions.
// Each pillar contributes at most 25 points to the 0-100 composite.
type Pillar string

const (
	PillarBusinessPurpose Pillar = "business_purpose"
	PillarMateriality     Pillar = "materiality"
	PillarProportionality Pillar = "proportionality"
	PillarTraceability    Pillar = "traceability"
)

// Pillars returns the four pillars in canonical order.
func Pillars() []Pillar {
	return []Pillar{PillarBusinessPurpose, PillarMateriality, PillarProportionality, PillarTraceability}
}

// PillarMax is the per-pillar score ceiling.
const PillarMax = 25

// Verdict is an agent's qualitative conclusion for one phase.
type Verdict string

const (
	VerdictConform     Verdict = "conform"
	VerdictConditioned Verdict = "conditioned"
	VerdictNonConform  Verdict = "non_conform"
	// VerdictAbstain is recorded for agents that time out or fail; an
	// abstain contributes no pillar scores.
	VerdictAbstain Verdict = "abstain"
)

// PillarScores carries one sub-score per pillar. A flat struct (no map) so
// JSON marshaling has a deterministic field order, which the hash-chained
// journal depends on.
type PillarScores struct {
	BusinessPurpose int `json:"business_purpose"`
	Materiality     int `json:"materiality"`
	Proportionality int `json:"proportionality"`
	Traceability    int `json:"traceability"`
}

// Get returns the sub-score for a pillar.
func (s PillarScores) Get(p Pillar) int {
	switch p {
	case PillarBusinessPurpose:
		return s.BusinessPurpose
	case PillarMateriality:
		return s.Materiality
	case PillarProportionality:
		return s.Proportionality
	case PillarTraceability:
		return s.Traceability
	}
	return 0
}

// Set assigns the sub-score for a pillar, returning the updated value.
func (s PillarScores) Set(p Pillar, v int) PillarScores {
	switch p {
	case PillarBusinessPurpose:
		s.BusinessPurpose = v
	case PillarMateriality:
		s.Materiality = v
	case PillarProportionality:
		s.Proportionality = v
	case PillarTraceability:
		s.Traceability = v
	}
	return s
}

// Total sums the four sub-scores without clamping.
func (s PillarScores) Total() int {
	return s.BusinessPurpose + s.Materiality + s.Proportionality + s.Traceability
}

// Dictamen is a single agent's structured opinion for one transaction at one
// phase. It is immutable once recorded: a re-evaluation appends a new
// dictamen, it never edits an old one. Dictamenes are owned by the
// Deliberation Session Store and referenced (never copied into derived
// state) by the Scoring Consolidator.
type Dictamen struct {
	ID            string        `json:"id"`
	AgentID       string        `json:"agent_id"`
	TransactionID string        `json:"transaction_id"`
	Phase         Phase         `json:"phase"`
	Verdict       Verdict       `json:"verdict"`
	Scores        PillarScores  `json:"scores"`
	Rationale     string        `json:"rationale"`
	Evidence      []string      `json:"evidence,omitempty"`
	FailureReason string        `json:"failure_reason,omitempty"`
	Timestamp     time.Time     `json:"timestamp"`
	Latency       time.Duration `json:"latency"`
}

// NewAbstainDictamen builds the locally recovered form of an agent failure:
// verdict abstain, zero contribution, failure reason preserved for the audit
// trail. The coordinator uses this for timeouts and invocation errors so a
// single agent's transient failure never crashes a phase evaluation.
func NewAbstainDictamen(agentID, transactionID string, phase Phase, reason string) Dictamen {
	return Dictamen{
		ID:            NewID(),
		AgentID:       agentID,
		TransactionID: transactionID,
		Phase:         phase,
		Verdict:       VerdictAbstain,
		Rationale:     "no response recorded",
		FailureReason: reason,
		Timestamp:     time.Now().UTC(),
	}
}

// Abstained reports whether this dictamen carries no scoring opinion.
func (d Dictamen) Abstained() bool { return d.Verdict == VerdictAbstain }

// Contribution is the additive 0-100 score this dictamen would contribute on
// its own: zero for abstentions, otherwise the (unclamped) pillar total.
func (d Dictamen) Contribution() int {
	if d.Abstained() {
		return 0
	}
	return d.Scores.Total()
}

// DictamenSet is the ordered collection of dictamenes gathered for one
// transaction at one phase. Order follows agent registration order, keeping
// downstream consolidation and persistence deterministic.
type DictamenSet []Dictamen

// ByAgent returns the dictamen emitted by the given agent, if present.
func (s DictamenSet) ByAgent(agentID string) (Dictamen, bool) {
	for _, d := range s {
		if d.AgentID == agentID {
			return d, true
		}
	}
	return Dictamen{}, false
}

// Abstentions returns the subset of dictamenes with verdict abstain.
func (s DictamenSet) Abstentions() DictamenSet {
	var out DictamenSet
	for _, d := range s {
		if d.Abstained() {
			out = append(out, d)
		}
	}
	return out
}

// LatestPerAgent reduces the set to each agent's most recent dictamen,
// preserving the order in which agents first appear. A re-evaluation
// supersedes the agent's earlier opinion for consolidation and disagreement
// checks; the full history stays in the deliberation records.
func (s DictamenSet) LatestPerAgent() DictamenSet {
	idx := make(map[string]int, len(s))
	var out DictamenSet
	for _, d := range s {
		if i, ok := idx[d.AgentID]; ok {
			out[i] = d
			continue
		}
		idx[d.AgentID] = len(out)
		out = append(out, d)
	}
	return out
}

// Scoring returns the subset of dictamenes that carry pillar scores.
func (s DictamenSet) Scoring() DictamenSet {
	var out DictamenSet
	for _, d := range s {
		if !d.Abstained() {
			out = append(out, d)
		}
	}
	return out
}

// NewID generates a unique identifier for transactions, dictamenes and
// deliberation records.
func NewID() string { return uuid.NewString() }
