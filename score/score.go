// Package score consolidates per-pillar agent sub-scores into the 0-100
// composite defendibility score and its qualitative tier.
//
// Consolidation is conservative by construction: when multiple agents score
// the same pillar, the minimum governs, so an optimistic agent can never mask
// a pessimistic one. The composite is never persisted as ground truth; it is
// always recomputed from the dictamen set, so a corrected dictamen propagates
// deterministically.
package score

import (
	"fmt"

	"github.com/fiscalmesh/fiscalmesh/core"
)

// Tier thresholds for the composite score.
const (
	ConformingFloor  = 85
	ConditionedFloor = 60
)

// Weights multiply each consolidated pillar score before summation. The
// default deployment keeps all weights at 1.0 (additive 4x25); weights are
// configuration so a deployment can de-emphasize a pillar without code
// changes.
type Weights struct {
	BusinessPurpose float64 `yaml:"business_purpose" json:"business_purpose"`
	Materiality     float64 `yaml:"materiality" json:"materiality"`
	Proportionality float64 `yaml:"proportionality" json:"proportionality"`
	Traceability    float64 `yaml:"traceability" json:"traceability"`
}

// DefaultWeights returns the canonical unit weights.
func DefaultWeights() Weights {
	return Weights{BusinessPurpose: 1, Materiality: 1, Proportionality: 1, Traceability: 1}
}

func (w Weights) get(p core.Pillar) float64 {
	switch p {
	case core.PillarBusinessPurpose:
		return w.BusinessPurpose
	case core.PillarMateriality:
		return w.Materiality
	case core.PillarProportionality:
		return w.Proportionality
	case core.PillarTraceability:
		return w.Traceability
	}
	return 0
}

// Composite is the derived score: the consolidated per-pillar minima, the
// weighted 0-100 total and the mapped tier. Warnings carry data-quality
// notes (out-of-range sub-scores that were clamped); they never abort
// consolidation.
type Composite struct {
	Total    int               `json:"total"`
	Tier     core.Tier         `json:"tier"`
	Pillars  core.PillarScores `json:"pillars"`
	Warnings []string          `json:"warnings,omitempty"`
}

// Snapshot converts the composite to its audit-trail form.
func (c Composite) Snapshot() core.ScoreSnapshot {
	return core.ScoreSnapshot{Composite: c.Total, Tier: c.Tier, Pillars: c.Pillars, Warnings: c.Warnings}
}

// Consolidate combines a dictamen set into a Composite. Pure and
// deterministic: identical input always yields an identical result.
//
// Per pillar the governing sub-score is the minimum across scoring (non
// abstain) dictamenes, clamped to [0, PillarMax]. Abstentions report no
// scores; a pillar with no scoring dictamen consolidates to zero, which is
// how a timed-out required agent lowers the composite.
func Consolidate(set core.DictamenSet, weights Weights) Composite {
	var c Composite
	scoring := set.Scoring()

	for _, pillar := range core.Pillars() {
		governing := 0
		for i, d := range scoring {
			v := d.Scores.Get(pillar)
			if v < 0 || v > core.PillarMax {
				c.Warnings = append(c.Warnings, fmt.Sprintf(
					"agent %s reported %s=%d outside [0,%d]; clamped", d.AgentID, pillar, v, core.PillarMax))
				v = clamp(v, 0, core.PillarMax)
			}
			if i == 0 || v < governing {
				governing = v
			}
		}
		c.Pillars = c.Pillars.Set(pillar, governing)
	}

	total := 0.0
	for _, pillar := range core.Pillars() {
		total += weights.get(pillar) * float64(c.Pillars.Get(pillar))
	}
	c.Total = clamp(int(total+0.5), 0, 100)
	c.Tier = TierFor(c.Total)
	return c
}

// TierFor maps a composite total to its qualitative band.
func TierFor(total int) core.Tier {
	switch {
	case total >= ConformingFloor:
		return core.TierConforming
	case total >= ConditionedFloor:
		return core.TierConditioned
	default:
		return core.TierNonConforming
	}
}

// Spread returns the gap between the highest and lowest sub-score reported
// for a pillar by scoring dictamenes. Zero when fewer than two agents score
// the pillar. The state machine compares Spread against the configured
// disagreement tolerance and prefers escalation over silent averaging.
func Spread(set core.DictamenSet, pillar core.Pillar) int {
	scoring := set.Scoring()
	if len(scoring) < 2 {
		return 0
	}
	lo, hi := 0, 0
	for i, d := range scoring {
		v := clamp(d.Scores.Get(pillar), 0, core.PillarMax)
		if i == 0 {
			lo, hi = v, v
			continue
		}
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return hi - lo
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
