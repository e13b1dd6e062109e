// Package config holds the deployment-fixed policy parameters of the
// deliberation engine: phase admission thresholds, pillar weights, the
// agent disagreement tolerance, dispatch timeouts, the stale-parked window
// and the lock-to-phase bindings. Defaults are embedded; a YAML file can
// override any field.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/fiscalmesh/fiscalmesh/core"
	"github.com/fiscalmesh/fiscalmesh/lock"
	"github.com/fiscalmesh/fiscalmesh/score"
)

// Config is the immutable engine configuration, loaded once at process
// start and passed by injection. It is never mutated at runtime.
type Config struct {
	// DefaultThreshold is the minimum composite score a transaction must
	// reach to be admitted into the next phase, unless overridden per
	// phase in Thresholds.
	DefaultThreshold int `yaml:"default_threshold"`

	// Thresholds overrides the admission threshold for specific phases,
	// keyed by canonical phase identifier ("F0".."F8").
	Thresholds map[string]int `yaml:"thresholds"`

	// Weights are the pillar weights used by the scoring consolidator.
	Weights score.Weights `yaml:"weights"`

	// DisagreementTolerance is the maximum spread, in points on a single
	// pillar, tolerated between agents before the state machine escalates
	// instead of consolidating.
	DisagreementTolerance int `yaml:"disagreement_tolerance"`

	// ComplianceFloor is the fiscal-compliance lock's minimum for the
	// evidentiary pillars (materiality + traceability, of 50).
	ComplianceFloor int `yaml:"compliance_floor"`

	// AgentTimeout bounds a single agent invocation.
	AgentTimeout time.Duration `yaml:"agent_timeout"`

	// PhaseTimeout bounds total fan-in latency for one dispatch,
	// regardless of how many agents are still pending.
	PhaseTimeout time.Duration `yaml:"phase_timeout"`

	// StaleWindow is how long a parked transaction may sit inactive
	// before it is flagged for human attention. Parked is not failure:
	// staleness never auto-escalates.
	StaleWindow time.Duration `yaml:"stale_window"`

	// LockBindings maps lock name to the canonical identifier of its
	// owning phase.
	LockBindings map[string]string `yaml:"lock_bindings"`
}

// Default returns the canonical deployment configuration.
func Default() Config {
	return Config{
		DefaultThreshold:      score.ConditionedFloor,
		Thresholds:            map[string]int{},
		Weights:               score.DefaultWeights(),
		DisagreementTolerance: 10,
		ComplianceFloor:       30,
		AgentTimeout:          90 * time.Second,
		PhaseTimeout:          5 * time.Minute,
		StaleWindow:           72 * time.Hour,
		LockBindings: map[string]string{
			lock.CounterpartyRisk: core.PhaseRiskScreening.String(),
			lock.FiscalCompliance: core.PhaseFiscalCheckpoint.String(),
			lock.FinalApproval:    core.PhaseFinalApproval.String(),
		},
	}
}

// Load reads a YAML file and overlays it on Default.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks internal consistency of the configuration.
func (c Config) Validate() error {
	if c.DefaultThreshold < 0 || c.DefaultThreshold > 100 {
		return fmt.Errorf("config: default_threshold %d outside [0,100]", c.DefaultThreshold)
	}
	for phase, threshold := range c.Thresholds {
		if _, err := core.ParsePhase(phase); err != nil {
			return fmt.Errorf("config: thresholds: %w", err)
		}
		if threshold < 0 || threshold > 100 {
			return fmt.Errorf("config: threshold for %s outside [0,100]", phase)
		}
	}
	if c.ComplianceFloor < 0 || c.ComplianceFloor > 2*core.PillarMax {
		return fmt.Errorf("config: compliance_floor %d outside [0,%d]", c.ComplianceFloor, 2*core.PillarMax)
	}
	if c.DisagreementTolerance < 0 || c.DisagreementTolerance > core.PillarMax {
		return fmt.Errorf("config: disagreement_tolerance %d outside [0,%d]", c.DisagreementTolerance, core.PillarMax)
	}
	bound := make(map[string]string, len(c.LockBindings))
	for name, phase := range c.LockBindings {
		if !knownLock(name) {
			return fmt.Errorf("config: unknown lock %q in lock_bindings", name)
		}
		if _, err := core.ParsePhase(phase); err != nil {
			return fmt.Errorf("config: lock binding %s: %w", name, err)
		}
		if other, dup := bound[phase]; dup {
			return fmt.Errorf("config: locks %s and %s both bound to phase %s", other, name, phase)
		}
		bound[phase] = name
	}
	return nil
}

func knownLock(name string) bool {
	for _, n := range lock.Names() {
		if n == name {
			return true
		}
	}
	return false
}

// Threshold returns the admission threshold for a phase.
func (c Config) Threshold(p core.Phase) int {
	if t, ok := c.Thresholds[p.String()]; ok {
		return t
	}
	return c.DefaultThreshold
}

// LockFor returns the lock bound to a phase, if any.
func (c Config) LockFor(p core.Phase) (string, bool) {
	for name, phase := range c.LockBindings {
		if phase == p.String() {
			return name, true
		}
	}
	return "", false
}
