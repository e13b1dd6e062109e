// Package lock evaluates the three fixed hard locks ("candados duros") that
// gate transaction progression.
//
// Evaluation is a pure function of its inputs: the engine gathers every
// external fact (blacklist status, artifact presence, the recomputed
// composite) into Inputs before calling Evaluate, so re-evaluating with the
// same inputs always yields the same verdict. Audit reproducibility depends
// on this.
package lock

import (
	"fmt"
	"sort"

	"github.com/fiscalmesh/fiscalmesh/core"
	"github.com/fiscalmesh/fiscalmesh/score"
)

// Fixed lock names. Each lock is bound to exactly one phase; the bindings
// live in configuration with these defaults: counterparty risk at F2,
// fiscal compliance at F5, final approval at F8.
const (
	CounterpartyRisk = "counterparty_risk"
	FiscalCompliance = "fiscal_compliance"
	FinalApproval    = "final_approval"
)

// Names returns the fixed lock set in phase order.
func Names() []string { return []string{CounterpartyRisk, FiscalCompliance, FinalApproval} }

// Inputs carries every external fact a lock predicate may read. The engine
// populates only the fields the lock under evaluation needs.
type Inputs struct {
	// Blacklist is the counterparty verification result (counterparty-risk).
	Blacklist core.BlacklistStatus

	// ArtifactsPresent reports whether contract, proof of delivery and
	// bank-traceable payment are all on file (fiscal-compliance).
	ArtifactsPresent bool

	// Composite is the consolidated score recomputed from the current
	// dictamen set (fiscal-compliance floor, final-approval tier).
	Composite score.Composite

	// ComplianceFloor is the configured minimum for the evidentiary
	// pillars, materiality plus traceability (fiscal-compliance).
	ComplianceFloor int

	// RequiredAgents lists the agents whose dictamenes must be present
	// before a score-reading lock may be evaluated.
	RequiredAgents []string
}

// Evaluation is a lock verdict: the state, whether a failure is terminal for
// the transaction, and a human-readable reason naming the contributing fact.
type Evaluation struct {
	Name     string
	State    core.LockState
	Terminal bool
	Reason   string
}

// Record converts the evaluation to its audit-trail form.
func (e Evaluation) Record() core.LockEvaluation {
	return core.LockEvaluation{Name: e.Name, State: e.State, Terminal: e.Terminal, Reason: e.Reason}
}

// Evaluate applies the named lock predicate to the transaction snapshot,
// dictamen set and gathered inputs. Unknown lock names and score-reading
// locks evaluated with missing required dictamenes return errors; both are
// structural misuse by the caller, not lock verdicts.
func Evaluate(name string, txn core.Transaction, set core.DictamenSet, in Inputs) (Evaluation, error) {
	switch name {
	case CounterpartyRisk:
		return counterpartyRisk(in), nil
	case FiscalCompliance:
		if err := requireDictamenes(name, txn.Phase, set, in.RequiredAgents); err != nil {
			return Evaluation{}, err
		}
		return fiscalCompliance(in), nil
	case FinalApproval:
		if err := requireDictamenes(name, txn.Phase, set, in.RequiredAgents); err != nil {
			return Evaluation{}, err
		}
		return finalApproval(txn, in), nil
	default:
		return Evaluation{}, fmt.Errorf("%w: %q", core.ErrUnknownLock, name)
	}
}

// counterpartyRisk fails permanently when the counterparty sits on the
// definitive non-existent-operations list. A pending flag parks the
// transaction rather than killing it; only a definitive listing is terminal.
func counterpartyRisk(in Inputs) Evaluation {
	ev := Evaluation{Name: CounterpartyRisk}
	switch in.Blacklist {
	case core.BlacklistFlaggedDefinitive:
		ev.State = core.LockFailed
		ev.Terminal = true
		ev.Reason = "counterparty on definitive non-existent-operations list; requires a new due-diligence cycle"
	case core.BlacklistFlaggedPending:
		ev.State = core.LockPending
		ev.Reason = "counterparty flagged pending on non-existent-operations list; awaiting authority resolution"
	default:
		ev.State = core.LockOpen
		ev.Reason = "counterparty clear of non-existent-operations list"
	}
	return ev
}

// fiscalCompliance stays pending until the evidentiary artifacts are on file
// and the evidentiary pillars (materiality + traceability) reach the
// configured floor. Resolvable: additional evidence moves it from pending to
// open without restarting the transaction.
func fiscalCompliance(in Inputs) Evaluation {
	ev := Evaluation{Name: FiscalCompliance}
	evidentiary := in.Composite.Pillars.Materiality + in.Composite.Pillars.Traceability

	switch {
	case !in.ArtifactsPresent:
		ev.State = core.LockPending
		ev.Reason = "missing evidentiary artifacts: contract, proof of delivery and bank-traceable payment are required"
	case evidentiary < in.ComplianceFloor:
		ev.State = core.LockPending
		ev.Reason = fmt.Sprintf("evidentiary pillar score %d below compliance floor %d", evidentiary, in.ComplianceFloor)
	default:
		ev.State = core.LockOpen
		ev.Reason = fmt.Sprintf("artifacts on file and evidentiary pillar score %d meets floor %d", evidentiary, in.ComplianceFloor)
	}
	return ev
}

// finalApproval opens only when no upstream lock ever failed and the tier is
// conforming, or conditioned with a signed remediation plan.
func finalApproval(txn core.Transaction, in Inputs) Evaluation {
	ev := Evaluation{Name: FinalApproval}
	switch {
	case txn.LockEverFailed():
		ev.State = core.LockFailed
		ev.Terminal = true
		ev.Reason = "an upstream hard lock failed; final approval can never open"
	case in.Composite.Tier == core.TierConforming:
		ev.State = core.LockOpen
		ev.Reason = fmt.Sprintf("composite %d is conforming", in.Composite.Total)
	case in.Composite.Tier == core.TierConditioned && txn.RemediationSigned:
		ev.State = core.LockOpen
		ev.Reason = fmt.Sprintf("composite %d is conditioned and remediation plan is signed", in.Composite.Total)
	case in.Composite.Tier == core.TierConditioned:
		ev.State = core.LockPending
		ev.Reason = fmt.Sprintf("composite %d is conditioned; a signed remediation plan is required", in.Composite.Total)
	default:
		ev.State = core.LockFailed
		ev.Reason = fmt.Sprintf("composite %d is non-conforming", in.Composite.Total)
	}
	return ev
}

func requireDictamenes(lockName string, phase core.Phase, set core.DictamenSet, required []string) error {
	var missing []string
	for _, id := range required {
		if _, ok := set.ByAgent(id); !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return &core.MissingDictamenError{Lock: lockName, Phase: phase, AgentIDs: missing}
}
