package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fiscalmesh/fiscalmesh/core"
	"github.com/fiscalmesh/fiscalmesh/logging"
	"github.com/fiscalmesh/fiscalmesh/model"
)

// defaultInstructions frames the evaluator's mandate and the strict output
// contract. Agents that cannot comply are treated as abstentions upstream.
const defaultInstructions = `You are a Mexican tax-compliance evaluator reviewing a procurement of services
or intangibles. Assess the transaction for the phase you are given and answer
with a single JSON object, no prose, of the form:

{
  "verdict": "conform" | "conditioned" | "non_conform",
  "scores": {
    "business_purpose": 0-25,
    "materiality": 0-25,
    "proportionality": 0-25,
    "traceability": 0-25
  },
  "rationale": "short justification naming the decisive facts",
  "evidence": ["references to documents or lookups you relied on"]
}`

// wireDictamen is the JSON shape a model must return.
type wireDictamen struct {
	Verdict   string            `json:"verdict"`
	Scores    core.PillarScores `json:"scores"`
	Rationale string            `json:"rationale"`
	Evidence  []string          `json:"evidence"`
}

// ModelAgentOptions configures a ModelAgent.
type ModelAgentOptions struct {
	// Instructions overrides the default evaluator system prompt.
	Instructions string
	// Logger defaults to NoOp.
	Logger logging.Logger
}

// ModelAgent is an LLM-backed evaluator: it renders the transaction snapshot
// into a prompt, requests a single completion and parses the strict-JSON
// dictamen out of the reply. Malformed replies are returned as errors and
// absorbed by the coordinator as abstentions.
type ModelAgent struct {
	desc core.Descriptor
	mdl  model.Model
	opts ModelAgentOptions
}

var _ core.Agent = (*ModelAgent)(nil)

// NewModelAgent builds a model-backed evaluator under the given descriptor.
func NewModelAgent(desc core.Descriptor, mdl model.Model, optFns ...func(o *ModelAgentOptions)) *ModelAgent {
	opts := ModelAgentOptions{
		Instructions: defaultInstructions,
		Logger:       logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &ModelAgent{desc: desc, mdl: mdl, opts: opts}
}

// Descriptor returns the agent's capability descriptor.
func (a *ModelAgent) Descriptor() core.Descriptor { return a.desc }

// Evaluate prompts the model and parses its dictamen.
func (a *ModelAgent) Evaluate(ctx context.Context, txn core.Transaction, phase core.Phase) (core.Dictamen, error) {
	prompt, err := a.buildPrompt(txn, phase)
	if err != nil {
		return core.Dictamen{}, err
	}

	resp, err := a.mdl.Complete(ctx, model.Request{Instructions: a.opts.Instructions, Prompt: prompt})
	if err != nil {
		return core.Dictamen{}, fmt.Errorf("model completion: %w", err)
	}

	wire, err := parseWireDictamen(resp.Text)
	if err != nil {
		return core.Dictamen{}, fmt.Errorf("model reply unusable: %w", err)
	}

	verdict := core.Verdict(wire.Verdict)
	switch verdict {
	case core.VerdictConform, core.VerdictConditioned, core.VerdictNonConform:
	default:
		return core.Dictamen{}, fmt.Errorf("model reply unusable: verdict %q", wire.Verdict)
	}

	scores, clamped := clampScores(wire.Scores)
	if clamped {
		a.opts.Logger.Warn("model sub-scores clamped to pillar range",
			"agent", a.desc.ID, "transaction", txn.ID, "phase", phase.String())
	}

	return core.Dictamen{
		ID:            core.NewID(),
		AgentID:       a.desc.ID,
		TransactionID: txn.ID,
		Phase:         phase,
		Verdict:       verdict,
		Scores:        scores,
		Rationale:     wire.Rationale,
		Evidence:      wire.Evidence,
		Timestamp:     time.Now().UTC(),
	}, nil
}

func (a *ModelAgent) buildPrompt(txn core.Transaction, phase core.Phase) (string, error) {
	snapshot, err := json.MarshalIndent(txn, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal transaction snapshot: %w", err)
	}
	return fmt.Sprintf("Phase under review: %s (%s)\n\nTransaction snapshot:\n%s",
		phase, phaseMandate(phase), snapshot), nil
}

// phaseMandate gives the model a one-line focus per phase.
func phaseMandate(p core.Phase) string {
	switch p {
	case core.PhaseIntake:
		return "completeness of intake data"
	case core.PhaseProfiling:
		return "business-purpose profiling"
	case core.PhaseRiskScreening:
		return "counterparty risk screening"
	case core.PhaseSubstanceReview:
		return "economic substance of the service"
	case core.PhaseContracting:
		return "contractual coverage"
	case core.PhaseFiscalCheckpoint:
		return "fiscal evidentiary compliance"
	case core.PhaseExecution:
		return "execution and delivery reality"
	case core.PhaseTraceabilityReview:
		return "payment and document traceability"
	case core.PhaseFinalApproval:
		return "overall defendibility for final approval"
	default:
		return "archival review"
	}
}

// parseWireDictamen tolerates fenced or prose-wrapped replies by extracting
// the outermost JSON object before unmarshaling.
func parseWireDictamen(text string) (wireDictamen, error) {
	var wire wireDictamen
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return wire, fmt.Errorf("no JSON object in reply")
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), &wire); err != nil {
		return wire, fmt.Errorf("decode dictamen: %w", err)
	}
	return wire, nil
}

func clampScores(s core.PillarScores) (core.PillarScores, bool) {
	clamped := false
	for _, p := range core.Pillars() {
		v := s.Get(p)
		switch {
		case v < 0:
			s = s.Set(p, 0)
			clamped = true
		case v > core.PillarMax:
			s = s.Set(p, core.PillarMax)
			clamped = true
		}
	}
	return s, clamped
}
