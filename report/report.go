// Package report renders human-readable dossiers from a transaction's
// deliberation trail. It is strictly a downstream consumer of the store and
// never participates in gating logic.
package report

import (
	"fmt"
	"strings"

	"github.com/fiscalmesh/fiscalmesh/core"
)

// Dossier renders the complete audit trail of a closed transaction as a
// plain-text dossier suitable for attaching to a defense file. Only terminal
// transactions have dossiers; an open deliberation is not defensible yet.
func Dossier(s core.DeliberationStore, transactionID string) (string, error) {
	txn, err := s.Get(transactionID)
	if err != nil {
		return "", err
	}
	if !txn.Status.Terminal() {
		return "", fmt.Errorf("report: transaction %s is %s; dossiers cover closed transactions only", txn.ID, txn.Status)
	}
	records, err := s.Records(transactionID)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "DELIBERATION DOSSIER\n")
	fmt.Fprintf(&b, "Transaction: %s\n", txn.ID)
	fmt.Fprintf(&b, "Requestor:   %s\n", txn.Requestor)
	fmt.Fprintf(&b, "Counterparty: %s (%s)\n", txn.Counterparty, txn.CounterpartyTaxID)
	fmt.Fprintf(&b, "Amount:      %.2f %s (%s)\n", txn.Amount, txn.Currency, txn.ServiceClass)
	fmt.Fprintf(&b, "Disposition: %s at %s, composite %d (%s)\n\n", txn.Status, txn.Phase, txn.Score, txn.Tier)

	for _, rec := range records {
		fmt.Fprintf(&b, "[%04d] %s %s %s", rec.Seq, rec.Timestamp.Format("2006-01-02 15:04:05"), rec.Phase, rec.Kind)
		if rec.Actor != core.EngineActor {
			fmt.Fprintf(&b, " by %s", rec.Actor)
		}
		b.WriteString("\n")
		writeDetail(&b, rec)
	}
	return b.String(), nil
}

func writeDetail(b *strings.Builder, rec core.DeliberationRecord) {
	switch {
	case rec.Dictamen != nil:
		d := rec.Dictamen
		fmt.Fprintf(b, "       verdict=%s scores=%d/%d/%d/%d", d.Verdict,
			d.Scores.BusinessPurpose, d.Scores.Materiality, d.Scores.Proportionality, d.Scores.Traceability)
		if d.FailureReason != "" {
			fmt.Fprintf(b, " failure=%q", d.FailureReason)
		}
		b.WriteString("\n")
		if d.Rationale != "" {
			fmt.Fprintf(b, "       rationale: %s\n", d.Rationale)
		}
	case rec.Lock != nil:
		fmt.Fprintf(b, "       lock %s -> %s", rec.Lock.Name, rec.Lock.State)
		if rec.Lock.Terminal {
			b.WriteString(" (terminal)")
		}
		fmt.Fprintf(b, ": %s\n", rec.Lock.Reason)
	case rec.Score != nil:
		fmt.Fprintf(b, "       composite=%d tier=%s pillars=%d/%d/%d/%d\n",
			rec.Score.Composite, rec.Score.Tier,
			rec.Score.Pillars.BusinessPurpose, rec.Score.Pillars.Materiality,
			rec.Score.Pillars.Proportionality, rec.Score.Pillars.Traceability)
	case rec.Escalation != nil:
		fmt.Fprintf(b, "       trigger=%s suggested=%s\n", rec.Escalation.Trigger, rec.Escalation.Suggested)
		fmt.Fprintf(b, "       %s\n", rec.Escalation.Reason)
	case rec.Resolution != nil:
		fmt.Fprintf(b, "       %s by %s: %s\n", rec.Resolution.Kind, rec.Resolution.Actor, rec.Resolution.Rationale)
	default:
		if rec.Reason != "" {
			fmt.Fprintf(b, "       %s\n", rec.Reason)
		}
	}
}
