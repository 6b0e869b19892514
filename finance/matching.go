/*
matching.go - Bank reconciliation suggestions

PURPOSE:
  Scores candidate payments against a bank transaction and returns
  ranked match suggestions. The matcher ONLY suggests: matching is a
  separate, explicit user-confirmed action, and reconcile is a terminal
  transition available only on matched transactions.

CONFIDENCE MODEL (0-100):
  Amount proximity:  exact Money equality scores highest; a delta
                     within 1% of the transaction amount scores lower;
                     anything further is not a candidate at all.
  Date proximity:    full points on the same day, decaying linearly to
                     zero at the tolerance window.
  Reference match:   a shared reference number adds points; a present
                     but conflicting reference disqualifies.

  Amount comparison uses Money equality and deltas - never float
  comparison.

CANDIDATES ARE EPHEMERAL:
  MatchCandidate values are computed on demand and never persisted.

SEE ALSO:
  - workflows.go: the match/reconcile transitions
  - generic/money.go: AbsDelta used for amount proximity
*/
package finance

import (
	"sort"
	"time"

	"github.com/warp/document-engine/generic"
)

const (
	// Scoring weights. An exact amount plus same-day date plus matching
	// reference caps at 100.
	scoreAmountExact     = 50
	scoreAmountTolerance = 30
	scoreDateMax         = 30
	scoreReference       = 20

	// Amount tolerance as a fraction of the transaction amount.
	amountTolerancePercent = "0.01"

	// Date tolerance in days; beyond this the date contributes nothing.
	dateToleranceDays = 7

	maxConfidence = 100
)

// BankTransactionFacts is the matcher's view of a bank transaction.
type BankTransactionFacts struct {
	ID        generic.DocumentID
	Amount    generic.Money
	Date      time.Time
	Reference string
}

// PaymentCandidate is an open payment the transaction may settle.
type PaymentCandidate struct {
	ID        generic.DocumentID
	Amount    generic.Money
	Date      time.Time
	Reference string
}

// MatchCandidate is a scored pairing between a bank transaction and a
// payment. Ephemeral: computed on demand, never persisted.
type MatchCandidate struct {
	PaymentID   generic.DocumentID
	Confidence  int // 0-100
	AmountDelta generic.Money
	DateDelta   int // days, absolute
	Criteria    []string
}

// SuggestMatches scores the candidates against the transaction and
// returns suggestions sorted by descending confidence. Candidates in a
// different currency, or outside the amount tolerance, are dropped.
func SuggestMatches(txn BankTransactionFacts, candidates []PaymentCandidate) ([]MatchCandidate, error) {
	tolerance := txn.Amount.MulDecimal(generic.MustParseDecimal(amountTolerancePercent))

	var out []MatchCandidate
	for _, c := range candidates {
		if c.Amount.Currency != txn.Amount.Currency {
			continue
		}

		delta, err := txn.Amount.AbsDelta(c.Amount)
		if err != nil {
			return nil, err
		}

		var confidence int
		var criteria []string

		switch {
		case delta.IsZero():
			confidence += scoreAmountExact
			criteria = append(criteria, "amount")
		default:
			within, err := delta.LessThan(tolerance)
			if err != nil {
				return nil, err
			}
			if !within {
				continue // amount difference too large
			}
			confidence += scoreAmountTolerance
			criteria = append(criteria, "amount_near")
		}

		dateDelta := daysBetween(txn.Date, c.Date)
		if dateDelta <= dateToleranceDays {
			confidence += scoreDateMax * (dateToleranceDays - dateDelta) / dateToleranceDays
			if dateDelta == 0 {
				criteria = append(criteria, "date")
			} else {
				criteria = append(criteria, "date_near")
			}
		}

		if txn.Reference != "" && c.Reference != "" {
			if txn.Reference == c.Reference {
				confidence += scoreReference
				criteria = append(criteria, "reference")
			} else {
				// A stated but conflicting reference disqualifies.
				continue
			}
		}

		if confidence > maxConfidence {
			confidence = maxConfidence
		}

		out = append(out, MatchCandidate{
			PaymentID:   c.ID,
			Confidence:  confidence,
			AmountDelta: delta,
			DateDelta:   dateDelta,
			Criteria:    criteria,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		// Equal confidence: smaller amount delta first.
		less, _ := out[i].AmountDelta.LessThan(out[j].AmountDelta)
		return less
	})
	return out, nil
}

func daysBetween(a, b time.Time) int {
	a = a.Truncate(24 * time.Hour)
	b = b.Truncate(24 * time.Hour)
	d := a.Sub(b)
	if d < 0 {
		d = -d
	}
	return int(d.Hours() / 24)
}
