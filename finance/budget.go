/*
budget.go - Budget monthly distribution

PURPOSE:
  Splits an approved budget amount across the months of its year. The
  split rides on Money.Allocate, so the monthly amounts always sum back
  to the budget exactly.

REMAINDER POLICY:
  One documented policy, everywhere: the remainder of an uneven split
  lands in the LAST month of the distribution (December for a calendar
  year). Call sites never decide this themselves.

SEE ALSO:
  - generic/money.go: Allocate and its tie-break
*/
package finance

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/document-engine/generic"
)

// MonthlyAmount is one month's share of a budget line.
type MonthlyAmount struct {
	Month  time.Month
	Amount generic.Money
}

// DistributeMonthly splits a total evenly across the twelve months of a
// calendar year. The remainder goes to December.
func DistributeMonthly(total generic.Money) ([]MonthlyAmount, error) {
	weights := make([]decimal.Decimal, 12)
	for i := range weights {
		weights[i] = decimal.New(1, 0)
	}
	return DistributeWeighted(total, weights)
}

// DistributeWeighted splits a total across the twelve months with
// per-month weights (seasonal budgets). Weights must be non-negative
// and sum to a positive value; the remainder goes to the last month,
// December for a full year.
func DistributeWeighted(total generic.Money, weights []decimal.Decimal) ([]MonthlyAmount, error) {
	buckets, err := total.Allocate(weights)
	if err != nil {
		return nil, err
	}

	out := make([]MonthlyAmount, len(buckets))
	for i, b := range buckets {
		out[i] = MonthlyAmount{Month: time.Month(i + 1), Amount: b}
	}
	return out, nil
}

// BudgetDistribution computes the monthly spread for every line of a
// budget document.
func BudgetDistribution(budget *generic.Document) (map[generic.LineItemID][]MonthlyAmount, error) {
	totals, err := generic.CalculateDocument(budget.Lines, budget.Adjustments(), generic.HalfUpAtMinorUnit)
	if err != nil {
		return nil, err
	}

	out := make(map[generic.LineItemID][]MonthlyAmount, len(totals.Lines))
	for _, lc := range totals.Lines {
		monthly, err := DistributeMonthly(lc.Total)
		if err != nil {
			return nil, err
		}
		out[lc.LineID] = monthly
	}
	return out, nil
}
