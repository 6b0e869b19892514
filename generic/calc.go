/*
calc.go - Document total calculation

PURPOSE:
  Computes subtotal, discount, tax, and grand total for a document from
  its line items and document-level adjustments. Pure, deterministic,
  side-effect free: same lines in, same totals out, in any order.

ALGORITHM:
  Per line:
    1. gross = quantity x unit price
    2. apply the line discount (percentage OR fixed), clamped at zero
    3. round the post-discount amount at the currency's smallest unit
    4. tax = round(post-discount x tax rate)
    5. line total = rounded net + rounded tax
  Document:
    6. subtotal       = sum of rounded post-discount, pre-tax amounts
    7. discountAmount = document discount applied to the subtotal
    8. taxAmount      = sum of the per-line tax amounts (NOT re-derived
       from the post-discount base, so per-line exemptions survive a
       document-level discount)
    9. grandTotal     = subtotal - discountAmount + taxAmount
   10. baseCurrencyTotal = grandTotal x exchange rate (single multiply at
       the end - converting per line would compound rounding error)

ROUNDING:
  One declared rule for the whole document: half-up at the smallest
  currency unit, applied once per line for the net and once for the tax.
  Nothing is ever re-rounded.

EDGE CASES:
  - Quantity zero: allowed, produces a zero line (still counted for audit)
  - Negative quantity or price: rejected with InvalidLineItemError
  - Discount below zero: clamped, and the line is flagged in the result
  - Mixed currencies across lines: CurrencyMismatchError

SEE ALSO:
  - money.go: Money and the rounding rule
  - machine.go: guards that re-run this calculation before posting
*/
package generic

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// ROUNDING POLICY
// =============================================================================

// RoundingPolicy names the rounding rule applied across a document.
// Only half-up at the currency minor unit is currently defined; the type
// exists so the rule travels with the calculation instead of being an
// implicit global.
type RoundingPolicy string

const (
	// HalfUpAtMinorUnit rounds .5 up at the currency's smallest unit.
	HalfUpAtMinorUnit RoundingPolicy = "half_up_minor_unit"
)

// =============================================================================
// INPUT / OUTPUT
// =============================================================================

// DocumentAdjustments are the document-level inputs to the calculation.
type DocumentAdjustments struct {
	Discount     Discount
	Currency     Currency
	ExchangeRate decimal.Decimal
	BaseCurrency Currency
}

// LineCalculation is the computed result for one line.
type LineCalculation struct {
	LineID LineItemID

	Gross Money // quantity x unit price, rounded
	Net   Money // post-discount, pre-tax, rounded
	Tax   Money // per-line tax contribution, rounded
	Total Money // Net + Tax

	// Clamped is true when the discount would have pushed the line below
	// zero and it was held at zero instead.
	Clamped bool
}

// Totals is the full calculation output. Every amount is a Money value;
// floating point never appears here.
type Totals struct {
	Subtotal       Money
	DiscountAmount Money
	TaxAmount      Money
	GrandTotal     Money

	// BaseCurrencyTotal is set only when an exchange rate != 1 applies.
	BaseCurrencyTotal *Money

	Lines []LineCalculation

	// DiscountClamped is true when the document-level discount exceeded
	// the subtotal and was held at the subtotal.
	DiscountClamped bool
}

// =============================================================================
// CALCULATION ENGINE
// =============================================================================

var oneHundred = decimal.NewFromInt(100)

// CalculateDocument computes Totals from line items and document-level
// adjustments under the given rounding policy. It performs no I/O and
// holds no state; totals are invariant under line reordering.
func CalculateDocument(lines []LineItem, adj DocumentAdjustments, policy RoundingPolicy) (Totals, error) {
	currency := adj.Currency

	subtotal := ZeroMoney(currency)
	taxTotal := ZeroMoney(currency)
	lineCalcs := make([]LineCalculation, 0, len(lines))

	for _, li := range lines {
		lc, err := calculateLine(li, currency)
		if err != nil {
			return Totals{}, err
		}
		lineCalcs = append(lineCalcs, lc)

		if subtotal, err = subtotal.Add(lc.Net); err != nil {
			return Totals{}, err
		}
		if taxTotal, err = taxTotal.Add(lc.Tax); err != nil {
			return Totals{}, err
		}
	}

	discountAmount, discountClamped, err := documentDiscount(adj.Discount, subtotal)
	if err != nil {
		return Totals{}, err
	}

	postDiscount, err := subtotal.Sub(discountAmount)
	if err != nil {
		return Totals{}, err
	}

	grand, err := postDiscount.Add(taxTotal)
	if err != nil {
		return Totals{}, err
	}

	totals := Totals{
		Subtotal:        subtotal,
		DiscountAmount:  discountAmount,
		TaxAmount:       taxTotal,
		GrandTotal:      grand,
		Lines:           lineCalcs,
		DiscountClamped: discountClamped,
	}

	// Secondary total in the base currency: one multiply on the final
	// grand total, not a per-line conversion.
	if adj.BaseCurrency != "" && adj.BaseCurrency != currency &&
		!adj.ExchangeRate.IsZero() && !adj.ExchangeRate.Equal(decimal.New(1, 0)) {
		base := grand.Convert(adj.ExchangeRate, adj.BaseCurrency)
		totals.BaseCurrencyTotal = &base
	}

	return totals, nil
}

func calculateLine(li LineItem, currency Currency) (LineCalculation, error) {
	if li.Quantity.IsNegative() {
		return LineCalculation{}, &InvalidLineItemError{
			LineID: li.ID, Field: "quantity", Reason: "must not be negative",
		}
	}
	if li.UnitPrice.IsNegative() {
		return LineCalculation{}, &InvalidLineItemError{
			LineID: li.ID, Field: "unit_price", Reason: "must not be negative",
		}
	}
	if li.TaxRate.IsNegative() {
		return LineCalculation{}, &InvalidLineItemError{
			LineID: li.ID, Field: "tax_rate", Reason: "must not be negative",
		}
	}
	if li.UnitPrice.Currency != currency {
		return LineCalculation{}, &CurrencyMismatchError{
			Left: currency, Right: li.UnitPrice.Currency, Op: "total",
		}
	}

	gross := li.Gross()

	net, clamped, err := applyDiscount(li.Discount, gross)
	if err != nil {
		return LineCalculation{}, err
	}

	netRounded := net.Round()
	tax := netRounded.MulDecimal(li.TaxRate.Div(oneHundred)).Round()

	total, err := netRounded.Add(tax)
	if err != nil {
		return LineCalculation{}, err
	}

	return LineCalculation{
		LineID:  li.ID,
		Gross:   gross.Round(),
		Net:     netRounded,
		Tax:     tax,
		Total:   total,
		Clamped: clamped,
	}, nil
}

// applyDiscount subtracts a percentage or fixed discount from the base,
// clamping at zero. The returned bool reports whether clamping happened.
func applyDiscount(d Discount, base Money) (Money, bool, error) {
	switch d.Kind {
	case DiscountNone, "":
		return base, false, nil

	case DiscountPercentage:
		if d.Percent.IsNegative() {
			return Money{}, false, &InvalidLineItemError{Field: "discount", Reason: "percentage must not be negative"}
		}
		reduced := base.MulDecimal(decimal.New(1, 0).Sub(d.Percent.Div(oneHundred)))
		if reduced.IsNegative() {
			return base.Zero(), true, nil
		}
		return reduced, false, nil

	case DiscountFixed:
		if d.Fixed.IsNegative() {
			return Money{}, false, &InvalidLineItemError{Field: "discount", Reason: "fixed amount must not be negative"}
		}
		reduced, err := base.Sub(d.Fixed)
		if err != nil {
			return Money{}, false, err
		}
		if reduced.IsNegative() {
			return base.Zero(), true, nil
		}
		return reduced, false, nil

	default:
		return Money{}, false, &InvalidLineItemError{Field: "discount", Reason: "unknown discount kind " + string(d.Kind)}
	}
}

func documentDiscount(d Discount, subtotal Money) (Money, bool, error) {
	discounted, clamped, err := applyDiscount(d, subtotal)
	if err != nil {
		return Money{}, false, err
	}
	amount, err := subtotal.Sub(discounted)
	if err != nil {
		return Money{}, false, err
	}
	return amount.Round(), clamped, nil
}

// VerifyBalanced recomputes the totals of a document and, when the
// submitter declared a grand total on the wire, requires the declared
// amount to match the recomputation. Ledger-style documents use this as
// a posting guard; declared totals are checked, never trusted.
func VerifyBalanced(doc *Document, policy RoundingPolicy) error {
	totals, err := CalculateDocument(doc.Lines, doc.Adjustments(), policy)
	if err != nil {
		return err
	}

	if doc.DeclaredTotal == nil {
		return nil
	}
	if doc.DeclaredTotal.Currency != doc.Currency {
		return &CurrencyMismatchError{
			Left: doc.Currency, Right: doc.DeclaredTotal.Currency, Op: "declared total",
		}
	}
	if !doc.DeclaredTotal.Equal(totals.GrandTotal) {
		return &UnbalancedEntryError{
			DocumentID: doc.ID,
			Expected:   totals.GrandTotal,
			Actual:     *doc.DeclaredTotal,
		}
	}
	return nil
}
