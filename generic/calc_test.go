package generic_test

import (
	"errors"
	"testing"

	"github.com/warp/document-engine/generic"
)

// =============================================================================
// TEST FIXTURES
// =============================================================================

func idrAdjustments() generic.DocumentAdjustments {
	return generic.DocumentAdjustments{
		Discount: generic.NoDiscount(),
		Currency: generic.CurrencyIDR,
	}
}

func line(id, qty, price, taxRate string) generic.LineItem {
	return generic.LineItem{
		ID:        generic.LineItemID(id),
		Quantity:  dec(qty),
		UnitPrice: idr(price),
		Discount:  generic.NoDiscount(),
		TaxRate:   dec(taxRate),
	}
}

// =============================================================================
// DOCUMENT TOTALS
// =============================================================================

func TestCalculate_MixedDiscountAndTax(t *testing.T) {
	// GIVEN: Two IDR lines, 11% tax:
	//   line 1: 20 x 10000 with a fixed 20000 discount -> net 180000
	//   line 2:  5 x 10000                             -> net  50000
	// WHEN: Calculating the document
	// THEN: Subtotal 230000, tax 19800 + 5500 = 25300, grand total 255300

	l1 := line("l1", "20", "10000", "11")
	l1.Discount = generic.FixedDiscount(idr("20000"))
	l2 := line("l2", "5", "10000", "11")

	totals, err := generic.CalculateDocument([]generic.LineItem{l1, l2}, idrAdjustments(), generic.HalfUpAtMinorUnit)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !totals.Subtotal.Equal(idr("230000")) {
		t.Errorf("subtotal = %s, want 230000", totals.Subtotal.Value)
	}
	if !totals.TaxAmount.Equal(idr("25300")) {
		t.Errorf("tax = %s, want 25300", totals.TaxAmount.Value)
	}
	if !totals.GrandTotal.Equal(idr("255300")) {
		t.Errorf("grand total = %s, want 255300", totals.GrandTotal.Value)
	}

	if !totals.Lines[0].Tax.Equal(idr("19800")) {
		t.Errorf("line 1 tax = %s, want 19800", totals.Lines[0].Tax.Value)
	}
	if !totals.Lines[1].Tax.Equal(idr("5500")) {
		t.Errorf("line 2 tax = %s, want 5500", totals.Lines[1].Tax.Value)
	}
}

func TestCalculate_OrderIndependent(t *testing.T) {
	// Totals must be invariant under line reordering.
	l1 := line("l1", "20", "10000", "11")
	l1.Discount = generic.FixedDiscount(idr("20000"))
	l2 := line("l2", "5", "10000", "11")

	forward, err := generic.CalculateDocument([]generic.LineItem{l1, l2}, idrAdjustments(), generic.HalfUpAtMinorUnit)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	backward, err := generic.CalculateDocument([]generic.LineItem{l2, l1}, idrAdjustments(), generic.HalfUpAtMinorUnit)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !forward.GrandTotal.Equal(backward.GrandTotal) {
		t.Errorf("grand total differs by order: %s vs %s", forward.GrandTotal.Value, backward.GrandTotal.Value)
	}
	if !forward.TaxAmount.Equal(backward.TaxAmount) {
		t.Errorf("tax differs by order: %s vs %s", forward.TaxAmount.Value, backward.TaxAmount.Value)
	}
}

func TestCalculate_PercentageDiscount(t *testing.T) {
	// 10 x 100.00 USD with 25% line discount, no tax -> net 750.00
	l := generic.LineItem{
		ID: "l1", Quantity: dec("10"), UnitPrice: usd("100.00"),
		Discount: generic.PercentDiscount(dec("25")),
	}
	adj := generic.DocumentAdjustments{Discount: generic.NoDiscount(), Currency: generic.CurrencyUSD}

	totals, err := generic.CalculateDocument([]generic.LineItem{l}, adj, generic.HalfUpAtMinorUnit)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !totals.Subtotal.Value.Equal(dec("750")) {
		t.Errorf("subtotal = %s, want 750", totals.Subtotal.Value)
	}
}

func TestCalculate_DiscountClampedAtZero(t *testing.T) {
	// GIVEN: A line worth 50000 with a fixed discount of 80000
	// WHEN: Calculating
	// THEN: The line is held at zero and flagged, never negative

	l := line("l1", "5", "10000", "0")
	l.Discount = generic.FixedDiscount(idr("80000"))

	totals, err := generic.CalculateDocument([]generic.LineItem{l}, idrAdjustments(), generic.HalfUpAtMinorUnit)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !totals.Lines[0].Net.IsZero() {
		t.Errorf("net should be clamped to zero, got %s", totals.Lines[0].Net.Value)
	}
	if !totals.Lines[0].Clamped {
		t.Error("clamped flag should be set")
	}
	if totals.GrandTotal.IsNegative() {
		t.Errorf("grand total must not go negative, got %s", totals.GrandTotal.Value)
	}
}

func TestCalculate_DocumentLevelDiscount(t *testing.T) {
	// Subtotal 230000 with a 10% document discount and no tax:
	// discount 23000, grand total 207000.
	l := line("l1", "23", "10000", "0")
	adj := idrAdjustments()
	adj.Discount = generic.PercentDiscount(dec("10"))

	totals, err := generic.CalculateDocument([]generic.LineItem{l}, adj, generic.HalfUpAtMinorUnit)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !totals.DiscountAmount.Equal(idr("23000")) {
		t.Errorf("discount = %s, want 23000", totals.DiscountAmount.Value)
	}
	if !totals.GrandTotal.Equal(idr("207000")) {
		t.Errorf("grand total = %s, want 207000", totals.GrandTotal.Value)
	}
}

func TestCalculate_DocumentDiscountClampedAtSubtotal(t *testing.T) {
	l := line("l1", "1", "10000", "0")
	adj := idrAdjustments()
	adj.Discount = generic.FixedDiscount(idr("50000"))

	totals, err := generic.CalculateDocument([]generic.LineItem{l}, adj, generic.HalfUpAtMinorUnit)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !totals.GrandTotal.IsZero() {
		t.Errorf("grand total should clamp at zero, got %s", totals.GrandTotal.Value)
	}
	if !totals.DiscountClamped {
		t.Error("document discount clamp flag should be set")
	}
}

func TestCalculate_ZeroQuantityLineContributesNothing(t *testing.T) {
	totals, err := generic.CalculateDocument(
		[]generic.LineItem{line("l1", "0", "10000", "11")},
		idrAdjustments(), generic.HalfUpAtMinorUnit,
	)
	if err != nil {
		t.Fatalf("zero quantity must be permitted: %v", err)
	}
	if !totals.GrandTotal.IsZero() {
		t.Errorf("expected zero total, got %s", totals.GrandTotal.Value)
	}
}

func TestCalculate_EmptyDocument(t *testing.T) {
	totals, err := generic.CalculateDocument(nil, idrAdjustments(), generic.HalfUpAtMinorUnit)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !totals.Subtotal.IsZero() || !totals.GrandTotal.IsZero() {
		t.Error("empty document should produce all-zero totals")
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestCalculate_RejectsNegativeInputs(t *testing.T) {
	cases := []struct {
		name string
		li   generic.LineItem
	}{
		{"negative quantity", line("l1", "-1", "10000", "0")},
		{"negative price", line("l1", "1", "-10000", "0")},
		{"negative tax rate", line("l1", "1", "10000", "-11")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := generic.CalculateDocument([]generic.LineItem{tc.li}, idrAdjustments(), generic.HalfUpAtMinorUnit)
			if !errors.Is(err, generic.ErrInvalidLineItem) {
				t.Fatalf("expected ErrInvalidLineItem, got %v", err)
			}
			var invalid *generic.InvalidLineItemError
			if !errors.As(err, &invalid) {
				t.Fatalf("expected *InvalidLineItemError, got %T", err)
			}
			if invalid.LineID != "l1" {
				t.Errorf("error should name the line, got %q", invalid.LineID)
			}
		})
	}
}

func TestCalculate_RejectsMixedCurrencies(t *testing.T) {
	mixed := generic.LineItem{ID: "l1", Quantity: dec("1"), UnitPrice: usd("10")}
	_, err := generic.CalculateDocument([]generic.LineItem{mixed}, idrAdjustments(), generic.HalfUpAtMinorUnit)
	if !errors.Is(err, generic.ErrCurrencyMismatch) {
		t.Fatalf("expected ErrCurrencyMismatch, got %v", err)
	}
}

// =============================================================================
// MULTI-CURRENCY SECONDARY TOTAL
// =============================================================================

func TestCalculate_BaseCurrencyTotal(t *testing.T) {
	// GIVEN: A 255300 IDR document with rate 0.000065 to USD
	// WHEN: Calculating
	// THEN: The base total is one multiply on the grand total

	l1 := line("l1", "20", "10000", "11")
	l1.Discount = generic.FixedDiscount(idr("20000"))
	l2 := line("l2", "5", "10000", "11")

	adj := idrAdjustments()
	adj.ExchangeRate = dec("0.000065")
	adj.BaseCurrency = generic.CurrencyUSD

	totals, err := generic.CalculateDocument([]generic.LineItem{l1, l2}, adj, generic.HalfUpAtMinorUnit)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if totals.BaseCurrencyTotal == nil {
		t.Fatal("expected a base currency total")
	}
	// 255300 * 0.000065 = 16.5945 -> 16.59 USD
	if !totals.BaseCurrencyTotal.Equal(usd("16.59")) {
		t.Errorf("base total = %s, want 16.59 USD", totals.BaseCurrencyTotal.Value)
	}
}

func TestCalculate_NoBaseCurrencyTotalForSameCurrency(t *testing.T) {
	adj := idrAdjustments()
	adj.ExchangeRate = dec("1")
	adj.BaseCurrency = generic.CurrencyIDR

	totals, err := generic.CalculateDocument([]generic.LineItem{line("l1", "1", "100", "0")}, adj, generic.HalfUpAtMinorUnit)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if totals.BaseCurrencyTotal != nil {
		t.Error("same-currency documents should not carry a secondary total")
	}
}

// =============================================================================
// BALANCED-ENTRY CHECK
// =============================================================================

func TestVerifyBalanced(t *testing.T) {
	doc := &generic.Document{
		ID:       "inv-1",
		Currency: generic.CurrencyIDR,
		Lines: []generic.LineItem{
			line("l1", "20", "10000", "11"),
			line("l2", "5", "10000", "11"),
		},
		DocumentDiscount: generic.NoDiscount(),
	}
	if err := generic.VerifyBalanced(doc, generic.HalfUpAtMinorUnit); err != nil {
		t.Fatalf("a document without a declared total must balance: %v", err)
	}
}

func TestVerifyBalanced_DeclaredTotalMatches(t *testing.T) {
	// GIVEN: Two lines totalling 255300 and the same amount declared
	declared := idr("255300")
	doc := &generic.Document{
		ID:       "inv-1",
		Currency: generic.CurrencyIDR,
		Lines: []generic.LineItem{
			line("l1", "20", "10000", "11"),
			line("l2", "5", "10000", "11"),
		},
		DocumentDiscount: generic.NoDiscount(),
		DeclaredTotal:    &declared,
	}

	// THEN: The check passes
	if err := generic.VerifyBalanced(doc, generic.HalfUpAtMinorUnit); err != nil {
		t.Fatalf("matching declared total must balance: %v", err)
	}
}

func TestVerifyBalanced_DeclaredTotalMismatchIsRejected(t *testing.T) {
	// GIVEN: Lines totalling 255300 but a declared total of 255000
	declared := idr("255000")
	doc := &generic.Document{
		ID:       "inv-1",
		Currency: generic.CurrencyIDR,
		Lines: []generic.LineItem{
			line("l1", "20", "10000", "11"),
			line("l2", "5", "10000", "11"),
		},
		DocumentDiscount: generic.NoDiscount(),
		DeclaredTotal:    &declared,
	}

	// WHEN: Verifying the declared total
	err := generic.VerifyBalanced(doc, generic.HalfUpAtMinorUnit)

	// THEN: The mismatch surfaces as an unbalanced entry
	var unbalanced *generic.UnbalancedEntryError
	if !errors.As(err, &unbalanced) {
		t.Fatalf("expected UnbalancedEntryError, got %v", err)
	}
	if !unbalanced.Expected.Equal(idr("255300")) {
		t.Errorf("expected recomputed total 255300, got %s", unbalanced.Expected)
	}
	if !unbalanced.Actual.Equal(declared) {
		t.Errorf("expected declared total 255000, got %s", unbalanced.Actual)
	}
}

func TestVerifyBalanced_DeclaredTotalCurrencyMustMatch(t *testing.T) {
	declared := generic.NewMoney(dec("200000"), generic.CurrencyUSD)
	doc := &generic.Document{
		ID:               "inv-1",
		Currency:         generic.CurrencyIDR,
		Lines:            []generic.LineItem{line("l1", "20", "10000", "0")},
		DocumentDiscount: generic.NoDiscount(),
		DeclaredTotal:    &declared,
	}

	var mismatch *generic.CurrencyMismatchError
	if err := generic.VerifyBalanced(doc, generic.HalfUpAtMinorUnit); !errors.As(err, &mismatch) {
		t.Fatalf("expected CurrencyMismatchError, got %v", err)
	}
}
