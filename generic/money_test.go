package generic_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/warp/document-engine/generic"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func idr(s string) generic.Money {
	return generic.MustParseMoney(s, generic.CurrencyIDR)
}

func usd(s string) generic.Money {
	return generic.MustParseMoney(s, generic.CurrencyUSD)
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// =============================================================================
// ARITHMETIC
// =============================================================================

func TestMoney_Add_SameCurrency(t *testing.T) {
	sum, err := idr("100000").Add(idr("25300"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !sum.Equal(idr("125300")) {
		t.Errorf("expected 125300 IDR, got %s", sum)
	}
}

func TestMoney_Add_CurrencyMismatch(t *testing.T) {
	// GIVEN: Two values in different currencies
	// WHEN: Adding them
	// THEN: The operation fails with ErrCurrencyMismatch; no implicit conversion

	_, err := idr("100").Add(usd("100"))
	if !errors.Is(err, generic.ErrCurrencyMismatch) {
		t.Fatalf("expected ErrCurrencyMismatch, got %v", err)
	}

	var mismatch *generic.CurrencyMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected *CurrencyMismatchError, got %T", err)
	}
	if mismatch.Left != generic.CurrencyIDR || mismatch.Right != generic.CurrencyUSD {
		t.Errorf("error should carry both currencies, got %v/%v", mismatch.Left, mismatch.Right)
	}
}

func TestMoney_Compare_CurrencyMismatch(t *testing.T) {
	if _, err := idr("1").Cmp(usd("1")); !errors.Is(err, generic.ErrCurrencyMismatch) {
		t.Errorf("expected ErrCurrencyMismatch from Cmp, got %v", err)
	}
}

// =============================================================================
// ROUNDING
// =============================================================================

func TestMoney_Round_HalfUpAtMinorUnit(t *testing.T) {
	cases := []struct {
		name string
		in   generic.Money
		want generic.Money
	}{
		{"idr half rounds up", idr("10.5"), idr("11")},
		{"idr below half rounds down", idr("10.4"), idr("10")},
		{"usd cent half rounds up", usd("10.005"), usd("10.01")},
		{"usd below half rounds down", usd("10.004"), usd("10.00")},
		{"already exact unchanged", idr("180000"), idr("180000")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.in.Round()
			if !got.Value.Equal(tc.want.Value) {
				t.Errorf("Round(%s) = %s, want %s", tc.in.Value, got.Value, tc.want.Value)
			}
		})
	}
}

func TestMoney_MinorUnits(t *testing.T) {
	if got := usd("19.99").MinorUnits(); got != 1999 {
		t.Errorf("expected 1999 cents, got %d", got)
	}
	if got := idr("230000").MinorUnits(); got != 230000 {
		t.Errorf("expected 230000 rupiah, got %d", got)
	}
}

func TestMoney_Convert_SingleMultiply(t *testing.T) {
	// GIVEN: 255300 IDR and a rate of 0.000065 to USD
	// WHEN: Converting
	// THEN: One multiply on the total, rounded to the target's minor unit

	got := idr("255300").Convert(dec("0.000065"), generic.CurrencyUSD)
	if got.Currency != generic.CurrencyUSD {
		t.Fatalf("expected USD, got %s", got.Currency)
	}
	// 255300 * 0.000065 = 16.5945 -> 16.59
	if !got.Value.Equal(dec("16.59")) {
		t.Errorf("expected 16.59, got %s", got.Value)
	}
}

// =============================================================================
// ALLOCATION
// =============================================================================

func TestMoney_AllocateEven_RemainderToLastBucket(t *testing.T) {
	// GIVEN: 200000 IDR split into 3
	// WHEN: Allocating evenly
	// THEN: 66666 + 66666 + 66668; not one unit lost, remainder in the last bucket

	parts, err := idr("200000").AllocateEven(3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(parts) != 3 {
		t.Fatalf("expected 3 buckets, got %d", len(parts))
	}

	want := []string{"66666", "66666", "66668"}
	sum := generic.ZeroMoney(generic.CurrencyIDR)
	for i, p := range parts {
		if !p.Value.Equal(dec(want[i])) {
			t.Errorf("bucket %d = %s, want %s", i, p.Value, want[i])
		}
		sum, _ = sum.Add(p)
	}
	if !sum.Equal(idr("200000")) {
		t.Errorf("buckets must sum back to the total, got %s", sum)
	}
}

func TestMoney_Allocate_Weighted(t *testing.T) {
	// 100.00 USD split 1:2:1 -> 25.00 + 50.00 + 25.00
	parts, err := usd("100.00").Allocate([]decimal.Decimal{dec("1"), dec("2"), dec("1")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"25", "50", "25"}
	for i, p := range parts {
		if !p.Value.Equal(dec(want[i])) {
			t.Errorf("bucket %d = %s, want %s", i, p.Value, want[i])
		}
	}
}

func TestMoney_Allocate_RejectsBadWeights(t *testing.T) {
	if _, err := idr("100").Allocate(nil); err == nil {
		t.Error("expected error for empty weights")
	}
	if _, err := idr("100").Allocate([]decimal.Decimal{dec("-1"), dec("2")}); err == nil {
		t.Error("expected error for negative weight")
	}
	if _, err := idr("100").Allocate([]decimal.Decimal{dec("0"), dec("0")}); err == nil {
		t.Error("expected error for zero weight sum")
	}
}

func TestMoney_Allocate_ZeroWeightBucketGetsNothing(t *testing.T) {
	parts, err := idr("90").Allocate([]decimal.Decimal{dec("1"), dec("0"), dec("2")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !parts[1].IsZero() {
		t.Errorf("zero-weight bucket should get nothing, got %s", parts[1].Value)
	}
	sum := generic.ZeroMoney(generic.CurrencyIDR)
	for _, p := range parts {
		sum, _ = sum.Add(p)
	}
	if !sum.Equal(idr("90")) {
		t.Errorf("buckets must sum back to the total, got %s", sum)
	}
}

// =============================================================================
// PARSING
// =============================================================================

func TestParseMoney_RejectsGarbage(t *testing.T) {
	if _, err := generic.ParseMoney("12,5", generic.CurrencyIDR); err == nil {
		t.Error("expected error for comma decimal")
	}
	if _, err := generic.ParseMoney("", generic.CurrencyIDR); err == nil {
		t.Error("expected error for empty string")
	}
}

func TestMustParseDecimal_PanicsOnGarbage(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected a panic for a malformed literal")
		}
	}()
	generic.MustParseDecimal("not-a-number")
}

func TestMoney_AbsDelta(t *testing.T) {
	d, err := idr("100").AbsDelta(idr("130"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !d.Equal(idr("30")) {
		t.Errorf("expected 30, got %s", d.Value)
	}
}
