/*
money.go - Exact monetary values and quantities

PURPOSE:
  Money is the single representation of monetary value in the engine.
  Every amount is a decimal value tagged with a currency code; binary
  floating point never touches a total. Quantities (units ordered,
  received, delivered) use the same decimal arithmetic.

KEY CONCEPTS:
  - Money: decimal value + currency code, immutable
  - Currency: ISO-4217 style code with a known minor-unit exponent
  - Rounding: half-up at the currency's smallest unit, applied once
    per line, never re-rounded
  - Allocation: splitting a total into weighted buckets WITHOUT losing
    a single minor unit

ALLOCATION TIE-BREAK:
  Allocate distributes the total in minor units, flooring each bucket's
  share and assigning the entire remainder to the LAST bucket. This is
  a deliberate, documented policy: when a budget is spread across twelve
  months, the odd cents land in December. Callers that want a different
  placement must order their weights accordingly.

CURRENCY SAFETY:
  Combining two Money values of different currencies returns
  ErrCurrencyMismatch. There is no implicit conversion; cross-currency
  totals go through Convert with an explicit exchange rate.

USAGE:
  price, _ := generic.ParseMoney("100000", "IDR")
  total := price.MulDecimal(decimal.NewFromInt(2)) // 200000 IDR
  parts, _ := total.AllocateEven(3)                // 66666 + 66666 + 66668

SEE ALSO:
  - calc.go: The calculation engine built on these primitives
  - errors.go: ErrCurrencyMismatch and friends
*/
package generic

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CURRENCY - Code plus minor-unit exponent
// =============================================================================

type Currency string

const (
	CurrencyIDR Currency = "IDR"
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencySGD Currency = "SGD"
	CurrencyJPY Currency = "JPY"
)

// minorUnits maps a currency to its smallest-unit exponent.
// Unknown currencies default to 2 decimal places.
var minorUnits = map[Currency]int32{
	CurrencyIDR: 0,
	CurrencyJPY: 0,
	CurrencyUSD: 2,
	CurrencyEUR: 2,
	CurrencySGD: 2,
}

// Exponent returns the number of decimal places of the currency's
// smallest unit (0 for IDR, 2 for USD).
func (c Currency) Exponent() int32 {
	if exp, ok := minorUnits[c]; ok {
		return exp
	}
	return 2
}

// =============================================================================
// MONEY - Exact decimal value with a currency tag
// =============================================================================

type Money struct {
	Value    decimal.Decimal
	Currency Currency
}

// NewMoney creates a Money from a decimal value.
func NewMoney(value decimal.Decimal, currency Currency) Money {
	return Money{Value: value, Currency: currency}
}

// NewMoneyFromInt creates a Money from whole currency units.
func NewMoneyFromInt(value int64, currency Currency) Money {
	return Money{Value: decimal.NewFromInt(value), Currency: currency}
}

// NewMoneyFromMinor creates a Money from an integer count of minor units
// (cents for USD, whole rupiah for IDR).
func NewMoneyFromMinor(units int64, currency Currency) Money {
	exp := currency.Exponent()
	return Money{Value: decimal.New(units, -exp), Currency: currency}
}

// ParseMoney creates a Money from a decimal string ("100000", "19.99").
func ParseMoney(s string, currency Currency) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("invalid money value %q: %w", s, err)
	}
	return Money{Value: d, Currency: currency}, nil
}

// MustParseMoney is ParseMoney for trusted literals. Panics on bad input.
func MustParseMoney(s string, currency Currency) Money {
	m, err := ParseMoney(s, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// ZeroMoney returns a zero value in the given currency.
func ZeroMoney(currency Currency) Money {
	return Money{Value: decimal.Zero, Currency: currency}
}

// Zero returns a zero value in this Money's currency.
func (m Money) Zero() Money { return Money{Value: decimal.Zero, Currency: m.Currency} }

// =============================================================================
// ARITHMETIC - Same-currency only, explicit errors on mismatch
// =============================================================================

// Add returns m + b. Fails with ErrCurrencyMismatch on different currencies.
func (m Money) Add(b Money) (Money, error) {
	if m.Currency != b.Currency {
		return Money{}, &CurrencyMismatchError{Left: m.Currency, Right: b.Currency, Op: "add"}
	}
	return Money{Value: m.Value.Add(b.Value), Currency: m.Currency}, nil
}

// Sub returns m - b. Fails with ErrCurrencyMismatch on different currencies.
func (m Money) Sub(b Money) (Money, error) {
	if m.Currency != b.Currency {
		return Money{}, &CurrencyMismatchError{Left: m.Currency, Right: b.Currency, Op: "subtract"}
	}
	return Money{Value: m.Value.Sub(b.Value), Currency: m.Currency}, nil
}

// MulDecimal returns m scaled by s. Scaling never changes the currency.
func (m Money) MulDecimal(s decimal.Decimal) Money {
	return Money{Value: m.Value.Mul(s), Currency: m.Currency}
}

// Neg returns -m.
func (m Money) Neg() Money { return Money{Value: m.Value.Neg(), Currency: m.Currency} }

// Round rounds to the currency's smallest unit, half-up.
// This is the single rounding rule used across a document.
func (m Money) Round() Money {
	return Money{Value: m.Value.Round(m.Currency.Exponent()), Currency: m.Currency}
}

// MinorUnits returns the value as an integer count of minor units.
// The value must already be rounded; fractional minor units are truncated.
func (m Money) MinorUnits() int64 {
	return m.Value.Shift(m.Currency.Exponent()).IntPart()
}

// Convert applies an explicit exchange rate and returns the value in the
// target currency, rounded to that currency's smallest unit. This is the
// only way to cross a currency boundary.
func (m Money) Convert(rate decimal.Decimal, to Currency) Money {
	return Money{Value: m.Value.Mul(rate), Currency: to}.Round()
}

// =============================================================================
// COMPARISON
// =============================================================================

func (m Money) IsZero() bool     { return m.Value.IsZero() }
func (m Money) IsNegative() bool { return m.Value.IsNegative() }
func (m Money) IsPositive() bool { return m.Value.IsPositive() }

// Equal reports exact equality: same currency AND same value.
func (m Money) Equal(b Money) bool {
	return m.Currency == b.Currency && m.Value.Equal(b.Value)
}

// Cmp compares two same-currency values (-1, 0, +1).
func (m Money) Cmp(b Money) (int, error) {
	if m.Currency != b.Currency {
		return 0, &CurrencyMismatchError{Left: m.Currency, Right: b.Currency, Op: "compare"}
	}
	return m.Value.Cmp(b.Value), nil
}

// GreaterThan reports m > b for same-currency values.
func (m Money) GreaterThan(b Money) (bool, error) {
	c, err := m.Cmp(b)
	return c > 0, err
}

// LessThan reports m < b for same-currency values.
func (m Money) LessThan(b Money) (bool, error) {
	c, err := m.Cmp(b)
	return c < 0, err
}

// AbsDelta returns |m - b|, used by the reconciliation matcher.
func (m Money) AbsDelta(b Money) (Money, error) {
	d, err := m.Sub(b)
	if err != nil {
		return Money{}, err
	}
	return Money{Value: d.Value.Abs(), Currency: m.Currency}, nil
}

func (m Money) String() string {
	return m.Value.StringFixed(m.Currency.Exponent()) + " " + string(m.Currency)
}

// =============================================================================
// ALLOCATION - Split a total without losing a minor unit
// =============================================================================

// Allocate distributes the total across weighted buckets so that the
// bucket values sum back to the total EXACTLY. Each bucket gets the
// floor of its proportional share in minor units; the remainder goes
// to the last bucket (see the file header for why).
//
// Weights must be non-negative and sum to a positive value.
func (m Money) Allocate(weights []decimal.Decimal) ([]Money, error) {
	if len(weights) == 0 {
		return nil, fmt.Errorf("allocate: no weights")
	}

	sum := decimal.Zero
	for _, w := range weights {
		if w.IsNegative() {
			return nil, fmt.Errorf("allocate: negative weight %s", w)
		}
		sum = sum.Add(w)
	}
	if !sum.IsPositive() {
		return nil, fmt.Errorf("allocate: weights sum to zero")
	}

	total := m.Round()
	totalMinor := total.MinorUnits()

	buckets := make([]Money, len(weights))
	var assigned int64
	for i, w := range weights {
		share := decimal.NewFromInt(totalMinor).Mul(w).Div(sum)
		units := share.IntPart() // floor toward zero; weights and totals are non-negative in practice
		buckets[i] = NewMoneyFromMinor(units, m.Currency)
		assigned += units
	}

	// Remainder lands in the last bucket.
	remainder := totalMinor - assigned
	if remainder != 0 {
		last := len(buckets) - 1
		buckets[last] = NewMoneyFromMinor(buckets[last].MinorUnits()+remainder, m.Currency)
	}

	return buckets, nil
}

// AllocateEven splits the total into n equal buckets, remainder to the last.
func (m Money) AllocateEven(n int) ([]Money, error) {
	if n <= 0 {
		return nil, fmt.Errorf("allocate: bucket count must be positive, got %d", n)
	}
	weights := make([]decimal.Decimal, n)
	for i := range weights {
		weights[i] = decimal.New(1, 0)
	}
	return m.Allocate(weights)
}

// =============================================================================
// QUANTITY HELPERS
// =============================================================================

// ParseQuantity parses a decimal quantity string.
func ParseQuantity(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid quantity %q: %w", s, err)
	}
	return d, nil
}

// MustParseDecimal parses a trusted decimal literal. Panics on bad input.
func MustParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(fmt.Sprintf("invalid decimal literal %q: %v", s, err))
	}
	return d
}
