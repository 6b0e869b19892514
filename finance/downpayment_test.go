package finance_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/document-engine/finance"
	"github.com/warp/document-engine/generic"
)

// dpFixture is a received 1000000 IDR down payment with 600000 applied
// and 100000 refunded: 300000 remains available.
func dpFixture(t *testing.T) (*generic.Document, []generic.ConversionLink) {
	t.Helper()
	dp := amountDoc(t, finance.TypeDownPayment, finance.StateReceived, "1000000")
	links := []generic.ConversionLink{
		{Kind: generic.LinkAmountApplied, SourceDocumentID: dp.ID, DerivedDocumentID: "inv-1", Amount: idrMoney(t, "600000")},
		{Kind: generic.LinkAmountRefunded, SourceDocumentID: dp.ID, Amount: idrMoney(t, "100000")},
	}
	return dp, links
}

func TestAvailable_ReceivedMinusAppliedMinusRefunded(t *testing.T) {
	dp, links := dpFixture(t)

	received, err := finance.ReceivedAmount(dp)
	require.NoError(t, err)
	assert.True(t, received.Equal(idrMoney(t, "1000000")))

	applied, err := finance.AppliedAmount(dp, links)
	require.NoError(t, err)
	assert.True(t, applied.Equal(idrMoney(t, "600000")))

	refunded, err := finance.RefundedAmount(dp, links)
	require.NoError(t, err)
	assert.True(t, refunded.Equal(idrMoney(t, "100000")))

	available, err := finance.Available(dp, links)
	require.NoError(t, err)
	assert.True(t, available.Equal(idrMoney(t, "300000")), "available = %s", available.Value)
}

func TestAvailable_IgnoresOtherDocumentsLinks(t *testing.T) {
	dp, links := dpFixture(t)
	links = append(links, generic.ConversionLink{
		Kind:             generic.LinkAmountApplied,
		SourceDocumentID: "someone-else",
		Amount:           idrMoney(t, "999999"),
	})

	available, err := finance.Available(dp, links)
	require.NoError(t, err)
	assert.True(t, available.Equal(idrMoney(t, "300000")))
}

func TestApply_WithinBalance(t *testing.T) {
	// GIVEN: 300000 available
	// WHEN: Applying 250000 to an invoice
	// THEN: One amount-applied link pointing at the target

	dp, links := dpFixture(t)
	now := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

	link, err := finance.Apply(finance.ApplicationRequest{
		DownPayment:   dp,
		TargetID:      "inv-2",
		Amount:        idrMoney(t, "250000"),
		ExistingLinks: links,
		Now:           now,
	})
	require.NoError(t, err)
	assert.Equal(t, generic.LinkAmountApplied, link.Kind)
	assert.Equal(t, dp.ID, link.SourceDocumentID)
	assert.Equal(t, generic.DocumentID("inv-2"), link.DerivedDocumentID)
	assert.True(t, link.Amount.Equal(idrMoney(t, "250000")))
	assert.True(t, link.CreatedAt.Equal(now))
}

func TestApply_OverBalanceRefusedWithRemaining(t *testing.T) {
	dp, links := dpFixture(t)

	_, err := finance.Apply(finance.ApplicationRequest{
		DownPayment:   dp,
		TargetID:      "inv-2",
		Amount:        idrMoney(t, "350000"),
		ExistingLinks: links,
	})
	var oc *generic.OverConsumptionError
	require.ErrorAs(t, err, &oc)
	assert.True(t, oc.Requested.Equal(mustDec(t, "350000")))
	assert.True(t, oc.Remaining.Equal(mustDec(t, "300000")), "remaining = %s", oc.Remaining)

	// The exact remainder still applies.
	_, err = finance.Apply(finance.ApplicationRequest{
		DownPayment:   dp,
		TargetID:      "inv-2",
		Amount:        idrMoney(t, "300000"),
		ExistingLinks: links,
	})
	require.NoError(t, err)
}

func TestApply_RefusedBeforeReceipt(t *testing.T) {
	dp := amountDoc(t, finance.TypeDownPayment, finance.StateDraft, "1000000")

	_, err := finance.Apply(finance.ApplicationRequest{
		DownPayment: dp,
		TargetID:    "inv-1",
		Amount:      idrMoney(t, "100000"),
	})
	var te *generic.TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "NotReceived", te.ViolatedGuard)
}

func TestApply_RejectsNonPositiveAmounts(t *testing.T) {
	dp, links := dpFixture(t)

	for _, amount := range []string{"0", "-100"} {
		_, err := finance.Apply(finance.ApplicationRequest{
			DownPayment:   dp,
			TargetID:      "inv-1",
			Amount:        idrMoney(t, amount),
			ExistingLinks: links,
		})
		assert.ErrorIs(t, err, generic.ErrInvalidLineItem, "amount %s", amount)
	}
}

func TestRefund_ReducesAvailability(t *testing.T) {
	dp, links := dpFixture(t)

	link, err := finance.Refund(finance.ApplicationRequest{
		DownPayment:   dp,
		Amount:        idrMoney(t, "300000"),
		ExistingLinks: links,
	})
	require.NoError(t, err)
	assert.Equal(t, generic.LinkAmountRefunded, link.Kind)

	links = append(links, *link)
	available, err := finance.Available(dp, links)
	require.NoError(t, err)
	assert.True(t, available.IsZero(), "available = %s", available.Value)

	// Nothing left: even 1 is an over-consumption now.
	_, err = finance.Refund(finance.ApplicationRequest{
		DownPayment:   dp,
		Amount:        idrMoney(t, "1"),
		ExistingLinks: links,
	})
	assert.ErrorIs(t, err, generic.ErrOverConsumption)
}
