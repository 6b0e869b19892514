package finance_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/document-engine/finance"
	"github.com/warp/document-engine/generic"
)

// =============================================================================
// FIXTURES
// =============================================================================

func mustDec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func idrMoney(t *testing.T, s string) generic.Money {
	t.Helper()
	m, err := generic.ParseMoney(s, generic.CurrencyIDR)
	require.NoError(t, err)
	return m
}

// amountDoc builds a single-line document whose grand total equals the
// given amount (quantity 1, no tax).
func amountDoc(t *testing.T, docType finance.DocType, status generic.State, amount string) *generic.Document {
	t.Helper()
	id := generic.DocumentID(string(docType) + "-1")
	return &generic.Document{
		ID:       id,
		Type:     docType,
		Status:   status,
		Currency: generic.CurrencyIDR,
		Lines: []generic.LineItem{{
			ID:        generic.LineItemID(string(id) + "-line-1"),
			Quantity:  mustDec(t, "1"),
			UnitPrice: idrMoney(t, amount),
			Discount:  generic.NoDiscount(),
		}},
		DocumentDiscount: generic.NoDiscount(),
	}
}

func workflowFor(t *testing.T, docType finance.DocType) *generic.Workflow {
	t.Helper()
	w := generic.LookupWorkflow(string(docType))
	require.NotNil(t, w, "workflow must be registered for %s", docType)
	return w
}

// =============================================================================
// BUDGET - The one backward edge in the system
// =============================================================================

func TestBudget_ApproveLocksEdits(t *testing.T) {
	w := workflowFor(t, finance.TypeBudget)
	budget := amountDoc(t, finance.TypeBudget, finance.StateDraft, "200000")

	require.NoError(t, w.EnsureEditable(budget))

	res, err := w.Apply(budget, finance.ActionApprove, generic.TransitionContext{})
	require.NoError(t, err)
	assert.Equal(t, finance.StateApproved, res.NextState)

	err = w.EnsureEditable(res.Document)
	var te *generic.TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "NotEditable", te.ViolatedGuard)
}

func TestBudget_ReopenRestoresDraft(t *testing.T) {
	// GIVEN: An approved budget
	// WHEN: Reopening it
	// THEN: It is back in draft and editable again

	w := workflowFor(t, finance.TypeBudget)
	budget := amountDoc(t, finance.TypeBudget, finance.StateApproved, "200000")

	res, err := w.Apply(budget, finance.ActionReopen, generic.TransitionContext{})
	require.NoError(t, err)
	assert.Equal(t, finance.StateDraft, res.NextState)
	assert.NoError(t, w.EnsureEditable(res.Document))
}

func TestBudget_ClosedIsIrreversible(t *testing.T) {
	w := workflowFor(t, finance.TypeBudget)
	assert.True(t, w.IsTerminal(finance.StateClosed))

	closed := amountDoc(t, finance.TypeBudget, finance.StateClosed, "200000")
	err := w.Check(closed, finance.ActionReopen, generic.TransitionContext{})
	var te *generic.TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "UndefinedTransition", te.ViolatedGuard)
}

func TestBudget_ApproveRequiresLines(t *testing.T) {
	w := workflowFor(t, finance.TypeBudget)
	empty := amountDoc(t, finance.TypeBudget, finance.StateDraft, "200000")
	empty.Lines = nil

	_, err := w.Apply(empty, finance.ActionApprove, generic.TransitionContext{})
	var te *generic.TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "HasLineItems", te.ViolatedGuard)
}

// =============================================================================
// BANK TRANSACTION - Matching is explicit, reconciled is final
// =============================================================================

func TestBankTransaction_StartsUnmatched(t *testing.T) {
	w := workflowFor(t, finance.TypeBankTransaction)
	assert.Equal(t, finance.StateUnmatched, w.Initial())
}

func TestBankTransaction_MatchRequiresPaymentFact(t *testing.T) {
	w := workflowFor(t, finance.TypeBankTransaction)
	txn := amountDoc(t, finance.TypeBankTransaction, finance.StateUnmatched, "255300")

	_, err := w.Apply(txn, finance.ActionMatch, generic.TransitionContext{})
	var te *generic.TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "PaymentSelected", te.ViolatedGuard)

	tc := generic.TransitionContext{
		Facts: map[string]any{finance.FactMatchedPaymentID: "pay-1"},
	}
	res, err := w.Apply(txn, finance.ActionMatch, tc)
	require.NoError(t, err)
	assert.Equal(t, finance.StateMatched, res.NextState)
}

func TestBankTransaction_UnmatchReturnsToUnmatched(t *testing.T) {
	w := workflowFor(t, finance.TypeBankTransaction)
	txn := amountDoc(t, finance.TypeBankTransaction, finance.StateMatched, "255300")

	res, err := w.Apply(txn, finance.ActionUnmatch, generic.TransitionContext{})
	require.NoError(t, err)
	assert.Equal(t, finance.StateUnmatched, res.NextState)
}

func TestBankTransaction_ReconciledBlocksEverything(t *testing.T) {
	w := workflowFor(t, finance.TypeBankTransaction)
	assert.True(t, w.IsTerminal(finance.StateReconciled))

	txn := amountDoc(t, finance.TypeBankTransaction, finance.StateReconciled, "255300")
	assert.Error(t, w.EnsureEditable(txn))
	assert.False(t, w.CanDelete(txn))
	assert.False(t, w.CanTransition(txn, finance.ActionUnmatch, generic.TransitionContext{}))
}

// =============================================================================
// DOWN PAYMENT - Settle needs a zero balance
// =============================================================================

func TestDownPayment_SettleRequiresZeroBalance(t *testing.T) {
	// GIVEN: A received down payment of 1000000 with 400000 applied
	// WHEN: Settling
	// THEN: Refused while a balance remains; allowed once links consume
	//       the full amount

	w := workflowFor(t, finance.TypeDownPayment)
	dp := amountDoc(t, finance.TypeDownPayment, finance.StateReceived, "1000000")

	partial := generic.TransitionContext{Links: []generic.ConversionLink{{
		Kind:             generic.LinkAmountApplied,
		SourceDocumentID: dp.ID,
		Amount:           idrMoney(t, "400000"),
	}}}
	_, err := w.Apply(dp, finance.ActionSettle, partial)
	var te *generic.TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "FullySettled", te.ViolatedGuard)

	full := generic.TransitionContext{Links: []generic.ConversionLink{
		{Kind: generic.LinkAmountApplied, SourceDocumentID: dp.ID, Amount: idrMoney(t, "400000")},
		{Kind: generic.LinkAmountApplied, SourceDocumentID: dp.ID, Amount: idrMoney(t, "500000")},
		{Kind: generic.LinkAmountRefunded, SourceDocumentID: dp.ID, Amount: idrMoney(t, "100000")},
	}}
	res, err := w.Apply(dp, finance.ActionSettle, full)
	require.NoError(t, err)
	assert.Equal(t, finance.StateSettled, res.NextState)
	assert.True(t, w.IsTerminal(finance.StateSettled))
}

func TestDownPayment_ReceiveRequiresAmountLine(t *testing.T) {
	w := workflowFor(t, finance.TypeDownPayment)
	dp := amountDoc(t, finance.TypeDownPayment, finance.StateDraft, "1000000")
	dp.Lines = nil

	_, err := w.Apply(dp, finance.ActionReceive, generic.TransitionContext{})
	var te *generic.TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "HasLineItems", te.ViolatedGuard)
}
