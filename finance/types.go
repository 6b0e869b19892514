/*
Package finance implements the financial document workflows: budgets,
bank transactions, and down payments, plus the reconciliation matcher
that pairs bank transactions with open payments.

KEY DIFFERENCES FROM TRADE:
  1. Bank transactions start in "unmatched", not "draft" - that IS their
     draft-equivalent initial state
  2. Budgets have the single allowed backward transition in the system
     (approved -> draft via reopen)
  3. Down payments are consumed by amount, not quantity; application
     rides on the same conversion-link accounting as goods receipts

SEE ALSO:
  - workflows.go: the transition tables
  - budget.go: monthly distribution
  - downpayment.go: application / refund accounting
  - matching.go: reconciliation suggestions
*/
package finance

import "github.com/warp/document-engine/generic"

// =============================================================================
// FINANCE DOCUMENT TYPES
// =============================================================================

// DocType is the concrete document type for the finance domain.
// Implements generic.DocumentType.
type DocType string

func (d DocType) TypeID() string     { return string(d) }
func (d DocType) TypeDomain() string { return "finance" }

var _ generic.DocumentType = DocType("")

const (
	TypeBudget          DocType = "budget"
	TypeBankTransaction DocType = "bank_transaction"
	TypeDownPayment     DocType = "down_payment"
)

// =============================================================================
// STATES AND ACTIONS
// =============================================================================

const (
	StateDraft      generic.State = "draft"
	StateApproved   generic.State = "approved"
	StateClosed     generic.State = "closed"
	StateUnmatched  generic.State = "unmatched"
	StateMatched    generic.State = "matched"
	StateReconciled generic.State = "reconciled"
	StateReceived   generic.State = "received"
	StateSettled    generic.State = "settled"
)

const (
	ActionApprove   generic.Action = "approve"
	ActionClose     generic.Action = "close"
	ActionReopen    generic.Action = "reopen"
	ActionMatch     generic.Action = "match"
	ActionUnmatch   generic.Action = "unmatch"
	ActionReconcile generic.Action = "reconcile"
	ActionReceive   generic.Action = "receive"
	ActionSettle    generic.Action = "settle"
)

// FactMatchedPaymentID carries the payment a bank transaction is being
// matched against; match is an explicit user-confirmed action.
const FactMatchedPaymentID = "matched_payment_id"

func init() {
	generic.RegisterWorkflow(budgetWorkflow())
	generic.RegisterWorkflow(bankTransactionWorkflow())
	generic.RegisterWorkflow(downPaymentWorkflow())
}
