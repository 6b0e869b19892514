/*
workflows.go - Transition tables for financial documents

TABLES (creation order, * = terminal):
  Budget:           draft -> approved -> closed*
                    (approved -> draft via reopen is the single allowed
                     backward transition; closed is irreversible)
  Bank Transaction: unmatched -> matched -> reconciled*
                    (reconciled blocks edit, delete and unmatch)
  Down Payment:     draft -> received -> settled*

NOTABLE GUARDS:
  - A budget needs at least one line before approval
  - Matching requires the explicit payment fact; the matcher only
    suggests, it never matches
  - Settling a down payment requires zero remaining balance

SEE ALSO:
  - downpayment.go: the balance the Settled guard checks
  - matching.go: suggestion scoring
*/
package finance

import (
	"errors"
	"fmt"

	"github.com/warp/document-engine/generic"
)

// =============================================================================
// BUDGET
// =============================================================================

func budgetWorkflow() *generic.Workflow {
	w := generic.NewWorkflow(TypeBudget, StateDraft)
	// Draft is the only editable state; closed budgets reject every
	// line-edit with NotEditable.
	w.MarkEditable(StateDraft)
	w.MarkDeletable(StateDraft)

	w.Add(generic.Transition{From: StateDraft, Action: ActionApprove, To: StateApproved,
		Guards: []generic.Guard{{
			Name: "HasLineItems",
			Check: func(doc *generic.Document, _ generic.TransitionContext) error {
				if len(doc.Lines) == 0 {
					return errors.New("budget has no lines")
				}
				return nil
			},
		}},
	})
	// Reopen re-enables edits; this is the one backward edge.
	w.Add(generic.Transition{From: StateApproved, Action: ActionReopen, To: StateDraft})
	w.Add(generic.Transition{From: StateApproved, Action: ActionClose, To: StateClosed})
	return w
}

// =============================================================================
// BANK TRANSACTION
// =============================================================================

func bankTransactionWorkflow() *generic.Workflow {
	w := generic.NewWorkflow(TypeBankTransaction, StateUnmatched)
	w.MarkEditable(StateUnmatched)
	w.MarkDeletable(StateUnmatched)

	w.Add(generic.Transition{From: StateUnmatched, Action: ActionMatch, To: StateMatched,
		Guards: []generic.Guard{{
			Name: "PaymentSelected",
			Check: func(_ *generic.Document, tc generic.TransitionContext) error {
				id, ok := tc.Fact(FactMatchedPaymentID).(string)
				if !ok || id == "" {
					return errors.New("no payment selected")
				}
				return nil
			},
		}},
	})
	w.Add(generic.Transition{From: StateMatched, Action: ActionUnmatch, To: StateUnmatched})
	// Reconciled is terminal: no outgoing edges, so edit/delete/unmatch
	// are all refused from there.
	w.Add(generic.Transition{From: StateMatched, Action: ActionReconcile, To: StateReconciled})
	return w
}

// =============================================================================
// DOWN PAYMENT
// =============================================================================

func downPaymentWorkflow() *generic.Workflow {
	w := generic.NewWorkflow(TypeDownPayment, StateDraft)
	w.MarkEditable(StateDraft)
	w.MarkDeletable(StateDraft)

	w.Add(generic.Transition{From: StateDraft, Action: ActionReceive, To: StateReceived,
		Guards: []generic.Guard{{
			Name: "HasLineItems",
			Check: func(doc *generic.Document, _ generic.TransitionContext) error {
				if len(doc.Lines) == 0 {
					return errors.New("down payment has no amount line")
				}
				return nil
			},
		}},
	})
	w.Add(generic.Transition{From: StateReceived, Action: ActionSettle, To: StateSettled,
		Guards: []generic.Guard{{
			Name: "FullySettled",
			Check: func(doc *generic.Document, tc generic.TransitionContext) error {
				available, err := Available(doc, tc.Links)
				if err != nil {
					return err
				}
				if !available.IsZero() {
					return fmt.Errorf("balance of %s still available", available)
				}
				return nil
			},
		}},
	})
	return w
}
