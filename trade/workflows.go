/*
workflows.go - Transition tables for trading documents

PURPOSE:
  One table per document type, built on the generic engine. Each table
  declares the states, the guarded edges between them, and which states
  permit edits or deletion. The general rule, replicated per type: only
  draft permits field edits or deletion; every later state restricts
  mutation to the actions its table allows.

TABLES (creation order, * = terminal):
  Quotation:      draft -> submitted -> approved|rejected -> converted*
  Invoice/Bill:   draft -> posted -> paid* | void*
  Purchase Order: draft -> pending -> approved|rejected* -> partial -> received* / cancelled*
  Goods Receipt:  draft -> receiving -> completed* | cancelled*
  Delivery Order: draft -> confirmed -> shipped -> delivered* | cancelled*
  Returns:        draft -> submitted -> approved -> completed* | rejected*

NOTABLE GUARDS:
  - Approve requires at least one line item (HasLineItems)
  - Posting requires recomputed totals to balance (BalancedEntry);
    stored totals are never trusted
  - Paid is reached only through payment application (FullyPaid reads
    the externally supplied amount_paid fact)
  - PO partial/received are driven by goods-receipt consumption links,
    not by direct user action (ReceiptRecorded / FullyReceived)
  - GRN completion needs at least one line actually received; under-
    receiving is allowed
  - PO cancellation is blocked once receiving has started

SEE ALSO:
  - conversion.go: the chains that feed the consumption-link guards
  - generic/machine.go: Check/Apply semantics
*/
package trade

import (
	"errors"
	"fmt"

	"github.com/warp/document-engine/generic"
)

// =============================================================================
// SHARED GUARDS
// =============================================================================

// guardHasLineItems requires at least one line on the document.
func guardHasLineItems() generic.Guard {
	return generic.Guard{
		Name: "HasLineItems",
		Check: func(doc *generic.Document, _ generic.TransitionContext) error {
			if len(doc.Lines) == 0 {
				return errors.New("document has no line items")
			}
			return nil
		},
	}
}

// guardBalancedEntry recomputes the document's totals and verifies any
// total declared on the wire against them. Declared totals are never
// trusted as-is.
func guardBalancedEntry() generic.Guard {
	return generic.Guard{
		Name: "BalancedEntry",
		Check: func(doc *generic.Document, _ generic.TransitionContext) error {
			return generic.VerifyBalanced(doc, generic.HalfUpAtMinorUnit)
		},
	}
}

// guardFullyPaid reads the amount_paid fact and compares it against the
// recomputed grand total. Payment application supplies the fact; there
// is no direct "mark paid" path.
func guardFullyPaid() generic.Guard {
	return generic.Guard{
		Name: "FullyPaid",
		Check: func(doc *generic.Document, tc generic.TransitionContext) error {
			paid, ok := tc.Fact(FactAmountPaid).(generic.Money)
			if !ok {
				return errors.New("payment application context missing")
			}
			totals, err := generic.CalculateDocument(doc.Lines, doc.Adjustments(), generic.HalfUpAtMinorUnit)
			if err != nil {
				return err
			}
			short, err := paid.LessThan(totals.GrandTotal)
			if err != nil {
				return err
			}
			if short {
				return fmt.Errorf("outstanding balance: paid %s of %s", paid, totals.GrandTotal)
			}
			return nil
		},
	}
}

// guardReceiptRecorded requires that at least one consumption link has
// been recorded against the purchase order.
func guardReceiptRecorded() generic.Guard {
	return generic.Guard{
		Name: "ReceiptRecorded",
		Check: func(doc *generic.Document, tc generic.TransitionContext) error {
			for _, li := range doc.Lines {
				if generic.ConsumedQuantity(tc.Links, li.ID).IsPositive() {
					return nil
				}
			}
			return errors.New("no goods receipt recorded")
		},
	}
}

// guardFullyReceived requires every PO line's remaining quantity to be zero.
func guardFullyReceived() generic.Guard {
	return generic.Guard{
		Name: "FullyReceived",
		Check: func(doc *generic.Document, tc generic.TransitionContext) error {
			for _, li := range doc.Lines {
				remaining := generic.RemainingQuantity(li, tc.Links)
				if remaining.IsPositive() {
					return fmt.Errorf("line %s has %s remaining", li.ID, remaining)
				}
			}
			return nil
		},
	}
}

// guardHasReceivedItem requires at least one line with received
// quantity > 0. Under-receiving against the order is allowed; an empty
// receipt is not.
func guardHasReceivedItem() generic.Guard {
	return generic.Guard{
		Name: "HasReceivedItem",
		Check: func(doc *generic.Document, _ generic.TransitionContext) error {
			for _, li := range doc.Lines {
				if li.Quantity.IsPositive() {
					return nil
				}
			}
			return errors.New("no item received")
		},
	}
}

// =============================================================================
// QUOTATION
// =============================================================================

func quotationWorkflow() *generic.Workflow {
	w := generic.NewWorkflow(TypeQuotation, StateDraft)
	w.MarkEditable(StateDraft)
	w.MarkDeletable(StateDraft)

	w.Add(generic.Transition{From: StateDraft, Action: ActionSubmit, To: StateSubmitted,
		Guards: []generic.Guard{guardHasLineItems()},
	})
	w.Add(generic.Transition{From: StateSubmitted, Action: ActionApprove, To: StateApproved,
		Guards: []generic.Guard{guardHasLineItems()},
	})
	w.Add(generic.Transition{From: StateSubmitted, Action: ActionReject, To: StateRejected})
	// The conversion orchestrator applies "convert" after it has built
	// the invoice; the effect declares the derived document.
	w.Add(generic.Transition{From: StateApproved, Action: ActionConvert, To: StateConverted,
		Effects: func(doc *generic.Document, tc generic.TransitionContext) []generic.SideEffect {
			return []generic.SideEffect{{
				Kind:     generic.EffectCreateDocument,
				TargetID: doc.ID,
				Payload:  map[string]any{"target_type": string(TypeInvoice)},
			}}
		},
	})
	return w
}

// =============================================================================
// INVOICE AND BILL - Ledger-style documents
// =============================================================================

func invoiceWorkflow() *generic.Workflow {
	return ledgerDocumentWorkflow(TypeInvoice)
}

func billWorkflow() *generic.Workflow {
	return ledgerDocumentWorkflow(TypeBill)
}

func ledgerDocumentWorkflow(docType DocType) *generic.Workflow {
	w := generic.NewWorkflow(docType, StateDraft)
	w.MarkEditable(StateDraft)
	w.MarkDeletable(StateDraft)

	w.Add(generic.Transition{From: StateDraft, Action: ActionPost, To: StatePosted,
		Guards: []generic.Guard{guardHasLineItems(), guardBalancedEntry()},
	})
	w.Add(generic.Transition{From: StatePosted, Action: ActionApplyPayment, To: StatePaid,
		Guards: []generic.Guard{guardFullyPaid()},
		Effects: func(doc *generic.Document, tc generic.TransitionContext) []generic.SideEffect {
			return []generic.SideEffect{{
				Kind:     generic.EffectCreatePaymentStub,
				TargetID: doc.ID,
			}}
		},
	})
	w.Add(generic.Transition{From: StatePosted, Action: ActionVoid, To: StateVoid})
	return w
}

// =============================================================================
// PURCHASE ORDER
// =============================================================================

func purchaseOrderWorkflow() *generic.Workflow {
	w := generic.NewWorkflow(TypePurchaseOrder, StateDraft)
	w.MarkEditable(StateDraft)
	w.MarkDeletable(StateDraft)

	w.Add(generic.Transition{From: StateDraft, Action: ActionSubmit, To: StatePending,
		Guards: []generic.Guard{guardHasLineItems()},
	})
	w.Add(generic.Transition{From: StatePending, Action: ActionApprove, To: StateApproved,
		Guards: []generic.Guard{guardHasLineItems()},
	})
	w.Add(generic.Transition{From: StatePending, Action: ActionReject, To: StateRejected})

	// Receipt progression is driven by goods-receipt consumption links,
	// never by direct user action. ReceiptAction picks the right edge.
	w.Add(generic.Transition{From: StateApproved, Action: ActionReceivePartial, To: StatePartial,
		Guards: []generic.Guard{guardReceiptRecorded()},
	})
	w.Add(generic.Transition{From: StatePartial, Action: ActionReceivePartial, To: StatePartial,
		Guards: []generic.Guard{guardReceiptRecorded()},
	})
	w.Add(generic.Transition{From: StateApproved, Action: ActionReceiveAll, To: StateReceived,
		Guards: []generic.Guard{guardFullyReceived()},
	})
	w.Add(generic.Transition{From: StatePartial, Action: ActionReceiveAll, To: StateReceived,
		Guards: []generic.Guard{guardFullyReceived()},
	})

	// Cancellation is blocked once receiving has started: no cancel edge
	// exists from partial or received.
	w.Add(generic.Transition{From: StateDraft, Action: ActionCancel, To: StateCancelled})
	w.Add(generic.Transition{From: StatePending, Action: ActionCancel, To: StateCancelled})
	w.Add(generic.Transition{From: StateApproved, Action: ActionCancel, To: StateCancelled})
	return w
}

// =============================================================================
// GOODS RECEIPT NOTE
// =============================================================================

func goodsReceiptWorkflow() *generic.Workflow {
	w := generic.NewWorkflow(TypeGoodsReceipt, StateDraft)
	w.MarkEditable(StateDraft, StateReceiving)
	w.MarkDeletable(StateDraft)

	w.Add(generic.Transition{From: StateDraft, Action: ActionBeginReceiving, To: StateReceiving,
		Guards: []generic.Guard{guardHasLineItems()},
	})
	// Completion is the sole trigger for inventory increment.
	w.Add(generic.Transition{From: StateReceiving, Action: ActionComplete, To: StateCompleted,
		Guards: []generic.Guard{guardHasReceivedItem()},
		Effects: func(doc *generic.Document, tc generic.TransitionContext) []generic.SideEffect {
			effects := make([]generic.SideEffect, 0, len(doc.Lines)+1)
			for _, li := range doc.Lines {
				if !li.Quantity.IsPositive() {
					continue
				}
				effects = append(effects, generic.SideEffect{
					Kind:     generic.EffectIncrementInventory,
					TargetID: doc.ID,
					Payload:  map[string]any{"line_id": string(li.ID), "quantity": li.Quantity.String()},
				})
			}
			if src := doc.SourceLink(string(TypePurchaseOrder)); src != nil {
				effects = append(effects, generic.SideEffect{
					Kind:     generic.EffectUpdateSourceStatus,
					TargetID: src.DocumentID,
				})
			}
			return effects
		},
	})
	w.Add(generic.Transition{From: StateDraft, Action: ActionCancel, To: StateCancelled})
	w.Add(generic.Transition{From: StateReceiving, Action: ActionCancel, To: StateCancelled})
	return w
}

// =============================================================================
// DELIVERY ORDER
// =============================================================================

func deliveryOrderWorkflow() *generic.Workflow {
	w := generic.NewWorkflow(TypeDeliveryOrder, StateDraft)
	w.MarkEditable(StateDraft)
	w.MarkDeletable(StateDraft)

	w.Add(generic.Transition{From: StateDraft, Action: ActionConfirm, To: StateConfirmed,
		Guards: []generic.Guard{guardHasLineItems()},
	})
	// Shipping decrements inventory and rolls delivered quantities
	// forward onto the source invoice lines.
	w.Add(generic.Transition{From: StateConfirmed, Action: ActionShip, To: StateShipped,
		Effects: shipmentEffects,
	})
	w.Add(generic.Transition{From: StateShipped, Action: ActionDeliver, To: StateDelivered,
		Effects: func(doc *generic.Document, tc generic.TransitionContext) []generic.SideEffect {
			if src := doc.SourceLink(string(TypeInvoice)); src != nil {
				return []generic.SideEffect{{
					Kind:     generic.EffectUpdateSourceStatus,
					TargetID: src.DocumentID,
				}}
			}
			return nil
		},
	})

	// Cancellation only before shipping.
	w.Add(generic.Transition{From: StateDraft, Action: ActionCancel, To: StateCancelled})
	w.Add(generic.Transition{From: StateConfirmed, Action: ActionCancel, To: StateCancelled})
	return w
}

func shipmentEffects(doc *generic.Document, _ generic.TransitionContext) []generic.SideEffect {
	effects := make([]generic.SideEffect, 0, len(doc.Lines))
	for _, li := range doc.Lines {
		if !li.Quantity.IsPositive() {
			continue
		}
		effects = append(effects, generic.SideEffect{
			Kind:     generic.EffectDecrementInventory,
			TargetID: doc.ID,
			Payload:  map[string]any{"line_id": string(li.ID), "quantity": li.Quantity.String()},
		})
	}
	return effects
}

// =============================================================================
// RETURNS - Sales and purchase returns share a table
// =============================================================================

func returnWorkflow(docType DocType) *generic.Workflow {
	w := generic.NewWorkflow(docType, StateDraft)
	w.MarkEditable(StateDraft)
	w.MarkDeletable(StateDraft)

	w.Add(generic.Transition{From: StateDraft, Action: ActionSubmit, To: StateSubmitted,
		Guards: []generic.Guard{guardHasLineItems()},
	})
	w.Add(generic.Transition{From: StateSubmitted, Action: ActionApprove, To: StateApproved})
	w.Add(generic.Transition{From: StateSubmitted, Action: ActionReject, To: StateRejected})
	w.Add(generic.Transition{From: StateApproved, Action: ActionComplete, To: StateCompleted,
		Effects: func(doc *generic.Document, tc generic.TransitionContext) []generic.SideEffect {
			// Returned goods flow back into stock.
			kind := generic.EffectIncrementInventory
			if doc.Type.TypeID() == string(TypePurchaseReturn) {
				kind = generic.EffectDecrementInventory
			}
			effects := make([]generic.SideEffect, 0, len(doc.Lines))
			for _, li := range doc.Lines {
				effects = append(effects, generic.SideEffect{
					Kind:     kind,
					TargetID: doc.ID,
					Payload:  map[string]any{"line_id": string(li.ID), "quantity": li.Quantity.String()},
				})
			}
			return effects
		},
	})
	w.Add(generic.Transition{From: StateDraft, Action: ActionCancel, To: StateCancelled})
	return w
}
