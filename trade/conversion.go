/*
conversion.go - Trade document conversion chains

PURPOSE:
  Declares the legal source -> target conversions between trading
  documents and the roll-forward helpers that keep source statuses in
  step with consumption:

    Quotation -> Invoice          full copy, totals recomputed
    PO -> Goods Receipt           partial, by received quantity
    Goods Receipt -> Bill         full copy of the received lines
    Invoice -> Delivery Order     partial, by shipped quantity
    Invoice -> Sales Return       partial
    Bill -> Purchase Return       partial

ROLL-FORWARD:
  A purchase order never moves to partial/received by user action. When
  a goods receipt completes, the caller fetches the PO's consumption
  links and applies whatever ReceiptAction picks: receive_partial while
  quantity remains, receive_all when every line hits zero remaining.

SEE ALSO:
  - generic/convert.go: the orchestrator these specs feed
  - workflows.go: the guards the roll-forward actions re-check
*/
package trade

import (
	"github.com/shopspring/decimal"

	"github.com/warp/document-engine/generic"
)

func registerConversions() {
	generic.RegisterConversion(generic.ConversionSpec{
		Source:         TypeQuotation,
		Target:         TypeInvoice,
		Mode:           generic.ConvertFull,
		EligibleStates: []generic.State{StateApproved},
		SourceAction:   ActionConvert,
	})

	generic.RegisterConversion(generic.ConversionSpec{
		Source:         TypePurchaseOrder,
		Target:         TypeGoodsReceipt,
		Mode:           generic.ConvertPartial,
		EligibleStates: []generic.State{StateApproved, StatePartial},
	})

	generic.RegisterConversion(generic.ConversionSpec{
		Source:         TypeGoodsReceipt,
		Target:         TypeBill,
		Mode:           generic.ConvertFull,
		EligibleStates: []generic.State{StateCompleted},
	})

	generic.RegisterConversion(generic.ConversionSpec{
		Source:         TypeInvoice,
		Target:         TypeDeliveryOrder,
		Mode:           generic.ConvertPartial,
		EligibleStates: []generic.State{StatePosted},
	})

	generic.RegisterConversion(generic.ConversionSpec{
		Source:         TypeInvoice,
		Target:         TypeSalesReturn,
		Mode:           generic.ConvertPartial,
		EligibleStates: []generic.State{StatePosted, StatePaid},
	})

	generic.RegisterConversion(generic.ConversionSpec{
		Source:         TypeBill,
		Target:         TypePurchaseReturn,
		Mode:           generic.ConvertPartial,
		EligibleStates: []generic.State{StatePosted, StatePaid},
	})
}

// =============================================================================
// PURCHASE ORDER ROLL-FORWARD
// =============================================================================

// ReceiptAction picks the lifecycle action a purchase order should take
// after receipt links changed: receive_all when nothing remains,
// receive_partial while something does, none when nothing was received.
func ReceiptAction(po *generic.Document, links []generic.ConversionLink) (generic.Action, bool) {
	anyConsumed := false
	allConsumed := true
	for _, li := range po.Lines {
		consumed := generic.ConsumedQuantity(links, li.ID)
		if consumed.IsPositive() {
			anyConsumed = true
		}
		if generic.RemainingQuantity(li, links).IsPositive() {
			allConsumed = false
		}
	}
	switch {
	case anyConsumed && allConsumed:
		return ActionReceiveAll, true
	case anyConsumed:
		return ActionReceivePartial, true
	default:
		return "", false
	}
}

// RollForwardPurchaseOrder applies the receipt-driven transition to a
// purchase order given the current consumption links. Returns nil when
// no receipt has been recorded yet.
func RollForwardPurchaseOrder(po *generic.Document, links []generic.ConversionLink, tc generic.TransitionContext) (*generic.TransitionResult, error) {
	action, ok := ReceiptAction(po, links)
	if !ok {
		return nil, nil
	}
	tc.Links = links
	return generic.MustLookupWorkflow(string(TypePurchaseOrder)).Apply(po, action, tc)
}

// =============================================================================
// INVOICE DELIVERY PROGRESS
// =============================================================================

// DeliveredQuantity returns how much of an invoice line has been
// consumed by delivery orders.
func DeliveredQuantity(links []generic.ConversionLink, lineID generic.LineItemID) decimal.Decimal {
	return generic.ConsumedQuantity(links, lineID)
}

// FullyDelivered reports whether every invoice line has been fully
// consumed by delivery orders.
func FullyDelivered(invoice *generic.Document, links []generic.ConversionLink) bool {
	return generic.FullyConsumed(invoice, links)
}
