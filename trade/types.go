/*
Package trade implements the trading document workflows.
It uses the generic engine with trade-specific transition tables and
conversion chains (Quotation -> Invoice, PO -> Goods Receipt -> Bill,
Invoice -> Delivery Order, Invoice/Bill -> Returns).
*/
package trade

import "github.com/warp/document-engine/generic"

// =============================================================================
// TRADE DOCUMENT TYPES
// =============================================================================

// DocType is the concrete document type for the trade domain.
// Implements generic.DocumentType.
type DocType string

func (d DocType) TypeID() string     { return string(d) }
func (d DocType) TypeDomain() string { return "trade" }

// Compile-time check that DocType implements generic.DocumentType
var _ generic.DocumentType = DocType("")

const (
	TypeQuotation      DocType = "quotation"
	TypeInvoice        DocType = "invoice"
	TypePurchaseOrder  DocType = "purchase_order"
	TypeGoodsReceipt   DocType = "goods_receipt"
	TypeDeliveryOrder  DocType = "delivery_order"
	TypeBill           DocType = "bill"
	TypeSalesReturn    DocType = "sales_return"
	TypePurchaseReturn DocType = "purchase_return"
)

// =============================================================================
// STATES
// =============================================================================

const (
	StateDraft     generic.State = "draft"
	StateSubmitted generic.State = "submitted"
	StateApproved  generic.State = "approved"
	StateRejected  generic.State = "rejected"
	StateConverted generic.State = "converted"
	StatePosted    generic.State = "posted"
	StatePaid      generic.State = "paid"
	StateVoid      generic.State = "void"
	StatePending   generic.State = "pending"
	StatePartial   generic.State = "partial"
	StateReceived  generic.State = "received"
	StateReceiving generic.State = "receiving"
	StateCompleted generic.State = "completed"
	StateCancelled generic.State = "cancelled"
	StateConfirmed generic.State = "confirmed"
	StateShipped   generic.State = "shipped"
	StateDelivered generic.State = "delivered"
)

// =============================================================================
// ACTIONS
// =============================================================================

const (
	ActionSubmit         generic.Action = "submit"
	ActionApprove        generic.Action = "approve"
	ActionReject         generic.Action = "reject"
	ActionConvert        generic.Action = "convert"
	ActionPost           generic.Action = "post"
	ActionApplyPayment   generic.Action = "apply_payment"
	ActionVoid           generic.Action = "void"
	ActionCancel         generic.Action = "cancel"
	ActionBeginReceiving generic.Action = "begin_receiving"
	ActionComplete       generic.Action = "complete"
	ActionReceivePartial generic.Action = "receive_partial"
	ActionReceiveAll     generic.Action = "receive_all"
	ActionConfirm        generic.Action = "confirm"
	ActionShip           generic.Action = "ship"
	ActionDeliver        generic.Action = "deliver"
)

// FactAmountPaid is the TransitionContext fact carrying the cumulative
// payment applied to an invoice or bill, as a generic.Money.
const FactAmountPaid = "amount_paid"

// Register all trade workflows and conversion rules with the generic
// registry. Workflow tables live in workflows.go, conversion rules in
// conversion.go.
func init() {
	generic.RegisterWorkflow(quotationWorkflow())
	generic.RegisterWorkflow(invoiceWorkflow())
	generic.RegisterWorkflow(purchaseOrderWorkflow())
	generic.RegisterWorkflow(goodsReceiptWorkflow())
	generic.RegisterWorkflow(deliveryOrderWorkflow())
	generic.RegisterWorkflow(billWorkflow())
	generic.RegisterWorkflow(returnWorkflow(TypeSalesReturn))
	generic.RegisterWorkflow(returnWorkflow(TypePurchaseReturn))

	registerConversions()
}
