/*
downpayment.go - Down payment application and refund accounting

PURPOSE:
  A down payment is a degenerate conversion source: its "line" is the
  remaining monetary balance. Applications and refunds are recorded as
  amount-kind conversion links, so the same append-only link history
  that guards over-receiving also guards over-application:

      available = received - sum(applied) - sum(refunded)

  Applying or refunding more than available is rejected with
  OverConsumptionError carrying the exact remaining balance.

SEE ALSO:
  - generic/convert.go: the link kinds used here
  - workflows.go: the FullySettled guard built on Available
*/
package finance

import (
	"fmt"
	"time"

	"github.com/warp/document-engine/generic"
)

// ReceivedAmount returns the total amount the down payment holds: the
// sum of its line amounts (quantity x unit price), rounded.
func ReceivedAmount(dp *generic.Document) (generic.Money, error) {
	totals, err := generic.CalculateDocument(dp.Lines, dp.Adjustments(), generic.HalfUpAtMinorUnit)
	if err != nil {
		return generic.Money{}, err
	}
	return totals.GrandTotal, nil
}

// AppliedAmount sums all applications recorded against the down payment.
func AppliedAmount(dp *generic.Document, links []generic.ConversionLink) (generic.Money, error) {
	return sumAmountLinks(dp, links, generic.LinkAmountApplied)
}

// RefundedAmount sums all refunds recorded against the down payment.
func RefundedAmount(dp *generic.Document, links []generic.ConversionLink) (generic.Money, error) {
	return sumAmountLinks(dp, links, generic.LinkAmountRefunded)
}

func sumAmountLinks(dp *generic.Document, links []generic.ConversionLink, kind generic.LinkKind) (generic.Money, error) {
	total := generic.ZeroMoney(dp.Currency)
	var err error
	for _, l := range links {
		if l.SourceDocumentID != dp.ID || l.Kind != kind {
			continue
		}
		if total, err = total.Add(l.Amount); err != nil {
			return generic.Money{}, err
		}
	}
	return total, nil
}

// Available returns what is left to apply:
// received - sum(applied) - sum(refunded).
func Available(dp *generic.Document, links []generic.ConversionLink) (generic.Money, error) {
	received, err := ReceivedAmount(dp)
	if err != nil {
		return generic.Money{}, err
	}
	applied, err := AppliedAmount(dp, links)
	if err != nil {
		return generic.Money{}, err
	}
	refunded, err := RefundedAmount(dp, links)
	if err != nil {
		return generic.Money{}, err
	}

	out, err := received.Sub(applied)
	if err != nil {
		return generic.Money{}, err
	}
	return out.Sub(refunded)
}

// ApplicationRequest asks to apply part of a down payment's balance to
// an invoice or bill.
type ApplicationRequest struct {
	DownPayment   *generic.Document
	TargetID      generic.DocumentID
	Amount        generic.Money
	ExistingLinks []generic.ConversionLink
	Now           time.Time
}

// Apply validates the request against the available balance and returns
// the amount link to persist. Pure: the caller persists the link and
// re-derives the invoice's paid amount from the link history.
func Apply(req ApplicationRequest) (*generic.ConversionLink, error) {
	return consumeBalance(req, generic.LinkAmountApplied)
}

// Refund returns part of the balance to the payer. Refunds reduce what
// remains available for application.
func Refund(req ApplicationRequest) (*generic.ConversionLink, error) {
	return consumeBalance(req, generic.LinkAmountRefunded)
}

func consumeBalance(req ApplicationRequest, kind generic.LinkKind) (*generic.ConversionLink, error) {
	dp := req.DownPayment

	if dp.Status != StateReceived {
		return nil, &generic.TransitionError{
			DocumentType:  dp.Type.TypeID(),
			From:          dp.Status,
			Action:        generic.Action(kind),
			ViolatedGuard: "NotReceived",
			Detail:        "down payment must be received before its balance can be consumed",
		}
	}
	if !req.Amount.IsPositive() {
		return nil, &generic.InvalidLineItemError{Field: "amount", Reason: "must be positive"}
	}

	available, err := Available(dp, req.ExistingLinks)
	if err != nil {
		return nil, err
	}

	over, err := req.Amount.GreaterThan(available)
	if err != nil {
		return nil, err
	}
	if over {
		var lineID generic.LineItemID
		if len(dp.Lines) > 0 {
			lineID = dp.Lines[0].ID
		}
		return nil, &generic.OverConsumptionError{
			SourceLineID: lineID,
			Requested:    req.Amount.Value,
			Remaining:    available.Value,
		}
	}

	return &generic.ConversionLink{
		ID:                generic.LinkID(fmt.Sprintf("%s-%s-%d", dp.ID, kind, len(req.ExistingLinks)+1)),
		Kind:              kind,
		SourceDocumentID:  dp.ID,
		DerivedDocumentID: req.TargetID,
		Amount:            req.Amount,
		CreatedAt:         req.Now,
	}, nil
}
