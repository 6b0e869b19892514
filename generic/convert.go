/*
convert.go - Cross-document conversion orchestration

PURPOSE:
  Creates a new document from an existing one (Quotation -> Invoice,
  PO -> Goods Receipt, Invoice -> Delivery Order, ...), propagating
  quantities and enforcing that a source line is never over-consumed
  across all of its derived documents.

CONSUMPTION ACCOUNTING:
  Every conversion records one ConversionLink per consumed source line.
  The invariant:

      sum(consumed over all links of a source line) <= source line quantity

  is checked against the caller-supplied set of existing links BEFORE the
  new document is built. The (N+1)-th conversion that would break it
  fails with OverConsumptionError carrying the exact remaining amount.

FULL vs PARTIAL:
  Full conversions (Quotation -> Invoice) copy every line verbatim and
  leave totals to be recomputed by the calculation engine - totals are
  never copied, because tax rules or rounding policy may differ at the
  point of conversion. Partial conversions take a per-line Selection.

AMOUNT LINKS:
  Down-payment application is a degenerate conversion where the "line"
  is the remaining balance. Those links carry a Money amount instead of
  a quantity; the finance package builds on them.

PURITY:
  Convert performs no I/O. The caller supplies the source snapshot, the
  existing links, the new document's ID and the clock, and persists the
  result plus links atomically.

SEE ALSO:
  - registry.go: conversion rule registration
  - trade/conversion.go: the trade document chains
  - finance/downpayment.go: amount-based application
*/
package generic

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CONVERSION LINKS
// =============================================================================

type LinkKind string

const (
	// LinkQuantity consumes units of a source line (PO -> GRN receipts,
	// Invoice -> DO shipments).
	LinkQuantity LinkKind = "quantity"

	// LinkAmountApplied consumes monetary balance of a source document
	// (down payment applied to an invoice).
	LinkAmountApplied LinkKind = "amount_applied"

	// LinkAmountRefunded returns monetary balance to the payer; it also
	// reduces what remains available for application.
	LinkAmountRefunded LinkKind = "amount_refunded"
)

// ConversionLink records that a derived document consumed part of a
// source line. Persisted alongside the derived document; the sum of
// consumed amounts per source line is the over-consumption guard.
type ConversionLink struct {
	ID                LinkID
	Kind              LinkKind
	SourceDocumentID  DocumentID
	SourceLineID      LineItemID
	DerivedDocumentID DocumentID
	DerivedLineID     LineItemID

	// Quantity consumed, for LinkQuantity links.
	Quantity decimal.Decimal

	// Amount consumed, for amount links.
	Amount Money

	CreatedAt time.Time
}

// ConsumedQuantity sums the quantity consumed from one source line
// across a set of links.
func ConsumedQuantity(links []ConversionLink, sourceLineID LineItemID) decimal.Decimal {
	total := decimal.Zero
	for _, l := range links {
		if l.Kind == LinkQuantity && l.SourceLineID == sourceLineID {
			total = total.Add(l.Quantity)
		}
	}
	return total
}

// RemainingQuantity returns how much of a source line is still
// unconsumed given the existing links.
func RemainingQuantity(line LineItem, links []ConversionLink) decimal.Decimal {
	return line.Quantity.Sub(ConsumedQuantity(links, line.ID))
}

// FullyConsumed reports whether every line of the source document has
// zero remaining quantity.
func FullyConsumed(source *Document, links []ConversionLink) bool {
	for _, li := range source.Lines {
		if RemainingQuantity(li, links).IsPositive() {
			return false
		}
	}
	return true
}

// =============================================================================
// CONVERSION RULES
// =============================================================================

type ConversionMode string

const (
	// ConvertFull copies every source line in full.
	ConvertFull ConversionMode = "full"

	// ConvertPartial takes a per-line Selection of quantities.
	ConvertPartial ConversionMode = "partial"
)

// ConversionSpec declares one legal source -> target conversion.
// Domain packages register these next to their workflows.
type ConversionSpec struct {
	Source DocumentType
	Target DocumentType
	Mode   ConversionMode

	// EligibleStates lists the source states conversion is allowed from.
	EligibleStates []State

	// SourceAction, when set, is the lifecycle action the caller should
	// apply to the source after a successful conversion (e.g. a quotation
	// moves to "converted").
	SourceAction Action

	// BuildLine customizes the derived line. Defaults to a verbatim copy
	// with the selected quantity.
	BuildLine func(src LineItem, selected decimal.Decimal) LineItem
}

func (cs ConversionSpec) eligibleFrom(state State) bool {
	for _, s := range cs.EligibleStates {
		if s == state {
			return true
		}
	}
	return false
}

// =============================================================================
// SELECTION
// =============================================================================

// LineSelection picks a quantity from one source line.
type LineSelection struct {
	SourceLineID LineItemID
	Quantity     decimal.Decimal
}

// Selection specifies what a partial conversion consumes.
type Selection struct {
	Lines []LineSelection
}

// =============================================================================
// ORCHESTRATOR
// =============================================================================

// ConversionRequest carries everything Convert needs: the source
// snapshot, the target type, the selection (partial mode only), the
// links already consuming the source, and identity/clock inputs.
type ConversionRequest struct {
	Source        *Document
	Target        DocumentType
	Selection     Selection
	ExistingLinks []ConversionLink
	NewDocumentID DocumentID
	Now           time.Time
}

// ConversionResult is the fully-formed derived document plus the links
// to persist. The derived document starts in its workflow's initial
// state with totals left to the calculation engine.
type ConversionResult struct {
	Document    *Document
	Links       []ConversionLink
	SideEffects []SideEffect
}

// Convert creates a new document from a source per the registered
// conversion rule. It validates source-state eligibility (same error
// taxonomy as transitions) and the over-consumption invariant, then
// builds the derived document and its links. No I/O.
func Convert(req ConversionRequest) (*ConversionResult, error) {
	spec, ok := LookupConversion(req.Source.Type.TypeID(), req.Target.TypeID())
	if !ok {
		return nil, &TransitionError{
			DocumentType:  req.Source.Type.TypeID(),
			From:          req.Source.Status,
			Action:        Action("convert:" + req.Target.TypeID()),
			ViolatedGuard: "UndefinedConversion",
		}
	}

	if !spec.eligibleFrom(req.Source.Status) {
		return nil, &TransitionError{
			DocumentType:  req.Source.Type.TypeID(),
			From:          req.Source.Status,
			Action:        Action("convert:" + req.Target.TypeID()),
			ViolatedGuard: "NotConvertible",
			Detail:        "source state does not allow conversion",
		}
	}

	selections, err := resolveSelections(spec, req)
	if err != nil {
		return nil, err
	}

	workflow := MustLookupWorkflow(spec.Target.TypeID())

	derived := &Document{
		ID:           req.NewDocumentID,
		Type:         spec.Target,
		Status:       workflow.Initial(),
		Currency:     req.Source.Currency,
		ExchangeRate: req.Source.ExchangeRate,
		BaseCurrency: req.Source.BaseCurrency,
		CreatedAt:    req.Now,
		UpdatedAt:    req.Now,
		Links: []LinkReference{{
			Relation:   LinkSource,
			DocumentID: req.Source.ID,
			TypeID:     req.Source.Type.TypeID(),
		}},
	}

	var links []ConversionLink
	for i, sel := range selections {
		src := req.Source.Line(sel.SourceLineID)

		var line LineItem
		if spec.BuildLine != nil {
			line = spec.BuildLine(*src, sel.Quantity)
		} else {
			line = *src
			line.Quantity = sel.Quantity
		}
		if line.ID == "" || line.ID == src.ID {
			line.ID = deriveLineID(req.NewDocumentID, i)
		}
		derived.Lines = append(derived.Lines, line)

		links = append(links, ConversionLink{
			ID:                LinkID(fmt.Sprintf("%s-link-%d", req.NewDocumentID, i+1)),
			Kind:              LinkQuantity,
			SourceDocumentID:  req.Source.ID,
			SourceLineID:      sel.SourceLineID,
			DerivedDocumentID: req.NewDocumentID,
			DerivedLineID:     line.ID,
			Quantity:          sel.Quantity,
			CreatedAt:         req.Now,
		})
	}

	// Totals are recomputed, never copied: reject a derived document the
	// calculation engine would refuse.
	if _, err := CalculateDocument(derived.Lines, derived.Adjustments(), HalfUpAtMinorUnit); err != nil {
		return nil, err
	}

	effects := []SideEffect{{
		Kind:     EffectRecordLinks,
		TargetID: req.Source.ID,
		Payload:  map[string]any{"derived_document_id": string(req.NewDocumentID)},
	}}

	return &ConversionResult{Document: derived, Links: links, SideEffects: effects}, nil
}

// resolveSelections turns the request into a validated per-line list.
// Full mode selects every line in full; partial mode validates the
// caller's selection against the remaining quantities.
func resolveSelections(spec ConversionSpec, req ConversionRequest) ([]LineSelection, error) {
	if spec.Mode == ConvertFull {
		out := make([]LineSelection, 0, len(req.Source.Lines))
		for _, li := range req.Source.Lines {
			remaining := RemainingQuantity(li, req.ExistingLinks)
			if remaining.LessThan(li.Quantity) {
				return nil, &OverConsumptionError{
					SourceLineID: li.ID,
					Requested:    li.Quantity,
					Remaining:    remaining,
				}
			}
			out = append(out, LineSelection{SourceLineID: li.ID, Quantity: li.Quantity})
		}
		return out, nil
	}

	if len(req.Selection.Lines) == 0 {
		return nil, &InvalidLineItemError{Field: "selection", Reason: "partial conversion requires at least one line"}
	}

	// Selections naming the same source line accumulate: the remaining
	// check runs against existing links PLUS what this request already
	// claimed, so duplicates cannot sidestep the invariant.
	claimed := make(map[LineItemID]decimal.Decimal, len(req.Selection.Lines))

	out := make([]LineSelection, 0, len(req.Selection.Lines))
	for _, sel := range req.Selection.Lines {
		src := req.Source.Line(sel.SourceLineID)
		if src == nil {
			return nil, &InvalidLineItemError{
				LineID: sel.SourceLineID, Field: "selection", Reason: "source line not found",
			}
		}
		if !sel.Quantity.IsPositive() {
			return nil, &InvalidLineItemError{
				LineID: sel.SourceLineID, Field: "selection", Reason: "quantity must be positive",
			}
		}

		remaining := RemainingQuantity(*src, req.ExistingLinks).Sub(claimed[sel.SourceLineID])
		if sel.Quantity.GreaterThan(remaining) {
			return nil, &OverConsumptionError{
				SourceLineID: sel.SourceLineID,
				Requested:    sel.Quantity,
				Remaining:    remaining,
			}
		}
		claimed[sel.SourceLineID] = claimed[sel.SourceLineID].Add(sel.Quantity)
		out = append(out, sel)
	}
	return out, nil
}

func deriveLineID(docID DocumentID, index int) LineItemID {
	return LineItemID(fmt.Sprintf("%s-line-%d", docID, index+1))
}
