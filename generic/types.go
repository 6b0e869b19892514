/*
Package generic provides the core document lifecycle engine.

PURPOSE:
  This package contains domain-agnostic types and algorithms for managing
  business documents with a finite-state lifecycle. Whether the document
  is a quotation, an invoice, or a bank transaction, the same engine
  handles guarded transitions, total calculation, and cross-document
  conversion accounting.

KEY CONCEPTS IN THIS FILE (types.go):
  - Document: The generic envelope - identity, type tag, status, lines,
    adjustments, link references
  - LineItem: A priced quantity with its own discount and tax rate
  - Totals: Computed amounts - always derived, never independently mutated
  - SideEffect: A declaration of work for the persistence layer, returned
    by transitions and conversions; the engine itself performs no I/O

DESIGN PRINCIPLES:
  1. Purity: Every function takes the document as an explicit argument and
     returns new values. No global mutable state, no hidden I/O.
  2. Precision: All money flows through Money (shopspring/decimal).
  3. Derived state: can_edit / can_submit / totals are computed from the
     transition table and the line items, never stored as booleans.
  4. Tagged variants: New document types are added by declaring a new
     workflow table, not by subclassing.

USAGE:
  doc := generic.Document{
      ID:       "inv-001",
      Type:     trade.TypeInvoice,
      Status:   "draft",
      Currency: generic.CurrencyIDR,
      Lines:    []generic.LineItem{...},
  }
  totals, err := generic.CalculateDocument(doc.Lines, doc.Adjustments(), generic.HalfUpAtMinorUnit)

SEE ALSO:
  - machine.go: Workflow tables and transitions
  - calc.go: Total calculation
  - convert.go: Cross-document conversions
*/
package generic

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type DocumentID string
type LineItemID string
type LinkID string

// State is a lifecycle state ("draft", "posted", "reconciled", ...).
type State string

// Action is a user- or system-invoked operation on a document
// ("submit", "approve", "post", "reconcile", ...).
type Action string

// =============================================================================
// DOCUMENT TYPE - Tagged variant, implemented by domain packages
// =============================================================================

// DocumentType identifies what kind of document is being managed.
// This is an interface so domain packages define their own concrete types;
// the generic package has NO knowledge of specific document types.
//
// Domain packages implement this:
//
//	// In trade/types.go
//	type DocType string
//	func (d DocType) TypeID() string     { return string(d) }
//	func (d DocType) TypeDomain() string { return "trade" }
//	const TypeInvoice DocType = "invoice"
type DocumentType interface {
	// TypeID returns the unique identifier for this document type.
	TypeID() string

	// TypeDomain returns which domain this document type belongs to.
	TypeDomain() string
}

// =============================================================================
// DISCOUNT - Percentage OR fixed, never both
// =============================================================================

type DiscountKind string

const (
	DiscountNone       DiscountKind = "none"
	DiscountPercentage DiscountKind = "percentage"
	DiscountFixed      DiscountKind = "fixed"
)

// Discount is a document-configurable reduction: a percentage of the base
// (0-100) or a fixed Money amount. The kind decides which field applies.
type Discount struct {
	Kind    DiscountKind
	Percent decimal.Decimal
	Fixed   Money
}

// NoDiscount is the zero discount.
func NoDiscount() Discount { return Discount{Kind: DiscountNone} }

// PercentDiscount builds a percentage discount (0-100).
func PercentDiscount(percent decimal.Decimal) Discount {
	return Discount{Kind: DiscountPercentage, Percent: percent}
}

// FixedDiscount builds a fixed-amount discount.
func FixedDiscount(amount Money) Discount {
	return Discount{Kind: DiscountFixed, Fixed: amount}
}

// =============================================================================
// LINE ITEM
// =============================================================================

// LineItem belongs to exactly one Document.
type LineItem struct {
	ID          LineItemID
	Description string

	// Quantity is a non-negative decimal. Zero is permitted (audit lines);
	// negative quantities are rejected by the calculation engine.
	Quantity decimal.Decimal

	UnitPrice Money
	Discount  Discount

	// TaxRate is a percentage (0-100). Per-line rates let some items be
	// tax-exempt while others are not.
	TaxRate decimal.Decimal
}

// Gross returns quantity x unit price, unrounded.
func (li LineItem) Gross() Money {
	return li.UnitPrice.MulDecimal(li.Quantity)
}

// =============================================================================
// LINK REFERENCES - Source/derived relations between documents
// =============================================================================

type LinkRelation string

const (
	LinkSource  LinkRelation = "source"  // the document this one was derived from
	LinkDerived LinkRelation = "derived" // a document derived from this one
)

// LinkReference records that this document is related to another one
// (an Invoice holds a source reference to its Quotation, and the
// Quotation holds the mirror derived reference).
type LinkReference struct {
	Relation   LinkRelation
	DocumentID DocumentID
	TypeID     string
}

// =============================================================================
// DOCUMENT - The generic envelope
// =============================================================================

// Document is the generic envelope for every business document.
// Totals are always a pure function of Lines + adjustments; they are
// recomputed, never trusted from input.
type Document struct {
	ID     DocumentID
	Type   DocumentType
	Status State

	Lines []LineItem

	// Document-level adjustments
	DocumentDiscount Discount
	Currency         Currency

	// Multi-currency: explicit rate to the base currency, applied at
	// calculation time. A zero/one rate means single-currency.
	ExchangeRate decimal.Decimal
	BaseCurrency Currency

	// Links to source/derived documents
	Links []LinkReference

	// DeclaredTotal is the grand total the submitter stated on the wire,
	// when one was stated. Posting guards check it against the recomputed
	// total; it is never used as the total itself.
	DeclaredTotal *Money

	// Version supports optimistic concurrency at the persistence boundary.
	Version int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Adjustments bundles the document-level inputs to the calculation engine.
func (d *Document) Adjustments() DocumentAdjustments {
	return DocumentAdjustments{
		Discount:     d.DocumentDiscount,
		Currency:     d.Currency,
		ExchangeRate: d.ExchangeRate,
		BaseCurrency: d.BaseCurrency,
	}
}

// Line returns the line with the given ID, or nil.
func (d *Document) Line(id LineItemID) *LineItem {
	for i := range d.Lines {
		if d.Lines[i].ID == id {
			return &d.Lines[i]
		}
	}
	return nil
}

// SourceLink returns the first source reference of the given type, or nil.
func (d *Document) SourceLink(typeID string) *LinkReference {
	for i := range d.Links {
		if d.Links[i].Relation == LinkSource && d.Links[i].TypeID == typeID {
			return &d.Links[i]
		}
	}
	return nil
}

// Clone returns a deep copy. Transitions operate on copies so a failed
// apply never leaves a half-mutated document behind.
func (d *Document) Clone() *Document {
	out := *d
	out.Lines = make([]LineItem, len(d.Lines))
	copy(out.Lines, d.Lines)
	out.Links = make([]LinkReference, len(d.Links))
	copy(out.Links, d.Links)
	if d.DeclaredTotal != nil {
		declared := *d.DeclaredTotal
		out.DeclaredTotal = &declared
	}
	return &out
}

// =============================================================================
// SIDE EFFECTS - Declared by the engine, executed by the caller
// =============================================================================

type SideEffectKind string

const (
	EffectCreateDocument     SideEffectKind = "create_document"
	EffectIncrementInventory SideEffectKind = "increment_inventory"
	EffectDecrementInventory SideEffectKind = "decrement_inventory"
	EffectUpdateSourceStatus SideEffectKind = "update_source_status"
	EffectCreatePaymentStub  SideEffectKind = "create_payment_stub"
	EffectRecordLinks        SideEffectKind = "record_links"
)

// SideEffect declares work the persistence layer must execute after a
// transition or conversion. The core never performs these itself.
type SideEffect struct {
	Kind     SideEffectKind
	TargetID DocumentID
	Payload  map[string]any
}
