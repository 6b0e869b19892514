/*
Package factory provides JSON to Go document conversion.

PURPOSE:
  Converts JSON document payloads into generic.Document objects and back.
  This is the only boundary where loosely-typed numbers exist: amounts
  arrive as JSON strings and are converted into Money and decimal
  quantities explicitly, never via float64.

WHY STRINGS FOR AMOUNTS?
  - float64 cannot represent 0.1 exactly; monetary JSON uses strings
  - Conversion failures surface as InvalidLineItemError at the boundary
  - Everything past the factory is exact decimal arithmetic

JSON SCHEMA:
  {
    "id": "inv-2024-001",
    "type": "invoice",
    "currency": "IDR",
    "exchange_rate": "1",
    "document_discount": {"kind": "percentage", "value": "10"},
    "declared_total": "255300",
    "lines": [
      {
        "id": "line-1",
        "description": "Widget",
        "quantity": "20",
        "unit_price": "10000",
        "tax_rate": "11",
        "discount": {"kind": "fixed", "value": "20000"}
      }
    ]
  }

KEY FEATURES:
  - Validates line fields and rejects malformed numbers
  - Generates UUID line IDs when omitted
  - Unknown document types are rejected before a Document is built
  - ToJSON round-trips a Document for API responses and storage

USAGE:
  factory := NewDocumentFactory()
  doc, err := factory.ParseDocument(jsonStr)

SEE ALSO:
  - generic/types.go: Document and LineItem definitions
  - store/sqlite: persists documents through this codec
  - api/dto.go: request/response shapes built on these types
*/
package factory

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/document-engine/generic"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// DocumentJSON is the JSON representation of a document.
type DocumentJSON struct {
	ID               string         `json:"id,omitempty"`
	Type             string         `json:"type"`
	Status           string         `json:"status,omitempty"`
	Currency         string         `json:"currency"`
	ExchangeRate     string         `json:"exchange_rate,omitempty"`
	BaseCurrency     string         `json:"base_currency,omitempty"`
	DocumentDiscount *DiscountJSON  `json:"document_discount,omitempty"`
	DeclaredTotal    string         `json:"declared_total,omitempty"`
	Lines            []LineItemJSON `json:"lines"`
	Links            []LinkJSON     `json:"links,omitempty"`
	Version          int64          `json:"version,omitempty"`
	CreatedAt        string         `json:"created_at,omitempty"`
	UpdatedAt        string         `json:"updated_at,omitempty"`
}

// LineItemJSON is the JSON representation of a line item. All numeric
// fields are decimal strings.
type LineItemJSON struct {
	ID          string        `json:"id,omitempty"`
	Description string        `json:"description"`
	Quantity    string        `json:"quantity"`
	UnitPrice   string        `json:"unit_price"`
	TaxRate     string        `json:"tax_rate,omitempty"`
	Discount    *DiscountJSON `json:"discount,omitempty"`
}

// DiscountJSON represents a discount at line or document level.
type DiscountJSON struct {
	Kind  string `json:"kind"` // percentage, fixed
	Value string `json:"value"`
}

// LinkJSON is the JSON representation of a document relationship.
type LinkJSON struct {
	Relation   string `json:"relation"` // source, derived
	DocumentID string `json:"document_id"`
	Type       string `json:"type"`
}

// =============================================================================
// DOCUMENT FACTORY
// =============================================================================

// DocumentFactory converts JSON documents to Go structs.
type DocumentFactory struct{}

// NewDocumentFactory creates a new document factory.
func NewDocumentFactory() *DocumentFactory {
	return &DocumentFactory{}
}

// ParseDocument parses a JSON string into a Document.
func (f *DocumentFactory) ParseDocument(jsonStr string) (*generic.Document, error) {
	var dj DocumentJSON
	if err := json.Unmarshal([]byte(jsonStr), &dj); err != nil {
		return nil, fmt.Errorf("failed to parse document JSON: %w", err)
	}
	return f.FromJSON(dj)
}

// FromJSON converts DocumentJSON to a generic.Document. The document
// type must be registered; the initial state comes from its workflow
// when the status field is empty.
func (f *DocumentFactory) FromJSON(dj DocumentJSON) (*generic.Document, error) {
	wf := generic.LookupWorkflow(dj.Type)
	if wf == nil {
		return nil, fmt.Errorf("unknown document type: %q", dj.Type)
	}

	if dj.Currency == "" {
		return nil, fmt.Errorf("document currency is required")
	}
	currency := generic.Currency(dj.Currency)

	doc := &generic.Document{
		ID:       generic.DocumentID(dj.ID),
		Type:     wf.DocType(),
		Currency: currency,
		Version:  dj.Version,
	}
	if doc.ID == "" {
		doc.ID = generic.DocumentID(uuid.NewString())
	}

	if dj.Status != "" {
		doc.Status = generic.State(dj.Status)
	} else {
		doc.Status = wf.Initial()
	}

	if dj.ExchangeRate != "" {
		rate, err := decimal.NewFromString(dj.ExchangeRate)
		if err != nil {
			return nil, fmt.Errorf("invalid exchange_rate %q: %w", dj.ExchangeRate, err)
		}
		doc.ExchangeRate = rate
		doc.BaseCurrency = generic.Currency(dj.BaseCurrency)
	}

	if dj.DocumentDiscount != nil {
		d, err := parseDiscount(*dj.DocumentDiscount, currency)
		if err != nil {
			return nil, fmt.Errorf("document discount: %w", err)
		}
		doc.DocumentDiscount = d
	}

	if dj.DeclaredTotal != "" {
		declared, err := generic.ParseMoney(dj.DeclaredTotal, currency)
		if err != nil {
			return nil, fmt.Errorf("invalid declared_total %q: %w", dj.DeclaredTotal, err)
		}
		doc.DeclaredTotal = &declared
	}

	for i, lj := range dj.Lines {
		line, err := parseLineItem(lj, currency)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		doc.Lines = append(doc.Lines, line)
	}

	for _, kj := range dj.Links {
		doc.Links = append(doc.Links, generic.LinkReference{
			Relation:   generic.LinkRelation(kj.Relation),
			DocumentID: generic.DocumentID(kj.DocumentID),
			TypeID:     kj.Type,
		})
	}

	doc.CreatedAt = parseTimestamp(dj.CreatedAt)
	doc.UpdatedAt = parseTimestamp(dj.UpdatedAt)

	return doc, nil
}

// ParseLines converts line payloads without building a full document.
// Used by the stateless calculation endpoint.
func (f *DocumentFactory) ParseLines(ljs []LineItemJSON, currency generic.Currency) ([]generic.LineItem, error) {
	var lines []generic.LineItem
	for i, lj := range ljs {
		line, err := parseLineItem(lj, currency)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// ParseAdjustments converts the document-level calculation inputs.
func (f *DocumentFactory) ParseAdjustments(dj DocumentJSON) (generic.DocumentAdjustments, error) {
	adj := generic.DocumentAdjustments{
		Discount: generic.NoDiscount(),
		Currency: generic.Currency(dj.Currency),
	}
	if dj.Currency == "" {
		return adj, fmt.Errorf("currency is required")
	}
	if dj.DocumentDiscount != nil {
		d, err := parseDiscount(*dj.DocumentDiscount, adj.Currency)
		if err != nil {
			return adj, fmt.Errorf("document discount: %w", err)
		}
		adj.Discount = d
	}
	if dj.ExchangeRate != "" {
		rate, err := decimal.NewFromString(dj.ExchangeRate)
		if err != nil {
			return adj, fmt.Errorf("invalid exchange_rate %q: %w", dj.ExchangeRate, err)
		}
		adj.ExchangeRate = rate
		adj.BaseCurrency = generic.Currency(dj.BaseCurrency)
	}
	return adj, nil
}

// ToJSON converts a Document to DocumentJSON.
func (f *DocumentFactory) ToJSON(doc *generic.Document) DocumentJSON {
	dj := DocumentJSON{
		ID:       string(doc.ID),
		Type:     doc.Type.TypeID(),
		Status:   string(doc.Status),
		Currency: string(doc.Currency),
		Version:  doc.Version,
	}

	if !doc.ExchangeRate.IsZero() {
		dj.ExchangeRate = doc.ExchangeRate.String()
		dj.BaseCurrency = string(doc.BaseCurrency)
	}

	if hasDiscount(doc.DocumentDiscount) {
		d := discountToJSON(doc.DocumentDiscount)
		dj.DocumentDiscount = &d
	}

	if doc.DeclaredTotal != nil {
		dj.DeclaredTotal = doc.DeclaredTotal.Value.String()
	}

	for _, line := range doc.Lines {
		lj := LineItemJSON{
			ID:          string(line.ID),
			Description: line.Description,
			Quantity:    line.Quantity.String(),
			UnitPrice:   line.UnitPrice.Value.String(),
		}
		if !line.TaxRate.IsZero() {
			lj.TaxRate = line.TaxRate.String()
		}
		if hasDiscount(line.Discount) {
			d := discountToJSON(line.Discount)
			lj.Discount = &d
		}
		dj.Lines = append(dj.Lines, lj)
	}

	for _, ref := range doc.Links {
		dj.Links = append(dj.Links, LinkJSON{
			Relation:   string(ref.Relation),
			DocumentID: string(ref.DocumentID),
			Type:       ref.TypeID,
		})
	}

	if !doc.CreatedAt.IsZero() {
		dj.CreatedAt = doc.CreatedAt.UTC().Format(time.RFC3339)
	}
	if !doc.UpdatedAt.IsZero() {
		dj.UpdatedAt = doc.UpdatedAt.UTC().Format(time.RFC3339)
	}

	return dj
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

func parseLineItem(lj LineItemJSON, currency generic.Currency) (generic.LineItem, error) {
	line := generic.LineItem{
		ID:          generic.LineItemID(lj.ID),
		Description: lj.Description,
	}
	if line.ID == "" {
		line.ID = generic.LineItemID(uuid.NewString())
	}

	qty, err := decimal.NewFromString(lj.Quantity)
	if err != nil {
		return line, &generic.InvalidLineItemError{
			LineID: line.ID, Field: "quantity",
			Reason: fmt.Sprintf("not a decimal: %q", lj.Quantity),
		}
	}
	line.Quantity = qty

	price, err := generic.ParseMoney(lj.UnitPrice, currency)
	if err != nil {
		return line, &generic.InvalidLineItemError{
			LineID: line.ID, Field: "unit_price",
			Reason: fmt.Sprintf("not a decimal: %q", lj.UnitPrice),
		}
	}
	line.UnitPrice = price

	if lj.TaxRate != "" {
		rate, err := decimal.NewFromString(lj.TaxRate)
		if err != nil {
			return line, &generic.InvalidLineItemError{
				LineID: line.ID, Field: "tax_rate",
				Reason: fmt.Sprintf("not a decimal: %q", lj.TaxRate),
			}
		}
		line.TaxRate = rate
	}

	if lj.Discount != nil {
		d, err := parseDiscount(*lj.Discount, currency)
		if err != nil {
			return line, &generic.InvalidLineItemError{
				LineID: line.ID, Field: "discount", Reason: err.Error(),
			}
		}
		line.Discount = d
	}

	return line, nil
}

func parseDiscount(dj DiscountJSON, currency generic.Currency) (generic.Discount, error) {
	value, err := decimal.NewFromString(dj.Value)
	if err != nil {
		return generic.NoDiscount(), fmt.Errorf("not a decimal: %q", dj.Value)
	}
	switch dj.Kind {
	case "percentage":
		return generic.PercentDiscount(value), nil
	case "fixed":
		return generic.FixedDiscount(generic.NewMoney(value, currency)), nil
	default:
		return generic.NoDiscount(), fmt.Errorf("unknown discount kind: %q", dj.Kind)
	}
}

// hasDiscount reports whether there is anything to serialize: the zero
// Discount and the explicit none kind both mean "no discount".
func hasDiscount(d generic.Discount) bool {
	return d.Kind == generic.DiscountPercentage || d.Kind == generic.DiscountFixed
}

func discountToJSON(d generic.Discount) DiscountJSON {
	if d.Kind == generic.DiscountPercentage {
		return DiscountJSON{Kind: "percentage", Value: d.Percent.String()}
	}
	return DiscountJSON{Kind: "fixed", Value: d.Fixed.Value.String()}
}

func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
