/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

AMOUNTS ARE STRINGS:
  Every monetary and quantity field is a decimal string, in and out.
  The factory codec is the only place they are converted; handlers never
  touch float64.

TYPES:
  Documents:
    DocumentDTO (wraps factory.DocumentJSON plus computed totals),
    TotalsDTO, LineTotalsDTO, ActionsDTO

  Lifecycle:
    TransitionRequest, TransitionDTO, SideEffectDTO

  Conversion:
    ConvertRequest, ConvertDTO, LinkDTO

  Finance:
    ApplyDownPaymentRequest, DownPaymentBalanceDTO,
    SuggestMatchesRequest, MatchCandidateDTO,
    MonthlyAmountDTO

  Scenarios:
    ScenarioDTO, LoadScenarioRequest

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/document.go: DocumentJSON type
*/
package api

import (
	"time"

	"github.com/warp/document-engine/factory"
	"github.com/warp/document-engine/generic"
)

// =============================================================================
// DOCUMENT TYPES
// =============================================================================

// DocumentDTO is a document plus its computed totals. Totals are
// recalculated on every read; stored numbers are never echoed back.
type DocumentDTO struct {
	Document factory.DocumentJSON `json:"document"`
	Totals   *TotalsDTO           `json:"totals,omitempty"`
}

// TotalsDTO is the calculation engine output for API responses.
type TotalsDTO struct {
	Currency          string          `json:"currency"`
	Subtotal          string          `json:"subtotal"`
	DiscountAmount    string          `json:"discount_amount"`
	TaxAmount         string          `json:"tax_amount"`
	GrandTotal        string          `json:"grand_total"`
	BaseCurrencyTotal *string         `json:"base_currency_total,omitempty"`
	BaseCurrency      string          `json:"base_currency,omitempty"`
	Lines             []LineTotalsDTO `json:"lines"`
	DiscountClamped   bool            `json:"discount_clamped,omitempty"`
}

// LineTotalsDTO is the per-line calculation breakdown.
type LineTotalsDTO struct {
	LineID  string `json:"line_id"`
	Gross   string `json:"gross"`
	Net     string `json:"net"`
	Tax     string `json:"tax"`
	Total   string `json:"total"`
	Clamped bool   `json:"clamped,omitempty"`
}

// ActionsDTO describes what a document can do from its current state.
type ActionsDTO struct {
	Status    string   `json:"status"`
	Actions   []string `json:"actions"`
	Editable  bool     `json:"editable"`
	Deletable bool     `json:"deletable"`
	Terminal  bool     `json:"terminal"`
}

// CalculateRequest is a stateless calculation: lines plus adjustments,
// no persistence. The type field is ignored.
type CalculateRequest struct {
	Currency         string                 `json:"currency"`
	ExchangeRate     string                 `json:"exchange_rate,omitempty"`
	BaseCurrency     string                 `json:"base_currency,omitempty"`
	DocumentDiscount *factory.DiscountJSON  `json:"document_discount,omitempty"`
	Lines            []factory.LineItemJSON `json:"lines"`
}

// =============================================================================
// LIFECYCLE TYPES
// =============================================================================

// TransitionRequest applies one lifecycle action. Facts are extra
// inputs some guards need (e.g. amount_paid for apply_payment); values
// are decimal strings or plain strings depending on the key.
type TransitionRequest struct {
	Action string            `json:"action"`
	Facts  map[string]string `json:"facts,omitempty"`
}

// TransitionDTO is the result of a successful transition.
type TransitionDTO struct {
	Document    factory.DocumentJSON `json:"document"`
	PriorStatus string               `json:"prior_status"`
	SideEffects []SideEffectDTO      `json:"side_effects,omitempty"`
}

// SideEffectDTO surfaces declared side effects to the caller.
type SideEffectDTO struct {
	Kind     string         `json:"kind"`
	TargetID string         `json:"target_id,omitempty"`
	Payload  map[string]any `json:"payload,omitempty"`
}

// =============================================================================
// CONVERSION TYPES
// =============================================================================

// ConvertRequest derives a new document from an existing one.
type ConvertRequest struct {
	TargetType    string             `json:"target_type"`
	NewDocumentID string             `json:"new_document_id,omitempty"`
	Selection     []LineSelectionDTO `json:"selection,omitempty"`
}

// LineSelectionDTO picks a quantity from one source line (partial mode).
type LineSelectionDTO struct {
	SourceLineID string `json:"source_line_id"`
	Quantity     string `json:"quantity"`
}

// ConvertDTO is the result of a conversion: the derived document, the
// consumption links recorded, and the source's status afterwards.
type ConvertDTO struct {
	Document     factory.DocumentJSON `json:"document"`
	Links        []LinkDTO            `json:"links"`
	SourceStatus string               `json:"source_status"`
}

// LinkDTO is a conversion link in API responses.
type LinkDTO struct {
	ID                string `json:"id"`
	Kind              string `json:"kind"`
	SourceDocumentID  string `json:"source_document_id"`
	SourceLineID      string `json:"source_line_id,omitempty"`
	DerivedDocumentID string `json:"derived_document_id"`
	DerivedLineID     string `json:"derived_line_id,omitempty"`
	Quantity          string `json:"quantity,omitempty"`
	Amount            string `json:"amount,omitempty"`
	Currency          string `json:"currency,omitempty"`
	CreatedAt         string `json:"created_at,omitempty"`
}

// =============================================================================
// FINANCE TYPES
// =============================================================================

// ApplyDownPaymentRequest applies or refunds part of a down payment.
type ApplyDownPaymentRequest struct {
	TargetDocumentID string `json:"target_document_id"`
	Amount           string `json:"amount"`
}

// DownPaymentBalanceDTO reports a down payment's running balance.
type DownPaymentBalanceDTO struct {
	DocumentID string `json:"document_id"`
	Currency   string `json:"currency"`
	Received   string `json:"received"`
	Applied    string `json:"applied"`
	Refunded   string `json:"refunded"`
	Available  string `json:"available"`
}

// SuggestMatchesRequest asks for ranked payment matches for a bank
// transaction. Dates use YYYY-MM-DD.
type SuggestMatchesRequest struct {
	Transaction PaymentFactsDTO   `json:"transaction"`
	Candidates  []PaymentFactsDTO `json:"candidates"`
}

// PaymentFactsDTO is one side of a reconciliation comparison.
type PaymentFactsDTO struct {
	ID        string `json:"id"`
	Amount    string `json:"amount"`
	Currency  string `json:"currency"`
	Date      string `json:"date"`
	Reference string `json:"reference,omitempty"`
}

// MatchCandidateDTO is one ranked reconciliation suggestion.
type MatchCandidateDTO struct {
	PaymentID   string   `json:"payment_id"`
	Confidence  int      `json:"confidence"`
	AmountDelta string   `json:"amount_delta"`
	DateDelta   int      `json:"date_delta_days"`
	Criteria    []string `json:"criteria"`
}

// MonthlyAmountDTO is one month of a budget distribution.
type MonthlyAmountDTO struct {
	Month  string `json:"month"`
	Amount string `json:"amount"`
}

// =============================================================================
// SCENARIO TYPES
// =============================================================================

// ScenarioDTO describes one demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// LoadScenarioRequest selects a scenario to load.
type LoadScenarioRequest struct {
	Scenario string `json:"scenario"`
}

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERTERS
// =============================================================================

func totalsToDTO(t generic.Totals) *TotalsDTO {
	dto := &TotalsDTO{
		Currency:        string(t.Subtotal.Currency),
		Subtotal:        t.Subtotal.Value.String(),
		DiscountAmount:  t.DiscountAmount.Value.String(),
		TaxAmount:       t.TaxAmount.Value.String(),
		GrandTotal:      t.GrandTotal.Value.String(),
		DiscountClamped: t.DiscountClamped,
	}
	if t.BaseCurrencyTotal != nil {
		v := t.BaseCurrencyTotal.Value.String()
		dto.BaseCurrencyTotal = &v
		dto.BaseCurrency = string(t.BaseCurrencyTotal.Currency)
	}
	for _, lc := range t.Lines {
		dto.Lines = append(dto.Lines, LineTotalsDTO{
			LineID:  string(lc.LineID),
			Gross:   lc.Gross.Value.String(),
			Net:     lc.Net.Value.String(),
			Tax:     lc.Tax.Value.String(),
			Total:   lc.Total.Value.String(),
			Clamped: lc.Clamped,
		})
	}
	return dto
}

func linkToDTO(l generic.ConversionLink) LinkDTO {
	dto := LinkDTO{
		ID:                string(l.ID),
		Kind:              string(l.Kind),
		SourceDocumentID:  string(l.SourceDocumentID),
		SourceLineID:      string(l.SourceLineID),
		DerivedDocumentID: string(l.DerivedDocumentID),
		DerivedLineID:     string(l.DerivedLineID),
	}
	if !l.Quantity.IsZero() {
		dto.Quantity = l.Quantity.String()
	}
	if !l.Amount.Value.IsZero() {
		dto.Amount = l.Amount.Value.String()
		dto.Currency = string(l.Amount.Currency)
	}
	if !l.CreatedAt.IsZero() {
		dto.CreatedAt = l.CreatedAt.UTC().Format(time.RFC3339)
	}
	return dto
}

func effectsToDTO(effects []generic.SideEffect) []SideEffectDTO {
	var out []SideEffectDTO
	for _, e := range effects {
		out = append(out, SideEffectDTO{
			Kind:     string(e.Kind),
			TargetID: string(e.TargetID),
			Payload:  e.Payload,
		})
	}
	return out
}
