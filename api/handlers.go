/*
handlers.go - HTTP API handlers for the document engine

PURPOSE:
  Exposes the document engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Documents:
    GET    /api/documents                List documents (type/status filters)
    POST   /api/documents                Create document
    GET    /api/documents/{id}           Get document with computed totals
    PUT    /api/documents/{id}           Update an editable document
    DELETE /api/documents/{id}           Delete a deletable document
    GET    /api/documents/{id}/actions   Allowed lifecycle actions
    POST   /api/documents/{id}/transitions Apply a lifecycle action
    POST   /api/documents/{id}/convert   Derive a new document
    GET    /api/documents/{id}/links     Conversion links (both directions)

  Calculation:
    POST   /api/calculate                Stateless totals calculation

  Finance:
    GET    /api/downpayments/{id}/balance  Running balance
    POST   /api/downpayments/{id}/apply    Apply to a target document
    POST   /api/downpayments/{id}/refund   Refund to the payer
    GET    /api/budgets/{id}/distribution  Monthly distribution
    POST   /api/reconciliation/suggest     Ranked match suggestions

  Scenarios:
    GET    /api/scenarios                List demo scenarios
    GET    /api/scenarios/current        Currently loaded scenario
    POST   /api/scenarios/load           Load a demo scenario

REQUEST FLOW:
  1. Parse HTTP request
  2. Convert payloads through the factory codec
  3. Call domain logic (workflow, calculation, conversion)
  4. Persist through the store with the version check
  5. Serialize response

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Document not found
  - 409: Guard violations, over-consumption, version conflicts
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/warp/document-engine/factory"
	"github.com/warp/document-engine/finance"
	"github.com/warp/document-engine/generic"
	"github.com/warp/document-engine/trade"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store generic.Store
	Codec *factory.DocumentFactory
	Log   zerolog.Logger

	// Track currently loaded scenario
	currentScenario string
}

// NewHandler creates a new handler backed by the given store.
func NewHandler(store generic.Store, log zerolog.Logger) *Handler {
	return &Handler{
		Store: store,
		Codec: factory.NewDocumentFactory(),
		Log:   log,
	}
}

// =============================================================================
// DOCUMENT HANDLERS
// =============================================================================

// ListDocuments returns documents filtered by type and optional status.
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	typeID := r.URL.Query().Get("type")
	if typeID == "" {
		writeError(w, http.StatusBadRequest, "Query parameter 'type' is required", nil)
		return
	}
	if generic.LookupWorkflow(typeID) == nil {
		writeError(w, http.StatusBadRequest, "Unknown document type", nil)
		return
	}

	var (
		docs []*generic.Document
		err  error
	)
	if status := r.URL.Query().Get("status"); status != "" {
		docs, err = h.Store.ListByStatus(r.Context(), typeID, generic.State(status))
	} else {
		docs, err = h.Store.ListByType(r.Context(), typeID)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list documents", err)
		return
	}

	dtos := make([]DocumentDTO, 0, len(docs))
	for _, doc := range docs {
		dtos = append(dtos, h.documentDTO(doc))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateDocument creates a new document in its workflow's initial state.
func (h *Handler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	var dj factory.DocumentJSON
	if err := json.NewDecoder(r.Body).Decode(&dj); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	// Status and version are server-assigned on create.
	dj.Status = ""
	dj.Version = 0

	doc, err := h.Codec.FromJSON(dj)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid document", err)
		return
	}
	doc.CreatedAt = time.Now()
	doc.UpdatedAt = doc.CreatedAt

	// Reject documents the calculation engine refuses; malformed lines
	// never reach the store.
	if _, err := generic.CalculateDocument(doc.Lines, doc.Adjustments(), generic.HalfUpAtMinorUnit); err != nil {
		writeDomainError(w, err)
		return
	}

	if err := h.Store.Create(r.Context(), doc); err != nil {
		writeDomainError(w, err)
		return
	}

	h.Log.Info().
		Str("document_id", string(doc.ID)).
		Str("type", doc.Type.TypeID()).
		Msg("document created")

	writeJSON(w, http.StatusCreated, h.documentDTO(doc))
}

// GetDocument returns a document with freshly computed totals.
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.fetch(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.documentDTO(doc))
}

// UpdateDocument replaces the mutable fields of an editable document.
func (h *Handler) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.fetch(w, r)
	if !ok {
		return
	}

	workflow := generic.WorkflowFor(doc)
	if err := workflow.EnsureEditable(doc); err != nil {
		writeDomainError(w, err)
		return
	}

	var dj factory.DocumentJSON
	if err := json.NewDecoder(r.Body).Decode(&dj); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	// Identity, type, status and version come from the stored snapshot;
	// the payload only replaces content.
	dj.ID = string(doc.ID)
	dj.Type = doc.Type.TypeID()
	dj.Status = string(doc.Status)

	updated, err := h.Codec.FromJSON(dj)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid document", err)
		return
	}
	updated.Version = doc.Version
	updated.Links = doc.Links
	updated.CreatedAt = doc.CreatedAt
	updated.UpdatedAt = time.Now()

	if _, err := generic.CalculateDocument(updated.Lines, updated.Adjustments(), generic.HalfUpAtMinorUnit); err != nil {
		writeDomainError(w, err)
		return
	}

	// A document created by a partial conversion may be edited, but its
	// lines stay within what the source still has to give.
	if err := h.checkConsumptionBounds(r.Context(), updated); err != nil {
		writeDomainError(w, err)
		return
	}

	if err := h.Store.Save(r.Context(), updated); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.documentDTO(updated))
}

// checkConsumptionBounds re-validates edited lines against the recorded
// consumption links. For every line backed by a quantity link, the new
// quantity may not exceed the source line's remaining quantity plus what
// this document already consumed; links are append-only, so a backed
// line cannot be removed either.
func (h *Handler) checkConsumptionBounds(ctx context.Context, doc *generic.Document) error {
	derivedLinks, err := h.Store.LinksByDerived(ctx, doc.ID)
	if err != nil {
		return err
	}

	type consumedLine struct {
		source generic.DocumentID
		line   generic.LineItemID
	}
	prior := make(map[consumedLine]decimal.Decimal)
	edited := make(map[consumedLine]decimal.Decimal)
	for _, link := range derivedLinks {
		if link.Kind != generic.LinkQuantity {
			continue
		}
		line := doc.Line(link.DerivedLineID)
		if line == nil {
			return &generic.InvalidLineItemError{
				LineID: link.DerivedLineID,
				Field:  "lines",
				Reason: "line backed by a conversion link cannot be removed",
			}
		}
		key := consumedLine{link.SourceDocumentID, link.SourceLineID}
		prior[key] = prior[key].Add(link.Quantity)
		edited[key] = edited[key].Add(line.Quantity)
	}

	for key, requested := range edited {
		source, err := h.Store.Get(ctx, key.source)
		if err != nil {
			return err
		}
		sourceLinks, err := h.Store.LinksBySource(ctx, key.source)
		if err != nil {
			return err
		}
		src := source.Line(key.line)
		if src == nil {
			continue
		}
		limit := generic.RemainingQuantity(*src, sourceLinks).Add(prior[key])
		if requested.GreaterThan(limit) {
			return &generic.OverConsumptionError{
				SourceLineID: key.line,
				Requested:    requested,
				Remaining:    limit,
			}
		}
	}
	return nil
}

// DeleteDocument deletes a document if its workflow allows it.
func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.fetch(w, r)
	if !ok {
		return
	}

	workflow := generic.WorkflowFor(doc)
	if !workflow.CanDelete(doc) {
		writeError(w, http.StatusConflict, "Document state does not allow deletion", nil)
		return
	}

	if err := h.Store.Delete(r.Context(), doc.ID); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetActions returns the lifecycle actions available from the current state.
func (h *Handler) GetActions(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.fetch(w, r)
	if !ok {
		return
	}

	links, err := h.Store.LinksBySource(r.Context(), doc.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load links", err)
		return
	}

	workflow := generic.WorkflowFor(doc)
	tc := generic.TransitionContext{Now: time.Now(), Links: links}

	actions := workflow.AllowedActions(doc, tc)
	names := make([]string, 0, len(actions))
	for _, a := range actions {
		names = append(names, string(a))
	}

	writeJSON(w, http.StatusOK, ActionsDTO{
		Status:    string(doc.Status),
		Actions:   names,
		Editable:  workflow.CanEdit(doc),
		Deletable: workflow.CanDelete(doc),
		Terminal:  workflow.IsTerminal(doc.Status),
	})
}

// ApplyTransition applies one lifecycle action to a document.
func (h *Handler) ApplyTransition(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.fetch(w, r)
	if !ok {
		return
	}

	var req TransitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Action == "" {
		writeError(w, http.StatusBadRequest, "Action is required", nil)
		return
	}

	links, err := h.Store.LinksBySource(r.Context(), doc.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load links", err)
		return
	}

	facts, err := parseFacts(req.Facts, doc.Currency)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid facts", err)
		return
	}

	workflow := generic.WorkflowFor(doc)
	tc := generic.TransitionContext{Now: time.Now(), Links: links, Facts: facts}

	result, err := workflow.Apply(doc, generic.Action(req.Action), tc)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if err := h.Store.Save(r.Context(), result.Document); err != nil {
		writeDomainError(w, err)
		return
	}

	h.Log.Info().
		Str("document_id", string(doc.ID)).
		Str("action", req.Action).
		Str("from", string(doc.Status)).
		Str("to", string(result.NextState)).
		Msg("transition applied")

	writeJSON(w, http.StatusOK, TransitionDTO{
		Document:    h.Codec.ToJSON(result.Document),
		PriorStatus: string(doc.Status),
		SideEffects: effectsToDTO(result.SideEffects),
	})
}

// =============================================================================
// CONVERSION HANDLERS
// =============================================================================

// ConvertDocument derives a new document from an existing one.
func (h *Handler) ConvertDocument(w http.ResponseWriter, r *http.Request) {
	source, ok := h.fetch(w, r)
	if !ok {
		return
	}

	var req ConvertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	targetWorkflow := generic.LookupWorkflow(req.TargetType)
	if targetWorkflow == nil {
		writeError(w, http.StatusBadRequest, "Unknown target type", nil)
		return
	}

	selection, err := parseSelection(req.Selection)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid selection", err)
		return
	}

	existing, err := h.Store.LinksBySource(r.Context(), source.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load links", err)
		return
	}

	newID := generic.DocumentID(req.NewDocumentID)
	if newID == "" {
		newID = generic.DocumentID(uuid.NewString())
	}

	now := time.Now()
	result, err := generic.Convert(generic.ConversionRequest{
		Source:        source,
		Target:        targetWorkflow.DocType(),
		Selection:     selection,
		ExistingLinks: existing,
		NewDocumentID: newID,
		Now:           now,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if err := h.Store.Create(r.Context(), result.Document); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create derived document", err)
		return
	}
	if err := h.Store.AppendLinks(r.Context(), result.Links); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to record links", err)
		return
	}

	// Roll the source forward: either the rule's explicit source action
	// (quotation -> converted) or the receipt-driven PO roll-forward.
	sourceStatus, err := h.advanceSource(w, r, source, result)
	if err != nil {
		return // advanceSource already wrote the error
	}

	h.Log.Info().
		Str("source_id", string(source.ID)).
		Str("derived_id", string(newID)).
		Str("target_type", req.TargetType).
		Msg("document converted")

	writeJSON(w, http.StatusCreated, ConvertDTO{
		Document:     h.Codec.ToJSON(result.Document),
		Links:        linksToDTO(result.Links),
		SourceStatus: sourceStatus,
	})
}

// advanceSource applies the post-conversion source transition, if any.
// Returns the source's resulting status.
func (h *Handler) advanceSource(w http.ResponseWriter, r *http.Request, source *generic.Document, result *generic.ConversionResult) (string, error) {
	spec, _ := generic.LookupConversion(source.Type.TypeID(), result.Document.Type.TypeID())

	allLinks, err := h.Store.LinksBySource(r.Context(), source.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load links", err)
		return "", err
	}
	tc := generic.TransitionContext{Now: time.Now(), Links: allLinks}

	action := spec.SourceAction
	if action == "" {
		// Receipt-style conversions advance the source by how much has
		// been consumed so far.
		if a, ok := trade.ReceiptAction(source, allLinks); ok {
			action = a
		}
	}
	if action == "" {
		return string(source.Status), nil
	}

	workflow := generic.WorkflowFor(source)
	res, err := workflow.Apply(source, action, tc)
	if err != nil {
		writeDomainError(w, err)
		return "", err
	}
	if err := h.Store.Save(r.Context(), res.Document); err != nil {
		writeDomainError(w, err)
		return "", err
	}
	return string(res.NextState), nil
}

// GetLinks returns a document's conversion links, both directions.
func (h *Handler) GetLinks(w http.ResponseWriter, r *http.Request) {
	id := generic.DocumentID(chi.URLParam(r, "id"))

	asSource, err := h.Store.LinksBySource(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load links", err)
		return
	}
	asDerived, err := h.Store.LinksByDerived(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load links", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string][]LinkDTO{
		"as_source":  linksToDTO(asSource),
		"as_derived": linksToDTO(asDerived),
	})
}

// =============================================================================
// CALCULATION HANDLER
// =============================================================================

// Calculate computes totals without persisting anything.
func (h *Handler) Calculate(w http.ResponseWriter, r *http.Request) {
	var req CalculateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	dj := factory.DocumentJSON{
		Currency:         req.Currency,
		ExchangeRate:     req.ExchangeRate,
		BaseCurrency:     req.BaseCurrency,
		DocumentDiscount: req.DocumentDiscount,
	}
	adj, err := h.Codec.ParseAdjustments(dj)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid adjustments", err)
		return
	}
	lines, err := h.Codec.ParseLines(req.Lines, adj.Currency)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid lines", err)
		return
	}

	totals, err := generic.CalculateDocument(lines, adj, generic.HalfUpAtMinorUnit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, totalsToDTO(totals))
}

// =============================================================================
// FINANCE HANDLERS
// =============================================================================

// GetDownPaymentBalance reports received/applied/refunded/available.
func (h *Handler) GetDownPaymentBalance(w http.ResponseWriter, r *http.Request) {
	dp, links, ok := h.fetchDownPayment(w, r)
	if !ok {
		return
	}

	received, err := finance.ReceivedAmount(dp)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	applied, err := finance.AppliedAmount(dp, links)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	refunded, err := finance.RefundedAmount(dp, links)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	available, err := finance.Available(dp, links)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, DownPaymentBalanceDTO{
		DocumentID: string(dp.ID),
		Currency:   string(dp.Currency),
		Received:   received.Value.String(),
		Applied:    applied.Value.String(),
		Refunded:   refunded.Value.String(),
		Available:  available.Value.String(),
	})
}

// ApplyDownPayment applies part of a down payment to a target document.
func (h *Handler) ApplyDownPayment(w http.ResponseWriter, r *http.Request) {
	h.consumeDownPayment(w, r, finance.Apply)
}

// RefundDownPayment returns part of a down payment to the payer.
func (h *Handler) RefundDownPayment(w http.ResponseWriter, r *http.Request) {
	h.consumeDownPayment(w, r, finance.Refund)
}

func (h *Handler) consumeDownPayment(w http.ResponseWriter, r *http.Request, op func(finance.ApplicationRequest) (*generic.ConversionLink, error)) {
	dp, links, ok := h.fetchDownPayment(w, r)
	if !ok {
		return
	}

	var req ApplyDownPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	amount, err := generic.ParseMoney(req.Amount, dp.Currency)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return
	}

	link, err := op(finance.ApplicationRequest{
		DownPayment:   dp,
		TargetID:      generic.DocumentID(req.TargetDocumentID),
		Amount:        amount,
		ExistingLinks: links,
		Now:           time.Now(),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if err := h.Store.AppendLinks(r.Context(), []generic.ConversionLink{*link}); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to record link", err)
		return
	}
	writeJSON(w, http.StatusCreated, linkToDTO(*link))
}

func (h *Handler) fetchDownPayment(w http.ResponseWriter, r *http.Request) (*generic.Document, []generic.ConversionLink, bool) {
	doc, ok := h.fetch(w, r)
	if !ok {
		return nil, nil, false
	}
	if doc.Type.TypeID() != finance.TypeDownPayment.TypeID() {
		writeError(w, http.StatusBadRequest, "Document is not a down payment", nil)
		return nil, nil, false
	}
	links, err := h.Store.LinksBySource(r.Context(), doc.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load links", err)
		return nil, nil, false
	}
	return doc, links, true
}

// GetBudgetDistribution returns each budget line spread across months.
func (h *Handler) GetBudgetDistribution(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.fetch(w, r)
	if !ok {
		return
	}
	if doc.Type.TypeID() != finance.TypeBudget.TypeID() {
		writeError(w, http.StatusBadRequest, "Document is not a budget", nil)
		return
	}

	dist, err := finance.BudgetDistribution(doc)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	out := make(map[string][]MonthlyAmountDTO, len(dist))
	for lineID, months := range dist {
		dtos := make([]MonthlyAmountDTO, 0, len(months))
		for _, m := range months {
			dtos = append(dtos, MonthlyAmountDTO{
				Month:  m.Month.String(),
				Amount: m.Amount.Value.String(),
			})
		}
		out[string(lineID)] = dtos
	}
	writeJSON(w, http.StatusOK, out)
}

// SuggestMatches returns ranked payment matches for a bank transaction.
func (h *Handler) SuggestMatches(w http.ResponseWriter, r *http.Request) {
	var req SuggestMatchesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	txn, err := parsePaymentFacts(req.Transaction)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid transaction", err)
		return
	}
	candidates := make([]finance.PaymentCandidate, 0, len(req.Candidates))
	for _, c := range req.Candidates {
		pc, err := parsePaymentFacts(c)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid candidate", err)
			return
		}
		candidates = append(candidates, finance.PaymentCandidate(pc))
	}

	matches, err := finance.SuggestMatches(finance.BankTransactionFacts(txn), candidates)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dtos := make([]MatchCandidateDTO, 0, len(matches))
	for _, m := range matches {
		dtos = append(dtos, MatchCandidateDTO{
			PaymentID:   string(m.PaymentID),
			Confidence:  m.Confidence,
			AmountDelta: m.AmountDelta.Value.String(),
			DateDelta:   m.DateDelta,
			Criteria:    m.Criteria,
		})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// HELPERS
// =============================================================================

// fetch loads the document named by the URL, writing the error response
// itself on failure.
func (h *Handler) fetch(w http.ResponseWriter, r *http.Request) (*generic.Document, bool) {
	id := generic.DocumentID(chi.URLParam(r, "id"))
	doc, err := h.Store.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return nil, false
	}
	return doc, true
}

func (h *Handler) documentDTO(doc *generic.Document) DocumentDTO {
	dto := DocumentDTO{Document: h.Codec.ToJSON(doc)}
	totals, err := generic.CalculateDocument(doc.Lines, doc.Adjustments(), generic.HalfUpAtMinorUnit)
	if err == nil {
		dto.Totals = totalsToDTO(totals)
	}
	return dto
}

// parseFacts converts the string fact map into typed guard inputs.
// Monetary facts use the document's currency.
func parseFacts(raw map[string]string, currency generic.Currency) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	facts := make(map[string]any, len(raw))
	for key, value := range raw {
		switch key {
		case trade.FactAmountPaid:
			m, err := generic.ParseMoney(value, currency)
			if err != nil {
				return nil, err
			}
			facts[key] = m
		default:
			facts[key] = value
		}
	}
	return facts, nil
}

func parseSelection(dtos []LineSelectionDTO) (generic.Selection, error) {
	var sel generic.Selection
	for _, dto := range dtos {
		qty, err := decimal.NewFromString(dto.Quantity)
		if err != nil {
			return sel, err
		}
		sel.Lines = append(sel.Lines, generic.LineSelection{
			SourceLineID: generic.LineItemID(dto.SourceLineID),
			Quantity:     qty,
		})
	}
	return sel, nil
}

func parsePaymentFacts(dto PaymentFactsDTO) (finance.BankTransactionFacts, error) {
	var out finance.BankTransactionFacts
	amount, err := generic.ParseMoney(dto.Amount, generic.Currency(dto.Currency))
	if err != nil {
		return out, err
	}
	date, err := time.Parse("2006-01-02", dto.Date)
	if err != nil {
		return out, err
	}
	out.ID = generic.DocumentID(dto.ID)
	out.Amount = amount
	out.Date = date
	out.Reference = dto.Reference
	return out, nil
}

func linksToDTO(links []generic.ConversionLink) []LinkDTO {
	out := make([]LinkDTO, 0, len(links))
	for _, l := range links {
		out = append(out, linkToDTO(l))
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps the engine's error taxonomy to HTTP status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case generic.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Document not found", err)
	case errors.Is(err, generic.ErrVersionConflict):
		writeError(w, http.StatusConflict, "Document was modified concurrently", err)
	case errors.Is(err, generic.ErrDocumentExists):
		writeError(w, http.StatusConflict, "Document ID already in use", err)
	case errors.Is(err, generic.ErrTransitionNotAllowed),
		errors.Is(err, generic.ErrOverConsumption),
		errors.Is(err, generic.ErrUnbalancedEntry):
		writeError(w, http.StatusConflict, "Operation not allowed", err)
	case generic.IsClientError(err):
		writeError(w, http.StatusBadRequest, "Invalid input", err)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}
