/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the store with realistic
	data for testing and demos. Each scenario creates documents, applies
	transitions, and records conversions that demonstrate specific
	features.

AVAILABLE SCENARIOS:

	order-to-cash:   Quotation approved and converted into an invoice
	procure-to-pay:  Purchase order with a partial goods receipt
	finance-close:   Budget, down payment, and an unmatched bank transaction

HOW SCENARIOS WORK:
 1. Create documents through the factory codec
 2. Drive them through their workflows with Apply
 3. Record conversions and links through the orchestrator

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario": "order-to-cash"}

NOTE:

	Scenarios write into whatever store the handler holds. Only use in
	development/demo environments.

SEE ALSO:
  - handlers.go: shared helpers and error mapping
  - trade/conversion.go: the conversion chains these demonstrate
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/warp/document-engine/factory"
	"github.com/warp/document-engine/finance"
	"github.com/warp/document-engine/generic"
	"github.com/warp/document-engine/trade"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "order-to-cash",
		Name:        "Order to Cash",
		Description: "Quotation through approval, converted into a posted invoice",
		Category:    "trade",
	},
	{
		ID:          "procure-to-pay",
		Name:        "Procure to Pay",
		Description: "Approved purchase order with a partial goods receipt",
		Category:    "trade",
	},
	{
		ID:          "finance-close",
		Name:        "Finance Close",
		Description: "Approved budget, received down payment, unmatched bank transaction",
		Category:    "finance",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	if h.currentScenario == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == h.currentScenario {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{
		ID:   h.currentScenario,
		Name: h.currentScenario,
	})
}

// LoadScenario loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()
	var err error
	switch req.Scenario {
	case "order-to-cash":
		err = h.loadOrderToCashScenario(ctx)
	case "procure-to-pay":
		err = h.loadProcureToPayScenario(ctx)
	case "finance-close":
		err = h.loadFinanceCloseScenario(ctx)
	default:
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}

	h.currentScenario = req.Scenario
	h.Log.Info().Str("scenario", req.Scenario).Msg("scenario loaded")
	writeJSON(w, http.StatusOK, map[string]string{"loaded": req.Scenario})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

// loadOrderToCashScenario: a quotation is submitted, approved, and
// converted into an invoice which is then posted.
func (h *Handler) loadOrderToCashScenario(ctx context.Context) error {
	quote, err := h.seedDocument(ctx, factory.DocumentJSON{
		ID:       "demo-quote-1",
		Type:     "quotation",
		Currency: "IDR",
		Lines: []factory.LineItemJSON{
			{
				ID: "demo-quote-1-line-1", Description: "Steel beams",
				Quantity: "20", UnitPrice: "10000", TaxRate: "11",
				Discount: &factory.DiscountJSON{Kind: "fixed", Value: "20000"},
			},
			{
				ID: "demo-quote-1-line-2", Description: "Fasteners",
				Quantity: "5", UnitPrice: "10000", TaxRate: "11",
			},
		},
	})
	if err != nil {
		return err
	}

	quote, err = h.advance(ctx, quote, trade.ActionSubmit, nil)
	if err != nil {
		return err
	}
	quote, err = h.advance(ctx, quote, trade.ActionApprove, nil)
	if err != nil {
		return err
	}

	result, err := generic.Convert(generic.ConversionRequest{
		Source:        quote,
		Target:        trade.TypeInvoice,
		NewDocumentID: "demo-invoice-1",
		Now:           time.Now(),
	})
	if err != nil {
		return err
	}
	if err := h.Store.Create(ctx, result.Document); err != nil {
		return err
	}
	if err := h.Store.AppendLinks(ctx, result.Links); err != nil {
		return err
	}
	if _, err := h.advance(ctx, quote, trade.ActionConvert, nil); err != nil {
		return err
	}
	_, err = h.advance(ctx, result.Document, trade.ActionPost, nil)
	return err
}

// loadProcureToPayScenario: an approved PO receives part of its goods.
func (h *Handler) loadProcureToPayScenario(ctx context.Context) error {
	po, err := h.seedDocument(ctx, factory.DocumentJSON{
		ID:       "demo-po-1",
		Type:     "purchase_order",
		Currency: "IDR",
		Lines: []factory.LineItemJSON{
			{
				ID: "demo-po-1-line-1", Description: "Cement bags",
				Quantity: "100", UnitPrice: "85000",
			},
		},
	})
	if err != nil {
		return err
	}

	po, err = h.advance(ctx, po, trade.ActionSubmit, nil)
	if err != nil {
		return err
	}
	po, err = h.advance(ctx, po, trade.ActionApprove, nil)
	if err != nil {
		return err
	}

	result, err := generic.Convert(generic.ConversionRequest{
		Source: po,
		Target: trade.TypeGoodsReceipt,
		Selection: generic.Selection{Lines: []generic.LineSelection{
			{SourceLineID: "demo-po-1-line-1", Quantity: generic.MustParseDecimal("60")},
		}},
		NewDocumentID: "demo-grn-1",
		Now:           time.Now(),
	})
	if err != nil {
		return err
	}
	if err := h.Store.Create(ctx, result.Document); err != nil {
		return err
	}
	if err := h.Store.AppendLinks(ctx, result.Links); err != nil {
		return err
	}

	links, err := h.Store.LinksBySource(ctx, po.ID)
	if err != nil {
		return err
	}
	action, ok := trade.ReceiptAction(po, links)
	if !ok {
		return fmt.Errorf("purchase order has no receipt action")
	}
	_, err = h.advance(ctx, po, action, nil)
	return err
}

// loadFinanceCloseScenario: an approved budget, a received down payment
// with one application, and a bank transaction waiting for a match.
func (h *Handler) loadFinanceCloseScenario(ctx context.Context) error {
	budget, err := h.seedDocument(ctx, factory.DocumentJSON{
		ID:       "demo-budget-1",
		Type:     "budget",
		Currency: "IDR",
		Lines: []factory.LineItemJSON{
			{ID: "demo-budget-1-line-1", Description: "Marketing", Quantity: "1", UnitPrice: "120000000"},
			{ID: "demo-budget-1-line-2", Description: "Operations", Quantity: "1", UnitPrice: "200000"},
		},
	})
	if err != nil {
		return err
	}
	if _, err := h.advance(ctx, budget, finance.ActionApprove, nil); err != nil {
		return err
	}

	dp, err := h.seedDocument(ctx, factory.DocumentJSON{
		ID:       "demo-dp-1",
		Type:     "down_payment",
		Currency: "IDR",
		Lines: []factory.LineItemJSON{
			{ID: "demo-dp-1-line-1", Description: "Project deposit", Quantity: "1", UnitPrice: "1000000"},
		},
	})
	if err != nil {
		return err
	}
	dp, err = h.advance(ctx, dp, finance.ActionReceive, nil)
	if err != nil {
		return err
	}
	link, err := finance.Apply(finance.ApplicationRequest{
		DownPayment: dp,
		TargetID:    "demo-invoice-open",
		Amount:      generic.MustParseMoney("600000", "IDR"),
		Now:         time.Now(),
	})
	if err != nil {
		return err
	}
	if err := h.Store.AppendLinks(ctx, []generic.ConversionLink{*link}); err != nil {
		return err
	}

	_, err = h.seedDocument(ctx, factory.DocumentJSON{
		ID:       "demo-banktxn-1",
		Type:     "bank_transaction",
		Currency: "IDR",
		Lines: []factory.LineItemJSON{
			{ID: "demo-banktxn-1-line-1", Description: "Incoming transfer", Quantity: "1", UnitPrice: "600000"},
		},
	})
	return err
}

// =============================================================================
// SEEDING HELPERS
// =============================================================================

func (h *Handler) seedDocument(ctx context.Context, dj factory.DocumentJSON) (*generic.Document, error) {
	doc, err := h.Codec.FromJSON(dj)
	if err != nil {
		return nil, fmt.Errorf("scenario document %s: %w", dj.ID, err)
	}
	doc.CreatedAt = time.Now()
	doc.UpdatedAt = doc.CreatedAt
	if err := h.Store.Create(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// advance applies one action and persists the result, returning the
// fresh snapshot.
func (h *Handler) advance(ctx context.Context, doc *generic.Document, action generic.Action, facts map[string]any) (*generic.Document, error) {
	links, err := h.Store.LinksBySource(ctx, doc.ID)
	if err != nil {
		return nil, err
	}
	workflow := generic.WorkflowFor(doc)
	result, err := workflow.Apply(doc, action, generic.TransitionContext{
		Now:   time.Now(),
		Links: links,
		Facts: facts,
	})
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", doc.ID, action, err)
	}
	if err := h.Store.Save(ctx, result.Document); err != nil {
		return nil, err
	}
	return result.Document, nil
}
