package api_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/document-engine/api"
	"github.com/warp/document-engine/trade"
)

func TestScenarios_List(t *testing.T) {
	srv, _ := newServer(t)

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/scenarios", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list []api.ScenarioDTO
	decode(t, resp, &list)
	require.Len(t, list, 3)

	ids := make([]string, 0, len(list))
	for _, s := range list {
		ids = append(ids, s.ID)
	}
	assert.ElementsMatch(t, []string{"order-to-cash", "procure-to-pay", "finance-close"}, ids)
}

func TestScenarios_LoadOrderToCash(t *testing.T) {
	// GIVEN: An empty store
	// WHEN: The order-to-cash scenario is loaded
	// THEN: It leaves a converted quotation and a posted invoice behind

	srv, mem := newServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/scenarios/load",
		api.LoadScenarioRequest{Scenario: "order-to-cash"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	ctx := context.Background()
	quote, err := mem.Get(ctx, "demo-quote-1")
	require.NoError(t, err)
	assert.Equal(t, trade.StateConverted, quote.Status)

	inv, err := mem.Get(ctx, "demo-invoice-1")
	require.NoError(t, err)
	assert.Equal(t, trade.StatePosted, inv.Status)
	assert.Len(t, inv.Lines, 2)

	links, err := mem.LinksBySource(ctx, "demo-quote-1")
	require.NoError(t, err)
	assert.Len(t, links, 2)

	current := doJSON(t, http.MethodGet, srv.URL+"/api/scenarios/current", nil)
	require.Equal(t, http.StatusOK, current.StatusCode)
	var dto api.ScenarioDTO
	decode(t, current, &dto)
	assert.Equal(t, "order-to-cash", dto.ID)
}

func TestScenarios_LoadProcureToPay(t *testing.T) {
	srv, mem := newServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/scenarios/load",
		api.LoadScenarioRequest{Scenario: "procure-to-pay"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	ctx := context.Background()
	po, err := mem.Get(ctx, "demo-po-1")
	require.NoError(t, err)
	assert.Equal(t, trade.StatePartial, po.Status, "60 of 100 units received")

	grn, err := mem.Get(ctx, "demo-grn-1")
	require.NoError(t, err)
	require.Len(t, grn.Lines, 1)
	assert.Equal(t, "60", grn.Lines[0].Quantity.String())
}

func TestScenarios_LoadFinanceClose(t *testing.T) {
	srv, _ := newServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/scenarios/load",
		api.LoadScenarioRequest{Scenario: "finance-close"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	balance := doJSON(t, http.MethodGet, srv.URL+"/api/downpayments/demo-dp-1/balance", nil)
	require.Equal(t, http.StatusOK, balance.StatusCode)

	var dto api.DownPaymentBalanceDTO
	decode(t, balance, &dto)
	assert.Equal(t, "1000000", dto.Received)
	assert.Equal(t, "600000", dto.Applied)
	assert.Equal(t, "400000", dto.Available)
}

func TestScenarios_UnknownRejected(t *testing.T) {
	srv, _ := newServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/scenarios/load",
		api.LoadScenarioRequest{Scenario: "nonsense"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestScenarios_NoCurrentInitially(t *testing.T) {
	srv, _ := newServer(t)

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/scenarios/current", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var dto *api.ScenarioDTO
	decode(t, resp, &dto)
	assert.Nil(t, dto)
}
