package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/xraph/paymarket"
	"github.com/xraph/paymarket/api"
	"github.com/xraph/paymarket/bank"
	"github.com/xraph/paymarket/store/memory"
	"github.com/xraph/paymarket/types"
)

var (
	admin    = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	feeSink  = common.HexToAddress("0x90F79bf6EB2c4f870365E785982E1f101E93b906")
	seller   = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	customer = common.HexToAddress("0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC")
	usdc     = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
)

type harness struct {
	srv    *httptest.Server
	book   *bank.Book
	market *paymarket.Market
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	book := bank.NewBook()
	m := paymarket.New(memory.New(), book, paymarket.WithGenesis(admin, 100, feeSink))
	require.NoError(t, m.Start(context.Background()))
	t.Cleanup(func() { _ = m.Stop() })

	srv := httptest.NewServer(api.New(m).Routes())
	t.Cleanup(srv.Close)

	return &harness{srv: srv, book: book, market: m}
}

func (h *harness) do(t *testing.T, method, path string, caller *common.Address, body string) (*http.Response, map[string]any) {
	t.Helper()

	req, err := http.NewRequest(method, h.srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if caller != nil {
		req.Header.Set(api.CallerHeader, caller.Hex())
	}

	resp, err := h.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	if resp.StatusCode != http.StatusNoContent {
		_ = json.NewDecoder(resp.Body).Decode(&out)
	}
	return resp, out
}

func TestMarketRead(t *testing.T) {
	h := newHarness(t)

	resp, body := h.do(t, http.MethodGet, "/v1/market", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, strings.ToLower(admin.Hex()), strings.ToLower(body["admin"].(string)))
	require.Equal(t, float64(100), body["fee_basis_points"])
	require.Equal(t, false, body["paused"])
}

func TestAdminFlowAndPurchase(t *testing.T) {
	h := newHarness(t)

	resp, _ := h.do(t, http.MethodPut, "/v1/admin/vendors/1", &admin, `{"address":"`+seller.Hex()+`"}`)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = h.do(t, http.MethodPut, "/v1/admin/tokens/"+usdc.Hex(), &admin, "")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body := h.do(t, http.MethodGet, "/v1/tokens/"+usdc.Hex(), nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, body["whitelisted"])

	resp, body = h.do(t, http.MethodGet, "/v1/vendors/1", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, float64(1), body["id"])

	require.NoError(t, h.book.Mint(usdc, customer, types.Units(10, types.StableDecimals)))
	require.NoError(t, h.book.Approve(usdc, customer, h.market.Address(), types.Units(10, types.StableDecimals)))

	resp, body = h.do(t, http.MethodPost, "/v1/purchases/token", &customer,
		`{"vendor_id":1,"order_id":77,"amount":"10000000","token":"`+usdc.Hex()+`"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, "9900000", body["amount_after_fee"])
	require.Equal(t, "100000", body["fee"])
	require.Equal(t, "token", body["path"])
	require.Equal(t, float64(1), body["sequence"])
	require.True(t, strings.HasPrefix(body["id"].(string), "stl_"))

	require.Equal(t, "9900000", h.book.BalanceOf(usdc, seller).Dec())
}

func TestErrorStatuses(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		name   string
		method string
		path   string
		caller *common.Address
		body   string
		status int
	}{
		{"missing caller", http.MethodPost, "/v1/admin/pause", nil, "", http.StatusUnauthorized},
		{"not admin", http.MethodPost, "/v1/admin/pause", &customer, "", http.StatusForbidden},
		{"fee too high", http.MethodPut, "/v1/admin/fees/rate", &admin, `{"basis_points":10001}`, http.StatusBadRequest},
		{"fee missing", http.MethodPut, "/v1/admin/fees/rate", &admin, `{}`, http.StatusBadRequest},
		{"not paused", http.MethodPost, "/v1/admin/unpause", &admin, "", http.StatusConflict},
		{"bad vendor id", http.MethodGet, "/v1/vendors/abc", nil, "", http.StatusBadRequest},
		{"vendor not found", http.MethodGet, "/v1/vendors/9", nil, "", http.StatusNotFound},
		{"zero amount", http.MethodPost, "/v1/purchases/native", &customer, `{"vendor_id":1,"order_id":1,"amount":"0"}`, http.StatusBadRequest},
		{"unknown vendor", http.MethodPost, "/v1/purchases/native", &customer, `{"vendor_id":1,"order_id":1,"amount":"5"}`, http.StatusUnprocessableEntity},
		{"unknown field", http.MethodPost, "/v1/purchases/native", &customer, `{"vendor":1}`, http.StatusBadRequest},
		{"zero owner", http.MethodPost, "/v1/admin/owner", &admin, `{"address":"0x0000000000000000000000000000000000000000"}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := h.do(t, tt.method, tt.path, tt.caller, tt.body)
			require.Equal(t, tt.status, resp.StatusCode)
			require.NotEmpty(t, body["error"])
		})
	}
}

func TestCustomCallerFunc(t *testing.T) {
	book := bank.NewBook()
	m := paymarket.New(memory.New(), book, paymarket.WithGenesis(admin, 100, feeSink))
	require.NoError(t, m.Start(context.Background()))
	t.Cleanup(func() { _ = m.Stop() })

	srv := httptest.NewServer(api.New(m, api.WithCallerFunc(func(*http.Request) (common.Address, error) {
		return admin, nil
	})).Routes())
	t.Cleanup(srv.Close)

	resp, err := srv.Client().Post(srv.URL+"/v1/admin/pause", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	paused, err := m.Paused(context.Background())
	require.NoError(t, err)
	require.True(t, paused)
}

func TestStatusFor(t *testing.T) {
	require.Equal(t, http.StatusConflict, api.StatusFor(paymarket.ErrContractPaused))
	require.Equal(t, http.StatusUnprocessableEntity, api.StatusFor(paymarket.ErrTransferFailed))
	require.Equal(t, http.StatusInternalServerError, api.StatusFor(errors.New("boom")))
	require.Equal(t, http.StatusGatewayTimeout, api.StatusFor(context.DeadlineExceeded))
}
