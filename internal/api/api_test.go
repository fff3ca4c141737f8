package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"mpesa_bridge/internal/bridge"
	"mpesa_bridge/internal/chain"
	"mpesa_bridge/internal/config"
	"mpesa_bridge/internal/db"
	"mpesa_bridge/internal/domain"
	"mpesa_bridge/internal/ledger"
	"mpesa_bridge/internal/swypt"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	wallet     = "0x1111111111111111111111111111111111111111"
	collection = "0x3333333333333333333333333333333333333333"
	jwtSecret  = "test-secret"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeChain struct {
	sent int
	err  error
}

func (f *fakeChain) Supports(n domain.Network, t domain.Token) bool {
	return n == domain.NetworkBase && t == domain.TokenUSDT || n == domain.NetworkLisk && t == domain.TokenLSK
}

func (f *fakeChain) ContractAddress(n domain.Network, t domain.Token) (string, bool) {
	return "0xC0FFEE0000000000000000000000000000000000", f.Supports(n, t)
}

func (f *fakeChain) Send(_ context.Context, n domain.Network, t domain.Token, to string, amount decimal.Decimal) (*chain.Transfer, error) {
	f.sent++
	if f.err != nil {
		return nil, f.err
	}
	return &chain.Transfer{ID: "0xhash", Status: domain.StatusCompleted, Network: n, Token: t, Recipient: to, Amount: amount.String()}, nil
}

// swyptStub answers the aggregator endpoints the flows call
func swyptStub(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/swypt-quotes", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"statusCode":200,"data":{"inputAmount":"100","outputAmount":0.77,"exchangeRate":129.5}}`))
	})
	mux.HandleFunc("/swypt-onramp", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["partyA"] == "254799999999" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"status":"error","message":"STK push rejected"}`))
			return
		}
		_, _ = w.Write([]byte(`{"status":"success","data":{"orderID":"SWY-ON-1"}}`))
	})
	mux.HandleFunc("/order-onramp-status/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"success","data":{"status":"PENDING"}}`))
	})
	mux.HandleFunc("/swypt-deposit", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"success","data":{"orderID":"SWY-OFF-1"}}`))
	})
	mux.HandleFunc("/mpesa/transfer", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"MPESA-1"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

type harness struct {
	router *gin.Engine
	chain  *fakeChain
	store  *ledger.Ledger
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gdb, err := db.OpenMemory()
	require.NoError(t, err)
	store := ledger.New(gdb)
	fc := &fakeChain{}
	srv := swyptStub(t)
	client := swypt.New(config.Swypt{BaseURL: srv.URL, APIKey: "k", APISecret: "s", Project: "test"})
	svc := bridge.New(store, fc, client, config.Bridge{
		TreasuryAddress:   "0x2222222222222222222222222222222222222222",
		CollectionAddress: collection,
		DefaultNetwork:    domain.NetworkLisk,
	})
	return &harness{
		router: NewRouter(Deps{DB: gdb, Bridge: svc, JWTSecret: jwtSecret}),
		chain:  fc,
		store:  store,
	}
}

func (h *harness) do(t *testing.T, method, path string, body any, header ...string) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return w.Code, out
}

func onrampBody() map[string]any {
	return map[string]any{
		"amount":         100,
		"phoneNumber":    "254700000000",
		"cryptoCurrency": "USDT",
		"network":        "base",
		"walletAddress":  wallet,
	}
}

func TestRegister(t *testing.T) {
	h := newHarness(t)
	hook := logtest.NewGlobal()
	defer hook.Reset()
	body := map[string]any{
		"walletAddress":    "0xABCDEF0123456789abcdef0123456789ABCDEF01",
		"mpesaPhoneNumber": "254712345678",
	}
	code, out := h.do(t, http.MethodPost, "/register", body)
	require.Equal(t, http.StatusOK, code, out)
	assert.Equal(t, true, out["success"])
	assert.NotEmpty(t, out["token"])
	user := out["user"].(map[string]any)
	assert.Equal(t, "254712345678", user["mpesaPhoneNumber"])

	var registered int
	for _, e := range hook.AllEntries() {
		if e.Message == "User registered" {
			registered++
		}
	}
	assert.Equal(t, 1, registered)

	code, out = h.do(t, http.MethodPost, "/register", body)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, false, out["success"])
	assert.Contains(t, out["error"], "already exists")
}

func TestRegisterValidation(t *testing.T) {
	h := newHarness(t)
	tests := []struct {
		name string
		body map[string]any
		want string
	}{
		{"missing phone", map[string]any{"walletAddress": wallet}, "mpesaPhoneNumber"},
		{"bad phone", map[string]any{"walletAddress": wallet, "mpesaPhoneNumber": "0712345678"}, "Must start with 254"},
		{"bad lisk address", map[string]any{"liskAddress": "lsk123", "mpesaPhoneNumber": "254712345678"}, "Invalid Lisk address format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, out := h.do(t, http.MethodPost, "/register", tt.body)
			assert.Equal(t, http.StatusBadRequest, code)
			assert.Contains(t, out["error"], tt.want)
		})
	}

	code, out := h.do(t, http.MethodPost, "/register", "{not json")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid request body", out["error"])
}

func TestOnrampLifecycle(t *testing.T) {
	h := newHarness(t)

	code, out := h.do(t, http.MethodPost, "/api/onramp", onrampBody())
	require.Equal(t, http.StatusOK, code, out)
	orderID, _ := out["orderID"].(string)
	assert.True(t, domain.IsOrderID(orderID), orderID)
	tx := out["transaction"].(map[string]any)
	assert.Equal(t, "stk_initiated", tx["status"])
	assert.Equal(t, "SWY-ON-1", tx["mpesaTransactionId"])
	assert.NotNil(t, out["stkResult"])

	code, out = h.do(t, http.MethodGet, "/api/onramp/status/"+orderID, nil)
	require.Equal(t, http.StatusOK, code, out)
	assert.Equal(t, "stk_initiated", out["status"])
	assert.Equal(t, "PENDING", out["mpesaStatus"])

	process := map[string]any{"orderID": orderID, "walletAddress": wallet, "network": "base", "cryptoCurrency": "USDT"}
	code, out = h.do(t, http.MethodPost, "/api/onramp/process", process)
	require.Equal(t, http.StatusOK, code, out)
	assert.Equal(t, "completed", out["transaction"].(map[string]any)["status"])
	assert.Equal(t, "0xhash", out["tokenResult"].(map[string]any)["id"])

	// Completed orders cannot be processed again
	code, out = h.do(t, http.MethodPost, "/api/onramp/process", process)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, out["error"], "expected stk_initiated")
	assert.Equal(t, 1, h.chain.sent)
}

func TestOnrampSTKRejected(t *testing.T) {
	h := newHarness(t)
	body := onrampBody()
	body["phoneNumber"] = "254799999999"

	code, out := h.do(t, http.MethodPost, "/api/onramp", body)
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, `{"status":"error","message":"STK push rejected"}`, out["error"])

	all, err := h.store.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, domain.StatusFailed, all[0].Status)
}

func TestOnrampRejectsBeforeWriting(t *testing.T) {
	h := newHarness(t)
	tests := []struct {
		name   string
		mutate func(map[string]any)
		want   string
	}{
		{"unsupported token", func(b map[string]any) { b["cryptoCurrency"] = "CELO" }, "not supported"},
		{"unknown network", func(b map[string]any) { b["network"] = "solana" }, "network"},
		{"zero amount", func(b map[string]any) { b["amount"] = "0" }, "amount"},
		{"too many decimals", func(b map[string]any) { b["amount"] = "1.1234567" }, "more than 6 decimal places"},
		{"missing wallet", func(b map[string]any) { delete(b, "walletAddress") }, "walletAddress"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := onrampBody()
			tt.mutate(body)
			code, out := h.do(t, http.MethodPost, "/api/onramp", body)
			assert.Equal(t, http.StatusBadRequest, code)
			assert.Contains(t, strings.ToLower(out["error"].(string)), strings.ToLower(tt.want))
		})
	}
	all, err := h.store.ListAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestOnrampStatusUnknownOrder(t *testing.T) {
	h := newHarness(t)
	code, out := h.do(t, http.MethodGet, "/api/onramp/status/D-ZZZZZZ-00", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, false, out["success"])
}

func TestOfframp(t *testing.T) {
	h := newHarness(t)
	code, out := h.do(t, http.MethodPost, "/api/offramp", onrampBody())
	require.Equal(t, http.StatusOK, code, out)
	assert.Equal(t, "completed", out["transaction"].(map[string]any)["status"])
	assert.Equal(t, collection, out["tokenResult"].(map[string]any)["recipient"])
	assert.Equal(t, "SWY-OFF-1", out["mpesaResult"].(map[string]any)["id"])
}

func TestOfframpCryptoFailure(t *testing.T) {
	h := newHarness(t)
	h.chain.err = errors.New("insufficient funds for gas")

	code, out := h.do(t, http.MethodPost, "/api/offramp", onrampBody())
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "insufficient funds for gas", out["error"])

	all, err := h.store.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, domain.StatusFailed, all[0].Status)
	assert.Equal(t, "insufficient funds for gas", all[0].Error)
}

func TestTransferLegacyFields(t *testing.T) {
	h := newHarness(t)
	body := map[string]any{"liskAmount": "5", "mpesaPhoneNumber": "254700000000", "paymentType": "LSK"}
	code, out := h.do(t, http.MethodPost, "/transfer", body)
	require.Equal(t, http.StatusOK, code, out)
	assert.Equal(t, "0xhash", out["tokenTransaction"].(map[string]any)["id"])
	assert.Equal(t, "MPESA-1", out["mpesaTransaction"].(map[string]any)["id"])
}

func TestQuote(t *testing.T) {
	h := newHarness(t)
	body := map[string]any{"type": "onramp", "amount": "100", "fiatCurrency": "KES", "cryptoCurrency": "USDT", "network": "base"}
	code, out := h.do(t, http.MethodPost, "/api/quote", body)
	require.Equal(t, http.StatusOK, code, out)
	quote := out["quote"].(map[string]any)
	assert.Equal(t, 0.77, quote["data"].(map[string]any)["outputAmount"])

	body["type"] = "swap"
	code, _ = h.do(t, http.MethodPost, "/api/quote", body)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestTransactionsNewestFirst(t *testing.T) {
	h := newHarness(t)
	for i := 0; i < 3; i++ {
		code, out := h.do(t, http.MethodPost, "/api/onramp", onrampBody())
		require.Equal(t, http.StatusOK, code, out)
	}

	code, out := h.do(t, http.MethodGet, "/transactions", nil)
	require.Equal(t, http.StatusOK, code)
	txs := out["transactions"].([]any)
	require.Len(t, txs, 3)
	first := txs[0].(map[string]any)["id"].(float64)
	last := txs[2].(map[string]any)["id"].(float64)
	assert.Greater(t, first, last)

	code, out = h.do(t, http.MethodGet, "/transactions?page=2&page_size=2", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, out["transactions"], 1)
	assert.Equal(t, float64(3), out["total"])
	assert.Equal(t, float64(2), out["total_pages"])
}

func TestUserTransactions(t *testing.T) {
	h := newHarness(t)
	code, out := h.do(t, http.MethodPost, "/register", map[string]any{"walletAddress": wallet, "mpesaPhoneNumber": "254700000000"})
	require.Equal(t, http.StatusOK, code, out)
	token := out["token"].(string)

	_, _ = h.do(t, http.MethodPost, "/api/onramp", onrampBody())
	other := onrampBody()
	other["phoneNumber"] = "254711111111"
	_, _ = h.do(t, http.MethodPost, "/api/onramp", other)

	code, _ = h.do(t, http.MethodGet, "/user/transactions", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, out = h.do(t, http.MethodGet, "/user/transactions", nil, "Authorization", "Bearer "+token)
	require.Equal(t, http.StatusOK, code, out)
	txs := out["transactions"].([]any)
	require.Len(t, txs, 1)
	assert.Equal(t, "254700000000", txs[0].(map[string]any)["phoneNumber"])
}

func TestHealthz(t *testing.T) {
	h := newHarness(t)
	code, out := h.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", out["checks"].(map[string]any)["database"])
}

func TestFlexString(t *testing.T) {
	var req RampRequest
	require.NoError(t, json.Unmarshal([]byte(`{"amount":12.5}`), &req))
	assert.Equal(t, flexString("12.5"), req.Amount)
	require.NoError(t, json.Unmarshal([]byte(`{"amount":"7"}`), &req))
	assert.Equal(t, flexString("7"), req.Amount)
	require.NoError(t, json.Unmarshal([]byte(`{"amount":null}`), &req))
	assert.Equal(t, flexString(""), req.Amount)
	assert.Error(t, json.Unmarshal([]byte(`{"amount":true}`), &req))
}
