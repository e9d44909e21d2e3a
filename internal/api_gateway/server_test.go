package api_gateway

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tenx-bank-ledger/internal/api_gateway/handler"
	"github.com/tenx-bank-ledger/internal/api_gateway/service"
	"github.com/tenx-bank-ledger/internal/config"
	"github.com/tenx-bank-ledger/internal/data/memory"
	"github.com/tenx-bank-ledger/internal/engine"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &config.Config{
		Application: config.ApplicationConfig{Env: "test"},
		Server: config.ServerConfig{
			Port:         8080,
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
			IdleTimeout:  time.Second,
		},
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}

	l := memory.NewLedger(logger)
	transferEngine := engine.NewTransferEngine(logger, l, engine.NewAccountRegistry(logger, l))
	accountService := service.NewAccountService(transferEngine)

	server := NewServer(logger, cfg, Services{
		Accounts:  accountService,
		Transfers: service.NewTransferService(logger, transferEngine, nil, nil),
		Admin:     accountService,
		Health:    map[string]handler.Pinger{"ledger": l},
	})
	return server.Handler()
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestServer_LegacyFlow(t *testing.T) {
	h := newTestServer(t)

	steps := []struct {
		method string
		path   string
		body   string
		want   string
	}{
		{http.MethodPost, "/createaccount", `{"id": 1, "balance": 100, "currency": "GBP"}`, "Account 1 created successfully"},
		{http.MethodPost, "/createaccount", `{"id": 2, "balance": 0, "currency": "GBP"}`, "Account 2 created successfully"},
		{http.MethodPost, "/transfer", `{"sourceAccountId": 1, "destinationAccountId": 2, "amount": 40, "currency": "GBP"}`, "Transaction successful. Transaction ID [1]"},
		{http.MethodPost, "/transfer", `{"sourceAccountId": 1, "destinationAccountId": 2, "amount": 61, "currency": "GBP"}`, "The source balance is insufficient for this transaction"},
		{http.MethodPost, "/transfer", `{"sourceAccountId": 2, "destinationAccountId": 2, "amount": 1, "currency": "GBP"}`, "Account ID's 2 and 2 are the same. Please correct either the source or destination account"},
		{http.MethodPost, "/transfer", `{"sourceAccountId": 2, "destinationAccountId": 1, "amount": 40, "currency": "GBP"}`, "Transaction successful. Transaction ID [2]"},
		{http.MethodGet, "/clearalldata/transactions", "", "Transactions table cleared"},
		{http.MethodPost, "/transfer", `{"sourceAccountId": 1, "destinationAccountId": 2, "amount": 1, "currency": "GBP"}`, "Transaction successful. Transaction ID [1]"},
		{http.MethodGet, "/clearalldata/ledger", "", "Invalid table name. Table name either [transactions] or [accounts]"},
	}

	for _, step := range steps {
		rr := do(t, h, step.method, step.path, step.body)
		require.Equal(t, http.StatusOK, rr.Code, "%s %s", step.method, step.path)
		assert.Equal(t, step.want, rr.Body.String(), "%s %s", step.method, step.path)
	}

	rr := do(t, h, http.MethodGet, "/getaccountstatus/1", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"balance":99`)
}

func TestServer_APIv1(t *testing.T) {
	h := newTestServer(t)

	rr := do(t, h, http.MethodPost, "/api/v1/accounts", `{"id": 10, "initial_balance": "50", "currency": "EUR"}`)
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = do(t, h, http.MethodPost, "/api/v1/transfers", `{"source_account_id": 10, "destination_account_id": 11, "amount": "5", "currency": "EUR"}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "ACCOUNT_NOT_FOUND")

	rr = do(t, h, http.MethodPost, "/api/v1/transfers/async", `{"source_account_id": 10, "destination_account_id": 11, "amount": "5", "currency": "EUR"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	rr = do(t, h, http.MethodGet, "/api/v1/transfers/1", "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	rr = do(t, h, http.MethodDelete, "/api/v1/admin/tables/accounts", "")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, h, http.MethodGet, "/api/v1/accounts/10", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestServer_OperationalEndpoints(t *testing.T) {
	h := newTestServer(t)

	rr := do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, h, http.MethodGet, "/", "")
	assert.Equal(t, handler.GreetingMessage, rr.Body.String())

	rr = do(t, h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.Contains(rr.Body.String(), "ledger_http_requests_total"))

	rr = do(t, h, http.MethodGet, "/", "")
	assert.NotEmpty(t, rr.Header().Get("X-Correlation-ID"))
}
