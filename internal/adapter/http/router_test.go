package http

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/iho/entryledger/internal/adapter/http/dto"
	"github.com/iho/entryledger/internal/adapter/http/handler"
	apimiddleware "github.com/iho/entryledger/internal/adapter/http/middleware"
	"github.com/iho/entryledger/internal/adapter/repository/memory"
	"github.com/iho/entryledger/internal/adapter/repository/postgres"
	"github.com/iho/entryledger/internal/infrastructure/metrics"
	"github.com/iho/entryledger/internal/usecase"
)

func TestNewRouter_HealthEndpointAvailable(t *testing.T) {
	router := NewRouter(newRouterConfig())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected /health to return 200, got %d", rec.Code)
	}
}

func TestNewRouter_RateLimiterBlocksExcessRequests(t *testing.T) {
	rl := apimiddleware.NewRateLimiter(1, 1)
	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.RateLimiter = rl
	}))

	req1 := httptest.NewRequest(http.MethodGet, "/health", nil)
	req1.RemoteAddr = "1.2.3.4:1234"
	rec1 := httptest.NewRecorder()
	router.ServeHTTP(rec1, req1)
	if rec1.Code != http.StatusOK {
		t.Fatalf("expected first request to succeed, got %d", rec1.Code)
	}

	req2 := httptest.NewRequest(http.MethodGet, "/health", nil)
	req2.RemoteAddr = "1.2.3.4:1234"
	rec2 := httptest.NewRecorder()
	router.ServeHTTP(rec2, req2)
	if rec2.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second request to be throttled, got %d", rec2.Code)
	}
}

func TestNewRouter_RegistersKeyRoutes(t *testing.T) {
	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.Gatherer = prometheus.NewRegistry()
	}))

	chiRoutes, ok := router.(chi.Router)
	if !ok {
		t.Fatal("router does not implement chi.Routes")
	}

	seen := map[string]bool{}
	if err := chi.Walk(chiRoutes, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		seen[method+" "+route] = true
		return nil
	}); err != nil {
		t.Fatalf("walk failed: %v", err)
	}

	expected := []string{
		"GET /health",
		"GET /ready",
		"GET /metrics",
		"POST /api/v1/accounts/",
		"GET /api/v1/accounts/",
		"GET /api/v1/accounts/{id}",
		"POST /api/v1/accounts/{id}/refresh-balance",
		"GET /api/v1/accounts/{id}/transactions",
		"POST /api/v1/withdrawals",
		"POST /api/v1/transfers",
		"GET /api/v1/transactions/{id}",
		"GET /api/v1/ledger/consistency",
		"GET /api/v1/ledger/reconciliation",
	}

	for _, route := range expected {
		if !seen[route] {
			t.Fatalf("expected route %s to be registered", route)
		}
	}
}

func TestNewRouter_TransferFlow(t *testing.T) {
	const (
		keyOne = "5b7f1c3e-2d41-4a8e-9f0b-6c2d8e1a4b70"
		keyTwo = "0e9a6d2c-71b4-4f3a-8c5d-2b1e9f7a3c64"
	)

	router := NewRouter(newRouterConfig())

	alice := createAccount(t, router, `{"name":"Alice","initialBalance":1000}`)
	bob := createAccount(t, router, `{"name":"Bob","initialBalance":0}`)

	body := `{"sourceId":"` + alice + `","destinationId":"` + bob + `","amount":300}`

	first := send(router, http.MethodPost, "/api/v1/transfers", body, keyOne)
	if first.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", first.Code, first.Body.String())
	}

	replay := send(router, http.MethodPost, "/api/v1/transfers", body, keyOne)
	if replay.Code != http.StatusOK {
		t.Fatalf("expected replay to return 200, got %d: %s", replay.Code, replay.Body.String())
	}

	var a, b dto.RefResponse
	decode(t, first.Body, &a)
	decode(t, replay.Body, &b)
	if a.ID != b.ID || !b.Replayed {
		t.Fatalf("expected replay of %s, got %+v", a.ID, b)
	}

	tooMuch := `{"sourceId":"` + alice + `","destinationId":"` + bob + `","amount":800}`
	if rec := send(router, http.MethodPost, "/api/v1/transfers", tooMuch, keyTwo); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}

	withdrawal := `{"sourceId":"` + alice + `","amount":10}`
	if rec := send(router, http.MethodPost, "/api/v1/withdrawals", withdrawal, keyOne); rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for reused key, got %d", rec.Code)
	}

	rec := send(router, http.MethodGet, "/api/v1/accounts/"+url.PathEscape(alice), "", "")
	var account dto.AccountResponse
	decode(t, rec.Body, &account)
	if account.ReadonlyBalance != 1000 || account.Balance == nil || *account.Balance != 700 {
		t.Fatalf("expected cached 1000 and live 700, got %+v", account)
	}

	if rec := send(router, http.MethodPost, "/api/v1/accounts/"+url.PathEscape(alice)+"/refresh-balance", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected refresh to succeed, got %d", rec.Code)
	}

	rec = send(router, http.MethodGet, "/api/v1/accounts/"+url.PathEscape(alice), "", "")
	decode(t, rec.Body, &account)
	if account.ReadonlyBalance != 700 {
		t.Fatalf("expected refreshed balance 700, got %d", account.ReadonlyBalance)
	}

	if rec := send(router, http.MethodGet, "/api/v1/ledger/consistency", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected consistent ledger, got %d", rec.Code)
	}
}

func TestNewRouter_RejectsWrongIDKind(t *testing.T) {
	router := NewRouter(newRouterConfig())

	// "Transaction:1"
	rec := send(router, http.MethodGet, "/api/v1/accounts/VHJhbnNhY3Rpb246MQ==", "", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func newRouterConfig(opts ...func(*RouterConfig)) RouterConfig {
	store := memory.NewStore()
	accounts := memory.NewAccountRepository(store)
	txns := memory.NewTransactionRepository(store)
	ledger := memory.NewLedgerRepository(store)
	idGen := postgres.NewULIDGenerator()
	logger := zerolog.Nop()

	accountUC := usecase.NewAccountUseCase(accounts, txns, idGen, usecase.NoopPublisher{}, logger)
	transactionUC := usecase.NewTransactionUseCase(accounts, txns, idGen, memory.NewLocker(), usecase.NoopPublisher{}, logger)
	ledgerUC := usecase.NewLedgerUseCase(ledger)
	reconciliationUC := usecase.NewReconciliationUseCase(accounts, txns, ledger)

	cfg := RouterConfig{
		AccountHandler:     handler.NewAccountHandler(accountUC),
		TransactionHandler: handler.NewTransactionHandler(transactionUC),
		LedgerHandler:      handler.NewLedgerHandler(ledgerUC, reconciliationUC),
		HealthHandler:      handler.NewHealthHandler(),
		Logger:             logger,
		Metrics:            metrics.New(prometheus.NewRegistry()),
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	return cfg
}

func createAccount(t *testing.T, router http.Handler, body string) string {
	t.Helper()

	rec := send(router, http.MethodPost, "/api/v1/accounts/", body, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("create account: %d %s", rec.Code, rec.Body.String())
	}

	var ref dto.RefResponse
	decode(t, rec.Body, &ref)
	return ref.ID
}

func send(router http.Handler, method, path, body, key string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set(apimiddleware.IdempotencyKeyHeader, key)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, r io.Reader, v any) {
	t.Helper()

	if err := json.NewDecoder(r).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}
