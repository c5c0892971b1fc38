package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlexZinkM/agent-wallet/internal/client"
	apperrors "github.com/AlexZinkM/agent-wallet/internal/errors"
	"github.com/AlexZinkM/agent-wallet/internal/model"
	"github.com/AlexZinkM/agent-wallet/internal/rpctest"
	"github.com/AlexZinkM/agent-wallet/internal/storage"
	"github.com/AlexZinkM/agent-wallet/wallet"
)

type fixedPrice struct {
	price float64
	err   error
}

func (p fixedPrice) SOLPriceUSD(context.Context) (float64, error) {
	return p.price, p.err
}

func setup(t *testing.T, prices PriceSource) (*WalletHandler, *wallet.Wallet, *rpctest.Server) {
	t.Helper()
	srv := rpctest.NewServer()
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	cfg := wallet.DefaultConfig()
	cfg.Storage = storage.Settings{Path: dir + "/wallets", BackupPath: dir + "/backups"}
	cfg.KDFIterations = 1_000
	cfg.MaxTransactionsPerMinute = 0
	cfg.Ledger = client.Config{
		Endpoints:  []client.Endpoint{{URL: srv.URL, Priority: 1}},
		RetryDelay: time.Millisecond,
		Registerer: prometheus.NewRegistry(),
	}
	w, err := wallet.Create("http", []byte("passphrase"), cfg)
	require.NoError(t, err)
	t.Cleanup(w.Close)
	return NewWalletHandler(w, prices), w, srv
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func TestBalanceWithUSD(t *testing.T) {
	h, w, _ := setup(t, fixedPrice{price: 150})

	rec := httptest.NewRecorder()
	h.Balance(rec, httptest.NewRequest(http.MethodGet, "/wallet/balance?usd=true", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[model.BalanceResponse](t, rec)
	assert.Equal(t, w.Address(), body.Address)
	assert.Equal(t, uint64(5_000_000_000), body.Lamports)
	assert.Equal(t, "5.000000000", body.SOL)
	assert.Equal(t, "150.00", body.Rate)
	assert.Equal(t, "750.00", body.USD)
}

func TestBalanceSurvivesPriceOutage(t *testing.T) {
	h, _, _ := setup(t, fixedPrice{err: errors.New("down")})

	rec := httptest.NewRecorder()
	h.Balance(rec, httptest.NewRequest(http.MethodGet, "/wallet/balance?usd=true", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[model.BalanceResponse](t, rec)
	assert.Empty(t, body.USD)
}

func TestMethodNotAllowed(t *testing.T) {
	h, _, _ := setup(t, nil)

	rec := httptest.NewRecorder()
	h.TransferSOL(rec, httptest.NewRequest(http.MethodGet, "/wallet/transfer/sol", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestTransferSOL(t *testing.T) {
	h, w, srv := setup(t, nil)
	to := solana.NewWallet().PublicKey()

	body := `{"toAddress":"` + to.String() + `","amount":"0.25","memo":"invoice 7"}`
	rec := httptest.NewRecorder()
	h.TransferSOL(rec, httptest.NewRequest(http.MethodPost, "/wallet/transfer/sol", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[model.TransferResponse](t, rec)
	assert.NotEmpty(t, resp.ID)
	assert.NotEmpty(t, resp.TxID)
	assert.Len(t, srv.Sent(), 1)
	assert.Equal(t, model.DefaultDailyLimit-250_000_000, w.RuntimeState().Spending.Remaining)
}

func TestTransferErrors(t *testing.T) {
	to := solana.NewWallet().PublicKey().String()
	tests := []struct {
		name   string
		body   string
		status int
		code   apperrors.Code
	}{
		{"malformed json", `{`, http.StatusBadRequest, apperrors.CodeInvalidArgument},
		{"bad address", `{"toAddress":"nope","amount":"1"}`, http.StatusBadRequest, apperrors.CodeInvalidArgument},
		{"bad amount", `{"toAddress":"` + to + `","amount":"-1"}`, http.StatusBadRequest, apperrors.CodeInvalidArgument},
		{"above cap", `{"toAddress":"` + to + `","amount":"2"}`, http.StatusUnprocessableEntity, apperrors.CodeLimitExceeded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _, _ := setup(t, nil)
			rec := httptest.NewRecorder()
			h.TransferSOL(rec, httptest.NewRequest(http.MethodPost, "/wallet/transfer/sol", strings.NewReader(tt.body)))
			assert.Equal(t, tt.status, rec.Code)
			body := decode[model.ErrorResponse](t, rec)
			assert.Equal(t, string(tt.code), body.Code)
		})
	}
}

func TestTransferTokenNeedsPermission(t *testing.T) {
	h, _, _ := setup(t, nil)
	body := `{"mint":"` + solana.NewWallet().PublicKey().String() + `","toAddress":"` +
		solana.NewWallet().PublicKey().String() + `","amount":"1.5","decimals":6}`

	rec := httptest.NewRecorder()
	h.TransferToken(rec, httptest.NewRequest(http.MethodPost, "/wallet/transfer/token", strings.NewReader(body)))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	resp := decode[model.ErrorResponse](t, rec)
	assert.Equal(t, string(apperrors.CodePermissionDenied), resp.Code)
	assert.Equal(t, string(apperrors.CategoryPolicy), resp.Category)
	assert.False(t, resp.Recoverable)
}

func TestHistoryAndErrors(t *testing.T) {
	h, w, _ := setup(t, nil)
	ctx := context.Background()
	_, err := w.Perform(ctx, model.TransferSOL(solana.NewWallet().PublicKey(), 1_000_000, ""))
	require.NoError(t, err)
	_, err = w.Perform(ctx, model.TransferSOL(solana.NewWallet().PublicKey(), 2_000_000_000, ""))
	require.Error(t, err)

	rec := httptest.NewRecorder()
	h.History(rec, httptest.NewRequest(http.MethodGet, "/wallet/history?status=submitted&minAmount=0.001", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	hist := decode[model.HistoryResponse](t, rec)
	require.Len(t, hist.Transactions, 1)
	assert.Equal(t, "0.001000000", hist.TotalSpent)

	rec = httptest.NewRecorder()
	h.History(rec, httptest.NewRequest(http.MethodGet, "/wallet/history?from=yesterday", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.Errors(rec, httptest.NewRequest(http.MethodGet, "/wallet/errors", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	errs := decode[model.ErrorsResponse](t, rec)
	require.Len(t, errs.Errors, 1)
	assert.Equal(t, string(apperrors.CodeLimitExceeded), errs.Errors[0].Code)
}

func TestSimulate(t *testing.T) {
	h, _, srv := setup(t, nil)
	body := `{"action":{"kind":"transfer_sol","to":"` + solana.NewWallet().PublicKey().String() + `","amount":1000}}`

	rec := httptest.NewRecorder()
	h.Simulate(rec, httptest.NewRequest(http.MethodPost, "/wallet/simulate", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[model.SimulateResponse](t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, uint64(150), resp.ComputeUnitsConsumed)
	assert.Equal(t, uint64(5000), resp.Fee)
	assert.Empty(t, srv.Sent())
}

func TestQR(t *testing.T) {
	h, _, _ := setup(t, nil)

	rec := httptest.NewRecorder()
	h.QR(rec, httptest.NewRequest(http.MethodGet, "/wallet/qr?size=64", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))

	rec = httptest.NewRecorder()
	h.QR(rec, httptest.NewRequest(http.MethodGet, "/wallet/qr?size=5000", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLedgerHealthAndCleanup(t *testing.T) {
	_, w, _ := setup(t, nil)
	_, err := w.Balance(context.Background())
	require.NoError(t, err)
	h := NewLedgerHandler(w.Ledger())

	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/ledger/health?probe=true", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	health := decode[model.LedgerHealthResponse](t, rec)
	require.Len(t, health.Endpoints, 1)
	status := health.Endpoints[health.Current]
	assert.True(t, status.Healthy)
	assert.Equal(t, uint64(2), status.TotalRequests)
	assert.Equal(t, 1, status.OpenConnections)

	rec = httptest.NewRecorder()
	h.Cleanup(rec, httptest.NewRequest(http.MethodPost, "/ledger/cleanup?maxIdle=0s", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[model.CleanupResponse](t, rec).Closed)

	rec = httptest.NewRecorder()
	h.Cleanup(rec, httptest.NewRequest(http.MethodPost, "/ledger/cleanup?maxIdle=soon", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		code   apperrors.Code
		status int
	}{
		{apperrors.CodeRateLimited, http.StatusTooManyRequests},
		{apperrors.CodeInsufficientFunds, http.StatusUnprocessableEntity},
		{apperrors.CodeNoHealthyEndpoint, http.StatusServiceUnavailable},
		{apperrors.CodeNotSupported, http.StatusNotImplemented},
		{apperrors.CodeStorage, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.status, statusOf(apperrors.New(tt.code, "x")), tt.code)
	}
	assert.Equal(t, http.StatusInternalServerError, statusOf(errors.New("plain")))
}
