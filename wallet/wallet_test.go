package wallet

import (
	"bytes"
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlexZinkM/agent-wallet/internal/client"
	"github.com/AlexZinkM/agent-wallet/internal/common"
	apperrors "github.com/AlexZinkM/agent-wallet/internal/errors"
	"github.com/AlexZinkM/agent-wallet/internal/model"
	"github.com/AlexZinkM/agent-wallet/internal/rpctest"
	"github.com/AlexZinkM/agent-wallet/internal/storage"
)

var passphrase = []byte("correct horse battery staple")

func testConfig(t *testing.T, srv *rpctest.Server) Config {
	t.Helper()
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Storage = storage.Settings{
		Path:        dir + "/wallets",
		BackupPath:  dir + "/backups",
		MaxVersions: 3,
	}
	cfg.KDFIterations = 1_000
	cfg.Ledger = client.Config{
		Endpoints:  []client.Endpoint{{URL: srv.URL, Priority: 1}},
		MaxRetries: 0,
		RetryDelay: time.Millisecond,
		Registerer: prometheus.NewRegistry(),
	}
	cfg.MaxTransactionsPerMinute = 0
	return cfg
}

func newTestWallet(t *testing.T, mutate func(*Config)) (*Wallet, *rpctest.Server) {
	t.Helper()
	srv := rpctest.NewServer()
	t.Cleanup(srv.Close)
	cfg := testConfig(t, srv)
	if mutate != nil {
		mutate(&cfg)
	}
	w, err := Create("agent", passphrase, cfg)
	require.NoError(t, err)
	t.Cleanup(w.Close)
	return w, srv
}

func recipient() solana.PublicKey {
	return solana.NewWallet().PublicKey()
}

func TestCreateLoadSave(t *testing.T) {
	srv := rpctest.NewServer()
	defer srv.Close()
	cfg := testConfig(t, srv)

	w, err := Create("agent", passphrase, cfg)
	require.NoError(t, err)
	address := w.Address()
	w.Close()

	_, err = Create("agent", passphrase, cfg)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeAlreadyExists))

	exists, err := Exists("agent", cfg)
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = Load("agent", []byte("wrong"), cfg)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeAuthentication))

	cfg.Ledger.Registerer = prometheus.NewRegistry()
	loaded, err := Load("agent", passphrase, cfg)
	require.NoError(t, err)
	assert.Equal(t, address, loaded.Address())

	err = loaded.Save(nil)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotSupported))

	require.NoError(t, loaded.Save([]byte("new passphrase")))
	loaded.Close()

	cfg.Ledger.Registerer = prometheus.NewRegistry()
	reloaded, err := Load("agent", []byte("new passphrase"), cfg)
	require.NoError(t, err)
	defer reloaded.Close()
	assert.Equal(t, address, reloaded.Address())

	list, err := List(cfg)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, address, list[0].PublicKey)

	require.NoError(t, Delete("agent", cfg))
	exists, err = Exists("agent", cfg)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestPerformDeductsBudget(t *testing.T) {
	w, srv := newTestWallet(t, nil)
	amount := common.LamportsPerSOL / 2

	rec, err := w.Perform(context.Background(), model.TransferSOL(recipient(), amount, "rent"))
	require.NoError(t, err)
	assert.Equal(t, model.StatusSubmitted, rec.Status)
	assert.NotEmpty(t, rec.Signature)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, uint64(5000), rec.Fee)
	require.Len(t, srv.Sent(), 1)

	state := w.RuntimeState()
	assert.Equal(t, model.DefaultDailyLimit-amount, state.Spending.Remaining)
	assert.Len(t, state.History, 1)
	assert.Equal(t, uint64(1), state.DecisionCount)
	assert.Empty(t, w.RecentErrors())
	assert.Equal(t, amount, w.TotalSpent())
}

func TestBudgetConservedOverManyTransfers(t *testing.T) {
	w, srv := newTestWallet(t, nil)
	ctx := context.Background()
	amounts := []uint64{100_000_000, 250_000_000, 1_000_000, 999_999_999, 42}

	var total uint64
	for _, a := range amounts {
		_, err := w.Perform(ctx, model.TransferSOL(recipient(), a, ""))
		require.NoError(t, err)
		total += a
		assert.Equal(t, model.DefaultDailyLimit-total, w.RuntimeState().Spending.Remaining)
	}
	assert.Equal(t, total, w.TotalSpent())
	require.Len(t, srv.Sent(), len(amounts))

	srv.FailNext(1, http.StatusInternalServerError)
	_, err := w.Perform(ctx, model.TransferSOL(recipient(), 500_000_000, ""))
	require.Error(t, err)
	_, err = w.Perform(ctx, model.TransferSOL(recipient(), 2*common.LamportsPerSOL, ""))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeLimitExceeded))

	state := w.RuntimeState()
	assert.Equal(t, model.DefaultDailyLimit-total, state.Spending.Remaining)
	assert.Equal(t, total, w.TotalSpent())
	assert.Len(t, srv.Sent(), len(amounts))
	assert.Len(t, w.RecentErrors(), 2)
}

func TestPerformFailureKeepsBudget(t *testing.T) {
	w, srv := newTestWallet(t, nil)
	srv.FailNext(1, http.StatusInternalServerError)

	_, err := w.Perform(context.Background(), model.TransferSOL(recipient(), 1000, ""))
	require.Error(t, err)
	assert.Empty(t, srv.Sent())

	state := w.RuntimeState()
	assert.Equal(t, model.DefaultDailyLimit, state.Spending.Remaining)
	require.Len(t, state.History, 1)
	assert.Equal(t, model.StatusFailed, state.History[0].Status)

	errs := w.RecentErrors()
	require.Len(t, errs, 1)
	assert.Equal(t, "perform transfer_sol", errs[0].Context)
	assert.NotEmpty(t, errs[0].Code)
	assert.Less(t, state.SuccessRate, 1.0)
}

func TestPerformPolicyRejections(t *testing.T) {
	tests := []struct {
		name    string
		balance uint64
		action  model.Action
		code    apperrors.Code
	}{
		{
			name:    "token transfer needs advanced",
			balance: 5 * common.LamportsPerSOL,
			action:  model.TransferToken(recipient(), recipient(), 10, nil, ""),
			code:    apperrors.CodePermissionDenied,
		},
		{
			name:    "above per-operation cap",
			balance: 5 * common.LamportsPerSOL,
			action:  model.TransferSOL(recipient(), 2*common.LamportsPerSOL, ""),
			code:    apperrors.CodeLimitExceeded,
		},
		{
			name:    "balance below amount plus fee",
			balance: 1000,
			action:  model.TransferSOL(recipient(), 1000, ""),
			code:    apperrors.CodeInsufficientFunds,
		},
		{
			name:    "stake needs advanced",
			balance: 5 * common.LamportsPerSOL,
			action:  model.Action{Kind: model.ActionStake, Amount: 1},
			code:    apperrors.CodePermissionDenied,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, srv := newTestWallet(t, nil)
			srv.SetBalance(tt.balance)

			_, err := w.Perform(context.Background(), tt.action)
			require.Error(t, err)
			assert.True(t, apperrors.HasCode(err, tt.code), "got %v", err)
			assert.Empty(t, srv.Sent())
			assert.Equal(t, model.DefaultDailyLimit, w.RuntimeState().Spending.Remaining)

			errs := w.RecentErrors()
			require.Len(t, errs, 1)
			assert.Equal(t, string(tt.code), errs[0].Code)
			assert.False(t, errs[0].Recoverable)
		})
	}
}

func TestPerformNotSupported(t *testing.T) {
	w, _ := newTestWallet(t, func(c *Config) { c.Permission = model.PermissionFull })

	_, err := w.Perform(context.Background(), model.Action{Kind: model.ActionStake, Amount: 1})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotSupported))
}

func TestNoOpMakesNoCalls(t *testing.T) {
	w, srv := newTestWallet(t, nil)

	rec, err := w.Perform(context.Background(), model.NoOp())
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, rec.Status)
	assert.Empty(t, rec.Signature)
	assert.Zero(t, srv.TotalCalls())
	assert.Equal(t, model.DefaultDailyLimit, w.RuntimeState().Spending.Remaining)
}

func TestRateLimit(t *testing.T) {
	w, _ := newTestWallet(t, func(c *Config) { c.MaxTransactionsPerMinute = 2 })
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := w.Perform(ctx, model.NoOp())
		require.NoError(t, err)
	}
	_, err := w.Perform(ctx, model.NoOp())
	assert.True(t, apperrors.HasCode(err, apperrors.CodeRateLimited))

	errs := w.RecentErrors()
	require.Len(t, errs, 1)
	assert.True(t, errs[0].Recoverable)
}

func TestRecentErrorsKeepsLastTen(t *testing.T) {
	w, _ := newTestWallet(t, func(c *Config) { c.Permission = model.PermissionReadOnly })
	ctx := context.Background()

	for i := 0; i < model.MaxRecentErrors+2; i++ {
		_, err := w.Perform(ctx, model.TransferSOL(recipient(), uint64(i+1), ""))
		require.Error(t, err)
	}
	assert.Len(t, w.RecentErrors(), model.MaxRecentErrors)

	history, err := w.History(nil)
	require.NoError(t, err)
	assert.Len(t, history, model.MaxRecentErrors+2)
	assert.Equal(t, uint64(model.MaxRecentErrors+2), history[0].Amount)
}

func TestSimulateSpendsNothing(t *testing.T) {
	w, srv := newTestWallet(t, nil)

	sim, err := w.Simulate(context.Background(), model.TransferSOL(recipient(), 1000, ""))
	require.NoError(t, err)
	require.NotNil(t, sim.Result)
	assert.True(t, sim.Result.Success)
	assert.Equal(t, uint64(150), sim.Result.ComputeUnitsConsumed)
	assert.True(t, sim.Validation.Valid)
	assert.Empty(t, srv.Sent())
	assert.Equal(t, 1, srv.Calls("simulateTransaction"))

	state := w.RuntimeState()
	assert.Equal(t, model.DefaultDailyLimit, state.Spending.Remaining)
	assert.Empty(t, state.History)
}

func TestDailyBudgetResets(t *testing.T) {
	w, _ := newTestWallet(t, nil)
	amount := common.LamportsPerSOL

	_, err := w.Perform(context.Background(), model.TransferSOL(recipient(), amount, ""))
	require.NoError(t, err)
	assert.Equal(t, model.DefaultDailyLimit-amount, w.RuntimeState().Spending.Remaining)

	start := time.Now().UTC()
	w.now = func() time.Time { return start.Add(25 * time.Hour) }
	state := w.RuntimeState()
	assert.Equal(t, model.DefaultDailyLimit, state.Spending.Remaining)
	assert.Equal(t, start.Add(25*time.Hour), state.Spending.LastReset)
}

func TestSetSpendingLimits(t *testing.T) {
	w, _ := newTestWallet(t, nil)

	err := w.SetSpendingLimits(common.LamportsPerSOL, 2*common.LamportsPerSOL)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidArgument))

	require.NoError(t, w.SetSpendingLimits(2*common.LamportsPerSOL, common.LamportsPerSOL/2))
	spending := w.RuntimeState().Spending
	assert.Equal(t, 2*common.LamportsPerSOL, spending.DailyLimit)
	assert.Equal(t, 2*common.LamportsPerSOL, spending.Remaining)

	_, err = w.Perform(context.Background(), model.TransferSOL(recipient(), common.LamportsPerSOL, ""))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeLimitExceeded))
}

func TestSetPermissionUnlocksTokens(t *testing.T) {
	w, srv := newTestWallet(t, nil)
	decimals := uint8(6)
	action := model.TransferToken(recipient(), recipient(), 10, &decimals, "")

	_, err := w.Perform(context.Background(), action)
	require.True(t, apperrors.HasCode(err, apperrors.CodePermissionDenied))

	w.SetPermission(model.PermissionAdvanced)
	rec, err := w.Perform(context.Background(), action)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSubmitted, rec.Status)
	assert.Len(t, srv.Sent(), 1)
}

func TestInfoAndQR(t *testing.T) {
	w, _ := newTestWallet(t, nil)

	info, err := w.Info(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "agent", info.Name)
	assert.Equal(t, w.Address(), info.Address)
	assert.Equal(t, 5*common.LamportsPerSOL, info.BalanceLamports)
	assert.Equal(t, model.PermissionBasic, info.Permission)
	assert.True(t, info.Active)

	png, err := w.AddressQR(128)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
}

func TestHistoryFilter(t *testing.T) {
	w, _ := newTestWallet(t, nil)
	ctx := context.Background()

	_, err := w.Perform(ctx, model.NoOp())
	require.NoError(t, err)
	_, err = w.Perform(ctx, model.TransferSOL(recipient(), 1000, ""))
	require.NoError(t, err)

	status := model.StatusSubmitted
	got, err := w.History(&model.HistoryFilter{Status: &status})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, model.ActionTransferSOL, got[0].Kind)

	bad := model.TransactionStatus("bogus")
	_, err = w.History(&model.HistoryFilter{Status: &bad})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidArgument))
}
