package client

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/AlexZinkM/agent-wallet/internal/errors"
	"github.com/AlexZinkM/agent-wallet/internal/rpctest"
)

func newTestClient(t *testing.T, endpoints ...Endpoint) *LedgerClient {
	t.Helper()
	c, err := New(Config{
		Endpoints:      endpoints,
		Timeout:        2 * time.Second,
		MaxConnections: 2,
		MaxRetries:     3,
		RetryDelay:     time.Millisecond,
		Registerer:     prometheus.NewRegistry(),
	})
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestEndpointHealthMath(t *testing.T) {
	h := NewEndpointHealth()
	assert.Equal(t, 1.0, h.SuccessRate)

	now := time.Now()
	h.RecordFailure(now)
	assert.Less(t, h.SuccessRate, 1.0)
	assert.InDelta(t, 0.95, h.SuccessRate, 1e-9)
	assert.Equal(t, uint32(1), h.ConsecutiveFailures)
	assert.True(t, h.IsHealthy(3))

	h.RecordFailure(now)
	h.RecordFailure(now)
	assert.False(t, h.IsHealthy(3))
	assert.True(t, h.shouldSwitch())

	h.RecordSuccess(now)
	assert.Equal(t, uint32(0), h.ConsecutiveFailures)
	assert.InDelta(t, 0.95*0.95*0.95*0.95+0.05, h.SuccessRate, 1e-9)
	assert.Equal(t, uint64(4), h.TotalRequests)
	assert.Equal(t, uint64(3), h.TotalErrors)
}

func TestShouldSwitchOnLowRate(t *testing.T) {
	h := NewEndpointHealth()
	now := time.Now()
	for i := 0; i < 20; i++ {
		h.RecordFailure(now)
		h.RecordFailure(now)
		h.RecordSuccess(now)
	}
	assert.Less(t, h.SuccessRate, 0.5)
	assert.True(t, h.IsHealthy(3))
	assert.True(t, h.shouldSwitch())
}

func TestFailoverAfterThreeFailures(t *testing.T) {
	primary := rpctest.NewServer()
	defer primary.Close()
	backup := rpctest.NewServer()
	defer backup.Close()
	primary.FailNext(-1, http.StatusInternalServerError)
	backup.SetBalance(42)

	c := newTestClient(t,
		Endpoint{URL: backup.URL, Priority: 2},
		Endpoint{URL: primary.URL, Priority: 1},
	)
	require.Equal(t, primary.URL, c.CurrentEndpoint().URL)

	bal, err := c.GetBalance(context.Background(), solana.NewWallet().PublicKey())
	require.NoError(t, err)
	assert.Equal(t, uint64(42), bal)

	assert.Equal(t, 3, primary.Calls("getBalance"))
	assert.Equal(t, 1, backup.Calls("getBalance"))
	assert.Equal(t, uint64(1), c.SwitchCount())
	assert.Equal(t, backup.URL, c.CurrentEndpoint().URL)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.metrics.switches))

	health := c.Health()
	assert.Equal(t, uint32(3), health[primary.URL].ConsecutiveFailures)
	assert.Equal(t, uint32(0), health[backup.URL].ConsecutiveFailures)
}

func TestNoHealthyEndpoint(t *testing.T) {
	srv := rpctest.NewServer()
	defer srv.Close()
	srv.FailNext(-1, http.StatusBadGateway)

	c := newTestClient(t, Endpoint{URL: srv.URL, Priority: 1})
	_, err := c.GetSlot(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeNoHealthyEndpoint, apperrors.CodeOf(err))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNetwork))
	assert.Equal(t, 3, srv.Calls("getSlot"))
	assert.Zero(t, c.SwitchCount())
}

func TestRetriesExhausted(t *testing.T) {
	a := rpctest.NewServer()
	defer a.Close()
	b := rpctest.NewServer()
	defer b.Close()
	a.FailNext(-1, http.StatusServiceUnavailable)
	b.FailNext(-1, http.StatusTooManyRequests)

	c := newTestClient(t, Endpoint{URL: a.URL, Priority: 1}, Endpoint{URL: b.URL, Priority: 2})
	_, err := c.GetSlot(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeRetriesExhausted, apperrors.CodeOf(err))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeRateLimited))
	assert.Equal(t, 4, a.Calls("getSlot")+b.Calls("getSlot"))
}

func TestRecoversWithinRetries(t *testing.T) {
	srv := rpctest.NewServer()
	defer srv.Close()
	srv.FailNext(2, http.StatusInternalServerError)

	c := newTestClient(t, Endpoint{URL: srv.URL, Priority: 1})
	slot, err := c.GetSlot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(4242), slot)
	assert.Equal(t, 3, srv.Calls("getSlot"))
	assert.Equal(t, uint32(0), c.Health()[srv.URL].ConsecutiveFailures)
}

func TestNotFoundIsNotRetried(t *testing.T) {
	srv := rpctest.NewServer()
	defer srv.Close()

	c := newTestClient(t, Endpoint{URL: srv.URL, Priority: 1})
	_, err := c.GetAccountInfo(context.Background(), solana.NewWallet().PublicKey())
	assert.Equal(t, apperrors.CodeNotFound, apperrors.CodeOf(err))
	assert.Equal(t, 1, srv.Calls("getAccountInfo"))
}

func TestMissingAccountsKeepEndpointHealthy(t *testing.T) {
	srv := rpctest.NewServer()
	defer srv.Close()
	c := newTestClient(t, Endpoint{URL: srv.URL, Priority: 1})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, exists, err := c.TokenAccountExists(ctx, solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey())
		require.NoError(t, err)
		assert.False(t, exists)
	}
	assert.Equal(t, uint32(0), c.Health()[srv.URL].ConsecutiveFailures)

	srv.FailNext(1, http.StatusServiceUnavailable)
	balance, err := c.GetBalance(ctx, solana.NewWallet().PublicKey())
	require.NoError(t, err)
	assert.Equal(t, uint64(5_000_000_000), balance)
	assert.Equal(t, 2, srv.Calls("getBalance"))
	assert.Equal(t, uint64(0), c.SwitchCount())
}

func TestAuthTokenSent(t *testing.T) {
	tests := []struct {
		name string
		rps  float64
	}{
		{"unlimited", 0},
		{"rate limited", 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := rpctest.NewServer()
			defer srv.Close()

			c := newTestClient(t, Endpoint{URL: srv.URL, Priority: 1, AuthToken: "secret", RequestsPerSecond: tt.rps})
			_, err := c.GetSlot(context.Background())
			require.NoError(t, err)
			assert.Equal(t, "Bearer secret", srv.Authorization())
		})
	}
}

func TestPoolBusyFailsFast(t *testing.T) {
	srv := rpctest.NewServer()
	defer srv.Close()
	c, err := New(Config{
		Endpoints:      []Endpoint{{URL: srv.URL, Priority: 1}},
		MaxConnections: 1,
		Registerer:     prometheus.NewRegistry(),
	})
	require.NoError(t, err)
	defer c.Close()

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		_, err := Execute(context.Background(), c, "hold", func(ctx context.Context, _ *rpc.Client) (int, error) {
			close(started)
			<-release
			return 1, nil
		})
		done <- err
	}()
	<-started

	begin := time.Now()
	_, err = Execute(context.Background(), c, "second", func(ctx context.Context, _ *rpc.Client) (int, error) {
		return 2, nil
	})
	assert.Equal(t, apperrors.CodePoolBusy, apperrors.CodeOf(err))
	assert.Less(t, time.Since(begin), 50*time.Millisecond)
	assert.Equal(t, 1, c.PoolStats()[srv.URL].InUse)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, 0, c.PoolStats()[srv.URL].InUse)
}

func TestCleanupIdleConnections(t *testing.T) {
	srv := rpctest.NewServer()
	defer srv.Close()
	c := newTestClient(t, Endpoint{URL: srv.URL, Priority: 1})

	clock := time.Now()
	c.now = func() time.Time { return clock }

	_, err := c.GetSlot(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, c.PoolStats()[srv.URL].Open)

	assert.Zero(t, c.CleanupIdleConnections(time.Minute))
	clock = clock.Add(2 * time.Minute)
	assert.Equal(t, 1, c.CleanupIdleConnections(time.Minute))
	assert.Equal(t, 0, c.PoolStats()[srv.URL].Open)

	_, err = c.GetSlot(context.Background())
	require.NoError(t, err)
}

func TestProbeBringsEndpointBack(t *testing.T) {
	srv := rpctest.NewServer()
	defer srv.Close()
	srv.FailNext(3, http.StatusInternalServerError)

	c := newTestClient(t, Endpoint{URL: srv.URL, Priority: 1})
	_, err := c.GetSlot(context.Background())
	require.Error(t, err)
	assert.False(t, c.Health()[srv.URL].IsHealthy(maxConsecutiveFailures))

	results := c.ProbeEndpoints(context.Background())
	assert.NoError(t, results[srv.URL])
	assert.True(t, c.Health()[srv.URL].IsHealthy(maxConsecutiveFailures))
}

func TestCallerCancellation(t *testing.T) {
	srv := rpctest.NewServer()
	defer srv.Close()
	c := newTestClient(t, Endpoint{URL: srv.URL, Priority: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.GetSlot(ctx)
	require.Error(t, err)
	assert.False(t, apperrors.RetryableError(err))
	assert.Zero(t, srv.TotalCalls())
}

func TestNewValidatesEndpoints(t *testing.T) {
	_, err := New(Config{})
	assert.Equal(t, apperrors.CodeInvalidArgument, apperrors.CodeOf(err))

	_, err = New(Config{Endpoints: []Endpoint{{URL: "http://a"}, {URL: "http://a"}}})
	assert.Equal(t, apperrors.CodeInvalidArgument, apperrors.CodeOf(err))
}

func TestBlockhashAndTokenAccount(t *testing.T) {
	srv := rpctest.NewServer()
	defer srv.Close()
	c := newTestClient(t, Endpoint{URL: srv.URL, Priority: 1})
	ctx := context.Background()

	bh, err := c.GetLatestBlockhash(ctx)
	require.NoError(t, err)
	assert.False(t, bh.Hash.IsZero())
	assert.Equal(t, uint64(1000), bh.LastValidBlockHeight)

	rent, err := c.TokenAccountRentExempt(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2_039_280), rent)

	_, exists, err := c.TokenAccountExists(ctx, solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey())
	require.NoError(t, err)
	assert.False(t, exists)
}
