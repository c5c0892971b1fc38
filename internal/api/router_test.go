package api

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlexZinkM/agent-wallet/internal/client"
	"github.com/AlexZinkM/agent-wallet/internal/rpctest"
	"github.com/AlexZinkM/agent-wallet/internal/storage"
	"github.com/AlexZinkM/agent-wallet/wallet"
)

func TestRouterServesRoutesAndMetrics(t *testing.T) {
	rpc := rpctest.NewServer()
	defer rpc.Close()

	reg := prometheus.NewRegistry()
	dir := t.TempDir()
	cfg := wallet.DefaultConfig()
	cfg.Storage = storage.Settings{Path: dir + "/wallets", BackupPath: dir + "/backups"}
	cfg.KDFIterations = 1_000
	cfg.Ledger = client.Config{
		Endpoints:  []client.Endpoint{{URL: rpc.URL, Priority: 1}},
		RetryDelay: time.Millisecond,
		Registerer: reg,
	}
	w, err := wallet.Create("router", []byte("passphrase"), cfg)
	require.NoError(t, err)
	defer w.Close()

	router, err := SetupRouter(w, w.Ledger(), nil, reg)
	require.NoError(t, err)
	srv := httptest.NewServer(router)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/wallet/info")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/wallet/info", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	text := string(body)
	assert.Contains(t, text, `agent_wallet_http_requests_total{code="200",handler="/wallet/info",method="GET"} 1`)
	assert.Contains(t, text, `agent_wallet_http_requests_total{code="405",handler="/wallet/info",method="POST"} 1`)
	assert.Contains(t, text, "agent_wallet_rpc_requests_total")
}

func TestHTTPMetricsRegisterOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := newHTTPMetrics(reg)
	require.NoError(t, err)
	_, err = newHTTPMetrics(reg)
	assert.Error(t, err)
}
