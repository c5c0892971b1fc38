package api

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/AlexZinkM/agent-wallet/docs"
	"github.com/AlexZinkM/agent-wallet/internal/handler"
)

// SetupRouter sets up router with handlers. Metrics of the routes are
// registered on reg and served from it at /metrics.
func SetupRouter(wallet handler.Wallet, ledger handler.Ledger, prices handler.PriceSource, reg *prometheus.Registry) (http.Handler, error) {
	metrics, err := newHTTPMetrics(reg)
	if err != nil {
		return nil, fmt.Errorf("failed to register http metrics: %w", err)
	}
	walletHandler := handler.NewWalletHandler(wallet, prices)
	ledgerHandler := handler.NewLedgerHandler(ledger)

	mux := http.NewServeMux()

	// Swagger UI
	mux.HandleFunc("/swagger/", httpSwagger.WrapHandler)
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	route := func(path string, h http.HandlerFunc) {
		mux.HandleFunc(path, metrics.instrument(path, h))
	}

	// Wallet endpoints
	route("/wallet/info", walletHandler.Info)
	route("/wallet/balance", walletHandler.Balance)
	route("/wallet/history", walletHandler.History)
	route("/wallet/errors", walletHandler.Errors)
	route("/wallet/qr", walletHandler.QR)
	route("/wallet/transfer/sol", walletHandler.TransferSOL)
	route("/wallet/transfer/token", walletHandler.TransferToken)
	route("/wallet/simulate", walletHandler.Simulate)

	// Ledger endpoints
	route("/ledger/health", ledgerHandler.Health)
	route("/ledger/cleanup", ledgerHandler.Cleanup)

	return mux, nil
}
