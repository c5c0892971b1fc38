package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/AlexZinkM/agent-wallet/internal/api"
	"github.com/AlexZinkM/agent-wallet/internal/client"
	"github.com/AlexZinkM/agent-wallet/internal/config"
	"github.com/AlexZinkM/agent-wallet/internal/handler"
	"github.com/AlexZinkM/agent-wallet/pkg/logger"
)

const shutdownTimeout = 30 * time.Second

func serveCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a wallet over HTTP",
		Long: `Decrypt a wallet and serve it over HTTP on AGENT_WALLET_PORT.

The wallet is chosen with --wallet or AGENT_WALLET_WALLET_NAME. Metrics are
served at /metrics and the API reference at /swagger/.`,
		Example: `  agentwallet serve --wallet trading-bot`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				name = config.GetWalletName()
			}
			log := logger.Named("server")

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

			cfg, err := walletConfig(reg)
			if err != nil {
				return err
			}
			w, err := loadWallet(name, cfg)
			if err != nil {
				return err
			}
			defer w.Close()

			var prices handler.PriceSource
			if config.PriceFeedEnabled() {
				prices = client.NewCoinGeckoClient(config.Get().CoinGeckoURL)
			}

			router, err := api.SetupRouter(w, w.Ledger(), prices, reg)
			if err != nil {
				return err
			}

			server := &http.Server{
				Addr:              ":" + config.GetPort(),
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				log.Info("starting server", slog.String("port", config.GetPort()),
					slog.String("wallet", name), slog.String("address", w.Address()))
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			log.Info("shutting down server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				log.Error("server shutdown error", slog.Any("error", err))
				return err
			}
			log.Info("server stopped")
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "wallet", "w", "", "wallet to serve (default AGENT_WALLET_WALLET_NAME)")
	return cmd
}
