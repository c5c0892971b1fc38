package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/AlexZinkM/agent-wallet/internal/config"
	"github.com/AlexZinkM/agent-wallet/pkg/logger"
	"github.com/AlexZinkM/agent-wallet/wallet"
)

// Passphrase sources; replaced in tests.
var (
	readPassphrase    = config.PromptPassphrase
	readNewPassphrase = config.PromptNewPassphrase
)

// version is set with -ldflags "-X main.version=...".
var version = "dev"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "agentwallet",
		Short: "Encrypted Solana wallet for AI agents",
		Long: `agentwallet stores Solana keypairs encrypted at rest and exposes one
of them to an agent over HTTP, behind a permission level, a daily budget
and a per-operation cap.

Configuration is read from AGENT_WALLET_* environment variables and an
optional .env file. Passphrases are always prompted.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Init(); err != nil {
				return err
			}
			return logger.Init(config.Get().Logger())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
	}

	root.AddCommand(
		serveCmd(),
		createCmd(),
		listCmd(),
		infoCmd(),
		deleteCmd(),
		backupCmd(),
		restoreCmd(),
		pruneBackupsCmd(),
		qrCmd(),
		versionCmd(),
	)
	return root
}

// walletConfig builds the wallet configuration with metrics on reg.
func walletConfig(reg prometheus.Registerer) (wallet.Config, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	return config.Get().Wallet(reg)
}

// loadWallet prompts for the passphrase of name and decrypts it.
func loadWallet(name string, cfg wallet.Config) (*wallet.Wallet, error) {
	pass, err := readPassphrase(fmt.Sprintf("Passphrase for %q: ", name))
	if err != nil {
		return nil, err
	}
	defer clear(pass)
	return wallet.Load(name, pass, cfg)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), version)
			return err
		},
	}
}
