// Command rekey re-encrypts a stored wallet under a new passphrase and,
// optionally, a new algorithm or KDF iteration count. The previous record
// is kept as a backup.
//
// Usage:
//
//	rekey trading-bot --algorithm chacha20-poly1305
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/AlexZinkM/agent-wallet/internal/config"
	"github.com/AlexZinkM/agent-wallet/internal/crypto"
	apperrors "github.com/AlexZinkM/agent-wallet/internal/errors"
	"github.com/AlexZinkM/agent-wallet/internal/keyvault"
	"github.com/AlexZinkM/agent-wallet/internal/storage"
	"github.com/AlexZinkM/agent-wallet/pkg/logger"
)

var (
	readPassphrase    = config.PromptPassphrase
	readNewPassphrase = config.PromptNewPassphrase
)

func main() {
	if err := newRekeyCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRekeyCmd() *cobra.Command {
	var (
		algorithm  string
		iterations uint32
	)

	cmd := &cobra.Command{
		Use:   "rekey [name]",
		Short: "Re-encrypt a stored wallet",
		Long: `Decrypt a stored wallet with its current passphrase and encrypt it again
under a new one. The algorithm and KDF iterations default to the ones the
wallet is stored with.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Init(); err != nil {
				return err
			}
			return logger.Init(config.Get().Logger())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			defer func() { _ = logger.Sync() }()
			name := args[0]

			store, err := storage.New(config.Get().Storage())
			if err != nil {
				return err
			}

			oldPass, err := readPassphrase(fmt.Sprintf("Current passphrase for %q: ", name))
			if err != nil {
				return err
			}
			defer clear(oldPass)
			newPass, err := readNewPassphrase()
			if err != nil {
				return err
			}
			defer clear(newPass)

			var alg crypto.Algorithm
			if algorithm != "" {
				if alg, err = crypto.ParseAlgorithm(algorithm); err != nil {
					return err
				}
			}

			addr, err := rekey(store, name, oldPass, newPass, alg, iterations)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Re-encrypted %s (%s)\n", name, addr)
			return nil
		},
	}

	cmd.Flags().StringVarP(&algorithm, "algorithm", "a", "", "aes-256-gcm or chacha20-poly1305 (default: keep)")
	cmd.Flags().Uint32Var(&iterations, "iterations", 0, "PBKDF2 iterations (default: keep)")
	return cmd
}

// rekey re-encrypts name and returns its address. Zero alg or iterations
// keep the stored values.
func rekey(store *storage.Store, name string, oldPass, newPass []byte, alg crypto.Algorithm, iterations uint32) (string, error) {
	blob, meta, err := store.Load(name)
	if err != nil {
		return "", err
	}
	kp, err := keyvault.Decrypt(blob, oldPass)
	if err != nil {
		return "", err
	}
	defer kp.Close()
	if kp.Address() != meta.PublicKey {
		return "", apperrors.Newf(apperrors.CodeInvalidKey, "wallet %q decrypted to %s, metadata says %s",
			name, kp.Address(), meta.PublicKey)
	}

	if alg == "" {
		alg = blob.Algorithm
	}
	if iterations == 0 {
		iterations = blob.KDFIterations
	}
	svc, err := crypto.NewService(alg, iterations)
	if err != nil {
		return "", err
	}
	sealed, err := kp.Encrypt(svc, newPass)
	if err != nil {
		return "", err
	}
	if err := store.Save(name, sealed, kp.Address(), ""); err != nil {
		return "", err
	}
	logger.Audit().Info("wallet re-encrypted",
		slog.String("wallet", name),
		slog.String("from", string(blob.Algorithm)),
		slog.String("to", string(alg)),
		slog.Uint64("iterations", uint64(iterations)))
	return kp.Address(), nil
}
