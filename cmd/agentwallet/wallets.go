package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/AlexZinkM/agent-wallet/wallet"
)

func createCmd() *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "create [name]",
		Short: "Generate and store a new wallet",
		Long: `Generate a new Solana keypair and store it encrypted under a passphrase.
The passphrase is asked twice and never stored.`,
		Example: `  agentwallet create trading-bot --description "market maker"`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := walletConfig(nil)
			if err != nil {
				return err
			}
			cfg.Description = description

			if ok, err := wallet.Exists(args[0], cfg); err != nil {
				return err
			} else if ok {
				return fmt.Errorf("wallet %q already exists", args[0])
			}

			pass, err := readNewPassphrase()
			if err != nil {
				return err
			}
			defer clear(pass)

			w, err := wallet.Create(args[0], pass, cfg)
			if err != nil {
				return err
			}
			defer w.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "Created wallet %s\nAddress: %s\n", w.Name(), w.Address())
			return nil
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "free-form description stored with the wallet")
	return cmd
}

func listCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored wallets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := walletConfig(nil)
			if err != nil {
				return err
			}
			wallets, err := wallet.List(cfg)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), wallets)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tADDRESS\tCREATED\tLAST ACCESSED\tDESCRIPTION")
			for _, m := range wallets {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", m.Name, m.PublicKey,
					m.CreatedAt.Format(time.RFC3339), m.LastAccessed.Format(time.RFC3339), m.Description)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print metadata as JSON")
	return cmd
}

func infoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info [name]",
		Short: "Show balance, permission and budget of a wallet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := walletConfig(nil)
			if err != nil {
				return err
			}
			w, err := loadWallet(args[0], cfg)
			if err != nil {
				return err
			}
			defer w.Close()

			info, err := w.Info(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), info)
		},
	}
}

func deleteCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete [name]",
		Short: "Delete a stored wallet",
		Long: `Delete a stored wallet. A backup is written first and can be brought
back with 'agentwallet restore'.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to delete %q without --yes", args[0])
			}
			cfg, err := walletConfig(nil)
			if err != nil {
				return err
			}
			if err := wallet.Delete(args[0], cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted wallet %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm deletion")
	return cmd
}

func qrCmd() *cobra.Command {
	var (
		size   int
		output string
	)

	cmd := &cobra.Command{
		Use:     "qr [name]",
		Short:   "Write the wallet address as a PNG QR code",
		Example: `  agentwallet qr trading-bot -o address.png --size 512`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := walletConfig(nil)
			if err != nil {
				return err
			}
			w, err := loadWallet(args[0], cfg)
			if err != nil {
				return err
			}
			defer w.Close()

			png, err := w.AddressQR(size)
			if err != nil {
				return err
			}
			if output == "" {
				output = args[0] + "-address.png"
			}
			if err := os.WriteFile(output, png, 0o644); err != nil {
				return fmt.Errorf("failed to write QR code: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%s)\n", output, w.Address())
			return nil
		},
	}

	cmd.Flags().IntVar(&size, "size", 256, "image size in pixels")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default <name>-address.png)")
	return cmd
}
