package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/AlexZinkM/agent-wallet/internal/config"
	"github.com/AlexZinkM/agent-wallet/internal/storage"
)

func openStore() (*storage.Store, error) {
	return storage.New(config.Get().Storage())
}

func backupCmd() *cobra.Command {
	var list bool

	cmd := &cobra.Command{
		Use:   "backup [name]",
		Short: "Back up a stored wallet, or list its backups",
		Example: `  agentwallet backup trading-bot
  agentwallet backup trading-bot --list`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			if list {
				backups, err := store.Backups(args[0])
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "PATH\tMODIFIED\tSIZE")
				for _, b := range backups {
					fmt.Fprintf(tw, "%s\t%s\t%d\n", b.Path, b.ModTime.Format(time.RFC3339), b.Size)
				}
				return tw.Flush()
			}

			path, err := store.Backup(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Backed up %s to %s\n", args[0], path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&list, "list", false, "list existing backups instead of writing one")
	return cmd
}

func restoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore [name]",
		Short: "Replace a wallet with its newest backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			if err := store.Restore(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restored %s\n", args[0])
			return nil
		},
	}
}

func pruneBackupsCmd() *cobra.Command {
	var keep int

	cmd := &cobra.Command{
		Use:   "prune-backups",
		Short: "Remove the oldest backups across all wallets",
		Long: `Keep the newest --keep backups across all wallets and remove the rest,
then print storage statistics. --keep 0 removes nothing.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			removed, err := store.CleanupOldBackups(keep)
			if err != nil {
				return err
			}
			stats, err := store.Stats()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d backups\n", removed)
			return printJSON(cmd.OutOrStdout(), stats)
		},
	}

	cmd.Flags().IntVar(&keep, "keep", 10, "number of backups to keep")
	return cmd
}
