// Package cli implements the walletd command tree.
package cli

import (
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "walletd",
	Short: "Credit wallet ledger daemon",
	Long: `walletd serves a credit wallet ledger over HTTP: per-user balances
in integer cents, atomic spend authorization, recurring billing-period
resets and an append-only transaction log. Storage backends: in-memory,
SQLite, Postgres and MongoDB.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "walletd.toml", "Path to the TOML config file")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
