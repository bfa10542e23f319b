// Command ledgerctl runs administrative ledger tasks against the configured
// database: balance corrections, payment allocation previews, one-off
// reminder passes and schema bootstrap.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "ledgerctl",
	Short:         "ledgerctl administers the account ledger",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	_ = godotenv.Load()
	rootCmd.AddCommand(createSetBalanceCmd())
	rootCmd.AddCommand(createAllocateCmd())
	rootCmd.AddCommand(createRemindCmd())
	rootCmd.AddCommand(createSchemaCmd())
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(rootCmd.ErrOrStderr(), err)
		os.Exit(1)
	}
}
