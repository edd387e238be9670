package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "tradeloop",
	Short: "A broker-agnostic live trading runtime",
	Long: `Tradeloop runs a live trading session: it turns market quotes and
strategy signals into risk-gated orders, tracks positions and cash in a
crash-safe ledger, and serves a terminal and web dashboard off the same
control queue.

It provides tools for:
  - Running paper or live sessions against pluggable broker adapters
  - Risk management: sizing, stops, daily loss limits, kill switch
  - A durable order journal and atomic session snapshots
  - Querying the order journal from the command line

Complete documentation is available at https://github.com/rustyeddy/tradeloop`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(func() {
		// Broker credentials come from the environment; .env is optional.
		_ = godotenv.Load()
	})
}
