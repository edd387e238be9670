package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

const version = "0.3.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  `Display the current version of the tradeloop CLI.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("tradeloop version %s\n", version)
		fmt.Println("A broker-agnostic live trading runtime")
		fmt.Println("https://github.com/rustyeddy/tradeloop")
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
