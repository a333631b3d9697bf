package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mintfeed",
	Short: "Ingest newly minted token artwork from a live feed",
	Long: "Subscribes to a token-creation websocket feed, fetches each token's metadata and image, " +
		"and hands normalized 400x400 artifacts to a bounded queue.",
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
