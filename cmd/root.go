package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "webmon",
	Short: "Web monitoring and alerting service",
	Long: `webmon ingests webhook events from Distill Web Monitor, stores them,
evaluates threshold alerts with Pushover notifications, and serves a
background-warmed cache of DEX funding rates.

Monitor values are parsed out of the webhook text, compared against
configured upper/lower thresholds on a fixed cadence, and alerts are
renotified per severity level until the value returns in range.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
