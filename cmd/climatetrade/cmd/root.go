package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "climatetrade",
	Short: "A deterministic backtester for weather-driven prediction markets",
	Long: `Climatetrade replays aligned weather and market history against trading
strategies and reports what a strategy would have earned.

It provides tools for:
  - Backtesting strategies over aligned weather/market observations
  - Optimizing strategy parameters by grid, random, or evolutionary search
  - Journaling runs, fills, and equity curves to SQLite or CSV
  - Exporting run reports as org-mode entries

The same inputs always produce the same equity curve: runs are
deterministic by construction, so every journaled result can be
reproduced from its configuration.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}
