package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hubdemarcel/ClimateTrade-sub002/journal"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Query journaled runs",
	Long: `Query and display backtest runs from a SQLite journal.

Subcommands:
  list - List all journaled runs
  run  - Print one run as an org-mode entry

Examples:
  climatetrade report list -d runs.db
  climatetrade report run 01J9WXYZ... -d runs.db --fills`,
}

var reportListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all journaled runs",
	Args:  cobra.NoArgs,
	RunE:  runReportList,
}

var reportRunCmd = &cobra.Command{
	Use:   "run <run-id>",
	Short: "Print one run as an org-mode entry",
	Args:  cobra.ExactArgs(1),
	RunE:  runReportRun,
}

var (
	reportDBPath string
	reportFills  bool
)

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.AddCommand(reportListCmd)
	reportCmd.AddCommand(reportRunCmd)

	reportCmd.PersistentFlags().StringVarP(&reportDBPath, "db", "d", "./climatetrade.sqlite", "path to SQLite journal DB")
	reportRunCmd.Flags().BoolVar(&reportFills, "fills", false, "include the run's fills as an org table")
}

func runReportList(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(reportDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	recs, err := j.ListRuns()
	if err != nil {
		return fmt.Errorf("query runs: %w", err)
	}
	if len(recs) == 0 {
		fmt.Println("No runs journaled.")
		return nil
	}

	fmt.Printf("%-28s %-12s %-24s %10s %8s %7s\n",
		"RUN", "STRATEGY", "WINDOW", "RETURN", "SHARPE", "TRADES")
	for _, rec := range recs {
		window := fmt.Sprintf("%s..%s",
			rec.Start.Format("2006-01-02"), rec.End.Format("2006-01-02"))
		fmt.Printf("%-28s %-12s %-24s %9.2f%% %8.2f %7d\n",
			rec.RunID, rec.Strategy, window,
			rec.TotalReturn*100, rec.SharpeRatio, rec.Trades)
	}
	return nil
}

func runReportRun(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(reportDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	rec, err := j.GetRun(args[0])
	if err != nil {
		return fmt.Errorf("get run: %w", err)
	}
	fmt.Println(journal.FormatRunOrg(rec))

	if reportFills {
		fills, err := j.ListFillsByRun(args[0])
		if err != nil {
			return fmt.Errorf("query fills: %w", err)
		}
		if len(fills) > 0 {
			fmt.Println()
			fmt.Print(journal.FormatFillsOrg(fills))
		}
	}
	return nil
}
