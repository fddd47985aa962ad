package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hubdemarcel/ClimateTrade-sub002/align"
	"github.com/hubdemarcel/ClimateTrade-sub002/backtest"
	"github.com/hubdemarcel/ClimateTrade-sub002/config"
	"github.com/hubdemarcel/ClimateTrade-sub002/internal/logging"
	"github.com/hubdemarcel/ClimateTrade-sub002/journal"
	"github.com/hubdemarcel/ClimateTrade-sub002/market"
	"github.com/hubdemarcel/ClimateTrade-sub002/strategies"
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Run a backtest from a config file",
	Long: `Backtest replays aligned weather and market history against the
configured strategy and prints a performance report.

The config file names the input CSVs, the run window, the strategy and
its parameters, and optionally a journal to persist the run to.

Example:
  climatetrade backtest -f examples/backtest.yaml`,
	RunE: runBacktestCmd,
}

var backtestConfigPath string

func init() {
	rootCmd.AddCommand(backtestCmd)

	backtestCmd.Flags().StringVarP(&backtestConfigPath, "config", "f", "", "path to config file (YAML or JSON) (required)")
	backtestCmd.MarkFlagRequired("config")
}

func runBacktestCmd(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(backtestConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logging.New(cfg.Logging.Level)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	fmt.Printf("Running backtest with config: %s\n", backtestConfigPath)
	fmt.Printf("  Strategy: %s\n", cfg.Strategy.Name)
	fmt.Printf("  Window: %s .. %s every %s\n",
		cfg.Backtest.Start.Format("2006-01-02 15:04"),
		cfg.Backtest.End.Format("2006-01-02 15:04"),
		cfg.Backtest.TickInterval)

	obs, err := loadObservations(cfg)
	if err != nil {
		return err
	}
	fmt.Printf("  Observations: %d\n\n", len(obs))

	strat, err := strategies.New(cfg.Strategy.Name, cfg.StrategyParams())
	if err != nil {
		return fmt.Errorf("strategy: %w", err)
	}

	btCfg, err := cfg.BacktestConfig()
	if err != nil {
		return err
	}

	eng, err := backtest.New(btCfg, strat, obs, log)
	if err != nil {
		return fmt.Errorf("engine: %w", err)
	}

	res, err := eng.Run()
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	res.WriteReport(os.Stdout)

	j, dest, err := openJournal(cfg)
	if err != nil {
		return fmt.Errorf("create journal: %w", err)
	}
	if j != nil {
		defer j.Close()
		if err := journal.Record(j, res); err != nil {
			return err
		}
		fmt.Printf("\nRun %s saved to %s\n", res.RunID, dest)
	}

	return nil
}

// loadObservations reads both input CSVs and aligns them onto the
// configured tick grid.
func loadObservations(cfg *config.Config) ([]market.AlignedObservation, error) {
	weather, err := align.LoadWeatherCSV(cfg.Data.WeatherCSV)
	if err != nil {
		return nil, fmt.Errorf("load weather: %w", err)
	}
	markets, err := align.LoadMarketCSV(cfg.Data.MarketCSV)
	if err != nil {
		return nil, fmt.Errorf("load markets: %w", err)
	}

	alignCfg, err := cfg.AlignConfig()
	if err != nil {
		return nil, err
	}
	obs, err := align.Align(alignCfg, weather, markets)
	if err != nil {
		return nil, fmt.Errorf("align: %w", err)
	}
	return obs, nil
}

// openJournal builds the configured run sink. A nil journal with a nil
// error means journaling is disabled.
func openJournal(cfg *config.Config) (journal.Journal, string, error) {
	switch cfg.Journal.Type {
	case "csv":
		j, err := journal.NewCSV(cfg.Journal.CSVDir)
		if err != nil {
			return nil, "", err
		}
		return j, cfg.Journal.CSVDir, nil
	case "sqlite":
		j, err := journal.NewSQLite(cfg.Journal.DBPath)
		if err != nil {
			return nil, "", err
		}
		return j, cfg.Journal.DBPath, nil
	default:
		return nil, "", nil
	}
}
