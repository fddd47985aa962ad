package cmd

import (
	"context"
	"fmt"
	"math"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hubdemarcel/ClimateTrade-sub002/config"
	"github.com/hubdemarcel/ClimateTrade-sub002/internal/logging"
	"github.com/hubdemarcel/ClimateTrade-sub002/journal"
	"github.com/hubdemarcel/ClimateTrade-sub002/optimize"
	"github.com/hubdemarcel/ClimateTrade-sub002/strategies"
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Search strategy parameters for the best backtest score",
	Long: `Optimize runs the configured search (grid, random, or evolutionary)
over the declared parameter space, backtesting every candidate against
the same aligned observations.

Candidate parameters are merged over the strategy's base params, so fix
values in strategy.params and declare only the searched dimensions under
optimizer.parameters. Interrupting with Ctrl-C stops the search between
evaluations and reports the best candidate found so far.

Example:
  climatetrade optimize -f examples/optimize.yaml`,
	RunE: runOptimizeCmd,
}

var (
	optimizeConfigPath string
	optimizeTail       int
)

func init() {
	rootCmd.AddCommand(optimizeCmd)

	optimizeCmd.Flags().StringVarP(&optimizeConfigPath, "config", "f", "", "path to config file (YAML or JSON) (required)")
	optimizeCmd.Flags().IntVar(&optimizeTail, "tail", 10, "evaluations to echo from the end of the search")
	optimizeCmd.MarkFlagRequired("config")
}

func runOptimizeCmd(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(optimizeConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logging.New(cfg.Logging.Level)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	space, err := cfg.OptimizeSpace()
	if err != nil {
		return err
	}
	optCfg, err := cfg.OptimizeConfig()
	if err != nil {
		return err
	}
	template, err := cfg.BacktestConfig()
	if err != nil {
		return err
	}

	obs, err := loadObservations(cfg)
	if err != nil {
		return err
	}

	fmt.Printf("Optimizing %s with config: %s\n", cfg.Strategy.Name, optimizeConfigPath)
	fmt.Printf("  Method: %s (budget %d, seed %d)\n", cfg.Optimizer.Method, cfg.Optimizer.MaxEvaluations, cfg.Optimizer.Seed)
	fmt.Printf("  Space: %s\n", spaceNames(space))
	fmt.Printf("  Observations: %d\n\n", len(obs))

	// Candidate params override the base binding, so a config can pin
	// some parameters and search the rest.
	base := cfg.StrategyParams()
	name := cfg.Strategy.Name
	factory := func(p strategies.Params) (strategies.Strategy, error) {
		merged := base.Clone()
		for k, v := range p {
			merged[k] = v
		}
		return strategies.New(name, merged)
	}

	opt := &optimize.Optimizer{
		Factory:      factory,
		Space:        space,
		Template:     template,
		Observations: obs,
		Config:       optCfg,
		Log:          log,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := opt.Run(ctx)
	if err != nil {
		if res == nil || res.Best == nil {
			return fmt.Errorf("optimize: %w", err)
		}
		fmt.Printf("Search stopped early: %v\n\n", err)
	}

	printTail(res.History, optimizeTail)

	fmt.Printf("\nBest after %d evaluations:\n", res.Evaluations)
	fmt.Printf("  Score: %.6f\n", res.BestScore)
	fmt.Printf("  Params: %s\n", formatParams(res.Best))

	j, dest, err := openJournal(cfg)
	if err != nil {
		return fmt.Errorf("create journal: %w", err)
	}
	if j != nil && res.BestResult != nil {
		defer j.Close()
		if err := journal.Record(j, res.BestResult); err != nil {
			return err
		}
		fmt.Printf("\nBest run %s saved to %s\n", res.BestResult.RunID, dest)
	}

	return nil
}

func printTail(history []optimize.Evaluation, tail int) {
	start := 0
	if tail > 0 && len(history) > tail {
		start = len(history) - tail
		fmt.Printf("  ... %d earlier evaluations\n", start)
	}
	for _, ev := range history[start:] {
		switch {
		case ev.Failed:
			fmt.Printf("  #%-4d failed: %s\n", ev.Index, ev.Err)
		case math.IsNaN(ev.Score):
			fmt.Printf("  #%-4d score=NaN %s\n", ev.Index, formatParams(ev.Params))
		default:
			fmt.Printf("  #%-4d score=%-12.6f %s\n", ev.Index, ev.Score, formatParams(ev.Params))
		}
	}
}

// formatParams renders a binding with sorted keys so output is stable.
func formatParams(p strategies.Params) string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, p[k]))
	}
	return strings.Join(parts, " ")
}

func spaceNames(s optimize.Space) string {
	names := make([]string, 0, len(s))
	for _, p := range s {
		names = append(names, fmt.Sprintf("%s(%s)", p.Name, p.Kind))
	}
	return strings.Join(names, ", ")
}
