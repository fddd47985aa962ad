// Package optimize searches a strategy's parameter space for the
// configuration that scores best over a fixed observation window.
//
// Three methods are supported: exhaustive grid search, seeded random
// search, and a small genetic search. All three are deterministic for
// a given Seed and Space: every random draw happens on a single
// sequential generator, and only the backtest evaluations themselves
// run in parallel.
package optimize

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hubdemarcel/ClimateTrade-sub002/backtest"
	"github.com/hubdemarcel/ClimateTrade-sub002/market"
	"github.com/hubdemarcel/ClimateTrade-sub002/strategies"
)

// Method selects the search algorithm.
type Method string

const (
	MethodGrid         Method = "grid"
	MethodRandom       Method = "random"
	MethodEvolutionary Method = "evolutionary"
)

// ErrEvaluationTimeout marks an evaluation whose wall time exceeded
// Config.Timeout. The evaluation still completes; it is scored as
// failed and kept in the history.
var ErrEvaluationTimeout = errors.New("optimize: evaluation exceeded timeout")

// Config tunes the search.
type Config struct {
	// Method defaults to grid.
	Method Method `yaml:"method" json:"method"`

	// MaxEvaluations caps the total number of backtests across the
	// whole search, including failed ones.
	MaxEvaluations int `yaml:"max_evaluations" json:"max_evaluations"`

	// Seed drives every random draw. The same seed over the same
	// space replays the same candidate sequence.
	Seed int64 `yaml:"seed" json:"seed"`

	// Workers bounds concurrent evaluations. 0 means NumCPU.
	Workers int `yaml:"workers" json:"workers"`

	// Timeout is the per-evaluation wall-time budget. 0 disables it.
	Timeout time.Duration `yaml:"timeout" json:"timeout"`

	// Score ranks completed backtests; higher is better. Defaults to
	// the Sharpe ratio.
	Score func(*backtest.Result) float64 `yaml:"-" json:"-"`

	// Evolutionary knobs. Ignored by the other methods.
	Population   int     `yaml:"population" json:"population"`
	EliteFrac    float64 `yaml:"elite_frac" json:"elite_frac"`
	MutationRate float64 `yaml:"mutation_rate" json:"mutation_rate"`
}

func (c Config) withDefaults() Config {
	if c.Method == "" {
		c.Method = MethodGrid
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.Score == nil {
		c.Score = DefaultScore
	}
	if c.Population <= 0 {
		c.Population = 20
	}
	if c.EliteFrac == 0 {
		c.EliteFrac = 0.1
	}
	if c.MutationRate == 0 {
		c.MutationRate = 0.1
	}
	return c
}

func (c Config) validate() error {
	switch c.Method {
	case MethodGrid, MethodRandom, MethodEvolutionary:
	default:
		return fmt.Errorf("optimize: unknown method %q", c.Method)
	}
	if c.MaxEvaluations <= 0 {
		return fmt.Errorf("optimize: max evaluations must be positive, got %d", c.MaxEvaluations)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("optimize: negative timeout %v", c.Timeout)
	}
	if c.EliteFrac < 0 || c.EliteFrac >= 1 {
		return fmt.Errorf("optimize: elite fraction %v outside [0, 1)", c.EliteFrac)
	}
	if c.MutationRate < 0 || c.MutationRate > 1 {
		return fmt.Errorf("optimize: mutation rate %v outside [0, 1]", c.MutationRate)
	}
	return nil
}

// DefaultScore ranks runs by Sharpe ratio.
func DefaultScore(r *backtest.Result) float64 {
	return r.Performance.SharpeRatio
}

// ScoreFunc resolves a score by name, for wiring from config files.
func ScoreFunc(name string) (func(*backtest.Result) float64, error) {
	switch name {
	case "", "sharpe":
		return DefaultScore, nil
	case "sortino":
		return func(r *backtest.Result) float64 { return r.Performance.SortinoRatio }, nil
	case "total_return":
		return func(r *backtest.Result) float64 { return r.Performance.TotalReturn }, nil
	case "annualized_return":
		return func(r *backtest.Result) float64 { return r.Performance.AnnualizedReturn }, nil
	case "expectancy":
		return func(r *backtest.Result) float64 { return r.Performance.Expectancy }, nil
	case "profit_factor":
		return func(r *backtest.Result) float64 { return r.Performance.ProfitFactor }, nil
	default:
		return nil, fmt.Errorf("optimize: unknown score %q", name)
	}
}

// Evaluation is one completed backtest inside a search.
type Evaluation struct {
	// Index is the evaluation's position in the search, counted in
	// submission order from zero.
	Index  int               `json:"index"`
	Params strategies.Params `json:"params"`
	Score  float64           `json:"score"`

	// Failed evaluations carry Err and never become Best.
	Failed bool   `json:"failed"`
	Err    string `json:"err,omitempty"`

	Duration time.Duration `json:"duration"`

	// BestSoFar is the best score over evaluations 0..Index. Negative
	// infinity until the first success.
	BestSoFar float64 `json:"best_so_far"`
}

// Result is the outcome of a search.
type Result struct {
	Best        strategies.Params `json:"best"`
	BestScore   float64           `json:"best_score"`
	BestResult  *backtest.Result  `json:"best_result"`
	History     []Evaluation      `json:"history"`
	Evaluations int               `json:"evaluations"`
}

// Optimizer runs one search. Configure the exported fields and call
// Run once.
type Optimizer struct {
	// Factory builds the strategy under test from a candidate's
	// parameters.
	Factory strategies.Factory

	// Space declares the dimensions to search.
	Space Space

	// Template is the backtest configuration shared by every
	// evaluation; only the strategy parameters vary.
	Template backtest.Config

	// Observations is the aligned data window every candidate is
	// scored on.
	Observations []market.AlignedObservation

	Config Config

	// Log defaults to a no-op logger.
	Log *zap.Logger
}

// Run executes the search. Cancelling ctx stops the search between
// evaluations; in-flight backtests run to completion and the partial
// Result is returned alongside the context error.
func (o *Optimizer) Run(ctx context.Context) (*Result, error) {
	if o.Factory == nil {
		return nil, fmt.Errorf("optimize: Factory is required")
	}
	if err := o.Space.Validate(); err != nil {
		return nil, err
	}
	if err := o.Template.Validate(); err != nil {
		return nil, err
	}
	if len(o.Observations) == 0 {
		return nil, fmt.Errorf("optimize: no observations")
	}

	cfg := o.Config.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	log := o.Log
	if log == nil {
		log = zap.NewNop()
	}

	log.Info("optimization starting",
		zap.String("method", string(cfg.Method)),
		zap.Int("max_evaluations", cfg.MaxEvaluations),
		zap.Int("parameters", len(o.Space)),
		zap.Int("workers", cfg.Workers),
		zap.Int64("seed", cfg.Seed))

	var (
		history []Evaluation
		results []*backtest.Result
		runErr  error
	)
	switch cfg.Method {
	case MethodGrid:
		candidates, err := gridCandidates(o.Space, cfg.MaxEvaluations)
		if err != nil {
			return nil, err
		}
		history, results, runErr = o.evaluateBatch(ctx, cfg, candidates, 0)

	case MethodRandom:
		rng := rand.New(rand.NewSource(cfg.Seed))
		candidates := make([]strategies.Params, cfg.MaxEvaluations)
		for i := range candidates {
			candidates[i] = sampleParams(o.Space, rng)
		}
		history, results, runErr = o.evaluateBatch(ctx, cfg, candidates, 0)

	case MethodEvolutionary:
		history, results, runErr = o.evolve(ctx, cfg, log)
	}

	res := finalize(history, results)
	if runErr != nil {
		log.Warn("optimization stopped early",
			zap.Int("evaluations", res.Evaluations),
			zap.Error(runErr))
		return res, runErr
	}
	if res.Best == nil {
		return res, fmt.Errorf("optimize: no successful evaluations")
	}

	log.Info("optimization complete",
		zap.Int("evaluations", res.Evaluations),
		zap.Float64("best_score", res.BestScore),
		zap.Any("best_params", res.Best))
	return res, nil
}

// evaluateBatch scores candidates concurrently, Workers at a time.
// Evaluations land in a pre-sized slice by index, so the output order
// never depends on scheduling. On cancellation the slice keeps only
// the evaluations that actually started.
func (o *Optimizer) evaluateBatch(ctx context.Context, cfg Config, candidates []strategies.Params, offset int) ([]Evaluation, []*backtest.Result, error) {
	evals := make([]*Evaluation, len(candidates))
	results := make([]*backtest.Result, len(candidates))
	sem := make(chan struct{}, cfg.Workers)

	g, gctx := errgroup.WithContext(ctx)
	for i, params := range candidates {
		i, params := i, params
		g.Go(func() error {
			// The done branch can lose the select race once the
			// semaphore frees, so check cancellation explicitly: no
			// evaluation starts after the context dies.
			if err := gctx.Err(); err != nil {
				return err
			}
			select {
			case <-gctx.Done():
				return gctx.Err()
			case sem <- struct{}{}:
			}
			defer func() { <-sem }()
			if err := gctx.Err(); err != nil {
				return err
			}

			ev, res := o.evaluate(cfg, offset+i, params)
			evals[i] = &ev
			results[i] = res
			return nil
		})
	}
	err := g.Wait()

	// Compact: cancelled slots are nil.
	outEvals := make([]Evaluation, 0, len(candidates))
	outResults := make([]*backtest.Result, 0, len(candidates))
	for i, ev := range evals {
		if ev == nil {
			continue
		}
		outEvals = append(outEvals, *ev)
		outResults = append(outResults, results[i])
	}
	return outEvals, outResults, err
}

// evaluate runs one backtest. The engine never sees the search's
// context: a started evaluation always runs to completion, and the
// timeout is applied to its wall time afterwards.
func (o *Optimizer) evaluate(cfg Config, index int, params strategies.Params) (Evaluation, *backtest.Result) {
	ev := Evaluation{Index: index, Params: params.Clone(), Score: math.Inf(-1)}
	start := time.Now()

	strat, err := o.Factory(params)
	if err != nil {
		ev.Duration = time.Since(start)
		ev.Failed = true
		ev.Err = err.Error()
		return ev, nil
	}
	eng, err := backtest.New(o.Template, strat, o.Observations, nil)
	if err != nil {
		ev.Duration = time.Since(start)
		ev.Failed = true
		ev.Err = err.Error()
		return ev, nil
	}
	res, err := eng.Run()
	ev.Duration = time.Since(start)
	if err != nil {
		ev.Failed = true
		ev.Err = err.Error()
		return ev, nil
	}
	if cfg.Timeout > 0 && ev.Duration > cfg.Timeout {
		ev.Failed = true
		ev.Err = ErrEvaluationTimeout.Error()
		return ev, nil
	}

	ev.Score = cfg.Score(res)
	return ev, res
}

// finalize computes running bests and picks the winner. Ties go to
// the earlier evaluation, and NaN scores never win.
func finalize(history []Evaluation, results []*backtest.Result) *Result {
	res := &Result{
		BestScore:   math.Inf(-1),
		History:     history,
		Evaluations: len(history),
	}
	best := math.Inf(-1)
	for i := range history {
		ev := &history[i]
		if !ev.Failed && !math.IsNaN(ev.Score) && ev.Score > best {
			best = ev.Score
			res.Best = ev.Params
			res.BestScore = ev.Score
			res.BestResult = results[i]
		}
		ev.BestSoFar = best
	}
	return res
}
