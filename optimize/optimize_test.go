package optimize

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hubdemarcel/ClimateTrade-sub002/backtest"
	"github.com/hubdemarcel/ClimateTrade-sub002/market"
	"github.com/hubdemarcel/ClimateTrade-sub002/risk"
	"github.com/hubdemarcel/ClimateTrade-sub002/strategies"
)

var (
	optKey   = market.Key{MarketID: "kx-highs-lhr-30c", Outcome: market.Yes}
	optStart = time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)
)

// tunable buys one tick and sells the next. Entry tick and position
// weight come from the search, so on a rising price path the score is
// strictly better for earlier entries and larger weights.
type tunable struct {
	enter  int
	weight float64
	tick   int
}

func (s *tunable) Name() string { return "tunable" }
func (s *tunable) Reset()       { s.tick = 0 }

func (s *tunable) GenerateSignals(obs market.AlignedObservation, open []market.Position) []market.Signal {
	defer func() { s.tick++ }()
	switch {
	case s.tick == s.enter && len(open) == 0:
		return []market.Signal{{
			Market:       optKey,
			Side:         market.SideEnter,
			TargetWeight: s.weight,
			Strength:     1,
			GeneratedAt:  obs.Time,
		}}
	case s.tick == s.enter+1 && len(open) > 0:
		return []market.Signal{{
			Market:      optKey,
			Side:        market.SideExit,
			Strength:    1,
			GeneratedAt: obs.Time,
		}}
	}
	return nil
}

func tunableFactory(p strategies.Params) (strategies.Strategy, error) {
	w := p.Float("weight", 0)
	if w <= 0 || w > 1 {
		return nil, fmt.Errorf("weight %v outside (0, 1]", w)
	}
	return &tunable{enter: p.Int("enter", 0), weight: w}, nil
}

func tunableSpace() Space {
	return Space{
		{Name: "enter", Kind: Discrete, Min: 0, Max: 4},
		{Name: "weight", Kind: Continuous, Min: 0.1, Max: 0.5, Step: 0.1},
	}
}

func optObs(probs ...float64) []market.AlignedObservation {
	obs := make([]market.AlignedObservation, 0, len(probs))
	for i, p := range probs {
		obs = append(obs, market.AlignedObservation{
			Time:    optStart.Add(time.Duration(i) * time.Hour),
			Weather: map[string]market.WeatherState{"lhr": {"temperature_c": 20}},
			Markets: map[market.Key]market.Quote{optKey: {Probability: p, Volume: 1000}},
		})
	}
	return obs
}

func optTemplate(ticks int) backtest.Config {
	return backtest.Config{
		Start:          optStart,
		End:            optStart.Add(time.Duration(ticks-1) * time.Hour),
		InitialCapital: 10000,
		TickInterval:   time.Hour,
		Risk:           risk.Config{Confidence: 0.95, StressWindow: 2},
	}
}

func scoreTotalReturn(r *backtest.Result) float64 { return r.Performance.TotalReturn }

func newTestOptimizer(cfg Config) *Optimizer {
	return &Optimizer{
		Factory:      tunableFactory,
		Space:        tunableSpace(),
		Template:     optTemplate(5),
		Observations: optObs(0.20, 0.30, 0.40, 0.50, 0.60),
		Config:       cfg,
	}
}

// evalView is an Evaluation without its wall-time Duration, for
// comparing runs.
type evalView struct {
	Index     int
	Params    strategies.Params
	Score     float64
	Failed    bool
	Err       string
	BestSoFar float64
}

func viewOf(history []Evaluation) []evalView {
	out := make([]evalView, len(history))
	for i, ev := range history {
		out[i] = evalView{ev.Index, ev.Params, ev.Score, ev.Failed, ev.Err, ev.BestSoFar}
	}
	return out
}

func TestOptimizerValidation(t *testing.T) {
	t.Parallel()

	base := Config{Method: MethodGrid, MaxEvaluations: 5}

	cases := []struct {
		name    string
		mutate  func(o *Optimizer)
		wantErr string
	}{
		{"missing factory", func(o *Optimizer) { o.Factory = nil }, "Factory is required"},
		{"empty space", func(o *Optimizer) { o.Space = nil }, "parameter space is empty"},
		{"bad template", func(o *Optimizer) { o.Template.InitialCapital = 0 }, "initial capital"},
		{"no observations", func(o *Optimizer) { o.Observations = nil }, "no observations"},
		{"unknown method", func(o *Optimizer) { o.Config.Method = "annealing" }, "unknown method"},
		{"no budget", func(o *Optimizer) { o.Config.MaxEvaluations = 0 }, "max evaluations"},
		{"negative timeout", func(o *Optimizer) { o.Config.Timeout = -time.Second }, "negative timeout"},
		{"bad elite fraction", func(o *Optimizer) { o.Config.EliteFrac = -0.2 }, "elite fraction"},
		{"bad mutation rate", func(o *Optimizer) { o.Config.MutationRate = 1.5 }, "mutation rate"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			o := newTestOptimizer(base)
			tc.mutate(o)

			res, err := o.Run(context.Background())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
			assert.Nil(t, res)
		})
	}
}

func TestGridSearch(t *testing.T) {
	t.Parallel()

	t.Run("exhausts the product and finds the known best", func(t *testing.T) {
		t.Parallel()
		o := newTestOptimizer(Config{
			Method:         MethodGrid,
			MaxEvaluations: 100,
			Workers:        4,
			Score:          scoreTotalReturn,
		})

		res, err := o.Run(context.Background())
		require.NoError(t, err)
		require.Equal(t, 25, res.Evaluations)
		require.Len(t, res.History, 25)

		// Declaration order, last parameter fastest.
		for i, ev := range res.History {
			assert.Equal(t, i, ev.Index)
		}
		assert.Equal(t, 0, res.History[0].Params.Int("enter", -1))
		assert.InDelta(t, 0.1, res.History[0].Params.Float("weight", 0), 1e-12)
		assert.InDelta(t, 0.2, res.History[1].Params.Float("weight", 0), 1e-12)
		assert.Equal(t, 1, res.History[5].Params.Int("enter", -1))
		assert.Equal(t, 4, res.History[24].Params.Int("enter", -1))
		assert.InDelta(t, 0.5, res.History[24].Params.Float("weight", 0), 1e-12)

		// Earliest entry at max weight: buy 0.20, sell 0.30 with half
		// the book, a 25% total return.
		require.NotNil(t, res.Best)
		assert.Equal(t, 0, res.Best.Int("enter", -1))
		assert.InDelta(t, 0.5, res.Best.Float("weight", 0), 1e-12)
		assert.InDelta(t, 0.25, res.BestScore, 1e-9)
		require.NotNil(t, res.BestResult)
		assert.Equal(t, res.BestScore, res.BestResult.Performance.TotalReturn)

		// Running best never regresses and lands on the winner.
		prev := math.Inf(-1)
		for _, ev := range res.History {
			assert.GreaterOrEqual(t, ev.BestSoFar, prev)
			prev = ev.BestSoFar
		}
		assert.Equal(t, res.BestScore, res.History[24].BestSoFar)
	})

	t.Run("budget truncates the product", func(t *testing.T) {
		t.Parallel()
		o := newTestOptimizer(Config{
			Method:         MethodGrid,
			MaxEvaluations: 7,
			Score:          scoreTotalReturn,
		})

		res, err := o.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 7, res.Evaluations)
		assert.Equal(t, 6, res.History[6].Index)
	})

	t.Run("ties go to the earlier evaluation", func(t *testing.T) {
		t.Parallel()
		o := newTestOptimizer(Config{
			Method:         MethodGrid,
			MaxEvaluations: 100,
			Score:          func(*backtest.Result) float64 { return 1 },
		})

		res, err := o.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, res.History[0].Params, res.Best)
	})
}

func TestGridSearchDeterminism(t *testing.T) {
	t.Parallel()

	cfg := Config{Method: MethodGrid, MaxEvaluations: 100, Workers: 8, Score: scoreTotalReturn}
	a, err := newTestOptimizer(cfg).Run(context.Background())
	require.NoError(t, err)
	b, err := newTestOptimizer(cfg).Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, viewOf(a.History), viewOf(b.History))
	assert.Equal(t, a.Best, b.Best)
	assert.Equal(t, a.BestScore, b.BestScore)
}

func TestRandomSearch(t *testing.T) {
	t.Parallel()

	t.Run("draws stay inside the space", func(t *testing.T) {
		t.Parallel()
		o := newTestOptimizer(Config{
			Method:         MethodRandom,
			MaxEvaluations: 12,
			Seed:           42,
			Score:          scoreTotalReturn,
		})

		res, err := o.Run(context.Background())
		require.NoError(t, err)
		require.Equal(t, 12, res.Evaluations)
		for _, ev := range res.History {
			enter := ev.Params.Int("enter", -1)
			w := ev.Params.Float("weight", -1)
			assert.GreaterOrEqual(t, enter, 0)
			assert.LessOrEqual(t, enter, 4)
			assert.GreaterOrEqual(t, w, 0.1)
			assert.LessOrEqual(t, w, 0.5)
		}
	})

	t.Run("same seed replays the same candidates", func(t *testing.T) {
		t.Parallel()
		cfg := Config{Method: MethodRandom, MaxEvaluations: 12, Seed: 42, Workers: 3, Score: scoreTotalReturn}

		a, err := newTestOptimizer(cfg).Run(context.Background())
		require.NoError(t, err)
		b, err := newTestOptimizer(cfg).Run(context.Background())
		require.NoError(t, err)
		require.Equal(t, viewOf(a.History), viewOf(b.History))
	})

	t.Run("different seeds draw different candidates", func(t *testing.T) {
		t.Parallel()
		cfg := Config{Method: MethodRandom, MaxEvaluations: 12, Seed: 42, Score: scoreTotalReturn}
		a, err := newTestOptimizer(cfg).Run(context.Background())
		require.NoError(t, err)

		cfg.Seed = 43
		b, err := newTestOptimizer(cfg).Run(context.Background())
		require.NoError(t, err)
		assert.NotEqual(t, viewOf(a.History), viewOf(b.History))
	})
}

func TestEvolutionarySearch(t *testing.T) {
	t.Parallel()

	cfg := Config{
		Method:         MethodEvolutionary,
		MaxEvaluations: 10,
		Seed:           7,
		Population:     6,
		EliteFrac:      0.34,
		MutationRate:   0.3,
		Score:          scoreTotalReturn,
	}

	t.Run("stops mid-generation at the budget", func(t *testing.T) {
		t.Parallel()
		res, err := newTestOptimizer(cfg).Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 10, res.Evaluations)
		require.NotNil(t, res.Best)

		for _, ev := range res.History {
			enter := ev.Params.Int("enter", -1)
			w := ev.Params.Float("weight", -1)
			assert.GreaterOrEqual(t, enter, 0)
			assert.LessOrEqual(t, enter, 4)
			assert.GreaterOrEqual(t, w, 0.1)
			assert.LessOrEqual(t, w, 0.5)
		}
	})

	t.Run("same seed replays the whole lineage", func(t *testing.T) {
		t.Parallel()
		a, err := newTestOptimizer(cfg).Run(context.Background())
		require.NoError(t, err)

		wide := cfg
		wide.Workers = 8
		b, err := newTestOptimizer(wide).Run(context.Background())
		require.NoError(t, err)

		// Worker count changes scheduling, never candidates.
		require.Equal(t, viewOf(a.History), viewOf(b.History))
	})
}

func TestDefaultScoreIsSharpe(t *testing.T) {
	t.Parallel()

	o := newTestOptimizer(Config{Method: MethodGrid, MaxEvaluations: 100})
	res, err := o.Run(context.Background())
	require.NoError(t, err)

	require.NotNil(t, res.Best)
	assert.False(t, math.IsNaN(res.BestScore))

	// Entering on the final tick leaves a flat curve: zero volatility,
	// NaN Sharpe. Those evaluations stay in the history but never win.
	var sawNaN bool
	for _, ev := range res.History {
		if ev.Params.Int("enter", -1) == 4 && math.IsNaN(ev.Score) {
			sawNaN = true
			assert.False(t, ev.Failed)
		}
	}
	assert.True(t, sawNaN, "expected flat-curve NaN scores in the history")
}

func TestNoSuccessfulEvaluations(t *testing.T) {
	t.Parallel()

	o := newTestOptimizer(Config{Method: MethodGrid, MaxEvaluations: 5, Score: scoreTotalReturn})
	o.Factory = func(strategies.Params) (strategies.Strategy, error) {
		return nil, fmt.Errorf("refusing to build")
	}

	res, err := o.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no successful evaluations")

	require.NotNil(t, res)
	require.Equal(t, 5, res.Evaluations)
	assert.Nil(t, res.Best)
	assert.True(t, math.IsInf(res.BestScore, -1))
	for _, ev := range res.History {
		assert.True(t, ev.Failed)
		assert.Contains(t, ev.Err, "refusing to build")
		assert.True(t, math.IsInf(ev.BestSoFar, -1))
	}
}

func TestEvaluationTimeout(t *testing.T) {
	t.Parallel()

	o := newTestOptimizer(Config{
		Method:         MethodGrid,
		MaxEvaluations: 4,
		Timeout:        time.Nanosecond,
		Score:          scoreTotalReturn,
	})

	res, err := o.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no successful evaluations")

	require.Equal(t, 4, res.Evaluations)
	for _, ev := range res.History {
		assert.True(t, ev.Failed)
		assert.Equal(t, ErrEvaluationTimeout.Error(), ev.Err)
		assert.Greater(t, ev.Duration, time.Duration(0))
	}
}

func TestCancelledBeforeStart(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := newTestOptimizer(Config{Method: MethodGrid, MaxEvaluations: 100, Score: scoreTotalReturn})
	res, err := o.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	require.NotNil(t, res)
	assert.Equal(t, 0, res.Evaluations)
	assert.Nil(t, res.Best)
}

func TestCancelMidSearch(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	o := newTestOptimizer(Config{
		Method:         MethodGrid,
		MaxEvaluations: 100,
		Workers:        1,
		Score:          scoreTotalReturn,
	})
	o.Factory = func(strategies.Params) (strategies.Strategy, error) {
		return &cancelling{cancel: cancel}, nil
	}

	res, err := o.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	// The in-flight evaluation finishes; nothing new starts.
	require.NotNil(t, res)
	require.Equal(t, 1, res.Evaluations)
	assert.False(t, res.History[0].Failed)
	assert.NotNil(t, res.Best)
}

// cancelling aborts the search from inside its first tick.
type cancelling struct {
	cancel context.CancelFunc
}

func (s *cancelling) Name() string { return "cancelling" }
func (s *cancelling) Reset()       {}

func (s *cancelling) GenerateSignals(market.AlignedObservation, []market.Position) []market.Signal {
	s.cancel()
	return nil
}

func TestScoreFunc(t *testing.T) {
	t.Parallel()

	r := &backtest.Result{}
	r.Performance.SharpeRatio = 1.5
	r.Performance.SortinoRatio = 2.5
	r.Performance.TotalReturn = 0.4
	r.Performance.AnnualizedReturn = 0.9
	r.Performance.Expectancy = 12
	r.Performance.ProfitFactor = 3

	cases := []struct {
		name string
		want float64
	}{
		{"", 1.5},
		{"sharpe", 1.5},
		{"sortino", 2.5},
		{"total_return", 0.4},
		{"annualized_return", 0.9},
		{"expectancy", 12},
		{"profit_factor", 3},
	}
	for _, tc := range cases {
		f, err := ScoreFunc(tc.name)
		require.NoError(t, err, tc.name)
		assert.Equal(t, tc.want, f(r), tc.name)
	}

	_, err := ScoreFunc("calmar")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown score")
}
