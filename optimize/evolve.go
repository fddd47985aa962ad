package optimize

import (
	"context"
	"math"
	"math/rand"
	"sort"

	"go.uber.org/zap"

	"github.com/hubdemarcel/ClimateTrade-sub002/backtest"
	"github.com/hubdemarcel/ClimateTrade-sub002/strategies"
)

// evolve runs the genetic search. All breeding consumes the seeded
// generator sequentially between generations; only the evaluations
// themselves run concurrently, so a seed fully determines the
// candidate sequence regardless of worker count.
func (o *Optimizer) evolve(ctx context.Context, cfg Config, log *zap.Logger) ([]Evaluation, []*backtest.Result, error) {
	rng := rand.New(rand.NewSource(cfg.Seed))

	pop := make([]strategies.Params, cfg.Population)
	for i := range pop {
		pop[i] = sampleParams(o.Space, rng)
	}

	var (
		history []Evaluation
		results []*backtest.Result
	)
	for gen := 0; len(history) < cfg.MaxEvaluations; gen++ {
		batch := pop
		if remaining := cfg.MaxEvaluations - len(history); len(batch) > remaining {
			// Budget runs out mid-generation.
			batch = batch[:remaining]
		}

		evals, res, err := o.evaluateBatch(ctx, cfg, batch, len(history))
		history = append(history, evals...)
		results = append(results, res...)
		if err != nil {
			return history, results, err
		}

		log.Debug("generation evaluated",
			zap.Int("generation", gen),
			zap.Int("population", len(batch)),
			zap.Int("evaluations", len(history)))

		if len(history) >= cfg.MaxEvaluations {
			break
		}
		pop = nextGeneration(o.Space, cfg, rng, evals)
	}
	return history, results, nil
}

// nextGeneration breeds a full population from the generation just
// scored. Failed and NaN-scored candidates stay in the pool with a
// fitness of negative infinity, so they lose tournaments without
// disturbing index order.
func nextGeneration(space Space, cfg Config, rng *rand.Rand, scored []Evaluation) []strategies.Params {
	ranked := make([]Evaluation, len(scored))
	copy(ranked, scored)
	sort.SliceStable(ranked, func(i, j int) bool {
		return fitness(ranked[i]) > fitness(ranked[j])
	})

	elites := int(cfg.EliteFrac * float64(cfg.Population))
	if elites < 1 {
		elites = 1
	}
	if elites > len(ranked) {
		elites = len(ranked)
	}

	next := make([]strategies.Params, 0, cfg.Population)
	for i := 0; i < elites; i++ {
		next = append(next, ranked[i].Params.Clone())
	}
	for len(next) < cfg.Population {
		a := tournament(rng, scored)
		b := tournament(rng, scored)
		child := crossover(space, rng, a, b)
		mutate(space, cfg, rng, child)
		next = append(next, child)
	}
	return next
}

func fitness(ev Evaluation) float64 {
	if ev.Failed || math.IsNaN(ev.Score) {
		return math.Inf(-1)
	}
	return ev.Score
}

// tournament picks the fittest of three random contestants.
func tournament(rng *rand.Rand, scored []Evaluation) strategies.Params {
	best := rng.Intn(len(scored))
	for k := 0; k < 2; k++ {
		c := rng.Intn(len(scored))
		if fitness(scored[c]) > fitness(scored[best]) {
			best = c
		}
	}
	return scored[best].Params
}

// crossover mixes two parents gene by gene in declaration order.
func crossover(space Space, rng *rand.Rand, a, b strategies.Params) strategies.Params {
	child := make(strategies.Params, len(space))
	for _, p := range space {
		if rng.Float64() < 0.5 {
			child[p.Name] = a[p.Name]
		} else {
			child[p.Name] = b[p.Name]
		}
	}
	return child
}

// mutate resamples each gene with probability MutationRate.
func mutate(space Space, cfg Config, rng *rand.Rand, child strategies.Params) {
	for _, p := range space {
		if rng.Float64() < cfg.MutationRate {
			child[p.Name] = sample(p, rng)
		}
	}
}
