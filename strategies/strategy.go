package strategies

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hubdemarcel/ClimateTrade-sub002/market"
)

// Strategy is the plugin surface of the backtest engine. It is called
// once per aligned tick with the current observation and copies of the
// open positions, and returns the signals it wants executed. A strategy
// must be a deterministic function of the observations it has seen and
// its own lookback state; the engine only ever shows it the current
// tick, so there is nothing in the future to peek at.
type Strategy interface {
	Name() string

	// Reset clears all lookback state. Called once before each run so
	// a strategy instance can be reused.
	Reset()

	GenerateSignals(obs market.AlignedObservation, open []market.Position) []market.Signal
}

// Factory builds a strategy from a parameter binding. Factories
// validate their parameters and return an error rather than a
// half-configured strategy.
type Factory func(Params) (Strategy, error)

var registry = make(map[string]Factory)

// Register makes a strategy constructible by name. Typically called
// from an init function in the strategy's own file.
func Register(name string, f Factory) {
	registry[strings.ToLower(strings.TrimSpace(name))] = f
}

// New builds a registered strategy by name.
func New(name string, p Params) (Strategy, error) {
	f, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("strategies: unknown strategy %q (supported: %s)",
			name, strings.Join(Names(), ", "))
	}
	return f(p)
}

// Names lists the registered strategy names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// hasOpen reports whether any of the open positions is in the given
// contract.
func hasOpen(open []market.Position, k market.Key) bool {
	for _, p := range open {
		if p.Market == k {
			return true
		}
	}
	return false
}
