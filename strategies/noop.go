package strategies

import "github.com/hubdemarcel/ClimateTrade-sub002/market"

// Noop emits nothing. Baseline for engine plumbing tests.
type Noop struct{}

func (Noop) Name() string { return "noop" }
func (Noop) Reset()       {}

func (Noop) GenerateSignals(market.AlignedObservation, []market.Position) []market.Signal {
	return nil
}

func init() {
	Register("noop", func(Params) (Strategy, error) { return Noop{}, nil })
}
