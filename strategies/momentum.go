package strategies

import (
	"fmt"
	"math"

	"github.com/hubdemarcel/ClimateTrade-sub002/indicators"
	"github.com/hubdemarcel/ClimateTrade-sub002/market"
)

// MomentumConfig parameterizes the momentum strategy.
type MomentumConfig struct {
	Location string
	Field    string

	FastPeriod int // 4
	SlowPeriod int // 12
	// Lookback is the number of ticks over which market probability
	// drift is measured when deciding whether a weather move is
	// already priced in.
	Lookback int
	// MaxPricedIn is the probability drift (same sign as the cross)
	// above which the market is considered caught up and no entry is
	// made.
	MaxPricedIn float64

	Market market.Key
	Weight float64
}

func MomentumDefaults() MomentumConfig {
	return MomentumConfig{
		Field:       "temperature_c",
		FastPeriod:  4,
		SlowPeriod:  12,
		Lookback:    6,
		MaxPricedIn: 0.05,
		Weight:      0.1,
	}
}

// Momentum trades fast/slow EMA crosses on a weather field against a
// single contract.
// - Enters only on a bull cross, and only while the market probability
//   has not already drifted by MaxPricedIn over the lookback window
// - Exits on a bear cross, or once the probability catches up
type Momentum struct {
	cfg MomentumConfig

	fast  *indicators.ExponentialMA
	slow  *indicators.ExponentialMA
	drift *indicators.Change

	lastDiff     float64
	haveLastDiff bool
}

func NewMomentum(cfg MomentumConfig) (*Momentum, error) {
	if cfg.Location == "" {
		return nil, fmt.Errorf("momentum: location is required")
	}
	if cfg.Field == "" {
		return nil, fmt.Errorf("momentum: field is required")
	}
	if cfg.Market.MarketID == "" {
		return nil, fmt.Errorf("momentum: market is required")
	}
	if cfg.FastPeriod <= 0 || cfg.SlowPeriod <= 0 {
		return nil, fmt.Errorf("momentum: periods must be positive, got fast=%d slow=%d", cfg.FastPeriod, cfg.SlowPeriod)
	}
	if cfg.FastPeriod >= cfg.SlowPeriod {
		return nil, fmt.Errorf("momentum: fast period %d must be shorter than slow period %d", cfg.FastPeriod, cfg.SlowPeriod)
	}
	if cfg.Lookback <= 0 {
		return nil, fmt.Errorf("momentum: lookback must be positive, got %d", cfg.Lookback)
	}
	if cfg.Weight == 0 {
		return nil, fmt.Errorf("momentum: weight must be non-zero")
	}
	return &Momentum{
		cfg:   cfg,
		fast:  indicators.NewEMA(cfg.FastPeriod),
		slow:  indicators.NewEMA(cfg.SlowPeriod),
		drift: indicators.NewChange(cfg.Lookback),
	}, nil
}

func (s *Momentum) Name() string { return "momentum" }

func (s *Momentum) Reset() {
	s.fast.Reset()
	s.slow.Reset()
	s.drift.Reset()
	s.lastDiff = 0
	s.haveLastDiff = false
}

func (s *Momentum) GenerateSignals(obs market.AlignedObservation, open []market.Position) []market.Signal {
	if q, ok := obs.MarketQuote(s.cfg.Market); ok {
		s.drift.Update(q.Probability)
	}

	v, ok := obs.WeatherValue(s.cfg.Location, s.cfg.Field)
	if !ok {
		return nil
	}

	s.fast.Update(v)
	s.slow.Update(v)

	// Wait until both EMAs are warmed up.
	if !s.fast.Ready() || !s.slow.Ready() {
		return nil
	}

	diff := s.fast.Value() - s.slow.Value()

	// Need a previous diff to detect a cross.
	if !s.haveLastDiff {
		s.lastDiff = diff
		s.haveLastDiff = true
		return nil
	}

	// Cross logic:
	// - Bull cross: diff goes from <=0 to >0
	// - Bear cross: diff goes from >=0 to <0
	bullCross := diff > 0 && s.lastDiff <= 0
	bearCross := diff < 0 && s.lastDiff >= 0

	// Update lastDiff early/always to avoid repeated triggers if we return.
	s.lastDiff = diff

	holding := hasOpen(open, s.cfg.Market)
	pricedIn := s.pricedIn()

	switch {
	case bullCross && !holding && !pricedIn:
		return []market.Signal{{
			Market:       s.cfg.Market,
			Side:         market.SideEnter,
			TargetWeight: s.cfg.Weight,
			Strength:     s.strength(diff),
			GeneratedAt:  obs.Time,
		}}
	case holding && (bearCross || pricedIn):
		return []market.Signal{{
			Market:      s.cfg.Market,
			Side:        market.SideExit,
			Strength:    1,
			GeneratedAt: obs.Time,
		}}
	default:
		return nil
	}
}

// pricedIn reports whether the market probability has already drifted
// in the trade's direction by at least MaxPricedIn over the lookback.
func (s *Momentum) pricedIn() bool {
	if !s.drift.Ready() {
		return false
	}
	move := s.drift.Value()
	if s.cfg.Weight < 0 {
		move = -move
	}
	return move >= s.cfg.MaxPricedIn
}

// strength maps the EMA spread onto [0,1] so composites can weigh a
// decisive cross above a marginal one.
func (s *Momentum) strength(diff float64) float64 {
	base := math.Abs(s.slow.Value())
	if base == 0 {
		return 1
	}
	str := math.Abs(diff) / base * 10
	if str > 1 {
		return 1
	}
	if str < 0.1 {
		return 0.1
	}
	return str
}

func init() {
	Register("momentum", func(p Params) (Strategy, error) {
		def := MomentumDefaults()
		cfg := MomentumConfig{
			Location:    p.String("location", ""),
			Field:       p.String("field", def.Field),
			FastPeriod:  p.Int("fast_period", def.FastPeriod),
			SlowPeriod:  p.Int("slow_period", def.SlowPeriod),
			Lookback:    p.Int("lookback", def.Lookback),
			MaxPricedIn: p.Float("max_priced_in", def.MaxPricedIn),
			Market: market.Key{
				MarketID: p.String("market", ""),
				Outcome:  market.Outcome(p.String("outcome", string(market.Yes))),
			},
			Weight: p.Float("weight", def.Weight),
		}
		return NewMomentum(cfg)
	})
}
