package strategies

import (
	"fmt"

	"github.com/hubdemarcel/ClimateTrade-sub002/market"
)

// ThresholdConfig parameterizes the threshold strategy.
type ThresholdConfig struct {
	Location  string
	Field     string
	Threshold float64
	// Direction is "above" (enter when the field crosses up through
	// the threshold, exit when it reverts below) or "below" (mirrored).
	Direction string
	Market    market.Key
	// Weight is the signed target fraction of equity on entry.
	Weight float64
}

func ThresholdDefaults() ThresholdConfig {
	return ThresholdConfig{
		Field:     "temperature_c",
		Direction: "above",
		Weight:    0.1,
	}
}

// Threshold trades one contract off one weather field: it enters when
// the field crosses the configured threshold and exits when the field
// reverts across it. Crossing needs a previous value, so the first
// usable tick only primes state.
type Threshold struct {
	cfg ThresholdConfig

	prev     float64
	havePrev bool
}

func NewThreshold(cfg ThresholdConfig) (*Threshold, error) {
	if cfg.Location == "" {
		return nil, fmt.Errorf("threshold: location is required")
	}
	if cfg.Field == "" {
		return nil, fmt.Errorf("threshold: field is required")
	}
	if cfg.Market.MarketID == "" {
		return nil, fmt.Errorf("threshold: market is required")
	}
	if cfg.Direction != "above" && cfg.Direction != "below" {
		return nil, fmt.Errorf("threshold: direction must be \"above\" or \"below\", got %q", cfg.Direction)
	}
	if cfg.Weight == 0 {
		return nil, fmt.Errorf("threshold: weight must be non-zero")
	}
	return &Threshold{cfg: cfg}, nil
}

func (s *Threshold) Name() string { return "threshold" }

func (s *Threshold) Reset() {
	s.prev = 0
	s.havePrev = false
}

func (s *Threshold) GenerateSignals(obs market.AlignedObservation, open []market.Position) []market.Signal {
	v, ok := obs.WeatherValue(s.cfg.Location, s.cfg.Field)
	if !ok {
		return nil
	}

	if !s.havePrev {
		s.prev = v
		s.havePrev = true
		return nil
	}
	prev := s.prev
	s.prev = v

	thr := s.cfg.Threshold
	var crossedIn, crossedOut bool
	switch s.cfg.Direction {
	case "above":
		crossedIn = prev <= thr && v > thr
		crossedOut = prev >= thr && v < thr
	case "below":
		crossedIn = prev >= thr && v < thr
		crossedOut = prev <= thr && v > thr
	}

	holding := hasOpen(open, s.cfg.Market)

	switch {
	case crossedIn && !holding:
		return []market.Signal{{
			Market:       s.cfg.Market,
			Side:         market.SideEnter,
			TargetWeight: s.cfg.Weight,
			Strength:     1,
			GeneratedAt:  obs.Time,
		}}
	case crossedOut && holding:
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

func init() {
	Register("threshold", func(p Params) (Strategy, error) {
		def := ThresholdDefaults()
		cfg := ThresholdConfig{
			Location:  p.String("location", ""),
			Field:     p.String("field", def.Field),
			Threshold: p.Float("threshold", 0),
			Direction: p.String("direction", def.Direction),
			Market: market.Key{
				MarketID: p.String("market", ""),
				Outcome:  market.Outcome(p.String("outcome", string(market.Yes))),
			},
			Weight: p.Float("weight", def.Weight),
		}
		return NewThreshold(cfg)
	})
}
