package align

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/hubdemarcel/ClimateTrade-sub002/market"
)

// ErrInsufficientData means a whole input stream has no usable record
// inside the alignment window. Partial gaps are tolerated; total
// emptiness is not.
var ErrInsufficientData = errors.New("align: insufficient data")

// Config controls grid construction.
type Config struct {
	Start        time.Time
	End          time.Time
	TickInterval time.Duration

	// SourcePriority ranks providers for same-timestamp collisions:
	// a source later in the list wins. Sources not listed lose to
	// every listed one.
	SourcePriority []string
}

func (c Config) Validate() error {
	if c.Start.IsZero() || c.End.IsZero() {
		return fmt.Errorf("align: start and end are required")
	}
	if !c.Start.Before(c.End) {
		return fmt.Errorf("align: start %s must be before end %s", c.Start.Format(time.RFC3339), c.End.Format(time.RFC3339))
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("align: tick interval must be positive, got %s", c.TickInterval)
	}
	return nil
}

// sourceRank maps a source name to its priority. Unlisted sources rank
// below every listed one.
func (c Config) sourceRank(source string) int {
	for i, s := range c.SourcePriority {
		if s == source {
			return i
		}
	}
	return -1
}

// Align builds the dense tick grid over [Start, End] and carries every
// weather field and market quote forward onto it. Per grid tick, each
// (location, field) pair and each contract key holds the most recent
// record at or before the tick; a key with no record yet is simply
// absent. At equal timestamps the higher-priority source wins, and
// within one source the later input row wins.
//
// The inputs are never mutated and each tick's maps are independent
// snapshots, so the result can be shared read-only across concurrent
// backtests.
func Align(cfg Config, weather []market.WeatherRecord, markets []market.MarketRecord) ([]market.AlignedObservation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	wsorted, usableWeather := orderWeather(cfg, weather)
	msorted, usableMarkets := orderMarkets(cfg, markets)

	if usableWeather == 0 {
		return nil, fmt.Errorf("%w: no weather records at or before %s",
			ErrInsufficientData, cfg.End.Format(time.RFC3339))
	}
	if usableMarkets == 0 {
		return nil, fmt.Errorf("%w: no market records at or before %s",
			ErrInsufficientData, cfg.End.Format(time.RFC3339))
	}

	n := int(cfg.End.Sub(cfg.Start)/cfg.TickInterval) + 1
	out := make([]market.AlignedObservation, 0, n)

	// Carried state, updated as the cursors advance. Sorting put the
	// winning record last among equal timestamps, so plain overwrite
	// applies the tie-break.
	weatherState := make(map[string]market.WeatherState)
	marketState := make(map[market.Key]market.Quote)

	wi, mi := 0, 0
	for k := 0; k < n; k++ {
		tick := cfg.Start.Add(time.Duration(k) * cfg.TickInterval)

		for wi < len(wsorted) && !wsorted[wi].Time.After(tick) {
			rec := wsorted[wi]
			st := weatherState[rec.Location]
			if st == nil {
				st = make(market.WeatherState, len(rec.Fields))
				weatherState[rec.Location] = st
			}
			for field, v := range rec.Fields {
				st[field] = v
			}
			wi++
		}

		for mi < len(msorted) && !msorted[mi].Time.After(tick) {
			rec := msorted[mi]
			marketState[rec.Key()] = market.Quote{
				Probability: rec.Probability,
				Volume:      rec.Volume,
			}
			mi++
		}

		out = append(out, market.AlignedObservation{
			Time:    tick,
			Weather: snapshotWeather(weatherState),
			Markets: snapshotMarkets(marketState),
		})
	}

	return out, nil
}

// orderWeather sorts a copy of the records by time, then source
// priority, then input order, and counts the records usable for the
// window (anything at or before End supplies carry-forward values).
func orderWeather(cfg Config, recs []market.WeatherRecord) ([]market.WeatherRecord, int) {
	sorted := make([]market.WeatherRecord, len(recs))
	copy(sorted, recs)

	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if !a.Time.Equal(b.Time) {
			return a.Time.Before(b.Time)
		}
		return cfg.sourceRank(a.Source) < cfg.sourceRank(b.Source)
	})

	usable := 0
	for _, r := range sorted {
		if !r.Time.After(cfg.End) {
			usable++
		}
	}
	return sorted, usable
}

func orderMarkets(cfg Config, recs []market.MarketRecord) ([]market.MarketRecord, int) {
	sorted := make([]market.MarketRecord, len(recs))
	copy(sorted, recs)

	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if !a.Time.Equal(b.Time) {
			return a.Time.Before(b.Time)
		}
		return cfg.sourceRank(a.Source) < cfg.sourceRank(b.Source)
	})

	usable := 0
	for _, r := range sorted {
		if !r.Time.After(cfg.End) {
			usable++
		}
	}
	return sorted, usable
}

func snapshotWeather(state map[string]market.WeatherState) map[string]market.WeatherState {
	snap := make(map[string]market.WeatherState, len(state))
	for loc, st := range state {
		cp := make(market.WeatherState, len(st))
		for field, v := range st {
			cp[field] = v
		}
		snap[loc] = cp
	}
	return snap
}

func snapshotMarkets(state map[market.Key]market.Quote) map[market.Key]market.Quote {
	snap := make(map[market.Key]market.Quote, len(state))
	for k, q := range state {
		snap[k] = q
	}
	return snap
}
