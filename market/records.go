package market

import "time"

// Outcome labels one side of a prediction-market contract: "yes", "no",
// or a categorical bucket such as "3-4in".
type Outcome string

const (
	Yes Outcome = "yes"
	No  Outcome = "no"
)

// Key identifies a tradeable contract: one outcome of one market.
type Key struct {
	MarketID string
	Outcome  Outcome
}

func (k Key) String() string {
	return k.MarketID + "/" + string(k.Outcome)
}

// KeyLess orders keys by market ID, then outcome. Anything that iterates
// contract maps for float accounting sorts with this so sums are
// reproducible run to run.
func KeyLess(a, b Key) bool {
	if a.MarketID != b.MarketID {
		return a.MarketID < b.MarketID
	}
	return a.Outcome < b.Outcome
}

// WeatherRecord is one validated observation from a weather provider.
// Fields holds named measurements (temperature_c, humidity_pct,
// precipitation_mm, wind_speed_ms, ...). Records arrive already
// validated; alignment only orders and carries them forward.
type WeatherRecord struct {
	Time     time.Time
	Location string
	Source   string
	Fields   map[string]float64
}

// MarketRecord is one price tick for a single contract: the traded
// probability in [0,1] plus the volume behind it.
type MarketRecord struct {
	Time        time.Time
	MarketID    string
	Outcome     Outcome
	Source      string
	Probability float64
	Volume      float64
}

// Key returns the contract this record prices.
func (r MarketRecord) Key() Key {
	return Key{MarketID: r.MarketID, Outcome: r.Outcome}
}

// Quote is the market state of one contract at an aligned tick.
type Quote struct {
	Probability float64
	Volume      float64
}
