package market

import (
	"sort"
	"time"
)

// WeatherState is the carried-forward weather for one location,
// field name to latest value.
type WeatherState map[string]float64

// AlignedObservation is one tick of the aligned dataset: the most
// recent weather per location and the most recent quote per contract
// as of Time. A key with no observation yet is absent from its map;
// absence is the missing-data marker, never a zero value.
//
// Observations are shared read-only across concurrent backtests.
// Nothing may mutate the maps after alignment.
type AlignedObservation struct {
	Time    time.Time
	Weather map[string]WeatherState
	Markets map[Key]Quote
}

// WeatherValue looks up one weather field for a location. ok is false
// when no provider has reported that field yet.
func (o AlignedObservation) WeatherValue(location, field string) (float64, bool) {
	st, ok := o.Weather[location]
	if !ok {
		return 0, false
	}
	v, ok := st[field]
	return v, ok
}

// MarketQuote looks up the current quote for a contract. ok is false
// before the contract's first tick.
func (o AlignedObservation) MarketQuote(k Key) (Quote, bool) {
	q, ok := o.Markets[k]
	return q, ok
}

// MarketKeys returns the quoted contracts at this tick in stable order.
func (o AlignedObservation) MarketKeys() []Key {
	keys := make([]Key, 0, len(o.Markets))
	for k := range o.Markets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return KeyLess(keys[i], keys[j]) })
	return keys
}
