package market

import "time"

// EquityPoint snapshots the account at one tick.
type EquityPoint struct {
	Time        time.Time
	Cash        float64
	MarketValue float64
	TotalEquity float64
}

// EquityCurve holds one point per tick, in tick order.
type EquityCurve []EquityPoint

// Returns derives per-tick simple returns from consecutive equity
// values. A non-positive previous equity yields a zero return for that
// step rather than an infinity.
func (c EquityCurve) Returns() []float64 {
	if len(c) < 2 {
		return nil
	}
	rets := make([]float64, 0, len(c)-1)
	for i := 1; i < len(c); i++ {
		prev := c[i-1].TotalEquity
		if prev <= 0 {
			rets = append(rets, 0)
			continue
		}
		rets = append(rets, (c[i].TotalEquity-prev)/prev)
	}
	return rets
}

// Final returns the last point. ok is false on an empty curve.
func (c EquityCurve) Final() (EquityPoint, bool) {
	if len(c) == 0 {
		return EquityPoint{}, false
	}
	return c[len(c)-1], true
}
