// Package portfolio tracks cash, positions, and realized P&L for a
// single backtest run, translating strategy signals into fills under
// configured limits. All accounting is float64 against last-known
// marks; reconciliation happens in CheckInvariant.
package portfolio

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/hubdemarcel/ClimateTrade-sub002/market"
)

// Limits bound what the ledger will execute.
type Limits struct {
	// CommissionRate is charged as |quantity| * price * rate per fill.
	CommissionRate float64
	// MaxPositionFrac caps a single position's notional to this
	// fraction of current equity. Oversized targets are clipped to the
	// cap, never rejected.
	MaxPositionFrac float64
	// MaxConcurrent caps the number of simultaneously open contracts.
	// Signals that would open one more are rejected.
	MaxConcurrent int
}

// Ledger is the single-run account. It is not safe for concurrent use;
// each backtest owns its own.
type Ledger struct {
	initialCapital float64
	lim            Limits

	cash      float64
	positions map[market.Key]*market.Position
	realized  float64
	fees      float64
	fillSeq   int
}

func NewLedger(initialCapital float64, lim Limits) *Ledger {
	return &Ledger{
		initialCapital: initialCapital,
		lim:            lim,
		cash:           initialCapital,
		positions:      make(map[market.Key]*market.Position),
	}
}

func (l *Ledger) InitialCapital() float64 { return l.initialCapital }
func (l *Ledger) Cash() float64           { return l.cash }
func (l *Ledger) RealizedPnL() float64    { return l.realized }
func (l *Ledger) FeesPaid() float64       { return l.fees }
func (l *Ledger) OpenCount() int          { return len(l.positions) }

// Positions returns copies of the open positions in stable key order.
func (l *Ledger) Positions() []market.Position {
	out := make([]market.Position, 0, len(l.positions))
	for _, p := range l.positions {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return market.KeyLess(out[i].Market, out[j].Market) })
	return out
}

// Position returns a copy of one open position.
func (l *Ledger) Position(k market.Key) (market.Position, bool) {
	p, ok := l.positions[k]
	if !ok {
		return market.Position{}, false
	}
	return *p, true
}

// markOrEntry values a contract at the current mark, falling back to
// the position's entry price when the contract has no quote this tick.
// MarketValue, Equity, and CheckInvariant all use the same rule so the
// books stay consistent through quote gaps.
func (l *Ledger) markOrEntry(k market.Key, marks map[market.Key]float64) float64 {
	if m, ok := marks[k]; ok {
		return m
	}
	return l.positions[k].AvgEntryPrice
}

// MarketValue sums qty*mark over open positions in sorted key order.
func (l *Ledger) MarketValue(marks map[market.Key]float64) float64 {
	keys := l.sortedPositionKeys()
	var mv float64
	for _, k := range keys {
		mv += l.positions[k].Quantity * l.markOrEntry(k, marks)
	}
	return mv
}

// Equity is cash plus market value at the given marks.
func (l *Ledger) Equity(marks map[market.Key]float64) float64 {
	return l.cash + l.MarketValue(marks)
}

// MarkToMarket snapshots the account at the given marks.
func (l *Ledger) MarkToMarket(marks map[market.Key]float64, now time.Time) market.EquityPoint {
	mv := l.MarketValue(marks)
	return market.EquityPoint{
		Time:        now,
		Cash:        l.cash,
		MarketValue: mv,
		TotalEquity: l.cash + mv,
	}
}

// Apply translates one signal into at most one fill at the current
// marks. It returns the fill, or the rejection that explains why no
// fill happened. Both are nil when the signal is already satisfied
// (the target equals the current quantity).
func (l *Ledger) Apply(sig market.Signal, marks map[market.Key]float64, now time.Time) (*market.Fill, *market.RejectedSignal) {
	cur := 0.0
	pos, hasPos := l.positions[sig.Market]
	if hasPos {
		cur = pos.Quantity
	}

	if sig.Side == market.SideExit && !hasPos {
		return nil, reject(sig, now, RejectNoPosition,
			fmt.Sprintf("exit %s with no open position", sig.Market))
	}

	price, ok := marks[sig.Market]
	if !ok || price <= 0 || math.IsNaN(price) {
		return nil, reject(sig, now, RejectNoMark,
			fmt.Sprintf("no usable mark for %s at this tick", sig.Market))
	}

	var target float64
	switch sig.Side {
	case market.SideExit:
		target = 0
	default:
		if sig.TargetSize != 0 {
			target = sig.TargetSize
		} else {
			target = sig.TargetWeight * l.Equity(marks) / price
		}
		target = l.clipTarget(target, price, marks)
	}

	delta := target - cur
	if delta == 0 {
		return nil, nil
	}

	// Opening one more contract than the concurrency cap allows is
	// rejected outright; nothing is evicted to make room.
	if !hasPos && l.lim.MaxConcurrent > 0 && len(l.positions) >= l.lim.MaxConcurrent {
		return nil, reject(sig, now, RejectPositionLimit,
			fmt.Sprintf("open positions %d at cap %d", len(l.positions), l.lim.MaxConcurrent))
	}

	fee := math.Abs(delta) * price * l.lim.CommissionRate
	newCash := l.cash - delta*price - fee
	if newCash < 0 {
		return nil, reject(sig, now, RejectCapitalLimit,
			fmt.Sprintf("fill needs %.2f cash, %.2f available", delta*price+fee, l.cash))
	}

	// Realize P&L on whatever part of the current position this fill
	// closes. closedQty carries the sign of the closed exposure.
	var realizedPnL float64
	closing := false
	if hasPos && cur*delta < 0 {
		closedQty := math.Min(math.Abs(delta), math.Abs(cur))
		if cur < 0 {
			closedQty = -closedQty
		}
		realizedPnL = (price - pos.AvgEntryPrice) * closedQty
		closing = true
	}

	l.applyPositionChange(sig.Market, cur, target, price, now)

	l.cash = newCash
	l.realized += realizedPnL
	l.fees += fee
	l.fillSeq++

	return &market.Fill{
		ID:          fmt.Sprintf("fill-%06d", l.fillSeq),
		Time:        now,
		Market:      sig.Market,
		Quantity:    delta,
		Price:       price,
		Fee:         fee,
		RealizedPnL: realizedPnL,
		Closing:     closing,
	}, nil
}

// clipTarget caps the target position's notional at
// MaxPositionFrac * equity. Equity is taken before the trade.
func (l *Ledger) clipTarget(target, price float64, marks map[market.Key]float64) float64 {
	if l.lim.MaxPositionFrac <= 0 || target == 0 {
		return target
	}
	maxNotional := l.lim.MaxPositionFrac * l.Equity(marks)
	if maxNotional < 0 {
		maxNotional = 0
	}
	if math.Abs(target)*price <= maxNotional {
		return target
	}
	clipped := maxNotional / price
	if target < 0 {
		clipped = -clipped
	}
	return clipped
}

func (l *Ledger) applyPositionChange(k market.Key, cur, target, price float64, now time.Time) {
	switch {
	case target == 0:
		delete(l.positions, k)

	case cur == 0:
		l.positions[k] = &market.Position{
			Market:        k,
			Quantity:      target,
			AvgEntryPrice: price,
			OpenedAt:      now,
		}

	case cur*target < 0:
		// Sign flip: the old position is fully closed above; the
		// remainder opens fresh at this fill's price.
		l.positions[k] = &market.Position{
			Market:        k,
			Quantity:      target,
			AvgEntryPrice: price,
			OpenedAt:      now,
		}

	case math.Abs(target) > math.Abs(cur):
		// Same-side increase: blend the entry price by quantity.
		pos := l.positions[k]
		added := math.Abs(target) - math.Abs(cur)
		pos.AvgEntryPrice = (pos.AvgEntryPrice*math.Abs(cur) + price*added) / math.Abs(target)
		pos.Quantity = target

	default:
		// Same-side reduce: entry price unchanged.
		l.positions[k].Quantity = target
	}
}

func (l *Ledger) sortedPositionKeys() []market.Key {
	keys := make([]market.Key, 0, len(l.positions))
	for k := range l.positions {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return market.KeyLess(keys[i], keys[j]) })
	return keys
}
