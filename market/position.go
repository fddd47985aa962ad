package market

import (
	"math"
	"time"
)

// Position is open exposure in one contract. Quantity is signed,
// positive long. Positions belong to the ledger and change only through
// fills; strategies receive copies.
type Position struct {
	Market        Key
	Quantity      float64
	AvgEntryPrice float64
	OpenedAt      time.Time
}

// Notional returns |Quantity| * price.
func (p Position) Notional(price float64) float64 {
	return math.Abs(p.Quantity) * price
}

// UnrealizedPnL marks the open quantity against price.
func (p Position) UnrealizedPnL(price float64) float64 {
	return (price - p.AvgEntryPrice) * p.Quantity
}

// Fill is one executed signal: the signed quantity delta, the price it
// executed at, the fee charged, and the P&L realized by any closing
// leg. Closing marks fills that reduced or closed an existing position.
type Fill struct {
	ID          string
	Time        time.Time
	Market      Key
	Quantity    float64
	Price       float64
	Fee         float64
	RealizedPnL float64
	Closing     bool
}

// RejectedSignal records a signal the ledger refused, with a stable
// reason code. Rejections are trade-log entries, not errors: the run
// continues.
type RejectedSignal struct {
	Time   time.Time
	Signal Signal
	Code   string
	Reason string
}

// TradeLog accumulates every fill and rejection of a run. Append-only,
// never sampled or truncated.
type TradeLog struct {
	Fills      []Fill
	Rejections []RejectedSignal
}
