package portfolio

import (
	"time"

	"github.com/hubdemarcel/ClimateTrade-sub002/market"
)

// Rejection reason codes. Rejections are recorded and skipped; they
// never abort a run.
const (
	// RejectNoPosition: exit signal for a contract with nothing open.
	RejectNoPosition = "NO_POSITION"
	// RejectNoMark: the contract has no usable quote at this tick.
	RejectNoMark = "NO_MARK"
	// RejectPositionLimit: the fill would open more concurrent
	// positions than allowed.
	RejectPositionLimit = "POSITION_LIMIT"
	// RejectCapitalLimit: the fill would drive cash negative.
	RejectCapitalLimit = "CAPITAL_LIMIT"
)

func reject(sig market.Signal, now time.Time, code, reason string) *market.RejectedSignal {
	return &market.RejectedSignal{
		Time:   now,
		Signal: sig,
		Code:   code,
		Reason: reason,
	}
}
