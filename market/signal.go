package market

import "time"

// SignalSide says what a strategy wants done with a contract.
type SignalSide int8

const (
	SideEnter SignalSide = iota + 1
	SideExit
	SideAdjust
)

func (s SignalSide) String() string {
	switch s {
	case SideEnter:
		return "enter"
	case SideExit:
		return "exit"
	case SideAdjust:
		return "adjust"
	default:
		return "unknown"
	}
}

// Signal is a strategy's intent for one contract at one tick, immutable
// once emitted. For enter/adjust exactly one of TargetSize (signed
// contracts) and TargetWeight (signed fraction of equity) should be
// non-zero; both are ignored for exit. Strength grades conviction in
// [0,1] and is advisory: the ledger never scales by it, but composite
// strategies do.
type Signal struct {
	Market       Key
	Side         SignalSide
	TargetSize   float64
	TargetWeight float64
	Strength     float64
	GeneratedAt  time.Time
}
