package portfolio

import (
	"fmt"
	"math"

	"github.com/hubdemarcel/ClimateTrade-sub002/market"
)

// InvariantViolation reports a failed equity reconciliation. It is
// fatal: a violation means the accounting itself is wrong, so the run
// must abort rather than keep compounding bad numbers.
type InvariantViolation struct {
	Cash        float64
	MarketValue float64
	// Accounted is cash + market value.
	Accounted float64
	// Expected is initial capital + realized - fees + unrealized.
	Expected float64
	Diff     float64
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("portfolio: equity invariant violated: cash %.6f + market value %.6f = %.6f, expected %.6f (diff %.9f)",
		e.Cash, e.MarketValue, e.Accounted, e.Expected, e.Diff)
}

// CheckInvariant reconciles the two independent views of equity:
//
//	cash + sum(qty * mark)  ==  initial + realized - fees + unrealized
//
// Both sides sum positions in sorted key order so the float result is
// reproducible. The tolerance scales with the magnitudes involved.
func (l *Ledger) CheckInvariant(marks map[market.Key]float64) error {
	keys := l.sortedPositionKeys()

	var mv, unrealized float64
	for _, k := range keys {
		pos := l.positions[k]
		mark := l.markOrEntry(k, marks)
		mv += pos.Quantity * mark
		unrealized += (mark - pos.AvgEntryPrice) * pos.Quantity
	}

	accounted := l.cash + mv
	expected := l.initialCapital + l.realized - l.fees + unrealized

	// NaN never compares greater than the tolerance; a NaN diff means
	// corrupt marks reached the books and must abort the run too.
	diff := accounted - expected
	tol := 1e-6 * math.Max(1, math.Max(math.Abs(accounted), math.Abs(expected)))
	if math.IsNaN(diff) || math.Abs(diff) > tol {
		return &InvariantViolation{
			Cash:        l.cash,
			MarketValue: mv,
			Accounted:   accounted,
			Expected:    expected,
			Diff:        diff,
		}
	}
	return nil
}
