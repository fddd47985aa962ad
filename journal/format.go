package journal

import (
	"fmt"
	"strings"
	"time"

	"github.com/hubdemarcel/ClimateTrade-sub002/market"
)

// shortID truncates an ID for org headings.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// FormatRunOrg renders one journaled run as an org-mode entry. Unlike
// ExportOrg this works from the stored RunRecord alone, so it is what
// the report command prints for historical runs.
func FormatRunOrg(rec RunRecord) string {
	var b strings.Builder

	fmt.Fprintf(&b, "** Run: %s (%s)\n", rec.Strategy, shortID(rec.RunID))
	b.WriteString(":PROPERTIES:\n")
	fmt.Fprintf(&b, ":RUN_ID: %s\n", rec.RunID)
	fmt.Fprintf(&b, ":STRATEGY: %s\n", rec.Strategy)
	fmt.Fprintf(&b, ":WINDOW: %s -- %s\n",
		rec.Start.Format("2006-01-02"), rec.End.Format("2006-01-02"))
	fmt.Fprintf(&b, ":TICK_INTERVAL: %s\n", rec.TickInterval)
	fmt.Fprintf(&b, ":INITIAL_CAPITAL: %.2f\n", rec.InitialCapital)
	fmt.Fprintf(&b, ":FINAL_EQUITY: %.2f\n", rec.FinalEquity)
	fmt.Fprintf(&b, ":TOTAL_RETURN: %s\n", orgPct(rec.TotalReturn))
	fmt.Fprintf(&b, ":SHARPE: %s\n", orgRatio(rec.SharpeRatio))
	fmt.Fprintf(&b, ":MAX_DRAWDOWN: %s\n", orgPct(rec.MaxDrawdown))
	fmt.Fprintf(&b, ":TRADES: %d (%dW/%dL)\n", rec.Trades, rec.Wins, rec.Losses)
	fmt.Fprintf(&b, ":REJECTIONS: %d\n", rec.Rejections)
	fmt.Fprintf(&b, ":CREATED: %s\n", rec.Created.UTC().Format(time.RFC3339))
	b.WriteString(":END:")

	return b.String()
}

// FormatRunsOrg renders several runs separated by blank lines.
func FormatRunsOrg(recs []RunRecord) string {
	entries := make([]string, 0, len(recs))
	for _, rec := range recs {
		entries = append(entries, FormatRunOrg(rec))
	}
	return strings.Join(entries, "\n\n\n")
}

// FormatFillsOrg renders fills as an org table, empty string when there
// are none.
func FormatFillsOrg(fills []market.Fill) string {
	if len(fills) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("| Fill | Time | Market | Qty | Price | Fee | Realized |\n")
	b.WriteString("|------+------+--------+-----+-------+-----+----------|\n")
	for _, f := range fills {
		fmt.Fprintf(&b, "| %s | %s | %s | %.2f | %.4f | %.2f | %.2f |\n",
			f.ID, f.Time.UTC().Format("2006-01-02 15:04"), f.Market,
			f.Quantity, f.Price, f.Fee, f.RealizedPnL)
	}
	return b.String()
}
