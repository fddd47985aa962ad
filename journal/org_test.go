package journal

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hubdemarcel/ClimateTrade-sub002/risk"
)

func TestExportOrg(t *testing.T) {
	t.Parallel()

	res := sampleResult()
	var buf bytes.Buffer
	require.NoError(t, ExportOrg(&buf, res))
	out := buf.String()

	// Headline and properties drawer.
	assert.Contains(t, out, "* BACKTEST: threshold 2024-07-01..2024-07-01")
	assert.Contains(t, out, ":PROPERTIES:")
	assert.Contains(t, out, res.RunID)
	assert.Contains(t, out, ":STRATEGY:    threshold")
	assert.Contains(t, out, ":TICKS:       3")
	assert.Contains(t, out, ":START_BAL:   10000.00")
	assert.Contains(t, out, ":END_BAL:     10200.00")
	assert.Contains(t, out, ":RETURN_PCT:  2.00%")
	assert.Contains(t, out, ":WIN_RATE:    100.00%")
	assert.Contains(t, out, ":END:")

	// NaN ratios render as n/a, never as numbers.
	assert.Contains(t, out, ":SHARPE:      n/a")
	assert.Contains(t, out, "Sharpe:          *n/a*")

	// Trade table.
	assert.Contains(t, out, "| Wins    | 1 |")
	assert.Contains(t, out, "| Total   | 1 |")

	// Stress block with too little data.
	assert.Contains(t, out, "Worst Window:      insufficient data")
}

func TestExportOrgWorstWindow(t *testing.T) {
	t.Parallel()

	res := sampleResult()
	res.Risk.Stress = risk.StressResult{
		WindowStart:      1,
		WindowLen:        2,
		CumulativeReturn: -0.05,
		EquityFraction:   0.95,
	}

	var buf bytes.Buffer
	require.NoError(t, ExportOrg(&buf, res))
	assert.Contains(t, buf.String(), "Worst Window:      -5.00% over 2 ticks from tick 1")
}

func TestExportOrgCreatedTimestamp(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, ExportOrg(&buf, sampleResult()))
	assert.Contains(t, buf.String(), ":CREATED:     [2024-07-01 Mon 12:00]")
}
