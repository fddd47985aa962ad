package journal

import (
	"fmt"
	"io"
	"math"
	"text/template"
	"time"

	"github.com/hubdemarcel/ClimateTrade-sub002/backtest"
)

// orgPct renders a fraction as a percentage, "n/a" for NaN.
func orgPct(x float64) string {
	if math.IsNaN(x) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", x*100)
}

// orgRatio renders a bare ratio, "n/a" for NaN.
func orgRatio(x float64) string {
	if math.IsNaN(x) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", x)
}

var orgFuncs = template.FuncMap{
	"pct":   orgPct,
	"ratio": orgRatio,
	"orTime": func(t time.Time) time.Time {
		if t.IsZero() {
			return time.Now()
		}
		return t
	},
}

// ExportOrg renders a run as an org-mode headline with a properties
// drawer, ready to refile into a trading journal.
func ExportOrg(w io.Writer, res *backtest.Result) error {
	t, err := template.New("run").Funcs(orgFuncs).Parse(orgTemplate)
	if err != nil {
		return err
	}
	return t.Execute(w, res)
}

const orgTemplate = `* BACKTEST: {{.StrategyName}} {{.Config.Start.Format "2006-01-02"}}..{{.Config.End.Format "2006-01-02"}}
:PROPERTIES:
:RUN_ID:      {{.RunID}}
:STRATEGY:    {{.StrategyName}}
:START_DATE:  {{.Config.Start.Format "2006-01-02"}}
:END_DATE:    {{.Config.End.Format "2006-01-02"}}
:TICKS:       {{len .EquityCurve}}
:START_BAL:   {{printf "%.2f" .Config.InitialCapital}}
:END_BAL:     {{printf "%.2f" .FinalEquity}}
:RETURN_PCT:  {{pct .Performance.TotalReturn}}
:MAX_DD_PCT:  {{pct .Performance.MaxDrawdown}}
:TRADES:      {{.Performance.Trades}}
:WIN_RATE:    {{pct .Performance.WinRate}}
:SHARPE:      {{ratio .Performance.SharpeRatio}}
:CREATED:     [{{(orTime .Started).Format "2006-01-02 Mon 15:04"}}]
:END:

** Performance Summary
- Total Return:    *{{pct .Performance.TotalReturn}}*
- Annualized:      *{{pct .Performance.AnnualizedReturn}}*
- Sharpe:          *{{ratio .Performance.SharpeRatio}}*
- Sortino:         *{{ratio .Performance.SortinoRatio}}*
- Max Drawdown:    *{{pct .Performance.MaxDrawdown}}*
- Profit Factor:   *{{ratio .Performance.ProfitFactor}}*
- Expectancy:      *{{printf "%.2f" .Performance.Expectancy}}*

** Risk
- VaR:               {{pct .Risk.ValueAtRisk}}
- Expected Shortfall: {{pct .Risk.ExpectedShortfall}}
- Ulcer Index:       {{ratio .Risk.UlcerIndex}}
{{- if ge .Risk.Stress.WindowStart 0 }}
- Worst Window:      {{pct .Risk.Stress.CumulativeReturn}} over {{.Risk.Stress.WindowLen}} ticks from tick {{.Risk.Stress.WindowStart}}
{{- else }}
- Worst Window:      insufficient data
{{- end }}

** Trade Distribution
| Outcome | Count |
|---------+-------|
| Wins    | {{.Performance.Wins}} |
| Losses  | {{.Performance.Losses}} |
| Total   | {{.Performance.Trades}} |
`
