// Package backtest replays aligned observations through a strategy and
// a ledger, one tick at a time, and assembles the full result: equity
// curve, trade log, performance and risk metrics.
//
// The engine is deterministic by construction. The strategy only ever
// sees the current observation, signals are applied in the order the
// strategy emitted them, and nothing inside the loop reads the clock.
package backtest

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hubdemarcel/ClimateTrade-sub002/internal/id"
	"github.com/hubdemarcel/ClimateTrade-sub002/market"
	"github.com/hubdemarcel/ClimateTrade-sub002/metrics"
	"github.com/hubdemarcel/ClimateTrade-sub002/portfolio"
	"github.com/hubdemarcel/ClimateTrade-sub002/risk"
	"github.com/hubdemarcel/ClimateTrade-sub002/strategies"
)

// State tracks an engine through its one-shot lifecycle.
type State int8

const (
	StateInitialized State = iota
	StateRunning
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInitialized:
		return "INITIALIZED"
	case StateRunning:
		return "RUNNING"
	case StateCompleted:
		return "COMPLETED"
	case StateFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("State(%d)", int8(s))
	}
}

// Engine runs one backtest. It is single-use: construct, Run once,
// read the Result.
type Engine struct {
	cfg   Config
	strat strategies.Strategy
	obs   []market.AlignedObservation
	log   *zap.Logger

	state State
}

// New validates the configuration and binds the run's inputs. A nil
// logger disables logging.
func New(cfg Config, strat strategies.Strategy, obs []market.AlignedObservation, logger *zap.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if strat == nil {
		return nil, fmt.Errorf("backtest: strategy is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		cfg:   cfg,
		strat: strat,
		obs:   obs,
		log:   logger,
		state: StateInitialized,
	}, nil
}

func (e *Engine) State() State { return e.state }

// Run replays every observation through the strategy and ledger.
// Per-signal rejections are recorded and the run continues; a ledger
// reconciliation failure aborts the run with the engine in StateFailed.
func (e *Engine) Run() (*Result, error) {
	if e.state != StateInitialized {
		return nil, fmt.Errorf("backtest: engine already ran (state %s)", e.state)
	}
	if err := checkObservations(e.obs); err != nil {
		e.state = StateFailed
		return nil, err
	}

	e.state = StateRunning
	started := time.Now()

	e.strat.Reset()
	ledger := portfolio.NewLedger(e.cfg.InitialCapital, portfolio.Limits{
		CommissionRate:  e.cfg.CommissionRate,
		MaxPositionFrac: e.cfg.MaxPositionFrac,
		MaxConcurrent:   e.cfg.MaxConcurrent,
	})

	e.log.Info("backtest starting",
		zap.String("strategy", e.strat.Name()),
		zap.Int("ticks", len(e.obs)),
		zap.Time("start", e.obs[0].Time),
		zap.Time("end", e.obs[len(e.obs)-1].Time),
	)

	var (
		curve    = make(market.EquityCurve, 0, len(e.obs))
		tradeLog market.TradeLog
	)

	for i, obs := range e.obs {
		marks := marksFrom(obs)

		for _, sig := range e.strat.GenerateSignals(obs, ledger.Positions()) {
			fill, rej := ledger.Apply(sig, marks, obs.Time)
			if fill != nil {
				tradeLog.Fills = append(tradeLog.Fills, *fill)
				e.log.Debug("fill",
					zap.String("id", fill.ID),
					zap.String("market", fill.Market.String()),
					zap.Float64("quantity", fill.Quantity),
					zap.Float64("price", fill.Price),
					zap.Float64("realized", fill.RealizedPnL),
				)
			}
			if rej != nil {
				tradeLog.Rejections = append(tradeLog.Rejections, *rej)
				e.log.Warn("signal rejected",
					zap.Int("tick", i),
					zap.Time("time", obs.Time),
					zap.String("market", rej.Signal.Market.String()),
					zap.String("code", rej.Code),
					zap.String("reason", rej.Reason),
				)
			}
		}

		if err := ledger.CheckInvariant(marks); err != nil {
			e.state = StateFailed
			e.log.Error("equity reconciliation failed",
				zap.Int("tick", i),
				zap.Time("time", obs.Time),
				zap.Error(err),
			)
			return nil, fmt.Errorf("backtest: tick %d (%s): %w",
				i, obs.Time.Format(time.RFC3339), err)
		}

		curve = append(curve, ledger.MarkToMarket(marks, obs.Time))
	}

	e.state = StateCompleted

	res := &Result{
		RunID:        id.New(),
		Config:       e.cfg,
		StrategyName: e.strat.Name(),
		EquityCurve:  curve,
		TradeLog:     tradeLog,
		Performance:  metrics.Compute(curve, tradeLog, e.cfg.metricsConfig()),
		Risk:         risk.Compute(curve.Returns(), e.cfg.Risk),
		Started:      started,
		Duration:     time.Since(started),
	}

	final, _ := curve.Final()
	e.log.Info("backtest complete",
		zap.String("run_id", res.RunID),
		zap.Duration("duration", res.Duration),
		zap.Int("fills", len(tradeLog.Fills)),
		zap.Int("rejections", len(tradeLog.Rejections)),
		zap.Float64("final_equity", final.TotalEquity),
		zap.Float64("total_return", res.Performance.TotalReturn),
	)

	return res, nil
}

// checkObservations re-asserts the aligner contract: at least one
// tick, strictly increasing times.
func checkObservations(obs []market.AlignedObservation) error {
	if len(obs) == 0 {
		return fmt.Errorf("backtest: no observations to replay")
	}
	for i := 1; i < len(obs); i++ {
		if !obs[i].Time.After(obs[i-1].Time) {
			return fmt.Errorf("backtest: observations not strictly increasing at index %d (%s then %s)",
				i, obs[i-1].Time.Format(time.RFC3339), obs[i].Time.Format(time.RFC3339))
		}
	}
	return nil
}

// marksFrom extracts current-tick prices for the ledger.
func marksFrom(obs market.AlignedObservation) map[market.Key]float64 {
	marks := make(map[market.Key]float64, len(obs.Markets))
	for k, q := range obs.Markets {
		marks[k] = q.Probability
	}
	return marks
}
