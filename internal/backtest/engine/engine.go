package engine

import (
	"context"
	"time"

	"github.com/rxtech-lab/feedback-trader/internal/strategy"
	"github.com/rxtech-lab/feedback-trader/internal/types"
)

// Lifecycle callback types for backtest phases
// All callbacks with error return can abort execution if they return an error

// OnBacktestStartCallback is called once the timeline is known, before the first bar.
type OnBacktestStartCallback func(totalStrategies int, totalSymbols int, totalBars int) error

// OnBacktestEndCallback is called when the backtest completes (always called via defer).
type OnBacktestEndCallback func(err error)

// OnProcessDataCallback is called after each bar has been executed and valued.
type OnProcessDataCallback func(current int, total int) error

// OnDecisionErrorCallback is called when a strategy fails to decide on a date.
// The failed decision is dropped and the run continues.
type OnDecisionErrorCallback func(strategyName string, date time.Time, err error)

// OnFillCallback is called for every executed fill.
type OnFillCallback func(fill types.Transaction)

// LifecycleCallbacks holds all lifecycle callback functions for the backtest engine.
// All fields are pointers - nil means no callback will be invoked.
type LifecycleCallbacks struct {
	OnBacktestStart *OnBacktestStartCallback
	OnBacktestEnd   *OnBacktestEndCallback
	OnProcessData   *OnProcessDataCallback
	OnDecisionError *OnDecisionErrorCallback
	OnFill          *OnFillCallback
}

// Result is the read-only outcome of a backtest run.
type Result struct {
	EquityCurve   []types.EquityPoint
	Transactions  []types.Transaction
	FinalEquity   float64
	Cash          float64
	RealizedPnL   float64
	UnrealizedPnL float64
	Positions     map[string]types.Position
	Stats         types.BacktestStats
	// DroppedDecisions lists failed strategy decisions in the order they happened.
	DroppedDecisions []types.DroppedDecision
}

type Engine interface {
	// Initialize the engine with the given YAML configuration.
	Initialize(config string) error
	// LoadStrategy adds a strategy. Decisions of all loaded strategies are summed per symbol,
	// in load order.
	LoadStrategy(strategy strategy.Strategy) error
	// SetMarketData sets the bar series replayed by Run, keyed by symbol.
	SetMarketData(feeds map[string]types.TimeSeries) error
	// Run replays the market data bar by bar.
	// The context can be used to cancel the backtest between bars.
	Run(ctx context.Context, callbacks LifecycleCallbacks) (Result, error)
	// GetConfigSchema returns the schema of the engine configuration
	GetConfigSchema() (string, error)
}
