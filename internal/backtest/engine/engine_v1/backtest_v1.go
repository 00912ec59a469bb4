package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rxtech-lab/feedback-trader/internal/backtest/engine"
	"github.com/rxtech-lab/feedback-trader/internal/logger"
	"github.com/rxtech-lab/feedback-trader/internal/strategy"
	"github.com/rxtech-lab/feedback-trader/internal/types"
	"github.com/rxtech-lab/feedback-trader/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type BacktestEngineV1 struct {
	config     BacktestEngineV1Config
	strategies []strategy.Strategy
	feeds      map[string]types.TimeSeries
	log        *logger.Logger
}

func NewBacktestEngineV1(log *logger.Logger) engine.Engine {
	if log == nil {
		log = logger.NewNop()
	}

	return &BacktestEngineV1{
		config:     EmptyConfig(),
		strategies: nil,
		feeds:      nil,
		log:        log,
	}
}

// Initialize implements engine.Engine.
func (b *BacktestEngineV1) Initialize(config string) error {
	cfg := EmptyConfig()
	if err := yaml.Unmarshal([]byte(config), &cfg); err != nil {
		return errors.Wrap(errors.ErrCodeBacktestConfigError, "failed to parse engine config", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return errors.Wrap(errors.ErrCodeBacktestConfigError, "invalid engine config", err)
	}

	b.config = cfg

	b.log.Debug("Backtest engine initialized",
		zap.Float64("initial_capital", cfg.InitialCapital),
		zap.String("broker", string(cfg.Broker)),
		zap.Float64("slippage", cfg.Slippage),
	)

	return nil
}

// LoadStrategy implements engine.Engine.
func (b *BacktestEngineV1) LoadStrategy(s strategy.Strategy) error {
	if s == nil {
		return errors.New(errors.ErrCodeInvalidParameter, "strategy is nil")
	}

	b.strategies = append(b.strategies, s)
	b.log.Debug("Strategy loaded",
		zap.String("strategy", s.Name()),
		zap.Int("total_strategies", len(b.strategies)),
	)

	return nil
}

// SetMarketData implements engine.Engine.
func (b *BacktestEngineV1) SetMarketData(feeds map[string]types.TimeSeries) error {
	b.feeds = make(map[string]types.TimeSeries, len(feeds))
	for symbol, ts := range feeds {
		b.feeds[symbol] = ts
	}

	return nil
}

// GetConfigSchema implements engine.Engine.
func (b *BacktestEngineV1) GetConfigSchema() (string, error) {
	config := b.config

	schema, err := config.GenerateSchemaJSON()
	if err != nil {
		return "", fmt.Errorf("failed to generate schema: %w", err)
	}

	return schema, nil
}

// Run implements engine.Engine.
func (b *BacktestEngineV1) Run(ctx context.Context, callbacks engine.LifecycleCallbacks) (result engine.Result, err error) {
	if callbacks.OnBacktestEnd != nil {
		defer func() {
			(*callbacks.OnBacktestEnd)(err)
		}()
	}

	if err := b.preRunCheck(); err != nil {
		return engine.Result{}, err
	}

	timeline := b.timeline()
	ledger := NewLedger(LedgerConfig{
		InitialCash:   b.config.InitialCapital,
		Slippage:      b.config.Slippage,
		CommissionFee: b.config.CommissionFee(),
	}, b.log)

	decisions, err := NewDecisionLog(b.log)
	if err != nil {
		return engine.Result{}, err
	}
	defer decisions.Close()

	if callbacks.OnBacktestStart != nil {
		if err := (*callbacks.OnBacktestStart)(len(b.strategies), len(b.feeds), len(timeline)); err != nil {
			return engine.Result{}, errors.Wrap(errors.ErrCodeCallbackFailed, "backtest start callback failed", err)
		}
	}

	b.log.Info("Backtest started",
		zap.Int("strategies", len(b.strategies)),
		zap.Int("symbols", len(b.feeds)),
		zap.Int("bars", len(timeline)),
	)

	equity := make([]types.EquityPoint, 0, len(timeline))

	for i, date := range timeline {
		if err := ctx.Err(); err != nil {
			return engine.Result{}, errors.Wrap(errors.ErrCodeCanceled, "backtest canceled", err)
		}

		history := make(types.History, len(b.feeds))
		prices := make(map[string]float64, len(b.feeds))

		for symbol, ts := range b.feeds {
			history[symbol] = ts.Before(date)

			if bar, ok := ts.BarAt(date); ok {
				prices[symbol] = bar.Close
			}
		}

		orders, err := b.collectOrders(date, history, decisions, callbacks)
		if err != nil {
			return engine.Result{}, err
		}

		fills := ledger.ApplyOrders(orders, prices, date)
		if callbacks.OnFill != nil {
			for _, fill := range fills {
				(*callbacks.OnFill)(fill)
			}
		}

		equity = append(equity, types.EquityPoint{Time: date, Equity: ledger.Value(prices)})

		if callbacks.OnProcessData != nil {
			if err := (*callbacks.OnProcessData)(i+1, len(timeline)); err != nil {
				return engine.Result{}, errors.Wrap(errors.ErrCodeCallbackFailed, "process data callback failed", err)
			}
		}
	}

	dropped, err := decisions.Entries()
	if err != nil {
		return engine.Result{}, err
	}

	result = b.buildResult(ledger, equity, dropped)

	b.log.Info("Backtest finished",
		zap.Float64("final_equity", result.FinalEquity),
		zap.Int("transactions", len(result.Transactions)),
	)

	return result, nil
}

// collectOrders sums the decisions of every strategy. A failing strategy
// contributes nothing for this date and is recorded in the decision log.
func (b *BacktestEngineV1) collectOrders(
	date time.Time,
	history types.History,
	decisions *DecisionLog,
	callbacks engine.LifecycleCallbacks,
) (types.Orders, error) {
	orders := types.Orders{}

	for _, s := range b.strategies {
		decision, err := decide(s, date, history)
		if err != nil {
			b.log.Warn("Strategy decision dropped",
				zap.String("strategy", s.Name()),
				zap.Time("date", date),
				zap.Error(err),
			)

			entry := types.DroppedDecision{Time: date, Strategy: s.Name(), Error: err.Error()}
			if recordErr := decisions.Record(entry); recordErr != nil {
				return nil, recordErr
			}

			if callbacks.OnDecisionError != nil {
				(*callbacks.OnDecisionError)(s.Name(), date, err)
			}

			continue
		}

		orders.Merge(decision)
	}

	return orders, nil
}

func decide(s strategy.Strategy, date time.Time, history types.History) (orders types.Orders, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf(errors.ErrCodeStrategyRuntimeError, "strategy %s panicked: %v", s.Name(), r)
		}
	}()

	return s.Decide(date, history)
}

// timeline is the sorted union of bar times across feeds, clipped to the configured window.
func (b *BacktestEngineV1) timeline() []time.Time {
	seen := make(map[time.Time]struct{})

	for _, ts := range b.feeds {
		for _, t := range ts.Window(b.config.StartTime, b.config.EndTime).Times() {
			seen[t] = struct{}{}
		}
	}

	times := make([]time.Time, 0, len(seen))
	for t := range seen {
		times = append(times, t)
	}

	sort.Slice(times, func(i, j int) bool {
		return times[i].Before(times[j])
	})

	return times
}

func (b *BacktestEngineV1) buildResult(ledger *Ledger, equity []types.EquityPoint, dropped []types.DroppedDecision) engine.Result {
	finalEquity := ledger.Value(nil)
	if len(equity) > 0 {
		finalEquity = equity[len(equity)-1].Equity
	}

	transactions := ledger.Transactions()

	names := make([]string, len(b.strategies))
	for i, s := range b.strategies {
		names[i] = s.Name()
	}

	symbols := make([]string, 0, len(b.feeds))
	for symbol := range b.feeds {
		symbols = append(symbols, symbol)
	}

	sort.Strings(symbols)

	stats := types.BacktestStats{
		ID:          uuid.New().String(),
		Timestamp:   time.Now(),
		Strategies:  names,
		Symbols:     symbols,
		InitialCash: ledger.InitialCash(),
		FinalEquity: finalEquity,
		Cash:        ledger.Cash(),
		TotalReturn: totalReturn(ledger.InitialCash(), finalEquity),
		TotalFees:   ledger.TotalFees(),
		TradeResult: tradeResult(transactions, equity),
		TradePnl: types.TradePnl{
			RealizedPnL:   ledger.RealizedPnL(),
			UnrealizedPnL: ledger.UnrealizedPnL(),
			TotalPnL:      ledger.RealizedPnL() + ledger.UnrealizedPnL(),
		},
		Positions:        ledger.Positions(),
		DroppedDecisions: len(dropped),
	}

	if len(equity) > 0 {
		stats.StartTime = equity[0].Time
		stats.EndTime = equity[len(equity)-1].Time
	}

	return engine.Result{
		EquityCurve:      equity,
		Transactions:     transactions,
		FinalEquity:      finalEquity,
		Cash:             ledger.Cash(),
		RealizedPnL:      ledger.RealizedPnL(),
		UnrealizedPnL:    ledger.UnrealizedPnL(),
		Positions:        ledger.Positions(),
		Stats:            stats,
		DroppedDecisions: dropped,
	}
}

func (b *BacktestEngineV1) preRunCheck() error {
	if len(b.strategies) == 0 {
		b.log.Error("No strategies loaded")

		return errors.New(errors.ErrCodeBacktestNoStrategies, "no strategies loaded")
	}

	if len(b.feeds) == 0 {
		b.log.Error("No market data loaded")

		return errors.New(errors.ErrCodeBacktestNoData, "no market data loaded")
	}

	return nil
}
