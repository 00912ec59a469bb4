package types

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type TradeResult struct {
	// Count of all fills.
	NumberOfTrades int `yaml:"number_of_trades"`
	NumberOfBuys   int `yaml:"number_of_buys"`
	NumberOfSells  int `yaml:"number_of_sells"`
	// Count of sells with positive realized pnl.
	NumberOfWinningTrades int `yaml:"number_of_winning_trades"`
	// Count of sells with negative realized pnl.
	NumberOfLosingTrades int     `yaml:"number_of_losing_trades"`
	WinRate              float64 `yaml:"win_rate"`
	// Largest peak-to-trough decline of the equity curve, as a fraction of the peak.
	MaxDrawdown float64 `yaml:"max_drawdown"`
}

type TradePnl struct {
	RealizedPnL   float64 `yaml:"realized_pnl"`
	UnrealizedPnL float64 `yaml:"unrealized_pnl"`
	TotalPnL      float64 `yaml:"total_pnl"`
}

type BacktestStats struct {
	ID          string              `yaml:"id"`
	Timestamp   time.Time           `yaml:"timestamp"`
	Name        string              `yaml:"name"`
	Strategies  []string            `yaml:"strategies"`
	Symbols     []string            `yaml:"symbols"`
	StartTime   time.Time           `yaml:"start_time"`
	EndTime     time.Time           `yaml:"end_time"`
	InitialCash float64             `yaml:"initial_cash"`
	FinalEquity float64             `yaml:"final_equity"`
	Cash        float64             `yaml:"cash"`
	TotalReturn float64             `yaml:"total_return"`
	TotalFees   float64             `yaml:"total_fees"`
	TradeResult TradeResult         `yaml:"trade_result"`
	TradePnl    TradePnl            `yaml:"trade_pnl"`
	Positions   map[string]Position `yaml:"positions"`
	// Count of strategy decisions that failed and placed no orders.
	DroppedDecisions int `yaml:"dropped_decisions"`
}

func WriteBacktestStats(path string, stats BacktestStats) error {
	data, err := yaml.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to marshal backtest stats to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write backtest stats to file: %w", err)
	}

	return nil
}
