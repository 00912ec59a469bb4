package types

import (
	"maps"
	"time"
)

// Position represents current holdings of an asset.
type Position struct {
	Symbol   string  `json:"symbol" yaml:"symbol" csv:"symbol"`
	Quantity int64   `json:"quantity" yaml:"quantity" csv:"quantity"`
	AvgCost  float64 `json:"avg_cost" yaml:"avg_cost" csv:"avg_cost"`
}

// Transaction is the record of one executed fill.
type Transaction struct {
	ID         string       `csv:"id"`
	Side       PurchaseType `csv:"side"`
	Symbol     string       `csv:"symbol"`
	Quantity   int64        `csv:"quantity"`
	Price      float64      `csv:"price"`
	Commission float64      `csv:"commission"`
	// RealizedPnL is (fill - avg cost) * quantity for sells and zero for buys.
	RealizedPnL float64   `csv:"realized_pnl"`
	Timestamp   time.Time `csv:"timestamp"`
	// Cash is the ledger cash right after the fill.
	Cash float64 `csv:"cash"`
	// Positions is a snapshot taken right after the fill.
	Positions map[string]Position `csv:"-"`
}

// Clone returns a deep copy of the transaction.
func (t Transaction) Clone() Transaction {
	t.Positions = maps.Clone(t.Positions)

	return t
}

// EquityPoint is the total portfolio value at a bar.
type EquityPoint struct {
	Time   time.Time `csv:"time" json:"time"`
	Equity float64   `csv:"equity" json:"equity"`
}

// DroppedDecision is a strategy decision that failed and contributed no orders.
type DroppedDecision struct {
	Time     time.Time `csv:"time" yaml:"time"`
	Strategy string    `csv:"strategy" yaml:"strategy"`
	Error    string    `csv:"error" yaml:"error"`
}
