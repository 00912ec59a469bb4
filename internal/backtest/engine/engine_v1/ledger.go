package engine

import (
	"maps"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rxtech-lab/feedback-trader/internal/backtest/engine/engine_v1/commission_fee"
	"github.com/rxtech-lab/feedback-trader/internal/logger"
	"github.com/rxtech-lab/feedback-trader/internal/types"
	"github.com/rxtech-lab/feedback-trader/internal/utils"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// LedgerConfig holds the account parameters of a single simulation run.
type LedgerConfig struct {
	InitialCash float64
	// Slippage is a fractional price penalty, e.g. 0.001 fills buys 0.1% above the close.
	Slippage      float64
	CommissionFee commission_fee.CommissionFee
}

// Ledger tracks cash, positions and executed fills for one portfolio.
// It is not safe for concurrent use.
type Ledger struct {
	cash         decimal.Decimal
	initialCash  decimal.Decimal
	realizedPnL  decimal.Decimal
	totalFees    decimal.Decimal
	positions    map[string]types.Position
	lastPrices   map[string]float64
	transactions []types.Transaction

	slippage      decimal.Decimal
	commissionFee commission_fee.CommissionFee
	logger        *logger.Logger
}

func NewLedger(config LedgerConfig, log *logger.Logger) *Ledger {
	fee := config.CommissionFee
	if fee == nil {
		fee = commission_fee.NewZeroCommissionFee()
	}

	if log == nil {
		log = logger.NewNop()
	}

	cash := decimal.NewFromFloat(config.InitialCash)

	return &Ledger{
		cash:          cash,
		initialCash:   cash,
		realizedPnL:   decimal.Zero,
		totalFees:     decimal.Zero,
		positions:     make(map[string]types.Position),
		lastPrices:    make(map[string]float64),
		transactions:  make([]types.Transaction, 0),
		slippage:      decimal.NewFromFloat(config.Slippage),
		commissionFee: fee,
		logger:        log,
	}
}

// ApplyOrders executes orders against prices and returns the fills it produced.
// Only prices of the current bar fill orders; a symbol without one is skipped.
// Symbols are processed in ascending order. Buys are capped to what the cash
// can pay for and sells to the held quantity; orders that end up empty are dropped.
func (l *Ledger) ApplyOrders(orders types.Orders, prices map[string]float64, timestamp time.Time) []types.Transaction {
	for symbol, price := range prices {
		if price > 0 {
			l.lastPrices[symbol] = price
		}
	}

	fills := make([]types.Transaction, 0, len(orders))

	for _, symbol := range orders.Symbols() {
		qty := orders[symbol]

		price, ok := prices[symbol]
		if !ok || price <= 0 {
			l.logger.Debug("Dropping order without a price on this bar",
				zap.String("symbol", symbol),
				zap.Int64("quantity", qty),
				zap.Time("time", timestamp),
			)

			continue
		}

		var (
			fill types.Transaction
			done bool
		)

		if qty > 0 {
			fill, done = l.buy(symbol, qty, price, timestamp)
		} else {
			fill, done = l.sell(symbol, -qty, price, timestamp)
		}

		if done {
			l.transactions = append(l.transactions, fill)
			fills = append(fills, fill.Clone())
		}
	}

	return fills
}

func (l *Ledger) buy(symbol string, requested int64, price float64, timestamp time.Time) (types.Transaction, bool) {
	fillPrice := decimal.NewFromFloat(price).Mul(decimal.NewFromInt(1).Add(l.slippage)).InexactFloat64()

	qty := requested
	if utils.TotalCost(qty, fillPrice, l.commissionFee).GreaterThan(l.cash) {
		qty = min(requested, utils.CalculateMaxQuantity(l.cash, fillPrice, l.commissionFee))
		l.logger.Debug("Buy capped by available cash",
			zap.String("symbol", symbol),
			zap.Int64("requested", requested),
			zap.Int64("filled", qty),
		)
	}

	if qty <= 0 {
		return types.Transaction{}, false
	}

	commission := decimal.NewFromFloat(l.commissionFee.Calculate(float64(qty), fillPrice))
	notional := decimal.NewFromFloat(fillPrice).Mul(decimal.NewFromInt(qty))

	l.cash = l.cash.Sub(notional).Sub(commission)
	l.totalFees = l.totalFees.Add(commission)

	position := l.positions[symbol]
	newQty := position.Quantity + qty
	avgCost := decimal.NewFromFloat(position.AvgCost).Mul(decimal.NewFromInt(position.Quantity)).
		Add(notional).
		Div(decimal.NewFromInt(newQty))

	l.positions[symbol] = types.Position{
		Symbol:   symbol,
		Quantity: newQty,
		AvgCost:  avgCost.InexactFloat64(),
	}

	return l.record(types.PurchaseTypeBuy, symbol, qty, fillPrice, commission, decimal.Zero, timestamp), true
}

func (l *Ledger) sell(symbol string, requested int64, price float64, timestamp time.Time) (types.Transaction, bool) {
	position, ok := l.positions[symbol]
	if !ok || position.Quantity <= 0 {
		return types.Transaction{}, false
	}

	qty := min(requested, position.Quantity)
	fillPrice := decimal.NewFromFloat(price).Mul(decimal.NewFromInt(1).Sub(l.slippage)).InexactFloat64()

	commission := decimal.NewFromFloat(l.commissionFee.Calculate(float64(qty), fillPrice))
	notional := decimal.NewFromFloat(fillPrice).Mul(decimal.NewFromInt(qty))
	pnl := decimal.NewFromFloat(fillPrice).Sub(decimal.NewFromFloat(position.AvgCost)).Mul(decimal.NewFromInt(qty))

	// A minimum fee larger than the proceeds is charged only up to the cash
	// available, so cash never goes below zero.
	if available := l.cash.Add(notional); commission.GreaterThan(available) {
		l.logger.Debug("Sell commission capped by available cash",
			zap.String("symbol", symbol),
			zap.String("commission", commission.String()),
			zap.String("charged", available.String()),
		)

		commission = available
	}

	l.cash = l.cash.Add(notional).Sub(commission)
	l.totalFees = l.totalFees.Add(commission)
	l.realizedPnL = l.realizedPnL.Add(pnl)

	position.Quantity -= qty
	if position.Quantity == 0 {
		delete(l.positions, symbol)
		delete(l.lastPrices, symbol)
	} else {
		l.positions[symbol] = position
	}

	return l.record(types.PurchaseTypeSell, symbol, qty, fillPrice, commission, pnl, timestamp), true
}

func (l *Ledger) record(
	side types.PurchaseType,
	symbol string,
	qty int64,
	fillPrice float64,
	commission decimal.Decimal,
	pnl decimal.Decimal,
	timestamp time.Time,
) types.Transaction {
	tx := types.Transaction{
		ID:          uuid.New().String(),
		Side:        side,
		Symbol:      symbol,
		Quantity:    qty,
		Price:       fillPrice,
		Commission:  commission.InexactFloat64(),
		RealizedPnL: pnl.InexactFloat64(),
		Timestamp:   timestamp,
		Cash:        l.cash.InexactFloat64(),
		Positions:   maps.Clone(l.positions),
	}

	l.logger.Debug("Order filled",
		zap.String("side", string(side)),
		zap.String("symbol", symbol),
		zap.Int64("quantity", qty),
		zap.Float64("price", fillPrice),
		zap.Float64("cash", tx.Cash),
	)

	return tx
}

// Value returns cash plus the market value of every position. prices override
// last known prices; a position that was never priced is valued at its average cost.
func (l *Ledger) Value(prices map[string]float64) float64 {
	total := l.cash

	for _, symbol := range l.symbols() {
		position := l.positions[symbol]
		total = total.Add(decimal.NewFromFloat(l.markPrice(symbol, prices)).Mul(decimal.NewFromInt(position.Quantity)))
	}

	return total.InexactFloat64()
}

// UnrealizedPnL is the sum over positions of (last price - avg cost) * quantity.
func (l *Ledger) UnrealizedPnL() float64 {
	total := decimal.Zero

	for _, symbol := range l.symbols() {
		position := l.positions[symbol]
		diff := decimal.NewFromFloat(l.markPrice(symbol, nil)).Sub(decimal.NewFromFloat(position.AvgCost))
		total = total.Add(diff.Mul(decimal.NewFromInt(position.Quantity)))
	}

	return total.InexactFloat64()
}

func (l *Ledger) RealizedPnL() float64 {
	return l.realizedPnL.InexactFloat64()
}

func (l *Ledger) Cash() float64 {
	return l.cash.InexactFloat64()
}

func (l *Ledger) InitialCash() float64 {
	return l.initialCash.InexactFloat64()
}

func (l *Ledger) TotalFees() float64 {
	return l.totalFees.InexactFloat64()
}

// Positions returns a copy of the open positions.
func (l *Ledger) Positions() map[string]types.Position {
	return maps.Clone(l.positions)
}

// Transactions returns a copy of the fill log in execution order.
func (l *Ledger) Transactions() []types.Transaction {
	out := make([]types.Transaction, len(l.transactions))
	for i, tx := range l.transactions {
		out[i] = tx.Clone()
	}

	return out
}

func (l *Ledger) markPrice(symbol string, prices map[string]float64) float64 {
	if price, ok := prices[symbol]; ok && price > 0 {
		return price
	}

	if price, ok := l.lastPrices[symbol]; ok {
		return price
	}

	return l.positions[symbol].AvgCost
}

func (l *Ledger) symbols() []string {
	symbols := make([]string, 0, len(l.positions))
	for symbol := range l.positions {
		symbols = append(symbols, symbol)
	}

	sort.Strings(symbols)

	return symbols
}
