package engine

import (
	"math/rand"
	"testing"
	"time"

	"github.com/rxtech-lab/feedback-trader/internal/backtest/engine/engine_v1/commission_fee"
	"github.com/rxtech-lab/feedback-trader/internal/logger"
	"github.com/rxtech-lab/feedback-trader/internal/types"
	"github.com/stretchr/testify/suite"
)

type LedgerTestSuite struct {
	suite.Suite
}

func TestLedgerSuite(t *testing.T) {
	suite.Run(t, new(LedgerTestSuite))
}

func ledgerDay(d int) time.Time {
	return time.Date(2023, 1, d, 0, 0, 0, 0, time.UTC)
}

func (suite *LedgerTestSuite) newLedger(cash float64) *Ledger {
	return NewLedger(LedgerConfig{InitialCash: cash}, logger.NewNop())
}

func (suite *LedgerTestSuite) TestBuyThenOversell() {
	ledger := suite.newLedger(100_000)

	fills := ledger.ApplyOrders(types.Orders{"AAA": 100}, map[string]float64{"AAA": 50}, ledgerDay(1))
	suite.Require().Len(fills, 1)
	suite.InDelta(95_000, ledger.Cash(), 1e-9)
	suite.Equal(types.Position{Symbol: "AAA", Quantity: 100, AvgCost: 50}, ledger.Positions()["AAA"])

	fills = ledger.ApplyOrders(types.Orders{"AAA": -150}, map[string]float64{"AAA": 60}, ledgerDay(2))
	suite.Require().Len(fills, 1)
	suite.Equal(int64(100), fills[0].Quantity)
	suite.Equal(types.PurchaseTypeSell, fills[0].Side)
	suite.InDelta(1_000, fills[0].RealizedPnL, 1e-9)
	suite.InDelta(101_000, ledger.Cash(), 1e-9)
	suite.InDelta(1_000, ledger.RealizedPnL(), 1e-9)
	suite.Empty(ledger.Positions())
	suite.Empty(fills[0].Positions)
}

func (suite *LedgerTestSuite) TestBuyCappedByCash() {
	ledger := suite.newLedger(1_000)

	fills := ledger.ApplyOrders(types.Orders{"AAA": 100}, map[string]float64{"AAA": 20}, ledgerDay(1))
	suite.Require().Len(fills, 1)
	suite.Equal(int64(50), fills[0].Quantity)
	suite.InDelta(0, ledger.Cash(), 1e-9)
	suite.Equal(int64(50), ledger.Positions()["AAA"].Quantity)
}

func (suite *LedgerTestSuite) TestUnaffordableBuyIsDropped() {
	ledger := suite.newLedger(10)

	fills := ledger.ApplyOrders(types.Orders{"AAA": 5}, map[string]float64{"AAA": 20}, ledgerDay(1))
	suite.Empty(fills)
	suite.Empty(ledger.Transactions())
	suite.InDelta(10, ledger.Cash(), 1e-9)
}

func (suite *LedgerTestSuite) TestSellWithoutPositionIsDropped() {
	ledger := suite.newLedger(1_000)

	fills := ledger.ApplyOrders(types.Orders{"AAA": -5}, map[string]float64{"AAA": 20}, ledgerDay(1))
	suite.Empty(fills)
	suite.InDelta(1_000, ledger.Cash(), 1e-9)
}

func (suite *LedgerTestSuite) TestOrderWithoutPriceIsDropped() {
	ledger := suite.newLedger(1_000)

	fills := ledger.ApplyOrders(types.Orders{"BBB": 5}, map[string]float64{"AAA": 20}, ledgerDay(1))
	suite.Empty(fills)
}

func (suite *LedgerTestSuite) TestOrderWithoutBarTodayIsNotFilledAtEarlierPrice() {
	ledger := suite.newLedger(1_000)

	suite.Empty(ledger.ApplyOrders(types.Orders{}, map[string]float64{"AAA": 50}, ledgerDay(1)))

	fills := ledger.ApplyOrders(types.Orders{"AAA": 10}, map[string]float64{"BBB": 1}, ledgerDay(2))
	suite.Empty(fills)
	suite.Empty(ledger.Transactions())
	suite.InDelta(1_000, ledger.Cash(), 1e-9)

	fills = ledger.ApplyOrders(types.Orders{"AAA": 10}, map[string]float64{"AAA": 40}, ledgerDay(3))
	suite.Require().Len(fills, 1)
	suite.InDelta(40, fills[0].Price, 1e-9)
}

func (suite *LedgerTestSuite) TestSellCommissionNeverDrivesCashNegative() {
	tests := []struct {
		name     string
		cash     float64
		buyPrice float64
		sell     int64
		price    float64
	}{
		{name: "all cash invested", cash: 100, buyPrice: 0.5, sell: 1, price: 0.5},
		{name: "proceeds below minimum fee", cash: 1.3, buyPrice: 0.1, sell: 1, price: 0.1},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			ledger := NewLedger(LedgerConfig{
				InitialCash:   tc.cash,
				CommissionFee: commission_fee.NewInteractiveBrokerCommissionFee(),
			}, logger.NewNop())

			buys := ledger.ApplyOrders(types.Orders{"AAA": 1_000}, map[string]float64{"AAA": tc.buyPrice}, ledgerDay(1))
			suite.Require().Len(buys, 1)

			sells := ledger.ApplyOrders(types.Orders{"AAA": -tc.sell}, map[string]float64{"AAA": tc.price}, ledgerDay(2))
			suite.Require().Len(sells, 1)
			suite.Equal(tc.sell, sells[0].Quantity)
			suite.GreaterOrEqual(ledger.Cash(), 0.0)
			suite.GreaterOrEqual(sells[0].Cash, 0.0)
			suite.LessOrEqual(sells[0].Commission, 1.0)
		})
	}
}

func (suite *LedgerTestSuite) TestAverageCostIsQuantityWeighted() {
	ledger := suite.newLedger(10_000)

	ledger.ApplyOrders(types.Orders{"AAA": 10}, map[string]float64{"AAA": 10}, ledgerDay(1))
	ledger.ApplyOrders(types.Orders{"AAA": 30}, map[string]float64{"AAA": 20}, ledgerDay(2))

	position := ledger.Positions()["AAA"]
	suite.Equal(int64(40), position.Quantity)
	suite.InDelta(17.5, position.AvgCost, 1e-9)
	suite.InDelta(100, ledger.UnrealizedPnL(), 1e-9)
}

func (suite *LedgerTestSuite) TestSlippageAndCommission() {
	ledger := NewLedger(LedgerConfig{
		InitialCash:   10_000,
		Slippage:      0.01,
		CommissionFee: commission_fee.NewRateCommissionFee(0.001),
	}, logger.NewNop())

	fills := ledger.ApplyOrders(types.Orders{"AAA": 10}, map[string]float64{"AAA": 100}, ledgerDay(1))
	suite.Require().Len(fills, 1)
	suite.InDelta(101, fills[0].Price, 1e-9)
	suite.InDelta(1.01, fills[0].Commission, 1e-9)
	suite.InDelta(10_000-1010-1.01, ledger.Cash(), 1e-9)

	fills = ledger.ApplyOrders(types.Orders{"AAA": -10}, map[string]float64{"AAA": 100}, ledgerDay(2))
	suite.Require().Len(fills, 1)
	suite.InDelta(99, fills[0].Price, 1e-9)
	suite.InDelta(0.99, fills[0].Commission, 1e-9)
	suite.InDelta(-20, fills[0].RealizedPnL, 1e-9)
	suite.InDelta(10_000-1010-1.01+990-0.99, ledger.Cash(), 1e-9)
	suite.InDelta(2, ledger.TotalFees(), 1e-9)
}

func (suite *LedgerTestSuite) TestOrdersAreAppliedInSymbolOrder() {
	ledger := suite.newLedger(1_000)

	fills := ledger.ApplyOrders(
		types.Orders{"BBB": 10, "AAA": 10},
		map[string]float64{"AAA": 60, "BBB": 60},
		ledgerDay(1),
	)

	// Only AAA is affordable in full; BBB gets what is left.
	suite.Require().Len(fills, 2)
	suite.Equal("AAA", fills[0].Symbol)
	suite.Equal(int64(10), fills[0].Quantity)
	suite.Equal("BBB", fills[1].Symbol)
	suite.Equal(int64(6), fills[1].Quantity)
}

func (suite *LedgerTestSuite) TestValue() {
	ledger := suite.newLedger(1_000)
	ledger.ApplyOrders(types.Orders{"AAA": 10}, map[string]float64{"AAA": 50}, ledgerDay(1))

	suite.InDelta(1_000, ledger.Value(nil), 1e-9)
	suite.InDelta(1_100, ledger.Value(map[string]float64{"AAA": 60}), 1e-9)

	// A later bar without AAA keeps valuing it at the last known price.
	ledger.ApplyOrders(types.Orders{}, map[string]float64{"AAA": 55}, ledgerDay(2))
	suite.InDelta(1_050, ledger.Value(map[string]float64{"BBB": 1}), 1e-9)
}

func (suite *LedgerTestSuite) TestTransactionSnapshotsAreIsolated() {
	ledger := suite.newLedger(1_000)
	ledger.ApplyOrders(types.Orders{"AAA": 1}, map[string]float64{"AAA": 10}, ledgerDay(1))
	ledger.ApplyOrders(types.Orders{"AAA": 1}, map[string]float64{"AAA": 10}, ledgerDay(2))

	txs := ledger.Transactions()
	suite.Require().Len(txs, 2)
	suite.Equal(int64(1), txs[0].Positions["AAA"].Quantity)
	suite.Equal(int64(2), txs[1].Positions["AAA"].Quantity)

	txs[0].Positions["AAA"] = types.Position{Symbol: "AAA", Quantity: 99}
	suite.Equal(int64(1), ledger.Transactions()[0].Positions["AAA"].Quantity)
}

func (suite *LedgerTestSuite) TestRandomOrdersNeverDriveCashNegative() {
	rng := rand.New(rand.NewSource(42))
	fees := []commission_fee.CommissionFee{
		commission_fee.NewZeroCommissionFee(),
		commission_fee.NewRateCommissionFee(0.002),
		commission_fee.NewInteractiveBrokerCommissionFee(),
	}

	for _, fee := range fees {
		ledger := NewLedger(LedgerConfig{InitialCash: 5_000, Slippage: 0.001, CommissionFee: fee}, logger.NewNop())

		for d := 0; d < 500; d++ {
			orders := types.Orders{
				"AAA": rng.Int63n(200) - 80,
				"BBB": rng.Int63n(200) - 80,
				// small sells of a cheap symbol pay the per-order minimum fee
				"CCC": rng.Int63n(4000) - 3,
			}
			prices := map[string]float64{
				"AAA": 1 + rng.Float64()*100,
				"BBB": 1 + rng.Float64()*100,
				"CCC": 0.05 + rng.Float64()*0.5,
			}

			ledger.ApplyOrders(orders, prices, ledgerDay(1).AddDate(0, 0, d))

			suite.GreaterOrEqual(ledger.Cash(), -1e-9)

			for _, position := range ledger.Positions() {
				suite.Positive(position.Quantity)
			}
		}
	}
}
