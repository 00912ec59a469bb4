package utils

import (
	"testing"

	"github.com/rxtech-lab/feedback-trader/internal/backtest/engine/engine_v1/commission_fee"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type OrderUtilsTestSuite struct {
	suite.Suite
}

func TestOrderUtilsSuite(t *testing.T) {
	suite.Run(t, new(OrderUtilsTestSuite))
}

func (suite *OrderUtilsTestSuite) TestCalculateMaxQuantity() {
	tests := []struct {
		name     string
		balance  float64
		price    float64
		fee      commission_fee.CommissionFee
		expected int64
	}{
		{"zero commission floors", 1000, 20, commission_fee.NewZeroCommissionFee(), 50},
		{"zero commission remainder", 1000, 30, commission_fee.NewZeroCommissionFee(), 33},
		{"rate commission", 1000, 20, commission_fee.NewRateCommissionFee(0.01), 49},
		{"minimum fee", 100, 10, commission_fee.NewInteractiveBrokerCommissionFee(), 9},
		{"cannot afford one share", 5, 10, commission_fee.NewZeroCommissionFee(), 0},
		{"zero price", 1000, 0, commission_fee.NewZeroCommissionFee(), 0},
		{"zero balance", 0, 10, commission_fee.NewZeroCommissionFee(), 0},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			balance := decimal.NewFromFloat(tc.balance)
			qty := CalculateMaxQuantity(balance, tc.price, tc.fee)
			suite.Equal(tc.expected, qty)

			if qty > 0 {
				suite.True(TotalCost(qty, tc.price, tc.fee).LessThanOrEqual(balance))
				suite.True(TotalCost(qty+1, tc.price, tc.fee).GreaterThan(balance))
			}
		})
	}
}

func (suite *OrderUtilsTestSuite) TestRoundToDecimalPrecision() {
	suite.Equal(1.23, RoundToDecimalPrecision(1.239, 2))
	suite.Equal(1.0, RoundToDecimalPrecision(1.9, 0))
	suite.Equal(0.29, RoundToDecimalPrecision(0.29, 2))
	suite.Equal(4.35, RoundToDecimalPrecision(4.35, 2))
	suite.Equal(-1.24, RoundToDecimalPrecision(-1.231, 2))
	suite.Equal(1200.0, RoundToDecimalPrecision(1234.5, -2))
}
