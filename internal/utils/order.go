package utils

import (
	"math"

	"github.com/rxtech-lab/feedback-trader/internal/backtest/engine/engine_v1/commission_fee"
	"github.com/shopspring/decimal"
)

// CalculateMaxQuantity returns the largest whole share count whose cost plus
// commission fits in balance.
func CalculateMaxQuantity(balance decimal.Decimal, price float64, commissionFee commission_fee.CommissionFee) int64 {
	if price <= 0 || !balance.IsPositive() {
		return 0
	}

	priceDec := decimal.NewFromFloat(price)
	maxQty := balance.Div(priceDec).Floor().IntPart()

	for maxQty > 0 && TotalCost(maxQty, price, commissionFee).GreaterThan(balance) {
		// Step down proportionally first, then one share at a time.
		cost := TotalCost(maxQty, price, commissionFee)
		estimate := int64(math.Floor(float64(maxQty) * balance.Div(cost).InexactFloat64()))

		if estimate < maxQty {
			maxQty = estimate
		} else {
			maxQty--
		}
	}

	return max(maxQty, 0)
}

// TotalCost is quantity * price plus the commission for that fill.
func TotalCost(quantity int64, price float64, commissionFee commission_fee.CommissionFee) decimal.Decimal {
	notional := decimal.NewFromFloat(price).Mul(decimal.NewFromInt(quantity))
	fee := decimal.NewFromFloat(commissionFee.Calculate(float64(quantity), price))

	return notional.Add(fee)
}

// RoundToDecimalPrecision rounds the value down to the specified decimal precision.
// The shift happens in decimal so values like 0.29 are not pulled below themselves.
func RoundToDecimalPrecision(value float64, decimalPrecision int) float64 {
	places := int32(decimalPrecision)

	return decimal.NewFromFloat(value).Shift(places).Floor().Shift(-places).InexactFloat64()
}
