package commission_fee

import "math"

// RateCommissionFee charges |price * quantity| * Rate.
type RateCommissionFee struct {
	Rate float64
}

func NewRateCommissionFee(rate float64) CommissionFee {
	return &RateCommissionFee{Rate: rate}
}

func (c *RateCommissionFee) Calculate(quantity float64, price float64) float64 {
	return math.Abs(price*quantity) * c.Rate
}
