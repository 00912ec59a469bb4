package commission_fee

import "math"

const (
	interactiveBrokerPerShare = 0.005
	interactiveBrokerMinimum  = 1.0
)

// InteractiveBrokerCommissionFee follows the fixed per-share schedule with a minimum per order.
type InteractiveBrokerCommissionFee struct{}

func NewInteractiveBrokerCommissionFee() CommissionFee {
	return &InteractiveBrokerCommissionFee{}
}

func (c *InteractiveBrokerCommissionFee) Calculate(quantity float64, _ float64) float64 {
	return math.Max(interactiveBrokerMinimum, interactiveBrokerPerShare*math.Abs(quantity))
}
