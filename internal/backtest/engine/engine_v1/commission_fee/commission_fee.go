package commission_fee

type CommissionFee interface {
	// Calculate the commission for a fill of quantity shares at price, in account currency.
	Calculate(quantity float64, price float64) float64
}

type Broker string

const (
	// BrokerRate charges a fixed fraction of the traded notional.
	BrokerRate              Broker = "rate"
	BrokerInteractiveBroker Broker = "interactive_broker"
	BrokerZero              Broker = "zero_commission"
)

var AllBrokers = []any{
	BrokerRate,
	BrokerInteractiveBroker,
	BrokerZero,
}

// GetCommissionFeeHandler returns the fee model for broker. rate is only used by BrokerRate.
func GetCommissionFeeHandler(broker Broker, rate float64) CommissionFee {
	switch broker {
	case BrokerRate, "":
		return NewRateCommissionFee(rate)
	case BrokerInteractiveBroker:
		return NewInteractiveBrokerCommissionFee()
	case BrokerZero:
		return NewZeroCommissionFee()
	default:
		return NewZeroCommissionFee()
	}
}
