package strategy

import (
	"time"

	"github.com/rxtech-lab/feedback-trader/internal/indicator"
	"github.com/rxtech-lab/feedback-trader/internal/trigger"
	"github.com/rxtech-lab/feedback-trader/internal/types"
	"github.com/rxtech-lab/feedback-trader/pkg/errors"
)

const MACDCrossoverName = "macd_crossover"

type MACDCrossoverConfig struct {
	Symbol       string `mapstructure:"symbol" yaml:"symbol" json:"symbol" validate:"required" jsonschema:"title=Symbol,description=Instrument to trade"`
	FastPeriod   int    `mapstructure:"fast" yaml:"fast" json:"fast" validate:"gt=0,ltfield=SlowPeriod" jsonschema:"title=Fast Period,default=12,minimum=1"`
	SlowPeriod   int    `mapstructure:"slow" yaml:"slow" json:"slow" validate:"gt=0" jsonschema:"title=Slow Period,default=26,minimum=2"`
	SignalPeriod int    `mapstructure:"signal" yaml:"signal" json:"signal" validate:"gt=0" jsonschema:"title=Signal Period,default=9,minimum=1"`
	Quantity     int64  `mapstructure:"qty" yaml:"qty" json:"qty" validate:"gt=0" jsonschema:"title=Quantity,description=Shares per signal,default=100,minimum=1"`
}

func DefaultMACDCrossoverConfig() MACDCrossoverConfig {
	return MACDCrossoverConfig{
		FastPeriod:   12,
		SlowPeriod:   26,
		SignalPeriod: 9,
		Quantity:     100,
	}
}

// MACDCrossover buys when the MACD line crosses above its signal line and sells on the cross below.
type MACDCrossover struct {
	config   MACDCrossoverConfig
	triggers *trigger.Engine[*crossContext]
}

func NewMACDCrossover(config MACDCrossoverConfig) (*MACDCrossover, error) {
	if err := validate.Struct(config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStrategyConfigError, "invalid macd_crossover config", err)
	}

	s := &MACDCrossover{
		config:   config,
		triggers: trigger.NewEngine[*crossContext](),
	}
	registerCrossTriggers(s.triggers, config.Symbol, config.Quantity)

	return s, nil
}

func (s *MACDCrossover) Name() string {
	return MACDCrossoverName
}

func (s *MACDCrossover) Decide(_ time.Time, history types.History) (types.Orders, error) {
	closes := history.Get(s.config.Symbol).Closes()

	macd, err := indicator.MACD(closes, s.config.FastPeriod, s.config.SlowPeriod, s.config.SignalPeriod)
	if err != nil {
		return swallowInsufficient(err)
	}

	ctx := &crossContext{fast: macd.MACD, slow: macd.Signal, orders: types.Orders{}}
	if err := s.triggers.Run(ctx); err != nil {
		return nil, err
	}

	return ctx.orders, nil
}
