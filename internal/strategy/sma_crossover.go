package strategy

import (
	"time"

	"github.com/rxtech-lab/feedback-trader/internal/indicator"
	"github.com/rxtech-lab/feedback-trader/internal/trigger"
	"github.com/rxtech-lab/feedback-trader/internal/types"
	"github.com/rxtech-lab/feedback-trader/pkg/errors"
)

const SMACrossoverName = "sma_crossover"

type SMACrossoverConfig struct {
	Symbol      string `mapstructure:"symbol" yaml:"symbol" json:"symbol" validate:"required" jsonschema:"title=Symbol,description=Instrument to trade"`
	ShortWindow int    `mapstructure:"short_window" yaml:"short_window" json:"short_window" validate:"gt=0,ltfield=LongWindow" jsonschema:"title=Short Window,default=5,minimum=1"`
	LongWindow  int    `mapstructure:"long_window" yaml:"long_window" json:"long_window" validate:"gt=0" jsonschema:"title=Long Window,default=20,minimum=2"`
	Quantity    int64  `mapstructure:"qty" yaml:"qty" json:"qty" validate:"gt=0" jsonschema:"title=Quantity,description=Shares per signal,default=100,minimum=1"`
}

func DefaultSMACrossoverConfig() SMACrossoverConfig {
	return SMACrossoverConfig{
		ShortWindow: 5,
		LongWindow:  20,
		Quantity:    100,
	}
}

// SMACrossover buys when the short SMA crosses above the long SMA and sells on the cross below.
type SMACrossover struct {
	config   SMACrossoverConfig
	triggers *trigger.Engine[*crossContext]
}

func NewSMACrossover(config SMACrossoverConfig) (*SMACrossover, error) {
	if err := validate.Struct(config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStrategyConfigError, "invalid sma_crossover config", err)
	}

	s := &SMACrossover{
		config:   config,
		triggers: trigger.NewEngine[*crossContext](),
	}
	registerCrossTriggers(s.triggers, config.Symbol, config.Quantity)

	return s, nil
}

func (s *SMACrossover) Name() string {
	return SMACrossoverName
}

func (s *SMACrossover) Config() SMACrossoverConfig {
	return s.config
}

func (s *SMACrossover) Decide(_ time.Time, history types.History) (types.Orders, error) {
	closes := history.Get(s.config.Symbol).Closes()

	fast, err := indicator.SMA(closes, s.config.ShortWindow)
	if err != nil {
		return swallowInsufficient(err)
	}

	slow, err := indicator.SMA(closes, s.config.LongWindow)
	if err != nil {
		return swallowInsufficient(err)
	}

	ctx := &crossContext{fast: fast, slow: slow, orders: types.Orders{}}
	if err := s.triggers.Run(ctx); err != nil {
		return nil, err
	}

	return ctx.orders, nil
}

func registerCrossTriggers(engine *trigger.Engine[*crossContext], symbol string, qty int64) {
	engine.Register("golden_cross",
		func(ctx *crossContext) (bool, error) {
			return indicator.CrossAbove(ctx.fast, ctx.slow), nil
		},
		func(ctx *crossContext) error {
			ctx.orders.Add(symbol, qty)

			return nil
		},
	)

	engine.Register("death_cross",
		func(ctx *crossContext) (bool, error) {
			return indicator.CrossBelow(ctx.fast, ctx.slow), nil
		},
		func(ctx *crossContext) error {
			ctx.orders.Add(symbol, -qty)

			return nil
		},
	)
}

func swallowInsufficient(err error) (types.Orders, error) {
	if errors.IsInsufficientDataError(err) {
		return types.Orders{}, nil
	}

	return nil, err
}
