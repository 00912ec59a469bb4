package engine

import (
	"encoding/json"
	"reflect"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/feedback-trader/internal/backtest/engine/engine_v1/commission_fee"
	"gopkg.in/yaml.v3"
)

type BacktestEngineV1Config struct {
	InitialCapital float64                    `yaml:"initial_capital" json:"initial_capital" jsonschema:"title=Initial Capital,description=Starting cash of the portfolio,minimum=0" validate:"gte=0"`
	Broker         commission_fee.Broker      `yaml:"broker" json:"broker" jsonschema:"title=Broker,description=Commission model used for every fill"`
	CommissionRate float64                    `yaml:"commission_rate" json:"commission_rate" jsonschema:"title=Commission Rate,description=Fraction of the notional charged by the rate broker,minimum=0" validate:"gte=0"`
	Slippage       float64                    `yaml:"slippage" json:"slippage" jsonschema:"title=Slippage,description=Fractional price penalty applied against the order,minimum=0" validate:"gte=0,lt=1"`
	StartTime      optional.Option[time.Time] `yaml:"start_time" json:"start_time" jsonschema:"title=Start Time,description=Optional start time for the backtest period"`
	EndTime        optional.Option[time.Time] `yaml:"end_time" json:"end_time" jsonschema:"title=End Time,description=Optional end time for the backtest period"`
}

type rawBacktestEngineV1Config struct {
	InitialCapital float64               `yaml:"initial_capital"`
	Broker         commission_fee.Broker `yaml:"broker"`
	CommissionRate float64               `yaml:"commission_rate"`
	Slippage       float64               `yaml:"slippage"`
	StartTime      *time.Time            `yaml:"start_time,omitempty"`
	EndTime        *time.Time            `yaml:"end_time,omitempty"`
}

// UnmarshalYAML implements custom unmarshaling for BacktestEngineV1Config
func (c *BacktestEngineV1Config) UnmarshalYAML(value *yaml.Node) error {
	var raw rawBacktestEngineV1Config
	if err := value.Decode(&raw); err != nil {
		return err
	}

	c.InitialCapital = raw.InitialCapital
	c.Broker = raw.Broker
	c.CommissionRate = raw.CommissionRate
	c.Slippage = raw.Slippage
	c.StartTime = optional.FromNillable(raw.StartTime)
	c.EndTime = optional.FromNillable(raw.EndTime)

	return nil
}

// MarshalYAML implements custom marshaling for BacktestEngineV1Config
func (c BacktestEngineV1Config) MarshalYAML() (any, error) {
	raw := rawBacktestEngineV1Config{
		InitialCapital: c.InitialCapital,
		Broker:         c.Broker,
		CommissionRate: c.CommissionRate,
		Slippage:       c.Slippage,
	}

	if c.StartTime.IsSome() {
		start := c.StartTime.Unwrap()
		raw.StartTime = &start
	}

	if c.EndTime.IsSome() {
		end := c.EndTime.Unwrap()
		raw.EndTime = &end
	}

	return raw, nil
}

// GenerateSchema generates a JSON schema for the BacktestEngineV1Config
func (c *BacktestEngineV1Config) GenerateSchema() (*jsonschema.Schema, error) {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if t.String() == "optional.Option[time.Time]" {
				return &jsonschema.Schema{
					Type:   "string",
					Format: "date-time",
				}
			}

			if strings.Contains(t.String(), "commission_fee.Broker") {
				return &jsonschema.Schema{
					Type: "string",
					Enum: commission_fee.AllBrokers,
				}
			}

			return nil
		},
	}

	schema := reflector.Reflect(c)

	schema.Title = "backtest-engine-v1-config"
	schema.Description = "Configuration schema for BacktestEngineV1"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return schema, nil
}

// GenerateSchemaJSON generates a JSON schema string for the BacktestEngineV1Config
func (c *BacktestEngineV1Config) GenerateSchemaJSON() (string, error) {
	schema, err := c.GenerateSchema()
	if err != nil {
		return "", err
	}

	schemaBytes, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", err
	}

	return string(schemaBytes), nil
}

// CommissionFee returns the fee model selected by Broker.
func (c BacktestEngineV1Config) CommissionFee() commission_fee.CommissionFee {
	return commission_fee.GetCommissionFeeHandler(c.Broker, c.CommissionRate)
}

// EmptyConfig returns a BacktestEngineV1Config with default values
func EmptyConfig() BacktestEngineV1Config {
	return BacktestEngineV1Config{
		InitialCapital: 0,
		Broker:         commission_fee.BrokerRate,
		CommissionRate: 0,
		Slippage:       0,
		StartTime:      optional.None[time.Time](),
		EndTime:        optional.None[time.Time](),
	}
}
