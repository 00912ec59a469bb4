package engine

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/feedback-trader/internal/backtest/engine/engine_v1/commission_fee"
	"github.com/stretchr/testify/suite"
	"gopkg.in/yaml.v3"
)

type ConfigTestSuite struct {
	suite.Suite
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func (suite *ConfigTestSuite) TestEmptyConfig() {
	config := EmptyConfig()

	suite.Equal(0.0, config.InitialCapital)
	suite.Equal(commission_fee.BrokerRate, config.Broker)
	suite.True(config.StartTime.IsNone())
	suite.True(config.EndTime.IsNone())
}

func (suite *ConfigTestSuite) TestUnmarshalYAML() {
	content := `
initial_capital: 100000
broker: interactive_broker
slippage: 0.001
start_time: 2023-01-01T00:00:00Z
`
	var config BacktestEngineV1Config
	suite.Require().NoError(yaml.Unmarshal([]byte(content), &config))

	suite.Equal(100000.0, config.InitialCapital)
	suite.Equal(commission_fee.BrokerInteractiveBroker, config.Broker)
	suite.Equal(0.001, config.Slippage)
	suite.True(config.StartTime.IsSome())
	suite.Equal(time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), config.StartTime.Unwrap())
	suite.True(config.EndTime.IsNone())
}

func (suite *ConfigTestSuite) TestMarshalYAMLKeepsOptionalTimes() {
	config := EmptyConfig()
	config.InitialCapital = 5000
	config.EndTime = optional.Some(time.Date(2023, 6, 30, 0, 0, 0, 0, time.UTC))

	content, err := yaml.Marshal(config)
	suite.Require().NoError(err)
	suite.NotContains(string(content), "start_time")

	var decoded BacktestEngineV1Config
	suite.Require().NoError(yaml.Unmarshal(content, &decoded))
	suite.Equal(5000.0, decoded.InitialCapital)
	suite.True(decoded.StartTime.IsNone())
	suite.True(decoded.EndTime.Unwrap().Equal(config.EndTime.Unwrap()))
}

func (suite *ConfigTestSuite) TestGenerateSchemaJSON() {
	config := &BacktestEngineV1Config{}
	schemaJSON, err := config.GenerateSchemaJSON()
	suite.Require().NoError(err)

	var parsed map[string]any
	suite.Require().NoError(json.Unmarshal([]byte(schemaJSON), &parsed))
	suite.Equal("backtest-engine-v1-config", parsed["title"])

	properties, ok := parsed["properties"].(map[string]any)
	suite.Require().True(ok)
	suite.Contains(properties, "initial_capital")
	suite.Contains(properties, "slippage")

	broker, ok := properties["broker"].(map[string]any)
	suite.Require().True(ok)
	suite.Len(broker["enum"], len(commission_fee.AllBrokers))
}

func (suite *ConfigTestSuite) TestCommissionFee() {
	config := EmptyConfig()
	config.CommissionRate = 0.01
	suite.InDelta(1.0, config.CommissionFee().Calculate(10, 10), 1e-12)

	config.Broker = commission_fee.BrokerZero
	suite.Equal(0.0, config.CommissionFee().Calculate(10, 10))
}
