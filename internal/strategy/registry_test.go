package strategy

import (
	"testing"

	"github.com/rxtech-lab/feedback-trader/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type RegistryTestSuite struct {
	suite.Suite
	registry *Registry
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistryTestSuite))
}

func (suite *RegistryTestSuite) SetupTest() {
	suite.registry = NewRegistry()
}

func (suite *RegistryTestSuite) TestNewWithDefaults() {
	s, err := suite.registry.New(SMACrossoverName, map[string]any{"symbol": "AAA"})
	suite.Require().NoError(err)

	sma, ok := s.(*SMACrossover)
	suite.Require().True(ok)
	suite.Equal(SMACrossoverConfig{Symbol: "AAA", ShortWindow: 5, LongWindow: 20, Quantity: 100}, sma.Config())
}

func (suite *RegistryTestSuite) TestNewDecodesLooseTypes() {
	s, err := suite.registry.New("SMAStrategy", map[string]any{
		"symbol":       "AAA",
		"short_window": 3.0,
		"long_window":  "10",
		"qty":          50,
	})
	suite.Require().NoError(err)
	suite.Equal(SMACrossoverConfig{Symbol: "AAA", ShortWindow: 3, LongWindow: 10, Quantity: 50}, s.(*SMACrossover).Config())
}

func (suite *RegistryTestSuite) TestErrors() {
	tests := []struct {
		name   string
		params map[string]any
		code   errors.ErrorCode
		kind   string
	}{
		{"unknown strategy", nil, errors.ErrCodeUnsupportedStrategy, "nope"},
		{"unknown param", map[string]any{"symbol": "AAA", "window": 3}, errors.ErrCodeStrategyConfigError, SMACrossoverName},
		{"bad type", map[string]any{"symbol": "AAA", "qty": "many"}, errors.ErrCodeStrategyConfigError, SMACrossoverName},
		{"invalid periods", map[string]any{"symbol": "AAA", "fast": 30}, errors.ErrCodeStrategyConfigError, MACDCrossoverName},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			_, err := suite.registry.New(tc.kind, tc.params)
			suite.True(errors.HasCode(err, tc.code), "got %v", err)
		})
	}
}

func (suite *RegistryTestSuite) TestNamesAndSchema() {
	suite.Equal([]string{MACDCrossoverName, SMACrossoverName}, suite.registry.Names())

	schema, err := suite.registry.Schema(SMACrossoverName)
	suite.Require().NoError(err)
	suite.Contains(schema, "short_window")

	_, err = suite.registry.Schema("nope")
	suite.Error(err)
}
