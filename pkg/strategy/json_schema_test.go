package strategy

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/suite"
)

type JsonSchemaTestSuite struct {
	suite.Suite
}

func TestJsonSchemaTestSuite(t *testing.T) {
	suite.Run(t, new(JsonSchemaTestSuite))
}

func (suite *JsonSchemaTestSuite) TestToJSONSchemaUsesParamKeys() {
	type CrossoverParams struct {
		ShortWindow int    `mapstructure:"short_window" json:"shortWindow" jsonschema:"title=Short Window,minimum=1,default=5"`
		Symbol      string `mapstructure:"symbol" jsonschema:"title=Symbol,description=The symbol to trade"`
	}

	schema, err := ToJSONSchema(CrossoverParams{})
	suite.Require().NoError(err)

	var parsed map[string]any
	suite.Require().NoError(json.Unmarshal([]byte(schema), &parsed))

	properties, ok := parsed["properties"].(map[string]any)
	suite.Require().True(ok)
	suite.Contains(properties, "short_window")
	suite.Contains(properties, "symbol")
	suite.NotContains(properties, "shortWindow")
}
