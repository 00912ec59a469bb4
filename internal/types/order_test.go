package types

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type OrderTestSuite struct {
	suite.Suite
}

func TestOrderSuite(t *testing.T) {
	suite.Run(t, new(OrderTestSuite))
}

func (suite *OrderTestSuite) TestMergeSumsPerSymbol() {
	orders := Orders{}
	orders.Merge(Orders{"BBB": 10, "AAA": 5})
	orders.Merge(Orders{"AAA": -5, "CCC": -3})

	suite.Equal(int64(0), orders["AAA"])
	suite.Equal(int64(10), orders["BBB"])
	suite.Equal(int64(-3), orders["CCC"])
	suite.Equal([]string{"BBB", "CCC"}, orders.Symbols())
}

func (suite *OrderTestSuite) TestTransactionClone() {
	tx := Transaction{Symbol: "AAA", Positions: map[string]Position{"AAA": {Symbol: "AAA", Quantity: 10}}}
	clone := tx.Clone()
	clone.Positions["AAA"] = Position{Symbol: "AAA", Quantity: 1}

	suite.Equal(int64(10), tx.Positions["AAA"].Quantity)
}
