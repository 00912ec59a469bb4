package indicator

import (
	"math"
	"testing"

	"github.com/rxtech-lab/feedback-trader/internal/types"
	"github.com/rxtech-lab/feedback-trader/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type IndicatorTestSuite struct {
	suite.Suite
}

func TestIndicatorSuite(t *testing.T) {
	suite.Run(t, new(IndicatorTestSuite))
}

func (suite *IndicatorTestSuite) TestSMA() {
	values := []float64{1, 2, 3, 4, 5}

	sma, err := SMA(values, 3)
	suite.Require().NoError(err)
	suite.Require().Len(sma, 5)
	suite.True(math.IsNaN(sma[0]))
	suite.True(math.IsNaN(sma[1]))
	suite.InDelta(2.0, sma[2], 1e-9)
	suite.InDelta(3.0, sma[3], 1e-9)
	suite.InDelta(4.0, sma[4], 1e-9)
}

func (suite *IndicatorTestSuite) TestSMAInsufficientData() {
	_, err := SMA([]float64{1, 2}, 3)
	suite.Require().Error(err)
	suite.True(errors.IsInsufficientDataError(err))

	_, err = SMA([]float64{1, 2}, 0)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidPeriod))
}

func (suite *IndicatorTestSuite) TestEMAConvergesToConstant() {
	values := []float64{10, 10, 10, 10, 10, 10}

	ema, err := EMA(values, 3)
	suite.Require().NoError(err)
	suite.True(math.IsNaN(ema[1]))
	suite.InDelta(10.0, ema[5], 1e-9)
}

func (suite *IndicatorTestSuite) TestMovingAverage() {
	values := []float64{1, 2, 3, 4}

	ma, err := MovingAverage(types.IndicatorTypeMA, values, 2)
	suite.Require().NoError(err)
	suite.InDelta(3.5, ma[3], 1e-9)

	_, err = MovingAverage(types.IndicatorTypeMACD, values, 2)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidParameter))
}

func (suite *IndicatorTestSuite) TestMACD() {
	values := make([]float64, 60)
	for i := range values {
		values[i] = 100 + float64(i)
	}

	result, err := MACD(values, 12, 26, 9)
	suite.Require().NoError(err)
	suite.Len(result.MACD, 60)
	suite.True(math.IsNaN(result.Signal[32]))
	suite.False(math.IsNaN(result.Signal[33]))
	// A steady uptrend keeps the fast EMA above the slow one.
	suite.Positive(result.MACD[59])

	_, err = MACD(values[:20], 12, 26, 9)
	suite.True(errors.IsInsufficientDataError(err))

	_, err = MACD(values, 26, 12, 9)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidPeriod))
}

func (suite *IndicatorTestSuite) TestCross() {
	nan := math.NaN()

	tests := []struct {
		name  string
		a     []float64
		b     []float64
		above bool
		below bool
	}{
		{"cross above", []float64{1, 3}, []float64{2, 2}, true, false},
		{"touch then above", []float64{2, 3}, []float64{2, 2}, true, false},
		{"cross below", []float64{3, 1}, []float64{2, 2}, false, true},
		{"stays above", []float64{3, 4}, []float64{2, 2}, false, false},
		{"too short", []float64{3}, []float64{2}, false, false},
		{"warmup", []float64{nan, 3}, []float64{nan, 2}, false, false},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			suite.Equal(tc.above, CrossAbove(tc.a, tc.b))
			suite.Equal(tc.below, CrossBelow(tc.a, tc.b))
		})
	}
}

func (suite *IndicatorTestSuite) TestRSI() {
	rising := make([]float64, 20)
	falling := make([]float64, 20)

	for i := range rising {
		rising[i] = 100 + float64(i)
		falling[i] = 100 - float64(i)
	}

	rsi, err := RSI(rising, 14)
	suite.Require().NoError(err)
	suite.Len(rsi, 20)
	suite.True(math.IsNaN(rsi[13]))
	suite.InDelta(100.0, rsi[14], 1e-9)
	suite.InDelta(100.0, rsi[19], 1e-9)

	rsi, err = RSI(falling, 14)
	suite.Require().NoError(err)
	suite.InDelta(0.0, rsi[19], 1e-9)

	_, err = RSI(rising[:14], 14)
	suite.True(errors.IsInsufficientDataError(err))

	_, err = RSI(rising, 1)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidPeriod))
}

func (suite *IndicatorTestSuite) TestBollingerBands() {
	values := []float64{1, 2, 3, 4, 5}

	bands, err := BollingerBands(values, 5, 2)
	suite.Require().NoError(err)
	suite.Len(bands.Middle, 5)
	suite.True(math.IsNaN(bands.Upper[3]))
	suite.InDelta(3.0, bands.Middle[4], 1e-9)
	suite.InDelta(3+2*math.Sqrt2, bands.Upper[4], 1e-9)
	suite.InDelta(3-2*math.Sqrt2, bands.Lower[4], 1e-9)

	flat, err := BollingerBands([]float64{7, 7, 7}, 3, 2)
	suite.Require().NoError(err)
	suite.InDelta(7.0, flat.Upper[2], 1e-9)
	suite.InDelta(7.0, flat.Lower[2], 1e-9)

	_, err = BollingerBands(values, 5, 0)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidParameter))

	_, err = BollingerBands(values, 6, 2)
	suite.True(errors.IsInsufficientDataError(err))
}

func (suite *IndicatorTestSuite) TestATR() {
	closes := []float64{10, 10, 10, 10, 10, 10}
	high := make([]float64, len(closes))
	low := make([]float64, len(closes))

	for i, c := range closes {
		high[i] = c + 1
		low[i] = c - 1
	}

	atr, err := ATR(high, low, closes, 3)
	suite.Require().NoError(err)
	suite.Len(atr, 6)
	suite.True(math.IsNaN(atr[2]))
	suite.InDelta(2.0, atr[3], 1e-9)
	suite.InDelta(2.0, atr[5], 1e-9)

	_, err = ATR(high[:5], low, closes, 3)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidParameter))

	_, err = ATR(high[:3], low[:3], closes[:3], 3)
	suite.True(errors.IsInsufficientDataError(err))
}
