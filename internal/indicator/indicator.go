// Package indicator computes technical indicators over price series.
//
// Every function returns a slice of the same length as its input. Positions
// inside the warmup period are NaN so callers can align results with bars.
package indicator

import (
	"math"

	"github.com/markcheno/go-talib"
	"github.com/rxtech-lab/feedback-trader/internal/types"
	"github.com/rxtech-lab/feedback-trader/pkg/errors"
)

// SMA is the simple moving average over period values.
func SMA(values []float64, period int) ([]float64, error) {
	if err := checkPeriod(types.IndicatorTypeMA, values, period, period); err != nil {
		return nil, err
	}

	return withWarmup(talib.Sma(values, period), period-1), nil
}

// EMA is the exponential moving average over period values.
func EMA(values []float64, period int) ([]float64, error) {
	if err := checkPeriod(types.IndicatorTypeEMA, values, period, period); err != nil {
		return nil, err
	}

	return withWarmup(talib.Ema(values, period), period-1), nil
}

// MovingAverage dispatches to SMA or EMA.
func MovingAverage(kind types.IndicatorType, values []float64, period int) ([]float64, error) {
	switch kind {
	case types.IndicatorTypeMA:
		return SMA(values, period)
	case types.IndicatorTypeEMA:
		return EMA(values, period)
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "unsupported moving average %q", kind)
	}
}

// MACDResult holds the three MACD lines.
type MACDResult struct {
	MACD      []float64
	Signal    []float64
	Histogram []float64
}

// MACD computes the fast/slow EMA difference and its signal line.
func MACD(values []float64, fast, slow, signal int) (MACDResult, error) {
	if fast <= 0 || signal <= 0 || fast >= slow {
		return MACDResult{}, errors.Newf(errors.ErrCodeInvalidPeriod,
			"invalid MACD periods fast=%d slow=%d signal=%d", fast, slow, signal)
	}

	required := slow + signal - 1
	if err := checkPeriod(types.IndicatorTypeMACD, values, slow, required); err != nil {
		return MACDResult{}, err
	}

	macd, sig, hist := talib.Macd(values, fast, slow, signal)
	warmup := required - 1

	return MACDResult{
		MACD:      withWarmup(macd, warmup),
		Signal:    withWarmup(sig, warmup),
		Histogram: withWarmup(hist, warmup),
	}, nil
}

// RSI is Wilder's relative strength index, in [0, 100].
func RSI(values []float64, period int) ([]float64, error) {
	if period == 1 {
		return nil, errors.Newf(errors.ErrCodeInvalidPeriod, "%s period must be at least 2", types.IndicatorTypeRSI)
	}

	if err := checkPeriod(types.IndicatorTypeRSI, values, period, period+1); err != nil {
		return nil, err
	}

	return withWarmup(talib.Rsi(values, period), period), nil
}

// BollingerResult holds the three Bollinger bands.
type BollingerResult struct {
	Upper  []float64
	Middle []float64
	Lower  []float64
}

// BollingerBands is the SMA over period values with bands k standard deviations away.
func BollingerBands(values []float64, period int, k float64) (BollingerResult, error) {
	if k <= 0 {
		return BollingerResult{}, errors.Newf(errors.ErrCodeInvalidParameter, "bollinger band width must be positive, got %v", k)
	}

	if err := checkPeriod(types.IndicatorTypeBOLL, values, period, period); err != nil {
		return BollingerResult{}, err
	}

	upper, middle, lower := talib.BBands(values, period, k, k, talib.SMA)

	return BollingerResult{
		Upper:  withWarmup(upper, period-1),
		Middle: withWarmup(middle, period-1),
		Lower:  withWarmup(lower, period-1),
	}, nil
}

// ATR is the average true range. The three series must be aligned bar by bar.
func ATR(high, low, closes []float64, period int) ([]float64, error) {
	if len(high) != len(closes) || len(low) != len(closes) {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter,
			"%s series lengths differ: high=%d low=%d close=%d", types.IndicatorTypeATR, len(high), len(low), len(closes))
	}

	if err := checkPeriod(types.IndicatorTypeATR, closes, period, period+1); err != nil {
		return nil, err
	}

	return withWarmup(talib.Atr(high, low, closes, period), period), nil
}

func checkPeriod(kind types.IndicatorType, values []float64, period int, required int) error {
	if period <= 0 {
		return errors.Newf(errors.ErrCodeInvalidPeriod, "%s period must be positive, got %d", kind, period)
	}

	if len(values) < required {
		return errors.NewInsufficientDataErrorf(required, len(values), "",
			"insufficient data for %s: required %d, got %d", kind, required, len(values))
	}

	return nil
}

func withWarmup(values []float64, warmup int) []float64 {
	out := make([]float64, len(values))
	copy(out, values)

	for i := 0; i < warmup && i < len(out); i++ {
		out[i] = math.NaN()
	}

	return out
}
