package types

type IndicatorType string

const (
	IndicatorTypeMA   IndicatorType = "ma"
	IndicatorTypeEMA  IndicatorType = "ema"
	IndicatorTypeMACD IndicatorType = "macd"
	IndicatorTypeRSI  IndicatorType = "rsi"
	IndicatorTypeBOLL IndicatorType = "boll"
	IndicatorTypeATR  IndicatorType = "atr"
)
