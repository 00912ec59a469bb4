package mocks

import (
	"math"
	"math/rand"
	"time"

	"github.com/moznion/go-optional"

	"github.com/rxtech-lab/feedback-trader/internal/types"
)

// DataGenerator produces reproducible synthetic price series for tests and benchmarks.
type DataGenerator struct {
	rng *rand.Rand
}

func NewDataGenerator(seed int64) *DataGenerator {
	return &DataGenerator{
		rng: rand.New(rand.NewSource(seed)),
	}
}

type GeneratorConfig struct {
	Symbol       string
	StartTime    time.Time
	Interval     time.Duration
	Count        int
	InitialPrice float64
	// Volatility is the standard deviation of the per bar return.
	Volatility float64
	// Trend is the total drift spread over the whole series.
	Trend          float64
	VolumeBase     float64
	VolumeVariance float64
}

// DefaultConfig describes a year of daily bars around 100.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Symbol:         "TEST",
		StartTime:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Interval:       24 * time.Hour,
		Count:          365,
		InitialPrice:   100.0,
		Volatility:     0.02,
		Trend:          0.0,
		VolumeBase:     10000,
		VolumeVariance: 0.3,
	}
}

// Generate follows a geometric random walk; prices stay positive.
func (g *DataGenerator) Generate(config GeneratorConfig) types.TimeSeries {
	bars := make([]types.Bar, config.Count)
	price := config.InitialPrice
	current := config.StartTime.UTC()

	for i := range bars {
		open := price

		// Box-Muller
		u1 := 1 - g.rng.Float64()
		u2 := g.rng.Float64()
		z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)

		closePrice := open * (1 + config.Volatility*z + config.Trend/float64(config.Count))
		if closePrice <= 0 {
			closePrice = open * 0.99
		}

		high := math.Max(open, closePrice) + math.Abs(g.rng.Float64()*config.Volatility*open*0.5)
		low := math.Min(open, closePrice) - math.Abs(g.rng.Float64()*config.Volatility*open*0.5)
		if low <= 0 {
			low = math.Min(open, closePrice) * 0.99
		}

		volume := config.VolumeBase * (1.0 + (g.rng.Float64()*2-1)*config.VolumeVariance)
		if volume < 0 {
			volume = config.VolumeBase * 0.1
		}

		bars[i] = types.Bar{
			Time:     current,
			Open:     roundToDecimals(open, 4),
			High:     roundToDecimals(high, 4),
			Low:      roundToDecimals(low, 4),
			Close:    roundToDecimals(closePrice, 4),
			AdjClose: optional.None[float64](),
			Volume:   optional.Some(roundToDecimals(volume, 2)),
		}

		price = closePrice
		current = current.Add(config.Interval)
	}

	// timestamps are strictly increasing by construction
	series, _ := types.NewTimeSeries(config.Symbol, bars)

	return series
}

// GenerateHistory builds one series per symbol with slightly different starting price and volatility.
func (g *DataGenerator) GenerateHistory(symbols []string, baseConfig GeneratorConfig) types.History {
	history := make(types.History, len(symbols))

	for _, symbol := range symbols {
		config := baseConfig
		config.Symbol = symbol
		config.InitialPrice = baseConfig.InitialPrice * (0.8 + g.rng.Float64()*0.4)
		config.Volatility = baseConfig.Volatility * (0.8 + g.rng.Float64()*0.4)

		history[symbol] = g.Generate(config)
	}

	return history
}

// SeriesFromCloses builds daily bars from 2024-01-01 with open, high and low equal to the close.
func SeriesFromCloses(symbol string, closes ...float64) types.TimeSeries {
	bars := make([]types.Bar, len(closes))
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, c := range closes {
		bars[i] = types.Bar{
			Time:     start.AddDate(0, 0, i),
			Open:     c,
			High:     c,
			Low:      c,
			Close:    c,
			AdjClose: optional.None[float64](),
			Volume:   optional.None[float64](),
		}
	}

	series, _ := types.NewTimeSeries(symbol, bars)

	return series
}

func roundToDecimals(val float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Round(val*pow) / pow
}
