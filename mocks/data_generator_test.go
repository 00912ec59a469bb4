package mocks

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataGenerator_Generate(t *testing.T) {
	config := DefaultConfig()
	config.Count = 200

	series := NewDataGenerator(1).Generate(config)
	require.Equal(t, 200, series.Len())
	assert.Equal(t, "TEST", series.Symbol())

	for i := 0; i < series.Len(); i++ {
		bar := series.At(i)
		assert.Greater(t, bar.Low, 0.0)
		assert.GreaterOrEqual(t, bar.High, bar.Open)
		assert.GreaterOrEqual(t, bar.High, bar.Close)
		assert.LessOrEqual(t, bar.Low, bar.Open)
		assert.LessOrEqual(t, bar.Low, bar.Close)
		assert.True(t, bar.Volume.IsSome())

		if i > 0 {
			assert.Equal(t, config.Interval, bar.Time.Sub(series.At(i-1).Time))
		}
	}
}

func TestDataGenerator_Reproducibility(t *testing.T) {
	config := DefaultConfig()

	first := NewDataGenerator(42).Generate(config)
	second := NewDataGenerator(42).Generate(config)
	assert.Equal(t, first.Bars(), second.Bars())

	other := NewDataGenerator(7).Generate(config)
	assert.NotEqual(t, first.Closes(), other.Closes())
}

func TestGenerateHistory(t *testing.T) {
	history := NewDataGenerator(3).GenerateHistory([]string{"AAA", "BBB"}, DefaultConfig())

	require.Len(t, history, 2)
	assert.Equal(t, "BBB", history.Get("BBB").Symbol())
	assert.NotEqual(t, history.Get("AAA").Closes(), history.Get("BBB").Closes())
}

func TestSeriesFromCloses(t *testing.T) {
	series := SeriesFromCloses("X", 1, 2, 3)

	assert.Equal(t, []float64{1, 2, 3}, series.Closes())
	assert.Equal(t, time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), series.At(2).Time)
}
