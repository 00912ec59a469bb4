package types

import (
	"sort"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/feedback-trader/pkg/errors"
)

// Bar is one time-stamped OHLCV record for an instrument.
type Bar struct {
	Time  time.Time `json:"time" yaml:"time"`
	Open  float64   `json:"open" yaml:"open"`
	High  float64   `json:"high" yaml:"high"`
	Low   float64   `json:"low" yaml:"low"`
	Close float64   `json:"close" yaml:"close"`
	// AdjClose is only set by providers that report split/dividend adjusted closes.
	AdjClose optional.Option[float64] `json:"adj_close" yaml:"adj_close"`
	// Volume is non-negative when present.
	Volume optional.Option[float64] `json:"volume" yaml:"volume"`
}

// TimeSeries is an immutable, strictly time-ordered sequence of bars for one symbol.
// No method writes to the bars, so a TimeSeries and every sub-series derived
// from it can be shared between goroutines.
type TimeSeries struct {
	symbol string
	bars   []Bar
}

// NewTimeSeries copies and sorts bars by time. Duplicate timestamps and
// negative volumes are rejected.
func NewTimeSeries(symbol string, bars []Bar) (TimeSeries, error) {
	sorted := make([]Bar, len(bars))
	for i, bar := range bars {
		if bar.Volume.IsSome() && bar.Volume.Unwrap() < 0 {
			return TimeSeries{}, errors.Newf(errors.ErrCodeNegativeVolume,
				"negative volume %v for %s at %s", bar.Volume.Unwrap(), symbol, bar.Time.UTC().Format(time.RFC3339))
		}

		bar.Time = bar.Time.UTC()
		sorted[i] = bar
	}

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Time.Before(sorted[j].Time)
	})

	for i := 1; i < len(sorted); i++ {
		if sorted[i].Time.Equal(sorted[i-1].Time) {
			return TimeSeries{}, errors.Newf(errors.ErrCodeDuplicateTimestamp,
				"duplicate bar for %s at %s", symbol, sorted[i].Time.Format(time.RFC3339))
		}
	}

	return TimeSeries{symbol: symbol, bars: sorted}, nil
}

// EmptyTimeSeries returns a series without bars.
func EmptyTimeSeries(symbol string) TimeSeries {
	return TimeSeries{symbol: symbol}
}

func (ts TimeSeries) Symbol() string {
	return ts.symbol
}

func (ts TimeSeries) Len() int {
	return len(ts.bars)
}

func (ts TimeSeries) IsEmpty() bool {
	return len(ts.bars) == 0
}

// At returns the i-th bar. It panics when i is out of range, like slice indexing.
func (ts TimeSeries) At(i int) Bar {
	return ts.bars[i]
}

// Bars returns a copy of the underlying bars.
func (ts TimeSeries) Bars() []Bar {
	out := make([]Bar, len(ts.bars))
	copy(out, ts.bars)

	return out
}

// Last returns the most recent bar.
func (ts TimeSeries) Last() (Bar, bool) {
	if len(ts.bars) == 0 {
		return Bar{}, false
	}

	return ts.bars[len(ts.bars)-1], true
}

// BarAt returns the bar stamped exactly at t.
func (ts TimeSeries) BarAt(t time.Time) (Bar, bool) {
	i := ts.search(t)
	if i < len(ts.bars) && ts.bars[i].Time.Equal(t) {
		return ts.bars[i], true
	}

	return Bar{}, false
}

// Before returns the bars strictly earlier than t.
func (ts TimeSeries) Before(t time.Time) TimeSeries {
	return ts.slice(0, ts.search(t))
}

// Window returns the bars inside [start, end]. Missing bounds are open.
func (ts TimeSeries) Window(start, end optional.Option[time.Time]) TimeSeries {
	from := 0
	if start.IsSome() {
		from = ts.search(start.Unwrap())
	}

	to := len(ts.bars)
	if end.IsSome() {
		endTime := end.Unwrap()
		to = sort.Search(len(ts.bars), func(i int) bool {
			return ts.bars[i].Time.After(endTime)
		})
	}

	if to < from {
		to = from
	}

	return ts.slice(from, to)
}

// Times returns the bar timestamps in order.
func (ts TimeSeries) Times() []time.Time {
	out := make([]time.Time, len(ts.bars))
	for i, bar := range ts.bars {
		out[i] = bar.Time
	}

	return out
}

// Closes returns the close prices in order.
func (ts TimeSeries) Closes() []float64 {
	out := make([]float64, len(ts.bars))
	for i, bar := range ts.bars {
		out[i] = bar.Close
	}

	return out
}

func (ts TimeSeries) search(t time.Time) int {
	return sort.Search(len(ts.bars), func(i int) bool {
		return !ts.bars[i].Time.Before(t)
	})
}

// slice shares storage with ts. Bars are never written after construction.
func (ts TimeSeries) slice(from, to int) TimeSeries {
	return TimeSeries{symbol: ts.symbol, bars: ts.bars[from:to:to]}
}

// History is the per-symbol market view handed to strategies.
type History map[string]TimeSeries

// Get returns the series for symbol, or an empty series.
func (h History) Get(symbol string) TimeSeries {
	if ts, ok := h[symbol]; ok {
		return ts
	}

	return EmptyTimeSeries(symbol)
}
