package types

import (
	"time"

	"github.com/moznion/go-optional"
)

// Frame is a bar aggregation period.
type Frame string

const (
	FrameDaily   Frame = "daily"
	FrameWeekly  Frame = "weekly"
	FrameMonthly Frame = "monthly"
)

// Resample aggregates bars into the given frame. Each output bar is stamped
// with the time of the first bar in its bucket.
func (ts TimeSeries) Resample(frame Frame) TimeSeries {
	if frame == FrameDaily || frame == "" || len(ts.bars) == 0 {
		return ts.slice(0, len(ts.bars))
	}

	out := make([]Bar, 0, len(ts.bars)/4+1)
	current := ts.bars[0]
	currentKey := bucketKey(current.Time, frame)

	for _, bar := range ts.bars[1:] {
		key := bucketKey(bar.Time, frame)
		if key != currentKey {
			out = append(out, current)
			current = bar
			currentKey = key

			continue
		}

		current.High = max(current.High, bar.High)
		current.Low = min(current.Low, bar.Low)
		current.Close = bar.Close
		current.AdjClose = bar.AdjClose
		current.Volume = sumVolume(current.Volume, bar.Volume)
	}

	out = append(out, current)

	return TimeSeries{symbol: ts.symbol, bars: out}
}

func bucketKey(t time.Time, frame Frame) int {
	if frame == FrameMonthly {
		return t.Year()*100 + int(t.Month())
	}

	year, week := t.ISOWeek()

	return year*100 + week
}

func sumVolume(a, b optional.Option[float64]) optional.Option[float64] {
	if a.IsNone() {
		return b
	}

	if b.IsNone() {
		return a
	}

	return optional.Some(a.Unwrap() + b.Unwrap())
}
