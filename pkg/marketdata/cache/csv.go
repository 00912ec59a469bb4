package cache

import (
	"context"
	"os"
	"strconv"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/moznion/go-optional"

	"github.com/rxtech-lab/feedback-trader/internal/types"
	"github.com/rxtech-lab/feedback-trader/pkg/errors"
)

// csvBar is one row of the fallback format. Empty optional columns mean absent.
type csvBar struct {
	Time     string  `csv:"time"`
	Open     float64 `csv:"open"`
	High     float64 `csv:"high"`
	Low      float64 `csv:"low"`
	Close    float64 `csv:"close"`
	AdjClose string  `csv:"adj_close"`
	Volume   string  `csv:"volume"`
}

type CSVEncoding struct{}

func (CSVEncoding) Extension() string {
	return ".csv"
}

func (CSVEncoding) Encode(_ context.Context, path string, series types.TimeSeries) error {
	rows := make([]*csvBar, 0, series.Len())

	for _, bar := range series.Bars() {
		rows = append(rows, &csvBar{
			Time:     bar.Time.UTC().Format(time.RFC3339Nano),
			Open:     bar.Open,
			High:     bar.High,
			Low:      bar.Low,
			Close:    bar.Close,
			AdjClose: formatOptional(bar.AdjClose),
			Volume:   formatOptional(bar.Volume),
		})
	}

	file, err := os.Create(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeCacheWriteFailed, "failed to create csv cache file", err)
	}

	if err := gocsv.MarshalFile(&rows, file); err != nil {
		file.Close()
		return errors.Wrap(errors.ErrCodeCacheWriteFailed, "failed to write csv cache file", err)
	}

	if err := file.Close(); err != nil {
		return errors.Wrap(errors.ErrCodeCacheWriteFailed, "failed to close csv cache file", err)
	}

	return nil
}

func (CSVEncoding) Decode(_ context.Context, path string, symbol string) (types.TimeSeries, error) {
	file, err := os.Open(path)
	if err != nil {
		return types.EmptyTimeSeries(symbol), errors.Wrap(errors.ErrCodeCacheReadFailed, "failed to open csv cache file", err)
	}
	defer file.Close()

	var rows []*csvBar
	if err := gocsv.UnmarshalFile(file, &rows); err != nil {
		return types.EmptyTimeSeries(symbol), errors.Wrap(errors.ErrCodeCacheReadFailed, "failed to parse csv cache file", err)
	}

	bars := make([]types.Bar, 0, len(rows))

	for _, row := range rows {
		t, err := time.Parse(time.RFC3339Nano, row.Time)
		if err != nil {
			return types.EmptyTimeSeries(symbol), errors.Wrapf(errors.ErrCodeCacheReadFailed, err, "bad timestamp %q", row.Time)
		}

		adjClose, err := parseOptional(row.AdjClose)
		if err != nil {
			return types.EmptyTimeSeries(symbol), errors.Wrap(errors.ErrCodeCacheReadFailed, "bad adj_close", err)
		}

		volume, err := parseOptional(row.Volume)
		if err != nil {
			return types.EmptyTimeSeries(symbol), errors.Wrap(errors.ErrCodeCacheReadFailed, "bad volume", err)
		}

		bars = append(bars, types.Bar{
			Time:     t,
			Open:     row.Open,
			High:     row.High,
			Low:      row.Low,
			Close:    row.Close,
			AdjClose: adjClose,
			Volume:   volume,
		})
	}

	series, err := types.NewTimeSeries(symbol, bars)
	if err != nil {
		return types.EmptyTimeSeries(symbol), errors.Wrap(errors.ErrCodeCacheReadFailed, "corrupt cache entry", err)
	}

	return series, nil
}

func formatOptional(v optional.Option[float64]) string {
	if v.IsNone() {
		return ""
	}

	return strconv.FormatFloat(v.Unwrap(), 'g', -1, 64)
}

func parseOptional(s string) (optional.Option[float64], error) {
	if s == "" {
		return optional.None[float64](), nil
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return optional.None[float64](), err
	}

	return optional.Some(v), nil
}
