package provider

import (
	"context"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/feedback-trader/internal/types"
)

// Source names a market data provider.
type Source string

const (
	SourceCSV     Source = "csv"
	SourceLocal   Source = "local"
	SourcePolygon Source = "polygon"
	SourceBinance Source = "binance"
)

// FetchRequest describes the bars wanted from a provider. Missing bounds are open.
type FetchRequest struct {
	Symbol   string `validate:"required"`
	Start    optional.Option[time.Time]
	End      optional.Option[time.Time]
	Interval Timespan
	// Adjusted asks for split/dividend adjusted prices where the provider supports it.
	Adjusted bool
	// Options carries provider specific settings, e.g. csv_base for the local adapter.
	Options map[string]string
}

// Adapter fetches one symbol's bars from a single provider.
//
// Errors carry a pkg/errors code: ErrCodeRateLimited may succeed on retry,
// ErrCodeDataNotFound, ErrCodeNetworkError and ErrCodeAdapterInternal are final.
// An empty series with a nil error means the provider had nothing for the range.
type Adapter interface {
	Name() Source
	Fetch(ctx context.Context, req FetchRequest) (types.TimeSeries, error)
}

func inRange(t time.Time, req FetchRequest) bool {
	if req.Start.IsSome() && t.Before(req.Start.Unwrap()) {
		return false
	}

	if req.End.IsSome() && t.After(req.End.Unwrap()) {
		return false
	}

	return true
}
