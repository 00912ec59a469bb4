package provider

import (
	"context"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/moznion/go-optional"
	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"
	"go.uber.org/zap"

	"github.com/rxtech-lab/feedback-trader/internal/logger"
	"github.com/rxtech-lab/feedback-trader/internal/types"
	"github.com/rxtech-lab/feedback-trader/pkg/errors"
)

// PolygonAggsIterator is the part of the client-go aggregate iterator the adapter uses.
type PolygonAggsIterator interface {
	Next() bool
	Item() models.Agg
	Err() error
}

// PolygonAPIClient abstracts the polygon REST client so tests can substitute it.
type PolygonAPIClient interface {
	ListAggs(ctx context.Context, params *models.ListAggsParams, options ...models.RequestOption) PolygonAggsIterator
}

type polygonAPIClient struct {
	client *polygon.Client
}

func (c *polygonAPIClient) ListAggs(ctx context.Context, params *models.ListAggsParams, options ...models.RequestOption) PolygonAggsIterator {
	return c.client.ListAggs(ctx, params, options...)
}

const polygonPageLimit = 50000

type PolygonAdapter struct {
	apiClient PolygonAPIClient
	log       *logger.Logger
	now       func() time.Time
}

func NewPolygonAdapter(apiKey string, log *logger.Logger) (*PolygonAdapter, error) {
	if apiKey == "" {
		return nil, errors.New(errors.ErrCodeMissingParameter, "polygon api key is required")
	}

	return NewPolygonAdapterWithAPI(&polygonAPIClient{client: polygon.New(apiKey)}, log), nil
}

// NewPolygonAdapterWithAPI builds an adapter around an existing client.
func NewPolygonAdapterWithAPI(api PolygonAPIClient, log *logger.Logger) *PolygonAdapter {
	if log == nil {
		log = logger.NewNop()
	}

	return &PolygonAdapter{apiClient: api, log: log, now: time.Now}
}

func (a *PolygonAdapter) Name() Source {
	return SourcePolygon
}

func (a *PolygonAdapter) Fetch(ctx context.Context, req FetchRequest) (types.TimeSeries, error) {
	interval := req.Interval
	if interval == "" {
		interval = TimespanOneDay
	}

	if !interval.IsValid() {
		return types.EmptyTimeSeries(req.Symbol), errors.Newf(errors.ErrCodeInvalidInterval, "unsupported interval %q", interval)
	}

	end := req.End.TakeOr(a.now())
	start := req.Start.TakeOr(end.AddDate(-1, 0, 0))

	//nolint:exhaustruct // third-party struct with many optional fields
	params := models.ListAggsParams{
		Ticker:     req.Symbol,
		Multiplier: interval.Multiplier(),
		Timespan:   interval.Timespan(),
		From:       models.Millis(start),
		To:         models.Millis(end),
	}.WithAdjusted(req.Adjusted).WithLimit(polygonPageLimit)

	a.log.Debug("Fetching polygon aggregates",
		zap.String("symbol", req.Symbol),
		zap.String("interval", string(interval)),
		zap.Time("start", start),
		zap.Time("end", end),
	)

	iter := a.apiClient.ListAggs(ctx, params)

	var bars []types.Bar

	for iter.Next() {
		agg := iter.Item()

		bar := types.Bar{
			Time:     time.Time(agg.Timestamp).UTC(),
			Open:     agg.Open,
			High:     agg.High,
			Low:      agg.Low,
			Close:    agg.Close,
			AdjClose: optional.None[float64](),
			Volume:   optional.Some(agg.Volume),
		}
		if req.Adjusted {
			bar.AdjClose = optional.Some(agg.Close)
		}

		if inRange(bar.Time, req) {
			bars = append(bars, bar)
		}
	}

	if err := iter.Err(); err != nil {
		return types.EmptyTimeSeries(req.Symbol), classifyPolygon(req.Symbol, err)
	}

	series, err := types.NewTimeSeries(req.Symbol, bars)
	if err != nil {
		return types.EmptyTimeSeries(req.Symbol), errors.Wrap(errors.ErrCodeMarketDataParseFailed, "polygon returned malformed aggregates", err)
	}

	return series, nil
}

func classifyPolygon(symbol string, err error) error {
	var response *models.ErrorResponse
	if stderrors.As(err, &response) && response.StatusCode == http.StatusTooManyRequests {
		return errors.Wrapf(errors.ErrCodeRateLimited, err, "polygon rate limited request for %s", symbol)
	}

	return classify(SourcePolygon, symbol, err)
}
