package marketdata

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rxtech-lab/feedback-trader/internal/logger"
	"github.com/rxtech-lab/feedback-trader/internal/types"
	"github.com/rxtech-lab/feedback-trader/pkg/errors"
	"github.com/rxtech-lab/feedback-trader/pkg/marketdata/cache"
	"github.com/rxtech-lab/feedback-trader/pkg/marketdata/provider"
)

const (
	DefaultMaxRetries    = 3
	DefaultBackoffFactor = time.Second
)

// HistoryRequest holds the parameters for one symbol's history.
type HistoryRequest struct {
	Symbol   string `validate:"required"`
	Start    optional.Option[time.Time]
	End      optional.Option[time.Time]
	Source   provider.Source
	Interval provider.Timespan
	Adjusted bool
	// Cache enables reading and writing the local cache.
	Cache bool
	// Refresh skips the cache read but still writes the fresh result.
	Refresh bool
	// MaxRetries is the total number of provider attempts; values below 1 mean one attempt.
	MaxRetries int `validate:"gte=0"`
	// BackoffFactor scales the wait after a rate limit: factor * 2^attempt.
	BackoffFactor time.Duration `validate:"gte=0"`
	Options       map[string]string
}

// DefaultHistoryRequest returns a cached daily csv request for symbol.
func DefaultHistoryRequest(symbol string) HistoryRequest {
	return HistoryRequest{
		Symbol:        symbol,
		Start:         optional.None[time.Time](),
		End:           optional.None[time.Time](),
		Source:        provider.SourceCSV,
		Interval:      provider.TimespanOneDay,
		Cache:         true,
		MaxRetries:    DefaultMaxRetries,
		BackoffFactor: DefaultBackoffFactor,
	}
}

// OnSymbolFetched is called by GetHistories as each symbol completes.
type OnSymbolFetched func(symbol string, series types.TimeSeries)

// Fetcher resolves price history through the cache and the registered adapters.
type Fetcher struct {
	mu       sync.RWMutex
	adapters map[provider.Source]provider.Adapter
	cache    cache.Cache
	log      *logger.Logger
	validate *validator.Validate
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewFetcher creates a fetcher. c may be nil to disable caching entirely.
func NewFetcher(c cache.Cache, log *logger.Logger, adapters ...provider.Adapter) *Fetcher {
	if log == nil {
		log = logger.NewNop()
	}

	f := &Fetcher{
		adapters: make(map[provider.Source]provider.Adapter),
		cache:    c,
		log:      log,
		validate: validator.New(),
		sleep:    sleepContext,
	}

	for _, adapter := range adapters {
		f.Register(adapter)
	}

	return f
}

// Register adds an adapter under its own name and any aliases. Later registrations win.
func (f *Fetcher) Register(adapter provider.Adapter, aliases ...provider.Source) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.adapters[adapter.Name()] = adapter
	for _, alias := range aliases {
		f.adapters[alias] = adapter
	}
}

// Sources lists the registered source names in sorted order.
func (f *Fetcher) Sources() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	names := make([]string, 0, len(f.adapters))
	for name := range f.adapters {
		names = append(names, string(name))
	}

	sort.Strings(names)

	return names
}

func (f *Fetcher) adapter(source provider.Source) (provider.Adapter, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	adapter, ok := f.adapters[source]

	return adapter, ok
}

// GetHistory returns the bars for req.Symbol, from the cache when allowed and present,
// otherwise from the adapter named by req.Source, retrying rate limited calls with
// exponential backoff.
func (f *Fetcher) GetHistory(ctx context.Context, req HistoryRequest) (types.TimeSeries, error) {
	req = withDefaults(req)

	if err := f.validate.Struct(req); err != nil {
		return types.EmptyTimeSeries(req.Symbol), errors.Wrap(errors.ErrCodeInvalidParameter, "invalid history request", err)
	}

	if req.Start.IsSome() && req.End.IsSome() && req.Start.Unwrap().After(req.End.Unwrap()) {
		return types.EmptyTimeSeries(req.Symbol), errors.Newf(errors.ErrCodeInvalidPeriod, "start %s is after end %s", req.Start.Unwrap(), req.End.Unwrap())
	}

	if req.Cache && !req.Refresh && f.cache != nil {
		if series, ok := f.cache.Read(ctx, req.Symbol, req.Start, req.End); ok && !series.IsEmpty() {
			f.log.Debug("Serving history from cache", zap.String("symbol", req.Symbol), zap.Int("bars", series.Len()))
			return series, nil
		}
	}

	adapter, ok := f.adapter(req.Source)
	if !ok {
		return types.EmptyTimeSeries(req.Symbol), errors.Newf(errors.ErrCodeUnknownSource, "unknown data source %q", req.Source)
	}

	fetchReq := provider.FetchRequest{
		Symbol:   req.Symbol,
		Start:    req.Start,
		End:      req.End,
		Interval: req.Interval,
		Adjusted: req.Adjusted,
		Options:  req.Options,
	}

	var lastErr error

	for attempt := 0; attempt < req.MaxRetries; attempt++ {
		series, err := adapter.Fetch(ctx, fetchReq)
		if err == nil {
			if series.IsEmpty() {
				return series, errors.Newf(errors.ErrCodeDataNotFound, "no data for %s from %s", req.Symbol, req.Source)
			}

			if req.Cache && f.cache != nil {
				format := f.cache.Write(ctx, req.Symbol, series)
				f.log.Debug("Cached history", zap.String("symbol", req.Symbol), zap.String("format", string(format)))
			}

			return series, nil
		}

		lastErr = err

		if !errors.IsRetryable(err) {
			break
		}

		if attempt == req.MaxRetries-1 {
			break
		}

		backoff := time.Duration(float64(req.BackoffFactor) * math.Pow(2, float64(attempt)))
		f.log.Warn("Rate limited, backing off",
			zap.String("symbol", req.Symbol),
			zap.String("source", string(req.Source)),
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", backoff),
		)

		if err := f.sleep(ctx, backoff); err != nil {
			return types.EmptyTimeSeries(req.Symbol), errors.Wrap(errors.ErrCodeCanceled, "fetch canceled during backoff", err)
		}
	}

	if lastErr == nil {
		lastErr = errors.Newf(errors.ErrCodeMarketDataFetchFailed, "failed to fetch %s", req.Symbol)
	}

	return types.EmptyTimeSeries(req.Symbol), lastErr
}

// GetHistories fetches every symbol concurrently with the same request settings.
// The first failure cancels the others and is returned.
func (f *Fetcher) GetHistories(ctx context.Context, symbols []string, req HistoryRequest, onFetched OnSymbolFetched) (types.History, error) {
	var mu sync.Mutex

	history := make(types.History, len(symbols))
	g, ctx := errgroup.WithContext(ctx)

	for _, symbol := range symbols {
		symbolReq := req
		symbolReq.Symbol = symbol

		g.Go(func() error {
			series, err := f.GetHistory(ctx, symbolReq)
			if err != nil {
				return err
			}

			mu.Lock()
			history[symbol] = series
			mu.Unlock()

			if onFetched != nil {
				onFetched(symbol, series)
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return history, nil
}

func withDefaults(req HistoryRequest) HistoryRequest {
	if req.Source == "" {
		req.Source = provider.SourceCSV
	}

	if req.Interval == "" {
		req.Interval = provider.TimespanOneDay
	}

	if req.MaxRetries < 1 {
		req.MaxRetries = 1
	}

	return req
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
