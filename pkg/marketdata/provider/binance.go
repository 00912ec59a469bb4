package provider

import (
	"context"
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/moznion/go-optional"
	"github.com/polygon-io/client-go/rest/models"
	"go.uber.org/zap"

	"github.com/rxtech-lab/feedback-trader/internal/logger"
	"github.com/rxtech-lab/feedback-trader/internal/types"
	"github.com/rxtech-lab/feedback-trader/pkg/errors"
)

// BinanceKlinesService is the builder subset of binance.KlinesService the adapter uses.
type BinanceKlinesService interface {
	Symbol(symbol string) BinanceKlinesService
	Interval(interval string) BinanceKlinesService
	StartTime(startTime int64) BinanceKlinesService
	EndTime(endTime int64) BinanceKlinesService
	Do(ctx context.Context) ([]*binance.Kline, error)
}

type BinanceAPIClient interface {
	NewKlinesService() BinanceKlinesService
}

type binanceAPIClient struct {
	client *binance.Client
}

func (c *binanceAPIClient) NewKlinesService() BinanceKlinesService {
	return &binanceKlinesService{service: c.client.NewKlinesService()}
}

type binanceKlinesService struct {
	service *binance.KlinesService
}

func (s *binanceKlinesService) Symbol(symbol string) BinanceKlinesService {
	s.service.Symbol(symbol)
	return s
}

func (s *binanceKlinesService) Interval(interval string) BinanceKlinesService {
	s.service.Interval(interval)
	return s
}

func (s *binanceKlinesService) StartTime(startTime int64) BinanceKlinesService {
	s.service.StartTime(startTime)
	return s
}

func (s *binanceKlinesService) EndTime(endTime int64) BinanceKlinesService {
	s.service.EndTime(endTime)
	return s
}

func (s *binanceKlinesService) Do(ctx context.Context) ([]*binance.Kline, error) {
	return s.service.Do(ctx)
}

// binancePageSize is the default kline limit; a shorter page is the last one.
const binancePageSize = 500

var binanceRateLimitCodes = map[int64]bool{
	-1003: true,
	-1015: true,
}

type BinanceAdapter struct {
	apiClient BinanceAPIClient
	log       *logger.Logger
	now       func() time.Time
}

// NewBinanceAdapter uses the public market data endpoints, no key required.
func NewBinanceAdapter(log *logger.Logger) *BinanceAdapter {
	return NewBinanceAdapterWithAPI(&binanceAPIClient{client: binance.NewClient("", "")}, log)
}

func NewBinanceAdapterWithAPI(api BinanceAPIClient, log *logger.Logger) *BinanceAdapter {
	if log == nil {
		log = logger.NewNop()
	}

	return &BinanceAdapter{apiClient: api, log: log, now: time.Now}
}

func (a *BinanceAdapter) Name() Source {
	return SourceBinance
}

func (a *BinanceAdapter) Fetch(ctx context.Context, req FetchRequest) (types.TimeSeries, error) {
	timespan := req.Interval
	if timespan == "" {
		timespan = TimespanOneDay
	}

	if !timespan.IsValid() {
		return types.EmptyTimeSeries(req.Symbol), errors.Newf(errors.ErrCodeInvalidInterval, "unsupported interval %q", timespan)
	}

	interval, err := convertTimespanToBinanceInterval(timespan.Timespan(), timespan.Multiplier())
	if err != nil {
		return types.EmptyTimeSeries(req.Symbol), errors.Wrap(errors.ErrCodeInvalidInterval, "failed to convert interval", err)
	}

	end := req.End.TakeOr(a.now())
	start := req.Start.TakeOr(end.AddDate(-1, 0, 0))
	endMillis := end.UnixMilli()
	currentStart := start.UnixMilli()

	var bars []types.Bar

	for {
		klines, err := a.apiClient.NewKlinesService().
			Symbol(req.Symbol).
			Interval(interval).
			StartTime(currentStart).
			EndTime(endMillis).
			Do(ctx)
		if err != nil {
			return types.EmptyTimeSeries(req.Symbol), classifyBinance(req.Symbol, err)
		}

		page, err := convertKlines(klines)
		if err != nil {
			return types.EmptyTimeSeries(req.Symbol), errors.Wrapf(errors.ErrCodeMarketDataParseFailed, err, "failed to parse klines for %s", req.Symbol)
		}

		for _, bar := range page {
			if inRange(bar.Time, req) {
				bars = append(bars, bar)
			}
		}

		if len(klines) < binancePageSize {
			break
		}

		// next page starts after the last close to avoid duplicates
		currentStart = klines[len(klines)-1].CloseTime + 1
		if currentStart >= endMillis {
			break
		}

		a.log.Debug("Fetching next kline page", zap.String("symbol", req.Symbol), zap.Int64("start", currentStart))
	}

	series, err := types.NewTimeSeries(req.Symbol, bars)
	if err != nil {
		return types.EmptyTimeSeries(req.Symbol), errors.Wrap(errors.ErrCodeMarketDataParseFailed, "binance returned overlapping klines", err)
	}

	return series, nil
}

// convertKlines uses the open time as the bar timestamp.
func convertKlines(klines []*binance.Kline) ([]types.Bar, error) {
	bars := make([]types.Bar, 0, len(klines))

	for _, k := range klines {
		values := make([]float64, 5)

		for i, raw := range []string{k.Open, k.High, k.Low, k.Close, k.Volume} {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid kline value %q: %w", raw, err)
			}

			values[i] = v
		}

		bars = append(bars, types.Bar{
			Time:     time.UnixMilli(k.OpenTime).UTC(),
			Open:     values[0],
			High:     values[1],
			Low:      values[2],
			Close:    values[3],
			AdjClose: optional.None[float64](),
			Volume:   optional.Some(values[4]),
		})
	}

	return bars, nil
}

func classifyBinance(symbol string, err error) error {
	var apiErr *common.APIError
	if stderrors.As(err, &apiErr) && binanceRateLimitCodes[apiErr.Code] {
		return errors.Wrapf(errors.ErrCodeRateLimited, err, "binance rate limited request for %s", symbol)
	}

	// 418 is the ip ban that follows ignored 429s
	if strings.Contains(err.Error(), "418") {
		return errors.Wrapf(errors.ErrCodeRateLimited, err, "binance rate limited request for %s", symbol)
	}

	return classify(SourceBinance, symbol, err)
}

// convertTimespanToBinanceInterval converts the polygon timespan and multiplier to a Binance interval string.
// Binance intervals: 1m, 3m, 5m, 15m, 30m, 1h, 2h, 4h, 6h, 8h, 12h, 1d, 3d, 1w, 1M
func convertTimespanToBinanceInterval(timespan models.Timespan, multiplier int) (string, error) {
	switch timespan {
	case models.Minute:
		return fmt.Sprintf("%dm", multiplier), nil
	case models.Hour:
		return fmt.Sprintf("%dh", multiplier), nil
	case models.Day:
		return fmt.Sprintf("%dd", multiplier), nil
	case models.Week:
		if multiplier == 1 {
			return "1w", nil
		}

		return "", fmt.Errorf("unsupported weekly multiplier for Binance: %d", multiplier)
	case models.Month:
		if multiplier == 1 {
			return "1M", nil
		}

		return "", fmt.Errorf("unsupported monthly multiplier for Binance: %d", multiplier)
	default:
		return "", fmt.Errorf("unsupported timespan for Binance: %s", timespan)
	}
}
