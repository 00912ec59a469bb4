package marketdata

import (
	"sort"

	"github.com/rxtech-lab/feedback-trader/internal/logger"
	"github.com/rxtech-lab/feedback-trader/pkg/errors"
	"github.com/rxtech-lab/feedback-trader/pkg/marketdata/cache"
	"github.com/rxtech-lab/feedback-trader/pkg/marketdata/provider"
	"github.com/rxtech-lab/feedback-trader/pkg/strategy"
)

// SourceInfo contains metadata about a market data source.
type SourceInfo struct {
	Name         string `json:"name"`
	DisplayName  string `json:"displayName"`
	Description  string `json:"description"`
	RequiresAuth bool   `json:"requiresAuth"`
}

var sourceRegistry = map[provider.Source]SourceInfo{
	provider.SourceCSV: {
		Name:         string(provider.SourceCSV),
		DisplayName:  "Local files",
		Description:  "CSV or parquet files on disk, one file per symbol",
		RequiresAuth: false,
	},
	provider.SourcePolygon: {
		Name:         string(provider.SourcePolygon),
		DisplayName:  "Polygon.io",
		Description:  "US stock market data provider with historical OHLCV aggregates",
		RequiresAuth: true,
	},
	provider.SourceBinance: {
		Name:         string(provider.SourceBinance),
		DisplayName:  "Binance",
		Description:  "Cryptocurrency exchange klines for spot trading pairs",
		RequiresAuth: false,
	},
}

// GetSupportedSources returns the known source names in sorted order.
func GetSupportedSources() []string {
	sources := make([]string, 0, len(sourceRegistry))
	for source := range sourceRegistry {
		sources = append(sources, string(source))
	}

	sort.Strings(sources)

	return sources
}

func GetSourceInfo(name string) (SourceInfo, error) {
	source := provider.Source(name)
	if source == provider.SourceLocal {
		source = provider.SourceCSV
	}

	info, exists := sourceRegistry[source]
	if !exists {
		return SourceInfo{}, errors.Newf(errors.ErrCodeUnknownSource, "unsupported source: %s", name)
	}

	return info, nil
}

// GetFetchConfigSchema returns the JSON schema of FetchConfig.
func GetFetchConfigSchema() (string, error) {
	//nolint:exhaustruct // Empty struct is intentional for schema generation
	return strategy.ToJSONSchema(FetchConfig{})
}

// FetcherConfig selects where the default fetcher keeps and finds data.
type FetcherConfig struct {
	// CacheDir disables caching when empty.
	CacheDir      string
	CSVDir        string
	PolygonAPIKey string
}

// NewDefaultFetcher wires the local, Binance and, when a key is configured, Polygon adapters.
func NewDefaultFetcher(cfg FetcherConfig, log *logger.Logger) (*Fetcher, error) {
	var store cache.Cache

	if cfg.CacheDir != "" {
		s, err := cache.NewStore(cfg.CacheDir, log)
		if err != nil {
			return nil, err
		}

		store = s
	}

	fetcher := NewFetcher(store, log)
	fetcher.Register(provider.NewLocalAdapter(cfg.CSVDir, log), provider.SourceLocal)
	fetcher.Register(provider.NewBinanceAdapter(log))

	if cfg.PolygonAPIKey != "" {
		polygonAdapter, err := provider.NewPolygonAdapter(cfg.PolygonAPIKey, log)
		if err != nil {
			return nil, err
		}

		fetcher.Register(polygonAdapter)
	}

	return fetcher, nil
}
