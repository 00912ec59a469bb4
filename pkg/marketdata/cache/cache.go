// Package cache persists fetched price series on local disk so repeated
// requests for a symbol do not hit the provider again.
package cache

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/rxtech-lab/feedback-trader/internal/logger"
	"github.com/rxtech-lab/feedback-trader/internal/types"
	"github.com/rxtech-lab/feedback-trader/pkg/errors"
	"github.com/rxtech-lab/feedback-trader/pkg/marketdata/provider"
)

// Format tags which encoding holds a cache entry.
type Format string

const (
	FormatNone     Format = "none"
	FormatPrimary  Format = "primary"
	FormatFallback Format = "fallback"
)

// Encoding reads and writes a whole series at a path.
type Encoding interface {
	Extension() string
	Encode(ctx context.Context, path string, series types.TimeSeries) error
	Decode(ctx context.Context, path string, symbol string) (types.TimeSeries, error)
}

// Cache is what the fetcher needs from a store.
type Cache interface {
	// Read returns the cached bars within the optional bounds, or false when nothing usable is stored.
	Read(ctx context.Context, symbol string, start, end optional.Option[time.Time]) (types.TimeSeries, bool)
	// Write never fails; it reports which format, if any, was persisted.
	Write(ctx context.Context, symbol string, series types.TimeSeries) Format
}

type Store struct {
	dir      string
	primary  Encoding
	fallback Encoding
	log      *logger.Logger
	locks    sync.Map
}

var _ Cache = (*Store)(nil)

// NewStore creates dir if needed and stores parquet files with a csv fallback.
func NewStore(dir string, log *logger.Logger) (*Store, error) {
	return NewStoreWithEncodings(dir, ParquetEncoding{}, CSVEncoding{}, log)
}

func NewStoreWithEncodings(dir string, primary, fallback Encoding, log *logger.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeCacheWriteFailed, err, "failed to create cache directory %s", dir)
	}

	if log == nil {
		log = logger.NewNop()
	}

	return &Store{dir: dir, primary: primary, fallback: fallback, log: log}, nil
}

func (s *Store) Dir() string {
	return s.dir
}

// Path is where the entry for symbol lives in the given format.
func (s *Store) Path(symbol string, format Format) string {
	enc := s.primary
	if format == FormatFallback {
		enc = s.fallback
	}

	return filepath.Join(s.dir, provider.SanitizeKey(symbol)+enc.Extension())
}

func (s *Store) Read(ctx context.Context, symbol string, start, end optional.Option[time.Time]) (types.TimeSeries, bool) {
	for _, format := range []Format{FormatPrimary, FormatFallback} {
		path := s.Path(symbol, format)
		if _, err := os.Stat(path); err != nil {
			continue
		}

		series, err := s.encoding(format).Decode(ctx, path, symbol)
		if err != nil {
			s.log.Warn("Failed to read cache entry",
				zap.String("symbol", symbol),
				zap.String("path", path),
				zap.Error(err),
			)

			continue
		}

		s.log.Debug("Cache hit", zap.String("symbol", symbol), zap.String("format", string(format)))

		return series.Window(start, end), true
	}

	return types.EmptyTimeSeries(symbol), false
}

func (s *Store) Write(ctx context.Context, symbol string, series types.TimeSeries) Format {
	lock := s.lock(symbol)
	lock.Lock()
	defer lock.Unlock()

	primaryErr := s.writeAtomic(ctx, FormatPrimary, symbol, series)
	if primaryErr == nil {
		s.removeStale(symbol, FormatFallback)
		return FormatPrimary
	}

	s.log.Warn("Primary cache write failed, falling back",
		zap.String("symbol", symbol),
		zap.Error(primaryErr),
	)

	fallbackErr := s.writeAtomic(ctx, FormatFallback, symbol, series)
	if fallbackErr == nil {
		s.removeStale(symbol, FormatPrimary)
		return FormatFallback
	}

	s.log.Error("Cache write failed",
		zap.String("symbol", symbol),
		zap.NamedError("primary", primaryErr),
		zap.NamedError("fallback", fallbackErr),
	)

	return FormatNone
}

func (s *Store) encoding(format Format) Encoding {
	if format == FormatFallback {
		return s.fallback
	}

	return s.primary
}

// writeAtomic writes to a temp file in the cache directory and renames it over the entry.
func (s *Store) writeAtomic(ctx context.Context, format Format, symbol string, series types.TimeSeries) error {
	path := s.Path(symbol, format)
	tmp := path + ".tmp-" + uuid.NewString()

	if err := s.encoding(format).Encode(ctx, tmp, series); err != nil {
		_ = os.Remove(tmp)
		return err
	}

	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return errors.Wrapf(errors.ErrCodeCacheWriteFailed, err, "failed to move cache entry into place for %s", symbol)
	}

	return nil
}

func (s *Store) removeStale(symbol string, format Format) {
	path := s.Path(symbol, format)

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.log.Warn("Failed to remove stale cache entry", zap.String("path", path), zap.Error(err))
	}
}

func (s *Store) lock(symbol string) *sync.Mutex {
	l, _ := s.locks.LoadOrStore(provider.SanitizeKey(symbol), &sync.Mutex{})

	return l.(*sync.Mutex)
}
