package provider

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/rxtech-lab/feedback-trader/internal/logger"
	"github.com/rxtech-lab/feedback-trader/internal/types"
	"github.com/rxtech-lab/feedback-trader/pkg/errors"
)

// OptionCSVBase overrides the adapter's base directory for one request.
const OptionCSVBase = "csv_base"

type column int

const (
	columnOpen column = iota
	columnHigh
	columnLow
	columnClose
	columnAdjClose
	columnVolume
)

var columnSynonyms = map[string]column{
	"open":        columnOpen,
	"open_price":  columnOpen,
	"high":        columnHigh,
	"high_price":  columnHigh,
	"low":         columnLow,
	"low_price":   columnLow,
	"close":       columnClose,
	"close_price": columnClose,
	"price":       columnClose,
	"adj close":   columnAdjClose,
	"adj_close":   columnAdjClose,
	"adjclose":    columnAdjClose,
	"volume":      columnVolume,
	"vol":         columnVolume,
}

var timeColumns = []string{"date", "time", "timestamp", "datetime"}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
}

// LocalAdapter reads bars from csv or parquet files on disk.
type LocalAdapter struct {
	baseDir string
	log     *logger.Logger
}

func NewLocalAdapter(baseDir string, log *logger.Logger) *LocalAdapter {
	if log == nil {
		log = logger.NewNop()
	}

	return &LocalAdapter{baseDir: baseDir, log: log}
}

func (a *LocalAdapter) Name() Source {
	return SourceCSV
}

func (a *LocalAdapter) Fetch(ctx context.Context, req FetchRequest) (types.TimeSeries, error) {
	path, err := a.resolve(req)
	if err != nil {
		return types.EmptyTimeSeries(req.Symbol), err
	}

	a.log.Debug("Reading local market data", zap.String("symbol", req.Symbol), zap.String("path", path))

	bars, err := readBars(ctx, path)
	if err != nil {
		return types.EmptyTimeSeries(req.Symbol), classify(SourceCSV, req.Symbol, err)
	}

	filtered := bars[:0]

	for _, bar := range bars {
		if inRange(bar.Time, req) {
			filtered = append(filtered, bar)
		}
	}

	series, err := types.NewTimeSeries(req.Symbol, filtered)
	if err != nil {
		return types.EmptyTimeSeries(req.Symbol), errors.Wrapf(errors.ErrCodeAdapterInternal, err, "invalid rows in %s", path)
	}

	return series, nil
}

// resolve treats symbols ending in .csv or .parquet as paths, otherwise looks
// for <base>/<symbol>.csv then <base>/<symbol>.parquet.
func (a *LocalAdapter) resolve(req FetchRequest) (string, error) {
	lower := strings.ToLower(req.Symbol)
	if strings.HasSuffix(lower, ".csv") || strings.HasSuffix(lower, ".parquet") {
		if _, err := os.Stat(req.Symbol); err != nil {
			return "", errors.Wrapf(errors.ErrCodeDataNotFound, err, "data file %s not found", req.Symbol)
		}

		return req.Symbol, nil
	}

	base := a.baseDir
	if override, ok := req.Options[OptionCSVBase]; ok && override != "" {
		base = override
	}

	name := SanitizeKey(req.Symbol)
	for _, ext := range []string{".csv", ".parquet"} {
		candidate := filepath.Join(base, name+ext)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	return "", errors.Newf(errors.ErrCodeDataNotFound, "no csv or parquet file for %s in %s", req.Symbol, base)
}

// SanitizeKey makes a symbol safe to use as a file name.
func SanitizeKey(symbol string) string {
	return strings.NewReplacer("/", "_", "\\", "_", ":", "_").Replace(symbol)
}

func readBars(ctx context.Context, path string) ([]types.Bar, error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeAdapterInternal, "failed to open DuckDB connection", err)
	}
	defer db.Close()

	reader := "read_csv_auto"
	if strings.HasSuffix(strings.ToLower(path), ".parquet") {
		reader = "read_parquet"
	}

	createViewSQL := fmt.Sprintf(`CREATE VIEW source_data AS SELECT * FROM %s('%s');`, reader, escapeLiteral(path))
	if _, err := db.ExecContext(ctx, createViewSQL); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeAdapterInternal, err, "failed to read %s", path)
	}

	query, args, err := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar).
		Select("*").
		From("source_data").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeAdapterInternal, "failed to build SQL query", err)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeAdapterInternal, err, "failed to query %s", path)
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeAdapterInternal, "failed to read columns", err)
	}

	layout, err := mapColumns(names)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeAdapterInternal, err, "unsupported schema in %s", path)
	}

	var bars []types.Bar

	values := make([]any, len(names))
	pointers := make([]any, len(names))

	for i := range values {
		pointers[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(pointers...); err != nil {
			return nil, errors.Wrap(errors.ErrCodeAdapterInternal, "failed to scan row", err)
		}

		bar, err := layout.bar(values)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeAdapterInternal, err, "bad row in %s", path)
		}

		bars = append(bars, bar)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeAdapterInternal, "error iterating rows", err)
	}

	return bars, nil
}

type columnLayout struct {
	timeIndex int
	indexes   map[column]int
}

func mapColumns(names []string) (columnLayout, error) {
	layout := columnLayout{timeIndex: -1, indexes: make(map[column]int)}

	normalized := make([]string, len(names))
	for i, name := range names {
		normalized[i] = strings.ToLower(strings.TrimSpace(name))
	}

	for _, candidate := range timeColumns {
		for i, name := range normalized {
			if name == candidate && layout.timeIndex < 0 {
				layout.timeIndex = i
			}
		}
	}

	if layout.timeIndex < 0 && len(names) > 0 {
		layout.timeIndex = 0
	}

	for i, name := range normalized {
		if i == layout.timeIndex {
			continue
		}

		if col, ok := columnSynonyms[name]; ok {
			if _, seen := layout.indexes[col]; !seen {
				layout.indexes[col] = i
			}
		}
	}

	for _, required := range []column{columnOpen, columnHigh, columnLow, columnClose} {
		if _, ok := layout.indexes[required]; !ok {
			return layout, fmt.Errorf("missing OHLC columns, have %v", names)
		}
	}

	return layout, nil
}

func (l columnLayout) bar(values []any) (types.Bar, error) {
	ts, err := toTime(values[l.timeIndex])
	if err != nil {
		return types.Bar{}, err
	}

	bar := types.Bar{Time: ts, AdjClose: optional.None[float64](), Volume: optional.None[float64]()}

	for col, idx := range l.indexes {
		v, ok := toFloat(values[idx])
		if !ok {
			if col == columnAdjClose || col == columnVolume {
				continue
			}

			return types.Bar{}, fmt.Errorf("non numeric value %v", values[idx])
		}

		switch col {
		case columnOpen:
			bar.Open = v
		case columnHigh:
			bar.High = v
		case columnLow:
			bar.Low = v
		case columnClose:
			bar.Close = v
		case columnAdjClose:
			bar.AdjClose = optional.Some(v)
		case columnVolume:
			bar.Volume = optional.Some(v)
		}
	}

	return bar, nil
}

func toTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case string:
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, strings.TrimSpace(t)); err == nil {
				return parsed.UTC(), nil
			}
		}

		if n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64); err == nil {
			return fromEpoch(n), nil
		}

		return time.Time{}, fmt.Errorf("unrecognised time %q", t)
	case int64:
		return fromEpoch(t), nil
	case int32:
		return fromEpoch(int64(t)), nil
	case int:
		return fromEpoch(int64(t)), nil
	case float64:
		return fromEpoch(int64(t)), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported time value %v (%T)", v, v)
	}
}

// fromEpoch reads values past the year 5138 in seconds as milliseconds.
func fromEpoch(n int64) time.Time {
	if n > 1e11 || n < -1e11 {
		return time.UnixMilli(n).UTC()
	}

	return time.Unix(n, 0).UTC()
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case int16:
		return float64(n), true
	case int8:
		return float64(n), true
	case int:
		return float64(n), true
	case uint64:
		return float64(n), true
	case uint32:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	case interface{ Float64() float64 }:
		return n.Float64(), true
	default:
		return 0, false
	}
}

func escapeLiteral(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
