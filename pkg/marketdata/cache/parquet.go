package cache

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"

	"github.com/rxtech-lab/feedback-trader/internal/types"
	"github.com/rxtech-lab/feedback-trader/pkg/errors"
)

var barColumns = []string{"time", "open", "high", "low", "close", "adj_close", "volume"}

// ParquetEncoding stages bars in an in-memory DuckDB table and exports them with COPY.
type ParquetEncoding struct{}

func (ParquetEncoding) Extension() string {
	return ".parquet"
}

func (ParquetEncoding) Encode(ctx context.Context, path string, series types.TimeSeries) (err error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return errors.Wrap(errors.ErrCodeCacheWriteFailed, "failed to open DuckDB connection", err)
	}
	defer db.Close()

	_, err = db.ExecContext(ctx, `
		CREATE TABLE bars (
			time TIMESTAMP,
			open DOUBLE,
			high DOUBLE,
			low DOUBLE,
			close DOUBLE,
			adj_close DOUBLE,
			volume DOUBLE
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeCacheWriteFailed, "failed to create table", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(errors.ErrCodeCacheWriteFailed, "failed to begin transaction", err)
	}

	insert, _, err := squirrel.Insert("bars").
		Columns(barColumns...).
		Values(make([]any, len(barColumns))...).
		ToSql()
	if err != nil {
		_ = tx.Rollback()
		return errors.Wrap(errors.ErrCodeCacheWriteFailed, "failed to build insert", err)
	}

	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		_ = tx.Rollback()
		return errors.Wrap(errors.ErrCodeCacheWriteFailed, "failed to prepare statement", err)
	}
	defer stmt.Close()

	for _, bar := range series.Bars() {
		_, err = stmt.ExecContext(ctx,
			bar.Time,
			bar.Open,
			bar.High,
			bar.Low,
			bar.Close,
			nullable(bar.AdjClose),
			nullable(bar.Volume),
		)
		if err != nil {
			_ = tx.Rollback()
			return errors.Wrap(errors.ErrCodeCacheWriteFailed, "failed to insert bar", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrCodeCacheWriteFailed, "failed to commit transaction", err)
	}

	_, err = db.ExecContext(ctx, fmt.Sprintf(`COPY bars TO '%s' (FORMAT PARQUET)`, escapeLiteral(path)))
	if err != nil {
		return errors.Wrap(errors.ErrCodeCacheWriteFailed, "failed to export to Parquet", err)
	}

	return nil
}

func (ParquetEncoding) Decode(ctx context.Context, path string, symbol string) (types.TimeSeries, error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return types.EmptyTimeSeries(symbol), errors.Wrap(errors.ErrCodeCacheReadFailed, "failed to open DuckDB connection", err)
	}
	defer db.Close()

	createViewSQL := fmt.Sprintf(`CREATE VIEW cached_bars AS SELECT * FROM read_parquet('%s');`, escapeLiteral(path))
	if _, err = db.ExecContext(ctx, createViewSQL); err != nil {
		return types.EmptyTimeSeries(symbol), errors.Wrap(errors.ErrCodeCacheReadFailed, "failed to create view from parquet file", err)
	}

	query, args, err := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar).
		Select(barColumns...).
		From("cached_bars").
		OrderBy("time").
		ToSql()
	if err != nil {
		return types.EmptyTimeSeries(symbol), errors.Wrap(errors.ErrCodeCacheReadFailed, "failed to build SQL query", err)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return types.EmptyTimeSeries(symbol), errors.Wrap(errors.ErrCodeCacheReadFailed, "failed to query cached bars", err)
	}
	defer rows.Close()

	var bars []types.Bar

	for rows.Next() {
		var (
			bar      types.Bar
			adjClose sql.NullFloat64
			volume   sql.NullFloat64
		)

		if err := rows.Scan(&bar.Time, &bar.Open, &bar.High, &bar.Low, &bar.Close, &adjClose, &volume); err != nil {
			return types.EmptyTimeSeries(symbol), errors.Wrap(errors.ErrCodeCacheReadFailed, "failed to scan cached bar", err)
		}

		bar.AdjClose = fromNull(adjClose)
		bar.Volume = fromNull(volume)
		bars = append(bars, bar)
	}

	if err := rows.Err(); err != nil {
		return types.EmptyTimeSeries(symbol), errors.Wrap(errors.ErrCodeCacheReadFailed, "error iterating cached bars", err)
	}

	series, err := types.NewTimeSeries(symbol, bars)
	if err != nil {
		return types.EmptyTimeSeries(symbol), errors.Wrap(errors.ErrCodeCacheReadFailed, "corrupt cache entry", err)
	}

	return series, nil
}

func nullable(v optional.Option[float64]) sql.NullFloat64 {
	if v.IsNone() {
		return sql.NullFloat64{}
	}

	return sql.NullFloat64{Float64: v.Unwrap(), Valid: true}
}

func fromNull(v sql.NullFloat64) optional.Option[float64] {
	if !v.Valid {
		return optional.None[float64]()
	}

	return optional.Some(v.Float64)
}

func escapeLiteral(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
