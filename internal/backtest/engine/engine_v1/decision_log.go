package engine

import (
	"database/sql"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/rxtech-lab/feedback-trader/internal/logger"
	"github.com/rxtech-lab/feedback-trader/internal/types"
	"github.com/rxtech-lab/feedback-trader/pkg/errors"
	"go.uber.org/zap"
)

// DecisionLog keeps the strategy decisions dropped during a run in an in-memory DuckDB table.
type DecisionLog struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

func NewDecisionLog(log *logger.Logger) (*DecisionLog, error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to open decision log", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()

		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to open decision log", err)
	}

	d := &DecisionLog{
		db:     db,
		logger: log,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}

	if err := d.initialize(); err != nil {
		db.Close()

		return nil, err
	}

	return d, nil
}

func (d *DecisionLog) initialize() error {
	_, err := d.db.Exec(`
		CREATE SEQUENCE IF NOT EXISTS decision_id_seq;
		CREATE TABLE IF NOT EXISTS decisions (
			id INTEGER PRIMARY KEY,
			time TIMESTAMP,
			strategy TEXT,
			error TEXT
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to create decisions table", err)
	}

	return nil
}

// Record stores one dropped decision.
func (d *DecisionLog) Record(entry types.DroppedDecision) error {
	var id int64
	if err := d.db.QueryRow("SELECT nextval('decision_id_seq')").Scan(&id); err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to get next decision id", err)
	}

	_, err := d.sq.Insert("decisions").
		Columns("id", "time", "strategy", "error").
		Values(id, entry.Time, entry.Strategy, entry.Error).
		RunWith(d.db).
		Exec()
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to insert dropped decision", err)
	}

	d.logger.Debug("Dropped decision recorded", zap.Int64("id", id), zap.String("strategy", entry.Strategy))

	return nil
}

// Entries returns every recorded decision in insertion order.
func (d *DecisionLog) Entries() ([]types.DroppedDecision, error) {
	rows, err := d.sq.Select("time", "strategy", "error").
		From("decisions").
		OrderBy("id ASC").
		RunWith(d.db).
		Query()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query dropped decisions", err)
	}
	defer rows.Close()

	var entries []types.DroppedDecision

	for rows.Next() {
		var entry types.DroppedDecision
		if err := rows.Scan(&entry.Time, &entry.Strategy, &entry.Error); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan dropped decision", err)
		}

		entry.Time = entry.Time.UTC()
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to read dropped decisions", err)
	}

	return entries, nil
}

func (d *DecisionLog) Close() error {
	return d.db.Close()
}
