package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tollgate-ai/tollgate/pkg/models"
)

// Ledger is the append/read store of usage records. Appends are atomic at
// the storage layer, so concurrent writers never clobber each other, and
// reads observe a consistent snapshot relative to in-flight writes.
type Ledger interface {
	// Append durably adds one record to the ledger.
	Append(ctx context.Context, rec models.UsageRecord) error
	// All returns every record, ordered by timestamp ascending.
	All(ctx context.Context) ([]models.UsageRecord, error)
	// Between returns records with start <= timestamp < end, ordered by
	// timestamp ascending. A zero bound is unbounded on that side.
	Between(ctx context.Context, start, end time.Time) ([]models.UsageRecord, error)
	// Recent returns the n most recently timestamped records, newest first.
	Recent(ctx context.Context, n int) ([]models.UsageRecord, error)
	// CountSince returns the number of records with timestamp >= since.
	CountSince(ctx context.Context, since time.Time) (int64, error)
	// Rollup folds records with start <= timestamp < end into a PeriodUsage
	// (Period label left empty for the caller to fill).
	Rollup(ctx context.Context, start, end time.Time) (models.PeriodUsage, error)
	// Reset irreversibly clears the ledger.
	Reset(ctx context.Context) error
	// Close releases resources.
	Close() error
}

// SQLiteLedger implements Ledger with a SQLite database. WAL journaling and
// a busy timeout make concurrent single-row INSERTs safe without a
// read-modify-write of the full record set.
type SQLiteLedger struct {
	db *sql.DB
}

const createTable = `
CREATE TABLE IF NOT EXISTS usage_records (
	id TEXT PRIMARY KEY,
	ts DATETIME NOT NULL,
	model_id TEXT NOT NULL,
	input_tokens INTEGER NOT NULL,
	output_tokens INTEGER NOT NULL,
	estimated_cost REAL NOT NULL,
	operation TEXT NOT NULL,
	user_id TEXT NOT NULL DEFAULT '',
	ticket_id TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_usage_ts ON usage_records(ts);
CREATE INDEX IF NOT EXISTS idx_usage_operation ON usage_records(operation);
`

// Open creates a SQLiteLedger and runs auto-migration.
func Open(dbPath string) (*SQLiteLedger, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open ledger db: %w", err)
	}

	if _, err := db.Exec(createTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate ledger db: %w", err)
	}

	return &SQLiteLedger{db: db}, nil
}

// Append durably adds one record to the ledger.
func (l *SQLiteLedger) Append(ctx context.Context, rec models.UsageRecord) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO usage_records (id, ts, model_id, input_tokens, output_tokens, estimated_cost, operation, user_id, ticket_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Timestamp, rec.ModelID, rec.InputTokens, rec.OutputTokens,
		rec.EstimatedCost, rec.Operation, rec.UserID, rec.TicketID,
	)
	if err != nil {
		return fmt.Errorf("append usage record: %w", err)
	}
	return nil
}

// All returns every record, ordered by timestamp ascending.
func (l *SQLiteLedger) All(ctx context.Context) ([]models.UsageRecord, error) {
	return l.Between(ctx, time.Time{}, time.Time{})
}

// Between returns records with start <= ts < end, ordered by timestamp
// ascending. A zero bound is unbounded on that side.
func (l *SQLiteLedger) Between(ctx context.Context, start, end time.Time) ([]models.UsageRecord, error) {
	query := `SELECT id, ts, model_id, input_tokens, output_tokens, estimated_cost, operation, user_id, ticket_id
		 FROM usage_records`
	var conds []string
	var args []any
	if !start.IsZero() {
		conds = append(conds, "ts >= ?")
		args = append(args, start)
	}
	if !end.IsZero() {
		conds = append(conds, "ts < ?")
		args = append(args, end)
	}
	for i, c := range conds {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}
	query += " ORDER BY ts ASC"

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query usage records: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// Recent returns the n most recently timestamped records, newest first.
func (l *SQLiteLedger) Recent(ctx context.Context, n int) ([]models.UsageRecord, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, ts, model_id, input_tokens, output_tokens, estimated_cost, operation, user_id, ticket_id
		 FROM usage_records ORDER BY ts DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("query recent usage: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// CountSince returns the number of records with ts >= since.
func (l *SQLiteLedger) CountSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := l.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM usage_records WHERE ts >= ?`, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count usage records: %w", err)
	}
	return count, nil
}

// Rollup folds records with start <= ts < end into a PeriodUsage. The
// aggregate always equals the fold of the individual records in the window;
// nothing is cached or persisted.
func (l *SQLiteLedger) Rollup(ctx context.Context, start, end time.Time) (models.PeriodUsage, error) {
	u := models.PeriodUsage{Operations: make(map[string]int64)}

	err := l.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(input_tokens), 0), COALESCE(SUM(output_tokens), 0),
		        COALESCE(SUM(estimated_cost), 0), COUNT(*)
		 FROM usage_records WHERE ts >= ? AND ts < ?`,
		start, end,
	).Scan(&u.TotalInputTokens, &u.TotalOutputTokens, &u.TotalCost, &u.RequestCount)
	if err != nil {
		return u, fmt.Errorf("rollup totals: %w", err)
	}

	rows, err := l.db.QueryContext(ctx,
		`SELECT operation, COUNT(*) FROM usage_records
		 WHERE ts >= ? AND ts < ? GROUP BY operation`,
		start, end,
	)
	if err != nil {
		return u, fmt.Errorf("rollup operations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var op string
		var count int64
		if err := rows.Scan(&op, &count); err != nil {
			return u, fmt.Errorf("scan operation count: %w", err)
		}
		u.Operations[op] = count
	}
	return u, rows.Err()
}

// Reset clears the ledger. Irreversible.
func (l *SQLiteLedger) Reset(ctx context.Context) error {
	if _, err := l.db.ExecContext(ctx, `DELETE FROM usage_records`); err != nil {
		return fmt.Errorf("reset ledger: %w", err)
	}
	return nil
}

// Close releases the database connection.
func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}

func scanRecords(rows *sql.Rows) ([]models.UsageRecord, error) {
	var records []models.UsageRecord
	for rows.Next() {
		var r models.UsageRecord
		if err := rows.Scan(&r.ID, &r.Timestamp, &r.ModelID, &r.InputTokens, &r.OutputTokens,
			&r.EstimatedCost, &r.Operation, &r.UserID, &r.TicketID); err != nil {
			return nil, fmt.Errorf("scan usage record: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
