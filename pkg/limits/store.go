package limits

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/tollgate-ai/tollgate/pkg/models"
)

// Store persists the account's CostLimits. There is one logical value per
// installation; saving fully replaces it and loading an absent or unreadable
// value yields the documented defaults.
type Store interface {
	// Load returns the persisted limits. The returned value is always
	// usable: on a missing or corrupt store it equals
	// models.DefaultCostLimits() and the error describes what degraded.
	Load(ctx context.Context) (models.CostLimits, error)
	// Save persists the given limits, replacing any prior value.
	Save(ctx context.Context, limits models.CostLimits) error
	// Close releases resources.
	Close() error
}

// SQLiteStore implements Store with a single-row SQLite table.
type SQLiteStore struct {
	db *sql.DB
}

const createLimitsTable = `
CREATE TABLE IF NOT EXISTS cost_limits (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	daily_limit_usd REAL NOT NULL,
	monthly_limit_usd REAL NOT NULL,
	max_tokens_per_request INTEGER NOT NULL,
	max_requests_per_day INTEGER NOT NULL,
	max_requests_per_hour INTEGER NOT NULL,
	is_free_tier INTEGER NOT NULL
);
`

// Open creates a SQLiteStore and runs auto-migration. The path may point at
// the same database file as the ledger; the stores stay independent tables.
func Open(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open limits db: %w", err)
	}

	if _, err := db.Exec(createLimitsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate limits db: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Load returns the persisted limits, or the defaults when nothing is stored
// or the stored row cannot be read. It never fails the caller: the error is
// informational and the limits are always valid.
func (s *SQLiteStore) Load(ctx context.Context) (models.CostLimits, error) {
	var l models.CostLimits
	err := s.db.QueryRowContext(ctx,
		`SELECT daily_limit_usd, monthly_limit_usd, max_tokens_per_request,
		        max_requests_per_day, max_requests_per_hour, is_free_tier
		 FROM cost_limits WHERE id = 1`,
	).Scan(&l.DailyLimitUSD, &l.MonthlyLimitUSD, &l.MaxTokensPerRequest,
		&l.MaxRequestsPerDay, &l.MaxRequestsPerHour, &l.IsFreeTierAccount)
	if errors.Is(err, sql.ErrNoRows) {
		return models.DefaultCostLimits(), nil
	}
	if err != nil {
		return models.DefaultCostLimits(), fmt.Errorf("load cost limits: %w", err)
	}
	return l, nil
}

// Save persists the given limits, fully replacing any prior value.
func (s *SQLiteStore) Save(ctx context.Context, limits models.CostLimits) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO cost_limits (id, daily_limit_usd, monthly_limit_usd, max_tokens_per_request,
		                          max_requests_per_day, max_requests_per_hour, is_free_tier)
		 VALUES (1, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   daily_limit_usd = excluded.daily_limit_usd,
		   monthly_limit_usd = excluded.monthly_limit_usd,
		   max_tokens_per_request = excluded.max_tokens_per_request,
		   max_requests_per_day = excluded.max_requests_per_day,
		   max_requests_per_hour = excluded.max_requests_per_hour,
		   is_free_tier = excluded.is_free_tier`,
		limits.DailyLimitUSD, limits.MonthlyLimitUSD, limits.MaxTokensPerRequest,
		limits.MaxRequestsPerDay, limits.MaxRequestsPerHour, limits.IsFreeTierAccount,
	)
	if err != nil {
		return fmt.Errorf("save cost limits: %w", err)
	}
	return nil
}

// Close releases the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
