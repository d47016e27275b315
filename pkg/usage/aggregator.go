package usage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tollgate-ai/tollgate/pkg/ledger"
	"github.com/tollgate-ai/tollgate/pkg/limits"
	"github.com/tollgate-ai/tollgate/pkg/models"
)

// recentWindow is how many records CostStatistics includes as recent activity.
const recentWindow = 10

// Aggregator computes rollups and recent-activity views from the ledger on
// demand. It holds no state of its own and never writes.
type Aggregator struct {
	ledger ledger.Ledger
	limits limits.Store
}

// New creates an Aggregator over the given stores.
func New(l ledger.Ledger, s limits.Store) *Aggregator {
	return &Aggregator{ledger: l, limits: s}
}

// Daily returns the rollup for the UTC calendar day containing day. A zero
// day means today.
func (a *Aggregator) Daily(ctx context.Context, day time.Time) (models.PeriodUsage, error) {
	if day.IsZero() {
		day = time.Now().UTC()
	}
	day = day.UTC()
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)

	u, err := a.ledger.Rollup(ctx, start, end)
	u.Period = start.Format("2006-01-02")
	if err != nil {
		return u, fmt.Errorf("daily usage: %w", err)
	}
	return u, nil
}

// Monthly returns the rollup for the UTC calendar month containing month.
// A zero month means the current month.
func (a *Aggregator) Monthly(ctx context.Context, month time.Time) (models.PeriodUsage, error) {
	if month.IsZero() {
		month = time.Now().UTC()
	}
	month = month.UTC()
	start := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	u, err := a.ledger.Rollup(ctx, start, end)
	u.Period = start.Format("2006-01")
	if err != nil {
		return u, fmt.Errorf("monthly usage: %w", err)
	}
	return u, nil
}

// CostStatistics composes the daily and monthly rollups with the configured
// limits and the most recently timestamped records, newest first. Each part
// is computed independently so that one unreadable store still leaves the
// rest populated; the joined error reports anything that degraded.
func (a *Aggregator) CostStatistics(ctx context.Context) (models.CostStatistics, error) {
	var stats models.CostStatistics
	var errDaily, errMonthly, errLimits, errRecent error

	stats.DailyUsage, errDaily = a.Daily(ctx, time.Time{})
	stats.MonthlyUsage, errMonthly = a.Monthly(ctx, time.Time{})
	stats.Limits, errLimits = a.limits.Load(ctx)
	if stats.RecentUsage, errRecent = a.ledger.Recent(ctx, recentWindow); errRecent != nil {
		errRecent = fmt.Errorf("recent usage: %w", errRecent)
	}

	return stats, errors.Join(errDaily, errMonthly, errLimits, errRecent)
}
