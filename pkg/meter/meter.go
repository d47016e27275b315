// Package meter is the in-process boundary of the metering core. A host
// application opens one Meter per installation and uses it to admit
// prospective LLM calls, record what they actually spent, and serve the
// administrative surface (statistics, limits, reset, export).
//
// The Meter enforces the silent-degradation policy: no persistence failure
// is ever surfaced to the caller. Reads degrade to empty or default values,
// writes are logged and dropped, and every degraded call is tagged with a
// RecoverableError in the log so tests and operators can observe it.
package meter

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tollgate-ai/tollgate/pkg/admission"
	"github.com/tollgate-ai/tollgate/pkg/ledger"
	"github.com/tollgate-ai/tollgate/pkg/limits"
	"github.com/tollgate-ai/tollgate/pkg/metrics"
	"github.com/tollgate-ai/tollgate/pkg/models"
	"github.com/tollgate-ai/tollgate/pkg/pricing"
	"github.com/tollgate-ai/tollgate/pkg/usage"
)

// RecoverableError wraps a persistence failure that was degraded to a
// default value instead of being surfaced.
type RecoverableError struct {
	Op  string
	Err error
}

func (e *RecoverableError) Error() string {
	return "recovered " + e.Op + ": " + e.Err.Error()
}

func (e *RecoverableError) Unwrap() error { return e.Err }

// Meter composes the pricing table, usage ledger, limits store, aggregator,
// and admission controller behind the degradation policy.
type Meter struct {
	pricing *pricing.Table
	ledger  ledger.Ledger
	limits  limits.Store
	agg     *usage.Aggregator
	ctrl    *admission.Controller
	log     *slog.Logger
	metrics *metrics.Metrics
}

// Option configures a Meter.
type Option func(*Meter)

// WithLogger sets the logger used for degraded operations and block events.
func WithLogger(l *slog.Logger) Option {
	return func(m *Meter) { m.log = l }
}

// WithMetrics wires Prometheus collectors into the meter and controller.
func WithMetrics(mm *metrics.Metrics) Option {
	return func(m *Meter) { m.metrics = mm }
}

// WithPricing replaces the built-in pricing table.
func WithPricing(t *pricing.Table) Option {
	return func(m *Meter) { m.pricing = t }
}

// Open creates a Meter backed by SQLite stores at dbPath. The ledger and
// limits live in independent tables of the same database file.
func Open(dbPath string, opts ...Option) (*Meter, error) {
	lgr, err := ledger.Open(dbPath)
	if err != nil {
		return nil, err
	}
	st, err := limits.Open(dbPath)
	if err != nil {
		lgr.Close()
		return nil, err
	}
	return New(lgr, st, opts...), nil
}

// New creates a Meter over already-constructed stores. Tests substitute
// doubles here; production code normally uses Open.
func New(l ledger.Ledger, s limits.Store, opts ...Option) *Meter {
	m := &Meter{
		pricing: pricing.Default(),
		ledger:  l,
		limits:  s,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.agg = usage.New(l, s)
	m.ctrl = admission.New(m.pricing, l, s, m.log, m.metrics)
	return m
}

// ShouldBlockRequest runs the admission checks for a prospective call.
func (m *Meter) ShouldBlockRequest(ctx context.Context, modelID string, inputTokens, outputTokens int, operation string) models.Decision {
	return m.ctrl.ShouldBlockRequest(ctx, modelID, inputTokens, outputTokens, operation)
}

// EstimateAndAdmit estimates input tokens from raw prompt text, then runs
// the admission checks with the given expected output token count.
func (m *Meter) EstimateAndAdmit(ctx context.Context, modelID, prompt string, expectedOutputTokens int, operation string) models.Decision {
	return m.ctrl.ShouldBlockRequest(ctx, modelID, pricing.EstimateTokens(prompt), expectedOutputTokens, operation)
}

// RecordUsage appends one record with the actual token counts of a completed
// call. It never fails the caller: it runs after the model call has already
// succeeded, so a persistence failure is logged and dropped.
func (m *Meter) RecordUsage(ctx context.Context, modelID string, inputTokens, outputTokens int, operation, userID, ticketID string) {
	rec := models.UsageRecord{
		ID:            uuid.NewString(),
		Timestamp:     time.Now().UTC(),
		ModelID:       modelID,
		InputTokens:   inputTokens,
		OutputTokens:  outputTokens,
		EstimatedCost: m.pricing.EstimateCost(modelID, inputTokens, outputTokens),
		Operation:     operation,
		UserID:        userID,
		TicketID:      ticketID,
	}
	if err := m.ledger.Append(ctx, rec); err != nil {
		m.degraded("record usage", err)
		return
	}
	m.metrics.ObserveRecord(inputTokens, outputTokens, rec.EstimatedCost)
}

// DailyUsage returns the rollup for the UTC day containing day (zero means
// today). Unreadable state degrades to an empty rollup.
func (m *Meter) DailyUsage(ctx context.Context, day time.Time) models.PeriodUsage {
	u, err := m.agg.Daily(ctx, day)
	if err != nil {
		m.degraded("daily usage", err)
	}
	return u
}

// MonthlyUsage returns the rollup for the UTC month containing month (zero
// means the current month).
func (m *Meter) MonthlyUsage(ctx context.Context, month time.Time) models.PeriodUsage {
	u, err := m.agg.Monthly(ctx, month)
	if err != nil {
		m.degraded("monthly usage", err)
	}
	return u
}

// CostStatistics returns the administrative composite view.
func (m *Meter) CostStatistics(ctx context.Context) models.CostStatistics {
	stats, err := m.agg.CostStatistics(ctx)
	if err != nil {
		m.degraded("cost statistics", err)
	}
	return stats
}

// CostLimits returns the persisted limits, or the defaults when nothing
// usable is stored.
func (m *Meter) CostLimits(ctx context.Context) models.CostLimits {
	lim, err := m.limits.Load(ctx)
	if err != nil {
		m.degraded("load limits", err)
	}
	return lim
}

// SaveCostLimits persists the given limits, fully replacing the prior value.
// A persistence failure is logged and dropped; callers wanting confirmation
// re-read with CostLimits.
func (m *Meter) SaveCostLimits(ctx context.Context, lim models.CostLimits) {
	if err := m.limits.Save(ctx, lim); err != nil {
		m.degraded("save limits", err)
	}
}

// ResetUsage irreversibly clears the usage ledger.
func (m *Meter) ResetUsage(ctx context.Context) {
	if err := m.ledger.Reset(ctx); err != nil {
		m.degraded("reset ledger", err)
	}
}

// ExportUsage returns records whose UTC calendar date falls within
// [start, end] inclusive. A zero bound is unbounded on that side; two zero
// bounds return the whole ledger. The ledger is not mutated.
func (m *Meter) ExportUsage(ctx context.Context, start, end time.Time) []models.UsageRecord {
	var lo, hi time.Time
	if !start.IsZero() {
		s := start.UTC()
		lo = time.Date(s.Year(), s.Month(), s.Day(), 0, 0, 0, 0, time.UTC)
	}
	if !end.IsZero() {
		e := end.UTC()
		hi = time.Date(e.Year(), e.Month(), e.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	}
	records, err := m.ledger.Between(ctx, lo, hi)
	if err != nil {
		m.degraded("export usage", err)
		return nil
	}
	return records
}

// Close releases both stores.
func (m *Meter) Close() error {
	lerr := m.ledger.Close()
	serr := m.limits.Close()
	if lerr != nil {
		return lerr
	}
	return serr
}

func (m *Meter) degraded(op string, err error) {
	m.metrics.ObserveStoreFailure(op)
	m.log.Warn("persistence failure degraded to default",
		slog.Any("error", &RecoverableError{Op: op, Err: err}),
	)
}
