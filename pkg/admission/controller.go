package admission

import (
	"context"
	"log/slog"
	"time"

	"github.com/tollgate-ai/tollgate/pkg/ledger"
	"github.com/tollgate-ai/tollgate/pkg/limits"
	"github.com/tollgate-ai/tollgate/pkg/metrics"
	"github.com/tollgate-ai/tollgate/pkg/models"
	"github.com/tollgate-ai/tollgate/pkg/pricing"
	"github.com/tollgate-ai/tollgate/pkg/usage"
)

// Block reasons, in the priority order they are checked. Exactly one reason
// is ever returned per call.
const (
	ReasonMaxTokens      = "Request exceeds max tokens per request"
	ReasonDailyCost      = "Daily cost limit exceeded"
	ReasonMonthlyCost    = "Monthly cost limit exceeded"
	ReasonDailyRequests  = "Daily request limit exceeded"
	ReasonHourlyRequests = "Hourly request limit exceeded"
)

// Controller decides whether a prospective LLM call may proceed. It is
// read-only over the ledger and limits: the caller records actual usage
// after a successful call, and must not call the model when blocked. A
// blocked decision is an immediate refusal; any retry policy belongs to the
// caller.
type Controller struct {
	pricing *pricing.Table
	ledger  ledger.Ledger
	limits  limits.Store
	agg     *usage.Aggregator
	log     *slog.Logger
	metrics *metrics.Metrics
}

// New creates a Controller over the given stores. logger may be nil for
// slog.Default(); m may be nil to skip instrumentation.
func New(t *pricing.Table, l ledger.Ledger, s limits.Store, logger *slog.Logger, m *metrics.Metrics) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		pricing: t,
		ledger:  l,
		limits:  s,
		agg:     usage.New(l, s),
		log:     logger,
		metrics: m,
	}
}

// ShouldBlockRequest evaluates the limit checks in fixed priority order:
// per-request token ceiling, daily cost, monthly cost, daily request count,
// trailing-hour request count. The first matching condition wins.
//
// Unreadable usage state degrades to zero usage (the check passes), so a
// broken ledger can never be the reason a user-facing feature fails.
func (c *Controller) ShouldBlockRequest(ctx context.Context, modelID string, inputTokens, outputTokens int, operation string) models.Decision {
	est := c.pricing.EstimateCost(modelID, inputTokens, outputTokens)

	lim, err := c.limits.Load(ctx)
	if err != nil {
		c.degraded("load limits", err)
	}

	if inputTokens+outputTokens > lim.MaxTokensPerRequest {
		return c.block(operation, ReasonMaxTokens, "max_tokens_per_request", est)
	}

	daily, err := c.agg.Daily(ctx, time.Time{})
	if err != nil {
		c.degraded("daily usage", err)
	}
	if daily.TotalCost+est > lim.DailyLimitUSD {
		return c.block(operation, ReasonDailyCost, "daily_cost", est)
	}

	monthly, err := c.agg.Monthly(ctx, time.Time{})
	if err != nil {
		c.degraded("monthly usage", err)
	}
	if monthly.TotalCost+est > lim.MonthlyLimitUSD {
		return c.block(operation, ReasonMonthlyCost, "monthly_cost", est)
	}

	if daily.RequestCount >= int64(lim.MaxRequestsPerDay) {
		return c.block(operation, ReasonDailyRequests, "daily_requests", est)
	}

	hourly, err := c.ledger.CountSince(ctx, time.Now().UTC().Add(-time.Hour))
	if err != nil {
		c.degraded("hourly count", err)
	}
	if hourly >= int64(lim.MaxRequestsPerHour) {
		return c.block(operation, ReasonHourlyRequests, "hourly_requests", est)
	}

	c.metrics.ObserveDecision(operation, "", false)
	return models.Decision{EstimatedCost: est}
}

func (c *Controller) block(operation, reason, limit string, est float64) models.Decision {
	c.metrics.ObserveDecision(operation, limit, true)
	c.log.Info("request blocked",
		slog.String("operation", operation),
		slog.String("reason", reason),
		slog.Float64("estimated_cost", est),
	)
	return models.Decision{Blocked: true, Reason: reason, EstimatedCost: est}
}

func (c *Controller) degraded(op string, err error) {
	c.metrics.ObserveStoreFailure(op)
	c.log.Warn("usage state unreadable, treating as empty",
		slog.String("op", op),
		slog.Any("error", err),
	)
}
