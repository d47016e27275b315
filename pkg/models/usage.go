package models

import "time"

// UsageRecord is one ledger entry per completed LLM call. Records are
// immutable once written; the ledger is append-only and only bulk reset or
// export operate on the set as a whole.
type UsageRecord struct {
	ID            string    `json:"id"`
	Timestamp     time.Time `json:"timestamp"`
	ModelID       string    `json:"model_id"`
	InputTokens   int       `json:"input_tokens"`
	OutputTokens  int       `json:"output_tokens"`
	EstimatedCost float64   `json:"estimated_cost"`
	Operation     string    `json:"operation"`
	UserID        string    `json:"user_id,omitempty"`
	TicketID      string    `json:"ticket_id,omitempty"`
}

// PeriodUsage is a derived rollup of ledger records whose timestamps fall
// within one UTC calendar period. The same shape serves daily and monthly
// granularity; Period holds "2006-01-02" or "2006-01" accordingly. It is
// never persisted, only recomputed from the ledger on each query.
type PeriodUsage struct {
	Period            string           `json:"period"`
	TotalInputTokens  int64            `json:"total_input_tokens"`
	TotalOutputTokens int64            `json:"total_output_tokens"`
	TotalCost         float64          `json:"total_cost"`
	RequestCount      int64            `json:"request_count"`
	Operations        map[string]int64 `json:"operations"`
}

// CostStatistics combines the current rollups, the configured limits, and
// the most recent ledger activity for an administrative view.
type CostStatistics struct {
	DailyUsage   PeriodUsage   `json:"daily_usage"`
	MonthlyUsage PeriodUsage   `json:"monthly_usage"`
	Limits       CostLimits    `json:"limits"`
	RecentUsage  []UsageRecord `json:"recent_usage"`
}
