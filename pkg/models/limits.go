package models

// CostLimits is the account's spending and rate ceiling configuration.
// Absence of a persisted value is equivalent to the defaults.
type CostLimits struct {
	DailyLimitUSD       float64 `json:"daily_limit_usd" yaml:"daily_limit_usd"`
	MonthlyLimitUSD     float64 `json:"monthly_limit_usd" yaml:"monthly_limit_usd"`
	MaxTokensPerRequest int     `json:"max_tokens_per_request" yaml:"max_tokens_per_request"`
	MaxRequestsPerDay   int     `json:"max_requests_per_day" yaml:"max_requests_per_day"`
	MaxRequestsPerHour  int     `json:"max_requests_per_hour" yaml:"max_requests_per_hour"`
	IsFreeTierAccount   bool    `json:"is_free_tier_account" yaml:"is_free_tier_account"`
}

// DefaultCostLimits returns the conservative free-tier posture used whenever
// nothing is persisted or the stored value cannot be read.
func DefaultCostLimits() CostLimits {
	return CostLimits{
		DailyLimitUSD:       5.0,
		MonthlyLimitUSD:     50.0,
		MaxTokensPerRequest: 1000,
		MaxRequestsPerDay:   50,
		MaxRequestsPerHour:  10,
		IsFreeTierAccount:   true,
	}
}
