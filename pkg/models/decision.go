package models

// Decision is the outcome of an admission check. A blocked decision is an
// ordinary business result, not an error: the caller shows a fallback to the
// user and must not invoke the model. EstimatedCost is populated either way.
type Decision struct {
	Blocked       bool    `json:"blocked"`
	Reason        string  `json:"reason,omitempty"`
	EstimatedCost float64 `json:"estimated_cost"`
}
