package models

// ModelPricing defines per-million-token prices in USD for one model.
type ModelPricing struct {
	ModelID          string  `json:"model" yaml:"model"`
	InputPerMillion  float64 `json:"input_per_million" yaml:"input_per_million"`
	OutputPerMillion float64 `json:"output_per_million" yaml:"output_per_million"`
}
