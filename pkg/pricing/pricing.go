package pricing

import (
	"github.com/tollgate-ai/tollgate/pkg/models"
)

// FallbackModelID names the pricing tier applied to model ids not present in
// the table. Unknown models are billed at this tier rather than rejected.
const FallbackModelID = "claude-3-haiku"

// defaultModels holds per-million-token USD prices for known models, based on
// published provider rates.
var defaultModels = map[string]models.ModelPricing{
	"claude-3-haiku":    {ModelID: "claude-3-haiku", InputPerMillion: 0.25, OutputPerMillion: 1.25},
	"claude-3-5-haiku":  {ModelID: "claude-3-5-haiku", InputPerMillion: 0.80, OutputPerMillion: 4.00},
	"claude-3-5-sonnet": {ModelID: "claude-3-5-sonnet", InputPerMillion: 3.00, OutputPerMillion: 15.00},
	"claude-sonnet-4":   {ModelID: "claude-sonnet-4", InputPerMillion: 3.00, OutputPerMillion: 15.00},
	"gpt-4o":            {ModelID: "gpt-4o", InputPerMillion: 2.50, OutputPerMillion: 10.00},
	"gpt-4o-mini":       {ModelID: "gpt-4o-mini", InputPerMillion: 0.15, OutputPerMillion: 0.60},
}

// Table maps model ids to prices. A Table is immutable after construction
// and safe for concurrent use.
type Table struct {
	models   map[string]models.ModelPricing
	fallback models.ModelPricing
}

// Default returns a Table with the built-in prices.
func Default() *Table {
	return New(nil)
}

// New returns a Table with the built-in prices plus the given overrides.
// An override for an unknown model id adds a new entry; an override for
// FallbackModelID also moves the fallback tier.
func New(overrides []models.ModelPricing) *Table {
	m := make(map[string]models.ModelPricing, len(defaultModels)+len(overrides))
	for id, p := range defaultModels {
		m[id] = p
	}
	for _, p := range overrides {
		if p.ModelID == "" {
			continue
		}
		m[p.ModelID] = p
	}
	return &Table{models: m, fallback: m[FallbackModelID]}
}

// Lookup returns the pricing for a model id, or the fallback tier when the
// id is unknown.
func (t *Table) Lookup(modelID string) models.ModelPricing {
	if p, ok := t.models[modelID]; ok {
		return p
	}
	return t.fallback
}

// EstimateCost converts token counts to a USD estimate for the given model.
// Negative token counts pass through arithmetically and yield a negative
// cost; callers wanting stricter validation apply it themselves.
func (t *Table) EstimateCost(modelID string, inputTokens, outputTokens int) float64 {
	p := t.Lookup(modelID)
	return float64(inputTokens)/1_000_000*p.InputPerMillion +
		float64(outputTokens)/1_000_000*p.OutputPerMillion
}

// EstimateTokens converts text length to a rough token count using the
// ceil(len/4) heuristic. It is deliberately not a tokenizer.
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}
