package model

// Macronutrient preference levels.
const (
	MacroHigh = "high"
	MacroLow  = "low"
)

// DefaultLimit is the result count used when the classifier extracts none.
const DefaultLimit = 10

// Intent is the structured representation of a parsed user request.
// Ingredient sets are normalized (lowercased, accent-stripped, trimmed)
// before strategy execution and the value is immutable from then on.
type Intent struct {
	SemanticQuery       string            `json:"semantic_query,omitempty"`
	ExcludedIngredients []string          `json:"excluded_ingredients,omitempty"`
	IncludedIngredients []string          `json:"included_ingredients,omitempty"`
	MaxTimeMinutes      *int              `json:"max_time_minutes,omitempty"`
	Difficulty          *string           `json:"difficulty,omitempty"`
	Cuisine             *string           `json:"cuisine,omitempty"`
	PriceMin            *float64          `json:"price_min,omitempty"`
	PriceMax            *float64          `json:"price_max,omitempty"`
	Macronutrients      map[string]string `json:"macronutrients,omitempty"`
	Seasonality         []string          `json:"seasonality,omitempty"`
	Limit               int               `json:"limit,omitempty"`
}

// EffectiveLimit returns the result limit, falling back to the default.
func (i *Intent) EffectiveLimit() int {
	if i.Limit > 0 {
		return i.Limit
	}
	return DefaultLimit
}

// Classification is the classifier's structured output: the chosen strategy
// name plus the extracted intent.
type Classification struct {
	Strategy string  `json:"strategy"`
	Intent   *Intent `json:"intent"`
}
