package search

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lib/pq"

	"core/internal/model"
)

// FilterCompiler translates an Intent into executable filter fragments.
// It is stateless and has no side effects.
type FilterCompiler struct{}

// RelationalFilter is a compiled WHERE fragment with its positional
// parameters. NextIndex is the first unused parameter index, so callers can
// append further fragments to the same query.
type RelationalFilter struct {
	Where     string
	Args      []interface{}
	NextIndex int
}

// VectorFilter builds a scalar-array filter expression over the index's
// "ingredients" payload field. Only ingredient constraints participate;
// time/difficulty and the other relational constraints are applied after
// the vector step. Returns "" when no ingredient constraints exist.
func (FilterCompiler) VectorFilter(intent *model.Intent) string {
	clauses := make([]string, 0, len(intent.ExcludedIngredients)+len(intent.IncludedIngredients))
	for _, ing := range intent.ExcludedIngredients {
		clauses = append(clauses, fmt.Sprintf(`ingredients not_contains %s`, quoteFilterValue(ing)))
	}
	for _, ing := range intent.IncludedIngredients {
		clauses = append(clauses, fmt.Sprintf(`ingredients contains %s`, quoteFilterValue(ing)))
	}
	return strings.Join(clauses, " and ")
}

// quoteFilterValue canonicalizes and quotes an ingredient for the filter
// expression. Normalizing here keeps the compiler's output canonical even
// for callers that skip intent normalization.
func quoteFilterValue(v string) string {
	v = NormalizeIngredient(v)
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `"`, `\"`)
	return `"` + v + `"`
}

// macroColumns maps nutrient names to recipe columns. Unknown nutrient
// names compile to nothing.
var macroColumns = map[string]string{
	"protein":  "protein_grams",
	"carbs":    "carbs_grams",
	"fat":      "fat_grams",
	"calories": "calories",
}

// macroThresholds are the per-nutrient cutoffs for "high" and "low"
// preferences, per serving.
var macroThresholds = map[string]struct{ High, Low float64 }{
	"protein":  {High: 25, Low: 10},
	"carbs":    {High: 60, Low: 20},
	"fat":      {High: 25, Low: 10},
	"calories": {High: 700, Low: 400},
}

// RelationalFilter builds the relational predicate for an intent. The
// fragment is always anchored to published, non-deleted recipes, so an
// empty constraint set means "match everything published".
//
// Ingredient exclusion uses exact match on the normalized name. The
// inclusion rule requires at least one matching ingredient row.
func (FilterCompiler) RelationalFilter(intent *model.Intent, startIndex int) RelationalFilter {
	clauses := []string{"r.status = 'published'", "r.deleted_at IS NULL"}
	args := []interface{}{}
	argIndex := startIndex

	for _, ing := range intent.ExcludedIngredients {
		clauses = append(clauses, fmt.Sprintf(
			"NOT EXISTS (SELECT 1 FROM recipe_ingredients ri WHERE ri.recipe_id = r.id AND lower(btrim(ri.name)) = $%d)",
			argIndex))
		args = append(args, NormalizeIngredient(ing))
		argIndex++
	}

	if len(intent.IncludedIngredients) > 0 {
		placeholders := make([]string, 0, len(intent.IncludedIngredients))
		for _, ing := range intent.IncludedIngredients {
			placeholders = append(placeholders, fmt.Sprintf("$%d", argIndex))
			args = append(args, NormalizeIngredient(ing))
			argIndex++
		}
		clauses = append(clauses, fmt.Sprintf(
			"r.id IN (SELECT ri.recipe_id FROM recipe_ingredients ri WHERE lower(btrim(ri.name)) IN (%s))",
			strings.Join(placeholders, ", ")))
	}

	if intent.MaxTimeMinutes != nil {
		clauses = append(clauses, fmt.Sprintf(
			"COALESCE(r.prep_time_minutes, 0) + COALESCE(r.cook_time_minutes, 0) <= $%d", argIndex))
		args = append(args, *intent.MaxTimeMinutes)
		argIndex++
	}

	if intent.Difficulty != nil {
		clauses = append(clauses, fmt.Sprintf("lower(btrim(r.difficulty)) = lower(btrim($%d))", argIndex))
		args = append(args, *intent.Difficulty)
		argIndex++
	}

	if intent.Cuisine != nil {
		clauses = append(clauses, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM recipe_tags rt JOIN tags t ON t.id = rt.tag_id WHERE rt.recipe_id = r.id AND lower(btrim(t.name)) = lower(btrim($%d)))",
			argIndex))
		args = append(args, *intent.Cuisine)
		argIndex++
	}

	if intent.PriceMin != nil {
		clauses = append(clauses, fmt.Sprintf("r.price >= $%d", argIndex))
		args = append(args, *intent.PriceMin)
		argIndex++
	}
	if intent.PriceMax != nil {
		clauses = append(clauses, fmt.Sprintf("r.price <= $%d", argIndex))
		args = append(args, *intent.PriceMax)
		argIndex++
	}

	// Sorted nutrient order keeps parameter indices deterministic.
	if len(intent.Macronutrients) > 0 {
		nutrients := make([]string, 0, len(intent.Macronutrients))
		for name := range intent.Macronutrients {
			nutrients = append(nutrients, name)
		}
		sort.Strings(nutrients)
		for _, name := range nutrients {
			col, ok := macroColumns[strings.ToLower(name)]
			if !ok {
				continue
			}
			th := macroThresholds[strings.ToLower(name)]
			switch intent.Macronutrients[name] {
			case model.MacroHigh:
				clauses = append(clauses, fmt.Sprintf("r.%s >= $%d", col, argIndex))
				args = append(args, th.High)
				argIndex++
			case model.MacroLow:
				clauses = append(clauses, fmt.Sprintf("r.%s <= $%d", col, argIndex))
				args = append(args, th.Low)
				argIndex++
			}
		}
	}

	if len(intent.Seasonality) > 0 {
		clauses = append(clauses, fmt.Sprintf("r.seasons && $%d", argIndex))
		args = append(args, pq.Array(intent.Seasonality))
		argIndex++
	}

	return RelationalFilter{
		Where:     strings.Join(clauses, " AND "),
		Args:      args,
		NextIndex: argIndex,
	}
}
