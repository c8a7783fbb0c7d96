package search

import (
	"context"
	"strings"

	"core/internal/errs"
	"core/internal/model"
)

// EmbeddingProvider turns text into a fixed-dimension vector.
type EmbeddingProvider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex is a nearest-neighbor search over recipe embeddings with an
// optional scalar-array filter expression. Results are ranked descending by
// similarity; an absent or empty collection yields an empty slice, not an
// error.
type VectorIndex interface {
	Search(ctx context.Context, vector []float32, k int, filter string) ([]model.VectorHit, error)
}

// RecipeStore is the relational query surface the strategies need.
type RecipeStore interface {
	// FindByIDs returns enriched recipes from the candidate id set that
	// also satisfy the intent's relational constraints. Output order is
	// not significant; callers re-rank.
	FindByIDs(ctx context.Context, ids []int64, intent *model.Intent, userID string) ([]model.RankedRecipe, error)

	// FindWithFilters returns enriched recipes matching the full intent,
	// ordered by ascending total time then name, limited to intent's
	// limit.
	FindWithFilters(ctx context.Context, intent *model.Intent, userID string) ([]model.RankedRecipe, error)
}

// Executor runs a strategy for an intent and reports which strategy
// actually executed. The coordinator's fallback path may substitute its own
// strategy choice.
type Executor interface {
	Execute(ctx context.Context, strategy Strategy, intent *model.Intent, userID string) ([]model.RankedRecipe, Strategy, error)
}

// minOversample is the floor on hybrid candidate counts, leaving headroom
// for the relational narrowing step.
const minOversample = 50

// Searcher executes the three retrieval strategies against a fixed
// provider/index/store triple.
type Searcher struct {
	embedder   EmbeddingProvider
	index      VectorIndex
	store      RecipeStore
	compiler   FilterCompiler
	oversample int
}

// NewSearcher creates a searcher. oversample is the minimum candidate count
// requested from the vector index; zero selects the default.
func NewSearcher(embedder EmbeddingProvider, index VectorIndex, store RecipeStore, oversample int) *Searcher {
	if oversample <= 0 {
		oversample = minOversample
	}
	return &Searcher{
		embedder:   embedder,
		index:      index,
		store:      store,
		oversample: oversample,
	}
}

// Execute dispatches to the strategy implementation.
func (s *Searcher) Execute(ctx context.Context, strategy Strategy, intent *model.Intent, userID string) ([]model.RankedRecipe, Strategy, error) {
	var (
		recipes []model.RankedRecipe
		err     error
	)
	switch strategy {
	case StrategySemantic:
		recipes, err = s.semantic(ctx, intent, userID)
	case StrategyDeterministic:
		recipes, err = s.deterministic(ctx, intent, userID)
	case StrategyHybrid:
		recipes, err = s.hybrid(ctx, intent, userID)
	default:
		err = &errs.ValidationError{Field: "strategy", Reason: strategy.String()}
	}
	return recipes, strategy, err
}

// semantic ranks purely by vector similarity to the mood query. Ingredient
// constraints are pushed into the vector filter; time and difficulty are
// applied in the relational enrichment step.
func (s *Searcher) semantic(ctx context.Context, intent *model.Intent, userID string) ([]model.RankedRecipe, error) {
	if strings.TrimSpace(intent.SemanticQuery) == "" {
		return nil, &errs.ValidationError{Field: "semantic_query", Reason: "semantic search requires a query"}
	}

	vec, err := s.embedder.Embed(ctx, intent.SemanticQuery)
	if err != nil {
		return nil, err
	}

	limit := intent.EffectiveLimit()
	k := limit
	if s.oversample > k {
		k = s.oversample
	}

	hits, err := s.index.Search(ctx, vec, k, s.compiler.VectorFilter(intent))
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return []model.RankedRecipe{}, nil
	}

	// Residual relational constraints for the semantic path: time and
	// difficulty only. Ingredient constraints were already applied by the
	// vector filter.
	residual := &model.Intent{
		MaxTimeMinutes: intent.MaxTimeMinutes,
		Difficulty:     intent.Difficulty,
		Limit:          limit,
	}
	return s.enrichInVectorOrder(ctx, hits, residual, userID, limit)
}

// deterministic ranks purely by relational constraints: ascending total
// time, then name. It never touches the embedding provider or vector index
// and works fully offline from them.
func (s *Searcher) deterministic(ctx context.Context, intent *model.Intent, userID string) ([]model.RankedRecipe, error) {
	recipes, err := s.store.FindWithFilters(ctx, intent, userID)
	if err != nil {
		return nil, err
	}
	if recipes == nil {
		recipes = []model.RankedRecipe{}
	}
	if limit := intent.EffectiveLimit(); len(recipes) > limit {
		recipes = recipes[:limit]
	}
	return recipes, nil
}

// hybrid guarantees hard constraints and ranks by the mood query. The
// vector index is oversampled to leave headroom for relational narrowing.
func (s *Searcher) hybrid(ctx context.Context, intent *model.Intent, userID string) ([]model.RankedRecipe, error) {
	if strings.TrimSpace(intent.SemanticQuery) == "" {
		return nil, &errs.ValidationError{Field: "semantic_query", Reason: "hybrid search requires a query"}
	}

	vec, err := s.embedder.Embed(ctx, intent.SemanticQuery)
	if err != nil {
		return nil, err
	}

	limit := intent.EffectiveLimit()
	k := 2 * limit
	if k < s.oversample {
		k = s.oversample
	}

	hits, err := s.index.Search(ctx, vec, k, s.compiler.VectorFilter(intent))
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return []model.RankedRecipe{}, nil
	}

	// The full intent narrows the candidate set: time, difficulty,
	// cuisine, price, macronutrients, seasonality, and the ingredient
	// rules once more relationally.
	return s.enrichInVectorOrder(ctx, hits, intent, userID, limit)
}

// enrichInVectorOrder loads the candidate recipes relationally, then walks
// the hits again so output order is strictly vector-index order. Candidates
// the relational step excluded are dropped; the result is truncated to
// limit.
func (s *Searcher) enrichInVectorOrder(ctx context.Context, hits []model.VectorHit, intent *model.Intent, userID string, limit int) ([]model.RankedRecipe, error) {
	ids := make([]int64, len(hits))
	for i, h := range hits {
		ids[i] = h.RecipeID
	}

	recipes, err := s.store.FindByIDs(ctx, ids, intent, userID)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]model.RankedRecipe, len(recipes))
	for _, r := range recipes {
		byID[r.ID] = r
	}

	out := make([]model.RankedRecipe, 0, limit)
	for _, h := range hits {
		r, ok := byID[h.RecipeID]
		if !ok {
			continue
		}
		r.Similarity = h.Similarity
		r.Distance = h.Distance
		out = append(out, r)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}
