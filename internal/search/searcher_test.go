package search

import (
	"context"
	"errors"
	"sort"
	"testing"

	"core/internal/errs"
	"core/internal/model"
)

type fakeEmbedder struct {
	vector []float32
	err    error
	calls  int
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.vector, nil
}

type fakeIndex struct {
	hits    []model.VectorHit
	err     error
	calls   int
	lastK   int
	lastFlt string
}

func (f *fakeIndex) Search(ctx context.Context, vector []float32, k int, filter string) ([]model.VectorHit, error) {
	f.calls++
	f.lastK = k
	f.lastFlt = filter
	if f.err != nil {
		return nil, f.err
	}
	return f.hits, nil
}

// fixtureStore filters an in-memory recipe list with the same semantics the
// SQL filter compiles to.
type fixtureStore struct {
	recipes     []fixtureRecipe
	findByIDs   int
	findFilters int
}

type fixtureRecipe struct {
	id          int64
	name        string
	totalTime   int
	difficulty  string
	ingredients []string
}

func (s *fixtureStore) matches(r fixtureRecipe, intent *model.Intent) bool {
	for _, excluded := range intent.ExcludedIngredients {
		for _, ing := range r.ingredients {
			if NormalizeIngredient(ing) == excluded {
				return false
			}
		}
	}
	if len(intent.IncludedIngredients) > 0 {
		found := false
		for _, included := range intent.IncludedIngredients {
			for _, ing := range r.ingredients {
				if NormalizeIngredient(ing) == included {
					found = true
				}
			}
		}
		if !found {
			return false
		}
	}
	if intent.MaxTimeMinutes != nil && r.totalTime > *intent.MaxTimeMinutes {
		return false
	}
	if intent.Difficulty != nil && r.difficulty != *intent.Difficulty {
		return false
	}
	return true
}

func (s *fixtureStore) toRanked(r fixtureRecipe) model.RankedRecipe {
	return model.RankedRecipe{ID: r.id, Name: r.name, TotalTimeMinutes: r.totalTime, Difficulty: r.difficulty}
}

func (s *fixtureStore) FindByIDs(ctx context.Context, ids []int64, intent *model.Intent, userID string) ([]model.RankedRecipe, error) {
	s.findByIDs++
	idSet := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		idSet[id] = struct{}{}
	}
	// Deliberately returns in id order, not hit order; rank restoration is
	// the searcher's job.
	out := []model.RankedRecipe{}
	for _, r := range s.recipes {
		if _, ok := idSet[r.id]; !ok {
			continue
		}
		if s.matches(r, intent) {
			out = append(out, s.toRanked(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fixtureStore) FindWithFilters(ctx context.Context, intent *model.Intent, userID string) ([]model.RankedRecipe, error) {
	s.findFilters++
	out := []model.RankedRecipe{}
	for _, r := range s.recipes {
		if s.matches(r, intent) {
			out = append(out, s.toRanked(r))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalTimeMinutes != out[j].TotalTimeMinutes {
			return out[i].TotalTimeMinutes < out[j].TotalTimeMinutes
		}
		return out[i].Name < out[j].Name
	})
	if limit := intent.EffectiveLimit(); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func testFixtures() []fixtureRecipe {
	return []fixtureRecipe{
		{id: 1, name: "A", totalTime: 20, difficulty: "easy", ingredients: []string{"Tofu", "Rice"}},
		{id: 2, name: "B", totalTime: 25, difficulty: "easy", ingredients: []string{"Peanut", "Noodles"}},
		{id: 3, name: "C", totalTime: 30, difficulty: "medium", ingredients: []string{"Chicken", "Rice"}},
		{id: 4, name: "D", totalTime: 45, difficulty: "easy", ingredients: []string{"Tofu"}},
		{id: 5, name: "E", totalTime: 15, difficulty: "hard", ingredients: []string{"peanut butter", "Peanut"}},
	}
}

func TestHybridPreservesVectorOrder(t *testing.T) {
	embedder := &fakeEmbedder{vector: []float32{1, 0}}
	index := &fakeIndex{hits: []model.VectorHit{
		{RecipeID: 3, Similarity: 0.9, Distance: 0.1},
		{RecipeID: 1, Similarity: 0.8, Distance: 0.2},
		{RecipeID: 4, Similarity: 0.7, Distance: 0.3},
	}}
	store := &fixtureStore{recipes: testFixtures()}
	s := NewSearcher(embedder, index, store, 0)

	recipes, used, err := s.Execute(context.Background(), StrategyHybrid,
		&model.Intent{SemanticQuery: "cozy", Limit: 10}, "")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if used != StrategyHybrid {
		t.Errorf("strategy = %v, want hybrid", used)
	}

	wantOrder := []int64{3, 1, 4}
	if len(recipes) != len(wantOrder) {
		t.Fatalf("got %d recipes, want %d", len(recipes), len(wantOrder))
	}
	for i, id := range wantOrder {
		if recipes[i].ID != id {
			t.Errorf("recipes[%d].ID = %d, want %d (vector order must win)", i, recipes[i].ID, id)
		}
	}
	if recipes[0].Similarity != 0.9 || recipes[2].Similarity != 0.7 {
		t.Errorf("similarities not carried over: %v", recipes)
	}
}

func TestHybridOversamplesIndex(t *testing.T) {
	tests := []struct {
		name  string
		limit int
		wantK int
	}{
		{name: "Small limit floors at oversample", limit: 5, wantK: 50},
		{name: "Large limit doubles", limit: 40, wantK: 80},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			index := &fakeIndex{}
			s := NewSearcher(&fakeEmbedder{vector: []float32{1}}, index, &fixtureStore{}, 0)

			_, _, err := s.Execute(context.Background(), StrategyHybrid,
				&model.Intent{SemanticQuery: "cozy", Limit: tt.limit}, "")
			if err != nil {
				t.Fatalf("Execute() error = %v", err)
			}
			if index.lastK != tt.wantK {
				t.Errorf("index k = %d, want %d", index.lastK, tt.wantK)
			}
		})
	}
}

func TestSemanticEmptyHitsSkipsStore(t *testing.T) {
	store := &fixtureStore{recipes: testFixtures()}
	s := NewSearcher(&fakeEmbedder{vector: []float32{1}}, &fakeIndex{}, store, 0)

	recipes, _, err := s.Execute(context.Background(), StrategySemantic,
		&model.Intent{SemanticQuery: "cozy"}, "")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if recipes == nil || len(recipes) != 0 {
		t.Errorf("recipes = %v, want empty non-nil slice", recipes)
	}
	if store.findByIDs != 0 {
		t.Errorf("store consulted %d times on empty hits, want 0", store.findByIDs)
	}
}

func TestSemanticRequiresQuery(t *testing.T) {
	s := NewSearcher(&fakeEmbedder{vector: []float32{1}}, &fakeIndex{}, &fixtureStore{}, 0)

	_, _, err := s.Execute(context.Background(), StrategySemantic, &model.Intent{}, "")
	if !errs.IsValidation(err) {
		t.Errorf("error = %v, want ValidationError", err)
	}
}

func TestDeterministicNeverTouchesProviders(t *testing.T) {
	embedder := &fakeEmbedder{err: errors.New("must not be called")}
	index := &fakeIndex{err: errors.New("must not be called")}
	store := &fixtureStore{recipes: testFixtures()}
	s := NewSearcher(embedder, index, store, 0)

	maxTime := 30
	recipes, _, err := s.Execute(context.Background(), StrategyDeterministic,
		&model.Intent{
			ExcludedIngredients: []string{"peanut"},
			MaxTimeMinutes:      &maxTime,
			Limit:               5,
		}, "")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if embedder.calls != 0 || index.calls != 0 {
		t.Errorf("providers touched: embedder=%d index=%d", embedder.calls, index.calls)
	}

	// A (20 min) before C (30 min); B and E hold peanut, D is too slow.
	wantNames := []string{"A", "C"}
	if len(recipes) != len(wantNames) {
		t.Fatalf("got %d recipes %v, want %v", len(recipes), recipes, wantNames)
	}
	for i, name := range wantNames {
		if recipes[i].Name != name {
			t.Errorf("recipes[%d].Name = %q, want %q", i, recipes[i].Name, name)
		}
	}
}

func TestDeterministicTruncatesToLimit(t *testing.T) {
	store := &fixtureStore{recipes: testFixtures()}
	s := NewSearcher(&fakeEmbedder{}, &fakeIndex{}, store, 0)

	recipes, _, err := s.Execute(context.Background(), StrategyDeterministic,
		&model.Intent{Limit: 2}, "")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(recipes) != 2 {
		t.Errorf("got %d recipes, want 2", len(recipes))
	}
}

func TestHybridDropsRelationallyExcludedCandidates(t *testing.T) {
	// The index may surface stale candidates; recipe 2 holds peanut and must
	// be dropped in the relational narrowing step.
	index := &fakeIndex{hits: []model.VectorHit{
		{RecipeID: 2, Similarity: 0.95},
		{RecipeID: 1, Similarity: 0.90},
	}}
	store := &fixtureStore{recipes: testFixtures()}
	s := NewSearcher(&fakeEmbedder{vector: []float32{1}}, index, store, 0)

	recipes, _, err := s.Execute(context.Background(), StrategyHybrid,
		&model.Intent{SemanticQuery: "cozy", ExcludedIngredients: []string{"peanut"}}, "")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(recipes) != 1 || recipes[0].ID != 1 {
		t.Errorf("recipes = %v, want only recipe 1", recipes)
	}
}

func TestEmbedderFailurePropagates(t *testing.T) {
	embedErr := &errs.ProviderUnavailableError{Provider: "local embedder", Err: errors.New("connection refused")}
	s := NewSearcher(&fakeEmbedder{err: embedErr}, &fakeIndex{}, &fixtureStore{}, 0)

	_, _, err := s.Execute(context.Background(), StrategyHybrid,
		&model.Intent{SemanticQuery: "cozy"}, "")
	if !errs.IsProviderUnavailable(err) {
		t.Errorf("error = %v, want ProviderUnavailable", err)
	}
}
