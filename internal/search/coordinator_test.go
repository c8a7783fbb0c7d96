package search

import (
	"context"
	"errors"
	"testing"

	"core/internal/errs"
	"core/internal/model"
)

type fakeClassifier struct {
	cls *model.Classification
	err error
}

func (f *fakeClassifier) Classify(ctx context.Context, query string, history []model.ChatMessage) (*model.Classification, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.cls, nil
}

type fakeExecutor struct {
	recipes    []model.RankedRecipe
	err        error
	calls      int
	lastIntent *model.Intent
	lastStrat  Strategy
}

func (f *fakeExecutor) Execute(ctx context.Context, strategy Strategy, intent *model.Intent, userID string) ([]model.RankedRecipe, Strategy, error) {
	f.calls++
	f.lastIntent = intent
	f.lastStrat = strategy
	if f.err != nil {
		return nil, strategy, f.err
	}
	return f.recipes, strategy, nil
}

func hybridClassification(query string) *model.Classification {
	return &model.Classification{
		Strategy: "hybrid",
		Intent:   &model.Intent{SemanticQuery: query},
	}
}

func TestRunSearchEmptyQuery(t *testing.T) {
	c := NewCoordinator(&fakeClassifier{}, &fakeExecutor{}, nil, 0)

	_, err := c.RunSearch(context.Background(), "   ", "", nil)
	if !errs.IsValidation(err) {
		t.Errorf("error = %v, want ValidationError", err)
	}
}

func TestRunSearchFallsBackExactlyOnce(t *testing.T) {
	unavailable := &errs.ProviderUnavailableError{Provider: "local embedder", Err: errors.New("refused")}
	primary := &fakeExecutor{err: unavailable}
	fallback := &fakeExecutor{recipes: []model.RankedRecipe{{ID: 7, Name: "Stew"}}}
	c := NewCoordinator(&fakeClassifier{cls: hybridClassification("cozy")}, primary, fallback, 0)

	result, err := c.RunSearch(context.Background(), "something cozy", "u1", nil)
	if err != nil {
		t.Fatalf("RunSearch() error = %v", err)
	}
	if primary.calls != 1 || fallback.calls != 1 {
		t.Errorf("calls: primary=%d fallback=%d, want 1 and 1", primary.calls, fallback.calls)
	}
	if len(result.Recipes) != 1 || result.Recipes[0].ID != 7 {
		t.Errorf("Recipes = %v, want fallback's result", result.Recipes)
	}
	if result.NoResults {
		t.Error("NoResults = true for a non-empty result")
	}
}

func TestRunSearchFallbackFailureIsFatal(t *testing.T) {
	unavailable := &errs.ProviderUnavailableError{Provider: "local embedder", Err: errors.New("refused")}
	primary := &fakeExecutor{err: unavailable}
	fallback := &fakeExecutor{err: &errs.ProviderUnavailableError{Provider: "openai", Err: errors.New("refused")}}
	c := NewCoordinator(&fakeClassifier{cls: hybridClassification("cozy")}, primary, fallback, 0)

	_, err := c.RunSearch(context.Background(), "something cozy", "", nil)
	if err == nil {
		t.Fatal("RunSearch() error = nil, want error after exhausted fallback")
	}
	// One hop only: the fallback's failure must not trigger another retry.
	if fallback.calls != 1 {
		t.Errorf("fallback called %d times, want 1", fallback.calls)
	}
}

func TestRunSearchProviderErrorDoesNotFallBack(t *testing.T) {
	primary := &fakeExecutor{err: &errs.ProviderError{Provider: "vector index", StatusCode: 400, Message: "bad filter"}}
	fallback := &fakeExecutor{}
	c := NewCoordinator(&fakeClassifier{cls: hybridClassification("cozy")}, primary, fallback, 0)

	_, err := c.RunSearch(context.Background(), "something cozy", "", nil)
	if err == nil {
		t.Fatal("RunSearch() error = nil, want ProviderError")
	}
	if fallback.calls != 0 {
		t.Errorf("fallback called %d times on a non-unavailable fault, want 0", fallback.calls)
	}
}

func TestRunSearchStoreErrorDoesNotFallBack(t *testing.T) {
	primary := &fakeExecutor{err: &errs.StoreError{Op: "find recipes", Err: errors.New("broken pipe")}}
	fallback := &fakeExecutor{}
	c := NewCoordinator(&fakeClassifier{cls: hybridClassification("cozy")}, primary, fallback, 0)

	_, err := c.RunSearch(context.Background(), "something cozy", "", nil)
	if !errs.IsStore(err) {
		t.Fatalf("error = %v, want StoreError", err)
	}
	if fallback.calls != 0 {
		t.Errorf("fallback called %d times on a store fault, want 0", fallback.calls)
	}
}

func TestRunSearchNilFallback(t *testing.T) {
	unavailable := &errs.ProviderUnavailableError{Provider: "local embedder", Err: errors.New("refused")}
	primary := &fakeExecutor{err: unavailable}
	c := NewCoordinator(&fakeClassifier{cls: hybridClassification("cozy")}, primary, nil, 0)

	_, err := c.RunSearch(context.Background(), "something cozy", "", nil)
	if !errs.IsProviderUnavailable(err) {
		t.Errorf("error = %v, want original ProviderUnavailable", err)
	}
}

func TestRunSearchNoResultsFlag(t *testing.T) {
	primary := &fakeExecutor{recipes: []model.RankedRecipe{}}
	c := NewCoordinator(&fakeClassifier{cls: hybridClassification("cozy")}, primary, nil, 0)

	result, err := c.RunSearch(context.Background(), "something cozy", "", nil)
	if err != nil {
		t.Fatalf("RunSearch() error = %v, empty results must not be an error", err)
	}
	if !result.NoResults {
		t.Error("NoResults = false for an empty result set")
	}
	if result.Recipes == nil {
		t.Error("Recipes = nil, want empty slice")
	}
}

func TestRunSearchNormalizesIntent(t *testing.T) {
	primary := &fakeExecutor{}
	c := NewCoordinator(&fakeClassifier{cls: &model.Classification{
		Strategy: "deterministic",
		Intent: &model.Intent{
			ExcludedIngredients: []string{" Crème Fraîche ", "PEANUT", "peanut"},
			Seasonality:         []string{" Summer "},
		},
	}}, primary, nil, 25)

	_, err := c.RunSearch(context.Background(), "nut free summer dinner", "", nil)
	if err != nil {
		t.Fatalf("RunSearch() error = %v", err)
	}

	intent := primary.lastIntent
	wantExcluded := []string{"creme fraiche", "peanut"}
	if len(intent.ExcludedIngredients) != len(wantExcluded) {
		t.Fatalf("ExcludedIngredients = %v, want %v", intent.ExcludedIngredients, wantExcluded)
	}
	for i, want := range wantExcluded {
		if intent.ExcludedIngredients[i] != want {
			t.Errorf("ExcludedIngredients[%d] = %q, want %q", i, intent.ExcludedIngredients[i], want)
		}
	}
	if len(intent.Seasonality) != 1 || intent.Seasonality[0] != "summer" {
		t.Errorf("Seasonality = %v, want [summer]", intent.Seasonality)
	}
	if intent.Limit != 25 {
		t.Errorf("Limit = %d, want coordinator default 25", intent.Limit)
	}
}

func TestRunSearchHeuristicOnUnknownStrategy(t *testing.T) {
	tests := []struct {
		name string
		cls  *model.Classification
		want Strategy
	}{
		{
			name: "Unknown with semantic query",
			cls:  &model.Classification{Strategy: "vibes", Intent: &model.Intent{SemanticQuery: "cozy"}},
			want: StrategyHybrid,
		},
		{
			name: "Unknown without semantic query",
			cls:  &model.Classification{Strategy: "vibes", Intent: &model.Intent{}},
			want: StrategyDeterministic,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			primary := &fakeExecutor{}
			c := NewCoordinator(&fakeClassifier{cls: tt.cls}, primary, nil, 0)

			if _, err := c.RunSearch(context.Background(), "anything", "", nil); err != nil {
				t.Fatalf("RunSearch() error = %v", err)
			}
			if primary.lastStrat != tt.want {
				t.Errorf("strategy = %v, want %v", primary.lastStrat, tt.want)
			}
		})
	}
}
