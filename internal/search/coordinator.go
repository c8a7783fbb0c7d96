package search

import (
	"context"
	"log"
	"strings"

	"core/internal/errs"
	"core/internal/model"
)

// Classifier turns raw user text into a strategy choice plus extracted
// intent. Backed by an LLM in production.
type Classifier interface {
	Classify(ctx context.Context, query string, history []model.ChatMessage) (*model.Classification, error)
}

// Result is the outward contract of a coordinated search.
type Result struct {
	Recipes      []model.RankedRecipe
	NoResults    bool
	StrategyUsed string
}

// Coordinator classifies a query, executes the chosen strategy and owns the
// cross-provider fallback policy: a ProviderUnavailable fault from the
// primary path is retried exactly once on the fallback executor, any other
// failure class propagates.
type Coordinator struct {
	classifier   Classifier
	primary      Executor
	fallback     Executor
	defaultLimit int
}

// NewCoordinator creates a coordinator. fallback may be nil, disabling the
// fallback hop. defaultLimit caps intents the classifier left unbounded;
// zero selects the model default.
func NewCoordinator(classifier Classifier, primary, fallback Executor, defaultLimit int) *Coordinator {
	if defaultLimit <= 0 {
		defaultLimit = model.DefaultLimit
	}
	return &Coordinator{
		classifier:   classifier,
		primary:      primary,
		fallback:     fallback,
		defaultLimit: defaultLimit,
	}
}

// RunSearch executes one request end to end: classify, normalize, execute,
// fall back at most once. History, when present, lets the classifier
// resolve follow-up queries against earlier turns.
func (c *Coordinator) RunSearch(ctx context.Context, rawQuery, userID string, history []model.ChatMessage) (*Result, error) {
	if strings.TrimSpace(rawQuery) == "" {
		return nil, &errs.ValidationError{Field: "query", Reason: "must not be empty"}
	}

	cls, err := c.classifier.Classify(ctx, rawQuery, history)
	if err != nil {
		return nil, err
	}

	intent := cls.Intent
	if intent == nil {
		intent = &model.Intent{}
	}
	c.normalizeIntent(intent)

	strategy, err := ParseStrategy(cls.Strategy)
	if err != nil {
		// Unknown classifier output; pick the widest strategy the
		// intent supports.
		if strings.TrimSpace(intent.SemanticQuery) != "" {
			strategy = StrategyHybrid
		} else {
			strategy = StrategyDeterministic
		}
	}

	recipes, used, err := c.primary.Execute(ctx, strategy, intent, userID)
	if err != nil {
		if !errs.IsProviderUnavailable(err) || c.fallback == nil {
			return nil, err
		}
		log.Printf("primary %s search unavailable, rerouting to fallback: %v", used, err)
		recipes, used, err = c.fallback.Execute(ctx, strategy, intent, userID)
		if err != nil {
			return nil, err
		}
	}

	if recipes == nil {
		recipes = []model.RankedRecipe{}
	}
	return &Result{
		Recipes:      recipes,
		NoResults:    len(recipes) == 0,
		StrategyUsed: used.String(),
	}, nil
}

// normalizeIntent canonicalizes the classifier's extracted constraints so
// one normalization rule holds for the whole strategy execution.
func (c *Coordinator) normalizeIntent(intent *model.Intent) {
	intent.ExcludedIngredients = NormalizeIngredients(intent.ExcludedIngredients)
	intent.IncludedIngredients = NormalizeIngredients(intent.IncludedIngredients)
	intent.SemanticQuery = strings.TrimSpace(intent.SemanticQuery)
	if intent.Limit <= 0 {
		intent.Limit = c.defaultLimit
	}
	if len(intent.Seasonality) > 0 {
		seasons := make([]string, 0, len(intent.Seasonality))
		for _, s := range intent.Seasonality {
			if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
				seasons = append(seasons, s)
			}
		}
		intent.Seasonality = seasons
	}
}
