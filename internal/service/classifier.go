package service

import (
	"context"
	"fmt"
	"strings"

	"core/internal/errs"
	"core/internal/model"
	"core/internal/utils"
)

// classifierSystemPrompt instructs the LLM to split a request into hard
// constraints and mood, and to pick the retrieval strategy.
const classifierSystemPrompt = `You are the query planner of a recipe search engine. Parse the user's request into a strategy choice and structured constraints.

Choose exactly one strategy:
- "deterministic": the request only contains strict constraints (allergies, excluded or required ingredients, cooking time, difficulty, cuisine, price, macronutrients, season) and no mood or vague language.
- "semantic": the request is only mood or vague language ("something cozy", "comfort food for a rainy day") with no strict constraints.
- "hybrid": the request mixes both.

Extract into "intent" (omit fields that are not mentioned):
- semantic_query: the mood/topic part of the request, rephrased as a short description (string). Required for semantic and hybrid.
- excluded_ingredients: ingredients that must NOT appear (allergies, dislikes) (array of strings)
- included_ingredients: ingredients the recipe must use at least one of (array of strings)
- max_time_minutes: upper bound on total prep+cook time (integer). "quick" or "weeknight" means 30.
- difficulty: one of "easy", "medium", "hard" (string)
- cuisine: cuisine or tag name, e.g. "italian", "thai" (string)
- price_min, price_max: price bounds per serving (numbers)
- macronutrients: object mapping "protein"/"carbs"/"fat"/"calories" to "high" or "low"
- seasonality: seasons the recipe should match, e.g. ["summer"] (array of strings)
- limit: requested number of results (integer)

Important rules:
- Respond ONLY with valid JSON of the shape {"strategy": "...", "intent": {...}}
- Allergies and "without X" always go to excluded_ingredients.
- "high protein", "low carb" go to macronutrients.
- Do not invent constraints the user did not state.

Examples:
Query: "something cozy with no chicken"
Response: {"strategy": "hybrid", "intent": {"semantic_query": "something cozy", "excluded_ingredients": ["chicken"]}}

Query: "nut-free dinner under 30 minutes, easy"
Response: {"strategy": "deterministic", "intent": {"excluded_ingredients": ["nut", "peanut"], "max_time_minutes": 30, "difficulty": "easy"}}

Query: "comfort food for a rainy evening"
Response: {"strategy": "semantic", "intent": {"semantic_query": "comfort food for a rainy evening"}}

Query: "light summery italian pasta, high protein, no shellfish"
Response: {"strategy": "hybrid", "intent": {"semantic_query": "light summery pasta", "cuisine": "italian", "excluded_ingredients": ["shellfish"], "macronutrients": {"protein": "high"}, "seasonality": ["summer"]}}`

// IntentClassifier turns raw user text into a strategy choice plus
// extracted intent using a JSON-mode chat completion.
type IntentClassifier struct {
	client AIClient
}

// NewIntentClassifier creates a classifier backed by the given client.
func NewIntentClassifier(client AIClient) *IntentClassifier {
	return &IntentClassifier{client: client}
}

// Classify parses the query. History, when present, is appended before the
// query so follow-up requests resolve against earlier turns.
func (c *IntentClassifier) Classify(ctx context.Context, query string, history []model.ChatMessage) (*model.Classification, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, &errs.ValidationError{Field: "query", Reason: "must not be empty"}
	}

	messages := []ChatMessage{{Role: "system", Content: classifierSystemPrompt}}
	for _, turn := range history {
		messages = append(messages, ChatMessage{Role: turn.Role, Content: turn.Content})
	}
	messages = append(messages, ChatMessage{Role: "user", Content: query})

	resp, err := c.client.ChatCompletion(ctx, ChatCompletionRequest{
		Messages:       messages,
		Temperature:    0.2,
		ResponseFormat: &ResponseFormat{Type: "json_object"},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, &errs.ProviderError{Provider: openAIProviderName, Message: "no choices in classification response"}
	}

	content := resp.Choices[0].Message.Content
	var result model.Classification
	if err := utils.ParseAIJSON(content, &result); err != nil {
		return nil, &errs.ProviderError{
			Provider: openAIProviderName,
			Message:  fmt.Sprintf("unparseable classification: %v", err),
		}
	}

	if err := validateClassification(&result); err != nil {
		return nil, err
	}
	return &result, nil
}

// validateClassification enforces the closed strategy set and basic intent
// sanity before the coordinator trusts the output.
func validateClassification(cls *model.Classification) error {
	switch cls.Strategy {
	case "semantic", "deterministic", "hybrid":
	default:
		return &errs.ProviderError{
			Provider: openAIProviderName,
			Message:  fmt.Sprintf("classifier returned unknown strategy %q", cls.Strategy),
		}
	}

	if cls.Intent == nil {
		cls.Intent = &model.Intent{}
	}
	intent := cls.Intent

	if (cls.Strategy == "semantic" || cls.Strategy == "hybrid") && strings.TrimSpace(intent.SemanticQuery) == "" {
		return &errs.ProviderError{
			Provider: openAIProviderName,
			Message:  fmt.Sprintf("%s strategy without a semantic query", cls.Strategy),
		}
	}
	if intent.MaxTimeMinutes != nil && *intent.MaxTimeMinutes <= 0 {
		return &errs.ProviderError{Provider: openAIProviderName, Message: "max_time_minutes must be positive"}
	}
	if intent.PriceMin != nil && intent.PriceMax != nil && *intent.PriceMin > *intent.PriceMax {
		return &errs.ProviderError{Provider: openAIProviderName, Message: "price_min greater than price_max"}
	}
	for name, level := range intent.Macronutrients {
		if level != model.MacroHigh && level != model.MacroLow {
			return &errs.ProviderError{
				Provider: openAIProviderName,
				Message:  fmt.Sprintf("macronutrient %s has invalid level %q", name, level),
			}
		}
	}
	if intent.Limit < 0 {
		intent.Limit = 0
	}
	return nil
}
