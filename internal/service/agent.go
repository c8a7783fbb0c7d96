package service

import (
	"context"
	"encoding/json"
	"log"
	"strings"

	"core/internal/model"
	"core/internal/search"
	"core/internal/utils"
)

// agentSystemPrompt asks the LLM to pick one search tool for an already
// extracted intent.
const agentSystemPrompt = `You are the dispatcher of a recipe search engine. Given a structured search intent as JSON, pick exactly one tool to run:
- "sql_search": only strict constraints, no mood description.
- "rag_search": only a mood description, no strict constraints.
- "hybrid_search": both a mood description and strict constraints.

Respond ONLY with JSON of the shape {"tool": "..."}.`

// AgentExecutor is the fallback execution path: an LLM-tool-calling agent
// that picks among the three strategies itself and runs them against a
// searcher wired to the remote embedding backend, so it works while the
// local embedding service is down.
type AgentExecutor struct {
	client   AIClient
	searcher *search.Searcher
}

// NewAgentExecutor creates the fallback executor.
func NewAgentExecutor(client AIClient, searcher *search.Searcher) *AgentExecutor {
	return &AgentExecutor{client: client, searcher: searcher}
}

var toolStrategies = map[string]search.Strategy{
	"rag_search":    search.StrategySemantic,
	"sql_search":    search.StrategyDeterministic,
	"hybrid_search": search.StrategyHybrid,
}

// Execute lets the agent choose a strategy for the intent, then runs it.
// The suggested strategy is used when the agent's choice is unusable.
func (a *AgentExecutor) Execute(ctx context.Context, suggested search.Strategy, intent *model.Intent, userID string) ([]model.RankedRecipe, search.Strategy, error) {
	strategy := a.chooseStrategy(ctx, suggested, intent)

	// Without a mood query only the deterministic path is runnable.
	if strings.TrimSpace(intent.SemanticQuery) == "" {
		strategy = search.StrategyDeterministic
	}

	return a.searcher.Execute(ctx, strategy, intent, userID)
}

func (a *AgentExecutor) chooseStrategy(ctx context.Context, suggested search.Strategy, intent *model.Intent) search.Strategy {
	intentJSON, err := json.Marshal(intent)
	if err != nil {
		return suggested
	}

	resp, err := a.client.ChatCompletion(ctx, ChatCompletionRequest{
		Messages: []ChatMessage{
			{Role: "system", Content: agentSystemPrompt},
			{Role: "user", Content: string(intentJSON)},
		},
		Temperature:    0.1,
		ResponseFormat: &ResponseFormat{Type: "json_object"},
	})
	if err != nil || len(resp.Choices) == 0 {
		log.Printf("agent tool choice failed, keeping %s: %v", suggested, err)
		return suggested
	}

	var choice struct {
		Tool string `json:"tool"`
	}
	if err := utils.ParseAIJSON(resp.Choices[0].Message.Content, &choice); err != nil {
		log.Printf("agent tool choice unparseable, keeping %s: %v", suggested, err)
		return suggested
	}

	if strategy, ok := toolStrategies[choice.Tool]; ok {
		return strategy
	}
	return suggested
}
