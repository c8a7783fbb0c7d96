package service

import (
	"context"
	"fmt"
	"strings"

	"core/internal/model"
)

const composerSystemPrompt = `You are a friendly cooking assistant for a recipe app. You are given a list of recipes retrieved for the user's request. Recommend from that list only, never invent recipes. Mention recipe names exactly as given. Keep the answer short and conversational, and say so honestly when the list is empty.`

// ResponseComposer turns ranked search results into a conversational
// answer, optionally streamed.
type ResponseComposer struct {
	client AIClient
}

// NewResponseComposer creates a composer backed by the given client.
func NewResponseComposer(client AIClient) *ResponseComposer {
	return &ResponseComposer{client: client}
}

// Compose produces a single conversational answer for the results.
func (c *ResponseComposer) Compose(ctx context.Context, query string, recipes []model.RankedRecipe, history []model.ChatMessage) (string, error) {
	resp, err := c.client.ChatCompletion(ctx, ChatCompletionRequest{
		Messages:    c.buildMessages(query, recipes, history),
		Temperature: 0.7,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty composition response")
	}
	return resp.Choices[0].Message.Content, nil
}

// ComposeStream streams the conversational answer chunk by chunk.
func (c *ResponseComposer) ComposeStream(ctx context.Context, query string, recipes []model.RankedRecipe, history []model.ChatMessage, callback StreamCallback) error {
	return c.client.ChatCompletionStream(ctx, ChatCompletionRequest{
		Messages:    c.buildMessages(query, recipes, history),
		Temperature: 0.7,
	}, callback)
}

func (c *ResponseComposer) buildMessages(query string, recipes []model.RankedRecipe, history []model.ChatMessage) []ChatMessage {
	messages := []ChatMessage{{Role: "system", Content: composerSystemPrompt}}
	for _, turn := range history {
		messages = append(messages, ChatMessage{Role: turn.Role, Content: turn.Content})
	}
	messages = append(messages, ChatMessage{
		Role:    "user",
		Content: fmt.Sprintf("Request: %s\n\nRetrieved recipes:\n%s", query, formatRecipeContext(recipes)),
	})
	return messages
}

// formatRecipeContext renders the results as a compact context block.
func formatRecipeContext(recipes []model.RankedRecipe) string {
	if len(recipes) == 0 {
		return "(no recipes matched)"
	}

	var b strings.Builder
	for i, r := range recipes {
		fmt.Fprintf(&b, "%d. %s", i+1, r.Name)
		if r.TotalTimeMinutes > 0 {
			fmt.Fprintf(&b, " (%d min", r.TotalTimeMinutes)
			if r.Difficulty != "" {
				fmt.Fprintf(&b, ", %s", r.Difficulty)
			}
			b.WriteString(")")
		} else if r.Difficulty != "" {
			fmt.Fprintf(&b, " (%s)", r.Difficulty)
		}
		if r.Description != "" {
			fmt.Fprintf(&b, ": %s", r.Description)
		}
		b.WriteString("\n")
	}
	return b.String()
}
