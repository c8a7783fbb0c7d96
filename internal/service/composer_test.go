package service

import (
	"context"
	"strings"
	"testing"

	"core/internal/model"
)

func TestFormatRecipeContext(t *testing.T) {
	recipes := []model.RankedRecipe{
		{Name: "Lentil Stew", TotalTimeMinutes: 40, Difficulty: "easy", Description: "Hearty and warm."},
		{Name: "Quick Ramen", TotalTimeMinutes: 15},
	}

	got := formatRecipeContext(recipes)
	if !strings.Contains(got, "1. Lentil Stew (40 min, easy): Hearty and warm.") {
		t.Errorf("missing first entry in %q", got)
	}
	if !strings.Contains(got, "2. Quick Ramen (15 min)") {
		t.Errorf("missing second entry in %q", got)
	}
}

func TestFormatRecipeContextEmpty(t *testing.T) {
	if got := formatRecipeContext(nil); !strings.Contains(got, "no recipes matched") {
		t.Errorf("empty context = %q", got)
	}
}

func TestComposeUsesResultsAndHistory(t *testing.T) {
	client := &fakeAIClient{content: "Try the Lentil Stew."}
	composer := NewResponseComposer(client)

	answer, err := composer.Compose(context.Background(), "something cozy",
		[]model.RankedRecipe{{Name: "Lentil Stew"}},
		[]model.ChatMessage{{Role: "user", Content: "hi"}})
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}
	if answer != "Try the Lentil Stew." {
		t.Errorf("answer = %q", answer)
	}

	// system + 1 history turn + composed user message
	if len(client.lastReq.Messages) != 3 {
		t.Fatalf("sent %d messages, want 3", len(client.lastReq.Messages))
	}
	final := client.lastReq.Messages[2].Content
	if !strings.Contains(final, "something cozy") || !strings.Contains(final, "Lentil Stew") {
		t.Errorf("final message missing query or results: %q", final)
	}
}

func TestComposeStreamForwardsChunks(t *testing.T) {
	composer := NewResponseComposer(&fakeAIClient{content: "chunk"})

	var got strings.Builder
	err := composer.ComposeStream(context.Background(), "q", nil, nil, func(chunk *StreamChunk) error {
		got.WriteString(chunk.Content)
		return nil
	})
	if err != nil {
		t.Fatalf("ComposeStream() error = %v", err)
	}
	if got.String() != "chunk" {
		t.Errorf("streamed = %q, want %q", got.String(), "chunk")
	}
}
