package service

import (
	"context"
	"testing"

	"core/internal/errs"
	"core/internal/model"
)

type fakeAIClient struct {
	content string
	err     error
	lastReq ChatCompletionRequest
}

func (f *fakeAIClient) ChatCompletion(ctx context.Context, req ChatCompletionRequest) (*ChatCompletionResponse, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	resp := &ChatCompletionResponse{}
	resp.Choices = []struct {
		Index        int         `json:"index"`
		Message      ChatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	}{
		{Message: ChatMessage{Role: "assistant", Content: f.content}},
	}
	return resp, nil
}

func (f *fakeAIClient) ChatCompletionStream(ctx context.Context, req ChatCompletionRequest, callback StreamCallback) error {
	f.lastReq = req
	if f.err != nil {
		return f.err
	}
	if err := callback(&StreamChunk{Role: "assistant", Content: f.content}); err != nil {
		return err
	}
	return callback(&StreamChunk{Done: true})
}

func (f *fakeAIClient) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func (f *fakeAIClient) IsEnabled() bool { return true }

func TestClassifyParsesStrategyAndIntent(t *testing.T) {
	tests := []struct {
		name         string
		content      string
		wantStrategy string
		check        func(t *testing.T, intent *model.Intent)
	}{
		{
			name:         "Hybrid with exclusion",
			content:      `{"strategy": "hybrid", "intent": {"semantic_query": "something cozy", "excluded_ingredients": ["chicken"]}}`,
			wantStrategy: "hybrid",
			check: func(t *testing.T, intent *model.Intent) {
				if intent.SemanticQuery != "something cozy" {
					t.Errorf("SemanticQuery = %q", intent.SemanticQuery)
				}
				if len(intent.ExcludedIngredients) != 1 || intent.ExcludedIngredients[0] != "chicken" {
					t.Errorf("ExcludedIngredients = %v", intent.ExcludedIngredients)
				}
			},
		},
		{
			name:         "Deterministic in markdown fences",
			content:      "```json\n{\"strategy\": \"deterministic\", \"intent\": {\"max_time_minutes\": 30}}\n```",
			wantStrategy: "deterministic",
			check: func(t *testing.T, intent *model.Intent) {
				if intent.MaxTimeMinutes == nil || *intent.MaxTimeMinutes != 30 {
					t.Errorf("MaxTimeMinutes = %v", intent.MaxTimeMinutes)
				}
			},
		},
		{
			name:         "Semantic only",
			content:      `{"strategy": "semantic", "intent": {"semantic_query": "comfort food"}}`,
			wantStrategy: "semantic",
			check:        func(t *testing.T, intent *model.Intent) {},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeAIClient{content: tt.content}
			classifier := NewIntentClassifier(client)

			cls, err := classifier.Classify(context.Background(), "a query", nil)
			if err != nil {
				t.Fatalf("Classify() error = %v", err)
			}
			if cls.Strategy != tt.wantStrategy {
				t.Errorf("Strategy = %q, want %q", cls.Strategy, tt.wantStrategy)
			}
			if client.lastReq.ResponseFormat == nil || client.lastReq.ResponseFormat.Type != "json_object" {
				t.Error("classification request did not ask for JSON mode")
			}
			tt.check(t, cls.Intent)
		})
	}
}

func TestClassifyRejectsBadOutput(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "Unknown strategy", content: `{"strategy": "vibes", "intent": {}}`},
		{name: "Semantic without query", content: `{"strategy": "semantic", "intent": {}}`},
		{name: "Negative time", content: `{"strategy": "deterministic", "intent": {"max_time_minutes": -5}}`},
		{name: "Inverted price bounds", content: `{"strategy": "deterministic", "intent": {"price_min": 9, "price_max": 3}}`},
		{name: "Bad macro level", content: `{"strategy": "deterministic", "intent": {"macronutrients": {"protein": "medium"}}}`},
		{name: "Not JSON", content: "sure, here are some ideas!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			classifier := NewIntentClassifier(&fakeAIClient{content: tt.content})

			_, err := classifier.Classify(context.Background(), "a query", nil)
			if err == nil {
				t.Fatal("Classify() error = nil, want error")
			}
		})
	}
}

func TestClassifyEmptyQuery(t *testing.T) {
	classifier := NewIntentClassifier(&fakeAIClient{})

	_, err := classifier.Classify(context.Background(), "  ", nil)
	if !errs.IsValidation(err) {
		t.Errorf("error = %v, want ValidationError", err)
	}
}

func TestClassifyIncludesHistory(t *testing.T) {
	client := &fakeAIClient{content: `{"strategy": "semantic", "intent": {"semantic_query": "same but vegetarian"}}`}
	classifier := NewIntentClassifier(client)

	history := []model.ChatMessage{
		{Role: "user", Content: "something cozy"},
		{Role: "assistant", Content: "How about a stew?"},
	}
	if _, err := classifier.Classify(context.Background(), "same but vegetarian", history); err != nil {
		t.Fatalf("Classify() error = %v", err)
	}

	// system + 2 history turns + user query
	if len(client.lastReq.Messages) != 4 {
		t.Fatalf("sent %d messages, want 4", len(client.lastReq.Messages))
	}
	if client.lastReq.Messages[1].Content != "something cozy" {
		t.Errorf("history not forwarded in order: %v", client.lastReq.Messages)
	}
}
