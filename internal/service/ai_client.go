package service

import (
	"context"
	"encoding/json"
	"strings"
)

// AIClient is the capability interface for chat/LLM completion and remote
// embedding providers.
type AIClient interface {
	// ChatCompletion performs a single chat completion request.
	ChatCompletion(ctx context.Context, req ChatCompletionRequest) (*ChatCompletionResponse, error)

	// ChatCompletionStream streams a chat completion; the callback
	// receives each parsed chunk.
	ChatCompletionStream(ctx context.Context, req ChatCompletionRequest, callback StreamCallback) error

	// CreateEmbeddings generates embeddings for texts, in input order.
	CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)

	// IsEnabled returns whether the client is configured and ready.
	IsEnabled() bool
}

// StreamChunk is a generic streaming response chunk.
type StreamChunk struct {
	Content string

	// Thinking/reasoning content, emitted by some providers.
	ThinkingContent string

	Role string
	Done bool
}

// StreamCallback is called for each chunk in streaming mode.
type StreamCallback func(chunk *StreamChunk) error

// StreamChunkParser converts provider-specific SSE chunk payloads into
// generic StreamChunks.
type StreamChunkParser interface {
	ParseChunk(data []byte) (*StreamChunk, error)
}

// openAIChunkParser parses standard OpenAI-format streaming chunks.
type openAIChunkParser struct{}

func (openAIChunkParser) ParseChunk(data []byte) (*StreamChunk, error) {
	var raw struct {
		Choices []struct {
			Delta struct {
				Role    string `json:"role,omitempty"`
				Content string `json:"content,omitempty"`
			} `json:"delta"`
			FinishReason string `json:"finish_reason,omitempty"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	chunk := &StreamChunk{}
	if len(raw.Choices) > 0 {
		chunk.Role = raw.Choices[0].Delta.Role
		chunk.Content = raw.Choices[0].Delta.Content
		chunk.Done = raw.Choices[0].FinishReason != ""
	}
	return chunk, nil
}

// reasoningChunkParser parses chunks from providers that emit a separate
// reasoning_content delta (DeepSeek via NVIDIA).
type reasoningChunkParser struct{}

func (reasoningChunkParser) ParseChunk(data []byte) (*StreamChunk, error) {
	var raw struct {
		Choices []struct {
			Delta struct {
				Role             string  `json:"role,omitempty"`
				Content          string  `json:"content,omitempty"`
				ReasoningContent *string `json:"reasoning_content,omitempty"`
			} `json:"delta"`
			FinishReason string `json:"finish_reason,omitempty"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	chunk := &StreamChunk{}
	if len(raw.Choices) > 0 {
		delta := raw.Choices[0].Delta
		chunk.Role = delta.Role
		chunk.Content = delta.Content
		if delta.ReasoningContent != nil {
			chunk.ThinkingContent = *delta.ReasoningContent
		}
		chunk.Done = raw.Choices[0].FinishReason != ""
	}
	return chunk, nil
}

// chunkParserFor picks the parser matching the provider behind baseURL.
func chunkParserFor(baseURL string) StreamChunkParser {
	if strings.Contains(baseURL, "integrate.api.nvidia.com") {
		return reasoningChunkParser{}
	}
	return openAIChunkParser{}
}

// Ensure OpenAIClient implements AIClient.
var _ AIClient = (*OpenAIClient)(nil)
