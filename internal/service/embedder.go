package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"core/internal/errs"
)

const localEmbedderName = "local embedder"

// LocalEmbedder generates embeddings through a local Ollama-compatible
// service. This is the primary embedding path; when the service is down the
// coordinator reroutes to the remote backend.
type LocalEmbedder struct {
	baseURL    string
	model      string
	dimension  int
	httpClient *http.Client
}

// NewLocalEmbedder creates a local embedding provider.
func NewLocalEmbedder(baseURL, model string, dimension int, timeout time.Duration) *LocalEmbedder {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &LocalEmbedder{
		baseURL:    baseURL,
		model:      model,
		dimension:  dimension,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Embed turns text into a fixed-dimension vector.
func (e *LocalEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	reqBody, err := json.Marshal(map[string]string{
		"model":  e.model,
		"prompt": text,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/api/embeddings", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, &errs.ProviderUnavailableError{Provider: localEmbedderName, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &errs.ProviderUnavailableError{Provider: localEmbedderName, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &errs.ProviderError{Provider: localEmbedderName, StatusCode: resp.StatusCode, Message: string(body)}
	}

	var result struct {
		Embedding []float32 `json:"embedding"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, &errs.ProviderError{Provider: localEmbedderName, Message: fmt.Sprintf("malformed response: %v", err)}
	}
	if e.dimension > 0 && len(result.Embedding) != e.dimension {
		return nil, &errs.ProviderError{
			Provider: localEmbedderName,
			Message:  fmt.Sprintf("got %d dimensions, expected %d", len(result.Embedding), e.dimension),
		}
	}
	return result.Embedding, nil
}

// RemoteEmbedder adapts the OpenAI-compatible client to the single-text
// embedding capability. Used by the fallback executor.
type RemoteEmbedder struct {
	client AIClient
}

// NewRemoteEmbedder wraps an AIClient as an embedding provider.
func NewRemoteEmbedder(client AIClient) *RemoteEmbedder {
	return &RemoteEmbedder{client: client}
}

// Embed turns text into a vector via the remote embedding API.
func (e *RemoteEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := e.client.CreateEmbeddings(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 || len(embeddings[0]) == 0 {
		return nil, &errs.ProviderError{Provider: openAIProviderName, Message: "no embedding returned"}
	}
	return embeddings[0], nil
}
