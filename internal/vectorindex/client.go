// Package vectorindex is an HTTP adapter for the recipe vector service: a
// collection of (id, vector, ingredient-array payload) records supporting
// approximate nearest-neighbor search with scalar-array filter expressions.
package vectorindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"core/internal/errs"
	"core/internal/model"
)

const providerName = "vector index"

// Client talks to the vector service over HTTP. The service is a
// long-lived, externally owned singleton; the client only issues requests.
type Client struct {
	baseURL    string
	collection string
	dimension  int
	httpClient *http.Client
}

// Config configures the vector index client.
type Config struct {
	BaseURL    string
	Collection string
	Dimension  int
	Timeout    time.Duration
}

// NewClient creates a vector index client.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		collection: cfg.Collection,
		dimension:  cfg.Dimension,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Point is one record of the collection.
type Point struct {
	ID          int64     `json:"id"`
	Vector      []float32 `json:"vector"`
	Ingredients []string  `json:"ingredients"`
}

// CollectionInfo describes the collection.
type CollectionInfo struct {
	Name      string `json:"name"`
	Dimension int    `json:"dimension"`
	Count     int64  `json:"count"`
}

type searchRequest struct {
	Vector []float32 `json:"vector"`
	Limit  int       `json:"limit"`
	Filter string    `json:"filter,omitempty"`
}

type searchResponse struct {
	Result []struct {
		ID         int64   `json:"id"`
		Similarity float64 `json:"similarity"`
		Distance   float64 `json:"distance"`
	} `json:"result"`
}

// Search returns the k nearest neighbors under the optional filter
// expression, ranked descending by similarity. A missing collection yields
// an empty result, not an error.
func (c *Client) Search(ctx context.Context, vector []float32, k int, filter string) ([]model.VectorHit, error) {
	if len(vector) != c.dimension {
		return nil, &errs.ProviderError{
			Provider: providerName,
			Message:  fmt.Sprintf("query vector has dimension %d, collection expects %d", len(vector), c.dimension),
		}
	}

	body, status, err := c.post(ctx, fmt.Sprintf("/collections/%s/search", c.collection), searchRequest{
		Vector: vector,
		Limit:  k,
		Filter: filter,
	})
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return []model.VectorHit{}, nil
	}
	if status != http.StatusOK {
		return nil, &errs.ProviderError{Provider: providerName, StatusCode: status, Message: string(body)}
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &errs.ProviderError{Provider: providerName, Message: fmt.Sprintf("malformed search response: %v", err)}
	}

	hits := make([]model.VectorHit, 0, len(resp.Result))
	for _, r := range resp.Result {
		hits = append(hits, model.VectorHit{RecipeID: r.ID, Similarity: r.Similarity, Distance: r.Distance})
	}
	return hits, nil
}

// CreateCollection creates the collection with the configured dimension.
// Idempotent on the service side.
func (c *Client) CreateCollection(ctx context.Context) error {
	body, status, err := c.post(ctx, "/collections", map[string]interface{}{
		"name":      c.collection,
		"dimension": c.dimension,
		"metric":    "cosine",
	})
	if err != nil {
		return err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return &errs.ProviderError{Provider: providerName, StatusCode: status, Message: string(body)}
	}
	return nil
}

// Insert upserts points into the collection.
func (c *Client) Insert(ctx context.Context, points []Point) error {
	for _, p := range points {
		if len(p.Vector) != c.dimension {
			return &errs.ProviderError{
				Provider: providerName,
				Message:  fmt.Sprintf("point %d has dimension %d, collection expects %d", p.ID, len(p.Vector), c.dimension),
			}
		}
	}
	body, status, err := c.post(ctx, fmt.Sprintf("/collections/%s/points", c.collection),
		map[string]interface{}{"points": points})
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return &errs.ProviderError{Provider: providerName, StatusCode: status, Message: string(body)}
	}
	return nil
}

// Delete removes points by id.
func (c *Client) Delete(ctx context.Context, ids []int64) error {
	body, status, err := c.post(ctx, fmt.Sprintf("/collections/%s/points/delete", c.collection),
		map[string]interface{}{"ids": ids})
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return &errs.ProviderError{Provider: providerName, StatusCode: status, Message: string(body)}
	}
	return nil
}

// Flush persists pending writes.
func (c *Client) Flush(ctx context.Context) error {
	body, status, err := c.post(ctx, fmt.Sprintf("/collections/%s/flush", c.collection), struct{}{})
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return &errs.ProviderError{Provider: providerName, StatusCode: status, Message: string(body)}
	}
	return nil
}

// Describe returns collection metadata.
func (c *Client) Describe(ctx context.Context) (*CollectionInfo, error) {
	url := fmt.Sprintf("%s/collections/%s", c.baseURL, c.collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &errs.ProviderUnavailableError{Provider: providerName, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &errs.ProviderUnavailableError{Provider: providerName, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &errs.ProviderError{Provider: providerName, StatusCode: resp.StatusCode, Message: string(body)}
	}

	var info CollectionInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, &errs.ProviderError{Provider: providerName, Message: fmt.Sprintf("malformed describe response: %v", err)}
	}
	return &info, nil
}

// post sends a JSON body and returns the raw response. Transport failures
// map to ProviderUnavailable so the coordinator can reroute.
func (c *Client) post(ctx context.Context, path string, payload interface{}) ([]byte, int, error) {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, &errs.ProviderUnavailableError{Provider: providerName, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, &errs.ProviderUnavailableError{Provider: providerName, Err: err}
	}
	return body, resp.StatusCode, nil
}
