package model

// SearchRequest is the body of POST /api/v1/search.
type SearchRequest struct {
	Query  string `json:"query" binding:"required"`
	UserID string `json:"user_id,omitempty"`
}

// SearchResponse is the outward contract of the search coordinator.
// NoResults distinguishes "no matches" from failure.
type SearchResponse struct {
	Recipes      []RankedRecipe `json:"recipes"`
	NoResults    bool           `json:"no_results"`
	StrategyUsed string         `json:"strategy_used"`
	Took         int64          `json:"took_ms"`
}

// ChatRequest is the body of POST /api/v1/chat.
type ChatRequest struct {
	Query  string `json:"query" binding:"required"`
	UserID string `json:"user_id,omitempty"`
}

// ChatMessage is a single turn of per-user conversation history.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// BackfillResponse reports the outcome of an embedding backfill run.
type BackfillResponse struct {
	Embedded int      `json:"embedded"`
	Errors   []string `json:"errors,omitempty"`
}
