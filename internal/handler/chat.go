package handler

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"core/internal/model"
	"core/internal/search"
	"core/internal/service"

	"github.com/gin-gonic/gin"
)

// ChatHandler runs a search and streams a composed conversational answer
// over SSE, keeping per-user history for follow-up turns.
type ChatHandler struct {
	coordinator *search.Coordinator
	composer    *service.ResponseComposer
	sessions    *service.SessionStore
}

// NewChatHandler creates a new chat handler
func NewChatHandler(coordinator *search.Coordinator, composer *service.ResponseComposer, sessions *service.SessionStore) *ChatHandler {
	return &ChatHandler{coordinator: coordinator, composer: composer, sessions: sessions}
}

// Chat handles POST /api/v1/chat - SSE streaming chat search
func (h *ChatHandler) Chat(c *gin.Context) {
	var req model.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	// Set SSE headers
	c.Header("Content-Type", "text/event-stream; charset=utf-8")
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Streaming not supported"})
		return
	}

	sendSSE(c, "start", map[string]any{"query": req.Query})
	flusher.Flush()

	history := h.sessions.History(req.UserID)

	result, err := h.coordinator.RunSearch(c.Request.Context(), req.Query, req.UserID, history)
	if err != nil {
		sendSSEError(c, err)
		flusher.Flush()
		return
	}

	sendSSE(c, "results", model.SearchResponse{
		Recipes:      result.Recipes,
		NoResults:    result.NoResults,
		StrategyUsed: result.StrategyUsed,
	})
	flusher.Flush()

	var answer strings.Builder
	err = h.composer.ComposeStream(c.Request.Context(), req.Query, result.Recipes, history, func(chunk *service.StreamChunk) error {
		if chunk.ThinkingContent != "" {
			sendSSE(c, "thinking", map[string]any{"content": chunk.ThinkingContent})
			flusher.Flush()
		}
		if chunk.Content != "" {
			answer.WriteString(chunk.Content)
			sendSSE(c, "answer", map[string]any{"content": chunk.Content})
			flusher.Flush()
		}
		return nil
	})
	if err != nil {
		sendSSEError(c, err)
		flusher.Flush()
		return
	}

	h.sessions.Append(req.UserID,
		model.ChatMessage{Role: "user", Content: req.Query},
		model.ChatMessage{Role: "assistant", Content: answer.String()},
	)

	sendSSE(c, "done", nil)
	flusher.Flush()
}

// sendSSEError emits an error event carrying only the caller-safe message;
// the raw error goes to the server log.
func sendSSEError(c *gin.Context, err error) {
	_, msg := clientErrorMessage(err)
	if msg != err.Error() {
		log.Printf("chat request failed: %v", err)
	}
	sendSSE(c, "error", map[string]any{"error": msg})
}

// sendSSE sends a Server-Sent Event
func sendSSE(c *gin.Context, event string, data any) {
	if data != nil {
		jsonData, err := json.Marshal(data)
		if err != nil {
			fmt.Fprintf(c.Writer, "event: error\ndata: {\"error\": \"JSON marshal failed\"}\n\n")
			return
		}
		fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event, string(jsonData))
	} else {
		fmt.Fprintf(c.Writer, "event: %s\ndata: {}\n\n", event)
	}
}
