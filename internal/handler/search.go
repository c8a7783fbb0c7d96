package handler

import (
	"context"
	"log"
	"net/http"
	"time"

	"core/internal/errs"
	"core/internal/model"
	"core/internal/search"

	"github.com/gin-gonic/gin"
)

// SearchLogger records executed searches for analysis. Best effort.
type SearchLogger interface {
	LogSearch(ctx context.Context, query, strategy string, resultCount int, responseTimeMs int64) error
}

// SearchHandler handles search-related HTTP requests
type SearchHandler struct {
	coordinator *search.Coordinator
	logger      SearchLogger
}

// NewSearchHandler creates a new search handler. logger may be nil.
func NewSearchHandler(coordinator *search.Coordinator, logger SearchLogger) *SearchHandler {
	return &SearchHandler{coordinator: coordinator, logger: logger}
}

// Search handles POST /api/v1/search
func (h *SearchHandler) Search(c *gin.Context) {
	var req model.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	start := time.Now()
	result, err := h.coordinator.RunSearch(c.Request.Context(), req.Query, req.UserID, nil)
	if err != nil {
		writeSearchError(c, err)
		return
	}
	took := time.Since(start).Milliseconds()

	if h.logger != nil {
		go func(query, strategy string, count int, ms int64) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := h.logger.LogSearch(ctx, query, strategy, count, ms); err != nil {
				log.Printf("search log failed: %v", err)
			}
		}(req.Query, result.StrategyUsed, len(result.Recipes), took)
	}

	c.JSON(http.StatusOK, model.SearchResponse{
		Recipes:      result.Recipes,
		NoResults:    result.NoResults,
		StrategyUsed: result.StrategyUsed,
		Took:         took,
	})
}

// clientErrorMessage maps the failure taxonomy to an HTTP status and a
// caller-safe message. Validation reasons are written by us and safe to
// return; everything else carries backend detail (endpoints, upstream
// response bodies) that stays in the server log.
func clientErrorMessage(err error) (int, string) {
	switch {
	case errs.IsValidation(err):
		return http.StatusBadRequest, err.Error()
	case errs.IsProviderUnavailable(err):
		return http.StatusServiceUnavailable, "search backend unavailable"
	case errs.IsStore(err):
		return http.StatusInternalServerError, "storage failure"
	default:
		return http.StatusBadGateway, "upstream provider error"
	}
}

// writeSearchError maps the failure taxonomy to HTTP statuses.
func writeSearchError(c *gin.Context, err error) {
	status, msg := clientErrorMessage(err)
	if status != http.StatusBadRequest {
		log.Printf("request failed: %v", err)
	}
	c.JSON(status, gin.H{"error": msg})
}
