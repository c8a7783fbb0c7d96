package handler

import (
	"net/http"

	"core/internal/model"
	"core/internal/service"

	"github.com/gin-gonic/gin"
)

// EmbeddingHandler triggers embedding maintenance.
type EmbeddingHandler struct {
	backfiller *service.Backfiller
}

// NewEmbeddingHandler creates a new embedding handler
func NewEmbeddingHandler(backfiller *service.Backfiller) *EmbeddingHandler {
	return &EmbeddingHandler{backfiller: backfiller}
}

// Backfill handles POST /api/v1/embeddings/backfill - embeds one batch of
// recipes that are missing vectors.
func (h *EmbeddingHandler) Backfill(c *gin.Context) {
	embedded, failures, err := h.backfiller.Run(c.Request.Context())
	if err != nil {
		writeSearchError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.BackfillResponse{
		Embedded: embedded,
		Errors:   failures,
	})
}
