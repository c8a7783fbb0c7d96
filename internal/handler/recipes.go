package handler

import (
	"context"
	"net/http"
	"strconv"

	"core/internal/model"

	"github.com/gin-gonic/gin"
)

// RecipeStore is the relational surface the recipe endpoints need.
type RecipeStore interface {
	GetRecipeByID(ctx context.Context, recipeID int64, userID string) (*model.RankedRecipe, error)
	LikeRecipe(ctx context.Context, recipeID int64, userID string) error
}

// RecipeHandler serves single-recipe reads and likes.
type RecipeHandler struct {
	store RecipeStore
}

// NewRecipeHandler creates a new recipe handler
func NewRecipeHandler(store RecipeStore) *RecipeHandler {
	return &RecipeHandler{store: store}
}

// Get handles GET /api/v1/recipes/:id
func (h *RecipeHandler) Get(c *gin.Context) {
	recipeID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid recipe ID"})
		return
	}

	recipe, err := h.store.GetRecipeByID(c.Request.Context(), recipeID, c.Query("user_id"))
	if err != nil {
		writeSearchError(c, err)
		return
	}
	if recipe == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Recipe not found"})
		return
	}

	c.JSON(http.StatusOK, recipe)
}

// Like handles POST /api/v1/recipes/:id/like
func (h *RecipeHandler) Like(c *gin.Context) {
	recipeID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid recipe ID"})
		return
	}

	var req struct {
		UserID string `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	if err := h.store.LikeRecipe(c.Request.Context(), recipeID, req.UserID); err != nil {
		writeSearchError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
