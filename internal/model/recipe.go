package model

import (
	"time"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// Provenance describes the relationship of the requesting user to a recipe.
type Provenance string

const (
	ProvenanceOwned  Provenance = "owned"
	ProvenanceLiked  Provenance = "liked"
	ProvenanceGlobal Provenance = "global"
)

// RecipeIngredient is a single ingredient line of a recipe.
type RecipeIngredient struct {
	RecipeID int64   `json:"-" db:"recipe_id"`
	Name     string  `json:"name" db:"name"`
	Amount   float64 `json:"amount" db:"amount"`
	Unit     string  `json:"unit" db:"unit"`
	Order    int     `json:"order" db:"position"`
}

// RecipeInstruction is a single step of a recipe.
type RecipeInstruction struct {
	RecipeID    int64  `json:"-" db:"recipe_id"`
	Order       int    `json:"order" db:"position"`
	Description string `json:"description" db:"description"`
}

// RankedRecipe is the result unit produced by every search strategy.
// Similarity and Distance are zero when the strategy carries no semantic
// rank (deterministic search).
type RankedRecipe struct {
	ID               int64               `json:"id" db:"id"`
	Name             string              `json:"name" db:"name"`
	Slug             string              `json:"slug" db:"slug"`
	Description      string              `json:"description" db:"description"`
	Difficulty       string              `json:"difficulty" db:"difficulty"`
	Servings         int                 `json:"servings" db:"servings"`
	PrepTimeMinutes  int                 `json:"prep_time_minutes" db:"prep_time_minutes"`
	CookTimeMinutes  int                 `json:"cook_time_minutes" db:"cook_time_minutes"`
	TotalTimeMinutes int                 `json:"total_time_minutes" db:"total_time_minutes"`
	Ingredients      []RecipeIngredient  `json:"ingredients"`
	Instructions     []RecipeInstruction `json:"instructions"`
	Tags             []string            `json:"tags,omitempty"`
	Similarity       float64             `json:"similarity"`
	Distance         float64             `json:"distance"`
	Provenance       Provenance          `json:"provenance,omitempty" db:"provenance"`
}

// Recipe is the full relational row, used by the maintenance collaborators
// (embedding backfill, single-recipe lookup).
type Recipe struct {
	ID              int64           `json:"id" db:"id"`
	UserID          *string         `json:"user_id,omitempty" db:"user_id"`
	Name            string          `json:"name" db:"name"`
	Slug            string          `json:"slug" db:"slug"`
	Description     string          `json:"description" db:"description"`
	Difficulty      string          `json:"difficulty" db:"difficulty"`
	Servings        int             `json:"servings" db:"servings"`
	PrepTimeMinutes int             `json:"prep_time_minutes" db:"prep_time_minutes"`
	CookTimeMinutes int             `json:"cook_time_minutes" db:"cook_time_minutes"`
	Price           *float64        `json:"price,omitempty" db:"price"`
	ProteinGrams    *float64        `json:"protein_grams,omitempty" db:"protein_grams"`
	CarbsGrams      *float64        `json:"carbs_grams,omitempty" db:"carbs_grams"`
	FatGrams        *float64        `json:"fat_grams,omitempty" db:"fat_grams"`
	Calories        *float64        `json:"calories,omitempty" db:"calories"`
	Seasons         pq.StringArray  `json:"seasons,omitempty" db:"seasons"`
	Status          string          `json:"status" db:"status"`
	Embedding       pgvector.Vector `json:"-" db:"embedding"`
	DeletedAt       *time.Time      `json:"-" db:"deleted_at"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
}

// TotalTime returns prep plus cook time; missing components count as zero.
func (r *Recipe) TotalTime() int {
	return r.PrepTimeMinutes + r.CookTimeMinutes
}

// VectorHit is a single nearest-neighbor result from the vector index,
// ranked descending by similarity.
type VectorHit struct {
	RecipeID   int64   `json:"recipe_id"`
	Similarity float64 `json:"similarity"`
	Distance   float64 `json:"distance"`
}

// EmbeddingCandidate is a recipe awaiting embedding backfill: the id plus
// the text blob the embedding is computed from.
type EmbeddingCandidate struct {
	RecipeID int64  `db:"id"`
	Text     string `db:"embed_text"`
}
