package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"core/internal/errs"
	"core/internal/model"
	"core/internal/search"
)

// RecipeRepository handles relational queries against the recipe store. It
// issues read operations per request and never owns the store's lifecycle
// beyond the connection pool.
type RecipeRepository struct {
	db       *sqlx.DB
	compiler search.FilterCompiler
}

// NewRecipeRepository connects to PostgreSQL.
func NewRecipeRepository(dsn string, maxConn, maxIdleConn int) (*RecipeRepository, error) {
	// Disable prepared statement caching to avoid "unnamed prepared
	// statement does not exist" errors behind poolers.
	if !strings.Contains(dsn, "?") {
		dsn += "?prefer_simple_protocol=true"
	} else {
		dsn += "&prefer_simple_protocol=true"
	}

	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(maxConn)
	db.SetMaxIdleConns(maxIdleConn)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &RecipeRepository{db: db}, nil
}

// Close closes the database connection.
func (r *RecipeRepository) Close() error {
	return r.db.Close()
}

// recipeColumns are the scalar fields shared by every recipe query.
const recipeColumns = `
	r.id, r.name, r.slug,
	COALESCE(r.description, '') AS description,
	COALESCE(r.difficulty, '') AS difficulty,
	COALESCE(r.servings, 0) AS servings,
	COALESCE(r.prep_time_minutes, 0) AS prep_time_minutes,
	COALESCE(r.cook_time_minutes, 0) AS cook_time_minutes,
	COALESCE(r.prep_time_minutes, 0) + COALESCE(r.cook_time_minutes, 0) AS total_time_minutes`

// provenanceColumn builds the provenance expression. When a user id is
// supplied it references a single positional parameter twice.
func provenanceColumn(userParam int) string {
	if userParam == 0 {
		return "'global' AS provenance"
	}
	return fmt.Sprintf(`CASE
		WHEN r.user_id = $%d THEN 'owned'
		WHEN EXISTS (SELECT 1 FROM recipe_likes rl WHERE rl.recipe_id = r.id AND rl.user_id = $%d) THEN 'liked'
		ELSE 'global'
	END AS provenance`, userParam, userParam)
}

// FindByIDs returns enriched recipes restricted to the candidate id set
// that also satisfy the intent's relational constraints. Output order is
// unspecified; callers re-rank by vector order.
func (r *RecipeRepository) FindByIDs(ctx context.Context, ids []int64, intent *model.Intent, userID string) ([]model.RankedRecipe, error) {
	if len(ids) == 0 {
		return []model.RankedRecipe{}, nil
	}

	filter := r.compiler.RelationalFilter(intent, 1)
	args := filter.Args
	argIndex := filter.NextIndex

	where := fmt.Sprintf("%s AND r.id = ANY($%d)", filter.Where, argIndex)
	args = append(args, pq.Array(ids))
	argIndex++

	userParam := 0
	if userID != "" {
		userParam = argIndex
		args = append(args, userID)
		argIndex++
	}

	query := fmt.Sprintf(`
		SELECT %s, %s
		FROM recipes r
		WHERE %s
	`, recipeColumns, provenanceColumn(userParam), where)

	var recipes []model.RankedRecipe
	if err := r.db.SelectContext(ctx, &recipes, query, args...); err != nil {
		return nil, &errs.StoreError{Op: "find recipes by ids", Err: err}
	}

	if err := r.enrich(ctx, recipes); err != nil {
		return nil, err
	}
	return recipes, nil
}

// FindWithFilters returns enriched recipes matching the full intent,
// ordered by ascending total time then name, limited to the intent's limit.
func (r *RecipeRepository) FindWithFilters(ctx context.Context, intent *model.Intent, userID string) ([]model.RankedRecipe, error) {
	filter := r.compiler.RelationalFilter(intent, 1)
	args := filter.Args
	argIndex := filter.NextIndex

	userParam := 0
	if userID != "" {
		userParam = argIndex
		args = append(args, userID)
		argIndex++
	}

	query := fmt.Sprintf(`
		SELECT %s, %s
		FROM recipes r
		WHERE %s
		ORDER BY total_time_minutes ASC, r.name ASC
		LIMIT $%d
	`, recipeColumns, provenanceColumn(userParam), filter.Where, argIndex)
	args = append(args, intent.EffectiveLimit())

	var recipes []model.RankedRecipe
	if err := r.db.SelectContext(ctx, &recipes, query, args...); err != nil {
		return nil, &errs.StoreError{Op: "find recipes with filters", Err: err}
	}

	if err := r.enrich(ctx, recipes); err != nil {
		return nil, err
	}
	return recipes, nil
}

// GetRecipeByID returns a single published recipe with its ingredients,
// instructions and tags, or nil when absent.
func (r *RecipeRepository) GetRecipeByID(ctx context.Context, recipeID int64, userID string) (*model.RankedRecipe, error) {
	args := []interface{}{recipeID}
	userParam := 0
	if userID != "" {
		userParam = 2
		args = append(args, userID)
	}

	query := fmt.Sprintf(`
		SELECT %s, %s
		FROM recipes r
		WHERE r.id = $1 AND r.status = 'published' AND r.deleted_at IS NULL
	`, recipeColumns, provenanceColumn(userParam))

	var recipe model.RankedRecipe
	if err := r.db.GetContext(ctx, &recipe, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, &errs.StoreError{Op: "get recipe", Err: err}
	}

	recipes := []model.RankedRecipe{recipe}
	if err := r.enrich(ctx, recipes); err != nil {
		return nil, err
	}
	return &recipes[0], nil
}

// enrich attaches ingredients, instructions and tags in place.
func (r *RecipeRepository) enrich(ctx context.Context, recipes []model.RankedRecipe) error {
	if len(recipes) == 0 {
		return nil
	}

	ids := make([]int64, len(recipes))
	for i := range recipes {
		ids[i] = recipes[i].ID
	}

	var ingredients []model.RecipeIngredient
	err := r.db.SelectContext(ctx, &ingredients, `
		SELECT recipe_id, name, COALESCE(amount, 0) AS amount, COALESCE(unit, '') AS unit, position
		FROM recipe_ingredients
		WHERE recipe_id = ANY($1)
		ORDER BY recipe_id, position
	`, pq.Array(ids))
	if err != nil {
		return &errs.StoreError{Op: "load ingredients", Err: err}
	}

	var instructions []model.RecipeInstruction
	err = r.db.SelectContext(ctx, &instructions, `
		SELECT recipe_id, position, description
		FROM recipe_instructions
		WHERE recipe_id = ANY($1)
		ORDER BY recipe_id, position
	`, pq.Array(ids))
	if err != nil {
		return &errs.StoreError{Op: "load instructions", Err: err}
	}

	type tagRow struct {
		RecipeID int64  `db:"recipe_id"`
		Name     string `db:"name"`
	}
	var tags []tagRow
	err = r.db.SelectContext(ctx, &tags, `
		SELECT rt.recipe_id, t.name
		FROM recipe_tags rt
		JOIN tags t ON t.id = rt.tag_id
		WHERE rt.recipe_id = ANY($1)
		ORDER BY rt.recipe_id, t.name
	`, pq.Array(ids))
	if err != nil {
		return &errs.StoreError{Op: "load tags", Err: err}
	}

	byID := make(map[int64]*model.RankedRecipe, len(recipes))
	for i := range recipes {
		byID[recipes[i].ID] = &recipes[i]
	}
	for _, ing := range ingredients {
		if rec, ok := byID[ing.RecipeID]; ok {
			rec.Ingredients = append(rec.Ingredients, ing)
		}
	}
	for _, ins := range instructions {
		if rec, ok := byID[ins.RecipeID]; ok {
			rec.Instructions = append(rec.Instructions, ins)
		}
	}
	for _, t := range tags {
		if rec, ok := byID[t.RecipeID]; ok {
			rec.Tags = append(rec.Tags, t.Name)
		}
	}
	return nil
}

// FindMissingEmbeddings returns published recipes lacking an embedding,
// each with the text blob the embedding is computed from.
func (r *RecipeRepository) FindMissingEmbeddings(ctx context.Context, limit int) ([]model.EmbeddingCandidate, error) {
	var candidates []model.EmbeddingCandidate
	err := r.db.SelectContext(ctx, &candidates, `
		SELECT r.id,
			r.name || '. ' || COALESCE(r.description, '') || ' Ingredients: ' ||
			COALESCE((SELECT string_agg(ri.name, ', ' ORDER BY ri.position)
				FROM recipe_ingredients ri WHERE ri.recipe_id = r.id), '') AS embed_text
		FROM recipes r
		WHERE r.embedding IS NULL AND r.status = 'published' AND r.deleted_at IS NULL
		ORDER BY r.id
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, &errs.StoreError{Op: "find missing embeddings", Err: err}
	}
	return candidates, nil
}

// IngredientNames returns the normalized ingredient names per recipe, used
// as the vector index's scalar-array payload.
func (r *RecipeRepository) IngredientNames(ctx context.Context, ids []int64) (map[int64][]string, error) {
	if len(ids) == 0 {
		return map[int64][]string{}, nil
	}

	var rows []model.RecipeIngredient
	err := r.db.SelectContext(ctx, &rows, `
		SELECT recipe_id, name, COALESCE(amount, 0) AS amount, COALESCE(unit, '') AS unit, position
		FROM recipe_ingredients
		WHERE recipe_id = ANY($1)
		ORDER BY recipe_id, position
	`, pq.Array(ids))
	if err != nil {
		return nil, &errs.StoreError{Op: "load ingredient names", Err: err}
	}

	out := make(map[int64][]string, len(ids))
	for _, row := range rows {
		out[row.RecipeID] = append(out[row.RecipeID], search.NormalizeIngredient(row.Name))
	}
	return out, nil
}

// UpdateEmbedding mirrors a computed embedding into the recipe row.
func (r *RecipeRepository) UpdateEmbedding(ctx context.Context, recipeID int64, embedding []float32) error {
	vec := pgvector.NewVector(embedding)
	_, err := r.db.ExecContext(ctx,
		`UPDATE recipes SET embedding = $1, updated_at = NOW() WHERE id = $2`, vec, recipeID)
	if err != nil {
		return &errs.StoreError{Op: "update embedding", Err: err}
	}
	return nil
}

// LikeRecipe records that a user liked a recipe; feeds provenance.
func (r *RecipeRepository) LikeRecipe(ctx context.Context, recipeID int64, userID string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO recipe_likes (recipe_id, user_id, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (recipe_id, user_id) DO NOTHING
	`, recipeID, userID)
	if err != nil {
		return &errs.StoreError{Op: "like recipe", Err: err}
	}
	return nil
}

// LogSearch records a search query for analysis. Best effort; callers fire
// and forget.
func (r *RecipeRepository) LogSearch(ctx context.Context, query, strategy string, resultCount int, responseTimeMs int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO search_logs (query, strategy, result_count, response_time_ms)
		VALUES ($1, $2, $3, $4)
	`, query, strategy, resultCount, responseTimeMs)
	if err != nil {
		return &errs.StoreError{Op: "log search", Err: err}
	}
	return nil
}
