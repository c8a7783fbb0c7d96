package service

import (
	"context"
	"fmt"
	"log"
	"sync"

	"golang.org/x/sync/errgroup"

	"core/internal/model"
	"core/internal/search"
	"core/internal/vectorindex"
)

// BackfillStore is the relational side of the embedding backfill.
type BackfillStore interface {
	FindMissingEmbeddings(ctx context.Context, limit int) ([]model.EmbeddingCandidate, error)
	IngredientNames(ctx context.Context, ids []int64) (map[int64][]string, error)
	UpdateEmbedding(ctx context.Context, recipeID int64, embedding []float32) error
}

// Backfiller embeds recipes that are missing vectors and writes them to
// both the vector index and the recipe rows.
type Backfiller struct {
	store       BackfillStore
	embedder    search.EmbeddingProvider
	index       *vectorindex.Client
	batchSize   int
	concurrency int
}

// NewBackfiller creates a backfiller. Zero batchSize defaults to 100, zero
// concurrency to 4.
func NewBackfiller(store BackfillStore, embedder search.EmbeddingProvider, index *vectorindex.Client, batchSize, concurrency int) *Backfiller {
	if batchSize <= 0 {
		batchSize = 100
	}
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Backfiller{
		store:       store,
		embedder:    embedder,
		index:       index,
		batchSize:   batchSize,
		concurrency: concurrency,
	}
}

// Run embeds up to one batch of missing recipes. It returns the number of
// recipes embedded and the per-recipe failures; a failure on one recipe does
// not abort the others.
func (b *Backfiller) Run(ctx context.Context) (int, []string, error) {
	candidates, err := b.store.FindMissingEmbeddings(ctx, b.batchSize)
	if err != nil {
		return 0, nil, err
	}
	if len(candidates) == 0 {
		return 0, nil, nil
	}

	ids := make([]int64, len(candidates))
	for i, c := range candidates {
		ids[i] = c.RecipeID
	}
	ingredients, err := b.store.IngredientNames(ctx, ids)
	if err != nil {
		return 0, nil, err
	}

	var (
		mu       sync.Mutex
		embedded int
		failures []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)
	for _, candidate := range candidates {
		candidate := candidate
		g.Go(func() error {
			if err := b.embedOne(gctx, candidate, ingredients[candidate.RecipeID]); err != nil {
				mu.Lock()
				failures = append(failures, fmt.Sprintf("recipe %d: %v", candidate.RecipeID, err))
				mu.Unlock()
				return nil
			}
			mu.Lock()
			embedded++
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return embedded, failures, err
	}

	if embedded > 0 {
		if err := b.index.Flush(ctx); err != nil {
			log.Printf("backfill: flush failed: %v", err)
			failures = append(failures, fmt.Sprintf("flush: %v", err))
		}
	}

	log.Printf("backfill: embedded %d of %d candidates (%d failures)", embedded, len(candidates), len(failures))
	return embedded, failures, nil
}

func (b *Backfiller) embedOne(ctx context.Context, candidate model.EmbeddingCandidate, ingredients []string) error {
	vector, err := b.embedder.Embed(ctx, candidate.Text)
	if err != nil {
		return err
	}

	if err := b.index.Insert(ctx, []vectorindex.Point{{
		ID:          candidate.RecipeID,
		Vector:      vector,
		Ingredients: ingredients,
	}}); err != nil {
		return err
	}

	// Mirror into the recipe row so relational reads and index rebuilds
	// stay possible.
	return b.store.UpdateEmbedding(ctx, candidate.RecipeID, vector)
}
