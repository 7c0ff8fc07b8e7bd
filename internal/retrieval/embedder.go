package retrieval

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/kalambet/pdfqa/internal/engine"
)

const defaultConcurrency = 4

// Embedder wraps an Engine to generate text embeddings.
type Embedder struct {
	engine      engine.Engine
	concurrency int
}

// NewEmbedder creates an Embedder issuing at most concurrency embedding calls
// at once from EmbedBatch. concurrency <= 0 selects the default of 4.
func NewEmbedder(e engine.Engine, concurrency int) *Embedder {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Embedder{engine: e, concurrency: concurrency}
}

// Embed returns the embedding vector for a single text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := e.engine.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding text: %w", err)
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("embedding text: empty vector")
	}
	return vec, nil
}

// EmbedBatch embeds texts concurrently. A failure for one text does not stop
// the others: vecs[i] is nil and errs[i] is set for every failed text.
// errs is nil when every text succeeded.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) (vecs [][]float32, errs []error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vecs = make([][]float32, len(texts))
	perItem := make([]error, len(texts))

	var g errgroup.Group
	g.SetLimit(e.concurrency)
	for i, text := range texts {
		g.Go(func() error {
			vec, err := e.Embed(ctx, text)
			if err != nil {
				perItem[i] = err
				return nil
			}
			vecs[i] = vec
			return nil
		})
	}
	g.Wait()

	for _, err := range perItem {
		if err != nil {
			return vecs, perItem
		}
	}
	return vecs, nil
}
