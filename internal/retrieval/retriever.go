package retrieval

import (
	"context"
	"log/slog"

	"github.com/kalambet/pdfqa/internal/vectorstore"
)

// DefaultTopK is used when a caller passes k <= 0 and no other default was set.
const DefaultTopK = 5

const previewLen = 200

// Retriever combines embedding and vector search to find relevant chunks.
type Retriever struct {
	embedder *Embedder
	store    vectorstore.Store
	topK     int
	logger   *slog.Logger
}

// NewRetriever creates a Retriever over store. topK is the default number of
// results; values <= 0 select DefaultTopK.
func NewRetriever(embedder *Embedder, store vectorstore.Store, topK int, logger *slog.Logger) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{embedder: embedder, store: store, topK: topK, logger: logger}
}

// Retrieve embeds the question once and returns the k most similar chunks,
// best first. k <= 0 uses the default.
func (r *Retriever) Retrieve(ctx context.Context, question string, k int) ([]vectorstore.ScoredChunk, error) {
	if k <= 0 {
		k = r.topK
	}
	vec, err := r.embedder.Embed(ctx, question)
	if err != nil {
		return nil, err
	}

	results, err := r.store.Query(ctx, vec, k)
	if err != nil {
		return nil, err
	}

	if r.logger.Enabled(ctx, slog.LevelDebug) {
		for i, c := range results {
			r.logger.DebugContext(ctx, "retrieved chunk",
				"rank", i+1,
				"score", c.Score,
				"document", c.Metadata.DocumentName,
				"preview", preview(c.Text),
			)
		}
	}
	return results, nil
}

func preview(s string) string {
	r := []rune(s)
	if len(r) <= previewLen {
		return s
	}
	return string(r[:previewLen]) + "..."
}
