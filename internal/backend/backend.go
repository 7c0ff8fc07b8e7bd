// Package backend binds an ingestion pipeline, a retriever and an answerer
// to one vector store, and keeps the named backends of a process.
package backend

import (
	"context"
	"log/slog"

	"github.com/kalambet/pdfqa/internal/engine"
	"github.com/kalambet/pdfqa/internal/ingest"
	"github.com/kalambet/pdfqa/internal/qa"
	"github.com/kalambet/pdfqa/internal/retrieval"
	"github.com/kalambet/pdfqa/internal/splitter"
	"github.com/kalambet/pdfqa/internal/vectorstore"
)

// Backend is the full document question-answering surface over one store.
type Backend interface {
	Name() string
	// Store ingests the PDF at filePath under documentName.
	Store(ctx context.Context, filePath, documentName string) (ingest.Result, error)
	// Delete removes a document. Stores that cannot delete return an error
	// wrapping vectorstore.ErrUnsupported.
	Delete(ctx context.Context, documentName string) (int, error)
	Retrieve(ctx context.Context, question string, k int) ([]vectorstore.ScoredChunk, error)
	Answer(ctx context.Context, question, language string, k int) (string, error)
	Inspect(ctx context.Context, topN int) ([]vectorstore.ChunkView, error)
	Info(ctx context.Context) (vectorstore.Info, error)
}

// Options configures a RAG backend.
type Options struct {
	Splitter         splitter.Splitter
	MetadataChunk    bool
	EmbedConcurrency int
	TopK             int
	Logger           *slog.Logger
}

// RAG implements Backend over any vectorstore.Store.
type RAG struct {
	name      string
	store     vectorstore.Store
	pipeline  *ingest.Pipeline
	retriever *retrieval.Retriever
	answerer  *qa.Answerer
}

// New creates a backend called name that embeds and chats through e.
func New(name string, e engine.Engine, store vectorstore.Store, opts Options) *RAG {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("backend", name)

	retriever := retrieval.NewRetriever(retrieval.NewEmbedder(e, opts.EmbedConcurrency), store, opts.TopK, logger)
	return &RAG{
		name:  name,
		store: store,
		pipeline: ingest.New(e, store, ingest.Options{
			Splitter:         opts.Splitter,
			MetadataChunk:    opts.MetadataChunk,
			EmbedConcurrency: opts.EmbedConcurrency,
			Logger:           logger,
		}),
		retriever: retriever,
		answerer:  qa.New(retriever, e, logger),
	}
}

func (b *RAG) Name() string { return b.name }

func (b *RAG) Store(ctx context.Context, filePath, documentName string) (ingest.Result, error) {
	return b.pipeline.Store(ctx, filePath, documentName)
}

func (b *RAG) Delete(ctx context.Context, documentName string) (int, error) {
	return b.store.Delete(ctx, documentName)
}

func (b *RAG) Retrieve(ctx context.Context, question string, k int) ([]vectorstore.ScoredChunk, error) {
	return b.retriever.Retrieve(ctx, question, k)
}

func (b *RAG) Answer(ctx context.Context, question, language string, k int) (string, error) {
	return b.answerer.Answer(ctx, question, language, k)
}

func (b *RAG) Inspect(ctx context.Context, topN int) ([]vectorstore.ChunkView, error) {
	return vectorstore.Inspect(ctx, b.store, topN)
}

func (b *RAG) Info(ctx context.Context) (vectorstore.Info, error) {
	return vectorstore.Summarize(ctx, b.store)
}
