// Package vectorstore holds embedded document chunks and answers
// nearest-neighbour queries by cosine similarity.
package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrUnsupported is returned by stores that cannot perform an operation,
	// such as Delete on the simple store.
	ErrUnsupported = errors.New("operation not supported by this vector store")
	// ErrInvalidK is returned by Query when k < 1.
	ErrInvalidK = errors.New("k must be at least 1")
	// ErrMissingEmbedding is returned by Add for a chunk without a vector.
	ErrMissingEmbedding = errors.New("chunk has no embedding")
)

// Kind distinguishes ordinary text windows from the generated summary chunk.
type Kind string

const (
	KindContent         Kind = "content"
	KindMetadataSummary Kind = "metadata_summary"
)

// Metadata is attached to every chunk at ingestion time.
type Metadata struct {
	DocumentName string    `json:"document_name"`
	InsertDate   time.Time `json:"insert_date"`
}

// Chunk is one stored unit of text with its embedding.
type Chunk struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Embedding []float32 `json:"-"`
	Metadata  Metadata  `json:"metadata"`
	Kind      Kind      `json:"kind"`
}

// ScoredChunk is a query result.
type ScoredChunk struct {
	Chunk
	Score float32 `json:"score"`
}

// Store is implemented by every vector store backend.
type Store interface {
	// Add inserts chunks, assigning each a fresh id, and returns the ids in
	// input order. Either every chunk is added or none is.
	Add(ctx context.Context, chunks []Chunk) ([]string, error)

	// Delete removes every chunk of documentName and returns how many were
	// removed.
	Delete(ctx context.Context, documentName string) (int, error)

	// Query returns up to k chunks ordered by descending cosine similarity
	// to embedding.
	Query(ctx context.Context, embedding []float32, k int) ([]ScoredChunk, error)

	// Iterate calls fn for every chunk in insertion order until fn returns false.
	Iterate(ctx context.Context, fn func(Chunk) bool) error

	// Count returns the number of stored chunks.
	Count(ctx context.Context) (int, error)
}

// prepare validates chunks and assigns ids and default kinds.
func prepare(chunks []Chunk, newID func() string) ([]Chunk, []string, error) {
	out := make([]Chunk, len(chunks))
	ids := make([]string, len(chunks))
	for i, c := range chunks {
		if len(c.Embedding) == 0 {
			return nil, nil, fmt.Errorf("chunk %d of %q: %w", i, c.Metadata.DocumentName, ErrMissingEmbedding)
		}
		c.ID = newID()
		if c.Kind == "" {
			c.Kind = KindContent
		}
		out[i] = c
		ids[i] = c.ID
	}
	return out, ids, nil
}
