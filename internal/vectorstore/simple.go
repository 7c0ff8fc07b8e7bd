package vectorstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

var _ Store = (*SimpleStore)(nil)

// SimpleStore keeps embeddings, texts and metadata in parallel maps keyed by
// id. It has no document index and does not support Delete.
type SimpleStore struct {
	mu         sync.RWMutex
	embeddings map[string][]float32
	texts      map[string]string
	metadata   map[string]Metadata
	kinds      map[string]Kind
	order      []string
}

// NewSimpleStore returns an empty SimpleStore.
func NewSimpleStore() *SimpleStore {
	return &SimpleStore{
		embeddings: make(map[string][]float32),
		texts:      make(map[string]string),
		metadata:   make(map[string]Metadata),
		kinds:      make(map[string]Kind),
	}
}

func (s *SimpleStore) Add(ctx context.Context, chunks []Chunk) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prepared, ids, err := prepare(chunks, uuid.NewString)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range prepared {
		s.embeddings[c.ID] = c.Embedding
		s.texts[c.ID] = c.Text
		s.metadata[c.ID] = c.Metadata
		s.kinds[c.ID] = c.Kind
		s.order = append(s.order, c.ID)
	}
	return ids, nil
}

// Delete always fails with ErrUnsupported.
func (s *SimpleStore) Delete(context.Context, string) (int, error) {
	return 0, fmt.Errorf("delete from simple store: %w", ErrUnsupported)
}

func (s *SimpleStore) chunk(id string) Chunk {
	return Chunk{
		ID:        id,
		Text:      s.texts[id],
		Embedding: s.embeddings[id],
		Metadata:  s.metadata[id],
		Kind:      s.kinds[id],
	}
}

func (s *SimpleStore) Query(ctx context.Context, embedding []float32, k int) ([]ScoredChunk, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidK, k)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	qn := norm(embedding)
	top := newTopK(k)
	for id, vec := range s.embeddings {
		top.offer(id, cosine(embedding, vec, qn))
	}

	best := top.result()
	out := make([]ScoredChunk, len(best))
	for i, b := range best {
		out[i] = ScoredChunk{Chunk: s.chunk(b.ID), Score: b.Score}
	}
	return out, nil
}

func (s *SimpleStore) Iterate(ctx context.Context, fn func(Chunk) bool) error {
	s.mu.RLock()
	snapshot := make([]Chunk, len(s.order))
	for i, id := range s.order {
		snapshot[i] = s.chunk(id)
	}
	s.mu.RUnlock()

	for _, c := range snapshot {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !fn(c) {
			return nil
		}
	}
	return nil
}

func (s *SimpleStore) Count(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order), nil
}
