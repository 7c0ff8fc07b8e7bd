package vectorstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

var _ Store = (*DictStore)(nil)

// DictStore keeps whole chunks in a map keyed by id, with a slice recording
// insertion order.
type DictStore struct {
	mu      sync.RWMutex
	entries map[string]Chunk
	order   []string
}

// NewDictStore returns an empty DictStore.
func NewDictStore() *DictStore {
	return &DictStore{entries: make(map[string]Chunk)}
}

func (s *DictStore) Add(ctx context.Context, chunks []Chunk) ([]string, error) {
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
		s.entries[c.ID] = c
		s.order = append(s.order, c.ID)
	}
	return ids, nil
}

func (s *DictStore) Delete(ctx context.Context, documentName string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.order[:0]
	removed := 0
	for _, id := range s.order {
		if s.entries[id].Metadata.DocumentName == documentName {
			delete(s.entries, id)
			removed++
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
	return removed, nil
}

func (s *DictStore) Query(ctx context.Context, embedding []float32, k int) ([]ScoredChunk, error) {
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
	for _, id := range s.order {
		top.offer(id, cosine(embedding, s.entries[id].Embedding, qn))
	}

	best := top.result()
	out := make([]ScoredChunk, len(best))
	for i, b := range best {
		out[i] = ScoredChunk{Chunk: s.entries[b.ID], Score: b.Score}
	}
	return out, nil
}

func (s *DictStore) Iterate(ctx context.Context, fn func(Chunk) bool) error {
	s.mu.RLock()
	snapshot := make([]Chunk, len(s.order))
	for i, id := range s.order {
		snapshot[i] = s.entries[id]
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

func (s *DictStore) Count(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order), nil
}
