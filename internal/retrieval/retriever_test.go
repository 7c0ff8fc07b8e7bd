package retrieval

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kalambet/pdfqa/internal/engine/enginetest"
	"github.com/kalambet/pdfqa/internal/vectorstore"
)

func seedStore(t *testing.T, texts ...string) *vectorstore.DictStore {
	t.Helper()
	s := vectorstore.NewDictStore()
	chunks := make([]vectorstore.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = vectorstore.Chunk{
			Text:      text,
			Embedding: enginetest.Vector(text),
			Metadata:  vectorstore.Metadata{DocumentName: "doc.pdf", InsertDate: time.Now()},
		}
	}
	if _, err := s.Add(context.Background(), chunks); err != nil {
		t.Fatalf("Add: %v", err)
	}
	return s
}

func TestRetrieve_BestFirst(t *testing.T) {
	store := seedStore(t,
		"the cat sat on the mat",
		"quarterly revenue grew by ten percent",
		"dogs chase cats in the garden",
	)
	r := NewRetriever(NewEmbedder(enginetest.New(""), 0), store, 2, nil)

	got, err := r.Retrieve(context.Background(), "quarterly revenue grew by ten percent", 0)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d chunks, want default k=2", len(got))
	}
	if got[0].Text != "quarterly revenue grew by ten percent" {
		t.Errorf("best = %q", got[0].Text)
	}
	if got[0].Score < got[1].Score {
		t.Errorf("results not sorted: %f < %f", got[0].Score, got[1].Score)
	}
}

func TestRetrieve_ExplicitK(t *testing.T) {
	store := seedStore(t, "a", "b", "c", "d")
	r := NewRetriever(NewEmbedder(enginetest.New(""), 0), store, 0, nil)

	got, err := r.Retrieve(context.Background(), "a", 3)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("got %d chunks, want 3", len(got))
	}
}

func TestRetrieve_EmptyStore(t *testing.T) {
	r := NewRetriever(NewEmbedder(enginetest.New(""), 0), vectorstore.NewDictStore(), 5, nil)

	got, err := r.Retrieve(context.Background(), "anything", 0)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d chunks from empty store", len(got))
	}
}

func TestRetrieve_EmbedError(t *testing.T) {
	f := enginetest.New("")
	f.EmbedErr = func(string) error { return errors.New("down") }
	r := NewRetriever(NewEmbedder(f, 0), seedStore(t, "x"), 5, nil)

	if _, err := r.Retrieve(context.Background(), "q", 0); err == nil {
		t.Fatal("expected error")
	}
}

func TestPreview(t *testing.T) {
	long := make([]rune, 250)
	for i := range long {
		long[i] = 'é'
	}
	got := []rune(preview(string(long)))
	if len(got) != previewLen+3 {
		t.Errorf("preview length = %d", len(got))
	}
	if preview("short") != "short" {
		t.Error("short text should be unchanged")
	}
}
