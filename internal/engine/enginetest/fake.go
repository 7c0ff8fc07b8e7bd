// Package enginetest provides a deterministic in-memory Engine for tests.
package enginetest

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"sync"
	"unicode"

	"github.com/kalambet/pdfqa/internal/engine"
)

// Dim is the dimension of the vectors produced by Fake.Embed.
const Dim = 16

// Fake embeds text as a hashed bag of words, so texts sharing words have a
// high cosine similarity, and answers chat calls with a fixed reply.
type Fake struct {
	// Reply is returned by Chat. When ChatFunc is set it takes precedence.
	Reply    string
	ChatFunc func(messages []engine.Message) (string, error)
	// EmbedErr, when non-nil, decides per text whether Embed fails.
	EmbedErr func(text string) error

	mu       sync.Mutex
	chats    [][]engine.Message
	embedded []string
}

// New returns a Fake replying with reply.
func New(reply string) *Fake {
	return &Fake{Reply: reply}
}

func (f *Fake) Chat(_ context.Context, messages []engine.Message) (string, error) {
	f.mu.Lock()
	f.chats = append(f.chats, append([]engine.Message(nil), messages...))
	f.mu.Unlock()

	if f.ChatFunc != nil {
		return f.ChatFunc(messages)
	}
	return f.Reply, nil
}

func (f *Fake) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.embedded = append(f.embedded, text)
	f.mu.Unlock()

	if f.EmbedErr != nil {
		if err := f.EmbedErr(text); err != nil {
			return nil, err
		}
	}
	return Vector(text), nil
}

// Chats returns a copy of the message lists passed to Chat.
func (f *Fake) Chats() [][]engine.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]engine.Message(nil), f.chats...)
}

// Embedded returns the texts passed to Embed, in call order.
func (f *Fake) Embedded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.embedded...)
}

// Vector is the embedding Fake produces for text.
func Vector(text string) []float32 {
	v := make([]float32, Dim)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		h.Write([]byte(w))
		v[h.Sum32()%Dim]++
	}
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm == 0 {
		v[0] = 1
		return v
	}
	n := float32(math.Sqrt(norm))
	for i := range v {
		v[i] /= n
	}
	return v
}
