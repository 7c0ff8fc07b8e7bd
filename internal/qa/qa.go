// Package qa answers questions from the chunks retrieved for them.
package qa

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kalambet/pdfqa/internal/composer"
	"github.com/kalambet/pdfqa/internal/engine"
	"github.com/kalambet/pdfqa/internal/vectorstore"
)

// FallbackMessage is returned without calling the chat model when nothing
// was retrieved.
const FallbackMessage = "no relevant document found"

// Retriever is the part of retrieval.Retriever the answerer needs.
type Retriever interface {
	Retrieve(ctx context.Context, question string, k int) ([]vectorstore.ScoredChunk, error)
}

// Answerer runs retrieval, prompt assembly and one chat call.
type Answerer struct {
	retriever Retriever
	chat      engine.Engine
	logger    *slog.Logger
}

// New creates an Answerer. logger may be nil.
func New(r Retriever, chat engine.Engine, logger *slog.Logger) *Answerer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Answerer{retriever: r, chat: chat, logger: logger}
}

// Answer returns the chat model's reply to question, in language, grounded
// on the k best chunks. The reply is returned unmodified.
func (a *Answerer) Answer(ctx context.Context, question, language string, k int) (string, error) {
	chunks, err := a.retriever.Retrieve(ctx, question, k)
	if err != nil {
		return "", fmt.Errorf("retrieving context: %w", err)
	}
	if len(chunks) == 0 {
		a.logger.InfoContext(ctx, "no chunk retrieved, returning fallback")
		return FallbackMessage, nil
	}

	ctxText := composer.Context(chunks)
	a.logger.DebugContext(ctx, "answering",
		"chunks", len(chunks),
		"language", language,
		"context_tokens", composer.EstimateTokens(ctxText),
	)

	reply, err := a.chat.Chat(ctx, composer.Compose(question, language, ctxText))
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	return reply, nil
}
