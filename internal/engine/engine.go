package engine

import "context"

// Engine abstracts the model provider used for embeddings and chat
// completions. Consumers such as ingestion, retrieval and answering use this
// interface instead of depending on a concrete client.
type Engine interface {
	// Chat sends messages to the chat model and returns the assistant's reply.
	Chat(ctx context.Context, messages []Message) (string, error)

	// Embed returns the embedding vector for text.
	Embed(ctx context.Context, text string) ([]float32, error)
}
