package engine

import (
	"context"

	"github.com/kalambet/pdfqa/internal/azure"
	"github.com/kalambet/pdfqa/internal/config"
)

// AzureEngine uses two Azure OpenAI deployments, one for embeddings and one
// for chat completions.
type AzureEngine struct {
	embed *azure.Client
	chat  *azure.Client
}

// NewAzureEngine creates an AzureEngine from the embedding and chat sections.
func NewAzureEngine(embedding, chat config.AzureConfig) *AzureEngine {
	return &AzureEngine{
		embed: azure.NewClient(embedding),
		chat:  azure.NewClient(chat),
	}
}

func (e *AzureEngine) Chat(ctx context.Context, messages []Message) (string, error) {
	msgs := make([]azure.Message, len(messages))
	for i, m := range messages {
		msgs[i] = azure.Message{Role: m.Role, Content: m.Content}
	}
	return e.chat.Chat(ctx, msgs)
}

func (e *AzureEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	return e.embed.Embed(ctx, text)
}

// Configured reports which deployments have credentials.
func (e *AzureEngine) Configured() (embedding, chat bool) {
	return e.embed.Configured(), e.chat.Configured()
}
