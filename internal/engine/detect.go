package engine

import (
	"fmt"

	"github.com/kalambet/pdfqa/internal/config"
)

// New returns the Engine selected by cfg.Provider.
func New(cfg config.Config) (Engine, error) {
	switch cfg.Provider {
	case config.ProviderAzure, "":
		return NewAzureEngine(cfg.Embedding, cfg.Chat), nil
	case config.ProviderOllama:
		return NewOllamaEngine(cfg.Ollama.BaseURL, cfg.Ollama.ChatModel, cfg.Ollama.EmbedModel), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}
