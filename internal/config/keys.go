package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kBool
	kFloat
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

func azureSpecs(section string, sel func(cfg *Config) *AzureConfig) []keySpec {
	envPrefix := "PDFQA_" + strings.ToUpper(section) + "_"
	return []keySpec{
		{
			key: section + ".azure_endpoint", typ: kString, env: envPrefix + "AZURE_ENDPOINT",
			apply:   func(cfg *Config, v any) { sel(cfg).Endpoint = v.(string) },
			extract: func(cfg Config) any { return sel(&cfg).Endpoint },
		},
		{
			key: section + ".azure_deployment", typ: kString, env: envPrefix + "AZURE_DEPLOYMENT",
			apply:   func(cfg *Config, v any) { sel(cfg).Deployment = v.(string) },
			extract: func(cfg Config) any { return sel(&cfg).Deployment },
		},
		{
			key: section + ".azure_api_key", typ: kString, env: envPrefix + "AZURE_API_KEY",
			secret:  true,
			apply:   func(cfg *Config, v any) { sel(cfg).APIKey = v.(string) },
			extract: func(cfg Config) any { return sel(&cfg).APIKey },
		},
		{
			key: section + ".azure_api_version", typ: kString, env: envPrefix + "AZURE_API_VERSION",
			apply:   func(cfg *Config, v any) { sel(cfg).APIVersion = v.(string) },
			extract: func(cfg Config) any { return sel(&cfg).APIVersion },
		},
		{
			key: section + ".requests_per_second", typ: kFloat, env: envPrefix + "REQUESTS_PER_SECOND",
			apply:   func(cfg *Config, v any) { sel(cfg).RequestsPerSecond = v.(float64) },
			extract: func(cfg Config) any { return sel(&cfg).RequestsPerSecond },
		},
	}
}

var specs = append(append(
	azureSpecs("embedding", func(cfg *Config) *AzureConfig { return &cfg.Embedding }),
	azureSpecs("chat", func(cfg *Config) *AzureConfig { return &cfg.Chat })...),
	[]keySpec{
		{
			key: "provider", typ: kString, env: "PDFQA_PROVIDER",
			apply:   func(cfg *Config, v any) { cfg.Provider = v.(string) },
			extract: func(cfg Config) any { return cfg.Provider },
		},
		{
			key: "ollama.base_url", typ: kString, env: "PDFQA_OLLAMA_BASE_URL",
			apply:   func(cfg *Config, v any) { cfg.Ollama.BaseURL = v.(string) },
			extract: func(cfg Config) any { return cfg.Ollama.BaseURL },
		},
		{
			key: "ollama.chat_model", typ: kString, env: "PDFQA_OLLAMA_CHAT_MODEL",
			apply:   func(cfg *Config, v any) { cfg.Ollama.ChatModel = v.(string) },
			extract: func(cfg Config) any { return cfg.Ollama.ChatModel },
		},
		{
			key: "ollama.embed_model", typ: kString, env: "PDFQA_OLLAMA_EMBED_MODEL",
			apply:   func(cfg *Config, v any) { cfg.Ollama.EmbedModel = v.(string) },
			extract: func(cfg Config) any { return cfg.Ollama.EmbedModel },
		},
		{
			key: "chunking.size", typ: kInt, env: "PDFQA_CHUNKING_SIZE",
			apply:   func(cfg *Config, v any) { cfg.Chunking.Size = v.(int) },
			extract: func(cfg Config) any { return cfg.Chunking.Size },
		},
		{
			key: "chunking.overlap", typ: kInt, env: "PDFQA_CHUNKING_OVERLAP",
			apply:   func(cfg *Config, v any) { cfg.Chunking.Overlap = v.(int) },
			extract: func(cfg Config) any { return cfg.Chunking.Overlap },
		},
		{
			key: "chunking.strategy", typ: kString, env: "PDFQA_CHUNKING_STRATEGY",
			apply:   func(cfg *Config, v any) { cfg.Chunking.Strategy = v.(string) },
			extract: func(cfg Config) any { return cfg.Chunking.Strategy },
		},
		{
			key: "ingest.metadata_chunk", typ: kBool, env: "PDFQA_INGEST_METADATA_CHUNK",
			apply:   func(cfg *Config, v any) { cfg.Ingest.MetadataChunk = v.(bool) },
			extract: func(cfg Config) any { return cfg.Ingest.MetadataChunk },
		},
		{
			key: "ingest.embed_concurrency", typ: kInt, env: "PDFQA_INGEST_EMBED_CONCURRENCY",
			apply:   func(cfg *Config, v any) { cfg.Ingest.EmbedConcurrency = v.(int) },
			extract: func(cfg Config) any { return cfg.Ingest.EmbedConcurrency },
		},
		{
			key: "retrieval.top_k", typ: kInt, env: "PDFQA_RETRIEVAL_TOP_K",
			apply:   func(cfg *Config, v any) { cfg.Retrieval.TopK = v.(int) },
			extract: func(cfg Config) any { return cfg.Retrieval.TopK },
		},
		{
			key: "answer.default_language", typ: kString, env: "PDFQA_ANSWER_DEFAULT_LANGUAGE",
			apply:   func(cfg *Config, v any) { cfg.Answer.DefaultLanguage = v.(string) },
			extract: func(cfg Config) any { return cfg.Answer.DefaultLanguage },
		},
		{
			key: "backend.default", typ: kString, env: "PDFQA_BACKEND",
			apply:   func(cfg *Config, v any) { cfg.Backend.Default = v.(string) },
			extract: func(cfg Config) any { return cfg.Backend.Default },
		},
		{
			key: "server.port", typ: kInt, env: "PDFQA_SERVER_PORT",
			apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
			extract: func(cfg Config) any { return cfg.Server.Port },
		},
		{
			key: "server.max_connections", typ: kInt, env: "PDFQA_SERVER_MAX_CONNECTIONS",
			apply:   func(cfg *Config, v any) { cfg.Server.MaxConnections = v.(int) },
			extract: func(cfg Config) any { return cfg.Server.MaxConnections },
		},
		{
			key: "server.token", typ: kString, env: "PDFQA_SERVER_TOKEN",
			secret:  true,
			apply:   func(cfg *Config, v any) { cfg.Server.Token = v.(string) },
			extract: func(cfg Config) any { return cfg.Server.Token },
		},
		{
			key: "storage.data_dir", typ: kString, env: "PDFQA_STORAGE_DATA_DIR",
			apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
			extract: func(cfg Config) any { return cfg.Storage.DataDir },
		},
		{
			key: "log.level", typ: kString, env: "PDFQA_LOG_LEVEL",
			apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
			extract: func(cfg Config) any { return cfg.Log.Level },
		},
	}...)

// parseValue converts raw into the Go type expected by s.
func (s keySpec) parseValue(raw string) (any, error) {
	switch s.typ {
	case kInt:
		i, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid integer value for %s: %w", s.key, err)
		}
		return i, nil
	case kBool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid bool value for %s: %w", s.key, err)
		}
		return b, nil
	case kFloat:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid float value for %s: %w", s.key, err)
		}
		return f, nil
	default:
		return raw, nil
	}
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		v, err := s.parseValue(raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[WARN] could not parse env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			continue
		}
		s.apply(cfg, v)
	}
}
