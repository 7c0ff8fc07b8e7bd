package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Embedding AzureConfig     `yaml:"embedding"`
	Chat      AzureConfig     `yaml:"chat"`
	Provider  string          `yaml:"provider"`
	Ollama    OllamaConfig    `yaml:"ollama"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Answer    AnswerConfig    `yaml:"answer"`
	Backend   BackendConfig   `yaml:"backend"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Log       LogConfig       `yaml:"log"`
}

// AzureConfig holds the credentials of one Azure OpenAI deployment. The
// embedding and chat sections share this shape.
type AzureConfig struct {
	Endpoint          string  `yaml:"azure_endpoint"`
	Deployment        string  `yaml:"azure_deployment"`
	APIKey            string  `yaml:"azure_api_key"`
	APIVersion        string  `yaml:"azure_api_version"`
	RequestsPerSecond float64 `yaml:"requests_per_second,omitempty"`
}

type OllamaConfig struct {
	BaseURL    string `yaml:"base_url"`
	ChatModel  string `yaml:"chat_model"`
	EmbedModel string `yaml:"embed_model"`
}

type ChunkingConfig struct {
	Size     int    `yaml:"size"`
	Overlap  int    `yaml:"overlap"`
	Strategy string `yaml:"strategy"`
}

type IngestConfig struct {
	MetadataChunk    bool `yaml:"metadata_chunk"`
	EmbedConcurrency int  `yaml:"embed_concurrency"`
}

type RetrievalConfig struct {
	TopK int `yaml:"top_k"`
}

type AnswerConfig struct {
	DefaultLanguage string `yaml:"default_language"`
}

type BackendConfig struct {
	Default string `yaml:"default"`
}

type ServerConfig struct {
	Port           int    `yaml:"port"`
	MaxConnections int    `yaml:"max_connections"`
	Token          string `yaml:"token"`
}

type StorageConfig struct {
	DataDir string `yaml:"data_dir"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Provider names accepted in the provider key.
const (
	ProviderAzure  = "azure"
	ProviderOllama = "ollama"
)

func defaults() Config {
	return Config{
		Embedding: AzureConfig{APIVersion: "2024-02-01"},
		Chat:      AzureConfig{APIVersion: "2024-02-01"},
		Provider:  ProviderAzure,
		Ollama: OllamaConfig{
			BaseURL:    "http://localhost:11434",
			ChatModel:  "mistral-nemo",
			EmbedModel: "nomic-embed-text",
		},
		Chunking: ChunkingConfig{
			Size:     1000,
			Overlap:  200,
			Strategy: "recursive",
		},
		Ingest: IngestConfig{
			MetadataChunk:    true,
			EmbedConcurrency: 4,
		},
		Retrieval: RetrievalConfig{TopK: 5},
		Answer:    AnswerConfig{DefaultLanguage: "French"},
		Backend:   BackendConfig{Default: "dict"},
		Server: ServerConfig{
			Port:           4100,
			MaxConnections: 16,
		},
		Storage: StorageConfig{DataDir: defaultDataDir()},
		Log:     LogConfig{Level: "info"},
	}
}

// Load reads the YAML configuration at path, then applies PDFQA_* environment
// overrides. A missing or unparsable file is not an error: a warning is
// printed and defaults are used, leaving the service credentials empty so
// that clients fail when they are first used.
func Load(path string) (Config, error) {
	cfg := defaults()

	if path != "" {
		if err := readFile(path, &cfg); err != nil {
			fmt.Fprintf(os.Stderr, "[WARN] %v. Using default values.\n", err)
			cfg = defaults()
		}
	}

	applyEnvOverrides(&cfg)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func readFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("could not read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("could not parse config file %s: %w", path, err)
	}
	return nil
}

func (c Config) validate() error {
	if c.Chunking.Size <= 0 {
		return fmt.Errorf("invalid config: chunking.size must be positive, got %d", c.Chunking.Size)
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.Size {
		return fmt.Errorf("invalid config: chunking.overlap must be in [0, %d), got %d", c.Chunking.Size, c.Chunking.Overlap)
	}
	if c.Retrieval.TopK < 1 {
		return fmt.Errorf("invalid config: retrieval.top_k must be at least 1, got %d", c.Retrieval.TopK)
	}
	switch c.Provider {
	case ProviderAzure, ProviderOllama:
	default:
		return fmt.Errorf("invalid config: unknown provider %q", c.Provider)
	}
	return nil
}

// DefaultPath returns the config file location: $PDFQA_CONFIG when set,
// ./secrets/config.yaml when it exists, otherwise the XDG config path.
func DefaultPath() string {
	if p := os.Getenv("PDFQA_CONFIG"); p != "" {
		return p
	}
	local := filepath.Join("secrets", "config.yaml")
	if _, err := os.Stat(local); err == nil {
		return local
	}
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".config")
		} else {
			dir = "."
		}
	}
	return filepath.Join(dir, "pdfqa", "config.yaml")
}

func defaultDataDir() string {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".local", "share")
		} else {
			return "pdfqa-data"
		}
	}
	return filepath.Join(dir, "pdfqa")
}

// Save writes cfg to path as YAML, creating parent directories.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// loadFileOnly reads path without env overrides. A missing file yields
// defaults so that "config set" can create it.
func loadFileOnly(path string) (Config, error) {
	cfg := defaults()
	if err := readFile(path, &cfg); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaults(), nil
		}
		return Config{}, err
	}
	return cfg, nil
}
