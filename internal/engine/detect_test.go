package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kalambet/pdfqa/internal/config"
)

func TestNew_Provider(t *testing.T) {
	cfg := config.Config{Provider: config.ProviderAzure}
	e, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := e.(*AzureEngine); !ok {
		t.Errorf("New returned %T, want *AzureEngine", e)
	}

	cfg.Provider = config.ProviderOllama
	e, err = New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := e.(*OllamaEngine); !ok {
		t.Errorf("New returned %T, want *OllamaEngine", e)
	}

	cfg.Provider = "bogus"
	if _, err := New(cfg); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestAzureEngine_SplitsDeployments(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if strings.HasSuffix(r.URL.Path, "/embeddings") {
			fmt.Fprint(w, `{"data":[{"index":0,"embedding":[1,0]}]}`)
			return
		}
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"hi"}}]}`)
	}))
	defer srv.Close()

	e := NewAzureEngine(
		config.AzureConfig{Endpoint: srv.URL, Deployment: "emb", APIKey: "k"},
		config.AzureConfig{Endpoint: srv.URL, Deployment: "gpt", APIKey: "k"},
	)
	if _, err := e.Embed(context.Background(), "x"); err != nil {
		t.Fatalf("Embed: %v", err)
	}
	reply, err := e.Chat(context.Background(), []Message{User("x")})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if reply != "hi" {
		t.Errorf("reply = %q", reply)
	}
	want := []string{"/openai/deployments/emb/embeddings", "/openai/deployments/gpt/chat/completions"}
	if len(paths) != 2 || paths[0] != want[0] || paths[1] != want[1] {
		t.Errorf("paths = %v, want %v", paths, want)
	}
}

func TestOllamaEngine_UsesModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		switch r.URL.Path {
		case "/api/chat":
			if body["model"] != "chat-m" {
				t.Errorf("chat model = %v", body["model"])
			}
			json.NewEncoder(w).Encode(map[string]any{
				"message": map[string]string{"role": "assistant", "content": "hello from ollama"},
			})
		case "/api/embed":
			if body["model"] != "embed-m" {
				t.Errorf("embed model = %v", body["model"])
			}
			json.NewEncoder(w).Encode(map[string]any{"embeddings": [][]float32{{0.5, 0.5}}})
		}
	}))
	defer srv.Close()

	e := NewOllamaEngine(srv.URL, "chat-m", "embed-m")
	reply, err := e.Chat(context.Background(), []Message{System("s"), User("u")})
	if err != nil || reply != "hello from ollama" {
		t.Errorf("Chat = %q, %v", reply, err)
	}
	vec, err := e.Embed(context.Background(), "u")
	if err != nil || len(vec) != 2 {
		t.Errorf("Embed = %v, %v", vec, err)
	}
}

func TestEnsureReady_AzureWarnsWhenUnconfigured(t *testing.T) {
	e := NewAzureEngine(config.AzureConfig{}, config.AzureConfig{Endpoint: "https://x", Deployment: "d", APIKey: "k"})
	var out bytes.Buffer
	if err := EnsureReady(context.Background(), e, &out); err != nil {
		t.Fatalf("EnsureReady: %v", err)
	}
	if !strings.Contains(out.String(), "embedding deployment is not configured") {
		t.Errorf("output = %q", out.String())
	}
	if strings.Contains(out.String(), "chat deployment") {
		t.Errorf("chat deployment reported unconfigured: %q", out.String())
	}
}

func TestEnsureReady_OllamaDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	e := NewOllamaEngine(srv.URL, "c", "e")
	if err := EnsureReady(context.Background(), e, &bytes.Buffer{}); err == nil {
		t.Fatal("expected error when ollama is down")
	}
}
