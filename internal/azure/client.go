package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/kalambet/pdfqa/internal/config"
)

const (
	defaultTimeout    = 60 * time.Second
	defaultAPIVersion = "2024-02-01"
	maxRetries        = 3
	initialBackoff    = 500 * time.Millisecond
)

// ErrNotConfigured is returned when a client is used without an endpoint,
// deployment or API key.
var ErrNotConfigured = errors.New("azure openai deployment not configured")

// Client talks to one Azure OpenAI deployment. The same type serves the
// embedding and the chat deployment; only the called operation differs.
type Client struct {
	endpoint   string
	deployment string
	apiKey     string
	apiVersion string
	httpClient *http.Client
	limiter    *rate.Limiter
	backoff    time.Duration
}

// NewClient creates a client for the deployment described by cfg. A zero
// RequestsPerSecond disables client-side throttling.
func NewClient(cfg config.AzureConfig) *Client {
	version := cfg.APIVersion
	if version == "" {
		version = defaultAPIVersion
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return &Client{
		endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		deployment: cfg.Deployment,
		apiKey:     cfg.APIKey,
		apiVersion: version,
		httpClient: &http.Client{Timeout: defaultTimeout},
		limiter:    limiter,
		backoff:    initialBackoff,
	}
}

// Configured reports whether the client has everything it needs to make calls.
func (c *Client) Configured() bool {
	return c.endpoint != "" && c.deployment != "" && c.apiKey != ""
}

// Chat sends messages to the chat deployment and returns the first choice.
func (c *Client) Chat(ctx context.Context, messages []Message) (string, error) {
	var resp chatResponse
	if err := c.post(ctx, "chat/completions", chatRequest{Messages: messages}, &resp); err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: empty choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// Embed returns the embedding vector of text from the embedding deployment.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	var resp embeddingResponse
	if err := c.post(ctx, "embeddings", embeddingRequest{Input: []string{text}}, &resp); err != nil {
		return nil, fmt.Errorf("embedding: %w", err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("embedding: empty data")
	}
	return resp.Data[0].Embedding, nil
}

// rateLimitError is returned on HTTP 429.
type rateLimitError struct {
	status int
}

func (e *rateLimitError) Error() string {
	return fmt.Sprintf("rate limited (HTTP %d)", e.status)
}

func isRateLimit(err error) bool {
	var rl *rateLimitError
	return errors.As(err, &rl)
}

func (c *Client) post(ctx context.Context, operation string, in, out any) error {
	if !c.Configured() {
		return ErrNotConfigured
	}
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	var lastErr error
	for attempt := range maxRetries {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		err := c.do(ctx, operation, body, out)
		if err == nil {
			return nil
		}
		if !isRateLimit(err) {
			return err
		}

		lastErr = err
		if attempt < maxRetries-1 {
			backoff := time.Duration(float64(c.backoff) * math.Pow(2, float64(attempt)))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}
	}

	return fmt.Errorf("rate limited after %d retries: %w", maxRetries, lastErr)
}

func (c *Client) url(operation string) string {
	return fmt.Sprintf("%s/openai/deployments/%s/%s?api-version=%s",
		c.endpoint, url.PathEscape(c.deployment), operation, url.QueryEscape(c.apiVersion))
}

func (c *Client) do(ctx context.Context, operation string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(operation), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return &rateLimitError{status: resp.StatusCode}
	}
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var ae apiError
		if json.Unmarshal(respBody, &ae) == nil && ae.Error.Message != "" {
			return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, ae.Error.Message)
		}
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
