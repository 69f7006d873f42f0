package llm

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/scoutlens/scoutlens/internal/domain"
	"github.com/scoutlens/scoutlens/internal/governor"
)

const rateKeyChat = "llm:chat"

// HTTPClient talks to an OpenAI-compatible chat-completions endpoint
// described by a ProviderSpec. Every call is rate limited, cached, and
// bounded by the spec's timeout.
type HTTPClient struct {
	spec       ProviderSpec
	httpClient *http.Client
	limiter    *governor.RateLimiter
	cache      *governor.Cache
	cacheTTL   time.Duration
}

func NewHTTPClient(spec ProviderSpec, limiter *governor.RateLimiter, cache *governor.Cache, cacheTTL time.Duration) *HTTPClient {
	return &HTTPClient{
		spec:       spec,
		httpClient: &http.Client{},
		limiter:    limiter,
		cache:      cache,
		cacheTTL:   cacheTTL,
	}
}

// Provider returns the provider name from the descriptor.
func (c *HTTPClient) Provider() string { return c.spec.Name }

// chat types for the OpenAI-compatible API
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *HTTPClient) cacheKey(prompt string, opts domain.InferOptions) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%.2f|%d|%s|%s", c.spec.BaseURL, c.spec.Model, opts.Temperature, opts.MaxTokens, opts.System, prompt)
	return "llm:" + hex.EncodeToString(h.Sum(nil))
}

func (c *HTTPClient) Infer(ctx context.Context, prompt string, opts domain.InferOptions) (string, error) {
	key := c.cacheKey(prompt, opts)
	if c.cache != nil {
		if v, ok := c.cache.Get(key); ok {
			if s, ok := v.(string); ok {
				return s, nil
			}
		}
	}

	if c.limiter != nil && !c.limiter.Acquire(rateKeyChat) {
		return "", governor.ErrRateLimited
	}
	if !governor.BudgetFrom(ctx).Acquire() {
		return "", governor.ErrBudgetExhausted
	}

	messages := make([]chatMessage, 0, 2)
	if opts.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: opts.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: prompt})

	body, err := json.Marshal(chatRequest{
		Model:       c.spec.Model,
		Messages:    messages,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.spec.Timeout)
	defer cancel()

	url := strings.TrimRight(c.spec.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.spec.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", governor.Transient(c.spec.Name, fmt.Errorf("chat request failed: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", governor.Transient(c.spec.Name, fmt.Errorf("read chat response: %w", err))
	}

	if kind, bad := governor.ClassifyHTTP(resp.StatusCode); bad {
		return "", &governor.ExternalError{
			Kind:     kind,
			Provider: c.spec.Name,
			Err:      fmt.Errorf("chat API returned status %d: %s", resp.StatusCode, truncate(string(respBody), 200)),
		}
	}

	var result chatResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", governor.Malformed(c.spec.Name, fmt.Errorf("unmarshal chat response: %w", err))
	}
	if result.Error != nil {
		return "", governor.Malformed(c.spec.Name, fmt.Errorf("chat API error: %s", result.Error.Message))
	}
	if len(result.Choices) == 0 {
		return "", governor.Malformed(c.spec.Name, fmt.Errorf("chat API returned no choices"))
	}

	out := strings.TrimSpace(result.Choices[0].Message.Content)
	if c.cache != nil {
		c.cache.Set(key, out, c.cacheTTL)
	}
	return out, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
