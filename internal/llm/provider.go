package llm

import (
	"fmt"
	"time"

	"github.com/scoutlens/scoutlens/internal/domain"
	"github.com/scoutlens/scoutlens/internal/governor"
	"go.uber.org/zap"
)

// Provider constants
const (
	ProviderOpenAI   = "openai"
	ProviderDeepSeek = "deepseek"
	ProviderMock     = "mock"
)

// ProviderSpec fully describes one inference provider: endpoint,
// credentials, and capability parameters. Fallback never reuses the
// primary's parameters; each provider carries its own.
type ProviderSpec struct {
	Name    string
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// DefaultBaseURL returns the chat-completions endpoint base for a
// known provider name.
func DefaultBaseURL(provider string) string {
	switch provider {
	case ProviderDeepSeek:
		return "https://api.deepseek.com/v1"
	case ProviderOpenAI:
		return "https://api.openai.com/v1"
	default:
		return ""
	}
}

// DefaultModel returns the default model identifier for a known
// provider name.
func DefaultModel(provider string) string {
	switch provider {
	case ProviderDeepSeek:
		return "deepseek-chat"
	case ProviderOpenAI:
		return "gpt-4o-mini"
	default:
		return ""
	}
}

// Normalize fills unset spec fields with provider defaults.
func (s ProviderSpec) Normalize() (ProviderSpec, error) {
	if s.Name == ProviderMock {
		return s, nil
	}
	if s.BaseURL == "" {
		s.BaseURL = DefaultBaseURL(s.Name)
	}
	if s.Model == "" {
		s.Model = DefaultModel(s.Name)
	}
	if s.BaseURL == "" || s.Model == "" {
		return s, fmt.Errorf("unknown inference provider: %s (valid options: openai, deepseek, mock)", s.Name)
	}
	if s.APIKey == "" {
		return s, fmt.Errorf("API key is required for provider %s", s.Name)
	}
	if s.Timeout <= 0 {
		s.Timeout = 120 * time.Second
	}
	return s, nil
}

// NewFromSpecs builds an inference client from one or more provider
// descriptors. With more than one spec the result is a fallback chain:
// the secondary is tried only after the primary's retries are
// exhausted.
func NewFromSpecs(specs []ProviderSpec, limiter *governor.RateLimiter, cache *governor.Cache, cacheTTL time.Duration, retry governor.RetryPolicy, logger *zap.Logger) (domain.InferenceClient, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("at least one provider spec is required")
	}

	clients := make([]*HTTPClient, 0, len(specs))
	for _, spec := range specs {
		if spec.Name == ProviderMock {
			if len(specs) == 1 {
				return NewMockClient(), nil
			}
			return nil, fmt.Errorf("mock provider cannot be part of a fallback chain")
		}
		normalized, err := spec.Normalize()
		if err != nil {
			return nil, err
		}
		clients = append(clients, NewHTTPClient(normalized, limiter, cache, cacheTTL))
	}

	if len(clients) == 1 {
		return NewFallbackClient(retry, logger, clients[0]), nil
	}
	return NewFallbackClient(retry, logger, clients...), nil
}
