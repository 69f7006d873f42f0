package domain

import (
	"context"

	"github.com/google/uuid"
)

// InferOptions carries per-call inference parameters. The model
// identifier is deliberately absent: it belongs to the provider
// descriptor, so a fallback provider never sees the primary's model.
type InferOptions struct {
	System      string
	Temperature float32
	MaxTokens   int
}

// InferenceClient is the narrow interface to the large-language-model
// collaborator.
type InferenceClient interface {
	Infer(ctx context.Context, prompt string, opts InferOptions) (string, error)
}

// SearchResult is one retrieval hit.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
	Source  string `json:"source,omitempty"`
}

// SearchClient is the narrow interface to the web-retrieval
// collaborator. It may be backed by multiple underlying engines.
type SearchClient interface {
	Search(ctx context.Context, query string, maxResults int) ([]SearchResult, error)
}

// PageFetcher retrieves abstract-like text from a result URL.
type PageFetcher interface {
	FetchAbstract(ctx context.Context, url string) (string, error)
}

// EmbeddingClient produces text embeddings for relevance scoring.
type EmbeddingClient interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// RunStore persists finished enrichment records.
type RunStore interface {
	Save(ctx context.Context, record *EnrichedProfile) error
	GetByID(ctx context.Context, id uuid.UUID) (*EnrichedProfile, error)
}
