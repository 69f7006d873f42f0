package search

import (
	"context"
	"sync"

	"github.com/scoutlens/scoutlens/internal/domain"
	"github.com/scoutlens/scoutlens/internal/governor"
)

// MockClient is a configurable search client for testing. Responses
// are keyed by query; ResultsFunc, when set, takes precedence.
// Safe for concurrent use.
type MockClient struct {
	mu sync.Mutex

	Results     map[string][]domain.SearchResult
	ResultsFunc func(query string, maxResults int) ([]domain.SearchResult, error)
	SearchError error

	// Call tracking for assertions
	SearchCalls []string
}

func NewMockClient() *MockClient {
	return &MockClient{Results: make(map[string][]domain.SearchResult)}
}

func (c *MockClient) Search(ctx context.Context, query string, maxResults int) ([]domain.SearchResult, error) {
	// Mirrors the real client: refused calls are never recorded.
	if !governor.BudgetFrom(ctx).Acquire() {
		return nil, governor.ErrBudgetExhausted
	}

	c.mu.Lock()
	c.SearchCalls = append(c.SearchCalls, query)
	fn := c.ResultsFunc
	err := c.SearchError
	results := c.Results[query]
	c.mu.Unlock()

	if fn != nil {
		return fn(query, maxResults)
	}
	if err != nil {
		return nil, err
	}
	if len(results) > maxResults {
		results = results[:maxResults]
	}
	return results, nil
}

// Calls returns a copy of the recorded queries.
func (c *MockClient) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.SearchCalls))
	copy(out, c.SearchCalls)
	return out
}

// MockFetcher is a configurable page fetcher for testing.
type MockFetcher struct {
	mu sync.Mutex

	Abstract   string
	FetchError error

	// Call tracking for assertions
	FetchCalls []string
}

func (f *MockFetcher) FetchAbstract(ctx context.Context, url string) (string, error) {
	if !governor.BudgetFrom(ctx).Acquire() {
		return "", governor.ErrBudgetExhausted
	}

	f.mu.Lock()
	f.FetchCalls = append(f.FetchCalls, url)
	f.mu.Unlock()

	if f.FetchError != nil {
		return "", f.FetchError
	}
	return f.Abstract, nil
}

// Calls returns a copy of the recorded fetch URLs.
func (f *MockFetcher) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.FetchCalls))
	copy(out, f.FetchCalls)
	return out
}
