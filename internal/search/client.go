package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/scoutlens/scoutlens/internal/domain"
	"github.com/scoutlens/scoutlens/internal/governor"
	"go.uber.org/zap"
)

const rateKeyWeb = "search:web"

// Config describes the underlying search engines. An empty key
// disables that engine; at least one engine must be configured.
type Config struct {
	TavilyAPIKey string
	BochaAPIKey  string
	BochaBaseURL string
	Timeout      time.Duration
}

// Client is the retrieval collaborator: one logical search capability
// backed by multiple engines. Results are deduplicated by URL and
// merged in engine order. Calls are rate limited, cached, and retried.
type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    *governor.RateLimiter
	cache      *governor.Cache
	cacheTTL   time.Duration
	retry      governor.RetryPolicy
	logger     *zap.Logger
}

func NewClient(cfg Config, limiter *governor.RateLimiter, cache *governor.Cache, cacheTTL time.Duration, retry governor.RetryPolicy, logger *zap.Logger) (*Client, error) {
	if cfg.TavilyAPIKey == "" && (cfg.BochaAPIKey == "" || cfg.BochaBaseURL == "") {
		return nil, fmt.Errorf("no search engine configured (set TAVILY_API_KEY or BOCHA_API_KEY + BOCHA_BASE_URL)")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{},
		limiter:    limiter,
		cache:      cache,
		cacheTTL:   cacheTTL,
		retry:      retry,
		logger:     logger,
	}, nil
}

func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]domain.SearchResult, error) {
	if maxResults <= 0 {
		maxResults = 5
	}
	key := fmt.Sprintf("search:%d:%s", maxResults, query)
	if c.cache != nil {
		if v, ok := c.cache.Get(key); ok {
			if results, ok := v.([]domain.SearchResult); ok {
				return results, nil
			}
		}
	}

	if c.limiter != nil && !c.limiter.Acquire(rateKeyWeb) {
		return nil, governor.ErrRateLimited
	}

	var merged []domain.SearchResult
	var lastErr error

	if c.cfg.TavilyAPIKey != "" {
		var results []domain.SearchResult
		err := c.retry.Do(ctx, func() error {
			var searchErr error
			results, searchErr = c.searchTavily(ctx, query, maxResults)
			return searchErr
		})
		if err != nil {
			lastErr = err
			c.logger.Warn("tavily search failed", zap.String("query", query), zap.Error(err))
		} else {
			merged = append(merged, results...)
		}
	}

	if c.cfg.BochaAPIKey != "" && c.cfg.BochaBaseURL != "" {
		var results []domain.SearchResult
		err := c.retry.Do(ctx, func() error {
			var searchErr error
			results, searchErr = c.searchBocha(ctx, query, maxResults)
			return searchErr
		})
		if err != nil {
			lastErr = err
			c.logger.Warn("bocha search failed", zap.String("query", query), zap.Error(err))
		} else {
			merged = append(merged, results...)
		}
	}

	// One engine succeeding is a success; all engines failing surfaces
	// the last failure.
	if len(merged) == 0 && lastErr != nil {
		return nil, lastErr
	}

	seen := make(map[string]struct{}, len(merged))
	dedup := merged[:0]
	for _, r := range merged {
		if r.URL == "" {
			continue
		}
		if _, ok := seen[r.URL]; ok {
			continue
		}
		seen[r.URL] = struct{}{}
		dedup = append(dedup, r)
	}

	if c.cache != nil {
		c.cache.Set(key, dedup, c.cacheTTL)
	}
	return dedup, nil
}

func (c *Client) searchTavily(ctx context.Context, query string, maxResults int) ([]domain.SearchResult, error) {
	body, err := json.Marshal(map[string]any{
		"api_key":     c.cfg.TavilyAPIKey,
		"query":       query,
		"max_results": maxResults,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal tavily request: %w", err)
	}

	raw, err := c.post(ctx, "tavily", "https://api.tavily.com/search", nil, body)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Results []struct {
			Title   string `json:"title"`
			URL     string `json:"url"`
			Content string `json:"content"`
			Snippet string `json:"snippet"`
		} `json:"results"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, governor.Malformed("tavily", fmt.Errorf("unmarshal tavily response: %w", err))
	}

	out := make([]domain.SearchResult, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		snippet := r.Content
		if snippet == "" {
			snippet = r.Snippet
		}
		out = append(out, domain.SearchResult{Title: r.Title, URL: r.URL, Snippet: snippet, Source: "tavily"})
	}
	return out, nil
}

func (c *Client) searchBocha(ctx context.Context, query string, maxResults int) ([]domain.SearchResult, error) {
	body, err := json.Marshal(map[string]any{"q": query, "size": maxResults})
	if err != nil {
		return nil, fmt.Errorf("marshal bocha request: %w", err)
	}

	headers := map[string]string{"Authorization": "Bearer " + c.cfg.BochaAPIKey}
	raw, err := c.post(ctx, "bocha", strings.TrimRight(c.cfg.BochaBaseURL, "/"), headers, body)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Results []bochaItem `json:"results"`
		Items   []bochaItem `json:"items"`
		Data    []bochaItem `json:"data"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, governor.Malformed("bocha", fmt.Errorf("unmarshal bocha response: %w", err))
	}

	items := parsed.Results
	if len(items) == 0 {
		items = parsed.Items
	}
	if len(items) == 0 {
		items = parsed.Data
	}

	out := make([]domain.SearchResult, 0, len(items))
	for _, r := range items {
		snippet := r.Content
		if snippet == "" {
			snippet = r.Snippet
		}
		out = append(out, domain.SearchResult{Title: r.Title, URL: r.URL, Snippet: snippet, Source: "bocha"})
	}
	return out, nil
}

type bochaItem struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
	Snippet string `json:"snippet"`
}

func (c *Client) post(ctx context.Context, engine, url string, headers map[string]string, body []byte) ([]byte, error) {
	// Each engine request is one external call against the run budget.
	if !governor.BudgetFrom(ctx).Acquire() {
		return nil, governor.ErrBudgetExhausted
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", engine, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, governor.Transient(engine, fmt.Errorf("%s request failed: %w", engine, err))
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, governor.Transient(engine, fmt.Errorf("read %s response: %w", engine, err))
	}
	if kind, bad := governor.ClassifyHTTP(resp.StatusCode); bad {
		return nil, &governor.ExternalError{
			Kind:     kind,
			Provider: engine,
			Err:      fmt.Errorf("%s returned status %d", engine, resp.StatusCode),
		}
	}
	return raw, nil
}
