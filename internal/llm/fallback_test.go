package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/scoutlens/scoutlens/internal/domain"
	"github.com/scoutlens/scoutlens/internal/governor"
)

func fastRetry() governor.RetryPolicy {
	return governor.RetryPolicy{Attempts: 2, BaseDelay: time.Microsecond, MaxDelay: time.Microsecond}
}

func chatServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func chatOK(content string) []byte {
	b, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"content": content}},
		},
	})
	return b
}

func specFor(srv *httptest.Server, name, model string) ProviderSpec {
	return ProviderSpec{
		Name:    name,
		BaseURL: srv.URL,
		APIKey:  "test-key",
		Model:   model,
		Timeout: 5 * time.Second,
	}
}

func TestHTTPClientInfer(t *testing.T) {
	var gotModel string
	srv := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		gotModel = req.Model
		_, _ = w.Write(chatOK("hello"))
	})

	c := NewHTTPClient(specFor(srv, "openai", "gpt-4o-mini"), nil, nil, 0)
	out, err := c.Infer(context.Background(), "hi", domain.InferOptions{})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if out != "hello" {
		t.Fatalf("expected hello, got %q", out)
	}
	if gotModel != "gpt-4o-mini" {
		t.Fatalf("expected model from spec, got %q", gotModel)
	}
}

func TestHTTPClientCachesResponses(t *testing.T) {
	var calls atomic.Int64
	srv := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write(chatOK("cached"))
	})

	cache := governor.NewCache()
	c := NewHTTPClient(specFor(srv, "openai", "m"), nil, cache, time.Minute)

	for i := 0; i < 3; i++ {
		out, err := c.Infer(context.Background(), "same prompt", domain.InferOptions{})
		if err != nil || out != "cached" {
			t.Fatalf("infer %d: out=%q err=%v", i, out, err)
		}
	}
	if calls.Load() != 1 {
		t.Fatalf("expected 1 upstream call, got %d", calls.Load())
	}
}

func TestHTTPClientBudgetExhausted(t *testing.T) {
	var calls atomic.Int64
	srv := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write(chatOK("ok"))
	})
	c := NewHTTPClient(specFor(srv, "openai", "m"), nil, nil, 0)

	ctx := governor.WithBudget(context.Background(), governor.NewBudget(1, 0))
	if _, err := c.Infer(ctx, "a", domain.InferOptions{}); err != nil {
		t.Fatalf("first call should fit the budget: %v", err)
	}
	_, err := c.Infer(ctx, "b", domain.InferOptions{})
	if !errors.Is(err, governor.ErrBudgetExhausted) {
		t.Fatalf("expected budget exhausted, got %v", err)
	}
	if governor.KindOf(err) != governor.FailureBudget {
		t.Fatalf("expected budget kind, got %s", governor.KindOf(err))
	}
	if calls.Load() != 1 {
		t.Fatalf("refused call must not reach the provider, got %d upstream calls", calls.Load())
	}
}

func TestHTTPClientCacheKeyedByMaxTokens(t *testing.T) {
	var calls atomic.Int64
	srv := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write(chatOK("out"))
	})

	cache := governor.NewCache()
	c := NewHTTPClient(specFor(srv, "openai", "m"), nil, cache, time.Minute)

	if _, err := c.Infer(context.Background(), "same prompt", domain.InferOptions{MaxTokens: 8}); err != nil {
		t.Fatalf("first: %v", err)
	}
	if _, err := c.Infer(context.Background(), "same prompt", domain.InferOptions{MaxTokens: 600}); err != nil {
		t.Fatalf("second: %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("calls differing in max tokens must not share a cache entry, got %d upstream calls", calls.Load())
	}
	if _, err := c.Infer(context.Background(), "same prompt", domain.InferOptions{MaxTokens: 600}); err != nil {
		t.Fatalf("third: %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("identical options must hit the cache, got %d upstream calls", calls.Load())
	}
}

func TestHTTPClientRateLimited(t *testing.T) {
	srv := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(chatOK("ok"))
	})

	limiter := governor.NewRateLimiter(1, time.Minute)
	c := NewHTTPClient(specFor(srv, "openai", "m"), limiter, nil, 0)

	if _, err := c.Infer(context.Background(), "a", domain.InferOptions{}); err != nil {
		t.Fatalf("first call should pass: %v", err)
	}
	_, err := c.Infer(context.Background(), "b", domain.InferOptions{})
	if !errors.Is(err, governor.ErrRateLimited) {
		t.Fatalf("expected rate limited error, got %v", err)
	}
	if governor.KindOf(err) != governor.FailureRateLimited {
		t.Fatalf("expected rate_limited kind, got %s", governor.KindOf(err))
	}
}

func TestHTTPClientClassifiesStatuses(t *testing.T) {
	cases := []struct {
		status int
		kind   governor.FailureKind
	}{
		{http.StatusTooManyRequests, governor.FailureRateLimited},
		{http.StatusInternalServerError, governor.FailureTransient},
		{http.StatusBadRequest, governor.FailureMalformed},
	}
	for _, tc := range cases {
		srv := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		})
		c := NewHTTPClient(specFor(srv, "openai", "m"), nil, nil, 0)
		_, err := c.Infer(context.Background(), "p", domain.InferOptions{})
		if err == nil {
			t.Fatalf("status %d: expected error", tc.status)
		}
		if governor.KindOf(err) != tc.kind {
			t.Fatalf("status %d: expected kind %s, got %s", tc.status, tc.kind, governor.KindOf(err))
		}
	}
}

func TestHTTPClientMalformedBody(t *testing.T) {
	srv := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json at all"))
	})
	c := NewHTTPClient(specFor(srv, "openai", "m"), nil, nil, 0)

	_, err := c.Infer(context.Background(), "p", domain.InferOptions{})
	if governor.KindOf(err) != governor.FailureMalformed {
		t.Fatalf("expected malformed kind, got %v", err)
	}
}

func TestFallbackSwitchesProviderWithOwnModel(t *testing.T) {
	primary := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	var fallbackModel string
	secondary := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		fallbackModel = req.Model
		_, _ = w.Write(chatOK("from fallback"))
	})

	f := NewFallbackClient(fastRetry(), nil,
		NewHTTPClient(specFor(primary, "openai", "primary-model"), nil, nil, 0),
		NewHTTPClient(specFor(secondary, "deepseek", "fallback-model"), nil, nil, 0),
	)

	out, err := f.Infer(context.Background(), "p", domain.InferOptions{})
	if err != nil {
		t.Fatalf("expected fallback success, got %v", err)
	}
	if out != "from fallback" {
		t.Fatalf("expected fallback output, got %q", out)
	}
	if fallbackModel != "fallback-model" {
		t.Fatalf("fallback must use its own model, got %q", fallbackModel)
	}
}

func TestFallbackMalformedSkipsRetries(t *testing.T) {
	var primaryCalls atomic.Int64
	primary := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		primaryCalls.Add(1)
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})
	secondary := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(chatOK("rescued"))
	})

	f := NewFallbackClient(fastRetry(), nil,
		NewHTTPClient(specFor(primary, "openai", "m1"), nil, nil, 0),
		NewHTTPClient(specFor(secondary, "deepseek", "m2"), nil, nil, 0),
	)

	out, err := f.Infer(context.Background(), "p", domain.InferOptions{})
	if err != nil || out != "rescued" {
		t.Fatalf("expected rescue by fallback, out=%q err=%v", out, err)
	}
	if primaryCalls.Load() != 1 {
		t.Fatalf("malformed response must not be retried on same provider, got %d calls", primaryCalls.Load())
	}
}

func TestFallbackAllProvidersExhausted(t *testing.T) {
	failing := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	f := NewFallbackClient(fastRetry(), nil,
		NewHTTPClient(specFor(failing, "openai", "m1"), nil, nil, 0),
		NewHTTPClient(specFor(failing, "deepseek", "m2"), nil, nil, 0),
	)

	_, err := f.Infer(context.Background(), "p", domain.InferOptions{})
	if !errors.Is(err, governor.ErrProvidersExhausted) {
		t.Fatalf("expected providers exhausted, got %v", err)
	}
}

func TestFallbackStopsWhenBudgetExhausted(t *testing.T) {
	var calls atomic.Int64
	count := func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write(chatOK("ok"))
	}
	primary := chatServer(t, count)
	secondary := chatServer(t, count)

	f := NewFallbackClient(fastRetry(), nil,
		NewHTTPClient(specFor(primary, "openai", "m1"), nil, nil, 0),
		NewHTTPClient(specFor(secondary, "deepseek", "m2"), nil, nil, 0),
	)

	budget := governor.NewBudget(1, 0)
	budget.Acquire()
	ctx := governor.WithBudget(context.Background(), budget)

	_, err := f.Infer(ctx, "p", domain.InferOptions{})
	if !errors.Is(err, governor.ErrBudgetExhausted) {
		t.Fatalf("expected budget exhausted, got %v", err)
	}
	if errors.Is(err, governor.ErrProvidersExhausted) {
		t.Fatal("budget exhaustion must not be reported as provider exhaustion")
	}
	if calls.Load() != 0 {
		t.Fatalf("refused calls must not reach any provider, got %d", calls.Load())
	}
}

func TestNewFromSpecsMock(t *testing.T) {
	client, err := NewFromSpecs([]ProviderSpec{{Name: ProviderMock}}, nil, nil, 0, fastRetry(), nil)
	if err != nil {
		t.Fatalf("expected mock client, got %v", err)
	}
	if _, ok := client.(*MockClient); !ok {
		t.Fatalf("expected *MockClient, got %T", client)
	}
}

func TestNewFromSpecsRejectsMockInChain(t *testing.T) {
	_, err := NewFromSpecs([]ProviderSpec{
		{Name: ProviderOpenAI, APIKey: "k"},
		{Name: ProviderMock},
	}, nil, nil, 0, fastRetry(), nil)
	if err == nil {
		t.Fatal("mock provider in a fallback chain must be rejected")
	}
}
