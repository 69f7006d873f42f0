package search

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/scoutlens/scoutlens/internal/governor"
)

func TestExtractAbstractArxiv(t *testing.T) {
	page := `<html><body>
	<blockquote class="abstract mathjax">
	<span class="descriptor">Abstract:</span> We propose a novel method for entity resolution.
	</blockquote></body></html>`

	got := ExtractAbstract("https://arxiv.org/abs/2401.00001", page)
	if !strings.Contains(got, "We propose a novel method") {
		t.Fatalf("arxiv abstract not extracted: %q", got)
	}
	if strings.Contains(got, "Abstract:") {
		t.Fatalf("descriptor label should be stripped: %q", got)
	}
	if strings.Contains(got, "<") {
		t.Fatalf("tags should be stripped: %q", got)
	}
}

func TestExtractAbstractMetaDescription(t *testing.T) {
	page := `<html><head>
	<meta name="description" content="A study of cross-source validation &amp; evidence.">
	</head><body>nothing here</body></html>`

	got := ExtractAbstract("https://example.com/paper", page)
	if got != "A study of cross-source validation & evidence." {
		t.Fatalf("meta description not extracted: %q", got)
	}
}

func TestExtractAbstractBodyMarker(t *testing.T) {
	page := `<html><body>
	<script>var junk = "Abstract nope";</script>
	<div>Navigation</div>
	<p>Abstract This paper studies identity disambiguation across retrieval sources.</p>
	</body></html>`

	got := ExtractAbstract("https://example.com/page", page)
	if !strings.HasPrefix(got, "Abstract This paper studies") {
		t.Fatalf("body marker scan failed: %q", got)
	}
}

func TestExtractAbstractNothingFound(t *testing.T) {
	if got := ExtractAbstract("https://example.com", "<html><body>plain page</body></html>"); got != "" {
		t.Fatalf("expected empty result, got %q", got)
	}
}

func TestFetchAbstract(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><head><meta name="description" content="fetched abstract"></head></html>`))
	}))
	defer srv.Close()

	f := NewFetcher(nil, 5*time.Second)
	got, err := f.FetchAbstract(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if got != "fetched abstract" {
		t.Fatalf("unexpected abstract: %q", got)
	}
}

func TestFetchAbstractErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewFetcher(nil, 5*time.Second)
	if _, err := f.FetchAbstract(context.Background(), srv.URL); err == nil {
		t.Fatal("expected error on 404")
	}
}

func TestFetchAbstractBudgetExhausted(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	budget := governor.NewBudget(1, 0)
	budget.Acquire()
	ctx := governor.WithBudget(context.Background(), budget)

	f := NewFetcher(nil, time.Second)
	_, err := f.FetchAbstract(ctx, srv.URL)
	if !errors.Is(err, governor.ErrBudgetExhausted) {
		t.Fatalf("expected budget exhausted, got %v", err)
	}
	if hits.Load() != 0 {
		t.Fatalf("refused fetch must not hit the page, got %d requests", hits.Load())
	}
}

func TestFetchAbstractEmptyURL(t *testing.T) {
	f := NewFetcher(nil, time.Second)
	if _, err := f.FetchAbstract(context.Background(), ""); err == nil {
		t.Fatal("expected error on empty url")
	}
}
