package search

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/scoutlens/scoutlens/internal/governor"
)

const rateKeyPage = "fetch:page"

var (
	arxivAbstractRe = regexp.MustCompile(`(?is)<blockquote[^>]*class="abstract"[^>]*>(.*?)</blockquote>`)
	metaDescRes     = []*regexp.Regexp{
		regexp.MustCompile(`(?i)<meta[^>]+name="description"[^>]+content="([^"]+)"`),
		regexp.MustCompile(`(?i)<meta[^>]+property="og:description"[^>]+content="([^"]+)"`),
		regexp.MustCompile(`(?i)<meta[^>]+name="twitter:description"[^>]+content="([^"]+)"`),
	}
	scriptRe = regexp.MustCompile(`(?is)<script.*?</script>`)
	styleRe  = regexp.MustCompile(`(?is)<style.*?</style>`)
	tagRe    = regexp.MustCompile(`<[^>]+>`)
)

// Fetcher retrieves a page and extracts abstract-like text from it:
// arXiv abstract blocks, meta descriptions, or a body scan around
// abstract markers. It shares the governor with the search client
// under its own rate key.
type Fetcher struct {
	httpClient *http.Client
	limiter    *governor.RateLimiter
	timeout    time.Duration
}

func NewFetcher(limiter *governor.RateLimiter, timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Fetcher{httpClient: &http.Client{}, limiter: limiter, timeout: timeout}
}

func (f *Fetcher) FetchAbstract(ctx context.Context, url string) (string, error) {
	if url == "" {
		return "", fmt.Errorf("empty url")
	}
	if f.limiter != nil && !f.limiter.Acquire(rateKeyPage) {
		return "", governor.ErrRateLimited
	}
	if !governor.BudgetFrom(ctx).Acquire() {
		return "", governor.ErrBudgetExhausted
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create fetch request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", governor.Transient("fetch", fmt.Errorf("fetch %s: %w", url, err))
	}
	defer func() { _ = resp.Body.Close() }()

	if kind, bad := governor.ClassifyHTTP(resp.StatusCode); bad {
		return "", &governor.ExternalError{
			Kind:     kind,
			Provider: "fetch",
			Err:      fmt.Errorf("fetch %s returned status %d", url, resp.StatusCode),
		}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return "", governor.Transient("fetch", fmt.Errorf("read page body: %w", err))
	}

	return ExtractAbstract(url, string(raw)), nil
}

// ExtractAbstract pulls the best abstract candidate out of raw HTML.
// Returns "" when nothing usable is found.
func ExtractAbstract(url, page string) string {
	if strings.Contains(url, "arxiv.org") {
		if m := arxivAbstractRe.FindStringSubmatch(page); m != nil {
			raw := tagRe.ReplaceAllString(m[1], " ")
			raw = html.UnescapeString(raw)
			raw = strings.ReplaceAll(raw, "Abstract:", "")
			return strings.TrimSpace(raw)
		}
	}

	for _, re := range metaDescRes {
		if m := re.FindStringSubmatch(page); m != nil {
			return strings.TrimSpace(html.UnescapeString(m[1]))
		}
	}

	body := scriptRe.ReplaceAllString(page, " ")
	body = styleRe.ReplaceAllString(body, " ")
	body = tagRe.ReplaceAllString(body, " ")
	body = html.UnescapeString(body)

	best := ""
	for _, marker := range []string{"Abstract", "ABSTRACT", "摘要"} {
		idx := strings.Index(body, marker)
		if idx < 0 {
			continue
		}
		end := idx + 4000
		if end > len(body) {
			end = len(body)
		}
		candidate := strings.TrimSpace(body[idx:end])
		if len(candidate) > len(best) {
			best = candidate
		}
	}
	return best
}
