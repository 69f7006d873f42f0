package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/scoutlens/scoutlens/internal/domain"
	"github.com/scoutlens/scoutlens/internal/governor"
	"go.uber.org/zap"
)

// FallbackClient chains providers. The next provider is tried only
// after the current one's retry attempts are exhausted, so a single
// transient failure never masks itself behind a provider switch. Each
// provider carries its own model identifier via its ProviderSpec, so
// nothing from the primary leaks into the secondary's requests.
type FallbackClient struct {
	providers []*HTTPClient
	retry     governor.RetryPolicy
	logger    *zap.Logger
}

func NewFallbackClient(retry governor.RetryPolicy, logger *zap.Logger, providers ...*HTTPClient) *FallbackClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FallbackClient{providers: providers, retry: retry, logger: logger}
}

func (f *FallbackClient) Infer(ctx context.Context, prompt string, opts domain.InferOptions) (string, error) {
	var lastErr error
	for _, p := range f.providers {
		var out string
		err := f.retry.Do(ctx, func() error {
			var inferErr error
			out, inferErr = p.Infer(ctx, prompt, opts)
			return inferErr
		})
		if err == nil {
			return out, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		// Switching providers cannot help once the run budget is spent.
		if errors.Is(err, governor.ErrBudgetExhausted) {
			return "", err
		}
		f.logger.Warn("inference provider exhausted, falling back",
			zap.String("provider", p.Provider()),
			zap.String("kind", string(governor.KindOf(err))),
			zap.Error(err))
	}
	return "", fmt.Errorf("%w: %v", governor.ErrProvidersExhausted, lastErr)
}
