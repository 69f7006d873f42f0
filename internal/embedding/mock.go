package embedding

import (
	"context"
	"hash/fnv"
)

// MockClient returns deterministic pseudo-embeddings derived from the
// input text, so relevance comparisons are stable across runs.
type MockClient struct {
	Dim int
}

func NewMockClient() *MockClient {
	return &MockClient{Dim: 16}
}

func (c *MockClient) Embed(ctx context.Context, text string) ([]float32, error) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum64()

	out := make([]float32, c.Dim)
	for i := range out {
		seed = seed*6364136223846793005 + 1442695040888963407
		out[i] = float32(int64(seed>>33))/float32(1<<30) - 1
	}
	return out, nil
}
