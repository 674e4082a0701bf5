package ai

import (
	"context"
	"hash/fnv"
	"math"
)

// MockEmbeddingService is a deterministic in-memory EmbeddingService for
// testing: identical texts map to identical unit vectors, different texts to
// different ones. No network access.
type MockEmbeddingService struct {
	dims    int
	version int

	// Err, when set, is returned by every call.
	Err error
}

// NewMockEmbeddingService creates a mock with the given dimension.
func NewMockEmbeddingService(dims int) *MockEmbeddingService {
	return &MockEmbeddingService{dims: dims, version: 1}
}

func (m *MockEmbeddingService) Embed(_ context.Context, text string) ([]float32, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.vectorFor(text), nil
}

func (m *MockEmbeddingService) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = m.vectorFor(text)
	}
	return vectors, nil
}

func (m *MockEmbeddingService) Dimensions() int { return m.dims }
func (m *MockEmbeddingService) Model() string   { return "mock-embedding" }
func (m *MockEmbeddingService) Version() int    { return m.version }

// vectorFor derives a unit vector from an FNV hash of the text.
func (m *MockEmbeddingService) vectorFor(text string) []float32 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum64()

	vector := make([]float32, m.dims)
	var norm float64
	for i := range vector {
		// xorshift keeps the sequence deterministic per seed.
		seed ^= seed << 13
		seed ^= seed >> 7
		seed ^= seed << 17
		v := float64(int64(seed%2000)-1000) / 1000
		vector[i] = float32(v)
		norm += v * v
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vector {
			vector[i] *= scale
		}
	}
	return vector
}
