package embedder

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeHash(t *testing.T) {
	a := ComputeHash("climate policy analyst")
	b := ComputeHash("climate policy analyst")
	c := ComputeHash("climate policy analyst ")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}

func TestValidateBatchRequest(t *testing.T) {
	tests := []struct {
		name    string
		texts   []string
		wantErr bool
	}{
		{"valid", []string{"a", "b"}, false},
		{"empty list", nil, true},
		{"blank entry", []string{"a", ""}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBatchRequest(BatchEmbeddingRequest{Texts: tt.texts})
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidInput)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCache_ReturnsCopies(t *testing.T) {
	cache := NewCache(2)
	cache.Set("h", &Embedding{Vector: []float32{1, 0}, Hash: "h"})

	got, ok := cache.Get("h")
	require.True(t, ok)
	got.Vector[0] = 42

	again, ok := cache.Get("h")
	require.True(t, ok)
	assert.Equal(t, float32(1), again.Vector[0])

	cache.Set("i", &Embedding{})
	cache.Set("j", &Embedding{})
	assert.Equal(t, 2, cache.Size())
	_, ok = cache.Get("h")
	assert.False(t, ok, "oldest entry should be evicted")

	cache.Clear()
	assert.Equal(t, 0, cache.Size())
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func cosine(a, b []float32) float64 {
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (norm(a) * norm(b))
}

func TestLocalProvider(t *testing.T) {
	ctx := context.Background()
	p, err := NewLocalProvider(NewCache(16))
	require.NoError(t, err)

	t.Run("unit vector of fixed dimension", func(t *testing.T) {
		emb, err := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "Senior data engineer for climate analytics"})
		require.NoError(t, err)
		assert.Len(t, emb.Vector, Dimension)
		assert.Equal(t, Dimension, emb.Dimension)
		assert.InDelta(t, 1.0, norm(emb.Vector), 1e-5)
		assert.Equal(t, ComputeHash("Senior data engineer for climate analytics"), emb.Hash)
	})

	t.Run("deterministic", func(t *testing.T) {
		fresh, err := NewLocalProvider(nil)
		require.NoError(t, err)
		a, err := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "global health research"})
		require.NoError(t, err)
		b, err := fresh.GenerateEmbedding(ctx, EmbeddingRequest{Text: "global health research"})
		require.NoError(t, err)
		assert.Equal(t, a.Vector, b.Vector)
	})

	t.Run("shared vocabulary is closer", func(t *testing.T) {
		resp, err := p.GenerateBatch(ctx, BatchEmbeddingRequest{Texts: []string{
			"python data analysis climate",
			"python data analysis for climate policy",
			"nursing hospital patient care",
		}})
		require.NoError(t, err)
		require.Len(t, resp.Embeddings, 3)

		near := cosine(resp.Embeddings[0].Vector, resp.Embeddings[1].Vector)
		far := cosine(resp.Embeddings[0].Vector, resp.Embeddings[2].Vector)
		assert.Greater(t, near, far)
	})

	t.Run("empty text", func(t *testing.T) {
		_, err := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: ""})
		assert.ErrorIs(t, err, ErrEmptyText)
	})

	t.Run("cancelled batch", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := p.GenerateBatch(cctx, BatchEmbeddingRequest{Texts: []string{"x"}})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestNormalizeVector(t *testing.T) {
	v := NormalizeVector([]float32{3, 4})
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)

	zero := []float32{0, 0}
	assert.Equal(t, zero, NormalizeVector(zero))
}

func TestRetryWithBackoff(t *testing.T) {
	cfg := RetryConfig{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, Multiplier: 2}

	t.Run("succeeds after transient failures", func(t *testing.T) {
		calls := 0
		got, err := retryWithBackoff(context.Background(), cfg, func() (int, error) {
			calls++
			if calls < 3 {
				return 0, errors.New("transient")
			}
			return 7, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 7, got)
		assert.Equal(t, 3, calls)
	})

	t.Run("returns last error", func(t *testing.T) {
		calls := 0
		_, err := retryWithBackoff(context.Background(), cfg, func() (int, error) {
			calls++
			return 0, errors.New("down")
		})
		assert.EqualError(t, err, "down")
		assert.Equal(t, 3, calls)
	})

	t.Run("stops on cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		calls := 0
		_, err := retryWithBackoff(ctx, cfg, func() (int, error) {
			calls++
			cancel()
			return 0, errors.New("down")
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	})
}
