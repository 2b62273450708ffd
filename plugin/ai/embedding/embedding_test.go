package embedding

import (
	"context"
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgersense/ledgersense/internal/profile"
)

func TestGeneratorDeterminism(t *testing.T) {
	g := NewGenerator(256)
	ctx := context.Background()

	t.Run("RepeatedCallsAreBitIdentical", func(t *testing.T) {
		a := g.Embed(ctx, "starbucks coffee")
		b := g.Embed(ctx, "starbucks coffee")
		assert.Equal(t, a, b)
	})

	t.Run("CaseAndWhitespaceInvariance", func(t *testing.T) {
		a := g.Embed(ctx, "Starbucks")
		b := g.Embed(ctx, "  starbucks  ")
		assert.Equal(t, a, b)
	})

	t.Run("DifferentTextsDiffer", func(t *testing.T) {
		a := g.Embed(ctx, "starbucks")
		b := g.Embed(ctx, "whole foods")
		assert.NotEqual(t, a, b)
	})

	t.Run("EmptyInputIsDeterministic", func(t *testing.T) {
		a := g.Embed(ctx, "")
		b := g.Embed(ctx, "   ")
		assert.Equal(t, a, b)
		assert.NotEqual(t, a, g.Embed(ctx, "starbucks"))
	})
}

func TestGeneratorBounds(t *testing.T) {
	g := NewGenerator(300)
	vec := g.Embed(context.Background(), "rent payment to acme apartments")

	require.Len(t, vec, 300)
	for i, v := range vec {
		assert.Greater(t, v, float32(-1), "component %d", i)
		assert.Less(t, v, float32(1), "component %d", i)
	}
}

func TestSaturateValueStaysInsideOpenInterval(t *testing.T) {
	assert.Equal(t, float32(0), saturateValue(math.NaN()))

	// Large magnitudes round to exactly 1 in float32 without the clamp.
	for _, v := range []float64{math.Inf(1), 1e12, 1e6, 5000} {
		s := saturateValue(v)
		assert.Less(t, s, float32(1), "input %g", v)
		assert.Greater(t, s, float32(0), "input %g", v)
	}
	for _, v := range []float64{math.Inf(-1), -1e12, -5000} {
		s := saturateValue(v)
		assert.Greater(t, s, float32(-1), "input %g", v)
		assert.Less(t, s, float32(0), "input %g", v)
	}
}

func TestNewGeneratorFromProfile(t *testing.T) {
	t.Run("DeterministicWithoutAI", func(t *testing.T) {
		g := NewGeneratorFromProfile(&profile.Profile{EmbeddingDimensions: 32}, nil)
		require.NotNil(t, g)
		assert.Equal(t, 32, g.Dimensions())
		assert.Nil(t, g.provider)
	})

	t.Run("ProviderBackedWhenConfigured", func(t *testing.T) {
		g := NewGeneratorFromProfile(&profile.Profile{
			EmbeddingDimensions: 64,
			AIEnabled:           true,
			AIAPIKey:            "sk-test",
			AIBaseURL:           "https://api.openai.com/v1",
			AIEmbeddingModel:    "text-embedding-3-small",
		}, nil)
		require.NotNil(t, g)
		assert.Equal(t, 64, g.Dimensions())
		assert.NotNil(t, g.provider)
	})
}

type stubProvider struct {
	vec []float32
	err error
}

func (s *stubProvider) Embed(_ context.Context, _ string) ([]float32, error) {
	return s.vec, s.err
}

func TestGeneratorProviderFallback(t *testing.T) {
	ctx := context.Background()

	t.Run("ProviderErrorFallsBackToDeterministic", func(t *testing.T) {
		deterministic := NewGenerator(64)
		withProvider := NewGeneratorWithProvider(64, &stubProvider{err: errors.New("timeout")})

		assert.Equal(t, deterministic.Embed(ctx, "groceries"), withProvider.Embed(ctx, "groceries"))
	})

	t.Run("ProviderVectorIsPaddedToDimension", func(t *testing.T) {
		g := NewGeneratorWithProvider(8, &stubProvider{vec: []float32{0.5, -0.5}})
		vec := g.Embed(ctx, "groceries")

		require.Len(t, vec, 8)
		assert.InDelta(t, 0.4472, vec[0], 0.001) // 0.5 / sqrt(1.25)
		assert.Zero(t, vec[2])
	})

	t.Run("ProviderVectorIsTruncatedToDimension", func(t *testing.T) {
		g := NewGeneratorWithProvider(2, &stubProvider{vec: []float32{0.1, 0.2, 0.3, 0.4}})
		require.Len(t, g.Embed(ctx, "groceries"), 2)
	})
}
