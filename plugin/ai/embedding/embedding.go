// Package embedding turns free text into fixed-dimension vectors for
// transaction retrieval. The deterministic path is always available; a remote
// provider can be layered on top and degrades back to it on any failure.
package embedding

import (
	"context"
	"crypto/sha256"
	"log/slog"
	"math"
	"strings"

	"github.com/ledgersense/ledgersense/internal/profile"
)

// emptyInputSentinel replaces empty input after normalization so that
// embeddings of "nothing" are deterministic and distinct from a null query.
const emptyInputSentinel = "empty"

// Provider is the remote embedding strategy. Implementations may fail;
// the Generator absorbs those failures.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Generator produces embedding vectors. Embed is total: it never fails,
// falling back to the deterministic hash path when no provider is configured
// or the provider errors.
type Generator struct {
	dimensions int
	provider   Provider
	logger     *slog.Logger
}

// NewGenerator creates a generator with the deterministic path only.
func NewGenerator(dimensions int) *Generator {
	if dimensions <= 0 {
		dimensions = 256
	}
	return &Generator{
		dimensions: dimensions,
		logger:     slog.Default(),
	}
}

// NewGeneratorWithProvider creates a generator that prefers the remote
// provider and falls back to the deterministic path.
func NewGeneratorWithProvider(dimensions int, provider Provider) *Generator {
	g := NewGenerator(dimensions)
	g.provider = provider
	return g
}

// NewGeneratorFromProfile builds the generator the profile describes: remote
// provider when AI is configured, deterministic only otherwise. Every indexing
// and query path must embed through the same generator, or stored and query
// vectors would live in unrelated spaces.
func NewGeneratorFromProfile(prof *profile.Profile, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	if prof.IsAIEnabled() {
		provider, err := NewOpenAIProvider(&ProviderConfig{
			APIKey:  prof.AIAPIKey,
			BaseURL: prof.AIBaseURL,
			Model:   prof.AIEmbeddingModel,
		})
		if err != nil {
			logger.Warn("remote embedding provider unavailable, using deterministic path", "error", err)
		} else {
			return NewGeneratorWithProvider(prof.EmbeddingDimensions, provider)
		}
	}
	return NewGenerator(prof.EmbeddingDimensions)
}

// Dimensions returns the configured vector dimension.
func (g *Generator) Dimensions() int {
	return g.dimensions
}

// Embed generates a vector for the given text. Never fails: provider errors
// are logged and absorbed by falling back to the deterministic path.
func (g *Generator) Embed(ctx context.Context, text string) []float32 {
	normalized := normalize(text)

	if g.provider != nil {
		vec, err := g.provider.Embed(ctx, normalized)
		if err == nil && len(vec) > 0 {
			return saturate(fitDimensions(vec, g.dimensions))
		}
		if err != nil {
			g.logger.Warn("remote embedding failed, using deterministic fallback",
				"error", err,
				"text_length", len(normalized))
		}
	}

	return g.deterministic(normalized)
}

// normalize lower-cases and trims the input, substituting the sentinel for
// empty strings.
func normalize(text string) string {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return emptyInputSentinel
	}
	return text
}

// deterministic derives a vector from the SHA-256 digest of the normalized
// text. Digest bytes are read as little-endian 32-bit values, wrapping around
// the digest when the dimension exceeds what one digest provides. Each value
// is scaled by 2^31 so it lands in [-1, 1) before saturation.
func (g *Generator) deterministic(normalized string) []float32 {
	digest := sha256.Sum256([]byte(normalized))

	vec := make([]float32, g.dimensions)
	for i := range vec {
		offset := (i * 4) % len(digest)
		var raw uint32
		for j := 0; j < 4; j++ {
			raw |= uint32(digest[(offset+j)%len(digest)]) << (8 * j)
		}
		vec[i] = saturateValue(float64(int32(raw)) / (1 << 31))
	}
	return vec
}

// fitDimensions truncates or zero-pads a vector to the requested dimension.
func fitDimensions(vec []float32, dimensions int) []float32 {
	if len(vec) == dimensions {
		return vec
	}
	fitted := make([]float32, dimensions)
	copy(fitted, vec)
	return fitted
}

// saturate bounds every component into (-1, 1).
func saturate(vec []float32) []float32 {
	for i, v := range vec {
		vec[i] = saturateValue(float64(v))
	}
	return vec
}

// saturateValue maps v into the open interval (-1, 1) with v / sqrt(1 + v²).
// The float32 conversion can round |v|/sqrt(1+v²) up to exactly 1 for large
// inputs, so the result is clamped to the largest float32 strictly below 1.
func saturateValue(v float64) float32 {
	if math.IsNaN(v) {
		return 0
	}
	if math.IsInf(v, 1) {
		return math.Nextafter32(1, 0)
	}
	if math.IsInf(v, -1) {
		return math.Nextafter32(-1, 0)
	}

	s := float32(v / math.Sqrt(1+v*v))
	switch {
	case s >= 1:
		s = math.Nextafter32(1, 0)
	case s <= -1:
		s = math.Nextafter32(-1, 0)
	}
	return s
}
