package embedding

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	openai "github.com/sashabaranov/go-openai"
)

// ProviderConfig holds the remote embedding provider configuration.
type ProviderConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	MaxRetries int
	Timeout    time.Duration
}

// DefaultProviderConfig returns the default configuration.
func DefaultProviderConfig() *ProviderConfig {
	return &ProviderConfig{
		BaseURL:    "https://api.openai.com/v1",
		Model:      "text-embedding-3-small",
		MaxRetries: 2,
		Timeout:    10 * time.Second,
	}
}

// openaiProvider requests embeddings from an OpenAI-compatible API.
type openaiProvider struct {
	client *openai.Client
	config *ProviderConfig
}

// NewOpenAIProvider creates a remote embedding provider.
func NewOpenAIProvider(cfg *ProviderConfig) (Provider, error) {
	if cfg == nil {
		cfg = DefaultProviderConfig()
	}
	if cfg.APIKey == "" {
		return nil, errors.New("embedding provider API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 2
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &openaiProvider{
		client: openai.NewClientWithConfig(clientConfig),
		config: cfg,
	}, nil
}

// Embed requests an embedding for the given text.
func (p *openaiProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	var result []float32
	err := p.doWithRetry(ctx, func() error {
		req := openai.EmbeddingRequest{
			Input: []string{text},
			Model: openai.EmbeddingModel(p.config.Model),
		}

		resp, err := p.client.CreateEmbeddings(ctx, req)
		if err != nil {
			return err
		}
		if len(resp.Data) == 0 {
			return errors.New("empty embedding response")
		}
		result = resp.Data[0].Embedding
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate embedding")
	}

	return result, nil
}

// doWithRetry executes a function with short backoff retry.
func (p *openaiProvider) doWithRetry(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < p.config.MaxRetries; attempt++ {
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
		}
		if attempt < p.config.MaxRetries-1 {
			waitTime := time.Duration(attempt+1) * 200 * time.Millisecond
			slog.Debug("embedding request failed, retrying",
				"attempt", attempt+1,
				"wait_time", waitTime,
				"error", lastErr)
			select {
			case <-time.After(waitTime):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return lastErr
}

var _ Provider = (*openaiProvider)(nil)
