package embedder

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"
)

// OllamaProvider embeds through a local or remote Ollama server. The model
// must produce Dimension-sized vectors (all-minilm does).
type OllamaProvider struct {
	client     *api.Client
	httpClient *http.Client
	model      string
	cache      *Cache
}

// NewOllamaProvider creates an Ollama embedder
func NewOllamaProvider(cfg Config, cache *Cache) (*OllamaProvider, error) {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultOllamaURL
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama url %q: %w", base, err)
	}
	model := cfg.Model
	if model == "" {
		model = DefaultOllamaModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	httpClient := &http.Client{Timeout: timeout}
	return &OllamaProvider{
		client:     api.NewClient(u, httpClient),
		httpClient: httpClient,
		model:      model,
		cache:      cache,
	}, nil
}

func (o *OllamaProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	return cachedSingle(ctx, o, o.cache, req)
}

func (o *OllamaProvider) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	if err := ValidateBatchRequest(req); err != nil {
		return nil, err
	}
	if len(req.Texts) > MaxBatchSize {
		return nil, fmt.Errorf("%w: max %d texts allowed", ErrBatchTooLarge, MaxBatchSize)
	}

	model := req.Model
	if model == "" {
		model = o.model
	}

	resp, err := retryWithBackoff(ctx, DefaultRetryConfig(), func() (*api.EmbedResponse, error) {
		return o.client.Embed(ctx, &api.EmbedRequest{Model: model, Input: req.Texts})
	})
	if err != nil {
		return nil, fmt.Errorf("%w after %d retries: %v", ErrProviderFailed, MaxRetries, err)
	}

	embeddings := make([]*Embedding, len(resp.Embeddings))
	for i, vec := range resp.Embeddings {
		embeddings[i] = &Embedding{
			Vector:    vec,
			Dimension: len(vec),
			Provider:  ProviderOllama,
			Model:     model,
		}
	}
	if err := finishBatch(o.cache, req.Texts, embeddings); err != nil {
		return nil, err
	}

	return &BatchEmbeddingResponse{
		Embeddings: embeddings,
		Provider:   ProviderOllama,
		Model:      model,
	}, nil
}

func (o *OllamaProvider) Dimension() int   { return Dimension }
func (o *OllamaProvider) Provider() string { return ProviderOllama }
func (o *OllamaProvider) Model() string    { return o.model }

func (o *OllamaProvider) Close() error {
	o.httpClient.CloseIdleConnections()
	return nil
}
