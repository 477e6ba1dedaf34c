package embedder

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GeminiProvider embeds through the Gemini API with the output size pinned to
// Dimension
type GeminiProvider struct {
	client *genai.Client
	model  string
	cache  *Cache
}

// NewGeminiProvider creates a Gemini embedder
func NewGeminiProvider(ctx context.Context, cfg Config, cache *Cache) (*GeminiProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: %s requires an api key", ErrNoProviderEnabled, ProviderGemini)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = DefaultGeminiModel
	}

	return &GeminiProvider{client: client, model: model, cache: cache}, nil
}

func (g *GeminiProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	return cachedSingle(ctx, g, g.cache, req)
}

func (g *GeminiProvider) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	if err := ValidateBatchRequest(req); err != nil {
		return nil, err
	}
	if len(req.Texts) > MaxBatchSize {
		return nil, fmt.Errorf("%w: max %d texts allowed", ErrBatchTooLarge, MaxBatchSize)
	}

	model := req.Model
	if model == "" {
		model = g.model
	}

	contents := make([]*genai.Content, 0, len(req.Texts))
	for _, text := range req.Texts {
		contents = append(contents, genai.Text(text)...)
	}
	dim := int32(Dimension)
	cfg := &genai.EmbedContentConfig{OutputDimensionality: &dim}

	resp, err := retryWithBackoff(ctx, DefaultRetryConfig(), func() (*genai.EmbedContentResponse, error) {
		return g.client.Models.EmbedContent(ctx, model, contents, cfg)
	})
	if err != nil {
		return nil, fmt.Errorf("%w after %d retries: %v", ErrProviderFailed, MaxRetries, err)
	}

	embeddings := make([]*Embedding, len(resp.Embeddings))
	for i, ce := range resp.Embeddings {
		embeddings[i] = &Embedding{
			Vector:    ce.Values,
			Dimension: len(ce.Values),
			Provider:  ProviderGemini,
			Model:     model,
		}
	}
	if err := finishBatch(g.cache, req.Texts, embeddings); err != nil {
		return nil, err
	}

	return &BatchEmbeddingResponse{
		Embeddings: embeddings,
		Provider:   ProviderGemini,
		Model:      model,
	}, nil
}

func (g *GeminiProvider) Dimension() int   { return Dimension }
func (g *GeminiProvider) Provider() string { return ProviderGemini }
func (g *GeminiProvider) Model() string    { return g.model }
func (g *GeminiProvider) Close() error     { return nil }
