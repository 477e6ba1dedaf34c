package embedder

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/dshills/impactmatch/pkg/types"
)

// Service turns seekers and jobs into embeddings. It owns no global state;
// build one at startup around a provider and pass it where it is needed.
type Service struct {
	embedder Embedder
	labels   SkillLabeler
	logger   *zap.Logger
}

// NewService wraps a provider. labels may be nil, in which case raw skill
// slugs are embedded.
func NewService(e Embedder, labels SkillLabeler, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{embedder: e, labels: labels, logger: logger}
}

// Embedder returns the underlying provider
func (s *Service) Embedder() Embedder {
	return s.embedder
}

// ContentHash fingerprints text together with the provider and model that
// embed it, so switching models invalidates every stored hash.
func (s *Service) ContentHash(text string) string {
	return ComputeHash(s.embedder.Provider() + "\x00" + s.embedder.Model() + "\x00" + text)
}

// SeekerText returns the canonical text for a seeker
func (s *Service) SeekerText(seeker *types.SeekerProfile) string {
	return SeekerText(seeker, s.labels)
}

// EmbedSeeker embeds a seeker profile. A nil embedding with a nil error means
// the profile has no text to embed.
func (s *Service) EmbedSeeker(ctx context.Context, seeker *types.SeekerProfile) (*Embedding, error) {
	text := s.SeekerText(seeker)
	if text == "" {
		return nil, nil
	}
	emb, err := s.embedder.GenerateEmbedding(ctx, EmbeddingRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("embed seeker %d: %w", seeker.ID, err)
	}
	return emb, nil
}

// EmbedJob embeds a job. A nil embedding with a nil error means the job has
// no text to embed.
func (s *Service) EmbedJob(ctx context.Context, job *types.Job) (*Embedding, error) {
	text := JobText(job)
	if text == "" {
		return nil, nil
	}
	emb, err := s.embedder.GenerateEmbedding(ctx, EmbeddingRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("embed job %d: %w", job.ID, err)
	}
	return emb, nil
}

// EmbedTexts embeds texts in provider-sized batches, preserving order
func (s *Service) EmbedTexts(ctx context.Context, texts []string) ([]*Embedding, error) {
	out := make([]*Embedding, 0, len(texts))
	for start := 0; start < len(texts); start += DefaultBatchSize {
		end := start + DefaultBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		resp, err := s.embedder.GenerateBatch(ctx, BatchEmbeddingRequest{Texts: texts[start:end]})
		if err != nil {
			return nil, fmt.Errorf("embed batch %d-%d: %w", start, end, err)
		}
		out = append(out, resp.Embeddings...)
		s.logger.Debug("embedded batch",
			zap.Int("start", start),
			zap.Int("size", end-start),
			zap.String("provider", resp.Provider))
	}
	return out, nil
}
