package knowledge

import (
	"context"
	"fmt"

	"sdr_assistant_backend/internal/knowledge/index"
	"sdr_assistant_backend/platform/logger"
	"sdr_assistant_backend/platform/qdrant"
)

// QueryEmbedder turns query text into the vector space of the collection.
type QueryEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorSearcher is the subset of the Qdrant client used here.
type VectorSearcher interface {
	Search(ctx context.Context, vector []float32, limit int) ([]qdrant.SearchResult, error)
}

// QdrantSearcher serves FAQ queries from an externally maintained collection.
type QdrantSearcher struct {
	embedder QueryEmbedder
	client   VectorSearcher
}

func NewQdrantSearcher(embedder QueryEmbedder, client VectorSearcher) *QdrantSearcher {
	return &QdrantSearcher{embedder: embedder, client: client}
}

func (s *QdrantSearcher) Query(ctx context.Context, text string, k int) ([]index.Chunk, error) {
	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	results, err := s.client.Search(ctx, vec, k)
	if err != nil {
		return nil, err
	}

	chunks := make([]index.Chunk, 0, len(results))
	for _, r := range results {
		txt := r.Text()
		if txt == "" {
			continue
		}
		chunks = append(chunks, index.Chunk{
			ID:       fmt.Sprint(r.ID),
			Text:     txt,
			Metadata: r.Metadata(),
			Score:    r.Score,
		})
	}
	return chunks, nil
}

// FallbackSearcher queries primary and falls back to secondary when primary
// errors. An empty primary result is returned as is.
type FallbackSearcher struct {
	primary   Searcher
	secondary Searcher
	log       *logger.Logger
}

func NewFallbackSearcher(primary, secondary Searcher, log *logger.Logger) *FallbackSearcher {
	return &FallbackSearcher{primary: primary, secondary: secondary, log: log}
}

func (s *FallbackSearcher) Query(ctx context.Context, text string, k int) ([]index.Chunk, error) {
	chunks, err := s.primary.Query(ctx, text, k)
	if err == nil {
		return chunks, nil
	}
	s.log.ExternalCallFailed("qdrant", "search", err)
	return s.secondary.Query(ctx, text, k)
}
