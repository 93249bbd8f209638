package knowledge

import (
	"context"
	"errors"
	"testing"

	"sdr_assistant_backend/internal/knowledge/index"
	"sdr_assistant_backend/platform/logger"
	"sdr_assistant_backend/platform/qdrant"
)

type fixedEmbedder struct{ err error }

func (f fixedEmbedder) Embed(context.Context, string) ([]float32, error) {
	return []float32{1, 0}, f.err
}

type stubVectorSearch struct {
	results []qdrant.SearchResult
	err     error
}

func (s stubVectorSearch) Search(context.Context, []float32, int) ([]qdrant.SearchResult, error) {
	return s.results, s.err
}

func TestQdrantSearcher_MapsPayloadAndSkipsEmptyText(t *testing.T) {
	s := NewQdrantSearcher(fixedEmbedder{}, stubVectorSearch{results: []qdrant.SearchResult{
		{ID: 7, Score: 0.9, Payload: map[string]interface{}{"text": "Refunds within 30 days.", "section": "billing"}},
		{ID: 8, Score: 0.5, Payload: map[string]interface{}{"section": "empty"}},
	}})

	chunks, err := s.Query(context.Background(), "refund", 2)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(chunks) != 1 || chunks[0].Text != "Refunds within 30 days." || chunks[0].ID != "7" {
		t.Fatalf("unexpected chunks %+v", chunks)
	}
	if chunks[0].Metadata["section"] != "billing" {
		t.Fatalf("expected payload metadata, got %+v", chunks[0].Metadata)
	}
}

func TestFallbackSearcher(t *testing.T) {
	local := &stubSearcher{chunks: []index.Chunk{{Text: "local"}}}

	primaryDown := NewFallbackSearcher(&stubSearcher{err: errors.New("503")}, local, logger.New("test"))
	chunks, err := primaryDown.Query(context.Background(), "q", 1)
	if err != nil || len(chunks) != 1 || chunks[0].Text != "local" {
		t.Fatalf("expected fallback result, got %+v, %v", chunks, err)
	}

	primaryEmpty := NewFallbackSearcher(&stubSearcher{}, local, logger.New("test"))
	chunks, err = primaryEmpty.Query(context.Background(), "q", 1)
	if err != nil || len(chunks) != 0 {
		t.Fatalf("expected empty primary result to be kept, got %+v, %v", chunks, err)
	}
}
