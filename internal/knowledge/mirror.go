package knowledge

import (
	"context"
	"fmt"

	"sdr_assistant_backend/internal/knowledge/index"
	"sdr_assistant_backend/platform/ai/embeddingapi"
	"sdr_assistant_backend/platform/logger"
)

// DocumentSink is the ingestion side of the external collection.
type DocumentSink interface {
	AddDocuments(ctx context.Context, req embeddingapi.AddDocumentsRequest) (embeddingapi.AddDocumentsResponse, error)
}

// CollectionMirror rebuilds the local index and then pushes the same chunks
// to the external collection, so a Qdrant-served FAQ follows file edits.
// A failed push is logged; the local index is already current.
type CollectionMirror struct {
	local    Rebuilder
	sink     DocumentSink
	splitter index.Splitter
	prefix   string
	log      *logger.Logger
}

func NewCollectionMirror(local Rebuilder, sink DocumentSink, splitter index.Splitter, prefix string, log *logger.Logger) *CollectionMirror {
	return &CollectionMirror{local: local, sink: sink, splitter: splitter, prefix: prefix, log: log}
}

func (m *CollectionMirror) Rebuild(ctx context.Context, docs []index.Document) (int, error) {
	n, err := m.local.Rebuild(ctx, docs)
	if err != nil {
		return n, err
	}
	if err := m.push(ctx, docs); err != nil {
		m.log.ExternalCallFailed("embedding-api", "add_documents", err)
	}
	return n, nil
}

func (m *CollectionMirror) push(ctx context.Context, docs []index.Document) error {
	var payload []map[string]any
	for di, doc := range docs {
		for ci, chunk := range m.splitter.Split(doc.Text) {
			item := map[string]any{
				"id":   fmt.Sprintf("%s-%d-%d", m.prefix, di, ci),
				"text": chunk,
			}
			for k, v := range doc.Metadata {
				item[k] = v
			}
			payload = append(payload, item)
		}
	}
	if len(payload) == 0 {
		return nil
	}

	res, err := m.sink.AddDocuments(ctx, embeddingapi.AddDocumentsRequest{
		Documents:  payload,
		TextFields: []string{"text"},
		IDField:    "id",
	})
	if err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("ingestion rejected: %s", res.Message)
	}
	m.log.Info("external collection updated", "prefix", m.prefix, "documents", res.DocumentsAdded)
	return nil
}
