// Package knowledge owns the FAQ and lead corpora: loading, indexing,
// uploads and the context block the chat pipeline feeds to the model.
package knowledge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"sdr_assistant_backend/internal/knowledge/index"
	"sdr_assistant_backend/platform/logger"
)

const (
	faqUnavailable = "FAQ Information: Not available (vector store not initialized)."
	faqNoResults   = "No relevant FAQ information found."
	faqHeader      = "FAQ Information:\n"
	leadNoResults  = "Lead Information: No relevant lead information found."
	leadErrPrefix  = "Lead Information: Error retrieving lead context: "
)

// Searcher is a similarity search over one corpus.
type Searcher interface {
	Query(ctx context.Context, text string, k int) ([]index.Chunk, error)
}

// RetrieverConfig sets how many chunks each source contributes.
type RetrieverConfig interface {
	GetFAQTopK() int
	GetLeadTopK() int
}

// Retriever merges FAQ and lead search results into one text block.
type Retriever struct {
	faq   Searcher
	leads Searcher
	faqK  int
	leadK int
	log   *logger.Logger
}

// NewRetriever accepts nil searchers; a missing source renders its placeholder.
func NewRetriever(faq, leads Searcher, cfg RetrieverConfig, log *logger.Logger) *Retriever {
	return &Retriever{
		faq:   faq,
		leads: leads,
		faqK:  positiveOr(cfg.GetFAQTopK(), 2),
		leadK: positiveOr(cfg.GetLeadTopK(), 2),
		log:   log,
	}
}

// Retrieve queries both corpora concurrently and never fails: each source
// degrades to a placeholder line.
func (r *Retriever) Retrieve(ctx context.Context, query string) string {
	var faq, leads string
	var g errgroup.Group
	g.Go(func() error {
		faq = r.faqBlock(ctx, query)
		return nil
	})
	g.Go(func() error {
		leads = r.leadBlock(ctx, query)
		return nil
	})
	_ = g.Wait()
	return faq + "\n\n" + leads
}

func (r *Retriever) faqBlock(ctx context.Context, query string) string {
	if r.faq == nil {
		return faqUnavailable
	}
	chunks, err := r.faq.Query(ctx, query, r.faqK)
	if err != nil {
		r.log.ExternalCallFailed("faq_index", "query", err)
		return faqUnavailable
	}
	if len(chunks) == 0 {
		return faqNoResults
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	return faqHeader + strings.Join(texts, "\n")
}

func (r *Retriever) leadBlock(ctx context.Context, query string) string {
	if r.leads == nil {
		return leadNoResults
	}
	chunks, err := r.leads.Query(ctx, query, r.leadK)
	if errors.Is(err, index.ErrNotInitialized) {
		return leadNoResults
	}
	if err != nil {
		r.log.ExternalCallFailed("lead_index", "query", err)
		return leadErrPrefix + err.Error()
	}
	if len(chunks) == 0 {
		return leadNoResults
	}

	lines := make([]string, len(chunks))
	for i, c := range chunks {
		lines[i] = fmt.Sprintf("Lead %d: %s%s", i+1, c.Text, renderMetadata(c.Metadata))
	}
	r.log.Debug("lead context retrieved", slog.Int("chunks", len(chunks)))
	return strings.Join(lines, "\n")
}

// renderMetadata returns " (k: v | k: v)" with keys sorted and empty values
// dropped, or "" when nothing is left.
func renderMetadata(md map[string]string) string {
	keys := make([]string, 0, len(md))
	for k, v := range md {
		if strings.TrimSpace(v) != "" {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return ""
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + md[k]
	}
	return " (" + strings.Join(parts, " | ") + ")"
}

func positiveOr(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}
