package knowledge

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"sdr_assistant_backend/internal/knowledge/index"
	"sdr_assistant_backend/platform/logger"
)

type stubSearcher struct {
	chunks []index.Chunk
	err    error
	gotK   int
}

func (s *stubSearcher) Query(_ context.Context, _ string, k int) ([]index.Chunk, error) {
	s.gotK = k
	return s.chunks, s.err
}

type topK struct{ faq, lead int }

func (t topK) GetFAQTopK() int  { return t.faq }
func (t topK) GetLeadTopK() int { return t.lead }

func TestRetrieve_FAQFailingLeadsHealthy(t *testing.T) {
	faq := &stubSearcher{err: errors.New("connection refused")}
	leads := &stubSearcher{chunks: []index.Chunk{
		{Text: "Acme Corp, 50 employees", Metadata: map[string]string{"Name": "Jane", "Company": "Acme", "Phone": ""}},
		{Text: "Globex, evaluating CRMs"},
	}}
	r := NewRetriever(faq, leads, topK{faq: 2, lead: 2}, logger.New("test"))

	got := r.Retrieve(context.Background(), "pricing")

	want := faqUnavailable + "\n\n" +
		"Lead 1: Acme Corp, 50 employees (Company: Acme | Name: Jane)\n" +
		"Lead 2: Globex, evaluating CRMs"
	if got != want {
		t.Fatalf("unexpected context block:\n%s\nwant:\n%s", got, want)
	}
}

func TestRetrieve_Placeholders(t *testing.T) {
	cases := []struct {
		name  string
		faq   Searcher
		leads Searcher
		want  string
	}{
		{
			name: "no sources",
			want: faqUnavailable + "\n\n" + leadNoResults,
		},
		{
			name:  "empty results",
			faq:   &stubSearcher{},
			leads: &stubSearcher{},
			want:  faqNoResults + "\n\n" + leadNoResults,
		},
		{
			name:  "lead index never built",
			faq:   &stubSearcher{chunks: []index.Chunk{{Text: "We offer a 14-day trial."}, {Text: "Plans start at $29."}}},
			leads: &stubSearcher{err: index.ErrNotInitialized},
			want:  "FAQ Information:\nWe offer a 14-day trial.\nPlans start at $29.\n\n" + leadNoResults,
		},
		{
			name:  "lead query error",
			faq:   &stubSearcher{},
			leads: &stubSearcher{err: errors.New("embed chunk: timeout")},
			want:  faqNoResults + "\n\nLead Information: Error retrieving lead context: embed chunk: timeout",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := NewRetriever(tc.faq, tc.leads, topK{}, logger.New("test"))
			if got := r.Retrieve(context.Background(), "hello"); got != tc.want {
				t.Fatalf("got:\n%s\nwant:\n%s", got, tc.want)
			}
		})
	}
}

func TestRetrieve_PassesConfiguredTopK(t *testing.T) {
	faq, leads := &stubSearcher{}, &stubSearcher{}
	NewRetriever(faq, leads, topK{faq: 3, lead: 5}, logger.New("test")).Retrieve(context.Background(), "q")
	if faq.gotK != 3 || leads.gotK != 5 {
		t.Fatalf("expected k=3/5, got %d/%d", faq.gotK, leads.gotK)
	}

	faq, leads = &stubSearcher{}, &stubSearcher{}
	NewRetriever(faq, leads, topK{}, logger.New("test")).Retrieve(context.Background(), "q")
	if faq.gotK != 2 || leads.gotK != 2 {
		t.Fatalf("expected default k=2/2, got %d/%d", faq.gotK, leads.gotK)
	}
}

func TestRetrieve_LazyFAQIndexRecoversAfterFailure(t *testing.T) {
	calls := 0
	faqIndex := index.New("faq", index.NewHashEmbedder(), index.FAQSplitter(), index.WithLoader(
		func(context.Context) ([]index.Document, error) {
			calls++
			if calls == 1 {
				return nil, ErrEmptyFAQ
			}
			return []index.Document{{Text: "Our CRM integrates with Gmail and Outlook."}}, nil
		}))
	r := NewRetriever(faqIndex, nil, topK{faq: 1, lead: 1}, logger.New("test"))

	if got := r.Retrieve(context.Background(), "gmail"); !strings.HasPrefix(got, faqUnavailable) {
		t.Fatalf("expected placeholder while build fails, got %q", got)
	}
	if got := r.Retrieve(context.Background(), "gmail"); !strings.Contains(got, "integrates with Gmail") {
		t.Fatalf("expected FAQ content after retry, got %q", got)
	}
}

func TestRenderMetadata(t *testing.T) {
	if got := renderMetadata(map[string]string{"b": "2", "a": "1", "c": " "}); got != " (a: 1 | b: 2)" {
		t.Fatalf("unexpected metadata rendering %q", got)
	}
	if got := renderMetadata(map[string]string{"a": ""}); got != "" {
		t.Fatalf("expected empty suffix, got %q", got)
	}
}

// rendezvousSearcher only answers once every searcher sharing the barrier has
// been queried, so sequential queries time out.
type rendezvousSearcher struct {
	barrier *sync.WaitGroup
	text    string
}

func (s rendezvousSearcher) Query(ctx context.Context, _ string, _ int) ([]index.Chunk, error) {
	s.barrier.Done()
	met := make(chan struct{})
	go func() {
		s.barrier.Wait()
		close(met)
	}()
	select {
	case <-met:
		return []index.Chunk{{Text: s.text}}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestRetrieve_QueriesCorporaConcurrently(t *testing.T) {
	var barrier sync.WaitGroup
	barrier.Add(2)
	r := NewRetriever(
		rendezvousSearcher{barrier: &barrier, text: "Trial lasts 14 days."},
		rendezvousSearcher{barrier: &barrier, text: "Acme Corp"},
		topK{faq: 1, lead: 1}, logger.New("test"))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	got := r.Retrieve(ctx, "trial")

	want := faqHeader + "Trial lasts 14 days.\n\nLead 1: Acme Corp"
	if got != want {
		t.Fatalf("expected both corpora to answer, got:\n%s", got)
	}
}
