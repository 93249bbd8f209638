package embeddings

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDecodeVectorAcceptsKnownShapes(t *testing.T) {
	cases := map[string]string{
		"wrapped vector":    `{"vector":[0.1,0.2]}`,
		"wrapped embedding": `{"embedding":[0.1,0.2]}`,
		"bare array":        `[0.1,0.2]`,
	}
	for name, body := range cases {
		vec, err := decodeVector([]byte(body))
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", name, err)
		}
		if len(vec) != 2 {
			t.Fatalf("%s: expected 2 dims, got %d", name, len(vec))
		}
	}

	if _, err := decodeVector([]byte(`{"vector":[]}`)); err == nil {
		t.Fatal("expected error for empty vector")
	}
}

func TestEmbedAllRejectsMixedDimensions(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			_, _ = w.Write([]byte(`[1,0,0]`))
			return
		}
		_, _ = w.Write([]byte(`[1,0]`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	if _, err := c.EmbedAll(context.Background(), []string{"a", "b"}); err == nil {
		t.Fatal("expected dimension mismatch error")
	}
}
