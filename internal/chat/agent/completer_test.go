package agent

import (
	"context"
	"errors"
	"iter"
	"testing"
	"time"

	"google.golang.org/adk/model"
	"google.golang.org/genai"

	"sdr_assistant_backend/platform/logger"
)

type fakeModel struct {
	text  string
	err   error
	block bool
	got   *model.LLMRequest
}

func (f *fakeModel) Name() string { return "fake" }

func (f *fakeModel) GenerateContent(ctx context.Context, req *model.LLMRequest, _ bool) iter.Seq2[*model.LLMResponse, error] {
	f.got = req
	return func(yield func(*model.LLMResponse, error) bool) {
		if f.block {
			<-ctx.Done()
			yield(nil, ctx.Err())
			return
		}
		if f.err != nil {
			yield(nil, f.err)
			return
		}
		yield(&model.LLMResponse{Content: genai.NewContentFromText(f.text, genai.RoleModel)}, nil)
	}
}

func TestCompleter_ReturnsTrimmedText(t *testing.T) {
	m := &fakeModel{text: "  6 \n"}
	got, err := NewCompleter(m, logger.New("test")).Complete(context.Background(), "classify_stage", "prompt", time.Second)
	if err != nil || got != "6" {
		t.Fatalf("got %q, %v", got, err)
	}
	if len(m.got.Contents) != 1 || m.got.Contents[0].Parts[0].Text != "prompt" {
		t.Fatalf("unexpected request %+v", m.got)
	}
	if m.got.Config == nil || m.got.Config.Temperature == nil || *m.got.Config.Temperature != 0 {
		t.Fatal("expected deterministic temperature")
	}
}

func TestCompleter_Errors(t *testing.T) {
	c := NewCompleter(&fakeModel{text: "   "}, logger.New("test"))
	if _, err := c.Complete(context.Background(), "reply", "p", time.Second); !errors.Is(err, ErrEmptyCompletion) {
		t.Fatalf("expected ErrEmptyCompletion, got %v", err)
	}

	boom := errors.New("boom")
	c = NewCompleter(&fakeModel{err: boom}, logger.New("test"))
	if _, err := c.Complete(context.Background(), "reply", "p", time.Second); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped model error, got %v", err)
	}

	c = NewCompleter(&fakeModel{block: true}, logger.New("test"))
	if _, err := c.Complete(context.Background(), "reply", "p", 20*time.Millisecond); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected timeout, got %v", err)
	}
}
