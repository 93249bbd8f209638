package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestGetKindFindsWrappedError(t *testing.T) {
	base := TooLarge("file too large")
	wrapped := fmt.Errorf("upload: %w", base)

	if GetKind(wrapped) != KindTooLarge {
		t.Fatalf("expected KindTooLarge through wrapping, got %v", GetKind(wrapped))
	}
	if !Is(wrapped, KindTooLarge) {
		t.Fatal("expected Is to match wrapped kind")
	}
	if GetKind(errors.New("plain")) != KindUnknown {
		t.Fatal("expected KindUnknown for plain error")
	}
}

func TestHTTPStatusMapping(t *testing.T) {
	cases := map[Kind]int{
		KindNotFound:    http.StatusNotFound,
		KindValidation:  http.StatusBadRequest,
		KindTooLarge:    http.StatusRequestEntityTooLarge,
		KindUnsupported: http.StatusUnsupportedMediaType,
		KindUnavailable: http.StatusServiceUnavailable,
		KindInternal:    http.StatusInternalServerError,
	}
	for kind, want := range cases {
		if got := New(kind, "x").HTTPStatus(); got != want {
			t.Fatalf("kind %v: expected %d, got %d", kind, want, got)
		}
	}
}

func TestErrorMessageIncludesOpAndCause(t *testing.T) {
	err := Wrap(KindUnavailable, "store unreachable", errors.New("dial tcp")).WithOp("conversation.Append")
	want := "conversation.Append: store unreachable: dial tcp"
	if err.Error() != want {
		t.Fatalf("expected %q, got %q", want, err.Error())
	}
}
