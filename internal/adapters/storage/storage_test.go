package storage

import (
	"strings"
	"testing"
	"time"
)

func TestObjectKeySortsByTimeAndStripsPaths(t *testing.T) {
	early := ObjectKey("lead-corpus/", "../../etc/leads.csv", time.Unix(100, 0))
	late := ObjectKey("lead-corpus", "leads.csv", time.Unix(200, 0))

	if !strings.HasPrefix(early, "lead-corpus/") || !strings.HasSuffix(early, "_leads.csv") {
		t.Fatalf("unexpected key %q", early)
	}
	if strings.Contains(early, "..") {
		t.Fatalf("key must not contain path traversal: %q", early)
	}
	if !(early < late) {
		t.Fatalf("expected keys to sort by upload time: %q >= %q", early, late)
	}
}

func TestValidation(t *testing.T) {
	if err := ValidateContentType("text/csv; charset=utf-8"); err != nil {
		t.Fatalf("expected csv with charset to be allowed: %v", err)
	}
	if err := ValidateContentType("image/png"); err == nil {
		t.Fatal("expected image to be rejected")
	}
	if err := ValidateFileSize(0, 10); err == nil {
		t.Fatal("expected empty file to be rejected")
	}
	if err := ValidateFileSize(11, 10); err == nil {
		t.Fatal("expected oversized file to be rejected")
	}
	if err := ValidateFileSize(11, 0); err != nil {
		t.Fatalf("expected no limit when max is zero: %v", err)
	}
}

func TestObjectMetaIsCaseInsensitive(t *testing.T) {
	obj := Object{Metadata: map[string]string{"Metadata-Columns": "Name,Company"}}
	if got := obj.Meta("metadata-columns"); got != "Name,Company" {
		t.Fatalf("expected metadata lookup to ignore case, got %q", got)
	}
	if got := obj.Meta("missing"); got != "" {
		t.Fatalf("expected empty value for missing key, got %q", got)
	}
}
