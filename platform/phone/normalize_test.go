package phone

import "testing"

func TestNormalizeE164(t *testing.T) {
	if got := NormalizeE164("(415) 555-2671", "US"); got != "+14155552671" {
		t.Fatalf("expected +14155552671, got %q", got)
	}
	if got := NormalizeE164("020 123 4567", "nl"); got != "+31201234567" {
		t.Fatalf("expected +31201234567, got %q", got)
	}
	if got := NormalizeE164("  not a number ", "US"); got != "not a number" {
		t.Fatalf("expected trimmed input back, got %q", got)
	}
}

func TestIsPhoneField(t *testing.T) {
	for _, key := range []string{"Phone", "mobile_number", "Telephone"} {
		if !IsPhoneField(key) {
			t.Fatalf("expected %q to be a phone field", key)
		}
	}
	if IsPhoneField("company") {
		t.Fatal("company is not a phone field")
	}
}
