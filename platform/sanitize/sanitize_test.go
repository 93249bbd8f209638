package sanitize

import "testing"

func TestStripHTML(t *testing.T) {
	if got := StripHTML(`<b>Hi</b> &lt;script&gt;alert(1)&lt;/script&gt; there`); got != "Hi alert(1) there" {
		t.Fatalf("unexpected %q", got)
	}
}

func TestMessage(t *testing.T) {
	cases := map[string]string{
		"  hello\t\t world  ":         "hello world",
		"line one\r\nline two":        "line one\nline two",
		"bell\a and \x00nul":          "bell and nul",
		"<i>we use</i> Salesforce   ": "we use Salesforce",
		"\r\n\t ":                     "",
	}
	for in, want := range cases {
		if got := Message(in, 0); got != want {
			t.Fatalf("Message(%q) = %q, want %q", in, got, want)
		}
	}
	if got := Message("héllo wörld", 5); got != "héllo" {
		t.Fatalf("expected rune-safe truncation, got %q", got)
	}
}
