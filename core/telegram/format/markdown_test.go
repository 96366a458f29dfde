package format

import (
	"strings"
	"testing"
)

func TestEscapeMarkdown(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"a_b", `a\_b`},
		{"*bold*", `\*bold\*`},
		{"[link](x)", `\[link](x)`},
		{"tick`", "tick\\`"},
	}
	for _, tc := range cases {
		if got := EscapeMarkdown(tc.in); got != tc.want {
			t.Errorf("EscapeMarkdown(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCodeBlockStripsFenceBreakout(t *testing.T) {
	got := CodeBlock("abc```*bold*")
	if strings.Count(got, "```") != 2 {
		t.Fatalf("expected exactly opening and closing fence, got %q", got)
	}
	if !strings.Contains(got, "abc*bold*") {
		t.Errorf("inner text mangled: %q", got)
	}
}

func TestCodeBlockPlain(t *testing.T) {
	if got := CodeBlock("token"); got != "```\ntoken\n```" {
		t.Errorf("CodeBlock = %q", got)
	}
}
