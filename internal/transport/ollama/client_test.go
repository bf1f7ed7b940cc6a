package ollama

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{"short", "  ok \n", 10, "ok"},
		{"exact", "abcd", 4, "abcd"},
		{"ascii cut", "abcdef", 3, "abc..."},
		{"cut inside rune backs off", "aé", 2, "a..."},
		{"cut on rune boundary", "éé", 2, "é..."},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := truncate([]byte(tc.in), tc.n)
			if got != tc.want {
				t.Errorf("truncate(%q, %d) = %q, want %q", tc.in, tc.n, got, tc.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("truncate produced invalid UTF-8: %q", got)
			}
		})
	}
}

func TestTruncate_MultibyteErrorBody(t *testing.T) {
	body := strings.Repeat("ошибка ", maxErrorBody)
	got := truncate([]byte(body), maxErrorBody)
	if !utf8.ValidString(got) {
		t.Fatalf("invalid UTF-8 in truncated error text")
	}
	if !strings.HasSuffix(got, "...") || len(got) > maxErrorBody+3 {
		t.Errorf("unexpected truncation: len=%d", len(got))
	}
}
