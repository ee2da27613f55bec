package thread

import (
	"strings"
	"testing"
)

func TestNameFromText(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "short text unchanged",
			text: "hello",
			want: "hello",
		},
		{
			name: "exactly at limit unchanged",
			text: strings.Repeat("a", 25),
			want: strings.Repeat("a", 25),
		},
		{
			name: "one over limit truncated",
			text: strings.Repeat("a", 26),
			want: strings.Repeat("a", 25) + "...",
		},
		{
			name: "surrounding whitespace kept",
			text: "  hello  ",
			want: "  hello  ",
		},
		{
			name: "multibyte runes counted not bytes",
			text: strings.Repeat("世", 30),
			want: strings.Repeat("世", 25) + "...",
		},
		{
			name: "empty text",
			text: "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NameFromText(tt.text); got != tt.want {
				t.Errorf("NameFromText(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}
