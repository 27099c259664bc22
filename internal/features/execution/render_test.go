package execution

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{
			name: "short string untouched",
			in:   "shipped",
			max:  35,
			want: "shipped",
		},
		{
			name: "long ascii gets ellipsis",
			in:   strings.Repeat("a", 40),
			max:  10,
			want: "aaaaaaa...",
		},
		{
			name: "multibyte cut on rune boundary",
			in:   strings.Repeat("é", 40),
			max:  10,
			want: "ééééééé...",
		},
		{
			name: "exactly max untouched",
			in:   strings.Repeat("ü", 10),
			max:  10,
			want: strings.Repeat("ü", 10),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncate(tt.in, tt.max)
			if got != tt.want {
				t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("truncate produced invalid UTF-8: %q", got)
			}
		})
	}
}
