package formatting_test

import (
	"testing"

	"github.com/conduitworks/conduit/pkg/formatting"
)

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		name      string
		n         int64
		precision int
		want      string
	}{
		{"zero", 0, 2, "0 B"},
		{"bytes", 512, 0, "512 B"},
		{"kilobytes", 2048, 0, "2 KB"},
		{"megabytes", 52428800, 0, "50 MB"},
		{"fractional", 1536, 1, "1.5 KB"},
		{"negative precision clamped", 2048, -3, "2 KB"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatting.FormatBytes(tt.n, tt.precision); got != tt.want {
				t.Errorf("FormatBytes(%d, %d) = %q, want %q", tt.n, tt.precision, got, tt.want)
			}
		})
	}
}

func TestParseBytes(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int64
	}{
		{"bare number", "1024", 1024},
		{"bytes", "512B", 512},
		{"kilobytes", "2KB", 2048},
		{"megabytes", "50MB", 52428800},
		{"with space", "50 MB", 52428800},
		{"lowercase", "50mb", 52428800},
		{"fractional", "1.5KB", 1536},
		{"surrounding whitespace", "  50MB  ", 52428800},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := formatting.ParseBytes(tt.input)
			if err != nil {
				t.Fatalf("ParseBytes(%q) failed: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseBytes(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseBytesErrors(t *testing.T) {
	for _, input := range []string{"", "fifty", "50XB", "MB50", "-50MB"} {
		if _, err := formatting.ParseBytes(input); err == nil {
			t.Errorf("ParseBytes(%q) succeeded, want error", input)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	for _, n := range []int64{1024, 52428800, 1073741824} {
		formatted := formatting.FormatBytes(n, 0)
		parsed, err := formatting.ParseBytes(formatted)
		if err != nil {
			t.Fatalf("ParseBytes(%q) failed: %v", formatted, err)
		}
		if parsed != n {
			t.Errorf("round trip %d -> %q -> %d", n, formatted, parsed)
		}
	}
}
