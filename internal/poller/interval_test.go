package poller

import (
	"testing"
	"time"
)

func TestParseInterval(t *testing.T) {
	t.Parallel()
	tests := []struct {
		raw  string
		want time.Duration
	}{
		{"", DefaultInterval},
		{"300s", 300 * time.Second},
		{"5m", 5 * time.Minute},
		{"@every 2m", 2 * time.Minute},
		{" @every 90s ", 90 * time.Second},
	}
	for _, tt := range tests {
		got, err := ParseInterval(tt.raw)
		if err != nil {
			t.Fatalf("ParseInterval(%q) error: %v", tt.raw, err)
		}
		if got != tt.want {
			t.Fatalf("ParseInterval(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestParseIntervalInvalid(t *testing.T) {
	t.Parallel()
	for _, raw := range []string{
		"@hourly", "*/5 * * * *", "soon", "@every nope",
		"500ms", "0s", "-5m", "1500ms",
		"@every 500ms", "@every 0s", "@every -5m", "@every 1500ms",
	} {
		if _, err := ParseInterval(raw); err == nil {
			t.Fatalf("ParseInterval(%q): expected error", raw)
		}
	}
}
