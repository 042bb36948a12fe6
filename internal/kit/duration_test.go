package kit

import (
	"testing"
	"time"
)

func TestParseDuration(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
	}{
		{"30m", 30 * time.Minute},
		{"2h", 2 * time.Hour},
		{"1d", 24 * time.Hour},
		{"500ms", 500 * time.Millisecond},
		{"45s", 45 * time.Second},
		{"90", 90 * time.Second}, // bare numeral = seconds
		{"1.5h", 90 * time.Minute},
		{"  2H ", 2 * time.Hour},
		{"", 0},
		{"0", 0},
		{"garbage", 0},
		{"-5m", 0}, // negative never yields a cooldown
		{"m", 0},
	}

	for _, c := range cases {
		if got := ParseDuration(c.in); got != c.want {
			t.Errorf("ParseDuration(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestFormatRemaining(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want string
	}{
		{26 * time.Hour, "1d 2h"},
		{3*time.Hour + 4*time.Minute, "3h 4m"},
		{5*time.Minute + 6*time.Second, "5m 6s"},
		{7 * time.Second, "7s"},
		{-time.Second, "0s"},
	}

	for _, c := range cases {
		if got := FormatRemaining(c.in); got != c.want {
			t.Errorf("FormatRemaining(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}
