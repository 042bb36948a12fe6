// internal/kit/duration.go
package kit

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseDuration reads the human cooldown format: a number with an optional
// ms/s/m/h/d suffix. A bare number is seconds. Anything unparsable (including
// the empty string) is zero, meaning "no cooldown" — never an error.
func ParseDuration(s string) time.Duration {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return 0
	}

	unit := time.Second
	num := s
	switch {
	case strings.HasSuffix(s, "ms"):
		unit, num = time.Millisecond, s[:len(s)-2]
	case strings.HasSuffix(s, "s"):
		unit, num = time.Second, s[:len(s)-1]
	case strings.HasSuffix(s, "m"):
		unit, num = time.Minute, s[:len(s)-1]
	case strings.HasSuffix(s, "h"):
		unit, num = time.Hour, s[:len(s)-1]
	case strings.HasSuffix(s, "d"):
		unit, num = 24*time.Hour, s[:len(s)-1]
	}

	val, err := strconv.ParseFloat(num, 64)
	if err != nil || val < 0 {
		return 0
	}
	return time.Duration(val * float64(unit))
}

// FormatRemaining renders a wait duration for denial messages, largest two
// units only: "1d 2h", "3h 4m", "5m 6s", "7s".
func FormatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	mins := int(d.Minutes()) % 60
	secs := int(d.Seconds()) % 60

	switch {
	case days >= 1:
		return fmt.Sprintf("%dd %dh", days, hours)
	case hours >= 1:
		return fmt.Sprintf("%dh %dm", hours, mins)
	case mins >= 1:
		return fmt.Sprintf("%dm %ds", mins, secs)
	default:
		return fmt.Sprintf("%ds", secs)
	}
}
