package align

import (
	"strconv"
	"strings"
	"time"
)

// ParseClock interprets OCR text from the in-game clock as a match time.
// Every digit in s is kept and joined; the result must be 2 to 4 digits long.
// The last two digits are seconds and anything before them is minutes, so
// "12:34" is 12m34s and "45" is 45s. Readings are not range-checked, which
// means "1:75" parses to 1m75s.
func ParseClock(s string) (time.Duration, bool) {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) < 2 || len(digits) > 4 {
		return 0, false
	}

	split := len(digits) - 2
	secs, _ := strconv.Atoi(digits[split:])
	mins := 0
	if split > 0 {
		mins, _ = strconv.Atoi(digits[:split])
	}
	return time.Duration(mins)*time.Minute + time.Duration(secs)*time.Second, true
}
