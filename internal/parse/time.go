package parse

import (
	"fmt"
	"regexp"
	"strings"
)

var clockRe = regexp.MustCompile(`(\d{1,2})(?::(\d{2}))?\s*(am|pm|hrs|h)?`)

// Clock parses a Spanish time expression to "HH:MM". Digits with an optional
// am/pm/hrs/h suffix win; otherwise the words mañana/tarde/noche map to
// 10:00, 15:00 and 19:00. Returns false when nothing matches.
func Clock(text string) (string, bool) {
	lower := strings.ToLower(strings.TrimSpace(text))

	if m := clockRe.FindStringSubmatch(lower); m != nil {
		hour := atoi(m[1])
		minute := 0
		if m[2] != "" {
			minute = atoi(m[2])
		}
		switch m[3] {
		case "pm":
			if hour < 12 {
				hour += 12
			}
		case "am":
			if hour == 12 {
				hour = 0
			}
		}
		return fmt.Sprintf("%02d:%02d", hour, minute), true
	}

	switch {
	case strings.Contains(lower, "manana"), strings.Contains(lower, "mañana"):
		return "10:00", true
	case strings.Contains(lower, "tarde"):
		return "15:00", true
	case strings.Contains(lower, "noche"):
		return "19:00", true
	}

	return "", false
}
