package parse

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	emailRe      = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	phoneRe      = regexp.MustCompile(`^\+?\d{10,15}$`)
	phoneStripRe = regexp.MustCompile(`[\s\-()]`)
)

// ValidEmail reports whether text looks like local-part@domain.tld.
func ValidEmail(text string) bool {
	return emailRe.MatchString(strings.TrimSpace(text))
}

// Phone strips spaces, dashes and parentheses and validates an optional
// leading + followed by 10 to 15 digits. Returns the cleaned number.
func Phone(text string) (string, bool) {
	cleaned := phoneStripRe.ReplaceAllString(strings.TrimSpace(text), "")
	if !phoneRe.MatchString(cleaned) {
		return "", false
	}
	return cleaned, true
}

// Index1 parses text as a 1-based menu selection against n options,
// returning the 0-based index. ok is false for non-numeric input;
// inRange is false for a numeric index outside [0, n).
func Index1(text string, n int) (idx int, inRange, ok bool) {
	i, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return 0, false, false
	}
	idx = i - 1
	return idx, idx >= 0 && idx < n, true
}

// MatchOption finds the first option containing text as a case-insensitive
// substring.
func MatchOption(text string, options []string) (string, bool) {
	lower := strings.ToLower(strings.TrimSpace(text))
	for _, opt := range options {
		if strings.Contains(strings.ToLower(opt), lower) {
			return opt, true
		}
	}
	return "", false
}
