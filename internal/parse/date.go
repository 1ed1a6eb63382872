// Package parse turns free-text Spanish chat input into typed values:
// calendar dates, clock times, emails, phone numbers and menu selections.
// Both booking flows share this one grammar.
package parse

import (
	"regexp"
	"strings"
	"time"
)

// weekdays lists Spanish weekday names, accent-insensitive, in match order.
var weekdays = []struct {
	name string
	day  time.Weekday
}{
	{"lunes", time.Monday},
	{"martes", time.Tuesday},
	{"miercoles", time.Wednesday},
	{"miércoles", time.Wednesday},
	{"jueves", time.Thursday},
	{"viernes", time.Friday},
	{"sabado", time.Saturday},
	{"sábado", time.Saturday},
	{"domingo", time.Sunday},
}

var months = map[string]time.Month{
	"enero":      time.January,
	"febrero":    time.February,
	"marzo":      time.March,
	"abril":      time.April,
	"mayo":       time.May,
	"junio":      time.June,
	"julio":      time.July,
	"agosto":     time.August,
	"septiembre": time.September,
	"octubre":    time.October,
	"noviembre":  time.November,
	"diciembre":  time.December,
}

var dayOfMonthRe = regexp.MustCompile(`(\d{1,2})\s*(?:de)?\s*(enero|febrero|marzo|abril|mayo|junio|julio|agosto|septiembre|octubre|noviembre|diciembre)`)

// Date parses a Spanish date expression relative to now. Recognized, in
// priority order: the literals hoy / manana / pasado manana, a weekday name
// (the next occurrence strictly after today), and "<day> de <month>" (rolled
// to next year when already past). Returns false when nothing matches.
func Date(text string, now time.Time) (time.Time, bool) {
	lower := strings.ToLower(strings.TrimSpace(text))
	today := midnight(now)

	switch lower {
	case "hoy":
		return today, true
	case "manana", "mañana":
		return today.AddDate(0, 0, 1), true
	case "pasado manana", "pasado mañana":
		return today.AddDate(0, 0, 2), true
	}

	for _, wd := range weekdays {
		if strings.Contains(lower, wd.name) {
			ahead := int(wd.day-now.Weekday()+7) % 7
			if ahead == 0 {
				ahead = 7 // same weekday rolls a full week forward
			}
			return today.AddDate(0, 0, ahead), true
		}
	}

	if m := dayOfMonthRe.FindStringSubmatch(lower); m != nil {
		day := atoi(m[1])
		month := months[m[2]]
		year := now.Year()
		if month < now.Month() || (month == now.Month() && day < now.Day()) {
			year++
		}
		d := time.Date(year, month, day, 0, 0, 0, 0, now.Location())
		if d.Day() != day || d.Month() != month {
			return time.Time{}, false // e.g. 31 de febrero
		}
		return d, true
	}

	return time.Time{}, false
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func atoi(s string) int {
	n := 0
	for _, r := range s {
		n = n*10 + int(r-'0')
	}
	return n
}
