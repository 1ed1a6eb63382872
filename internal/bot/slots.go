package bot

import (
	"fmt"
	"time"
)

// Business-day slot window: [09:00, 18:00) at 30-minute granularity.
const (
	slotOpenHour  = 9
	slotCloseHour = 18
	slotStepMin   = 30
)

// GenerateSlots enumerates every HH:MM slot start inside the business-day
// window that is not in the booked set, in chronological order.
func GenerateSlots(day time.Time, booked []string) []string {
	taken := make(map[string]bool, len(booked))
	for _, b := range booked {
		taken[b] = true
	}

	var slots []string
	cur := time.Date(day.Year(), day.Month(), day.Day(), slotOpenHour, 0, 0, 0, day.Location())
	end := time.Date(day.Year(), day.Month(), day.Day(), slotCloseHour, 0, 0, 0, day.Location())
	for cur.Before(end) {
		s := fmt.Sprintf("%02d:%02d", cur.Hour(), cur.Minute())
		if !taken[s] {
			slots = append(slots, s)
		}
		cur = cur.Add(slotStepMin * time.Minute)
	}
	return slots
}
