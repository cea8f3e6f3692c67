// Package schedule evaluates recurring weekly business-hours windows.
package schedule

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Hours is a weekly availability window. Days holds lowercase three-letter
// weekday codes ("mon".."sun"); StartTime and EndTime are 24-hour "HH:MM"
// strings with StartTime before EndTime on the same day.
type Hours struct {
	Days      []string `json:"days"`
	StartTime string   `json:"startTime"`
	EndTime   string   `json:"endTime"`
}

// Parse decodes the JSON-encoded hours stored on a user record.
// Malformed input yields nil: a schedule that cannot be read is simply
// never active.
func Parse(raw string) *Hours {
	if raw == "" {
		return nil
	}
	var h Hours
	if err := json.Unmarshal([]byte(raw), &h); err != nil {
		return nil
	}
	return &h
}

// Active reports whether at falls within business hours. A nil or
// malformed schedule, or a day outside Days, evaluates to false; this
// never panics and never returns an error.
func (h *Hours) Active(at time.Time) bool {
	if h == nil || len(h.Days) == 0 {
		return false
	}

	day := strings.ToLower(at.Format("Mon"))
	if !h.onDay(day) {
		return false
	}

	startH, startM, ok := parseClock(h.StartTime)
	if !ok {
		return false
	}
	endH, endM, ok := parseClock(h.EndTime)
	if !ok {
		return false
	}

	start := time.Date(at.Year(), at.Month(), at.Day(), startH, startM, 0, 0, at.Location())
	end := time.Date(at.Year(), at.Month(), at.Day(), endH, endM, 0, 0, at.Location())
	if !start.Before(end) {
		return false
	}

	// Closed interval: exactly start or exactly end counts as active.
	return !at.Before(start) && !at.After(end)
}

func (h *Hours) onDay(day string) bool {
	for _, d := range h.Days {
		if strings.ToLower(d) == day {
			return true
		}
	}
	return false
}

// parseClock parses "HH:MM", rejecting hours outside 0-23 and minutes
// outside 0-59.
func parseClock(s string) (hour, minute int, ok bool) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, 0, false
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, false
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, false
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, false
	}
	return hour, minute, true
}
