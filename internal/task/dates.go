package task

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var relativePattern = regexp.MustCompile(`^in\s+(\d+)\s*([hmd])$`)

// ParseFlexibleDate converts a free-form date expression into an absolute
// time. Recognized forms, in order: "tomorrow" (next day 09:00), "today"
// (23:59), "in <N><unit>" with unit h/m/d, "YYYY-MM-DD HH:MM", and
// "YYYY-MM-DD" (09:00). The reference time is injected so parsing stays
// deterministic; the second result is false when nothing matches.
func ParseFlexibleDate(text string, ref time.Time) (time.Time, bool) {
	text = strings.ToLower(strings.TrimSpace(text))

	switch text {
	case "tomorrow":
		y, m, d := ref.AddDate(0, 0, 1).Date()
		return time.Date(y, m, d, 9, 0, 0, 0, ref.Location()), true
	case "today":
		y, m, d := ref.Date()
		return time.Date(y, m, d, 23, 59, 0, 0, ref.Location()), true
	}

	if match := relativePattern.FindStringSubmatch(text); match != nil {
		value, err := strconv.Atoi(match[1])
		if err != nil {
			return time.Time{}, false
		}
		switch match[2] {
		case "h":
			return ref.Add(time.Duration(value) * time.Hour), true
		case "m":
			return ref.Add(time.Duration(value) * time.Minute), true
		case "d":
			return ref.AddDate(0, 0, value), true
		}
	}

	if t, err := time.ParseInLocation("2006-01-02 15:04", text, ref.Location()); err == nil {
		return t, true
	}
	if t, err := time.ParseInLocation("2006-01-02", text, ref.Location()); err == nil {
		return time.Date(t.Year(), t.Month(), t.Day(), 9, 0, 0, 0, ref.Location()), true
	}

	return time.Time{}, false
}
