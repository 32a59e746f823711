// Package timetext turns the human-readable date and time text found on
// booking pages into machine-usable values.
//
// Everything here is best-effort by design: the upstream markup renders
// times inconsistently ("6:00 PM - 10:00 PM", "6 - 10pm", "7PM · 2 Hours"),
// so parsing proceeds through a fixed ladder of strategies and callers fall
// back to a default window rather than dropping the event.
package timetext

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Clock is a 24-hour wall-clock time.
type Clock struct {
	Hour   int
	Minute int
}

// Window is a start/end pair of clock times on the same calendar date.
type Window struct {
	Start Clock
	End   Clock
}

// DefaultWindow is assigned when no time information can be extracted at
// all. An approximate window is more useful to the calendar than no event.
var DefaultWindow = Window{Start: Clock{Hour: 10}, End: Clock{Hour: 20}}

var monthNames = map[string]time.Month{
	"january":   time.January,
	"february":  time.February,
	"march":     time.March,
	"april":     time.April,
	"may":       time.May,
	"june":      time.June,
	"july":      time.July,
	"august":    time.August,
	"september": time.September,
	"october":   time.October,
	"november":  time.November,
	"december":  time.December,
}

var dateLabelRe = regexp.MustCompile(
	`(?i)^(?:(?:sun|mon|tues|wednes|thurs|fri|satur)day,?\s+)?([a-z]+)\s+(\d{1,2}),?\s+(\d{4})$`)

// ParseDateLabel parses an availability date label like
// "Saturday, September 5, 2026" or "September 5, 2026" into a calendar
// date. The weekday prefix is optional and ignored.
func ParseDateLabel(label string) (time.Time, error) {
	m := dateLabelRe.FindStringSubmatch(strings.TrimSpace(label))
	if m == nil {
		return time.Time{}, fmt.Errorf("unrecognized date label %q", label)
	}

	month, ok := monthNames[strings.ToLower(m[1])]
	if !ok {
		return time.Time{}, fmt.Errorf("unknown month %q in date label %q", m[1], label)
	}

	day, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	if day < 1 || day > 31 {
		return time.Time{}, fmt.Errorf("day out of range in date label %q", label)
	}

	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC), nil
}

// Clock range joined by a dash (plain, en, em) or the word "to", each side
// optionally meridiem-qualified.
var rangeRe = regexp.MustCompile(
	`(?i)\b(\d{1,2})(?::(\d{2}))?\s*([ap]\.?m\.?)?\s*(?:-|–|—|\bto\b)\s*(\d{1,2})(?::(\d{2}))?\s*([ap]\.?m\.?)?`)

// Single meridiem-qualified clock time, for the duration fallback.
var clockRe = regexp.MustCompile(`(?i)\b(\d{1,2})(?::(\d{2}))?\s*([ap]\.?m\.?)`)

var (
	hoursRe   = regexp.MustCompile(`(?i)\b(\d{1,2})\s*(?:hours?|hrs?)\b`)
	minutesRe = regexp.MustCompile(`(?i)\b(\d{1,3})\s*(?:minutes?|mins?)\b`)
)

// ParseWindow extracts a time window from free page text. The strategies,
// in order:
//
//  1. An explicit clock range. At least one side must carry an AM/PM
//     marker; a one-sided marker is inherited by the other side (same half
//     of day), a zero-sided match is ambiguous and rejected.
//  2. A single meridiem-qualified start time plus a duration in hours
//     and/or minutes somewhere in the text. The end time is the start plus
//     the duration modulo 24 hours; a duration crossing midnight wraps to
//     the same calendar date's clock without advancing the date.
//
// The boolean is false when neither strategy matched; callers then use
// DefaultWindow.
func ParseWindow(text string) (Window, bool) {
	if w, ok := explicitRange(text); ok {
		return w, true
	}
	if w, ok := durationFallback(text); ok {
		return w, true
	}
	return DefaultWindow, false
}

func explicitRange(text string) (Window, bool) {
	for _, m := range rangeRe.FindAllStringSubmatch(text, -1) {
		startMer := normalizeMeridiem(m[3])
		endMer := normalizeMeridiem(m[6])
		if startMer == "" && endMer == "" {
			// No meridiem on either side: could be a date range, a
			// headcount, anything. Too ambiguous to trust.
			continue
		}
		if startMer == "" {
			startMer = endMer
		}
		if endMer == "" {
			endMer = startMer
		}

		start, ok := toClock(m[1], m[2], startMer)
		if !ok {
			continue
		}
		end, ok := toClock(m[4], m[5], endMer)
		if !ok {
			continue
		}
		return Window{Start: start, End: end}, true
	}
	return Window{}, false
}

func durationFallback(text string) (Window, bool) {
	m := clockRe.FindStringSubmatch(text)
	if m == nil {
		return Window{}, false
	}
	start, ok := toClock(m[1], m[2], normalizeMeridiem(m[3]))
	if !ok {
		return Window{}, false
	}

	minutes := 0
	if hm := hoursRe.FindStringSubmatch(text); hm != nil {
		h, _ := strconv.Atoi(hm[1])
		minutes += h * 60
	}
	if mm := minutesRe.FindStringSubmatch(text); mm != nil {
		v, _ := strconv.Atoi(mm[1])
		minutes += v
	}
	if minutes == 0 {
		return Window{}, false
	}

	total := (start.Hour*60 + start.Minute + minutes) % (24 * 60)
	end := Clock{Hour: total / 60, Minute: total % 60}
	return Window{Start: start, End: end}, true
}

// toClock converts 12-hour components plus a normalized meridiem into a
// 24-hour Clock. Rejects out-of-range hours and minutes.
func toClock(hourStr, minuteStr, meridiem string) (Clock, bool) {
	hour, _ := strconv.Atoi(hourStr)
	if hour < 1 || hour > 12 {
		return Clock{}, false
	}

	minute := 0
	if minuteStr != "" {
		minute, _ = strconv.Atoi(minuteStr)
		if minute > 59 {
			return Clock{}, false
		}
	}

	switch meridiem {
	case "am":
		if hour == 12 {
			hour = 0
		}
	case "pm":
		if hour != 12 {
			hour += 12
		}
	default:
		return Clock{}, false
	}

	return Clock{Hour: hour, Minute: minute}, true
}

// normalizeMeridiem reduces "P.M.", "pm", "Pm" to "pm" (likewise "am"),
// and anything else to "".
func normalizeMeridiem(s string) string {
	s = strings.ToLower(strings.ReplaceAll(s, ".", ""))
	if s == "am" || s == "pm" {
		return s
	}
	return ""
}
