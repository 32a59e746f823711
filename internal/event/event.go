// Package event defines the calendar event record published for the
// front end, and the URL-shape classification that separates booking
// platform events from manually-added foreign ones.
package event

import (
	"net/url"
	"regexp"
	"strings"
	"time"
)

// TimestampLayout is the local-datetime format used for Start and End.
// No timezone offset is embedded; the strings are fixed-width and
// zero-padded, so lexical comparison orders them chronologically.
const TimestampLayout = "2006-01-02T15:04:05"

// Event is one calendar entry. It is both the per-run candidate shape and
// the persisted shape; candidates only exist inside a single run.
type Event struct {
	Title     string `json:"title"`
	Start     string `json:"start"`
	End       string `json:"end"`
	URL       string `json:"url"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

// FormatLocal pairs a calendar date with a clock time into a Start/End
// timestamp string.
func FormatLocal(date time.Time, hour, minute int) string {
	return time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, time.UTC).
		Format(TimestampLayout)
}

// Date returns the calendar-date prefix ("2006-01-02") of a timestamp
// string, or "" if the string is too short to carry one.
func Date(timestamp string) string {
	if len(timestamp) < 10 {
		return ""
	}
	return timestamp[:10]
}

// HorizonDate returns the date used for the past-event filter: the end
// date if present, otherwise the start date.
func (e Event) HorizonDate() string {
	if d := Date(e.End); d != "" {
		return d
	}
	return Date(e.Start)
}

var itemIDRe = regexp.MustCompile(`/items/(\d+)`)

// IsPlatform reports whether rawURL points at the booking platform: same
// hostname (bare or www) and the company path segment present in the path.
// Anything else is a foreign event and is never rewritten by the pipeline.
func IsPlatform(rawURL, host, company string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	h := strings.ToLower(u.Hostname())
	if h != strings.ToLower(host) && h != "www."+strings.ToLower(host) {
		return false
	}
	return strings.Contains(u.Path, "/"+company+"/")
}

// ItemID extracts the numeric bookable-item identifier from a platform
// URL, or "" when the URL does not carry one.
func ItemID(rawURL string) string {
	m := itemIDRe.FindStringSubmatch(rawURL)
	if m == nil {
		return ""
	}
	return m[1]
}
