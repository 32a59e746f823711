// Package assemble turns per-item extraction results into the final,
// deterministic event sequence: dedup, merge against the previously
// persisted set, date-horizon filtering, sorting, and the guard that keeps
// a failed scrape from silently wiping the published calendar.
package assemble

import (
	"errors"
	"sort"
	"time"

	"harborcal/internal/event"
)

// ErrEmptyResult is returned when a run assembles zero events and the
// caller has not explicitly permitted an empty write. It is the signal
// that the persisted document was left untouched.
var ErrEmptyResult = errors.New("assembled zero events and empty writes are not permitted")

// Assembler holds the run parameters that drive merging and filtering.
type Assembler struct {
	// Host and Company identify platform events by URL shape; everything
	// else in the persisted document is foreign and carried forward.
	Host    string
	Company string

	// Location computes "today" for the date horizon filter. Stored
	// timestamps are never adjusted, only compared.
	Location *time.Location

	// Merge carries forward foreign events from the previous document.
	// When false the previous document is ignored entirely.
	Merge bool

	// AllowEmpty permits producing an empty sequence.
	AllowEmpty bool
}

// Assemble produces the full replacement event sequence for this run.
// Candidates are the freshly scraped events in extraction order; previous
// is the persisted sequence read at run start.
func (a *Assembler) Assemble(candidates, previous []event.Event, now time.Time) ([]event.Event, error) {
	fresh := dedupe(candidates)

	var merged []event.Event
	if a.Merge {
		// Foreign events survive unconditionally; platform events from
		// the previous run are replaced by the fresh extraction.
		for _, ev := range previous {
			if !a.isPlatform(ev) {
				merged = append(merged, ev)
			}
		}
	}
	merged = append(merged, fresh...)

	today := now.In(a.Location).Format("2006-01-02")
	kept := merged[:0]
	for _, ev := range merged {
		if a.isPlatform(ev) && ev.HorizonDate() < today {
			continue
		}
		kept = append(kept, ev)
	}

	// Fixed-width zero-padded timestamps make lexical order chronological.
	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].Start != kept[j].Start {
			return kept[i].Start < kept[j].Start
		}
		return kept[i].Title < kept[j].Title
	})

	if len(kept) == 0 && !a.AllowEmpty {
		return nil, ErrEmptyResult
	}
	return kept, nil
}

func (a *Assembler) isPlatform(ev event.Event) bool {
	return event.IsPlatform(ev.URL, a.Host, a.Company)
}

// dedupe collapses candidates sharing (url, start); the first occurrence
// wins and later duplicates are dropped silently.
func dedupe(candidates []event.Event) []event.Event {
	type key struct {
		url   string
		start string
	}
	seen := make(map[key]bool, len(candidates))
	out := make([]event.Event, 0, len(candidates))
	for _, ev := range candidates {
		k := key{url: ev.URL, start: ev.Start}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, ev)
	}
	return out
}
