package feed

import (
	"time"

	"github.com/teambition/rrule-go"
)

const defaultMaxOccurrences = 1000

// ExpandConfig bounds recurrence expansion.
type ExpandConfig struct {
	// RangeStart / RangeEnd delimit the occurrence window.
	RangeStart time.Time
	RangeEnd   time.Time
	// MaxOccurrences caps expansion per event. Zero means the default.
	MaxOccurrences int
}

// Expand turns parsed events into concrete occurrences within the
// configured window. Non-recurring events pass through when they
// intersect the window; RRULE events are expanded with EXDATEs applied
// and each occurrence gets a distinct uid derived from the base uid
// and its start instant.
func Expand(events []Event, cfg ExpandConfig) []Event {
	if cfg.MaxOccurrences <= 0 {
		cfg.MaxOccurrences = defaultMaxOccurrences
	}

	out := make([]Event, 0, len(events))
	for _, ev := range events {
		if ev.RawRRule == "" {
			if rangesOverlap(ev.Start, ev.End, cfg.RangeStart, cfg.RangeEnd) {
				out = append(out, ev)
			}
			continue
		}
		out = append(out, expandRecurring(ev, cfg)...)
	}
	return out
}

func expandRecurring(ev Event, cfg ExpandConfig) []Event {
	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		// Unexpandable rule: fall back to the base event so it is not
		// silently lost.
		if rangesOverlap(ev.Start, ev.End, cfg.RangeStart, cfg.RangeEnd) {
			return []Event{ev}
		}
		return nil
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	rangeStart := cfg.RangeStart.In(ev.Start.Location())
	rangeEnd := cfg.RangeEnd.In(ev.Start.Location())
	occTimes := set.Between(rangeStart, rangeEnd, true)
	if len(occTimes) > cfg.MaxOccurrences {
		occTimes = occTimes[:cfg.MaxOccurrences]
	}

	duration := ev.End.Sub(ev.Start)

	out := make([]Event, 0, len(occTimes))
	for _, start := range occTimes {
		occ := ev
		occ.RawRRule = ""
		occ.ExDates = nil
		if ev.AllDay {
			day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
			occ.Start = day
			occ.End = day.Add(24 * time.Hour)
		} else {
			occ.Start = start
			occ.End = start.Add(duration)
		}
		// Per-occurrence uid: stable across fetches as long as the
		// provider keeps the base uid and the rule.
		occ.UID = ev.UID + "#" + start.UTC().Format("20060102T150405Z")
		out = append(out, occ)
	}
	return out
}

func rangesOverlap(aStart, aEnd, bStart, bEnd time.Time) bool {
	if aEnd.IsZero() {
		aEnd = aStart
	}
	return !aEnd.Before(bStart) && !bEnd.Before(aStart)
}
