package sync

// DateTimeString composes a local date and time into a single
// comparable string ("2006-01-02" + "T" + "15:04:05"). Matcher and
// diff logic use it consistently so local instants compare without
// timezone ambiguity.
func DateTimeString(date, timeOfDay string) string {
	return date + "T" + timeOfDay
}

// NeedsUpdate reports whether writing a matched row from the fetched
// event would change anything. The planner proposes updates
// generically; callers use this as a finer-grained gate to skip no-op
// writes. Empty strings compare equal to absent values.
func NeedsUpdate(event FetchedEvent, row EventRow) bool {
	if event.Summary != row.Title {
		return true
	}
	if event.Description != row.Description {
		return true
	}
	if event.Location != row.Location {
		return true
	}
	if event.StartDate != row.StartDate || event.StartTime != row.StartTime {
		return true
	}
	if event.EndDate != row.EndDate || event.EndTime != row.EndTime {
		return true
	}
	if event.AllDay != row.AllDay {
		return true
	}
	if event.LastModified != nil {
		if row.ExternalLastModified == nil || event.LastModified.After(*row.ExternalLastModified) {
			return true
		}
	}
	return false
}
