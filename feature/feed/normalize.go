package feed

import (
	"time"

	"feedsync/core/sync"
)

// Normalize converts parsed (and expanded) events into the engine's
// FetchedEvent form: instants projected into loc and split into the
// local date/time string pairs the matcher treats as authoritative.
func Normalize(events []Event, loc *time.Location) []sync.FetchedEvent {
	if loc == nil {
		loc = time.Local
	}

	out := make([]sync.FetchedEvent, 0, len(events))
	for _, ev := range events {
		start := ev.Start.In(loc)
		end := ev.End.In(loc)

		fe := sync.FetchedEvent{
			UID:          ev.UID,
			Summary:      ev.Summary,
			Description:  ev.Description,
			Location:     ev.Location,
			Start:        start,
			End:          end,
			StartDate:    start.Format("2006-01-02"),
			StartTime:    start.Format("15:04:05"),
			EndDate:      end.Format("2006-01-02"),
			EndTime:      end.Format("15:04:05"),
			Timezone:     loc.String(),
			AllDay:       ev.AllDay,
			Categories:   ev.Categories,
			LastModified: ev.LastModified,
			Status:       ev.Status,
			Method:       ev.Method,
		}
		if ev.AllDay {
			fe.StartTime = "00:00:00"
			fe.EndTime = "00:00:00"
		}
		out = append(out, fe)
	}
	return out
}
