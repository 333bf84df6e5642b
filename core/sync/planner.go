package sync

import (
	"fmt"
	"strings"
	"time"
)

// Plan computes the mutation batch that converges the persisted rows
// toward the freshly fetched feed. It is a pure function of its
// inputs: no I/O, no shared state, safe to call from concurrent
// workers on independent snapshots.
//
// methodCancel enables cancellation handling: a fetched event whose
// STATUS is CANCELLED or whose METHOD is CANCEL (case-insensitive)
// hard-deletes its matched row, and is silently dropped when no row
// matches it.
//
// Rows unmatched by any fetched event are soft-deleted once the grace
// window has elapsed or the miss ceiling is reached. Below both
// thresholds no operation is emitted; the caller must increment the
// row's miss count when applying the batch, so repeated misses across
// successful fetches eventually cross MaxMissCount even inside the
// grace window.
func Plan(fetched []FetchedEvent, rows []EventRow, methodCancel bool, opts Options) Operations {
	var ops Operations
	matched := make(map[string]struct{}, len(rows))

	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	for _, event := range fetched {
		// Rows already claimed in this run are out of the candidate
		// set; a row id must land in at most one operation list.
		candidates := make([]EventRow, 0, len(rows))
		for _, row := range rows {
			if _, taken := matched[row.ID]; !taken {
				candidates = append(candidates, row)
			}
		}

		row := MatchEvent(event, candidates, opts)
		if row == nil {
			if methodCancel && isCancelled(event) {
				// Already dead upstream and never materialized
				// locally; nothing to create.
				continue
			}
			ops.Creates = append(ops.Creates, CreateOp{
				Event:  event,
				Reason: fmt.Sprintf("no existing row for uid %s", event.UID),
			})
			continue
		}

		matched[row.ID] = struct{}{}

		switch {
		case methodCancel && isCancelled(event):
			ops.ImmediateDeletes = append(ops.ImmediateDeletes, DeleteOp{
				RowID:  row.ID,
				Reason: fmt.Sprintf("cancelled upstream (status=%q method=%q)", event.Status, event.Method),
			})
		case row.Deleted:
			ops.Restores = append(ops.Restores, RestoreOp{
				RowID:  row.ID,
				Event:  event,
				Reason: fmt.Sprintf("uid %s reappeared in feed", event.UID),
			})
		default:
			ops.Updates = append(ops.Updates, UpdateOp{
				RowID:  row.ID,
				Event:  event,
				Reason: "matched in feed; refresh fields",
			})
		}
	}

	for _, row := range rows {
		if _, ok := matched[row.ID]; ok {
			continue
		}
		if row.Deleted {
			// Already tombstoned; nothing new to propose.
			continue
		}

		hoursSinceSeen := now.Sub(row.LastSeen).Hours()
		if hoursSinceSeen >= float64(opts.GraceHours) || row.MissCount >= opts.MaxMissCount {
			ops.SoftDeletes = append(ops.SoftDeletes, DeleteOp{
				RowID: row.ID,
				Reason: fmt.Sprintf("unmatched for %.1fh (grace %dh), miss_count=%d (max %d)",
					hoursSinceSeen, opts.GraceHours, row.MissCount, opts.MaxMissCount),
			})
		}
		// Below both thresholds: wait. The caller increments
		// miss_count for this row.
	}

	return ops
}

// isCancelled reports whether the provider flagged the event as
// cancelled, either per-event (STATUS:CANCELLED) or per-message
// (METHOD:CANCEL).
func isCancelled(event FetchedEvent) bool {
	return strings.EqualFold(event.Status, "CANCELLED") || strings.EqualFold(event.Method, "CANCEL")
}
