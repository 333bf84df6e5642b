// Package feed fetches and normalizes third-party iCalendar feeds.
//
// It is the upstream collaborator of the reconciliation engine in
// core/sync: it turns an ICS payload into the list of normalized
// events (local date/time string pairs, all-day detection, cancel
// flags) the planner consumes. A fetch failure aborts the sync for
// that calendar before the planner runs, so a transient outage never
// looks like a feed that deleted all its events.
//
// The fetcher honors ETag / Last-Modified and archives the last good
// body in object storage, falling back to the archive on network
// errors and 304 responses. Recurring events are expanded into
// concrete occurrences over a bounded horizon before normalization.
package feed
