// Package sync computes the mutations needed to converge a local
// store of external calendar events with a freshly fetched feed.
//
// Feed providers do not guarantee stable event identifiers, fetches
// fail transiently, and users attach private metadata to specific
// rows that must survive identifier churn. This package resolves all
// of that with two pure building blocks:
//
// 1. Matcher: a three-tier identity search per fetched event:
// exact provider uid, exact title+start content, then token-set fuzzy
// scoring restricted to candidates within a start-time tolerance.
//
// 2. Planner: a single pass over the fetched events and a single pass
// over the persisted rows, emitting a batch of five disjoint
// operation lists (creates, updates, soft deletes, restores,
// immediate deletes), each entry carrying a human-readable reason.
//
// Deletion policy is deliberately conservative: an unmatched row is
// only soft-deleted after a grace window has elapsed since it was
// last seen in the feed, or after it has been missed in enough
// consecutive successful fetches (the miss ceiling). A single fetch
// outage therefore never deletes anything, while a heavily rewritten
// event is still removed eventually.
//
// The package performs no I/O. Fetching, parsing, and applying the
// returned Operations batch belong to the caller; see feature/feed
// and feature/calendar. The caller must apply a batch transactionally
// per calendar and must increment miss_count for every unmatched row
// the planner chose to keep, or the miss ceiling never triggers.
package sync
