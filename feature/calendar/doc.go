// Package calendar owns the persisted side of feed reconciliation:
// the calendar subscriptions, the external_events table, and the
// service that runs fetch → parse → expand → plan → apply for one
// calendar at a time.
//
// The planner in core/sync is pure; this package supplies its inputs
// (a row snapshot scoped to one calendar) and applies its Operations
// batch inside a single transaction, including the miss_count
// increment for unmatched rows the planner chose to keep. User
// metadata columns (category, completed, remind_minutes) are never
// written during a sync, so they survive provider uid churn.
package calendar
