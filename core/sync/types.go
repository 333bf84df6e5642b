package sync

import "time"

// FetchedEvent is one event as produced by the feed fetch+parse step.
// It is ephemeral: rebuilt on every fetch, with no identity beyond its
// provider UID and content. The local date/time string pairs are the
// authoritative fields for matching and storage; the resolved instants
// are kept for consumers that need real time.Time values.
type FetchedEvent struct {
	// UID is the provider-supplied identifier. Not assumed stable.
	UID string `json:"uid"`

	// Summary is the event title.
	Summary string `json:"summary"`

	// Description is the event body text.
	Description string `json:"description"`

	// Location is the event location text.
	Location string `json:"location"`

	// Start and End are the resolved instants.
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`

	// StartDate/StartTime/EndDate/EndTime are the local calendar
	// components ("2006-01-02" and "15:04:05").
	StartDate string `json:"start_date"`
	StartTime string `json:"start_time"`
	EndDate   string `json:"end_date"`
	EndTime   string `json:"end_time"`

	// Timezone is the IANA zone name the local components refer to.
	Timezone string `json:"timezone"`

	// AllDay marks date-only events.
	AllDay bool `json:"all_day"`

	// Categories are the provider's CATEGORIES values.
	Categories []string `json:"categories,omitempty"`

	// LastModified is the provider's LAST-MODIFIED timestamp, if any.
	LastModified *time.Time `json:"last_modified,omitempty"`

	// Status and Method carry the raw STATUS / METHOD values used to
	// detect cancellation.
	Status string `json:"status,omitempty"`
	Method string `json:"method,omitempty"`

	// Raw is the serialized source component, kept for archival.
	Raw string `json:"-"`
}

// EventRow is the planner's read-model of a persisted external event.
// It is owned by storage; the planner only reads it and proposes
// mutations through Operations.
type EventRow struct {
	// ID is the internal, stable, system-assigned identifier.
	ID string

	// ProviderUID is the last-seen provider uid for this row.
	ProviderUID string

	Title       string
	Description string
	Location    string

	StartDate string
	StartTime string
	EndDate   string
	EndTime   string

	AllDay bool

	// ExternalLastModified is the provider timestamp stored at the last
	// write, if the provider supplied one.
	ExternalLastModified *time.Time

	// MissCount is the number of consecutive planning runs in which no
	// fetched event matched this row. Maintained by the caller, read by
	// the planner.
	MissCount int

	// Deleted is the soft-delete flag.
	Deleted bool

	// LastSeen is the grace-period clock: the last time a fetched event
	// matched this row. Unrelated field edits must not touch it.
	LastSeen time.Time
}

// Options configures the matcher and the deletion policy.
// Configuration, not state.
type Options struct {
	// GraceHours is the time window an unmatched row survives before a
	// soft delete is proposed.
	GraceHours int `mapstructure:"grace_hours" default:"6"`

	// FuzzyThreshold is the minimum fuzzy score for a tier-3 match.
	FuzzyThreshold float64 `mapstructure:"fuzzy_threshold" default:"0.65"`

	// DTToleranceSeconds bounds the start-time distance for fuzzy
	// candidates.
	DTToleranceSeconds int `mapstructure:"dt_tolerance_seconds" default:"300"`

	// MaxMissCount is the miss ceiling that triggers a soft delete even
	// inside the grace window.
	MaxMissCount int `mapstructure:"max_miss_count" default:"3"`

	// Now overrides the planner's clock. Zero means time.Now().
	Now time.Time `mapstructure:"-"`
}

// DefaultOptions returns the policy defaults.
func DefaultOptions() Options {
	return Options{
		GraceHours:         6,
		FuzzyThreshold:     0.65,
		DTToleranceSeconds: 300,
		MaxMissCount:       3,
	}
}

// CreateOp proposes inserting a new row from a fetched event.
type CreateOp struct {
	Event  FetchedEvent `json:"event"`
	Reason string       `json:"reason"`
}

// UpdateOp proposes refreshing an existing row from a fetched event.
type UpdateOp struct {
	RowID  string       `json:"row_id"`
	Event  FetchedEvent `json:"event"`
	Reason string       `json:"reason"`
}

// RestoreOp proposes clearing a row's soft-delete flag and refreshing
// its fields from a fetched event.
type RestoreOp struct {
	RowID  string       `json:"row_id"`
	Event  FetchedEvent `json:"event"`
	Reason string       `json:"reason"`
}

// DeleteOp proposes a soft delete or a hard delete of a row.
type DeleteOp struct {
	RowID  string `json:"row_id"`
	Reason string `json:"reason"`
}

// Operations is the planner's sole output: five disjoint lists of
// proposed mutations. A given row id appears in at most one list.
type Operations struct {
	Creates          []CreateOp  `json:"creates"`
	Updates          []UpdateOp  `json:"updates"`
	SoftDeletes      []DeleteOp  `json:"soft_deletes"`
	Restores         []RestoreOp `json:"restores"`
	ImmediateDeletes []DeleteOp  `json:"immediate_deletes"`
}

// Summary provides aggregate counts for an Operations batch.
type Summary struct {
	Creates          int `json:"creates"`
	Updates          int `json:"updates"`
	SoftDeletes      int `json:"soft_deletes"`
	Restores         int `json:"restores"`
	ImmediateDeletes int `json:"immediate_deletes"`
}

// Summary returns aggregate counts for the batch.
func (o Operations) Summary() Summary {
	return Summary{
		Creates:          len(o.Creates),
		Updates:          len(o.Updates),
		SoftDeletes:      len(o.SoftDeletes),
		Restores:         len(o.Restores),
		ImmediateDeletes: len(o.ImmediateDeletes),
	}
}

// IsEmpty reports whether the batch proposes no mutations.
func (o Operations) IsEmpty() bool {
	return len(o.Creates) == 0 && len(o.Updates) == 0 && len(o.SoftDeletes) == 0 &&
		len(o.Restores) == 0 && len(o.ImmediateDeletes) == 0
}
