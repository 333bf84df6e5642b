package models

import (
	"time"

	coresync "feedsync/core/sync"
)

// Calendar represents one subscribed external feed.
type Calendar struct {
	ID       string `gorm:"column:id;primaryKey" json:"id"`
	Name     string `gorm:"column:name" json:"name"`
	FeedURL  string `gorm:"column:feed_url" json:"feed_url"`
	Timezone string `gorm:"column:timezone" json:"timezone"`
	Enabled  bool   `gorm:"column:enabled;default:true" json:"enabled"`

	// LastSyncedAt / LastSyncError record the outcome of the most
	// recent sync attempt for operators.
	LastSyncedAt  *time.Time `gorm:"column:last_synced_at" json:"last_synced_at,omitempty"`
	LastSyncError string     `gorm:"column:last_sync_error" json:"last_sync_error,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

// TableName overrides the table name.
func (Calendar) TableName() string {
	return "calendars"
}

// ExternalEvent is the persisted counterpart of a fetched feed event.
// The feed owns the title/description/location/time fields; the
// category, completed and remind columns are user-private metadata
// that must survive provider uid churn and are never written during a
// sync.
type ExternalEvent struct {
	ID          string `gorm:"column:id;primaryKey"`
	CalendarID  string `gorm:"column:calendar_id;index"`
	ProviderUID string `gorm:"column:provider_event_uid;index"`

	Title       string `gorm:"column:title"`
	Description string `gorm:"column:description"`
	Location    string `gorm:"column:location"`

	StartDate string `gorm:"column:start_date"`
	StartTime string `gorm:"column:start_time"`
	EndDate   string `gorm:"column:end_date"`
	EndTime   string `gorm:"column:end_time"`
	AllDay    bool   `gorm:"column:is_all_day"`

	ExternalLastModified *time.Time `gorm:"column:external_last_modified"`
	RawPayload           string     `gorm:"column:raw_payload"`

	// User-private metadata.
	Category      string `gorm:"column:category"`
	Completed     bool   `gorm:"column:completed"`
	RemindMinutes int    `gorm:"column:remind_minutes"`

	// Reconciliation state.
	MissCount  int       `gorm:"column:miss_count"`
	Deleted    bool      `gorm:"column:deleted;index"`
	LastSeenAt time.Time `gorm:"column:last_seen_at"`

	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

// TableName overrides the table name.
func (ExternalEvent) TableName() string {
	return "external_events"
}

// ToSyncRow converts the persisted event into the planner's
// read-model.
func (e ExternalEvent) ToSyncRow() coresync.EventRow {
	return coresync.EventRow{
		ID:                   e.ID,
		ProviderUID:          e.ProviderUID,
		Title:                e.Title,
		Description:          e.Description,
		Location:             e.Location,
		StartDate:            e.StartDate,
		StartTime:            e.StartTime,
		EndDate:              e.EndDate,
		EndTime:              e.EndTime,
		AllDay:               e.AllDay,
		ExternalLastModified: e.ExternalLastModified,
		MissCount:            e.MissCount,
		Deleted:              e.Deleted,
		LastSeen:             e.LastSeenAt,
	}
}
