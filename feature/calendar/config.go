package calendar

import coresync "feedsync/core/sync"

// Config holds configuration for the sync feature.
type Config struct {
	// Cron is the schedule on which all calendars are synced.
	Cron string `mapstructure:"cron" default:"@every 30m"`
	// MethodCancel enables cancellation handling (STATUS:CANCELLED /
	// METHOD:CANCEL hard-delete their matched rows).
	MethodCancel bool `mapstructure:"method_cancel" default:"true"`
	// Policy tunes the matcher and the deletion thresholds.
	Policy coresync.Options `mapstructure:"policy"`
}
