package feed

// Config holds configuration for feed fetching and expansion.
type Config struct {
	// TimeoutSeconds is the HTTP timeout for a single feed fetch.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"15"`
	// HorizonDays is how far ahead recurring events are expanded.
	HorizonDays int `mapstructure:"horizon_days" default:"60"`
	// LookbackDays is how far back the expansion window reaches, so
	// recently finished events still reconcile instead of soft-deleting.
	LookbackDays int `mapstructure:"lookback_days" default:"1"`
	// MaxOccurrences caps expansion per recurring event.
	MaxOccurrences int `mapstructure:"max_occurrences" default:"1000"`
}
