package cmd

import (
	"fmt"

	"feedsync/core/config"
	"feedsync/core/database"
	"feedsync/core/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// requiredColumns lists the columns each table must carry for syncs to
// work. Kept in step with the models in feature/calendar/models.
var requiredColumns = map[string][]string{
	"calendars": {
		"id", "name", "feed_url", "timezone", "enabled",
	},
	"external_events": {
		"id", "calendar_id", "provider_event_uid", "title",
		"start_date", "start_time", "end_date", "end_time",
		"miss_count", "deleted", "last_seen_at",
	},
}

// checkCmd verifies the database schema matches what the sync engine expects.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the database schema",
	Long: `Checks that the calendars and external_events tables exist and carry
the columns the sync engine reads and writes. Useful when migrations are
managed outside the service.`,
	RunE: runCheck,
}

func init() {
	RootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	l, err := logger.New(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	problems := 0
	for table, required := range requiredColumns {
		columns, err := database.GetTableColumns(db, table)
		if err != nil {
			return fmt.Errorf("failed to inspect table %s: %w", table, err)
		}
		if len(columns) == 0 {
			l.Error("Table missing", zap.String("table", table))
			problems++
			continue
		}

		present := make(map[string]bool, len(columns))
		for _, col := range columns {
			present[col.Field] = true
		}
		for _, name := range required {
			if !present[name] {
				l.Error("Column missing",
					zap.String("table", table),
					zap.String("column", name))
				problems++
			}
		}
	}

	if problems > 0 {
		return fmt.Errorf("schema check found %d problems", problems)
	}
	l.Info("Schema check passed")
	return nil
}
