package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"feedsync/core/config"
	"feedsync/core/database"
	"feedsync/core/logger"
	"feedsync/core/storage"
	"feedsync/feature/calendar"
	"feedsync/feature/calendar/models"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Flags for the sync command
	syncAllCalendars bool
	dryRunSync       bool
	yesConfirm       bool
)

// syncCmd performs a one-shot sync outside the scheduler.
var syncCmd = &cobra.Command{
	Use:   "sync [calendar-id]",
	Short: "Sync calendars against their feeds (report + optionally apply)",
	Long: `Sync one calendar (by id) or all calendars against their remote feeds.

Fetches and expands each feed, matches events against stored rows and
plans creates, updates, restores and deletions.

Examples:
  # Plan only, apply nothing
  sync <calendar-id> --dry-run

  # Sync one calendar (deletions prompt for confirmation)
  sync <calendar-id>

  # Sync everything non-interactively
  sync --all --yes`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolVar(&syncAllCalendars, "all", false, "Sync every calendar")
	syncCmd.Flags().BoolVar(&dryRunSync, "dry-run", false, "Plan only, apply nothing")
	syncCmd.Flags().BoolVar(&yesConfirm, "yes", false, "Auto-confirm deletions (non-interactive)")

	RootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if !syncAllCalendars && len(args) == 0 {
		return fmt.Errorf("pass a calendar id or --all")
	}

	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	l, err := logger.New(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	// Connect to database
	db, err := database.Connect(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.AutoMigrate(&models.Calendar{}, &models.ExternalEvent{}); err != nil {
		return fmt.Errorf("failed to migrate database schema: %w", err)
	}

	// Connect to storage (feed archive)
	client, err := storage.NewClient(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to connect to storage: %w", err)
	}

	feat := calendar.NewFeature(db, client, cfg.Storage.Bucket, l, cfg.Feed, cfg.Sync)
	svc := feat.Service()

	if syncAllCalendars {
		return runSyncAll(ctx, svc, l)
	}
	return runSyncOne(ctx, svc, l, args[0])
}

func runSyncOne(ctx context.Context, svc *calendar.Service, l *zap.Logger, calendarID string) error {
	// Step 1: Plan (always runs)
	l.Info("Planning sync", zap.String("calendar_id", calendarID))
	plan, err := svc.PlanCalendar(ctx, calendarID)
	if err != nil {
		return fmt.Errorf("failed to plan sync: %w", err)
	}

	printSyncPlan(l, plan)

	if dryRunSync {
		l.Info("Dry-run mode: No changes were made.")
		return nil
	}

	// Step 2: Confirm deletions
	deletions := plan.Planned.SoftDeletes + plan.Planned.ImmediateDeletes
	if deletions > 0 && !confirmDeletions(deletions) {
		l.Warn("Operation cancelled by user. No changes were made.")
		return nil
	}

	// Step 3: Apply. The service re-plans against fresh rows, so the
	// applied batch may differ slightly from the printed plan.
	report, err := svc.SyncCalendar(ctx, calendarID)
	if err != nil {
		return fmt.Errorf("failed to sync calendar: %w", err)
	}

	l.Info("Sync applied",
		zap.Int("created", report.Applied.Created),
		zap.Int("updated", report.Applied.Updated),
		zap.Int("unchanged", report.Applied.Unchanged),
		zap.Int("soft_deleted", report.Applied.SoftDeleted),
		zap.Int("restored", report.Applied.Restored),
		zap.Int("hard_deleted", report.Applied.HardDeleted),
		zap.Int("missed", report.Applied.Missed),
		zap.String("duration", report.Duration),
	)
	return nil
}

func runSyncAll(ctx context.Context, svc *calendar.Service, l *zap.Logger) error {
	if dryRunSync {
		return fmt.Errorf("--dry-run requires a single calendar id")
	}
	if !yesConfirm && !confirmDeletions(0) {
		l.Warn("Operation cancelled by user. No changes were made.")
		return nil
	}

	reports := svc.SyncAll(ctx)
	for _, report := range reports {
		l.Info("Calendar synced",
			zap.String("calendar_id", report.CalendarID),
			zap.Int("fetched", report.FetchedEvents),
			zap.Int("created", report.Applied.Created),
			zap.Int("updated", report.Applied.Updated),
			zap.Int("soft_deleted", report.Applied.SoftDeleted),
			zap.Int("restored", report.Applied.Restored),
			zap.Int("hard_deleted", report.Applied.HardDeleted),
		)
	}
	l.Info("Sync finished", zap.Int("calendars", len(reports)))
	return nil
}

// printSyncPlan prints a formatted plan report using the logger.
func printSyncPlan(l *zap.Logger, plan *calendar.SyncReport) {
	l.Info("Sync plan",
		zap.String("calendar_id", plan.CalendarID),
		zap.Int("fetched_events", plan.FetchedEvents),
		zap.Bool("from_archive", plan.FromArchive),
		zap.Int("creates", plan.Planned.Creates),
		zap.Int("updates", plan.Planned.Updates),
		zap.Int("soft_deletes", plan.Planned.SoftDeletes),
		zap.Int("restores", plan.Planned.Restores),
		zap.Int("immediate_deletes", plan.Planned.ImmediateDeletes),
	)

	// Show a sample of the planned deletions with their reasons (max 5)
	shown := 0
	for _, op := range plan.Operations.SoftDeletes {
		if shown >= 5 {
			break
		}
		l.Info("Planned soft delete", zap.String("row_id", op.RowID), zap.String("reason", op.Reason))
		shown++
	}
	for _, op := range plan.Operations.ImmediateDeletes {
		if shown >= 5 {
			break
		}
		l.Info("Planned hard delete", zap.String("row_id", op.RowID), zap.String("reason", op.Reason))
		shown++
	}
	remaining := len(plan.Operations.SoftDeletes) + len(plan.Operations.ImmediateDeletes) - shown
	if remaining > 0 {
		l.Info("Additional deletions not shown", zap.Int("count", remaining))
	}
}

// confirmDeletions prompts the user for confirmation or uses --yes flag.
func confirmDeletions(count int) bool {
	if yesConfirm {
		fmt.Println("\n✓ Auto-confirmed via --yes flag")
		return true
	}

	if count > 0 {
		fmt.Printf("\n⚠️  %d rows will be deleted. Type 'yes' to confirm: ", count)
	} else {
		fmt.Print("\n⚠️  Deletions may be applied. Type 'yes' to confirm: ")
	}
	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	response = strings.TrimSpace(response)
	return response == "yes"
}
