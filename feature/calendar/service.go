package calendar

import (
	"context"
	"fmt"
	"time"

	coresync "feedsync/core/sync"
	"feedsync/feature/feed"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Service orchestrates one full reconciliation cycle per calendar:
// fetch, parse, expand, plan, apply. Concurrent triggers for the same
// calendar are collapsed; different calendars sync independently.
type Service struct {
	store   *Store
	fetcher *feed.Fetcher
	logger  *zap.Logger
	feedCfg feed.Config
	syncCfg Config

	sf singleflight.Group
}

// NewService creates a calendar sync service.
func NewService(store *Store, fetcher *feed.Fetcher, logger *zap.Logger, feedCfg feed.Config, syncCfg Config) *Service {
	if syncCfg.Policy == (coresync.Options{}) {
		// A zero policy would soft-delete on the first missed fetch.
		syncCfg.Policy = coresync.DefaultOptions()
	}
	return &Service{
		store:   store,
		fetcher: fetcher,
		logger:  logger,
		feedCfg: feedCfg,
		syncCfg: syncCfg,
	}
}

// SyncReport summarizes one sync run for one calendar.
type SyncReport struct {
	CalendarID    string              `json:"calendar_id"`
	FetchedEvents int                 `json:"fetched_events"`
	FromArchive   bool                `json:"from_archive"`
	Planned       coresync.Summary    `json:"planned"`
	Applied       ApplyResult         `json:"applied"`
	DryRun        bool                `json:"dry_run,omitempty"`
	Operations    coresync.Operations `json:"operations,omitempty"`
	Duration      string              `json:"duration"`
}

// SyncCalendar runs a full sync for one calendar. Concurrent calls
// for the same calendar share a single run.
func (s *Service) SyncCalendar(ctx context.Context, calendarID string) (*SyncReport, error) {
	v, err, _ := s.sf.Do(calendarID, func() (any, error) {
		return s.syncOne(ctx, calendarID, false)
	})
	if err != nil {
		return nil, err
	}
	return v.(*SyncReport), nil
}

// PlanCalendar computes the operation batch for one calendar without
// applying anything. Used by the CLI dry-run path.
func (s *Service) PlanCalendar(ctx context.Context, calendarID string) (*SyncReport, error) {
	return s.syncOne(ctx, calendarID, true)
}

// SyncAll syncs every enabled calendar, continuing past individual
// failures. Returns the reports of the successful runs.
func (s *Service) SyncAll(ctx context.Context) []*SyncReport {
	calendars, err := s.store.ListCalendars(ctx)
	if err != nil {
		s.logger.Error("failed to list calendars", zap.Error(err))
		return nil
	}

	reports := make([]*SyncReport, 0, len(calendars))
	for _, cal := range calendars {
		report, err := s.SyncCalendar(ctx, cal.ID)
		if err != nil {
			s.logger.Error("calendar sync failed",
				zap.String("calendar_id", cal.ID),
				zap.String("name", cal.Name),
				zap.Error(err))
			continue
		}
		reports = append(reports, report)
	}
	return reports
}

// DeleteCalendar removes a subscription, its events and its archived
// feed. A failed archive cleanup is logged, not fatal: the objects are
// unreachable once the calendar row is gone.
func (s *Service) DeleteCalendar(ctx context.Context, calendarID string) error {
	if err := s.store.DeleteCalendar(ctx, calendarID); err != nil {
		return err
	}
	if err := s.fetcher.DropArchive(ctx, calendarID); err != nil {
		s.logger.Warn("failed to drop feed archive",
			zap.String("calendar_id", calendarID), zap.Error(err))
	}
	return nil
}

func (s *Service) syncOne(ctx context.Context, calendarID string, dryRun bool) (*SyncReport, error) {
	start := time.Now()

	cal, err := s.store.GetCalendar(ctx, calendarID)
	if err != nil {
		return nil, fmt.Errorf("unknown calendar %s: %w", calendarID, err)
	}

	loc := time.UTC
	if cal.Timezone != "" {
		if l, lerr := time.LoadLocation(cal.Timezone); lerr == nil {
			loc = l
		} else {
			s.logger.Warn("invalid calendar timezone, using UTC",
				zap.String("calendar_id", cal.ID),
				zap.String("timezone", cal.Timezone))
		}
	}

	// A failed fetch aborts the whole run for this calendar; the
	// planner must never see partial data.
	fetchRes, err := s.fetcher.Fetch(ctx, cal.ID, cal.FeedURL)
	if err != nil {
		s.recordOutcome(ctx, cal.ID, err, dryRun)
		return nil, err
	}

	parsed, err := feed.Parse(fetchRes.Body)
	if err != nil {
		err = fmt.Errorf("feed parse failed: %w", err)
		s.recordOutcome(ctx, cal.ID, err, dryRun)
		return nil, err
	}

	now := time.Now()
	expanded := feed.Expand(parsed, feed.ExpandConfig{
		RangeStart:     now.AddDate(0, 0, -s.feedCfg.LookbackDays),
		RangeEnd:       now.AddDate(0, 0, s.feedCfg.HorizonDays),
		MaxOccurrences: s.feedCfg.MaxOccurrences,
	})
	fetched := feed.Normalize(expanded, loc)

	rows, err := s.store.LoadRows(ctx, cal.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load event rows: %w", err)
	}

	ops := coresync.Plan(fetched, rows, s.syncCfg.MethodCancel, s.syncCfg.Policy)

	report := &SyncReport{
		CalendarID:    cal.ID,
		FetchedEvents: len(fetched),
		FromArchive:   fetchRes.FromArchive,
		Planned:       ops.Summary(),
		DryRun:        dryRun,
	}

	if dryRun {
		report.Operations = ops
		report.Duration = time.Since(start).String()
		return report, nil
	}

	applied, err := s.store.Apply(ctx, cal.ID, ops, rows, now)
	if err != nil {
		s.recordOutcome(ctx, cal.ID, err, dryRun)
		return nil, fmt.Errorf("failed to apply sync operations: %w", err)
	}
	report.Applied = applied
	report.Duration = time.Since(start).String()

	s.recordOutcome(ctx, cal.ID, nil, dryRun)
	s.logger.Info("calendar sync completed",
		zap.String("calendar_id", cal.ID),
		zap.Int("fetched", report.FetchedEvents),
		zap.Bool("from_archive", report.FromArchive),
		zap.Int("created", applied.Created),
		zap.Int("updated", applied.Updated),
		zap.Int("soft_deleted", applied.SoftDeleted),
		zap.Int("restored", applied.Restored),
		zap.Int("hard_deleted", applied.HardDeleted),
		zap.Int("missed", applied.Missed),
		zap.String("duration", report.Duration))

	return report, nil
}

func (s *Service) recordOutcome(ctx context.Context, calendarID string, syncErr error, dryRun bool) {
	if dryRun {
		return
	}
	if err := s.store.SetSyncOutcome(ctx, calendarID, time.Now(), syncErr); err != nil {
		s.logger.Warn("failed to record sync outcome",
			zap.String("calendar_id", calendarID), zap.Error(err))
	}
}
