package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	coresync "feedsync/core/sync"
	"feedsync/feature/calendar/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Store is the persistence gateway: it loads the planner's row
// snapshot for one calendar and applies an Operations batch inside a
// single transaction.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewStore creates a Store.
func NewStore(db *gorm.DB, logger *zap.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// ApplyResult reports what a batch actually wrote.
type ApplyResult struct {
	Created     int `json:"created"`
	Updated     int `json:"updated"`
	Unchanged   int `json:"unchanged"`
	SoftDeleted int `json:"soft_deleted"`
	Restored    int `json:"restored"`
	HardDeleted int `json:"hard_deleted"`
	Missed      int `json:"missed"`
}

// ListCalendars returns all enabled calendars.
func (s *Store) ListCalendars(ctx context.Context) ([]models.Calendar, error) {
	var calendars []models.Calendar
	err := s.db.WithContext(ctx).Where("enabled = ?", true).Order("name").Find(&calendars).Error
	return calendars, err
}

// GetCalendar returns one calendar by id.
func (s *Store) GetCalendar(ctx context.Context, id string) (*models.Calendar, error) {
	var cal models.Calendar
	if err := s.db.WithContext(ctx).First(&cal, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &cal, nil
}

// CreateCalendar inserts a new subscription, assigning an id when the
// caller left it empty.
func (s *Store) CreateCalendar(ctx context.Context, cal *models.Calendar) error {
	if cal.ID == "" {
		cal.ID = uuid.NewString()
	}
	return s.db.WithContext(ctx).Create(cal).Error
}

// DeleteCalendar removes a subscription and all of its events.
func (s *Store) DeleteCalendar(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("calendar_id = ?", id).Delete(&models.ExternalEvent{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Calendar{}, "id = ?", id).Error
	})
}

// SetSyncOutcome records the result of the latest sync attempt.
func (s *Store) SetSyncOutcome(ctx context.Context, calendarID string, syncedAt time.Time, syncErr error) error {
	values := map[string]any{
		"last_synced_at":  syncedAt,
		"last_sync_error": "",
	}
	if syncErr != nil {
		values["last_sync_error"] = syncErr.Error()
	}
	return s.db.WithContext(ctx).Model(&models.Calendar{}).
		Where("id = ?", calendarID).Updates(values).Error
}

// ListEvents returns the events of one calendar, newest start first.
func (s *Store) ListEvents(ctx context.Context, calendarID string, includeDeleted bool) ([]models.ExternalEvent, error) {
	q := s.db.WithContext(ctx).Where("calendar_id = ?", calendarID)
	if !includeDeleted {
		q = q.Where("deleted = ?", false)
	}
	var events []models.ExternalEvent
	err := q.Order("start_date DESC, start_time DESC").Find(&events).Error
	return events, err
}

// LoadRows returns the planner's snapshot of all rows (including
// soft-deleted ones) for one calendar.
func (s *Store) LoadRows(ctx context.Context, calendarID string) ([]coresync.EventRow, error) {
	var events []models.ExternalEvent
	if err := s.db.WithContext(ctx).Where("calendar_id = ?", calendarID).Find(&events).Error; err != nil {
		return nil, err
	}

	rows := make([]coresync.EventRow, 0, len(events))
	for _, ev := range events {
		rows = append(rows, ev.ToSyncRow())
	}
	return rows, nil
}

// Apply executes an Operations batch in a single transaction so a
// crash cannot leave the store between baselines. rows must be the
// same snapshot the batch was planned against; unmatched rows the
// planner chose to keep get their miss_count incremented here, which
// is what eventually trips the miss ceiling.
func (s *Store) Apply(ctx context.Context, calendarID string, ops coresync.Operations, rows []coresync.EventRow, now time.Time) (ApplyResult, error) {
	var result ApplyResult

	rowByID := make(map[string]coresync.EventRow, len(rows))
	for _, row := range rows {
		rowByID[row.ID] = row
	}

	// Every row id touched by any operation list; the remainder of the
	// non-deleted rows are the "missed but kept" ones.
	touched := make(map[string]struct{})

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, op := range ops.Creates {
			event := models.ExternalEvent{
				ID:         uuid.NewString(),
				CalendarID: calendarID,
				MissCount:  0,
				LastSeenAt: now,
			}
			fillFromEvent(&event, op.Event)
			if err := tx.Create(&event).Error; err != nil {
				return fmt.Errorf("failed to create event for uid %s: %w", op.Event.UID, err)
			}
			result.Created++
		}

		for _, op := range ops.Updates {
			touched[op.RowID] = struct{}{}
			values := map[string]any{
				"miss_count":   0,
				"last_seen_at": now,
			}
			row, ok := rowByID[op.RowID]
			if !ok || coresync.NeedsUpdate(op.Event, row) {
				addFeedValues(values, op.Event)
				result.Updated++
			} else {
				result.Unchanged++
			}
			if err := tx.Model(&models.ExternalEvent{}).Where("id = ?", op.RowID).
				Updates(values).Error; err != nil {
				return fmt.Errorf("failed to update row %s: %w", op.RowID, err)
			}
		}

		for _, op := range ops.Restores {
			touched[op.RowID] = struct{}{}
			values := map[string]any{
				"deleted":      false,
				"miss_count":   0,
				"last_seen_at": now,
			}
			addFeedValues(values, op.Event)
			if err := tx.Model(&models.ExternalEvent{}).Where("id = ?", op.RowID).
				Updates(values).Error; err != nil {
				return fmt.Errorf("failed to restore row %s: %w", op.RowID, err)
			}
			result.Restored++
		}

		for _, op := range ops.SoftDeletes {
			touched[op.RowID] = struct{}{}
			if err := tx.Model(&models.ExternalEvent{}).Where("id = ?", op.RowID).
				Update("deleted", true).Error; err != nil {
				return fmt.Errorf("failed to soft-delete row %s: %w", op.RowID, err)
			}
			s.logger.Info("event soft-deleted",
				zap.String("calendar_id", calendarID),
				zap.String("row_id", op.RowID),
				zap.String("reason", op.Reason))
			result.SoftDeleted++
		}

		for _, op := range ops.ImmediateDeletes {
			touched[op.RowID] = struct{}{}
			if err := tx.Delete(&models.ExternalEvent{}, "id = ?", op.RowID).Error; err != nil {
				return fmt.Errorf("failed to delete row %s: %w", op.RowID, err)
			}
			s.logger.Info("event hard-deleted",
				zap.String("calendar_id", calendarID),
				zap.String("row_id", op.RowID),
				zap.String("reason", op.Reason))
			result.HardDeleted++
		}

		var missedIDs []string
		for _, row := range rows {
			if _, ok := touched[row.ID]; ok || row.Deleted {
				continue
			}
			missedIDs = append(missedIDs, row.ID)
		}
		if len(missedIDs) > 0 {
			if err := tx.Model(&models.ExternalEvent{}).Where("id IN ?", missedIDs).
				UpdateColumn("miss_count", gorm.Expr("miss_count + 1")).Error; err != nil {
				return fmt.Errorf("failed to increment miss counts: %w", err)
			}
			result.Missed = len(missedIDs)
		}

		return nil
	})
	if err != nil {
		return ApplyResult{}, err
	}
	return result, nil
}

// fillFromEvent populates the feed-owned columns of a fresh row.
func fillFromEvent(row *models.ExternalEvent, event coresync.FetchedEvent) {
	row.ProviderUID = event.UID
	row.Title = event.Summary
	row.Description = event.Description
	row.Location = event.Location
	row.StartDate = event.StartDate
	row.StartTime = event.StartTime
	row.EndDate = event.EndDate
	row.EndTime = event.EndTime
	row.AllDay = event.AllDay
	row.ExternalLastModified = event.LastModified
	row.RawPayload = rawPayload(event)
}

// addFeedValues adds the feed-owned columns to an update map. User
// metadata columns are deliberately absent.
func addFeedValues(values map[string]any, event coresync.FetchedEvent) {
	values["provider_event_uid"] = event.UID
	values["title"] = event.Summary
	values["description"] = event.Description
	values["location"] = event.Location
	values["start_date"] = event.StartDate
	values["start_time"] = event.StartTime
	values["end_date"] = event.EndDate
	values["end_time"] = event.EndTime
	values["is_all_day"] = event.AllDay
	values["external_last_modified"] = event.LastModified
	values["raw_payload"] = rawPayload(event)
}

func rawPayload(event coresync.FetchedEvent) string {
	data, err := json.Marshal(event)
	if err != nil {
		return ""
	}
	return string(data)
}
