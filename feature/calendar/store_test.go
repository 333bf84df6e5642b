package calendar

import (
	"context"
	"testing"
	"time"

	coresync "feedsync/core/sync"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to open mock sql db: %v", err)
	}

	dialector := mysql.New(mysql.Config{
		Conn:                      db,
		SkipInitializeWithVersion: true,
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to open gorm db: %v", err)
	}

	return gormDB, mock
}

func TestLoadRows(t *testing.T) {
	db, mock := setupMockDB(t)
	store := NewStore(db, zap.NewNop())

	lastSeen := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"id", "calendar_id", "provider_event_uid", "title", "deleted", "miss_count", "last_seen_at",
	})
	rows.AddRow("row-1", "cal-1", "uid-1", "Standup", false, 0, lastSeen)
	rows.AddRow("row-2", "cal-1", "uid-2", "Review", true, 2, lastSeen)

	mock.ExpectQuery("SELECT \\* FROM `external_events` WHERE calendar_id = \\?").
		WithArgs("cal-1").
		WillReturnRows(rows)

	got, err := store.LoadRows(context.Background(), "cal-1")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "row-1", got[0].ID)
	assert.Equal(t, "uid-1", got[0].ProviderUID)
	assert.Equal(t, "Standup", got[0].Title)
	assert.False(t, got[0].Deleted)

	assert.True(t, got[1].Deleted)
	assert.Equal(t, 2, got[1].MissCount)
	assert.Equal(t, lastSeen, got[1].LastSeen)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApply_CreateAndMissCount(t *testing.T) {
	db, mock := setupMockDB(t)
	store := NewStore(db, zap.NewNop())

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ops := coresync.Operations{
		Creates: []coresync.CreateOp{
			{Event: coresync.FetchedEvent{UID: "uid-new", Summary: "Planning"}, Reason: "no match"},
		},
	}
	// One untouched live row: its miss_count must be incremented.
	rows := []coresync.EventRow{
		{ID: "row-kept", ProviderUID: "uid-old", Title: "Old", LastSeen: now},
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `external_events`").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE `external_events` SET `miss_count`=miss_count \\+ 1 WHERE id IN \\(\\?\\)").
		WithArgs("row-kept").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	result, err := store.Apply(context.Background(), "cal-1", ops, rows, now)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 1, result.Missed)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApply_Deletes(t *testing.T) {
	db, mock := setupMockDB(t)
	store := NewStore(db, zap.NewNop())

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ops := coresync.Operations{
		SoftDeletes: []coresync.DeleteOp{
			{RowID: "row-soft", Reason: "unmatched past grace"},
		},
		ImmediateDeletes: []coresync.DeleteOp{
			{RowID: "row-hard", Reason: "cancelled upstream"},
		},
	}
	rows := []coresync.EventRow{
		{ID: "row-soft"},
		{ID: "row-hard"},
	}

	mock.ExpectBegin()
	// gorm appends the updated_at assignment after the named column.
	mock.ExpectExec("UPDATE `external_events` SET `deleted`=\\?").
		WithArgs(true, sqlmock.AnyArg(), "row-soft").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM `external_events` WHERE id = \\?").
		WithArgs("row-hard").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	result, err := store.Apply(context.Background(), "cal-1", ops, rows, now)
	require.NoError(t, err)
	assert.Equal(t, 1, result.SoftDeleted)
	assert.Equal(t, 1, result.HardDeleted)
	assert.Equal(t, 0, result.Missed)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApply_UnchangedSkipsFieldWrites(t *testing.T) {
	db, mock := setupMockDB(t)
	store := NewStore(db, zap.NewNop())

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	event := coresync.FetchedEvent{
		UID: "uid-1", Summary: "Standup",
		StartDate: "2026-03-02", StartTime: "09:00:00",
		EndDate: "2026-03-02", EndTime: "09:15:00",
	}
	ops := coresync.Operations{
		Updates: []coresync.UpdateOp{{RowID: "row-1", Event: event, Reason: "uid match"}},
	}
	// Row content equal to the event: only miss_count and last_seen_at
	// may be written.
	rows := []coresync.EventRow{
		{
			ID: "row-1", ProviderUID: "uid-1", Title: "Standup",
			StartDate: "2026-03-02", StartTime: "09:00:00",
			EndDate: "2026-03-02", EndTime: "09:15:00",
			LastSeen: now,
		},
	}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `external_events` SET `last_seen_at`=\\?,`miss_count`=\\?").
		WithArgs(now, 0, sqlmock.AnyArg(), "row-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	result, err := store.Apply(context.Background(), "cal-1", ops, rows, now)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Updated)
	assert.Equal(t, 1, result.Unchanged)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddFeedValues_LeavesUserMetadataAlone(t *testing.T) {
	values := map[string]any{}
	addFeedValues(values, coresync.FetchedEvent{
		UID:     "uid-1",
		Summary: "Standup",
	})

	assert.Contains(t, values, "title")
	assert.Contains(t, values, "provider_event_uid")

	// User-owned columns must never appear in a sync write.
	assert.NotContains(t, values, "category")
	assert.NotContains(t, values, "completed")
	assert.NotContains(t, values, "remind_minutes")
}

func TestSetSyncOutcome(t *testing.T) {
	db, mock := setupMockDB(t)
	store := NewStore(db, zap.NewNop())

	syncedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Success clears error", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE `calendars` SET").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := store.SetSyncOutcome(context.Background(), "cal-1", syncedAt, nil)
		assert.NoError(t, err)
	})

	t.Run("Failure records message", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE `calendars` SET").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := store.SetSyncOutcome(context.Background(), "cal-1", syncedAt, assert.AnError)
		assert.NoError(t, err)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}
