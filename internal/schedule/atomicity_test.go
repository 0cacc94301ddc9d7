package schedule

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"watermate-backend/internal/model"
)

// Any matches any SQL argument for sqlmock.
type Any struct{}

// Match satisfies the sqlmock.Argument interface.
func (a Any) Match(v driver.Value) bool {
	return true
}

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

// A watering is one schedule update plus one history insert; if either write
// fails the whole transition must roll back and neither is observable.
func TestWaterRollsBackOnPartialFailure(t *testing.T) {
	now := time.Date(2021, 5, 8, 10, 0, 0, 0, time.UTC)
	lastWatered := now.AddDate(0, 0, -7)

	expectLoad := func(mock sqlmock.Sqlmock) {
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "water_schedules"`)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "plant_id", "last_watered_at", "next_due_at", "interval_days", "manual_mode", "manual_interval_days"}).
				AddRow(5, 9, lastWatered, now, 7, false, 0))
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "plants"`)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "image_url", "user_id", "type_id", "room_id", "light_id"}).
				AddRow(9, "Frederick", model.DefaultPlantImage, 7, 1, 1, 1))
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "light_sources"`)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "exposure", "daily_total_hours", "room_id"}).
				AddRow(1, string(model.ExposureArtificial), 8, 1))
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "plant_types"`)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "base_water_days", "base_sunlight_hours", "max_days_without_water"}).
				AddRow(1, "Boston Fern", 7, 8, 21))
	}

	testCases := []struct {
		name             string
		mockExpectations func(mock sqlmock.Sqlmock)
	}{
		{
			name: "History append fails after schedule update",
			mockExpectations: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				expectLoad(mock)
				mock.ExpectExec(regexp.QuoteMeta(`UPDATE "water_schedules"`)).
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "water_history_entries"`)).
					WillReturnError(errors.New("disk full"))
				mock.ExpectRollback()
			},
		},
		{
			name: "Schedule update fails before history append",
			mockExpectations: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				expectLoad(mock)
				mock.ExpectExec(regexp.QuoteMeta(`UPDATE "water_schedules"`)).
					WillReturnError(errors.New("connection reset"))
				mock.ExpectRollback()
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gormDB, mock := newMockDB(t)
			engine := NewEngine(gormDB, 3)

			tc.mockExpectations(mock)

			_, err := engine.Water(context.Background(), 7, 5, "", now)
			assert.Error(t, err)

			// Every expected statement ran and nothing else did: the
			// rollback is the last thing the database saw.
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestSnoozeRollsBackOnHistoryFailure(t *testing.T) {
	now := time.Date(2021, 5, 6, 10, 0, 0, 0, time.UTC)
	lastWatered := now.AddDate(0, 0, -5)

	gormDB, mock := newMockDB(t)
	engine := NewEngine(gormDB, 3)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "water_schedules"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "plant_id", "last_watered_at", "next_due_at", "interval_days", "manual_mode", "manual_interval_days"}).
			AddRow(5, 9, lastWatered, now.AddDate(0, 0, 2), 7, false, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "plants"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "image_url", "user_id", "type_id", "room_id", "light_id"}).
			AddRow(9, "Frederick", model.DefaultPlantImage, 7, 1, 1, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "light_sources"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "exposure", "daily_total_hours", "room_id"}).
			AddRow(1, string(model.ExposureArtificial), 8, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "plant_types"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "base_water_days", "base_sunlight_hours", "max_days_without_water"}).
			AddRow(1, "Boston Fern", 7, 8, 21))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "water_schedules"`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "water_history_entries"`)).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := engine.Snooze(context.Background(), 7, 5, 3, "", now)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Every read-modify-write transition takes the row lock, not just Water: a
// snooze or mode change racing a committing watering must wait for it
// instead of writing back the stale schedule it read.
func TestSnoozeAndSetModeLockScheduleRow(t *testing.T) {
	now := time.Date(2021, 5, 6, 10, 0, 0, 0, time.UTC)
	lastWatered := now.AddDate(0, 0, -5)

	expectLockedLoad := func(mock sqlmock.Sqlmock) {
		mock.ExpectQuery(`SELECT \* FROM "water_schedules" .*FOR UPDATE`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "plant_id", "last_watered_at", "next_due_at", "interval_days", "manual_mode", "manual_interval_days"}).
				AddRow(5, 9, lastWatered, now.AddDate(0, 0, 2), 7, false, 0))
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "plants"`)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "image_url", "user_id", "type_id", "room_id", "light_id"}).
				AddRow(9, "Frederick", model.DefaultPlantImage, 7, 1, 1, 1))
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "light_sources"`)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "exposure", "daily_total_hours", "room_id"}).
				AddRow(1, string(model.ExposureArtificial), 8, 1))
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "plant_types"`)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "base_water_days", "base_sunlight_hours", "max_days_without_water"}).
				AddRow(1, "Boston Fern", 7, 8, 21))
	}

	t.Run("Snooze", func(t *testing.T) {
		gormDB, mock := newMockDB(t)
		engine := NewEngine(gormDB, 3)

		mock.ExpectBegin()
		expectLockedLoad(mock)
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE "water_schedules"`)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "water_history_entries"`)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
		mock.ExpectCommit()

		_, err := engine.Snooze(context.Background(), 7, 5, 2, "", now)
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("SetMode", func(t *testing.T) {
		gormDB, mock := newMockDB(t)
		engine := NewEngine(gormDB, 3)

		mock.ExpectBegin()
		expectLockedLoad(mock)
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE "water_schedules"`)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		_, err := engine.SetMode(context.Background(), 7, 5, true, 14, now)
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
