package internal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"watermate-backend/internal/db"
	"watermate-backend/internal/model"
	"watermate-backend/internal/notification"
	"watermate-backend/internal/schedule"
	"watermate-backend/internal/store"
)

// TestWateringLifecycle walks one plant through its whole life against a
// real (in-memory) database: creation, automatic watering under natural
// light, snoozing, switching to manual cadence, the reminder query, and the
// delete cascade.
func TestWateringLifecycle(t *testing.T) {
	testDB, err := gorm.Open(sqlite.Open("file:lifecycle?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, _ := testDB.DB()
	defer sqlDB.Close()

	require.NoError(t, db.Migrate(testDB))
	require.NoError(t, db.SeedPlantTypes(testDB))

	// A user in the northern hemisphere with a resolved location.
	lat, lng := 41.5, -73.9
	user := model.User{
		PublicID: "public-1", Name: "Kat", Email: "kat@example.com",
		Username: "kat", PasswordHash: "irrelevant",
		Latitude: &lat, Longitude: &lng,
	}
	require.NoError(t, testDB.Create(&user).Error)

	col := model.Collection{Name: "Apartment", UserID: user.ID}
	require.NoError(t, testDB.Create(&col).Error)
	room := model.Room{Name: "Sunroom", CollectionID: col.ID, UserID: user.ID}
	require.NoError(t, testDB.Create(&room).Error)
	light := model.LightSource{Exposure: model.ExposureSouth, DailyTotalHours: model.DefaultDailyLightHours, RoomID: room.ID}
	require.NoError(t, testDB.Create(&light).Error)

	var pothos model.PlantType
	require.NoError(t, testDB.Where("name = ?", "Pothos").First(&pothos).Error)

	plant := model.Plant{
		Name: "Goldie", ImageURL: model.DefaultPlantImage,
		UserID: user.ID, TypeID: pothos.ID, RoomID: room.ID, LightID: light.ID,
	}
	require.NoError(t, testDB.Create(&plant).Error)

	engine := schedule.NewEngine(testDB, 3)
	ctx := context.Background()
	now := time.Date(2021, 6, 1, 9, 0, 0, 0, time.UTC)

	// Create the schedule with a backdated first watering.
	var sched *model.WaterSchedule
	require.NoError(t, testDB.Transaction(func(tx *gorm.DB) error {
		var err error
		sched, err = engine.Create(ctx, tx, &plant, pothos, "2021-05-25", now)
		return err
	}))
	assert.Equal(t, pothos.BaseWaterDays, sched.IntervalDays)
	assert.True(t, sched.IsDue(now)) // 2021-05-25 + 7 days <= June 1st

	// Water it. Under a south window in June the solar model shortens the
	// interval relative to the baseline, or at least keeps it in bounds.
	watered, err := engine.Water(ctx, user.ID, sched.ID, "first summer watering", now)
	require.NoError(t, err)
	assert.Equal(t, now.Unix(), watered.LastWateredAt.Unix())
	assert.GreaterOrEqual(t, watered.IntervalDays, 1)
	assert.LessOrEqual(t, watered.IntervalDays, pothos.MaxDaysWithoutWater)
	assert.False(t, watered.IsDue(now))

	// Snooze by the default three days.
	snoozed, err := engine.Snooze(ctx, user.ID, sched.ID, 0, "", now)
	require.NoError(t, err)
	assert.Equal(t, now.AddDate(0, 0, 3).Unix(), snoozed.NextDueAt.Unix())
	assert.Equal(t, watered.LastWateredAt.Unix(), snoozed.LastWateredAt.Unix())

	// Switch to a fixed ten day cadence.
	manual, err := engine.SetMode(ctx, user.ID, sched.ID, true, 10, now)
	require.NoError(t, err)
	assert.True(t, manual.ManualMode)
	assert.Equal(t, 10, manual.IntervalDays)

	// The ledger reads back in insertion order: watering first, then snooze.
	entries, total, err := engine.History(ctx, user.ID, plant.ID, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, entries, 2)
	assert.Equal(t, "first summer watering", entries[0].Notes)
	assert.Zero(t, entries[0].SnoozeDays)
	assert.Equal(t, 3, entries[1].SnoozeDays)

	// Reminder pipeline: once the schedule is due again and the user has a
	// push subscription, the store surfaces it for the worker pool.
	require.NoError(t, testDB.Create(&model.PushSubscription{
		Endpoint: "https://push.example.com/kat", P256DH: "k", Auth: "a", UserID: user.ID,
	}).Error)

	appStore := store.NewGormStore(testDB)
	future := manual.NextDueAt.Add(time.Hour)
	reminders, err := appStore.DueReminders(ctx, future)
	require.NoError(t, err)
	require.Len(t, reminders, 1)
	assert.Equal(t, user.ID, reminders[0].UserID)
	assert.EqualValues(t, 1, reminders[0].DuePlants)
	require.Len(t, reminders[0].Subscriptions, 1)

	assert.Equal(t, "Kat, one of your plants is ready for water today!", notification.ReminderMessage(reminders[0]))

	// Deleting the plant takes the schedule and history with it.
	require.NoError(t, testDB.Transaction(func(tx *gorm.DB) error {
		if err := engine.Destroy(ctx, tx, plant.ID); err != nil {
			return err
		}
		return tx.Delete(&model.Plant{}, plant.ID).Error
	}))

	var schedCount, histCount int64
	require.NoError(t, testDB.Model(&model.WaterSchedule{}).Count(&schedCount).Error)
	require.NoError(t, testDB.Model(&model.WaterHistoryEntry{}).Count(&histCount).Error)
	assert.Zero(t, schedCount)
	assert.Zero(t, histCount)
}
