package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"watermate-backend/internal/model"
)

// Store defines the database operations shared by the API layer and the
// reminder worker.
type Store interface {
	DB() *gorm.DB
	DueReminders(ctx context.Context, asOf time.Time) ([]DueReminder, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// DB exposes the underlying connection for handlers that query directly.
func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// DueReminders returns, for every user with at least one plant due for
// watering at asOf, the number of due plants and the user's push
// subscriptions. Users without subscriptions are skipped since there is no
// way to reach them.
func (s *gormStore) DueReminders(ctx context.Context, asOf time.Time) ([]DueReminder, error) {
	type dueRow struct {
		UserID    int64
		UserName  string
		DuePlants int64
	}
	var rows []dueRow
	err := s.db.WithContext(ctx).
		Model(&model.Plant{}).
		Select("plants.user_id as user_id, users.name as user_name, COUNT(*) as due_plants").
		Joins("JOIN water_schedules ON water_schedules.plant_id = plants.id").
		Joins("JOIN users ON users.id = plants.user_id").
		Where("water_schedules.next_due_at <= ?", asOf).
		Group("plants.user_id, users.name").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate due plants: %w", err)
	}

	if len(rows) == 0 {
		return nil, nil
	}

	userIDs := make([]int64, len(rows))
	for i, r := range rows {
		userIDs[i] = r.UserID
	}

	var subscriptions []model.PushSubscription
	if err := s.db.WithContext(ctx).
		Where("user_id IN ?", userIDs).
		Find(&subscriptions).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch push subscriptions: %w", err)
	}

	subsByUser := make(map[int64][]model.PushSubscription, len(rows))
	for _, sub := range subscriptions {
		subsByUser[sub.UserID] = append(subsByUser[sub.UserID], sub)
	}

	var reminders []DueReminder
	for _, r := range rows {
		subs := subsByUser[r.UserID]
		if len(subs) == 0 {
			continue
		}
		reminders = append(reminders, DueReminder{
			UserID:        r.UserID,
			UserName:      r.UserName,
			DuePlants:     r.DuePlants,
			Subscriptions: subs,
		})
	}
	return reminders, nil
}
