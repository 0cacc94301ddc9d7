package store

import "watermate-backend/internal/model"

// DueReminder aggregates everything the reminder worker needs to notify one
// user: how many plants are due and where to push.
type DueReminder struct {
	UserID        int64
	UserName      string
	DuePlants     int64
	Subscriptions []model.PushSubscription
}
