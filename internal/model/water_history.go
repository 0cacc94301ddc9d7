package model

import "time"

// DefaultHistoryNotes is recorded when the caller supplies no notes.
const DefaultHistoryNotes = "No notes added."

// WaterHistoryEntry is one immutable row in a schedule's audit trail.
// SnoozeDays is zero for a real watering and positive for a deferral.
// Entries are only ever appended; insertion order is chronological order.
type WaterHistoryEntry struct {
	ID              int64     `gorm:"primaryKey"`
	EventAt         time.Time `gorm:"not null"`
	SnoozeDays      int       `gorm:"not null;default:0"`
	Notes           string    `gorm:"size:200;not null"`
	PlantID         int64     `gorm:"not null;index"`
	WaterScheduleID int64     `gorm:"not null;index"`
	CreatedAt       time.Time

	// Associations
	WaterSchedule WaterSchedule `gorm:"constraint:OnDelete:CASCADE"`
}
