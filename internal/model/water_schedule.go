package model

import "time"

// WaterSchedule is the mutable core entity: one per plant, created with the
// plant and destroyed with it. IntervalDays is always the currently active
// interval; ManualIntervalDays survives mode toggles so switching back to
// manual restores the user's fixed cadence.
//
// At rest, NextDueAt == LastWateredAt + IntervalDays days.
type WaterSchedule struct {
	ID                 int64     `gorm:"primaryKey"`
	PlantID            int64     `gorm:"not null;uniqueIndex"`
	LastWateredAt      time.Time `gorm:"not null"`
	NextDueAt          time.Time `gorm:"not null;index"`
	IntervalDays       int       `gorm:"not null"`
	ManualMode         bool      `gorm:"not null;default:false"`
	ManualIntervalDays int       `gorm:"not null;default:0"`
	CreatedAt          time.Time
	UpdatedAt          time.Time

	// Associations
	Plant   Plant               `gorm:"constraint:OnDelete:CASCADE"`
	History []WaterHistoryEntry `gorm:"foreignKey:WaterScheduleID"`
}

// IsDue reports whether the schedule's due date has passed as of the given
// instant. Due-ness is always evaluated lazily; nothing polls schedules.
func (s *WaterSchedule) IsDue(asOf time.Time) bool {
	return !asOf.Before(s.NextDueAt)
}
