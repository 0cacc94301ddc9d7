// Package schedule owns the per-plant watering state machine: creating
// schedules with their plants, applying watering/snooze/mode transitions,
// and keeping the append-only history ledger. Every transition commits the
// schedule mutation and its history entry as one transaction.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"watermate-backend/internal/model"
	"watermate-backend/internal/solar"
)

// wateredOnLayout is the accepted calendar-date format for backdated
// initial waterings.
const wateredOnLayout = "2006-01-02"

// IntervalFunc computes a watering interval from species, light and location
// data. The default is solar.ComputeInterval; tests substitute their own.
type IntervalFunc func(model.PlantType, model.LightExposure, *model.Coordinates, time.Time) (int, error)

// Engine defines every transition on a plant's water schedule. Mutations
// take the acting user's id and the current time explicitly: ownership is a
// capability handed in by the caller, and the clock is injectable so tests
// control it.
type Engine interface {
	// Create builds the schedule for a newly created plant inside the
	// caller's transaction. wateredOn optionally backdates the first
	// watering as a YYYY-MM-DD date.
	Create(ctx context.Context, tx *gorm.DB, plant *model.Plant, plantType model.PlantType, wateredOn string, now time.Time) (*model.WaterSchedule, error)

	// Retype re-derives interval and due date after a plant's species or
	// light source changed, preserving the last-watered date.
	Retype(ctx context.Context, tx *gorm.DB, plantID int64, newType model.PlantType) error

	// Destroy removes a plant's schedule and all of its history inside the
	// caller's transaction. Used by the explicit plant-delete cascade.
	Destroy(ctx context.Context, tx *gorm.DB, plantID int64) error

	Water(ctx context.Context, userID, scheduleID int64, notes string, now time.Time) (*model.WaterSchedule, error)
	Snooze(ctx context.Context, userID, scheduleID int64, days int, notes string, now time.Time) (*model.WaterSchedule, error)
	SetMode(ctx context.Context, userID, scheduleID int64, manual bool, manualDays int, now time.Time) (*model.WaterSchedule, error)

	// History lists a plant's ledger entries in insertion order with a
	// total count for stable pagination.
	History(ctx context.Context, userID, plantID int64, page, perPage int) ([]model.WaterHistoryEntry, int64, error)

	// DuePlants lists the user's plants whose schedules are due as of the
	// given instant, optionally narrowed to one room.
	DuePlants(ctx context.Context, userID int64, roomID *int64, asOf time.Time, page, perPage int) ([]model.Plant, int64, error)
}

// gormEngine implements Engine on a gorm database.
type gormEngine struct {
	db              *gorm.DB
	defaultSnooze   int
	computeInterval IntervalFunc
}

// DefaultSnoozeDays is used when the configuration does not set one.
const DefaultSnoozeDays = 3

// NewEngine creates a gorm-backed schedule engine. defaultSnoozeDays is the
// deferral applied when a snooze request does not specify one.
func NewEngine(db *gorm.DB, defaultSnoozeDays int) Engine {
	if defaultSnoozeDays <= 0 {
		defaultSnoozeDays = DefaultSnoozeDays
	}
	return &gormEngine{
		db:              db,
		defaultSnooze:   defaultSnoozeDays,
		computeInterval: solar.ComputeInterval,
	}
}

func (e *gormEngine) Create(ctx context.Context, tx *gorm.DB, plant *model.Plant, plantType model.PlantType, wateredOn string, now time.Time) (*model.WaterSchedule, error) {
	start := now
	if wateredOn != "" {
		parsed, err := time.ParseInLocation(wateredOnLayout, wateredOn, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidDate, wateredOn)
		}
		start = parsed
	}

	interval := clampInterval(plantType.BaseWaterDays, plantType.MaxDaysWithoutWater)
	sched := &model.WaterSchedule{
		PlantID:       plant.ID,
		LastWateredAt: start,
		NextDueAt:     start.AddDate(0, 0, interval),
		IntervalDays:  interval,
		ManualMode:    false,
	}
	if err := tx.WithContext(ctx).Omit(clause.Associations).Create(sched).Error; err != nil {
		return nil, MapDBError(err)
	}
	return sched, nil
}

func (e *gormEngine) Retype(ctx context.Context, tx *gorm.DB, plantID int64, newType model.PlantType) error {
	var sched model.WaterSchedule
	if err := tx.WithContext(ctx).Where("plant_id = ?", plantID).First(&sched).Error; err != nil {
		return MapDBError(err)
	}

	// Re-typing never resets when the plant was last watered.
	sched.IntervalDays = clampInterval(newType.BaseWaterDays, newType.MaxDaysWithoutWater)
	sched.NextDueAt = sched.LastWateredAt.AddDate(0, 0, sched.IntervalDays)

	return MapDBError(tx.WithContext(ctx).Omit(clause.Associations).Save(&sched).Error)
}

func (e *gormEngine) Destroy(ctx context.Context, tx *gorm.DB, plantID int64) error {
	var sched model.WaterSchedule
	err := tx.WithContext(ctx).Where("plant_id = ?", plantID).First(&sched).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil // plant never got a schedule; nothing to cascade
	}
	if err != nil {
		return MapDBError(err)
	}

	if err := tx.WithContext(ctx).Where("water_schedule_id = ?", sched.ID).Delete(&model.WaterHistoryEntry{}).Error; err != nil {
		return MapDBError(err)
	}
	return MapDBError(tx.WithContext(ctx).Delete(&sched).Error)
}

// Water records a watering event: it advances the schedule and appends the
// ledger entry in one transaction, recomputing the interval first when the
// schedule is in automatic mode under natural light.
func (e *gormEngine) Water(ctx context.Context, userID, scheduleID int64, notes string, now time.Time) (*model.WaterSchedule, error) {
	var out *model.WaterSchedule
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sched, plant, err := e.loadOwned(ctx, tx, scheduleID, userID, true)
		if err != nil {
			return err
		}

		interval := sched.IntervalDays
		if sched.ManualMode {
			// Manual schedules water on the user's fixed cadence even when
			// a re-type rewrote the stored interval in the meantime.
			if sched.ManualIntervalDays > 0 {
				interval = sched.ManualIntervalDays
			}
		} else if !plant.Light.Exposure.Artificial() {
			var owner model.User
			if err := tx.WithContext(ctx).First(&owner, plant.UserID).Error; err != nil {
				return MapDBError(err)
			}
			computed, err := e.computeInterval(plant.Type, plant.Light.Exposure, owner.Coordinates(), now)
			if err != nil {
				return fmt.Errorf("%w: %w", ErrSchedulingBlocked, err)
			}
			interval = computed
		}

		sched.LastWateredAt = now
		sched.IntervalDays = interval
		sched.NextDueAt = now.AddDate(0, 0, interval)

		if err := tx.WithContext(ctx).Omit(clause.Associations).Save(sched).Error; err != nil {
			return err
		}

		entry := model.WaterHistoryEntry{
			EventAt:         now,
			SnoozeDays:      0,
			Notes:           historyNotes(notes),
			PlantID:         plant.ID,
			WaterScheduleID: sched.ID,
		}
		if err := tx.WithContext(ctx).Omit(clause.Associations).Create(&entry).Error; err != nil {
			return err
		}

		out = sched
		return nil
	})
	if err != nil {
		return nil, MapDBError(err)
	}
	return out, nil
}

// Snooze pushes the due date out by the given number of days (or the
// configured default) without crediting a watering. The ledger entry keeps
// the unchanged last-watered date so the deferral is auditable.
func (e *gormEngine) Snooze(ctx context.Context, userID, scheduleID int64, days int, notes string, now time.Time) (*model.WaterSchedule, error) {
	if days <= 0 {
		days = e.defaultSnooze
	}

	var out *model.WaterSchedule
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sched, plant, err := e.loadOwned(ctx, tx, scheduleID, userID, true)
		if err != nil {
			return err
		}

		sched.NextDueAt = now.AddDate(0, 0, days)

		if err := tx.WithContext(ctx).Omit(clause.Associations).Save(sched).Error; err != nil {
			return err
		}

		entry := model.WaterHistoryEntry{
			EventAt:         sched.LastWateredAt,
			SnoozeDays:      days,
			Notes:           historyNotes(notes),
			PlantID:         plant.ID,
			WaterScheduleID: sched.ID,
		}
		if err := tx.WithContext(ctx).Omit(clause.Associations).Create(&entry).Error; err != nil {
			return err
		}

		out = sched
		return nil
	})
	if err != nil {
		return nil, MapDBError(err)
	}
	return out, nil
}

// SetMode toggles between manual and automatic interval sources. The due
// date is recomputed immediately from the unchanged last-watered date so it
// reflects the new mode without waiting for the next watering.
func (e *gormEngine) SetMode(ctx context.Context, userID, scheduleID int64, manual bool, manualDays int, now time.Time) (*model.WaterSchedule, error) {
	var out *model.WaterSchedule
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sched, _, err := e.loadOwned(ctx, tx, scheduleID, userID, true)
		if err != nil {
			return err
		}

		if manual {
			if manualDays < 1 {
				return ErrInvalidInterval
			}
			sched.ManualMode = true
			sched.ManualIntervalDays = manualDays
			sched.IntervalDays = manualDays
		} else {
			// The stored interval stays valid until the next watering
			// recomputes it; the manual value survives for toggling back.
			sched.ManualMode = false
		}
		sched.NextDueAt = sched.LastWateredAt.AddDate(0, 0, sched.IntervalDays)

		if err := tx.WithContext(ctx).Omit(clause.Associations).Save(sched).Error; err != nil {
			return err
		}
		out = sched
		return nil
	})
	if err != nil {
		return nil, MapDBError(err)
	}
	return out, nil
}

func (e *gormEngine) History(ctx context.Context, userID, plantID int64, page, perPage int) ([]model.WaterHistoryEntry, int64, error) {
	var plant model.Plant
	if err := e.db.WithContext(ctx).First(&plant, plantID).Error; err != nil {
		return nil, 0, MapDBError(err)
	}
	if plant.UserID != userID {
		return nil, 0, ErrUnauthorized
	}

	var sched model.WaterSchedule
	if err := e.db.WithContext(ctx).Where("plant_id = ?", plantID).First(&sched).Error; err != nil {
		return nil, 0, MapDBError(err)
	}

	var total int64
	if err := e.db.WithContext(ctx).Model(&model.WaterHistoryEntry{}).
		Where("water_schedule_id = ?", sched.ID).Count(&total).Error; err != nil {
		return nil, 0, MapDBError(err)
	}

	if page < 1 {
		page = 1
	}
	var entries []model.WaterHistoryEntry
	err := e.db.WithContext(ctx).
		Where("water_schedule_id = ?", sched.ID).
		Order("id ASC").
		Limit(perPage).
		Offset((page - 1) * perPage).
		Find(&entries).Error
	if err != nil {
		return nil, 0, MapDBError(err)
	}
	return entries, total, nil
}

func (e *gormEngine) DuePlants(ctx context.Context, userID int64, roomID *int64, asOf time.Time, page, perPage int) ([]model.Plant, int64, error) {
	query := func() *gorm.DB {
		q := e.db.WithContext(ctx).Model(&model.Plant{}).
			Joins("JOIN water_schedules ON water_schedules.plant_id = plants.id").
			Where("water_schedules.next_due_at <= ?", asOf).
			Where("plants.user_id = ?", userID)
		if roomID != nil {
			q = q.Where("plants.room_id = ?", *roomID)
		}
		return q
	}

	var total int64
	if err := query().Count(&total).Error; err != nil {
		return nil, 0, MapDBError(err)
	}

	if page < 1 {
		page = 1
	}
	var plants []model.Plant
	err := query().
		Preload("Schedule").
		Order("plants.name ASC").
		Limit(perPage).
		Offset((page - 1) * perPage).
		Find(&plants).Error
	if err != nil {
		return nil, 0, MapDBError(err)
	}
	return plants, total, nil
}

// loadOwned fetches a schedule and its plant (with type and light source)
// and enforces ownership. With lock set, postgres takes a row lock so
// concurrent transitions against the same schedule serialize instead of
// computing from a stale last-watered date.
func (e *gormEngine) loadOwned(ctx context.Context, tx *gorm.DB, scheduleID, userID int64, lock bool) (*model.WaterSchedule, *model.Plant, error) {
	q := tx.WithContext(ctx)
	if lock && tx.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var sched model.WaterSchedule
	if err := q.First(&sched, scheduleID).Error; err != nil {
		return nil, nil, MapDBError(err)
	}

	var plant model.Plant
	if err := tx.WithContext(ctx).Preload("Light").Preload("Type").First(&plant, sched.PlantID).Error; err != nil {
		return nil, nil, MapDBError(err)
	}
	if plant.UserID != userID {
		return nil, nil, ErrUnauthorized
	}
	return &sched, &plant, nil
}

func historyNotes(notes string) string {
	if notes == "" {
		return model.DefaultHistoryNotes
	}
	return notes
}

func clampInterval(days, max int) int {
	if days < 1 {
		days = 1
	}
	if max >= 1 && days > max {
		days = max
	}
	return days
}
