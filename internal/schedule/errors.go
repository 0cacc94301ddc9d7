package schedule

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// Typed errors surfaced by the engine. A failed transition always leaves the
// schedule and its history in their pre-call state; callers translate these
// into user-facing responses.
var (
	ErrNotFound            = errors.New("schedule: not found")
	ErrUnauthorized        = errors.New("schedule: caller does not own this plant")
	ErrInvalidDate         = errors.New("schedule: invalid watering date")
	ErrInvalidInterval     = errors.New("schedule: manual interval must be at least one day")
	ErrSchedulingBlocked   = errors.New("schedule: next watering could not be computed")
	ErrConstraintViolation = errors.New("schedule: constraint violation")
)

// MapDBError converts raw driver/gorm errors into the engine's typed errors.
// Uniqueness and foreign-key failures become ErrConstraintViolation; the
// string fallbacks cover drivers that gorm does not translate.
func MapDBError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || errors.Is(err, gorm.ErrForeignKeyViolated) {
		return fmt.Errorf("%w: %v", ErrConstraintViolation, err)
	}
	msg := err.Error()
	if strings.Contains(msg, "UNIQUE constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(strings.ToUpper(msg), "FOREIGN KEY") {
		return fmt.Errorf("%w: %v", ErrConstraintViolation, err)
	}
	return err
}
