package model

import "time"

// LightExposure is the closed set of light source orientations. The compass
// orientations describe which way a window faces; Artificial marks a
// constant-output grow light that never needs solar adjustment.
type LightExposure string

const (
	ExposureArtificial LightExposure = "Artificial"
	ExposureNorth      LightExposure = "North"
	ExposureEast       LightExposure = "East"
	ExposureSouth      LightExposure = "South"
	ExposureWest       LightExposure = "West"
	ExposureNortheast  LightExposure = "Northeast"
	ExposureNorthwest  LightExposure = "Northwest"
	ExposureSoutheast  LightExposure = "Southeast"
	ExposureSouthwest  LightExposure = "Southwest"
)

// AllExposures lists every valid orientation, in seed order.
var AllExposures = []LightExposure{
	ExposureArtificial,
	ExposureNorth,
	ExposureEast,
	ExposureSouth,
	ExposureWest,
	ExposureNortheast,
	ExposureNorthwest,
	ExposureSoutheast,
	ExposureSouthwest,
}

// Valid reports whether e is one of the nine known orientations.
func (e LightExposure) Valid() bool {
	for _, known := range AllExposures {
		if e == known {
			return true
		}
	}
	return false
}

// Artificial reports whether this exposure skips the solar model.
func (e LightExposure) Artificial() bool {
	return e == ExposureArtificial
}

// DefaultDailyLightHours is the assumed daily output of an artificial source.
const DefaultDailyLightHours = 8

// LightSource attaches an exposure to a room. A room can hold at most one
// source per orientation.
type LightSource struct {
	ID              int64         `gorm:"primaryKey"`
	Exposure        LightExposure `gorm:"size:16;not null;uniqueIndex:idx_light_room_exposure"`
	DailyTotalHours int           `gorm:"not null;default:8"`
	RoomID          int64         `gorm:"not null;uniqueIndex:idx_light_room_exposure"`
	CreatedAt       time.Time

	// Associations
	Room Room `gorm:"constraint:OnDelete:CASCADE"`
}
