package model

import "time"

// User owns collections, rooms and plants. Latitude/Longitude are optional;
// they stay nil until the user resolves a location through the geocoder.
type User struct {
	ID           int64    `gorm:"primaryKey"`
	PublicID     string   `gorm:"uniqueIndex;size:64;not null"`
	Name         string   `gorm:"size:128;not null"`
	Email        string   `gorm:"size:256;not null"`
	Username     string   `gorm:"uniqueIndex;size:64;not null"`
	PasswordHash string   `gorm:"size:128;not null"`
	Latitude     *float64 `gorm:"type:decimal(8,6)"`
	Longitude    *float64 `gorm:"type:decimal(9,6)"`
	CreatedAt    time.Time
	UpdatedAt    time.Time

	// Associations
	Collections []Collection `gorm:"foreignKey:UserID"`
}

// Coordinates is a geographic point in signed decimal degrees.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Coordinates returns the user's stored geolocation, or nil when the user
// never set one. The interval policy treats nil as a hard error for natural
// light sources.
func (u *User) Coordinates() *Coordinates {
	if u.Latitude == nil || u.Longitude == nil {
		return nil
	}
	return &Coordinates{Latitude: *u.Latitude, Longitude: *u.Longitude}
}
