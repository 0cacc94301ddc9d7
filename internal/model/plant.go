package model

import "time"

// DefaultPlantImage is used when a plant is created without an uploaded photo.
const DefaultPlantImage = "/images/succulents.png"

// Plant lives in a room under one light source and carries exactly one water
// schedule. Type, room and light source references are restrict-on-delete:
// reference data in use cannot be removed.
type Plant struct {
	ID        int64  `gorm:"primaryKey"`
	Name      string `gorm:"size:128;not null"`
	ImageURL  string `gorm:"size:512;not null"`
	UserID    int64  `gorm:"not null;index"`
	TypeID    int64  `gorm:"not null;index"`
	RoomID    int64  `gorm:"not null;index"`
	LightID   int64  `gorm:"not null;index"`
	CreatedAt time.Time
	UpdatedAt time.Time

	// Associations
	Type     PlantType      `gorm:"foreignKey:TypeID"`
	Room     Room           `gorm:"foreignKey:RoomID"`
	Light    LightSource    `gorm:"foreignKey:LightID"`
	Schedule *WaterSchedule `gorm:"foreignKey:PlantID"`
}
