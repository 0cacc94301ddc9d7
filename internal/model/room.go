package model

import "time"

// Room belongs to a collection and hosts light sources and plants.
// Names are unique within a collection.
type Room struct {
	ID           int64  `gorm:"primaryKey"`
	Name         string `gorm:"size:128;not null;uniqueIndex:idx_room_collection_name"`
	CollectionID int64  `gorm:"not null;uniqueIndex:idx_room_collection_name"`
	UserID       int64  `gorm:"not null;index"`
	CreatedAt    time.Time
	UpdatedAt    time.Time

	// Associations
	LightSources []LightSource `gorm:"foreignKey:RoomID"`
	Collection   Collection    `gorm:"constraint:OnDelete:CASCADE"`
}
