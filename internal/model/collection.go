package model

import "time"

// Collection groups a user's rooms. Names are unique per user.
type Collection struct {
	ID        int64  `gorm:"primaryKey"`
	Name      string `gorm:"size:128;not null;uniqueIndex:idx_collection_user_name"`
	UserID    int64  `gorm:"not null;uniqueIndex:idx_collection_user_name"`
	CreatedAt time.Time
	UpdatedAt time.Time

	// Associations
	Rooms []Room `gorm:"foreignKey:CollectionID"`
	User  User   `gorm:"constraint:OnDelete:CASCADE"`
}
