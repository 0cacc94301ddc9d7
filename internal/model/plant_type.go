package model

// PlantType is shared reference data describing a species' watering needs.
// Rows are seeded once and never mutated; many plants reference one type.
type PlantType struct {
	ID                  int64  `gorm:"primaryKey"`
	Name                string `gorm:"uniqueIndex;size:128;not null"`
	BaseWaterDays       int    `gorm:"not null"`
	BaseSunlightHours   int    `gorm:"not null"`
	MaxDaysWithoutWater int    `gorm:"not null"`
}
