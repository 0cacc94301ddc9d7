package db

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"watermate-backend/config"
	"watermate-backend/internal/model"
)

// Init initializes the database connection, runs migrations and seeds the
// shared reference tables.
func Init(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)

	log.Println("Running database migrations...")
	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("automigrate failed: %w", err)
	}

	if err := SeedPlantTypes(db); err != nil {
		return nil, fmt.Errorf("plant type seeding failed: %w", err)
	}

	log.Println("Database initialization complete.")
	return db, nil
}

// Migrate creates or updates the schema for every model. Shared between Init
// and the sqlite-backed tests.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.Collection{},
		&model.Room{},
		&model.LightSource{},
		&model.PlantType{},
		&model.Plant{},
		&model.WaterSchedule{},
		&model.WaterHistoryEntry{},
		&model.PushSubscription{},
	)
}

// defaultPlantTypes is the built-in species catalog. PlantType rows are
// shared read-only reference data; users never edit them.
var defaultPlantTypes = []model.PlantType{
	{Name: "Succulent", BaseWaterDays: 14, BaseSunlightHours: 6, MaxDaysWithoutWater: 30},
	{Name: "Cactus", BaseWaterDays: 21, BaseSunlightHours: 8, MaxDaysWithoutWater: 40},
	{Name: "Fern", BaseWaterDays: 4, BaseSunlightHours: 4, MaxDaysWithoutWater: 10},
	{Name: "Pothos", BaseWaterDays: 7, BaseSunlightHours: 5, MaxDaysWithoutWater: 20},
	{Name: "Snake Plant", BaseWaterDays: 14, BaseSunlightHours: 5, MaxDaysWithoutWater: 35},
	{Name: "Monstera", BaseWaterDays: 9, BaseSunlightHours: 6, MaxDaysWithoutWater: 21},
	{Name: "Orchid", BaseWaterDays: 7, BaseSunlightHours: 6, MaxDaysWithoutWater: 18},
	{Name: "Palm", BaseWaterDays: 7, BaseSunlightHours: 6, MaxDaysWithoutWater: 16},
	{Name: "Herb", BaseWaterDays: 3, BaseSunlightHours: 7, MaxDaysWithoutWater: 7},
	{Name: "Flowering Houseplant", BaseWaterDays: 5, BaseSunlightHours: 7, MaxDaysWithoutWater: 12},
}

// SeedPlantTypes inserts the species catalog on first boot. Existing rows
// are left alone so a reseed never mutates reference data already in use.
func SeedPlantTypes(db *gorm.DB) error {
	var count int64
	if err := db.Model(&model.PlantType{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	log.Printf("Seeding %d plant types...", len(defaultPlantTypes))
	return db.Create(&defaultPlantTypes).Error
}
