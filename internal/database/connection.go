// internal/database/connection.go
package database

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/marketloop/marketloop-backend/internal/config"
	"github.com/marketloop/marketloop-backend/internal/models"
)

func Initialize(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		// Unique-constraint races on edge insertion must surface as
		// gorm.ErrDuplicatedKey so callers can treat them as no-ops.
		TranslateError: true,
	}
	if cfg.LogLevel == "silent" {
		gormConfig.Logger = logger.Default.LogMode(logger.Silent)
	} else {
		gormConfig.Logger = logger.Default.LogMode(logger.Info)
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.MaxLifetime) * time.Second)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logrus.Info("Database connection established")
	return db, nil
}

func Close(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		logrus.WithError(err).Error("Error getting underlying sql.DB")
		return
	}

	if err := sqlDB.Close(); err != nil {
		logrus.WithError(err).Error("Error closing database connection")
	}
}

func RunMigrations(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.Picture{},
		&models.PictureFormat{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Edge tables are bare join tables managed by EdgeSet. The composite
	// primary keys are the uniqueness constraints duplicate-edge races
	// resolve against.
	edgeTables := []string{
		`CREATE TABLE IF NOT EXISTS follows (
			follower_id INTEGER NOT NULL REFERENCES users(id),
			followed_id INTEGER NOT NULL REFERENCES users(id),
			PRIMARY KEY (follower_id, followed_id)
		)`,
		`CREATE TABLE IF NOT EXISTS cart_items (
			user_id INTEGER NOT NULL REFERENCES users(id),
			product_id INTEGER NOT NULL REFERENCES products(id),
			PRIMARY KEY (user_id, product_id)
		)`,
	}
	for _, ddl := range edgeTables {
		if err := db.Exec(ddl).Error; err != nil {
			return fmt.Errorf("failed to create edge table: %w", err)
		}
	}

	return nil
}
