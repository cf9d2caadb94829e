package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/arunvm123/gigbooking/config"
	"github.com/arunvm123/gigbooking/model"
)

// Open connects to Postgres and applies the pool settings.
func Open(cfg *config.Database) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.GetDatabaseURL()), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)

	return db, nil
}

// Migrate creates or updates the tables and their check constraints.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&model.User{}, &model.Event{}, &model.Booking{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// Ping checks the database connection for health checks.
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func dbError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", model.ErrDatabase, op, err)
}

// orderBy resolves a whitelisted sort column, falling back to created_at.
func orderBy(columns map[string]string, params model.PaginationParams) clause.OrderByColumn {
	col, ok := columns[params.SortBy]
	if !ok {
		col = "created_at"
	}
	return clause.OrderByColumn{
		Column: clause.Column{Name: col},
		Desc:   params.SortOrder != model.SortAsc,
	}
}
