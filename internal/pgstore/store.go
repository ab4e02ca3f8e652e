// Package pgstore is the PostgreSQL implementation of the shareit repositories.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"shareit/internal/config"
	"shareit/internal/database"
	"shareit/internal/models"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type Store struct {
	db     *gorm.DB
	logger *zerolog.Logger
}

// Open connects to PostgreSQL and migrates the schema.
func Open(cfg config.PostgresConfig, logger *zerolog.Logger) (*Store, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger:         gormlogger.Discard,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if cfg.MaxConnections > 0 {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get sql.DB: %w", err)
		}
		sqlDB.SetMaxOpenConns(cfg.MaxConnections)
	}

	return New(db, logger)
}

// New wraps an open gorm handle and runs migrations.
func New(db *gorm.DB, logger *zerolog.Logger) (*Store, error) {
	if err := db.AutoMigrate(&userRecord{}, &itemRecord{}, &bookingRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}
	logger.Info().Str("dialect", db.Dialector.Name()).Msg("Database initialized")
	return &Store{db: db, logger: logger}, nil
}

func (s *Store) PingContext(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return database.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return database.ErrDuplicate
	default:
		return err
	}
}

// Users

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	rec := userRecord{Name: user.Name, Email: user.Email}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", translateError(err))
	}
	user.ID = rec.ID
	user.CreatedAt = rec.CreatedAt
	user.UpdatedAt = rec.UpdatedAt
	return nil
}

func (s *Store) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	var rec userRecord
	if err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("failed to get user %d: %w", id, translateError(err))
	}
	return rec.toModel(), nil
}

func (s *Store) UpdateUser(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	res := s.db.WithContext(ctx).Model(&userRecord{}).Where("id = ?", user.ID).
		Updates(map[string]interface{}{"name": user.Name, "email": user.Email, "updated_at": now})
	if res.Error != nil {
		return fmt.Errorf("failed to update user: %w", translateError(res.Error))
	}
	if res.RowsAffected == 0 {
		return database.ErrNotFound
	}
	user.UpdatedAt = now
	return nil
}

func (s *Store) UserExists(ctx context.Context, id int64) (bool, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&userRecord{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, fmt.Errorf("failed to check user: %w", err)
	}
	return n > 0, nil
}

// Items

func (s *Store) CreateItem(ctx context.Context, item *models.Item) error {
	rec := itemRecord{OwnerID: item.OwnerID, Name: item.Name, Description: item.Description, Available: item.Available}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("failed to create item: %w", translateError(err))
	}
	item.ID = rec.ID
	item.CreatedAt = rec.CreatedAt
	item.UpdatedAt = rec.UpdatedAt
	return nil
}

func (s *Store) GetItemByID(ctx context.Context, id int64) (*models.Item, error) {
	var rec itemRecord
	if err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("failed to get item %d: %w", id, translateError(err))
	}
	return rec.toModel(), nil
}

func (s *Store) UpdateItem(ctx context.Context, item *models.Item) error {
	now := time.Now().UTC()
	res := s.db.WithContext(ctx).Model(&itemRecord{}).Where("id = ?", item.ID).
		Updates(map[string]interface{}{
			"name":        item.Name,
			"description": item.Description,
			"available":   item.Available,
			"updated_at":  now,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update item: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return database.ErrNotFound
	}
	item.UpdatedAt = now
	return nil
}

func (s *Store) GetItemsByOwner(ctx context.Context, ownerID int64) ([]*models.Item, error) {
	var recs []itemRecord
	if err := s.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("id ASC").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	return toItems(recs), nil
}

func (s *Store) SearchAvailableItems(ctx context.Context, text string) ([]*models.Item, error) {
	pattern := "%" + strings.ToLower(text) + "%"
	var recs []itemRecord
	err := s.db.WithContext(ctx).
		Where("available = ?", true).
		Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern).
		Order("id ASC").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search items: %w", err)
	}
	return toItems(recs), nil
}

func toItems(recs []itemRecord) []*models.Item {
	items := make([]*models.Item, 0, len(recs))
	for _, r := range recs {
		items = append(items, r.toModel())
	}
	return items
}
