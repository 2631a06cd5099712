package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lugf027/mywebsite/models"
)

// SiteConfigStore persists key/value site settings.
type SiteConfigStore interface {
	All(ctx context.Context) ([]models.SiteConfig, error)
	// Upsert writes every entry in one transaction.
	Upsert(ctx context.Context, values map[string]string, at time.Time) error
	// InsertMissing adds entries whose key is absent and leaves existing rows untouched.
	InsertMissing(ctx context.Context, values map[string]string, at time.Time) error
}

type gormSiteConfigStore struct {
	db *gorm.DB
}

// NewSiteConfigStore returns a SiteConfigStore backed by gorm.
func NewSiteConfigStore(db *gorm.DB) SiteConfigStore {
	return &gormSiteConfigStore{db: db}
}

func (s *gormSiteConfigStore) All(ctx context.Context) ([]models.SiteConfig, error) {
	var rows []models.SiteConfig
	if err := s.db.WithContext(ctx).Order("config_key ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load site config: %w", err)
	}
	return rows, nil
}

func (s *gormSiteConfigStore) Upsert(ctx context.Context, values map[string]string, at time.Time) error {
	if len(values) == 0 {
		return nil
	}
	rows := toRows(values, at)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "config_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).Create(&rows).Error
	})
	if err != nil {
		return fmt.Errorf("save site config: %w", err)
	}
	return nil
}

func (s *gormSiteConfigStore) InsertMissing(ctx context.Context, values map[string]string, at time.Time) error {
	if len(values) == 0 {
		return nil
	}
	rows := toRows(values, at)
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
		return fmt.Errorf("seed site config: %w", err)
	}
	return nil
}

func toRows(values map[string]string, at time.Time) []models.SiteConfig {
	rows := make([]models.SiteConfig, 0, len(values))
	for k, v := range values {
		rows = append(rows, models.SiteConfig{Key: k, Value: v, UpdatedAt: at.UTC()})
	}
	return rows
}
