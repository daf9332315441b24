package services

import (
	"context"
	"errors"
	"strconv"

	"repairshop-backend/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SettingsService reads shop settings straight from the database on every
// call so edits apply to the next request.
type SettingsService struct {
	db *gorm.DB
}

func NewSettingsService(db *gorm.DB) *SettingsService {
	return &SettingsService{db: db}
}

// WithDB returns a copy bound to db, typically an open transaction.
func (s *SettingsService) WithDB(db *gorm.DB) *SettingsService {
	return &SettingsService{db: db}
}

func (s *SettingsService) Get(ctx context.Context, key, def string) string {
	var setting models.Setting
	err := s.db.WithContext(ctx).Where(map[string]interface{}{"key": key}).First(&setting).Error
	if err != nil || setting.Value == "" {
		return def
	}
	return setting.Value
}

func (s *SettingsService) GetInt(ctx context.Context, key string, def int) int {
	v, err := strconv.Atoi(s.Get(ctx, key, ""))
	if err != nil {
		return def
	}
	return v
}

func (s *SettingsService) GetBool(ctx context.Context, key string) bool {
	v, _ := strconv.ParseBool(s.Get(ctx, key, "false"))
	return v
}

func (s *SettingsService) All(ctx context.Context) (map[string]string, error) {
	var rows []models.Setting
	if err := s.db.WithContext(ctx).Order(clause.OrderByColumn{Column: clause.Column{Name: "key"}}).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]string, len(rows))
	for _, r := range rows {
		out[r.Key] = r.Value
	}
	return out, nil
}

// Upsert writes every entry, inserting missing keys.
func (s *SettingsService) Upsert(ctx context.Context, values map[string]string) error {
	if len(values) == 0 {
		return ErrNoFieldsToUpdate
	}
	if v, ok := values[models.SettingDefaultWarrantyDays]; ok {
		if n, err := strconv.Atoi(v); err != nil || n <= 0 {
			return newValidationError(models.SettingDefaultWarrantyDays, "must be a positive integer")
		}
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for key, value := range values {
			if key == "" {
				return errors.New("empty setting key")
			}
			row := models.Setting{Key: key, Value: value}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "key"}},
				DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
			}).Create(&row).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}
