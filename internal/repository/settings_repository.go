package repository

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"day-organiser/internal/model"
)

// SettingsRepository stores arbitrary key/value settings.
type SettingsRepository struct {
	db *gorm.DB
}

func NewSettingsRepository(db *gorm.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// LoadSettings returns every stored setting.
func (r *SettingsRepository) LoadSettings(ctx context.Context) (map[string]string, error) {
	var rows []model.Setting
	if err := r.db.WithContext(ctx).Order("key ASC").Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "load settings")
	}
	out := make(map[string]string, len(rows))
	for _, row := range rows {
		out[row.Key] = row.Value
	}
	return out, nil
}

// SaveSettings upserts the given keys. An empty value deletes the key.
func (r *SettingsRepository) SaveSettings(ctx context.Context, values map[string]string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for key, value := range values {
			if value == "" {
				if err := tx.Where("key = ?", key).Delete(&model.Setting{}).Error; err != nil {
					return errors.Wrapf(err, "delete setting %s", key)
				}
				continue
			}
			row := model.Setting{Key: key, Value: value}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "key"}},
				DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
			}).Create(&row).Error
			if err != nil {
				return errors.Wrapf(err, "save setting %s", key)
			}
		}
		return nil
	})
}
