package repository

import (
	"baburchi-admin/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SettingRepository interface {
	Get(key string) (*model.Setting, error)
	Put(tx *gorm.DB, key, value, updatedBy string) error
	Delete(key string) error
}

type settingRepo struct {
	db *gorm.DB
}

func NewSettingRepo(db *gorm.DB) SettingRepository {
	return &settingRepo{db}
}

func (r *settingRepo) Get(key string) (*model.Setting, error) {
	var setting model.Setting
	if err := r.db.First(&setting, "setting_key = ?", key).Error; err != nil {
		return nil, err
	}
	return &setting, nil
}

// Put writes the value through tx; pass nil to use the repository connection
func (r *settingRepo) Put(tx *gorm.DB, key, value, updatedBy string) error {
	if tx == nil {
		tx = r.db
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "setting_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at", "updated_by"}),
	}).Create(&model.Setting{Key: key, Value: value, UpdatedBy: updatedBy}).Error
}

func (r *settingRepo) Delete(key string) error {
	return r.db.Delete(&model.Setting{}, "setting_key = ?", key).Error
}
