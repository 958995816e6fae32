package repository

import (
	"baburchi-admin/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LeadRepository interface {
	Create(tx *gorm.DB, leads []model.Lead) error
	FindAll() ([]model.Lead, error)
	FindByModerator(moderatorID string) ([]model.Lead, error)
	FindByID(id string) (*model.Lead, error)
	FindByIDs(tx *gorm.DB, ids []string) ([]model.Lead, error)
	Reassign(tx *gorm.DB, ids []string, moderatorID, assignedDate, updatedBy string) error
	UpdateStatus(id string, status model.LeadStatus, updatedBy string) error
	Delete(id, deletedBy string) error
	CountByStatus(moderatorID string, status model.LeadStatus) (int64, error)
	Upsert(tx *gorm.DB, leads []model.Lead) error
}

type leadRepo struct {
	db *gorm.DB
}

func NewLeadRepo(db *gorm.DB) LeadRepository {
	return &leadRepo{db}
}

func (r *leadRepo) Create(tx *gorm.DB, leads []model.Lead) error {
	if len(leads) == 0 {
		return nil
	}
	return tx.Create(&leads).Error
}

func (r *leadRepo) FindAll() ([]model.Lead, error) {
	var leads []model.Lead
	err := r.db.Order("assigned_date DESC").Order("created_at ASC").Find(&leads).Error
	return leads, err
}

func (r *leadRepo) FindByModerator(moderatorID string) ([]model.Lead, error) {
	var leads []model.Lead
	err := r.db.Where("moderator_id = ?", moderatorID).
		Order("assigned_date DESC").Order("created_at ASC").
		Find(&leads).Error
	return leads, err
}

func (r *leadRepo) FindByID(id string) (*model.Lead, error) {
	var lead model.Lead
	if err := r.db.First(&lead, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &lead, nil
}

func (r *leadRepo) FindByIDs(tx *gorm.DB, ids []string) ([]model.Lead, error) {
	var leads []model.Lead
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id IN ?", ids).Find(&leads).Error
	return leads, err
}

// Reassign moves the leads to a moderator and date and resets them to new
func (r *leadRepo) Reassign(tx *gorm.DB, ids []string, moderatorID, assignedDate, updatedBy string) error {
	return tx.Model(&model.Lead{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{
			"moderator_id":  moderatorID,
			"assigned_date": assignedDate,
			"status":        model.LeadNew,
			"updated_by":    updatedBy,
		}).Error
}

func (r *leadRepo) UpdateStatus(id string, status model.LeadStatus, updatedBy string) error {
	res := r.db.Model(&model.Lead{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_by": updatedBy,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *leadRepo) Delete(id, deletedBy string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Lead{}).Where("id = ?", id).Update("deleted_by", deletedBy).Error; err != nil {
			return err
		}
		res := tx.Delete(&model.Lead{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// CountByStatus counts leads in a status; an empty moderatorID counts every moderator
func (r *leadRepo) CountByStatus(moderatorID string, status model.LeadStatus) (int64, error) {
	var count int64
	q := r.db.Model(&model.Lead{}).Where("status = ?", status)
	if moderatorID != "" {
		q = q.Where("moderator_id = ?", moderatorID)
	}
	err := q.Count(&count).Error
	return count, err
}

func (r *leadRepo) Upsert(tx *gorm.DB, leads []model.Lead) error {
	if len(leads) == 0 {
		return nil
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&leads).Error
}
