package repository

import (
	"time"

	"baburchi-admin/internal/model"

	"gorm.io/gorm"
)

type StockMovementRepository interface {
	Create(tx *gorm.DB, movements []model.StockMovement) error
	FindByProduct(productID string, limit int) ([]model.StockMovement, error)
	GetStockMovement(startDate, endDate time.Time) ([]StockMovementData, error)
}

// StockMovementData is one day of the stock chart
type StockMovementData struct {
	Date     string `json:"date"`
	Inbound  int    `json:"inbound"`
	Outbound int    `json:"outbound"`
}

type stockMovementRepo struct {
	db *gorm.DB
}

func NewStockMovementRepo(db *gorm.DB) StockMovementRepository {
	return &stockMovementRepo{db}
}

func (r *stockMovementRepo) Create(tx *gorm.DB, movements []model.StockMovement) error {
	if len(movements) == 0 {
		return nil
	}
	return tx.Create(&movements).Error
}

func (r *stockMovementRepo) FindByProduct(productID string, limit int) ([]model.StockMovement, error) {
	var movements []model.StockMovement
	q := r.db.Where("product_id = ?", productID).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&movements).Error
	return movements, err
}

func (r *stockMovementRepo) GetStockMovement(startDate, endDate time.Time) ([]StockMovementData, error) {
	var results []StockMovementData

	rows, err := r.db.Model(&model.StockMovement{}).
		Select(`
			DATE(created_at) as date,
			COALESCE(SUM(CASE WHEN type = 'IN' OR (type = 'ADJUST' AND quantity > 0) THEN ABS(quantity) ELSE 0 END), 0) as inbound,
			COALESCE(SUM(CASE WHEN type = 'OUT' OR (type = 'ADJUST' AND quantity < 0) THEN ABS(quantity) ELSE 0 END), 0) as outbound
		`).
		Where("created_at BETWEEN ? AND ?", startDate, endDate).
		Group("DATE(created_at)").
		Order("date ASC").
		Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var data StockMovementData
		if err := rows.Scan(&data.Date, &data.Inbound, &data.Outbound); err != nil {
			return nil, err
		}
		results = append(results, data)
	}

	return results, rows.Err()
}
