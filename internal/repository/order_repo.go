package repository

import (
	"strings"
	"time"

	"baburchi-admin/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrderFilter narrows ListOrders. Zero values disable a filter.
type OrderFilter struct {
	ModeratorID string
	Search      string
	From        *time.Time // inclusive
	To          *time.Time // exclusive
	Status      model.OrderStatus
}

// OrderStats are the aggregates behind the dashboard
type OrderStats struct {
	Total     int64 `json:"total"`
	Pending   int64 `json:"pending"`
	Confirmed int64 `json:"confirmed"`
	Delivered int64 `json:"delivered"`
	Cancelled int64 `json:"cancelled"`
	Revenue   int64 `json:"revenue"`
}

type OrderRepository interface {
	Create(tx *gorm.DB, order *model.Order) error
	FindByID(id string) (*model.Order, error)
	FindForUpdate(tx *gorm.DB, id string) (*model.Order, error)
	FindBySteadfastID(consignmentID string) (*model.Order, error)
	List(filter OrderFilter) ([]model.Order, error)
	Update(tx *gorm.DB, id string, fields map[string]interface{}) error
	ClaimCourierSync(id string, staleBefore, now time.Time) (bool, error)
	ReleaseCourierSync(id string) error
	Stats(moderatorID string) (*OrderStats, error)
	Upsert(tx *gorm.DB, orders []model.Order) error
}

type orderRepo struct {
	db *gorm.DB
}

func NewOrderRepo(db *gorm.DB) OrderRepository {
	return &orderRepo{db}
}

func preloadItems(db *gorm.DB) *gorm.DB {
	return db.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	})
}

// Create inserts the order and its items inside the caller's transaction
func (r *orderRepo) Create(tx *gorm.DB, order *model.Order) error {
	return tx.Create(order).Error
}

func (r *orderRepo) FindByID(id string) (*model.Order, error) {
	var order model.Order
	if err := preloadItems(r.db).First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepo) FindForUpdate(tx *gorm.DB, id string) (*model.Order, error) {
	var order model.Order
	err := preloadItems(tx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&order, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepo) FindBySteadfastID(consignmentID string) (*model.Order, error) {
	var order model.Order
	if err := preloadItems(r.db).First(&order, "steadfast_id = ?", consignmentID).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// List returns matching orders, newest first
func (r *orderRepo) List(filter OrderFilter) ([]model.Order, error) {
	q := preloadItems(r.db).Model(&model.Order{})

	if filter.ModeratorID != "" {
		q = q.Where("moderator_id = ?", filter.ModeratorID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("(LOWER(id) LIKE ? OR LOWER(customer_name) LIKE ? OR customer_phone LIKE ?)", like, like, "%"+s+"%")
	}
	if filter.From != nil {
		q = q.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("created_at < ?", *filter.To)
	}

	var orders []model.Order
	err := q.Order("created_at DESC").Order("id DESC").Find(&orders).Error
	return orders, err
}

func (r *orderRepo) Update(tx *gorm.DB, id string, fields map[string]interface{}) error {
	return tx.Model(&model.Order{}).Where("id = ?", id).Updates(fields).Error
}

// ClaimCourierSync moves an unsynced order to IN_FLIGHT. A claim older than staleBefore
// is treated as abandoned and may be taken again. It reports whether this caller won the claim.
func (r *orderRepo) ClaimCourierSync(id string, staleBefore, now time.Time) (bool, error) {
	res := r.db.Model(&model.Order{}).
		Where("id = ? AND steadfast_id IS NULL AND status IN ?", id,
			[]model.OrderStatus{model.OrderPending, model.OrderConfirmed}).
		Where("courier_sync_state = ? OR (courier_sync_state = ? AND courier_sync_started_at < ?)",
			model.SyncUnsynced, model.SyncInFlight, staleBefore).
		Updates(map[string]interface{}{
			"courier_sync_state":      model.SyncInFlight,
			"courier_sync_started_at": now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *orderRepo) ReleaseCourierSync(id string) error {
	return r.db.Model(&model.Order{}).
		Where("id = ? AND courier_sync_state = ?", id, model.SyncInFlight).
		Updates(map[string]interface{}{
			"courier_sync_state":      model.SyncUnsynced,
			"courier_sync_started_at": nil,
		}).Error
}

// Stats aggregates order counts and revenue. An empty moderatorID covers every order.
func (r *orderRepo) Stats(moderatorID string) (*OrderStats, error) {
	type row struct {
		Status string
		Count  int64
		Amount int64
	}
	var rows []row

	q := r.db.Model(&model.Order{}).
		Select("status, COUNT(*) AS count, COALESCE(SUM(total_amount), 0) AS amount").
		Group("status")
	if moderatorID != "" {
		q = q.Where("moderator_id = ?", moderatorID)
	}
	if err := q.Scan(&rows).Error; err != nil {
		return nil, err
	}

	stats := &OrderStats{}
	for _, rw := range rows {
		stats.Total += rw.Count
		switch model.OrderStatus(rw.Status) {
		case model.OrderPending:
			stats.Pending = rw.Count
		case model.OrderConfirmed:
			stats.Confirmed = rw.Count
		case model.OrderDelivered:
			stats.Delivered = rw.Count
		case model.OrderCancelled:
			stats.Cancelled = rw.Count
		}
		stats.Revenue += rw.Amount
	}
	return stats, nil
}

// Upsert inserts orders that are not stored yet, items included. Stored orders only get
// their customer details refreshed: status, items, total and courier fields are left alone.
func (r *orderRepo) Upsert(tx *gorm.DB, orders []model.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	var existing []string
	if err := tx.Unscoped().Model(&model.Order{}).Where("id IN ?", ids).Pluck("id", &existing).Error; err != nil {
		return err
	}
	stored := make(map[string]bool, len(existing))
	for _, id := range existing {
		stored[id] = true
	}

	fresh := make([]model.Order, 0, len(orders))
	for _, o := range orders {
		if !stored[o.ID] {
			stored[o.ID] = true
			fresh = append(fresh, o)
			continue
		}
		err := tx.Model(&model.Order{}).Where("id = ?", o.ID).Updates(map[string]interface{}{
			"customer_name":    o.CustomerName,
			"customer_phone":   o.CustomerPhone,
			"customer_address": o.CustomerAddress,
			"notes":            o.Notes,
			"updated_by":       o.UpdatedBy,
		}).Error
		if err != nil {
			return err
		}
	}
	if len(fresh) == 0 {
		return nil
	}
	return tx.Create(&fresh).Error
}
