package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"baburchi-admin/internal/event"
	"baburchi-admin/internal/model"
	"baburchi-admin/internal/repository"
	"baburchi-admin/pkg/validator"
)

type CatalogService interface {
	ListProducts(ctx context.Context) ([]model.Product, error)
	GetProduct(ctx context.Context, id string) (*model.Product, error)
	CreateProduct(ctx context.Context, actor Actor, req *ProductRequest) (*model.Product, error)
	UpdateProduct(ctx context.Context, actor Actor, id string, req *ProductRequest) (*model.Product, error)
	DeleteProduct(ctx context.Context, actor Actor, id string) error
	StockHistory(ctx context.Context, id string, limit int) ([]model.StockMovement, error)
}

// ProductRequest creates or edits a product. A nil Stock means DefaultStock on create
// and "unchanged" on update.
type ProductRequest struct {
	SKU   string `json:"sku" validate:"required,max=50"`
	Name  string `json:"name" validate:"required,max=255"`
	Price int64  `json:"price" validate:"gte=0"`
	Stock *int   `json:"stock" validate:"omitempty,gte=0"`
}

type catalogService struct {
	db          *gorm.DB
	productRepo repository.ProductRepository
	movements   repository.StockMovementRepository
	events      event.Publisher
	logger      *zap.Logger
}

func NewCatalogService(db *gorm.DB, productRepo repository.ProductRepository, movements repository.StockMovementRepository, events event.Publisher, logger *zap.Logger) CatalogService {
	return &catalogService{
		db:          db,
		productRepo: productRepo,
		movements:   movements,
		events:      events,
		logger:      logger.Named("catalog"),
	}
}

func (s *catalogService) ListProducts(ctx context.Context) ([]model.Product, error) {
	return s.productRepo.FindAll()
}

func (s *catalogService) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	product, err := s.productRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return product, nil
}

func (s *catalogService) skuTaken(sku, exceptID string) (bool, error) {
	existing, err := s.productRepo.FindBySKU(sku)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return existing.ID != exceptID, nil
}

func (s *catalogService) CreateProduct(ctx context.Context, actor Actor, req *ProductRequest) (*model.Product, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	// 1. Validate
	req.SKU = strings.ToUpper(strings.TrimSpace(req.SKU))
	req.Name = strings.TrimSpace(req.Name)
	if err := validator.Validate(req); err != nil {
		return nil, err
	}

	// 2. SKU must be unique, soft-deleted products included
	taken, err := s.skuTaken(req.SKU, "")
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrDuplicateSKU
	}

	stock := model.DefaultStock
	if req.Stock != nil {
		stock = *req.Stock
	}
	product := &model.Product{SKU: req.SKU, Name: req.Name, Price: req.Price, Stock: stock}
	product.CreatedBy = actor.ID
	product.UpdatedBy = actor.ID

	// 3. Save product and opening stock together
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.productRepo.Create(tx, product); err != nil {
			return err
		}
		if stock == 0 {
			return nil
		}
		movement := model.StockMovement{
			ProductID:  product.ID,
			Type:       model.MovementIn,
			Quantity:   stock,
			StockAfter: stock,
			Note:       "opening stock",
		}
		movement.CreatedBy = actor.ID
		return s.movements.Create(tx, []model.StockMovement{movement})
	})
	if err != nil {
		return nil, err
	}

	// 4. Notify
	s.logger.Info("product created", zap.String("product_id", product.ID), zap.String("sku", product.SKU))
	s.events.Publish(ctx, event.StockUpdated, product.ID, actor.eventActor(),
		fmt.Sprintf("%s created product '%s'", actor.Name, product.Name),
		map[string]interface{}{"action": "product_created", "product": product})

	return product, nil
}

func (s *catalogService) UpdateProduct(ctx context.Context, actor Actor, id string, req *ProductRequest) (*model.Product, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	req.SKU = strings.ToUpper(strings.TrimSpace(req.SKU))
	req.Name = strings.TrimSpace(req.Name)
	if err := validator.Validate(req); err != nil {
		return nil, err
	}

	taken, err := s.skuTaken(req.SKU, id)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrDuplicateSKU
	}

	var updated model.Product
	var oldStock int

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := s.productRepo.FindForUpdate(tx, []string{id})
		if err != nil {
			return err
		}
		if len(locked) == 0 {
			return ErrProductNotFound
		}
		existing := locked[0]
		oldStock = existing.Stock

		existing.SKU = req.SKU
		existing.Name = req.Name
		existing.Price = req.Price
		if req.Stock != nil {
			existing.Stock = *req.Stock
		}
		existing.UpdatedBy = actor.ID

		if err := s.productRepo.Update(tx, &existing); err != nil {
			return err
		}
		updated = existing

		if delta := existing.Stock - oldStock; delta != 0 {
			movement := model.StockMovement{
				ProductID:  existing.ID,
				Type:       model.MovementAdjust,
				Quantity:   delta,
				StockAfter: existing.Stock,
				Note:       "manual adjustment",
			}
			movement.CreatedBy = actor.ID
			return s.movements.Create(tx, []model.StockMovement{movement})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("product updated",
		zap.String("product_id", id),
		zap.Int("old_stock", oldStock),
		zap.Int("new_stock", updated.Stock))
	s.events.Publish(ctx, event.StockUpdated, id, actor.eventActor(),
		fmt.Sprintf("%s updated product '%s'", actor.Name, updated.Name),
		map[string]interface{}{
			"action":    "product_updated",
			"product":   updated,
			"old_stock": oldStock,
			"new_stock": updated.Stock,
		})

	return &updated, nil
}

func (s *catalogService) DeleteProduct(ctx context.Context, actor Actor, id string) error {
	if !actor.IsAdmin() {
		return ErrForbidden
	}
	if err := s.productRepo.Delete(id, actor.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProductNotFound
		}
		return err
	}

	s.logger.Info("product deleted", zap.String("product_id", id), zap.String("actor", actor.ID))
	s.events.Publish(ctx, event.StockUpdated, id, actor.eventActor(), "",
		map[string]interface{}{"action": "product_deleted", "product_id": id})
	return nil
}

func (s *catalogService) StockHistory(ctx context.Context, id string, limit int) ([]model.StockMovement, error) {
	if _, err := s.GetProduct(ctx, id); err != nil {
		return nil, err
	}
	return s.movements.FindByProduct(id, limit)
}
