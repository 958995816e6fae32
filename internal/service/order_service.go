package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"baburchi-admin/internal/cache"
	"baburchi-admin/internal/courier"
	"baburchi-admin/internal/event"
	"baburchi-admin/internal/model"
	"baburchi-admin/internal/repository"
	"baburchi-admin/pkg/validator"
)

const webhookDedupeTTL = 24 * time.Hour

type OrderService interface {
	CreateOrder(ctx context.Context, actor Actor, req *CreateOrderRequest) (*CreateOrderResult, error)
	UpdateStatus(ctx context.Context, actor Actor, id string, status model.OrderStatus, courierData *CourierUpdate) (*model.Order, error)
	SyncCourier(ctx context.Context, actor Actor, id string) (*model.Order, error)
	HandleCourierWebhook(ctx context.Context, token string, payload courier.WebhookPayload) (*model.Order, error)
	GetOrder(ctx context.Context, actor Actor, id string) (*model.Order, error)
	ListOrders(ctx context.Context, actor Actor, query OrderQuery) ([]model.Order, error)
}

// CourierConfigProvider returns the current Steadfast account settings
type CourierConfigProvider interface {
	CourierConfig(ctx context.Context) (model.CourierConfig, error)
}

type CartLine struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity"`
}

type CreateOrderRequest struct {
	CustomerName    string     `json:"customer_name" validate:"required,max=255"`
	CustomerPhone   string     `json:"customer_phone" validate:"required,bd_phone"`
	CustomerAddress string     `json:"customer_address" validate:"required"`
	Notes           string     `json:"notes"`
	Items           []CartLine `json:"items" validate:"dive"`
}

// QuantityAdjustment reports a cart line that was reduced to the available stock
type QuantityAdjustment struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Requested   int    `json:"requested"`
	Granted     int    `json:"granted"`
}

func (a QuantityAdjustment) Message() string {
	return fmt.Sprintf("Only %d units of %s available", a.Granted, a.ProductName)
}

type CreateOrderResult struct {
	Order       *model.Order         `json:"order"`
	Adjustments []QuantityAdjustment `json:"adjustments,omitempty"`
}

// CourierUpdate carries the consignment assigned by the courier
type CourierUpdate struct {
	ConsignmentID string `json:"consignment_id" validate:"required"`
	Status        string `json:"status"`
	TrackingCode  string `json:"tracking_code"`
}

// OrderQuery filters ListOrders. From and To are calendar days, both inclusive.
type OrderQuery struct {
	Search string
	From   *time.Time
	To     *time.Time
	Status model.OrderStatus
}

type OrderOptions struct {
	RestockOnCancel bool
	SyncStaleAfter  time.Duration
}

type OrderServiceDeps struct {
	DB        *gorm.DB
	Orders    repository.OrderRepository
	Products  repository.ProductRepository
	Movements repository.StockMovementRepository
	Courier   courier.Client
	Settings  CourierConfigProvider
	Cache     cache.Store
	Events    event.Publisher
	Logger    *zap.Logger
}

type orderService struct {
	db          *gorm.DB
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	movements   repository.StockMovementRepository
	courier     courier.Client
	settings    CourierConfigProvider
	cache       cache.Store
	events      event.Publisher
	logger      *zap.Logger
	opts        OrderOptions
	now         func() time.Time
}

func NewOrderService(deps OrderServiceDeps, opts OrderOptions) OrderService {
	if opts.SyncStaleAfter <= 0 {
		opts.SyncStaleAfter = 10 * time.Minute
	}
	return &orderService{
		db:          deps.DB,
		orderRepo:   deps.Orders,
		productRepo: deps.Products,
		movements:   deps.Movements,
		courier:     deps.Courier,
		settings:    deps.Settings,
		cache:       deps.Cache,
		events:      deps.Events,
		logger:      deps.Logger.Named("orders"),
		opts:        opts,
		now:         time.Now,
	}
}

func newOrderID() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "ORD-" + strings.ToUpper(hex[:12])
}

// clampQuantity limits a requested quantity to [1, available]
func clampQuantity(requested, available int) int {
	if requested < 1 {
		requested = 1
	}
	if requested > available {
		return available
	}
	return requested
}

func (s *orderService) CreateOrder(ctx context.Context, actor Actor, req *CreateOrderRequest) (*CreateOrderResult, error) {
	if len(req.Items) == 0 {
		return nil, ErrNoItems
	}
	req.CustomerName = strings.TrimSpace(req.CustomerName)
	req.CustomerPhone = strings.TrimSpace(req.CustomerPhone)
	req.CustomerAddress = strings.TrimSpace(req.CustomerAddress)
	if err := validator.Validate(req); err != nil {
		return nil, err
	}

	order := &model.Order{
		ModeratorID:      actor.ID,
		CustomerName:     req.CustomerName,
		CustomerPhone:    req.CustomerPhone,
		CustomerAddress:  req.CustomerAddress,
		Notes:            strings.TrimSpace(req.Notes),
		Status:           model.OrderPending,
		CourierSyncState: model.SyncUnsynced,
	}
	order.ID = newOrderID()
	order.CreatedBy = actor.ID
	order.UpdatedBy = actor.ID

	var adjustments []QuantityAdjustment
	var touched []model.Product

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []string
		seen := make(map[string]bool)
		for _, line := range req.Items {
			if !seen[line.ProductID] {
				seen[line.ProductID] = true
				ids = append(ids, line.ProductID)
			}
		}

		products, err := s.productRepo.FindForUpdate(tx, ids)
		if err != nil {
			return err
		}
		byID := make(map[string]model.Product, len(products))
		remaining := make(map[string]int, len(products))
		for _, p := range products {
			byID[p.ID] = p
			remaining[p.ID] = p.Stock
		}

		for i, line := range req.Items {
			product, ok := byID[line.ProductID]
			if !ok {
				return fmt.Errorf("%w: %s", ErrProductNotFound, line.ProductID)
			}
			available := remaining[product.ID]
			if available <= 0 {
				return fmt.Errorf("%w: %s", ErrOutOfStock, product.Name)
			}
			qty := clampQuantity(line.Quantity, available)
			if qty != line.Quantity {
				adjustments = append(adjustments, QuantityAdjustment{
					ProductID:   product.ID,
					ProductName: product.Name,
					Requested:   line.Quantity,
					Granted:     qty,
				})
			}
			remaining[product.ID] = available - qty

			order.Items = append(order.Items, model.OrderItem{
				ID:          "oi-" + uuid.NewString(),
				Position:    i,
				ProductID:   product.ID,
				ProductName: product.Name,
				Quantity:    qty,
				Price:       product.Price,
			})
		}
		order.TotalAmount = order.ComputeTotal()

		if err := s.orderRepo.Create(tx, order); err != nil {
			return err
		}

		orderID := order.ID
		movements := make([]model.StockMovement, 0, len(ids))
		for _, id := range ids {
			product := byID[id]
			newStock := remaining[id]
			if newStock < 0 {
				newStock = 0
			}
			if err := s.productRepo.UpdateStock(tx, id, newStock, actor.ID); err != nil {
				return err
			}
			movement := model.StockMovement{
				ProductID:  id,
				Type:       model.MovementOut,
				Quantity:   product.Stock - newStock,
				StockAfter: newStock,
				OrderID:    &orderID,
				Note:       "order " + orderID,
			}
			movement.CreatedBy = actor.ID
			movements = append(movements, movement)

			product.Stock = newStock
			touched = append(touched, product)
		}
		return s.movements.Create(tx, movements)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order created",
		zap.String("order_id", order.ID),
		zap.String("moderator_id", actor.ID),
		zap.Int64("total", order.TotalAmount),
		zap.Int("adjustments", len(adjustments)))

	s.events.Publish(ctx, event.OrderCreated, order.ID, actor.eventActor(),
		fmt.Sprintf("%s created order %s", actor.Name, order.ID),
		map[string]interface{}{"order": order})
	for _, p := range touched {
		s.events.Publish(ctx, event.StockUpdated, p.ID, actor.eventActor(), "",
			map[string]interface{}{"product_id": p.ID, "stock": p.Stock})
	}
	InvalidateDashboard(ctx, s.cache, s.logger, order.ModeratorID)

	return &CreateOrderResult{Order: order, Adjustments: adjustments}, nil
}

func (s *orderService) UpdateStatus(ctx context.Context, actor Actor, id string, status model.OrderStatus, courierData *CourierUpdate) (*model.Order, error) {
	if courierData != nil {
		if !actor.IsAdmin() {
			return nil, ErrForbidden
		}
		if err := validator.Validate(courierData); err != nil {
			return nil, err
		}
	}
	return s.changeStatus(ctx, actor, id, status, statusChange{courier: courierData})
}

// statusChange holds the optional courier side of a status update
type statusChange struct {
	courier       *CourierUpdate
	courierStatus string
	// viaCourier lets a courier callback pass through CONFIRMED on its way to the target status
	viaCourier bool
}

func (c statusChange) allows(from, to model.OrderStatus) bool {
	if from.CanTransitionTo(to) {
		return true
	}
	return c.viaCourier && from.CanTransitionTo(model.OrderConfirmed) && model.OrderConfirmed.CanTransitionTo(to)
}

func (s *orderService) changeStatus(ctx context.Context, actor Actor, id string, status model.OrderStatus, change statusChange) (*model.Order, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: unknown order status %q", validator.ErrValidation, status)
	}

	var previous model.OrderStatus
	var updated *model.Order
	var restocked []model.Product

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := s.orderRepo.FindForUpdate(tx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return err
		}
		if !actor.IsAdmin() && order.ModeratorID != actor.ID {
			return ErrForbidden
		}
		if !change.allows(order.Status, status) {
			return &TransitionError{From: order.Status, To: status}
		}
		previous = order.Status

		fields := map[string]interface{}{"updated_by": actor.ID}
		if status != order.Status {
			fields["status"] = status
		}
		if change.courier != nil {
			if order.IsSynced() {
				return ErrCourierAlreadySynced
			}
			fields["steadfast_id"] = change.courier.ConsignmentID
			fields["courier_status"] = change.courier.Status
			if change.courier.TrackingCode != "" {
				fields["tracking_code"] = change.courier.TrackingCode
			}
			fields["courier_sync_state"] = model.SyncSynced
			fields["courier_sync_started_at"] = nil
		}
		if change.courierStatus != "" {
			fields["courier_status"] = change.courierStatus
		}

		if s.opts.RestockOnCancel && status == model.OrderCancelled && previous != model.OrderCancelled {
			restocked, err = s.restock(tx, actor, order)
			if err != nil {
				return err
			}
		}

		if err := s.orderRepo.Update(tx, id, fields); err != nil {
			return err
		}
		updated, err = s.orderRepo.FindForUpdate(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	if previous != status {
		s.logger.Info("order status changed",
			zap.String("order_id", id),
			zap.String("from", string(previous)),
			zap.String("to", string(status)),
			zap.String("actor", actor.ID))
		s.events.Publish(ctx, event.OrderStatusChanged, id, actor.eventActor(),
			fmt.Sprintf("Order %s is now %s", id, status),
			map[string]interface{}{"order": updated, "previous_status": previous})
	}
	for _, p := range restocked {
		s.events.Publish(ctx, event.StockUpdated, p.ID, actor.eventActor(), "",
			map[string]interface{}{"product_id": p.ID, "stock": p.Stock})
	}
	InvalidateDashboard(ctx, s.cache, s.logger, updated.ModeratorID)

	return updated, nil
}

// restock returns a cancelled order's quantities to the catalog
func (s *orderService) restock(tx *gorm.DB, actor Actor, order *model.Order) ([]model.Product, error) {
	qty := make(map[string]int)
	var ids []string
	for _, item := range order.Items {
		if _, ok := qty[item.ProductID]; !ok {
			ids = append(ids, item.ProductID)
		}
		qty[item.ProductID] += item.Quantity
	}

	products, err := s.productRepo.FindForUpdate(tx, ids)
	if err != nil {
		return nil, err
	}

	orderID := order.ID
	movements := make([]model.StockMovement, 0, len(products))
	for i := range products {
		p := &products[i]
		p.Stock += qty[p.ID]
		if err := s.productRepo.UpdateStock(tx, p.ID, p.Stock, actor.ID); err != nil {
			return nil, err
		}
		movement := model.StockMovement{
			ProductID:  p.ID,
			Type:       model.MovementIn,
			Quantity:   qty[p.ID],
			StockAfter: p.Stock,
			OrderID:    &orderID,
			Note:       "cancelled order " + orderID,
		}
		movement.CreatedBy = actor.ID
		movements = append(movements, movement)
	}
	if len(movements) == 0 {
		return products, nil
	}
	return products, s.movements.Create(tx, movements)
}

func (s *orderService) SyncCourier(ctx context.Context, actor Actor, id string) (*model.Order, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}

	order, err := s.orderRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if order.IsSynced() {
		return nil, ErrCourierAlreadySynced
	}
	if order.Status != model.OrderPending && order.Status != model.OrderConfirmed {
		return nil, &TransitionError{From: order.Status, To: model.OrderConfirmed}
	}

	cfg, err := s.settings.CourierConfig(ctx)
	if err != nil {
		return nil, err
	}
	if !cfg.IsConfigured() {
		return nil, fmt.Errorf("%w: %w", ErrCourierSyncFailed, courier.ErrNotConfigured)
	}

	now := s.now()
	claimed, err := s.orderRepo.ClaimCourierSync(id, now.Add(-s.opts.SyncStaleAfter), now)
	if err != nil {
		return nil, err
	}
	if !claimed {
		current, err := s.orderRepo.FindByID(id)
		if err == nil && current.IsSynced() {
			return nil, ErrCourierAlreadySynced
		}
		return nil, ErrCourierSyncInFlight
	}

	consignment, err := s.courier.CreateConsignment(ctx, cfg, consignmentRequest(order))
	if err != nil {
		if releaseErr := s.orderRepo.ReleaseCourierSync(id); releaseErr != nil {
			s.logger.Error("failed to release courier sync claim", zap.String("order_id", id), zap.Error(releaseErr))
		}
		s.logger.Warn("courier sync failed", zap.String("order_id", id), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrCourierSyncFailed, err)
	}

	updated, err := s.changeStatus(ctx, actor, id, model.OrderConfirmed, statusChange{
		courier: &CourierUpdate{
			ConsignmentID: consignment.ConsignmentID,
			Status:        consignment.Status,
			TrackingCode:  consignment.TrackingCode,
		},
	})
	if err != nil {
		// the consignment exists at the courier; keep the claim so nobody creates a second one
		s.logger.Error("courier consignment created but order update failed",
			zap.String("order_id", id),
			zap.String("consignment_id", consignment.ConsignmentID),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("order synced with courier",
		zap.String("order_id", id),
		zap.String("consignment_id", consignment.ConsignmentID))
	s.events.Publish(ctx, event.OrderCourierSynced, id, actor.eventActor(),
		fmt.Sprintf("Order %s sent to Steadfast", id),
		map[string]interface{}{"order": updated})

	return updated, nil
}

func consignmentRequest(order *model.Order) courier.ConsignmentRequest {
	names := make([]string, 0, len(order.Items))
	for _, item := range order.Items {
		names = append(names, fmt.Sprintf("%s x%d", item.ProductName, item.Quantity))
	}
	return courier.ConsignmentRequest{
		Invoice:          order.ID,
		RecipientName:    order.CustomerName,
		RecipientPhone:   order.CustomerPhone,
		RecipientAddress: order.CustomerAddress,
		CODAmount:        order.TotalAmount,
		Note:             order.Notes,
		ItemDescription:  strings.Join(names, ", "),
	}
}

func (s *orderService) HandleCourierWebhook(ctx context.Context, token string, payload courier.WebhookPayload) (*model.Order, error) {
	cfg, err := s.settings.CourierConfig(ctx)
	if err != nil {
		return nil, err
	}
	if cfg.APIKey == "" || subtle.ConstantTimeCompare([]byte(token), []byte(cfg.APIKey)) != 1 {
		return nil, ErrWebhookUnauthorized
	}

	consignmentID := payload.ConsignmentID.String()
	if consignmentID == "" && payload.Invoice == "" {
		return nil, fmt.Errorf("%w: consignment_id or invoice is required", validator.ErrValidation)
	}

	var order *model.Order
	if consignmentID != "" {
		order, err = s.orderRepo.FindBySteadfastID(consignmentID)
	}
	if order == nil && payload.Invoice != "" {
		order, err = s.orderRepo.FindByID(payload.Invoice)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	dedupeKey := fmt.Sprintf("courier:webhook:%s:%s:%s", order.ID, consignmentID, strings.ToLower(payload.Status))
	fresh, err := s.cache.SetNX(ctx, dedupeKey, []byte("1"), webhookDedupeTTL)
	if err != nil {
		s.logger.Warn("webhook dedupe unavailable", zap.Error(err))
		fresh = true
	}
	if !fresh {
		s.logger.Debug("duplicate courier webhook", zap.String("order_id", order.ID), zap.String("status", payload.Status))
		return order, nil
	}

	next, mapped := courier.MapDeliveryStatus(payload.Status)
	if !mapped {
		next = order.Status
	}

	change := statusChange{courierStatus: payload.Status, viaCourier: true}
	if !order.IsSynced() && consignmentID != "" {
		change.courier = &CourierUpdate{ConsignmentID: consignmentID, Status: payload.Status}
	}

	updated, err := s.changeStatus(ctx, courierActor, order.ID, next, change)
	if err != nil {
		if errors.Is(err, ErrInvalidTransition) && change.courier != nil {
			// keep the consignment even though the status cannot follow
			if _, attachErr := s.changeStatus(ctx, courierActor, order.ID, order.Status, change); attachErr != nil {
				s.logger.Error("failed to attach courier consignment",
					zap.String("order_id", order.ID),
					zap.String("consignment_id", consignmentID),
					zap.Error(attachErr))
			}
		}
		if delErr := s.cache.Delete(ctx, dedupeKey); delErr != nil {
			s.logger.Warn("failed to clear webhook dedupe key", zap.Error(delErr))
		}
		return nil, err
	}
	return updated, nil
}

func (s *orderService) GetOrder(ctx context.Context, actor Actor, id string) (*model.Order, error) {
	order, err := s.orderRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if !actor.IsAdmin() && order.ModeratorID != actor.ID {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

func (s *orderService) ListOrders(ctx context.Context, actor Actor, query OrderQuery) ([]model.Order, error) {
	if query.Status != "" && !query.Status.IsValid() {
		return nil, fmt.Errorf("%w: unknown order status %q", validator.ErrValidation, query.Status)
	}

	filter := repository.OrderFilter{
		Search: strings.TrimSpace(query.Search),
		Status: query.Status,
	}
	if !actor.IsAdmin() {
		filter.ModeratorID = actor.ID
	}
	if query.From != nil {
		from := startOfDay(*query.From)
		filter.From = &from
	}
	if query.To != nil {
		to := startOfDay(*query.To).AddDate(0, 0, 1)
		filter.To = &to
	}
	return s.orderRepo.List(filter)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
