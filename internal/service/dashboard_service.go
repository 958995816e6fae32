package service

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"go.uber.org/zap"

	"baburchi-admin/internal/cache"
	"baburchi-admin/internal/model"
	"baburchi-admin/internal/repository"
)

const dashboardKeyPrefix = "dashboard:stats:"

type DashboardService interface {
	GetStats(ctx context.Context, actor Actor) (*DashboardStats, error)
	GetStockMovement(days int) ([]repository.StockMovementData, error)
}

// DashboardStats are the cards and charts of the dashboard screen
type DashboardStats struct {
	TotalOrders      int64                       `json:"total_orders"`
	Revenue          int64                       `json:"revenue"`
	Confirmed        int64                       `json:"confirmed"`
	Pending          int64                       `json:"pending"`
	Delivered        int64                       `json:"delivered"`
	Cancelled        int64                       `json:"cancelled"`
	ConfirmationRate int64                       `json:"confirmation_rate"`
	Velocity         float64                     `json:"velocity"`
	PendingCalls     int64                       `json:"pending_calls"`
	StatusSplit      map[model.OrderStatus]int64 `json:"status_split"`
	GeneratedAt      time.Time                   `json:"generated_at"`
}

type dashboardService struct {
	orderRepo repository.OrderRepository
	leadRepo  repository.LeadRepository
	movements repository.StockMovementRepository
	cache     cache.Store
	ttl       time.Duration
	logger    *zap.Logger
}

func NewDashboardService(orderRepo repository.OrderRepository, leadRepo repository.LeadRepository, movements repository.StockMovementRepository, store cache.Store, ttl time.Duration, logger *zap.Logger) DashboardService {
	return &dashboardService{
		orderRepo: orderRepo,
		leadRepo:  leadRepo,
		movements: movements,
		cache:     store,
		ttl:       ttl,
		logger:    logger.Named("dashboard"),
	}
}

func dashboardCacheKey(moderatorID string) string {
	if moderatorID == "" {
		return dashboardKeyPrefix + "all"
	}
	return dashboardKeyPrefix + moderatorID
}

// InvalidateDashboard drops the global view and the views of the given moderators
func InvalidateDashboard(ctx context.Context, store cache.Store, logger *zap.Logger, moderatorIDs ...string) {
	keys := []string{dashboardCacheKey("")}
	for _, id := range moderatorIDs {
		if id != "" {
			keys = append(keys, dashboardCacheKey(id))
		}
	}
	if err := store.Delete(ctx, keys...); err != nil {
		logger.Warn("failed to invalidate dashboard cache", zap.Strings("keys", keys), zap.Error(err))
	}
}

func (s *dashboardService) GetStats(ctx context.Context, actor Actor) (*DashboardStats, error) {
	scope := ""
	if !actor.IsAdmin() {
		scope = actor.ID
	}
	key := dashboardCacheKey(scope)

	if raw, ok, err := s.cache.Get(ctx, key); err != nil {
		s.logger.Warn("dashboard cache read failed", zap.Error(err))
	} else if ok {
		var cached DashboardStats
		if err := json.Unmarshal(raw, &cached); err == nil {
			return &cached, nil
		}
	}

	orders, err := s.orderRepo.Stats(scope)
	if err != nil {
		return nil, err
	}
	pendingCalls, err := s.leadRepo.CountByStatus(scope, model.LeadNew)
	if err != nil {
		return nil, err
	}

	stats := buildDashboardStats(orders, pendingCalls)

	if raw, err := json.Marshal(stats); err == nil {
		if err := s.cache.Set(ctx, key, raw, s.ttl); err != nil {
			s.logger.Warn("dashboard cache write failed", zap.Error(err))
		}
	}
	return stats, nil
}

func buildDashboardStats(orders *repository.OrderStats, pendingCalls int64) *DashboardStats {
	confirmed := orders.Confirmed + orders.Delivered
	stats := &DashboardStats{
		TotalOrders:  orders.Total,
		Revenue:      orders.Revenue,
		Confirmed:    confirmed,
		Pending:      orders.Pending,
		Delivered:    orders.Delivered,
		Cancelled:    orders.Cancelled,
		PendingCalls: pendingCalls,
		StatusSplit: map[model.OrderStatus]int64{
			model.OrderPending:   orders.Pending,
			model.OrderConfirmed: orders.Confirmed,
			model.OrderDelivered: orders.Delivered,
			model.OrderCancelled: orders.Cancelled,
		},
		GeneratedAt: time.Now().UTC(),
	}
	if orders.Total > 0 {
		stats.ConfirmationRate = int64(math.Round(float64(confirmed) / float64(orders.Total) * 100))
	}
	if denom := orders.Total + orders.Cancelled; denom > 0 {
		stats.Velocity = math.Round(float64(confirmed)/float64(denom)*10) / 10
	}
	return stats
}

func (s *dashboardService) GetStockMovement(days int) ([]repository.StockMovementData, error) {
	if days <= 0 {
		days = 7
	}
	endDate := time.Now()
	startDate := endDate.AddDate(0, 0, -days)

	return s.movements.GetStockMovement(startDate, endDate)
}
