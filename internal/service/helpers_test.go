package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"

	"baburchi-admin/internal/cache"
	"baburchi-admin/internal/courier"
	"baburchi-admin/internal/event"
	"baburchi-admin/internal/model"
	"baburchi-admin/internal/repository"
	"baburchi-admin/internal/storage"
	"baburchi-admin/internal/testutil"
)

var (
	admin = Actor{ID: "a1", Name: "System Admin", Email: "admin@test.com", Role: model.RoleAdmin}
	rahim = Actor{ID: "m1", Name: "Rahim Ahmed", Email: "rahim@test.com", Role: model.RoleModerator}
	sumit = Actor{ID: "m2", Name: "Sumit Das", Email: "sumit@test.com", Role: model.RoleModerator}
)

type recordedEvent struct {
	Type    string
	Key     string
	Payload interface{}
}

type recorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *recorder) Publish(_ context.Context, eventType, key string, _ *event.Actor, _ string, payload interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{Type: eventType, Key: key, Payload: payload})
}

func (r *recorder) count(eventType string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Type == eventType {
			n++
		}
	}
	return n
}

type fakeCourier struct {
	mu      sync.Mutex
	calls   int
	err     error
	lastReq courier.ConsignmentRequest
	entered chan struct{}
	release chan struct{}
}

func (f *fakeCourier) CreateConsignment(_ context.Context, _ model.CourierConfig, req courier.ConsignmentRequest) (*courier.Consignment, error) {
	f.mu.Lock()
	f.calls++
	n := f.calls
	f.lastReq = req
	err := f.err
	f.mu.Unlock()

	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}
	if err != nil {
		return nil, err
	}
	return &courier.Consignment{
		ConsignmentID: fmt.Sprintf("%d", 1000+n),
		TrackingCode:  fmt.Sprintf("TRK%d", n),
		Status:        "in_review",
	}, nil
}

func (f *fakeCourier) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fixture struct {
	db        *gorm.DB
	cache     *cache.MemoryStore
	events    *recorder
	courier   *fakeCourier
	orders    OrderService
	leads     LeadService
	catalog   CatalogService
	settings  SettingsService
	dashboard DashboardService
	users     UserService
	auth      AuthService

	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	leadRepo    repository.LeadRepository
}

func newFixture(t *testing.T, opts OrderOptions) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	logger := zaptest.NewLogger(t)

	testutil.SeedUser(t, db, "a1", "System Admin", "admin@test.com", model.RoleAdmin)
	testutil.SeedUser(t, db, "m1", "Rahim Ahmed", "rahim@test.com", model.RoleModerator)
	testutil.SeedUser(t, db, "m2", "Sumit Das", "sumit@test.com", model.RoleModerator)
	testutil.SeedProduct(t, db, "p1", "CHILI-500", "Chili Powder 500g", 550, 10)
	testutil.SeedProduct(t, db, "p2", "TURMERIC-200", "Turmeric Powder 200g", 300, 5)

	f := &fixture{
		db:          db,
		cache:       cache.NewMemoryStore(),
		events:      &recorder{},
		courier:     &fakeCourier{},
		orderRepo:   repository.NewOrderRepo(db),
		productRepo: repository.NewProductRepo(db),
		leadRepo:    repository.NewLeadRepo(db),
	}
	userRepo := repository.NewUserRepo(db)
	movements := repository.NewStockMovementRepo(db)

	f.settings = NewSettingsService(repository.NewSettingRepo(db), storage.InlineStore{}, f.events, logger)
	f.orders = NewOrderService(OrderServiceDeps{
		DB:        db,
		Orders:    f.orderRepo,
		Products:  f.productRepo,
		Movements: movements,
		Courier:   f.courier,
		Settings:  f.settings,
		Cache:     f.cache,
		Events:    f.events,
		Logger:    logger,
	}, opts)
	f.leads = NewLeadService(db, f.leadRepo, userRepo, f.cache, f.events, logger)
	f.catalog = NewCatalogService(db, f.productRepo, movements, f.events, logger)
	f.dashboard = NewDashboardService(f.orderRepo, f.leadRepo, movements, f.cache, 0, logger)
	f.users = NewUserService(userRepo, f.events, "password", logger)
	f.auth = NewAuthService(userRepo, f.events, 0, logger)
	return f
}

func (f *fixture) configureCourier(t *testing.T) {
	t.Helper()
	_, err := f.settings.UpdateCourierConfig(context.Background(), admin, model.CourierConfig{
		APIKey:    "api-key",
		SecretKey: "secret-key",
		BaseURL:   "https://courier.test/api/v1",
	})
	if err != nil {
		t.Fatalf("configure courier: %v", err)
	}
}

func (f *fixture) stock(t *testing.T, id string) int {
	t.Helper()
	p, err := f.productRepo.FindByID(id)
	if err != nil {
		t.Fatalf("load product %s: %v", id, err)
	}
	return p.Stock
}

func cart(lines ...CartLine) *CreateOrderRequest {
	return &CreateOrderRequest{
		CustomerName:    "Karim Uddin",
		CustomerPhone:   "01712345678",
		CustomerAddress: "House 12, Road 4, Dhanmondi, Dhaka",
		Items:           lines,
	}
}
