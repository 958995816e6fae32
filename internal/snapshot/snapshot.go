package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"baburchi-admin/internal/model"
	"baburchi-admin/internal/repository"
)

// ImportHook runs after a successful import with the moderators whose data changed
type ImportHook func(ctx context.Context, moderatorIDs []string)

// Summary counts what an import wrote
type Summary struct {
	Products   int  `json:"products"`
	Moderators int  `json:"moderators"`
	Orders     int  `json:"orders"`
	Leads      int  `json:"leads"`
	Courier    bool `json:"courier_config"`
	Logo       bool `json:"brand_logo"`
}

type Repositories struct {
	Products repository.ProductRepository
	Orders   repository.OrderRepository
	Leads    repository.LeadRepository
	Users    repository.UserRepository
	Settings repository.SettingRepository
}

// Service moves whole datasets in and out of the database
type Service struct {
	db              *gorm.DB
	repos           Repositories
	defaultPassword string
	hook            ImportHook
	logger          *zap.Logger
}

func NewService(db *gorm.DB, repos Repositories, defaultPassword string, hook ImportHook, logger *zap.Logger) *Service {
	return &Service{
		db:              db,
		repos:           repos,
		defaultPassword: defaultPassword,
		hook:            hook,
		logger:          logger.Named("snapshot"),
	}
}

// Export reads every collection. session, when non-nil, fills the session key.
func (s *Service) Export(ctx context.Context, session *model.User) (*Document, error) {
	doc := &Document{
		Moderators: []UserRecord{},
		Orders:     []OrderRecord{},
		Products:   []ProductRecord{},
		Leads:      []LeadRecord{},
	}
	if session != nil {
		doc.Session = userRecord(*session)
	}

	products, err := s.repos.Products.FindAll()
	if err != nil {
		return nil, err
	}
	for _, p := range products {
		stock := p.Stock
		doc.Products = append(doc.Products, ProductRecord{
			ID: p.ID, SKU: p.SKU, Name: p.Name, Price: float64(p.Price), Stock: &stock,
		})
	}

	moderators, err := s.repos.Users.FindByRole(model.RoleModerator)
	if err != nil {
		return nil, err
	}
	for _, u := range moderators {
		doc.Moderators = append(doc.Moderators, *userRecord(u))
	}

	orders, err := s.repos.Orders.List(repository.OrderFilter{})
	if err != nil {
		return nil, err
	}
	// the browser kept orders oldest first
	for i := len(orders) - 1; i >= 0; i-- {
		doc.Orders = append(doc.Orders, orderRecord(orders[i]))
	}

	leads, err := s.repos.Leads.FindAll()
	if err != nil {
		return nil, err
	}
	for _, l := range leads {
		doc.Leads = append(doc.Leads, LeadRecord{
			ID:            l.ID,
			ModeratorID:   l.ModeratorID,
			AssignedDate:  l.AssignedDate,
			Status:        string(l.Status),
			CustomerName:  l.CustomerName,
			CustomerPhone: l.CustomerPhone,
			Note:          l.Note,
		})
	}

	cfg := model.DefaultCourierConfig()
	if setting, err := s.repos.Settings.Get(model.SettingCourierConfig); err == nil {
		if err := json.Unmarshal([]byte(setting.Value), &cfg); err != nil {
			return nil, fmt.Errorf("corrupt courier config: %w", err)
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	doc.CourierConfig = &CourierConfigRecord{
		APIKey:          cfg.APIKey,
		SecretKey:       cfg.SecretKey,
		BaseURL:         cfg.BaseURL,
		WebhookURL:      cfg.WebhookURL,
		AccountEmail:    cfg.AccountEmail,
		AccountPassword: cfg.AccountPassword,
	}

	if setting, err := s.repos.Settings.Get(model.SettingBrandLogo); err == nil {
		doc.BrandLogo = setting.Value
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	return doc, nil
}

func userRecord(u model.User) *UserRecord {
	return &UserRecord{ID: u.ID, Name: u.Name, Email: u.Email, Role: string(u.Role)}
}

func orderRecord(o model.Order) OrderRecord {
	rec := OrderRecord{
		ID:              o.ID,
		ModeratorID:     o.ModeratorID,
		CustomerName:    o.CustomerName,
		CustomerPhone:   o.CustomerPhone,
		CustomerAddress: o.CustomerAddress,
		Items:           make([]OrderItemRecord, 0, len(o.Items)),
		TotalAmount:     float64(o.TotalAmount),
		Status:          string(o.Status),
		CreatedAt:       o.CreatedAt.UTC().Format(time.RFC3339Nano),
		Notes:           o.Notes,
		SteadfastID:     o.SteadfastID,
		CourierStatus:   o.CourierStatus,
	}
	for _, item := range o.Items {
		rec.Items = append(rec.Items, OrderItemRecord{
			ID:        item.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     float64(item.Price),
		})
	}
	return rec
}

// Import upserts every collection present in doc in one transaction. The session key is ignored.
func (s *Service) Import(ctx context.Context, doc *Document, actorID string) (*Summary, error) {
	return s.importDocument(ctx, doc, nil, actorID)
}

func (s *Service) importDocument(ctx context.Context, doc *Document, extraUsers []model.User, actorID string) (*Summary, error) {
	products, err := toProducts(doc.Products, actorID)
	if err != nil {
		return nil, err
	}
	users, err := s.toUsers(doc.Moderators, actorID)
	if err != nil {
		return nil, err
	}
	users = append(extraUsers, users...)

	names := make(map[string]string, len(products))
	for _, p := range products {
		names[p.ID] = p.Name
	}
	if existing, err := s.repos.Products.FindAll(); err == nil {
		for _, p := range existing {
			if _, ok := names[p.ID]; !ok {
				names[p.ID] = p.Name
			}
		}
	}

	orders, err := toOrders(doc.Orders, names, actorID)
	if err != nil {
		return nil, err
	}
	leads, err := toLeads(doc.Leads, actorID)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		Products:   len(products),
		Moderators: len(doc.Moderators),
		Orders:     len(orders),
		Leads:      len(leads),
		Courier:    doc.CourierConfig != nil,
		Logo:       doc.BrandLogo != "",
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repos.Products.Upsert(tx, products); err != nil {
			return fmt.Errorf("products: %w", err)
		}
		if err := s.repos.Users.Upsert(tx, users); err != nil {
			return fmt.Errorf("moderators: %w", err)
		}
		if err := s.repos.Orders.Upsert(tx, orders); err != nil {
			return fmt.Errorf("orders: %w", err)
		}
		if err := s.repos.Leads.Upsert(tx, leads); err != nil {
			return fmt.Errorf("leads: %w", err)
		}
		if doc.CourierConfig != nil {
			raw, err := json.Marshal(courierConfig(*doc.CourierConfig))
			if err != nil {
				return err
			}
			if err := s.repos.Settings.Put(tx, model.SettingCourierConfig, string(raw), actorID); err != nil {
				return fmt.Errorf("courier config: %w", err)
			}
		}
		if doc.BrandLogo != "" {
			if err := s.repos.Settings.Put(tx, model.SettingBrandLogo, doc.BrandLogo, actorID); err != nil {
				return fmt.Errorf("brand logo: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("snapshot imported",
		zap.Int("products", summary.Products),
		zap.Int("moderators", summary.Moderators),
		zap.Int("orders", summary.Orders),
		zap.Int("leads", summary.Leads))

	if s.hook != nil {
		affected := make(map[string]bool)
		for _, o := range orders {
			affected[o.ModeratorID] = true
		}
		for _, l := range leads {
			affected[l.ModeratorID] = true
		}
		ids := make([]string, 0, len(affected))
		for id := range affected {
			ids = append(ids, id)
		}
		s.hook(ctx, ids)
	}
	return summary, nil
}

func toProducts(records []ProductRecord, actorID string) ([]model.Product, error) {
	out := make([]model.Product, 0, len(records))
	for i, r := range records {
		if r.ID == "" || r.SKU == "" {
			return nil, fmt.Errorf("%w: product %d has no id or sku", ErrInvalidDocument, i)
		}
		stock := model.DefaultStock
		if r.Stock != nil {
			stock = *r.Stock
		}
		if stock < 0 {
			stock = 0
		}
		p := model.Product{SKU: r.SKU, Name: r.Name, Price: int64(math.Round(r.Price)), Stock: stock}
		p.ID = r.ID
		p.CreatedBy = actorID
		p.UpdatedBy = actorID
		out = append(out, p)
	}
	return out, nil
}

func (s *Service) toUsers(records []UserRecord, actorID string) ([]model.User, error) {
	var hash string
	out := make([]model.User, 0, len(records))
	for i, r := range records {
		if r.ID == "" || r.Email == "" {
			return nil, fmt.Errorf("%w: moderator %d has no id or email", ErrInvalidDocument, i)
		}
		role := model.Role(strings.ToUpper(r.Role))
		if !role.IsValid() {
			role = model.RoleModerator
		}
		u := model.User{
			Email:    strings.ToLower(strings.TrimSpace(r.Email)),
			Name:     r.Name,
			Role:     role,
			IsActive: true,
		}
		u.ID = r.ID
		u.CreatedBy = actorID
		u.UpdatedBy = actorID

		// one hash serves every new account; existing accounts keep theirs on conflict
		if hash == "" {
			if err := u.SetPassword(s.defaultPassword); err != nil {
				return nil, err
			}
			hash = u.Password
		}
		u.Password = hash
		out = append(out, u)
	}
	return out, nil
}

func toOrders(records []OrderRecord, productNames map[string]string, actorID string) ([]model.Order, error) {
	out := make([]model.Order, 0, len(records))
	for i, r := range records {
		if r.ID == "" {
			return nil, fmt.Errorf("%w: order %d has no id", ErrInvalidDocument, i)
		}
		status := model.OrderStatus(strings.ToUpper(r.Status))
		if !status.IsValid() {
			return nil, fmt.Errorf("%w: order %s has unknown status %q", ErrInvalidDocument, r.ID, r.Status)
		}

		o := model.Order{
			ModeratorID:      r.ModeratorID,
			CustomerName:     r.CustomerName,
			CustomerPhone:    r.CustomerPhone,
			CustomerAddress:  r.CustomerAddress,
			Status:           status,
			Notes:            r.Notes,
			CourierStatus:    r.CourierStatus,
			CourierSyncState: model.SyncUnsynced,
		}
		o.ID = r.ID
		o.CreatedBy = actorID
		o.UpdatedBy = actorID
		if r.SteadfastID != nil && *r.SteadfastID != "" {
			o.SteadfastID = r.SteadfastID
			o.CourierSyncState = model.SyncSynced
		}
		if r.CreatedAt != "" {
			created, err := time.Parse(time.RFC3339Nano, r.CreatedAt)
			if err != nil {
				return nil, fmt.Errorf("%w: order %s has bad createdAt: %v", ErrInvalidDocument, r.ID, err)
			}
			o.CreatedAt = created
		}

		for pos, item := range r.Items {
			id := item.ID
			if !strings.HasPrefix(id, r.ID+"/") {
				// browser item ids are only unique within their order
				id = r.ID + "/" + id
			}
			o.Items = append(o.Items, model.OrderItem{
				ID:          id,
				Position:    pos,
				ProductID:   item.ProductID,
				ProductName: productNames[item.ProductID],
				Quantity:    item.Quantity,
				Price:       int64(math.Round(item.Price)),
			})
		}
		o.TotalAmount = o.ComputeTotal()
		out = append(out, o)
	}
	return out, nil
}

func toLeads(records []LeadRecord, actorID string) ([]model.Lead, error) {
	out := make([]model.Lead, 0, len(records))
	for i, r := range records {
		if r.ID == "" || r.ModeratorID == "" {
			return nil, fmt.Errorf("%w: lead %d has no id or moderator", ErrInvalidDocument, i)
		}
		status := model.LeadStatus(r.Status)
		if !status.IsValid() {
			status = model.LeadNew
		}
		l := model.Lead{
			ModeratorID:   r.ModeratorID,
			AssignedDate:  r.AssignedDate,
			Status:        status,
			CustomerName:  r.CustomerName,
			CustomerPhone: r.CustomerPhone,
			Note:          r.Note,
		}
		l.ID = r.ID
		l.CreatedBy = actorID
		l.UpdatedBy = actorID
		out = append(out, l)
	}
	return out, nil
}

func courierConfig(r CourierConfigRecord) model.CourierConfig {
	cfg := model.CourierConfig{
		APIKey:          r.APIKey,
		SecretKey:       r.SecretKey,
		BaseURL:         strings.TrimRight(r.BaseURL, "/"),
		WebhookURL:      r.WebhookURL,
		AccountEmail:    r.AccountEmail,
		AccountPassword: r.AccountPassword,
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = model.DefaultCourierBaseURL
	}
	return cfg
}
