package snapshot

import (
	"context"
	"time"

	"go.uber.org/zap"

	"baburchi-admin/internal/model"
)

// Admin account created on first start
const (
	AdminID    = "a1"
	AdminName  = "System Admin"
	AdminEmail = "admin@test.com"
)

// InitialDocument is the catalogue, team and demo orders of a fresh install
func InitialDocument(now time.Time) *Document {
	products := []ProductRecord{
		{ID: "p1", SKU: "CHILI-500", Name: "🌶️ মিষ্টি মরিচ (Sweet Chili Powder) - 500g", Price: 550},
		{ID: "p2", SKU: "CHILI-1KG", Name: "🌶️ মিষ্টি মরিচ (Sweet Chili Powder) - 1kg", Price: 950},
		{ID: "p3", SKU: "G-MASALA-200", Name: "👑 শাহী গরম মসলা (Shahi Garam Masala) - 200g", Price: 650},
		{ID: "p4", SKU: "G-MASALA-500", Name: "👑 শাহী গরম মসলা (Shahi Garam Masala) - 500g", Price: 1424},
		{ID: "p5", SKU: "TURM-500", Name: "💛 দেশি হলুদের গুঁড়া (Turmeric Powder) - 500g", Price: 290},
		{ID: "p6", SKU: "CORI-500", Name: "🌿 দেশি ধনিয়া গুঁড়া (Coriander Powder) - 500g", Price: 250},
		{ID: "p7", SKU: "CUMIN-500", Name: "🌾 দেশি জিরা গুঁড়া (Cumin Powder) - 500g", Price: 780},
		{ID: "p8", SKU: "MEZBAN-200", Name: "🍖 মেজবানি মাংসের মসলা (Mezban Masala) - 200g", Price: 680},
		{ID: "p9", SKU: "MEZBAN-500", Name: "🍖 মেজবানি মাংসের মসলা (Mezban Masala) - 500g", Price: 1480},
	}

	moderators := []UserRecord{
		{ID: "m1", Name: "Rahim Ahmed", Email: "rahim@test.com", Role: string(model.RoleModerator)},
		{ID: "m2", Name: "Sumit Das", Email: "sumit@test.com", Role: string(model.RoleModerator)},
	}

	orders := []OrderRecord{
		{
			ID:              "ORD-1021",
			ModeratorID:     "m1",
			CustomerName:    "Karim Ullah",
			CustomerPhone:   "01712345678",
			CustomerAddress: "Mirpur, Dhaka",
			Status:          string(model.OrderPending),
			TotalAmount:     1200,
			CreatedAt:       now.UTC().Format(time.RFC3339Nano),
			Items: []OrderItemRecord{
				{ID: "oi1", ProductID: "p1", Quantity: 1, Price: 550},
				{ID: "oi2", ProductID: "p3", Quantity: 1, Price: 650},
			},
		},
		{
			ID:              "ORD-1022",
			ModeratorID:     "m2",
			CustomerName:    "Jannat Begum",
			CustomerPhone:   "01987654321",
			CustomerAddress: "Uttara, Dhaka",
			Status:          string(model.OrderConfirmed),
			TotalAmount:     1424,
			CreatedAt:       now.Add(-24 * time.Hour).UTC().Format(time.RFC3339Nano),
			Items: []OrderItemRecord{
				{ID: "oi3", ProductID: "p4", Quantity: 1, Price: 1424},
			},
		},
	}

	return &Document{
		Moderators:    moderators,
		Orders:        orders,
		CourierConfig: &CourierConfigRecord{BaseURL: model.DefaultCourierBaseURL},
		Products:      products,
		Leads:         []LeadRecord{},
	}
}

// Seed loads the initial dataset and the admin account when no user exists yet.
// It reports whether anything was written.
func (s *Service) Seed(ctx context.Context) (bool, error) {
	users, err := s.repos.Users.FindAll()
	if err != nil {
		return false, err
	}
	if len(users) > 0 {
		return false, nil
	}

	admin := model.User{
		Email:    AdminEmail,
		Name:     AdminName,
		Role:     model.RoleAdmin,
		IsActive: true,
	}
	admin.ID = AdminID
	admin.CreatedBy = AdminID
	admin.UpdatedBy = AdminID
	if err := admin.SetPassword(s.defaultPassword); err != nil {
		return false, err
	}

	summary, err := s.importDocument(ctx, InitialDocument(time.Now()), []model.User{admin}, AdminID)
	if err != nil {
		return false, err
	}
	s.logger.Info("database seeded",
		zap.String("admin", AdminEmail),
		zap.Int("products", summary.Products),
		zap.Int("orders", summary.Orders))
	return true, nil
}
