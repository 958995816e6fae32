package handler

import (
	"baburchi-admin/internal/middleware"
	"baburchi-admin/internal/model"
	"baburchi-admin/internal/service"
	"baburchi-admin/internal/ws"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

// Handlers groups everything Register mounts
type Handlers struct {
	Auth      *AuthHandler
	Orders    *OrderHandler
	Webhook   *WebhookHandler
	Products  *ProductHandler
	Leads     *LeadHandler
	Users     *UserHandler
	Settings  *SettingsHandler
	Dashboard *DashboardHandler
	Snapshots *SnapshotHandler
}

// Register mounts the REST API under /api/v1 and the live event socket under /ws.
// hub may be nil, in which case /ws is not served.
func Register(app *fiber.App, h Handlers, authService service.AuthService, hub *ws.Hub) {
	api := app.Group("/api/v1")
	requireAuth := middleware.RequireAuth(authService)

	// ============ PUBLIC ROUTES ============
	auth := api.Group("/auth")
	auth.Post("/login", h.Auth.Login)
	auth.Post("/me", h.Auth.Me)
	auth.Post("/reset-password", h.Auth.ResetPassword)
	auth.Post("/heartbeat", requireAuth, h.Auth.Heartbeat)
	auth.Post("/logout", requireAuth, h.Auth.Logout)

	api.Post("/courier/webhook", h.Webhook.Courier)

	// ============ PROTECTED ROUTES ============
	protected := api.Group("", requireAuth)

	protected.Get("/dashboard/stats", middleware.RequirePrivilege(model.PrivDashboardView), h.Dashboard.GetDashboardStats)
	protected.Get("/dashboard/stock-movement", middleware.RequirePrivilege(model.PrivDashboardView), h.Dashboard.GetStockMovement)

	protected.Get("/products", middleware.RequirePrivilege(model.PrivProductView), h.Products.GetProducts)
	protected.Get("/products/:id", middleware.RequirePrivilege(model.PrivProductView), h.Products.GetProduct)
	protected.Get("/products/:id/movements", middleware.RequirePrivilege(model.PrivProductManage), h.Products.StockHistory)
	protected.Post("/products", middleware.RequirePrivilege(model.PrivProductManage), h.Products.CreateProduct)
	protected.Put("/products/:id", middleware.RequirePrivilege(model.PrivProductManage), h.Products.UpdateProduct)
	protected.Delete("/products/:id", middleware.RequirePrivilege(model.PrivProductManage), h.Products.DeleteProduct)

	protected.Get("/orders", middleware.RequirePrivilege(model.PrivOrderView), h.Orders.ListOrders)
	protected.Post("/orders", middleware.RequirePrivilege(model.PrivOrderCreate), h.Orders.CreateOrder)
	protected.Get("/orders/:id", middleware.RequirePrivilege(model.PrivOrderView), h.Orders.GetOrder)
	protected.Get("/orders/:id/invoice", middleware.RequirePrivilege(model.PrivOrderView), h.Orders.Invoice)
	protected.Patch("/orders/:id/status", middleware.RequirePrivilege(model.PrivOrderUpdate), h.Orders.UpdateStatus)
	protected.Post("/orders/:id/sync", middleware.RequireAnyPrivilege(model.PrivOrderSync, model.PrivOrderUpdate), h.Orders.SyncCourier)

	protected.Get("/leads", middleware.RequirePrivilege(model.PrivLeadView), h.Leads.GetLeads)
	protected.Post("/leads", middleware.RequirePrivilege(model.PrivLeadManage), h.Leads.AssignLeads)
	protected.Post("/leads/reassign", middleware.RequirePrivilege(model.PrivLeadManage), h.Leads.Reassign)
	protected.Patch("/leads/:id/status", middleware.RequirePrivilege(model.PrivLeadUpdate), h.Leads.UpdateStatus)
	protected.Delete("/leads/:id", middleware.RequirePrivilege(model.PrivLeadManage), h.Leads.DeleteLead)

	protected.Get("/moderators", h.Users.GetModerators)
	protected.Post("/moderators", middleware.RequirePrivilege(model.PrivModeratorManage), h.Users.AddModerator)
	protected.Get("/users/:id", h.Users.GetUser)

	protected.Get("/settings/courier", middleware.RequirePrivilege(model.PrivSettingsManage), h.Settings.GetCourierConfig)
	protected.Put("/settings/courier", middleware.RequirePrivilege(model.PrivSettingsManage), h.Settings.UpdateCourierConfig)
	protected.Get("/settings/logo", h.Settings.GetLogo)
	protected.Put("/settings/logo", middleware.RequirePrivilege(model.PrivSettingsManage), h.Settings.UpdateLogo)
	protected.Delete("/settings/logo", middleware.RequirePrivilege(model.PrivSettingsManage), h.Settings.RemoveLogo)

	protected.Get("/snapshot", middleware.RequirePrivilege(model.PrivSnapshotManage), h.Snapshots.Export)
	protected.Post("/snapshot", middleware.RequirePrivilege(model.PrivSnapshotManage), h.Snapshots.Import)

	if hub == nil {
		return
	}

	// WebSocket Route
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	}, requireAuth)
	app.Get("/ws", websocket.New(func(c *websocket.Conn) {
		if !hub.Join(c) {
			return
		}
		defer hub.Leave(c)

		for {
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
	}))
}
