package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"baburchi-admin/internal/invoice"
	"baburchi-admin/internal/model"
	"baburchi-admin/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// LogoSource resolves the brand logo printed on invoices
type LogoSource interface {
	GetLogo(ctx context.Context) (string, error)
}

type OrderHandler struct {
	orders    service.OrderService
	invoices  *invoice.Renderer
	logos     LogoSource
	brandName string
	logger    *zap.Logger
}

func NewOrderHandler(orders service.OrderService, invoices *invoice.Renderer, logos LogoSource, brandName string, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		orders:    orders,
		invoices:  invoices,
		logos:     logos,
		brandName: brandName,
		logger:    logger,
	}
}

// CreateOrder places an order from a cart. Clamped quantities come back as adjustments.
// POST /api/v1/orders
func (h *OrderHandler) CreateOrder(c *fiber.Ctx) error {
	var req service.CreateOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}

	result, err := h.orders.CreateOrder(c.UserContext(), currentActor(c), &req)
	if err != nil {
		return writeError(c, h.logger, err)
	}

	messages := make([]string, 0, len(result.Adjustments))
	for _, adj := range result.Adjustments {
		messages = append(messages, adj.Message())
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":     "Order created",
		"data":        result.Order,
		"adjustments": result.Adjustments,
		"warnings":    messages,
	})
}

// ListOrders supports ?search=, ?status= and ?from=/&to= as YYYY-MM-DD
// GET /api/v1/orders
func (h *OrderHandler) ListOrders(c *fiber.Ctx) error {
	query := service.OrderQuery{
		Search: c.Query("search"),
		Status: model.OrderStatus(strings.ToUpper(c.Query("status"))),
	}
	if query.Status != "" && !query.Status.IsValid() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid status filter"})
	}

	var err error
	if query.From, err = parseDay(c.Query("from")); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid 'from' date, use YYYY-MM-DD"})
	}
	if query.To, err = parseDay(c.Query("to")); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid 'to' date, use YYYY-MM-DD"})
	}

	orders, err := h.orders.ListOrders(c.UserContext(), currentActor(c), query)
	if err != nil {
		return writeError(c, h.logger, err)
	}

	return c.JSON(fiber.Map{"data": orders, "count": len(orders)})
}

func parseDay(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	day, err := time.ParseInLocation(model.DateLayout, s, time.Local)
	if err != nil {
		return nil, err
	}
	return &day, nil
}

// GET /api/v1/orders/:id
func (h *OrderHandler) GetOrder(c *fiber.Ctx) error {
	order, err := h.orders.GetOrder(c.UserContext(), currentActor(c), c.Params("id"))
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{"data": order})
}

// UpdateStatusRequest is a manual status change, optionally carrying courier data
type UpdateStatusRequest struct {
	Status  model.OrderStatus      `json:"status"`
	Courier *service.CourierUpdate `json:"courier,omitempty"`
}

// PATCH /api/v1/orders/:id/status
func (h *OrderHandler) UpdateStatus(c *fiber.Ctx) error {
	var req UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}

	status := model.OrderStatus(strings.ToUpper(string(req.Status)))
	if !status.IsValid() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid status"})
	}

	order, err := h.orders.UpdateStatus(c.UserContext(), currentActor(c), c.Params("id"), status, req.Courier)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{"message": "Order status updated", "data": order})
}

// SyncCourier pushes the order to Steadfast and confirms it
// POST /api/v1/orders/:id/sync
func (h *OrderHandler) SyncCourier(c *fiber.Ctx) error {
	order, err := h.orders.SyncCourier(c.UserContext(), currentActor(c), c.Params("id"))
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{"message": "Order synced with courier", "data": order})
}

// Invoice renders the printable invoice; ?format=pdf returns a PDF
// GET /api/v1/orders/:id/invoice
func (h *OrderHandler) Invoice(c *fiber.Ctx) error {
	order, err := h.orders.GetOrder(c.UserContext(), currentActor(c), c.Params("id"))
	if err != nil {
		return writeError(c, h.logger, err)
	}

	logo, err := h.logos.GetLogo(c.UserContext())
	if err != nil {
		h.logger.Warn("invoice rendered without logo", zap.Error(err))
		logo = ""
	}
	data := invoice.NewData(h.brandName, logo, order)

	if strings.EqualFold(c.Query("format"), "pdf") {
		pdf, err := h.invoices.PDF(c.UserContext(), data)
		if err != nil {
			if errors.Is(err, invoice.ErrPDFDisabled) {
				return c.Status(fiber.StatusNotImplemented).JSON(fiber.Map{"error": err.Error()})
			}
			return writeError(c, h.logger, err)
		}
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`inline; filename="%s.pdf"`, order.ID))
		c.Type("pdf")
		return c.Send(pdf)
	}

	html, err := h.invoices.HTML(data)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	c.Type("html", "utf-8")
	return c.Send(html)
}
