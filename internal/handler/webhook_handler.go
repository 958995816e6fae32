package handler

import (
	"strings"

	"baburchi-admin/internal/courier"
	"baburchi-admin/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type WebhookHandler struct {
	orders service.OrderService
	logger *zap.Logger
}

func NewWebhookHandler(orders service.OrderService, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{orders: orders, logger: logger}
}

// Courier receives Steadfast delivery-status callbacks
// POST /api/v1/courier/webhook
func (h *WebhookHandler) Courier(c *fiber.Ctx) error {
	token := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if len(token) > 7 && strings.EqualFold(token[:7], "bearer ") {
		token = strings.TrimSpace(token[7:])
	}

	var payload courier.WebhookPayload
	if err := c.BodyParser(&payload); err != nil {
		return invalidJSON(c)
	}

	order, err := h.orders.HandleCourierWebhook(c.UserContext(), token, payload)
	if err != nil {
		h.logger.Info("courier webhook rejected",
			zap.String("consignment_id", payload.ConsignmentID.String()),
			zap.String("invoice", payload.Invoice),
			zap.Error(err))
		return writeError(c, h.logger, err)
	}

	return c.JSON(fiber.Map{"status": "success", "message": "Webhook received", "order_id": order.ID})
}
