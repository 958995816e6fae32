package handler

import (
	"baburchi-admin/internal/model"
	"baburchi-admin/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type SettingsHandler struct {
	settings service.SettingsService
	logger   *zap.Logger
}

func NewSettingsHandler(settings service.SettingsService, logger *zap.Logger) *SettingsHandler {
	return &SettingsHandler{settings: settings, logger: logger}
}

// GET /api/v1/settings/courier
func (h *SettingsHandler) GetCourierConfig(c *fiber.Ctx) error {
	cfg, err := h.settings.GetCourierConfig(c.UserContext())
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{"data": cfg, "configured": cfg.IsConfigured()})
}

// PUT /api/v1/settings/courier
func (h *SettingsHandler) UpdateCourierConfig(c *fiber.Ctx) error {
	var req model.CourierConfig
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}

	cfg, err := h.settings.UpdateCourierConfig(c.UserContext(), currentActor(c), req)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{"message": "Courier settings saved", "data": cfg})
}

// GET /api/v1/settings/logo
func (h *SettingsHandler) GetLogo(c *fiber.Ctx) error {
	logo, err := h.settings.GetLogo(c.UserContext())
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{"logo": logo})
}

// UpdateLogo accepts {"logo": "data:image/png;base64,..."}
// PUT /api/v1/settings/logo
func (h *SettingsHandler) UpdateLogo(c *fiber.Ctx) error {
	var req struct {
		Logo string `json:"logo"`
	}
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}

	logo, err := h.settings.UpdateLogo(c.UserContext(), currentActor(c), req.Logo)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{"message": "Logo updated", "logo": logo})
}

// DELETE /api/v1/settings/logo
func (h *SettingsHandler) RemoveLogo(c *fiber.Ctx) error {
	if err := h.settings.RemoveLogo(c.UserContext(), currentActor(c)); err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{"message": "Logo removed"})
}
