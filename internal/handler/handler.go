// Package handler exposes the services over HTTP with fiber.
package handler

import (
	"errors"

	"baburchi-admin/internal/model"
	"baburchi-admin/internal/service"
	"baburchi-admin/internal/snapshot"
	"baburchi-admin/pkg/validator"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// currentActor reads the account stored by middleware.RequireAuth
func currentActor(c *fiber.Ctx) service.Actor {
	actor := service.Actor{ID: "system", Name: "Unknown"}
	if id, ok := c.Locals("user_id").(string); ok {
		actor.ID = id
	}
	if name, ok := c.Locals("user_name").(string); ok {
		actor.Name = name
	}
	if email, ok := c.Locals("user_email").(string); ok {
		actor.Email = email
	}
	if role, ok := c.Locals("user_role").(model.Role); ok {
		actor.Role = role
	}
	return actor
}

// errorStatus maps service errors onto HTTP status codes
func errorStatus(err error) int {
	switch {
	case errors.Is(err, validator.ErrValidation),
		errors.Is(err, service.ErrNoItems),
		errors.Is(err, service.ErrWrongPassword),
		errors.Is(err, snapshot.ErrInvalidDocument):
		return fiber.StatusBadRequest

	case errors.Is(err, service.ErrWebhookUnauthorized),
		errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrUserInactive),
		errors.Is(err, service.ErrSessionReplaced),
		errors.Is(err, service.ErrSessionTimeout):
		return fiber.StatusUnauthorized

	case errors.Is(err, service.ErrForbidden):
		return fiber.StatusForbidden

	case errors.Is(err, service.ErrProductNotFound),
		errors.Is(err, service.ErrOrderNotFound),
		errors.Is(err, service.ErrLeadNotFound),
		errors.Is(err, service.ErrModeratorNotFound),
		errors.Is(err, service.ErrUserNotFound):
		return fiber.StatusNotFound

	case errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrCourierAlreadySynced),
		errors.Is(err, service.ErrCourierSyncInFlight),
		errors.Is(err, service.ErrOutOfStock),
		errors.Is(err, service.ErrDuplicateSKU),
		errors.Is(err, service.ErrEmailTaken):
		return fiber.StatusConflict

	case errors.Is(err, service.ErrCourierSyncFailed):
		return fiber.StatusBadGateway
	}
	return fiber.StatusInternalServerError
}

// writeError sends {"error": msg}; unexpected errors are logged and hidden
func writeError(c *fiber.Ctx, log *zap.Logger, err error) error {
	status := errorStatus(err)
	if status == fiber.StatusInternalServerError {
		log.Error("request failed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err))
		return c.Status(status).JSON(fiber.Map{"error": "Internal server error"})
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

func invalidJSON(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid JSON"})
}
