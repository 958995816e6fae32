package handler

import (
	"baburchi-admin/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type UserHandler struct {
	userService service.UserService
	logger      *zap.Logger
}

func NewUserHandler(userService service.UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{userService: userService, logger: logger}
}

// AddModerator creates a moderator account
// POST /api/v1/moderators
func (h *UserHandler) AddModerator(c *fiber.Ctx) error {
	var req service.AddModeratorRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}

	user, err := h.userService.AddModerator(c.UserContext(), currentActor(c), &req)
	if err != nil {
		return writeError(c, h.logger, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Moderator added successfully",
		"data":    user.ToResponse(),
	})
}

// GET /api/v1/moderators
func (h *UserHandler) GetModerators(c *fiber.Ctx) error {
	users, err := h.userService.ListModerators(c.UserContext())
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{"data": users})
}

// GET /api/v1/users/:id
func (h *UserHandler) GetUser(c *fiber.Ctx) error {
	user, err := h.userService.GetUserByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{"data": user})
}
