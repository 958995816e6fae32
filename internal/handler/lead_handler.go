package handler

import (
	"baburchi-admin/internal/model"
	"baburchi-admin/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type LeadHandler struct {
	leads  service.LeadService
	logger *zap.Logger
}

func NewLeadHandler(leads service.LeadService, logger *zap.Logger) *LeadHandler {
	return &LeadHandler{leads: leads, logger: logger}
}

// GET /api/v1/leads
func (h *LeadHandler) GetLeads(c *fiber.Ctx) error {
	leads, err := h.leads.List(c.UserContext(), currentActor(c))
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{"data": leads})
}

// AssignLeads appends a batch of new leads for one moderator and day
// POST /api/v1/leads
func (h *LeadHandler) AssignLeads(c *fiber.Ctx) error {
	var req service.AssignLeadsRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}

	leads, err := h.leads.AssignLeads(c.UserContext(), currentActor(c), &req)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Leads assigned", "data": leads})
}

// POST /api/v1/leads/reassign
func (h *LeadHandler) Reassign(c *fiber.Ctx) error {
	var req service.ReassignLeadsRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}

	leads, err := h.leads.BulkReassign(c.UserContext(), currentActor(c), &req)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{"message": "Leads reassigned", "data": leads})
}

// PATCH /api/v1/leads/:id/status
func (h *LeadHandler) UpdateStatus(c *fiber.Ctx) error {
	var req struct {
		Status model.LeadStatus `json:"status"`
	}
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}

	lead, err := h.leads.UpdateStatus(c.UserContext(), currentActor(c), c.Params("id"), req.Status)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{"message": "Lead updated", "data": lead})
}

// DELETE /api/v1/leads/:id
func (h *LeadHandler) DeleteLead(c *fiber.Ctx) error {
	if err := h.leads.Delete(c.UserContext(), currentActor(c), c.Params("id")); err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{"message": "Lead deleted"})
}
