package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"baburchi-admin/internal/repository"
	"baburchi-admin/internal/snapshot"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type SnapshotHandler struct {
	snapshots *snapshot.Service
	users     repository.UserRepository
	logger    *zap.Logger
}

func NewSnapshotHandler(snapshots *snapshot.Service, users repository.UserRepository, logger *zap.Logger) *SnapshotHandler {
	return &SnapshotHandler{snapshots: snapshots, users: users, logger: logger}
}

// Export downloads the whole dataset in the browser storage layout
// GET /api/v1/snapshot
func (h *SnapshotHandler) Export(c *fiber.Ctx) error {
	session, err := h.users.FindByID(currentActor(c).ID)
	if err != nil {
		session = nil
	}

	doc, err := h.snapshots.Export(c.UserContext(), session)
	if err != nil {
		return writeError(c, h.logger, err)
	}

	filename := fmt.Sprintf("baburchi-backup-%s.json", time.Now().Format("2006-01-02"))
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, filename))
	return c.JSON(doc)
}

// Import loads a previously exported document
// POST /api/v1/snapshot
func (h *SnapshotHandler) Import(c *fiber.Ctx) error {
	var doc snapshot.Document
	if err := json.Unmarshal(c.Body(), &doc); err != nil {
		if !errors.Is(err, snapshot.ErrInvalidDocument) {
			err = fmt.Errorf("%w: %v", snapshot.ErrInvalidDocument, err)
		}
		return writeError(c, h.logger, err)
	}

	summary, err := h.snapshots.Import(c.UserContext(), &doc, currentActor(c).ID)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{"message": "Snapshot imported", "data": summary})
}
