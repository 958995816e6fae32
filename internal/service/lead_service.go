package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"baburchi-admin/internal/cache"
	"baburchi-admin/internal/event"
	"baburchi-admin/internal/model"
	"baburchi-admin/internal/repository"
	"baburchi-admin/pkg/validator"
)

type LeadService interface {
	AssignLeads(ctx context.Context, actor Actor, req *AssignLeadsRequest) ([]model.Lead, error)
	BulkReassign(ctx context.Context, actor Actor, req *ReassignLeadsRequest) ([]model.Lead, error)
	UpdateStatus(ctx context.Context, actor Actor, id string, status model.LeadStatus) (*model.Lead, error)
	Delete(ctx context.Context, actor Actor, id string) error
	List(ctx context.Context, actor Actor) ([]model.Lead, error)
}

type LeadInput struct {
	CustomerName  string `json:"customer_name" validate:"max=255"`
	CustomerPhone string `json:"customer_phone" validate:"omitempty,bd_phone"`
	Note          string `json:"note"`
}

type AssignLeadsRequest struct {
	ModeratorID  string      `json:"moderator_id" validate:"required"`
	AssignedDate string      `json:"assigned_date" validate:"required,datetime=2006-01-02"`
	Leads        []LeadInput `json:"leads" validate:"required,min=1,dive"`
}

type ReassignLeadsRequest struct {
	LeadIDs      []string `json:"lead_ids" validate:"required,min=1,dive,required"`
	ModeratorID  string   `json:"moderator_id" validate:"required"`
	AssignedDate string   `json:"assigned_date" validate:"required,datetime=2006-01-02"`
}

type leadService struct {
	db       *gorm.DB
	leadRepo repository.LeadRepository
	userRepo repository.UserRepository
	cache    cache.Store
	events   event.Publisher
	logger   *zap.Logger
}

func NewLeadService(db *gorm.DB, leadRepo repository.LeadRepository, userRepo repository.UserRepository, store cache.Store, events event.Publisher, logger *zap.Logger) LeadService {
	return &leadService{
		db:       db,
		leadRepo: leadRepo,
		userRepo: userRepo,
		cache:    store,
		events:   events,
		logger:   logger.Named("leads"),
	}
}

// moderator loads the target of an assignment and checks its role
func (s *leadService) moderator(id string) (*model.User, error) {
	user, err := s.userRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrModeratorNotFound
		}
		return nil, err
	}
	if user.Role != model.RoleModerator {
		return nil, ErrModeratorNotFound
	}
	return user, nil
}

func (s *leadService) AssignLeads(ctx context.Context, actor Actor, req *AssignLeadsRequest) ([]model.Lead, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	if err := validator.Validate(req); err != nil {
		return nil, err
	}
	mod, err := s.moderator(req.ModeratorID)
	if err != nil {
		return nil, err
	}

	leads := make([]model.Lead, 0, len(req.Leads))
	for _, in := range req.Leads {
		lead := model.Lead{
			ModeratorID:   mod.ID,
			AssignedDate:  req.AssignedDate,
			Status:        model.LeadNew,
			CustomerName:  strings.TrimSpace(in.CustomerName),
			CustomerPhone: strings.TrimSpace(in.CustomerPhone),
			Note:          in.Note,
		}
		lead.CreatedBy = actor.ID
		lead.UpdatedBy = actor.ID
		leads = append(leads, lead)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.leadRepo.Create(tx, leads)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("leads assigned",
		zap.String("moderator_id", mod.ID),
		zap.String("date", req.AssignedDate),
		zap.Int("count", len(leads)))
	s.events.Publish(ctx, event.LeadsAssigned, mod.ID, actor.eventActor(),
		fmt.Sprintf("%d leads assigned to %s", len(leads), mod.Name),
		map[string]interface{}{"moderator_id": mod.ID, "assigned_date": req.AssignedDate, "leads": leads})
	InvalidateDashboard(ctx, s.cache, s.logger, mod.ID)

	return leads, nil
}

func (s *leadService) BulkReassign(ctx context.Context, actor Actor, req *ReassignLeadsRequest) ([]model.Lead, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	if err := validator.Validate(req); err != nil {
		return nil, err
	}
	mod, err := s.moderator(req.ModeratorID)
	if err != nil {
		return nil, err
	}

	ids := uniqueStrings(req.LeadIDs)
	previousOwners := make(map[string]bool)
	var reassigned []model.Lead

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := s.leadRepo.FindByIDs(tx, ids)
		if err != nil {
			return err
		}
		if len(found) != len(ids) {
			return fmt.Errorf("%w: %s", ErrLeadNotFound, missingID(ids, found))
		}
		for _, l := range found {
			previousOwners[l.ModeratorID] = true
		}
		if err := s.leadRepo.Reassign(tx, ids, mod.ID, req.AssignedDate, actor.ID); err != nil {
			return err
		}
		reassigned, err = s.leadRepo.FindByIDs(tx, ids)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("leads reassigned",
		zap.String("moderator_id", mod.ID),
		zap.String("date", req.AssignedDate),
		zap.Int("count", len(ids)))
	s.events.Publish(ctx, event.LeadsReassigned, mod.ID, actor.eventActor(),
		fmt.Sprintf("%d leads moved to %s", len(ids), mod.Name),
		map[string]interface{}{"moderator_id": mod.ID, "assigned_date": req.AssignedDate, "lead_ids": ids})

	owners := []string{mod.ID}
	for id := range previousOwners {
		owners = append(owners, id)
	}
	InvalidateDashboard(ctx, s.cache, s.logger, owners...)

	return reassigned, nil
}

func (s *leadService) UpdateStatus(ctx context.Context, actor Actor, id string, status model.LeadStatus) (*model.Lead, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: unknown lead status %q", validator.ErrValidation, status)
	}

	lead, err := s.leadRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLeadNotFound
		}
		return nil, err
	}
	if !actor.IsAdmin() && lead.ModeratorID != actor.ID {
		return nil, ErrForbidden
	}

	if err := s.leadRepo.UpdateStatus(id, status, actor.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLeadNotFound
		}
		return nil, err
	}
	lead.Status = status
	lead.UpdatedBy = actor.ID

	s.events.Publish(ctx, event.LeadStatusChanged, lead.ID, actor.eventActor(), "",
		map[string]interface{}{"lead": lead})
	InvalidateDashboard(ctx, s.cache, s.logger, lead.ModeratorID)

	return lead, nil
}

func (s *leadService) Delete(ctx context.Context, actor Actor, id string) error {
	if !actor.IsAdmin() {
		return ErrForbidden
	}

	lead, err := s.leadRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrLeadNotFound
		}
		return err
	}
	if err := s.leadRepo.Delete(id, actor.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrLeadNotFound
		}
		return err
	}

	s.logger.Info("lead deleted", zap.String("lead_id", id), zap.String("actor", actor.ID))
	s.events.Publish(ctx, event.LeadDeleted, id, actor.eventActor(), "",
		map[string]interface{}{"lead_id": id, "moderator_id": lead.ModeratorID})
	InvalidateDashboard(ctx, s.cache, s.logger, lead.ModeratorID)
	return nil
}

func (s *leadService) List(ctx context.Context, actor Actor) ([]model.Lead, error) {
	if actor.IsAdmin() {
		return s.leadRepo.FindAll()
	}
	return s.leadRepo.FindByModerator(actor.ID)
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func missingID(ids []string, found []model.Lead) string {
	have := make(map[string]bool, len(found))
	for _, l := range found {
		have[l.ID] = true
	}
	for _, id := range ids {
		if !have[id] {
			return id
		}
	}
	return ""
}
