package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"baburchi-admin/internal/event"
	"baburchi-admin/internal/model"
	"baburchi-admin/internal/repository"
	"baburchi-admin/pkg/validator"
)

type UserService interface {
	AddModerator(ctx context.Context, actor Actor, req *AddModeratorRequest) (*model.User, error)
	ListModerators(ctx context.Context) ([]model.UserResponse, error)
	GetUserByID(ctx context.Context, id string) (*model.UserResponse, error)
	SetPassword(ctx context.Context, email, newPassword string) error
}

// AddModeratorRequest creates a moderator account. An empty password falls back to the default one.
type AddModeratorRequest struct {
	Name     string `json:"name" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"omitempty,min=6"`
}

type userService struct {
	userRepo        repository.UserRepository
	events          event.Publisher
	defaultPassword string
	logger          *zap.Logger
}

func NewUserService(userRepo repository.UserRepository, events event.Publisher, defaultPassword string, logger *zap.Logger) UserService {
	return &userService{
		userRepo:        userRepo,
		events:          events,
		defaultPassword: defaultPassword,
		logger:          logger.Named("users"),
	}
}

func (s *userService) AddModerator(ctx context.Context, actor Actor, req *AddModeratorRequest) (*model.User, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}

	// 1. Validate request
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validator.Validate(req); err != nil {
		return nil, err
	}

	// 2. Check if email already exists
	existing, err := s.userRepo.FindByEmail(req.Email)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	// 3. Create user
	user := &model.User{
		Email:        req.Email,
		Name:         req.Name,
		Role:         model.RoleModerator,
		IsActive:     true,
		TokenVersion: uuid.NewString(),
	}
	user.CreatedBy = actor.ID
	user.UpdatedBy = actor.ID

	password := req.Password
	if password == "" {
		password = s.defaultPassword
	}
	if err := user.SetPassword(password); err != nil {
		return nil, errors.New("failed to hash password")
	}

	// 4. Save
	if err := s.userRepo.Create(user); err != nil {
		return nil, err
	}

	s.logger.Info("moderator added", zap.String("user_id", user.ID), zap.String("email", user.Email))
	s.events.Publish(ctx, event.ModeratorAdded, user.ID, actor.eventActor(),
		fmt.Sprintf("%s added moderator %s", actor.Name, user.Name),
		map[string]interface{}{"user": user.ToResponse()})

	return user, nil
}

func (s *userService) ListModerators(ctx context.Context) ([]model.UserResponse, error) {
	users, err := s.userRepo.FindByRole(model.RoleModerator)
	if err != nil {
		return nil, err
	}

	responses := make([]model.UserResponse, len(users))
	for i, user := range users {
		responses[i] = user.ToResponse()
	}
	return responses, nil
}

func (s *userService) GetUserByID(ctx context.Context, id string) (*model.UserResponse, error) {
	user, err := s.userRepo.FindByID(id)
	if err != nil {
		return nil, ErrUserNotFound
	}
	response := user.ToResponse()
	return &response, nil
}

// SetPassword overwrites a password without the old one and ends the user's sessions
func (s *userService) SetPassword(ctx context.Context, email, newPassword string) error {
	if len(newPassword) < 6 {
		return fmt.Errorf("%w: password must be at least 6 characters", validator.ErrValidation)
	}
	user, err := s.userRepo.FindByEmail(email)
	if err != nil {
		return ErrUserNotFound
	}
	if err := user.SetPassword(newPassword); err != nil {
		return errors.New("failed to hash password")
	}
	if err := s.userRepo.UpdatePassword(user.ID, user.Password); err != nil {
		return err
	}
	if err := s.userRepo.UpdateTokenVersion(user.ID, uuid.NewString()); err != nil {
		return err
	}
	s.logger.Info("password reset", zap.String("user_id", user.ID))
	return nil
}
