package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"baburchi-admin/internal/event"
	"baburchi-admin/internal/model"
	"baburchi-admin/internal/repository"
	"baburchi-admin/pkg/jwt"
	"baburchi-admin/pkg/validator"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserInactive       = errors.New("user account is inactive")
	ErrWrongPassword      = errors.New("current password is incorrect")
	ErrSessionReplaced    = errors.New("session expired (logged in on another device)")
	ErrSessionTimeout     = errors.New("session expired due to inactivity")
)

type AuthService interface {
	Login(ctx context.Context, email, password string) (*LoginResponse, error)
	ResetPassword(ctx context.Context, req *ResetPasswordRequest) error
	ValidateToken(ctx context.Context, tokenString string) (*TokenValidationResponse, error)
	Heartbeat(ctx context.Context, actor Actor) error
	Logout(ctx context.Context, actor Actor) error
}

type LoginResponse struct {
	Token      string             `json:"token"`
	User       model.UserResponse `json:"user"`
	Privileges []string           `json:"privileges"`
}

type TokenValidationResponse struct {
	User       model.UserResponse `json:"user"`
	Privileges []string           `json:"privileges"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email" validate:"required,email"`
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6"`
}

type authService struct {
	userRepo    repository.UserRepository
	events      event.Publisher
	idleTimeout time.Duration
	logger      *zap.Logger
}

// NewAuthService builds the login/session service. A zero idleTimeout disables the inactivity check.
func NewAuthService(userRepo repository.UserRepository, events event.Publisher, idleTimeout time.Duration, logger *zap.Logger) AuthService {
	return &authService{
		userRepo:    userRepo,
		events:      events,
		idleTimeout: idleTimeout,
		logger:      logger.Named("auth"),
	}
}

func (s *authService) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	// 1. Find user by email
	user, err := s.userRepo.FindByEmail(strings.TrimSpace(email))
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	// 2. Check if user is active
	if !user.IsActive {
		return nil, ErrUserInactive
	}

	// 3. Verify password
	if !user.CheckPassword(password) {
		s.logger.Info("login failed", zap.String("email", user.Email))
		return nil, ErrInvalidCredentials
	}

	// 4. Single session: a new token version invalidates older tokens
	now := time.Now()
	user.TokenVersion = uuid.NewString()
	user.LastSeenAt = &now
	if err := s.userRepo.Update(user); err != nil {
		return nil, errors.New("failed to update session")
	}

	// 5. Sign
	privileges := model.PrivilegesFor(user.Role)
	token, err := jwt.GenerateToken(user.ID, user.Email, user.Name, string(user.Role), privileges, user.TokenVersion)
	if err != nil {
		return nil, errors.New("failed to generate token")
	}

	s.logger.Info("user logged in", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return &LoginResponse{
		Token:      token,
		User:       user.ToResponse(),
		Privileges: privileges,
	}, nil
}

func (s *authService) ResetPassword(ctx context.Context, req *ResetPasswordRequest) error {
	if err := validator.Validate(req); err != nil {
		return err
	}

	user, err := s.userRepo.FindByEmail(req.Email)
	if err != nil {
		return ErrUserNotFound
	}
	if !user.CheckPassword(req.OldPassword) {
		return ErrWrongPassword
	}
	if err := user.SetPassword(req.NewPassword); err != nil {
		return errors.New("failed to hash new password")
	}
	if err := s.userRepo.UpdatePassword(user.ID, user.Password); err != nil {
		return err
	}

	// existing sessions must log in again with the new password
	if err := s.userRepo.UpdateTokenVersion(user.ID, uuid.NewString()); err != nil {
		return err
	}
	s.logger.Info("password changed", zap.String("user_id", user.ID))
	return nil
}

func (s *authService) ValidateToken(ctx context.Context, tokenString string) (*TokenValidationResponse, error) {
	user, err := s.sessionUser(tokenString)
	if err != nil {
		return nil, err
	}
	return &TokenValidationResponse{
		User:       user.ToResponse(),
		Privileges: model.PrivilegesFor(user.Role),
	}, nil
}

// sessionUser resolves a token to its still-valid account
func (s *authService) sessionUser(tokenString string) (*model.User, error) {
	claims, err := jwt.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByID(claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}
	if user.TokenVersion != claims.TokenVersion {
		return nil, ErrSessionReplaced
	}
	if s.idleTimeout > 0 && (user.LastSeenAt == nil || time.Since(*user.LastSeenAt) > s.idleTimeout) {
		return nil, ErrSessionTimeout
	}
	return user, nil
}

func (s *authService) Heartbeat(ctx context.Context, actor Actor) error {
	if err := s.userRepo.UpdateLastSeen(actor.ID); err != nil {
		return err
	}

	s.events.Publish(ctx, event.UserPresence, actor.ID, actor.eventActor(), "",
		map[string]interface{}{
			"user_id":      actor.ID,
			"status":       "online",
			"last_seen_at": time.Now().UTC(),
		})
	return nil
}

func (s *authService) Logout(ctx context.Context, actor Actor) error {
	if err := s.userRepo.UpdateTokenVersion(actor.ID, uuid.NewString()); err != nil {
		return err
	}
	s.events.Publish(ctx, event.UserPresence, actor.ID, actor.eventActor(), "",
		map[string]interface{}{"user_id": actor.ID, "status": "offline"})
	return nil
}
