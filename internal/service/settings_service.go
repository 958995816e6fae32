package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"baburchi-admin/internal/event"
	"baburchi-admin/internal/model"
	"baburchi-admin/internal/repository"
	"baburchi-admin/internal/storage"
	"baburchi-admin/pkg/validator"
)

type SettingsService interface {
	CourierConfigProvider
	GetCourierConfig(ctx context.Context) (model.CourierConfig, error)
	UpdateCourierConfig(ctx context.Context, actor Actor, cfg model.CourierConfig) (model.CourierConfig, error)
	GetLogo(ctx context.Context) (string, error)
	UpdateLogo(ctx context.Context, actor Actor, dataURL string) (string, error)
	RemoveLogo(ctx context.Context, actor Actor) error
}

type settingsService struct {
	settingRepo repository.SettingRepository
	logos       storage.LogoStore
	events      event.Publisher
	logger      *zap.Logger
}

func NewSettingsService(settingRepo repository.SettingRepository, logos storage.LogoStore, events event.Publisher, logger *zap.Logger) SettingsService {
	return &settingsService{
		settingRepo: settingRepo,
		logos:       logos,
		events:      events,
		logger:      logger.Named("settings"),
	}
}

// CourierConfig returns the stored configuration with secrets, or the defaults
func (s *settingsService) CourierConfig(ctx context.Context) (model.CourierConfig, error) {
	setting, err := s.settingRepo.Get(model.SettingCourierConfig)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.DefaultCourierConfig(), nil
		}
		return model.CourierConfig{}, err
	}

	cfg := model.DefaultCourierConfig()
	if err := json.Unmarshal([]byte(setting.Value), &cfg); err != nil {
		return model.CourierConfig{}, fmt.Errorf("corrupt courier config: %w", err)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = model.DefaultCourierBaseURL
	}
	return cfg, nil
}

func (s *settingsService) GetCourierConfig(ctx context.Context) (model.CourierConfig, error) {
	cfg, err := s.CourierConfig(ctx)
	if err != nil {
		return model.CourierConfig{}, err
	}
	return cfg.Masked(), nil
}

func (s *settingsService) UpdateCourierConfig(ctx context.Context, actor Actor, cfg model.CourierConfig) (model.CourierConfig, error) {
	if !actor.IsAdmin() {
		return model.CourierConfig{}, ErrForbidden
	}

	stored, err := s.CourierConfig(ctx)
	if err != nil {
		return model.CourierConfig{}, err
	}

	cfg = cfg.MergeSecrets(stored)
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.SecretKey = strings.TrimSpace(cfg.SecretKey)
	cfg.AccountEmail = strings.TrimSpace(cfg.AccountEmail)
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = model.DefaultCourierBaseURL
	}
	if err := validator.Validate(cfg); err != nil {
		return model.CourierConfig{}, err
	}

	raw, err := json.Marshal(cfg)
	if err != nil {
		return model.CourierConfig{}, err
	}
	if err := s.settingRepo.Put(nil, model.SettingCourierConfig, string(raw), actor.ID); err != nil {
		return model.CourierConfig{}, err
	}

	s.logger.Info("courier config updated", zap.String("actor", actor.ID), zap.Bool("configured", cfg.IsConfigured()))
	s.events.Publish(ctx, event.SettingsUpdated, model.SettingCourierConfig, actor.eventActor(), "",
		map[string]interface{}{"key": model.SettingCourierConfig})

	return cfg.Masked(), nil
}

func (s *settingsService) GetLogo(ctx context.Context) (string, error) {
	setting, err := s.settingRepo.Get(model.SettingBrandLogo)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}
	return setting.Value, nil
}

func (s *settingsService) UpdateLogo(ctx context.Context, actor Actor, dataURL string) (string, error) {
	if !actor.IsAdmin() {
		return "", ErrForbidden
	}

	previous, err := s.GetLogo(ctx)
	if err != nil {
		return "", err
	}

	ref, err := s.logos.Save(ctx, strings.TrimSpace(dataURL))
	if err != nil {
		if errors.Is(err, storage.ErrInvalidDataURL) {
			return "", fmt.Errorf("%w: %w", validator.ErrValidation, err)
		}
		return "", err
	}
	if err := s.settingRepo.Put(nil, model.SettingBrandLogo, ref, actor.ID); err != nil {
		return "", err
	}

	if previous != "" && previous != ref {
		if err := s.logos.Remove(ctx, previous); err != nil {
			s.logger.Warn("failed to remove previous logo", zap.Error(err))
		}
	}

	s.events.Publish(ctx, event.SettingsUpdated, model.SettingBrandLogo, actor.eventActor(), "",
		map[string]interface{}{"key": model.SettingBrandLogo})
	return ref, nil
}

func (s *settingsService) RemoveLogo(ctx context.Context, actor Actor) error {
	if !actor.IsAdmin() {
		return ErrForbidden
	}

	previous, err := s.GetLogo(ctx)
	if err != nil {
		return err
	}
	if previous == "" {
		return nil
	}
	if err := s.settingRepo.Delete(model.SettingBrandLogo); err != nil {
		return err
	}
	if err := s.logos.Remove(ctx, previous); err != nil {
		s.logger.Warn("failed to remove logo object", zap.Error(err))
	}

	s.events.Publish(ctx, event.SettingsUpdated, model.SettingBrandLogo, actor.eventActor(), "",
		map[string]interface{}{"key": model.SettingBrandLogo, "removed": true})
	return nil
}
