package service

import (
	"context"
	"fmt"
	"strings"

	"sunolegal/internal/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	onboardingKeyPrefix = "onboarding:"
	demoKeyPrefix       = "demo:"
	demoUserPrefix      = "demo-"
)

// ProfileService keeps per-user onboarding and per-device demo flags.
type ProfileService struct {
	store  domain.FlagStore
	logger *zerolog.Logger
}

func NewProfileService(store domain.FlagStore, logger *zerolog.Logger) *ProfileService {
	return &ProfileService{
		store:  store,
		logger: logger,
	}
}

func (s *ProfileService) OnboardingCompleted(ctx context.Context, userID string) (bool, error) {
	if err := requireKey("user id", userID); err != nil {
		return false, err
	}
	val, found, err := s.store.Get(ctx, onboardingKeyPrefix+userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("failed to read onboarding flag")
		return false, err
	}
	return found && val == "true", nil
}

func (s *ProfileService) CompleteOnboarding(ctx context.Context, userID string) error {
	if err := requireKey("user id", userID); err != nil {
		return err
	}
	return s.store.Set(ctx, onboardingKeyPrefix+userID, "true")
}

func (s *ProfileService) ResetOnboarding(ctx context.Context, userID string) error {
	if err := requireKey("user id", userID); err != nil {
		return err
	}
	return s.store.Remove(ctx, onboardingKeyPrefix+userID)
}

// StartDemo returns the demo user bound to the device, creating one if needed.
func (s *ProfileService) StartDemo(ctx context.Context, deviceID string) (string, error) {
	userID, found, err := s.DemoUser(ctx, deviceID)
	if err != nil {
		return "", err
	}
	if found {
		return userID, nil
	}

	userID = demoUserPrefix + uuid.NewString()
	if err := s.store.Set(ctx, demoKeyPrefix+deviceID, userID); err != nil {
		return "", err
	}
	s.logger.Info().Str("device_id", deviceID).Str("user_id", userID).Msg("demo mode started")
	return userID, nil
}

func (s *ProfileService) DemoUser(ctx context.Context, deviceID string) (string, bool, error) {
	if err := requireKey("device id", deviceID); err != nil {
		return "", false, err
	}
	return s.store.Get(ctx, demoKeyPrefix+deviceID)
}

func (s *ProfileService) EndDemo(ctx context.Context, deviceID string) error {
	if err := requireKey("device id", deviceID); err != nil {
		return err
	}
	return s.store.Remove(ctx, demoKeyPrefix+deviceID)
}

func requireKey(name, v string) error {
	if strings.TrimSpace(v) == "" {
		return fmt.Errorf("%w: %s is required", domain.ErrValidation, name)
	}
	return nil
}
