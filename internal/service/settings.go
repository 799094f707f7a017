package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/devpulse/devpulse/internal/cache"
	"github.com/devpulse/devpulse/internal/repository"
	"github.com/devpulse/devpulse/internal/settings"
)

// SettingsService reads and patches a user's preference bag.
type SettingsService struct {
	settings repository.SettingsRepository
	users    repository.UserRepository
	pages    cache.PageCache
	logger   *slog.Logger
}

func NewSettingsService(
	store repository.SettingsRepository,
	users repository.UserRepository,
	pages cache.PageCache,
	logger *slog.Logger,
) *SettingsService {
	return &SettingsService{settings: store, users: users, pages: pages, logger: logger}
}

// Get returns the stored settings merged over the defaults.
func (s *SettingsService) Get(ctx context.Context, userID string) (map[string]any, error) {
	raw, err := s.settings.GetSettings(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading settings for %s: %w", userID, err)
	}
	return settings.Normalize(raw), nil
}

// Patch deep-merges patch into the stored settings and returns the result.
// The owner's profile page goes stale because it renders privacy flags.
func (s *SettingsService) Patch(ctx context.Context, userID string, patch map[string]any) (map[string]any, error) {
	if err := settings.Validate(patch); err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	current, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	merged := settings.Normalize(settings.Merge(current, patch))

	if err := s.settings.SaveSettings(ctx, userID, merged); err != nil {
		s.logger.Error("saving settings failed", slog.String("user_id", userID), slog.String("error", err.Error()))
		return nil, fmt.Errorf("saving settings for %s: %w", userID, err)
	}

	invalidatePages(ctx, s.pages, s.logger, user.Username)
	s.logger.Info("settings updated", slog.String("user_id", userID))
	return merged, nil
}
