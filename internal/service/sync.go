package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/devpulse/devpulse/internal/apperror"
	"github.com/devpulse/devpulse/internal/cache"
	"github.com/devpulse/devpulse/internal/identity"
	"github.com/devpulse/devpulse/internal/model"
	"github.com/devpulse/devpulse/internal/repository"
)

const defaultDisplayName = "New Dev"

// SyncService mirrors identity-provider accounts into the local store.
//
// Every write is keyed by the provider's account ID, so delivering the same
// event twice leaves exactly one row behind.
type SyncService struct {
	users         repository.UserRepository
	notifications repository.NotificationRepository
	pages         cache.PageCache
	logger        *slog.Logger
}

func NewSyncService(
	users repository.UserRepository,
	notifications repository.NotificationRepository,
	pages cache.PageCache,
	logger *slog.Logger,
) *SyncService {
	return &SyncService{users: users, notifications: notifications, pages: pages, logger: logger}
}

// HandleEvent applies a verified lifecycle event. Unknown event types are
// acknowledged without touching the store.
func (s *SyncService) HandleEvent(ctx context.Context, evt *identity.Event) error {
	switch evt.Type {
	case identity.EventUserCreated, identity.EventUserUpdated:
		u, err := evt.User()
		if err != nil {
			return apperror.ValidationFailed("data", "Missing valid user id")
		}
		_, err = s.Upsert(ctx, u)
		return err

	case identity.EventUserDeleted:
		u, err := evt.User()
		if err != nil || u.ID == "" {
			return apperror.ValidationFailed("id", "Missing valid user id")
		}
		return s.Remove(ctx, u.ID)

	default:
		s.logger.Info("ignoring identity event", slog.String("type", evt.Type))
		return nil
	}
}

// Upsert creates the local user for pu, or updates the fields pu carries.
func (s *SyncService) Upsert(ctx context.Context, pu *identity.ProviderUser) (*model.User, error) {
	if pu.ID == "" {
		return nil, apperror.ValidationFailed("id", "Missing valid user id")
	}

	existing, err := s.users.GetUserByID(ctx, pu.ID)
	switch {
	case err == nil:
		return s.update(ctx, existing, pu)
	case errors.Is(err, apperror.ErrNotFound):
		return s.create(ctx, pu)
	default:
		return nil, fmt.Errorf("loading user %s: %w", pu.ID, err)
	}
}

// Remove deletes every local row for id. Missing rows are fine.
func (s *SyncService) Remove(ctx context.Context, id string) error {
	var username string
	if u, err := s.users.GetUserByID(ctx, id); err == nil {
		username = u.Username
	}

	n, err := s.users.DeleteUser(ctx, id)
	if err != nil {
		return fmt.Errorf("deleting user %s: %w", id, err)
	}
	invalidatePages(ctx, s.pages, s.logger, username)

	s.logger.Info("identity user.deleted synced", slog.String("user_id", id), slog.Int64("rows", n))
	return nil
}

func (s *SyncService) create(ctx context.Context, pu *identity.ProviderUser) (*model.User, error) {
	user := &model.User{
		ID:          pu.ID,
		Username:    syncedUsername(pu),
		DisplayName: pu.FullName(),
		Avatar:      pu.AvatarURL(),
	}
	if user.DisplayName == "" {
		user.DisplayName = defaultDisplayName
	}
	email := syncedEmail(pu)
	user.Email = &email

	// A taken username or email falls back to the ID-derived value once.
	// A taken ID means a concurrent delivery won the race; update instead.
	for attempt := 0; ; attempt++ {
		err := s.users.CreateUser(ctx, user)
		if err == nil {
			break
		}
		if !errors.Is(err, apperror.ErrConflict) || attempt >= 2 {
			return nil, fmt.Errorf("creating user %s: %w", pu.ID, err)
		}

		switch apperror.FieldOf(err) {
		case "id":
			existing, getErr := s.users.GetUserByID(ctx, pu.ID)
			if getErr != nil {
				return nil, fmt.Errorf("loading user %s after conflict: %w", pu.ID, getErr)
			}
			return s.update(ctx, existing, pu)
		case "username":
			if fb := FallbackUsername(pu.ID); fb != user.Username {
				user.Username = fb
				continue
			}
		case "email":
			if ph := PlaceholderEmail(pu.ID); *user.Email != ph {
				user.Email = &ph
				continue
			}
		}
		return nil, fmt.Errorf("creating user %s: %w", pu.ID, err)
	}

	s.welcome(ctx, user)
	invalidatePages(ctx, s.pages, s.logger, user.Username)
	s.logger.Info("identity user created", slog.String("user_id", user.ID), slog.String("username", user.Username))
	return user, nil
}

// update only writes what the provider actually sent: a blank username,
// name, avatar or email in the payload never clears a local value.
func (s *SyncService) update(ctx context.Context, existing *model.User, pu *identity.ProviderUser) (*model.User, error) {
	var upd repository.UserUpdate

	if pu.Username != nil {
		if u := SanitizeUsername(*pu.Username); u != "" && u != existing.Username {
			upd.Username = &u
		}
	}
	if raw := pu.PrimaryEmail(); raw != "" && ValidEmail(raw) {
		e := normalizeEmail(raw)
		if existing.Email == nil || *existing.Email != e {
			upd.Email = &e
		}
	}
	if name := pu.FullName(); name != "" && name != existing.DisplayName {
		upd.DisplayName = &name
	}
	if avatar := pu.AvatarURL(); avatar != "" && avatar != existing.Avatar {
		upd.Avatar = &avatar
	}

	if upd.IsEmpty() {
		return existing, nil
	}

	err := s.users.UpdateUser(ctx, existing.ID, upd)
	if errors.Is(err, apperror.ErrConflict) && upd.Username != nil {
		// Keep the current local username rather than drop the whole sync.
		s.logger.Warn("synced username already taken, keeping current",
			slog.String("user_id", existing.ID),
			slog.String("username", *upd.Username),
		)
		upd.Username = nil
		if upd.IsEmpty() {
			return existing, nil
		}
		err = s.users.UpdateUser(ctx, existing.ID, upd)
	}
	if err != nil {
		return nil, fmt.Errorf("updating user %s: %w", existing.ID, err)
	}

	updated, err := s.users.GetUserByID(ctx, existing.ID)
	if err != nil {
		return nil, fmt.Errorf("reloading user %s: %w", existing.ID, err)
	}
	invalidatePages(ctx, s.pages, s.logger, existing.Username, updated.Username)
	s.logger.Info("identity user updated", slog.String("user_id", existing.ID))
	return updated, nil
}

func (s *SyncService) welcome(ctx context.Context, user *model.User) {
	n := &model.Notification{
		UserID: user.ID,
		Title:  "Welcome to DevPulse",
		Body:   "Your profile is live at /u/" + user.Username + ". Add a project to get started.",
	}
	if err := s.notifications.CreateNotification(ctx, n); err != nil {
		s.logger.Warn("creating welcome notification failed",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}
}

// syncedUsername is the provider username sanitized, or the ID fallback.
func syncedUsername(pu *identity.ProviderUser) string {
	if pu.Username != nil {
		if u := SanitizeUsername(*pu.Username); u != "" {
			return u
		}
	}
	return FallbackUsername(pu.ID)
}

// syncedEmail is the normalized primary email, or the ID placeholder.
func syncedEmail(pu *identity.ProviderUser) string {
	if raw := pu.PrimaryEmail(); raw != "" && ValidEmail(raw) {
		return normalizeEmail(raw)
	}
	return PlaceholderEmail(pu.ID)
}
