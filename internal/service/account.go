package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/devpulse/devpulse/internal/apperror"
	"github.com/devpulse/devpulse/internal/cache"
	"github.com/devpulse/devpulse/internal/identity"
	"github.com/devpulse/devpulse/internal/repository"
)

// DeletionState is a step of the account deletion workflow.
type DeletionState string

const (
	DeletionStart          DeletionState = "START"
	DeletionDBPurged       DeletionState = "DB_PURGED"
	DeletionIdentityPurged DeletionState = "IDENTITY_PURGED"
	DeletionDone           DeletionState = "DONE"
	DeletionFailed         DeletionState = "FAILED"
)

// DeletionResult reports how far a deletion got. Reached is the last state
// completed before FAILED, so callers can tell a local failure from a
// provider failure.
type DeletionResult struct {
	State   DeletionState `json:"state"`
	Reached DeletionState `json:"reached"`
}

// AccountService deletes accounts: local data first, then the provider
// account. The two are not transactional; if the provider step fails, the
// local data stays deleted and the whole call can simply be repeated.
type AccountService struct {
	users    repository.UserRepository
	provider identity.Provider
	pages    cache.PageCache
	logger   *slog.Logger
}

func NewAccountService(
	users repository.UserRepository,
	provider identity.Provider,
	pages cache.PageCache,
	logger *slog.Logger,
) *AccountService {
	return &AccountService{users: users, provider: provider, pages: pages, logger: logger}
}

func (s *AccountService) Delete(ctx context.Context, userID string) (DeletionResult, error) {
	res := DeletionResult{State: DeletionStart, Reached: DeletionStart}
	log := s.logger.With(slog.String("user_id", userID))

	fail := func(err error) (DeletionResult, error) {
		res.Reached = res.State
		res.State = DeletionFailed
		log.Error("account deletion failed",
			slog.String("reached", string(res.Reached)),
			slog.String("error", err.Error()),
		)
		return res, err
	}

	var username string
	if u, err := s.users.GetUserByID(ctx, userID); err == nil {
		username = u.Username
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return fail(err)
	}

	n, err := s.users.DeleteUser(ctx, userID)
	if err != nil {
		return fail(err)
	}
	res.State = DeletionDBPurged
	invalidatePages(ctx, s.pages, log, username)
	log.Info("account local data purged", slog.Int64("rows", n))

	err = s.provider.DeleteUser(ctx, userID)
	switch {
	case err == nil:
	case errors.Is(err, identity.ErrNotFound):
		log.Info("identity account already gone")
	default:
		return fail(apperror.Upstream("Failed to delete your account at the identity provider. Please try again.", err))
	}
	res.State = DeletionIdentityPurged

	res.State = DeletionDone
	res.Reached = DeletionDone
	log.Info("account deleted")
	return res, nil
}
