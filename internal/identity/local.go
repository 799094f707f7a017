package identity

import (
	"context"
	"log/slog"
)

var _ Provider = (*LocalProvider)(nil)

// LocalProvider stands in for the hosted provider in development. It makes
// no remote calls: every account "exists" with just its ID, and deletions
// and revocations always succeed.
type LocalProvider struct {
	logger *slog.Logger
}

func NewLocalProvider(logger *slog.Logger) *LocalProvider {
	return &LocalProvider{logger: logger}
}

func (p *LocalProvider) GetUser(_ context.Context, id string) (*ProviderUser, error) {
	return &ProviderUser{ID: id}, nil
}

func (p *LocalProvider) DeleteUser(_ context.Context, id string) error {
	p.logger.Debug("local provider: delete user", slog.String("user_id", id))
	return nil
}

func (p *LocalProvider) RevokeSession(_ context.Context, sessionID string) error {
	p.logger.Debug("local provider: revoke session", slog.String("session_id", sessionID))
	return nil
}
