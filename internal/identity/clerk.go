package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2"
)

var _ Provider = (*ClerkClient)(nil)

// ClerkConfig configures the management API client.
type ClerkConfig struct {
	BaseURL   string        // e.g. https://api.clerk.com/v1
	SecretKey string        // sent as a bearer token
	Timeout   time.Duration // per attempt

	// MaxAttempts caps tries per call, including the first. Zero means 3.
	MaxAttempts int
	// InitialBackoff is the first retry delay. Zero means 200ms.
	InitialBackoff time.Duration
}

// ClerkClient calls the provider's REST management API. Rate limits, 5xx
// responses and transport errors are retried with exponential backoff;
// everything else is returned as-is.
type ClerkClient struct {
	http   *resty.Client
	cfg    ClerkConfig
	logger *slog.Logger
}

// StatusError is a non-2xx response that was not retried or ran out of
// retries.
type StatusError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("identity: %s %s: status %d: %s", e.Method, e.Path, e.Status, e.Body)
}

func NewClerkClient(cfg ClerkConfig, logger *slog.Logger) *ClerkClient {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 200 * time.Millisecond
	}

	// The oauth2 transport attaches "Authorization: Bearer <secret>" to
	// every request; resty handles JSON decoding and timeouts on top.
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.SecretKey})
	httpClient := oauth2.NewClient(context.Background(), ts)

	client := resty.NewWithClient(httpClient).
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")

	return &ClerkClient{http: client, cfg: cfg, logger: logger}
}

func (c *ClerkClient) GetUser(ctx context.Context, id string) (*ProviderUser, error) {
	var u ProviderUser
	path := "/users/" + url.PathEscape(id)
	err := c.do(ctx, http.MethodGet, path, &u)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *ClerkClient) DeleteUser(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/users/"+url.PathEscape(id), nil)
}

func (c *ClerkClient) RevokeSession(ctx context.Context, sessionID string) error {
	return c.do(ctx, http.MethodPost, "/sessions/"+url.PathEscape(sessionID)+"/revoke", nil)
}

// do runs one API call with retries. A 404 becomes ErrNotFound.
func (c *ClerkClient) do(ctx context.Context, method, path string, result any) error {
	attempt := func() error {
		req := c.http.R().SetContext(ctx)
		if result != nil {
			req.SetResult(result)
		}
		resp, err := req.Execute(method, path)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return fmt.Errorf("identity: %s %s: %w", method, path, err)
		}

		status := resp.StatusCode()
		switch {
		case status >= 200 && status < 300:
			return nil
		case status == http.StatusNotFound:
			return backoff.Permanent(ErrNotFound)
		}

		statusErr := &StatusError{Method: method, Path: path, Status: status, Body: truncate(resp.String(), 512)}
		if status == http.StatusTooManyRequests || status >= 500 {
			return statusErr
		}
		return backoff.Permanent(statusErr)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.cfg.InitialBackoff
	bo.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(c.cfg.MaxAttempts-1)), ctx)

	notify := func(err error, next time.Duration) {
		c.logger.Warn("identity provider call failed, retrying",
			slog.String("method", method),
			slog.String("path", path),
			slog.String("error", err.Error()),
			slog.Duration("retry_in", next),
		)
	}

	err := backoff.RetryNotify(attempt, policy, notify)
	if err != nil && !errors.Is(err, ErrNotFound) {
		c.logger.Error("identity provider call failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
	}
	return err
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
