package service

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/devpulse/devpulse/internal/cache"
)

var (
	// emailShape is deliberately permissive: something@something.tld.
	emailShape = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

	usernameInvalid = regexp.MustCompile(`[^a-z0-9\-_]`)
	hyphenRun       = regexp.MustCompile(`-+`)
	underscoreRun   = regexp.MustCompile(`_+`)
	edgeSeparators  = regexp.MustCompile(`^[-_]+|[-_]+$`)
)

// SanitizeUsername lowercases raw, replaces anything outside [a-z0-9-_]
// with a hyphen, collapses runs of the same separator and strips
// separators from both ends. "Alice Dev!" becomes "alice-dev".
func SanitizeUsername(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = usernameInvalid.ReplaceAllString(s, "-")
	s = hyphenRun.ReplaceAllString(s, "-")
	s = underscoreRun.ReplaceAllString(s, "_")
	return edgeSeparators.ReplaceAllString(s, "")
}

// FallbackUsername derives a username from the last six characters of an
// identity-provider ID.
func FallbackUsername(id string) string {
	tail := id
	if len(tail) > 6 {
		tail = tail[len(tail)-6:]
	}
	return SanitizeUsername("user_" + tail)
}

// PlaceholderEmail stands in for accounts the provider reports without an
// address. It is unique per ID, so it never trips the email constraint.
func PlaceholderEmail(id string) string {
	return "no-email-" + id + "@placeholder.com"
}

func ValidEmail(email string) bool {
	return emailShape.MatchString(strings.TrimSpace(email))
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// invalidatePages drops the cached profile page of every non-empty
// username. Failures are logged; a stale page expires on its own.
func invalidatePages(ctx context.Context, pages cache.PageCache, logger *slog.Logger, usernames ...string) {
	keys := make([]string, 0, len(usernames))
	seen := make(map[string]bool, len(usernames))
	for _, u := range usernames {
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		keys = append(keys, cache.ProfileKey(u))
	}
	if len(keys) == 0 {
		return
	}
	if err := pages.Invalidate(ctx, keys...); err != nil {
		logger.Warn("page cache invalidation failed",
			slog.Any("keys", keys),
			slog.String("error", err.Error()),
		)
	}
}
