// Package repository declares the storage interfaces the service layer
// depends on. Implementations live in the sqlite and postgres sub-packages;
// services never import either of them directly.
//
// Error contract for every implementation:
//   - a missing row is an apperror.ErrNotFound
//   - a unique violation is apperror.ConflictField with Field set to the
//     colliding column ("id", "username" or "email")
package repository

import (
	"context"

	"github.com/devpulse/devpulse/internal/model"
)

// UserUpdate carries a partial change to a User. A nil field is left
// untouched. Socials, when non-nil, rewrites all four links (creating the
// row if it is missing).
type UserUpdate struct {
	Username    *string
	Email       *string
	DisplayName *string
	Avatar      *string
	Bio         *string
	Website     *string
	Socials     *model.Socials
}

// IsEmpty reports whether the update would change nothing.
func (u UserUpdate) IsEmpty() bool {
	return u.Username == nil && u.Email == nil && u.DisplayName == nil &&
		u.Avatar == nil && u.Bio == nil && u.Website == nil && u.Socials == nil
}

type UserRepository interface {
	// CreateUser inserts the user together with an empty Socials and
	// Settings row. CreatedAt/UpdatedAt are filled in on the passed struct.
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	// FindUser resolves a username first, then falls back to the ID.
	FindUser(ctx context.Context, identifier string) (*model.User, error)
	UpdateUser(ctx context.Context, id string, update UserUpdate) error
	// DeleteUser removes every row with the given ID (cascading to owned
	// rows) and returns how many users were deleted. Zero is not an error.
	DeleteUser(ctx context.Context, id string) (int64, error)
	CountUsers(ctx context.Context) (int64, error)
	// GetSocials returns empty links when the user has no Socials row.
	GetSocials(ctx context.Context, userID string) (*model.Socials, error)
}

type SettingsRepository interface {
	// GetSettings returns the raw stored bag (possibly empty, never nil).
	GetSettings(ctx context.Context, userID string) (map[string]any, error)
	SaveSettings(ctx context.Context, userID string, data map[string]any) error
}

type SectionRepository interface {
	CreateSection(ctx context.Context, item *model.SectionItem) error
	GetSection(ctx context.Context, id string) (*model.SectionItem, error)
	// UpdateSection overwrites title, description, link and tags.
	UpdateSection(ctx context.Context, item *model.SectionItem) error
	// DeleteSection returns the number of rows removed (0 or 1).
	DeleteSection(ctx context.Context, id string) (int64, error)
	// ListSections returns the user's items ordered newest first.
	ListSections(ctx context.Context, userID string) ([]model.SectionItem, error)
}

type NotificationRepository interface {
	CreateNotification(ctx context.Context, n *model.Notification) error
	ListNotifications(ctx context.Context, userID string) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, userID, id string) error
	ClearNotifications(ctx context.Context, userID string) (int64, error)
}

type PostRepository interface {
	CreatePost(ctx context.Context, post *model.Post) error
	// ListPosts returns up to limit posts from every author, newest first,
	// with the author's current username filled in.
	ListPosts(ctx context.Context, limit int) ([]model.Post, error)
}

// Store is the full set of repositories backed by one database.
type Store interface {
	UserRepository
	SettingsRepository
	SectionRepository
	NotificationRepository
	PostRepository
	Ping(ctx context.Context) error
	Close() error
}
