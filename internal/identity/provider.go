// Package identity talks to the hosted identity provider: its account
// management API and the signed lifecycle events it pushes to us.
package identity

import (
	"context"
	"errors"
	"strings"
)

// ErrNotFound means the provider has no account (or session) with that ID.
var ErrNotFound = errors.New("identity: not found")

// Provider is the account-management capability the services depend on.
// One adapter is picked at startup from configuration.
type Provider interface {
	GetUser(ctx context.Context, id string) (*ProviderUser, error)
	DeleteUser(ctx context.Context, id string) error
	RevokeSession(ctx context.Context, sessionID string) error
}

type EmailAddress struct {
	ID           string `json:"id"`
	EmailAddress string `json:"email_address"`
}

// ProviderUser is the account shape shared by the management API and the
// user.* webhook events. Nullable fields are pointers so "absent" and
// "empty" stay distinguishable.
type ProviderUser struct {
	ID                    string         `json:"id"`
	Username              *string        `json:"username"`
	FirstName             *string        `json:"first_name"`
	LastName              *string        `json:"last_name"`
	ImageURL              string         `json:"image_url"`
	ProfileImageURL       string         `json:"profile_image_url"`
	PrimaryEmailAddressID *string        `json:"primary_email_address_id"`
	EmailAddresses        []EmailAddress `json:"email_addresses"`
}

// PrimaryEmail returns the address flagged as primary, else the first one,
// else "".
func (u *ProviderUser) PrimaryEmail() string {
	if len(u.EmailAddresses) == 0 {
		return ""
	}
	if u.PrimaryEmailAddressID != nil {
		for _, e := range u.EmailAddresses {
			if e.ID == *u.PrimaryEmailAddressID {
				return e.EmailAddress
			}
		}
	}
	return u.EmailAddresses[0].EmailAddress
}

func (u *ProviderUser) AvatarURL() string {
	if u.ImageURL != "" {
		return u.ImageURL
	}
	return u.ProfileImageURL
}

// FullName joins first and last name, trimmed.
func (u *ProviderUser) FullName() string {
	var first, last string
	if u.FirstName != nil {
		first = *u.FirstName
	}
	if u.LastName != nil {
		last = *u.LastName
	}
	return strings.TrimSpace(first + " " + last)
}
