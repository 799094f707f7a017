// Package model defines the data structures used throughout the application.
package model

import "time"

// User is the local mirror of an identity-provider account.
//
// ID is the provider's user ID and doubles as our primary key, so a
// replayed webhook can always find the row it created before. Username is
// the public lookup key (/u/<username>) and is unique. Email is nullable:
// a NULL never collides with another NULL under the UNIQUE constraint.
type User struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	Email       *string   `json:"email"`
	DisplayName string    `json:"displayName"`
	Avatar      string    `json:"avatar"`
	Bio         string    `json:"bio"`
	Website     string    `json:"website"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Socials holds the four profile links. One row per user.
type Socials struct {
	GitHub    string `json:"github"`
	YouTube   string `json:"youtube"`
	LinkedIn  string `json:"linkedin"`
	Instagram string `json:"instagram"`
}

// Settings is the user's preference bag, already merged over the defaults
// from package settings.
type Settings map[string]any
