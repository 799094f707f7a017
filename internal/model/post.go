package model

import "time"

// Post is one entry in the community feed: short text, optionally with an
// image the author uploaded to the media host.
type Post struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	Text      string    `json:"text"`
	MediaURL  *string   `json:"mediaUrl"`
	Votes     int       `json:"votes"`
	CreatedAt time.Time `json:"createdAt"`
}
