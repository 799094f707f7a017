package model

import "time"

// SectionType tags which showcase list a SectionItem belongs to.
type SectionType string

const (
	SectionOpenSource SectionType = "OPEN_SOURCE"
	SectionProject    SectionType = "PROJECT"
	SectionTutorial   SectionType = "TUTORIAL"
	SectionArticle    SectionType = "ARTICLE"
)

// SectionTypes lists every valid tag in display order.
var SectionTypes = []SectionType{SectionOpenSource, SectionProject, SectionTutorial, SectionArticle}

// Valid reports whether t is one of the four known tags.
func (t SectionType) Valid() bool {
	for _, known := range SectionTypes {
		if t == known {
			return true
		}
	}
	return false
}

// SectionItem is a single showcased artifact owned by a user.
type SectionItem struct {
	ID          string      `json:"id"`
	UserID      string      `json:"userId"`
	Type        SectionType `json:"type"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Link        *string     `json:"link"`
	Tags        []string    `json:"tags"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}
