package model

// Profile is the denormalized view assembled by the profile aggregator.
// It embeds the User so the JSON stays flat ({"id":..., "username":...,
// "sections":{...}}), which is the shape the profile page renders directly.
type Profile struct {
	User
	OwnerID  string   `json:"ownerId"`
	Socials  Socials  `json:"socials"`
	Settings Settings `json:"settings"`
	Sections Sections `json:"sections"`
	Stats    Stats    `json:"stats"`
}

// Sections partitions a user's items by category, newest first.
// The four lists are always derived from the item collection, never stored.
type Sections struct {
	OpenSource []SectionItem `json:"openSource"`
	Projects   []SectionItem `json:"projects"`
	Tutorials  []SectionItem `json:"tutorials"`
	Articles   []SectionItem `json:"articles"`
}

// Stats are display counters. Only Posts is backed by data; the engagement
// counters are not tracked yet and stay zero.
type Stats struct {
	Posts     int `json:"posts"`
	Stars     int `json:"stars"`
	Views     int `json:"views"`
	Followers int `json:"followers"`
	Following int `json:"following"`
}
