package postgres

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"github.com/devpulse/devpulse/internal/model"
)

// Row types mirror migrations/000001_init.up.sql. Column tags are explicit
// because GORM's naming strategy would turn GitHub into git_hub.

type userRecord struct {
	ID          string    `gorm:"column:id;primaryKey"`
	Username    string    `gorm:"column:username"`
	Email       *string   `gorm:"column:email"`
	DisplayName string    `gorm:"column:display_name"`
	Avatar      string    `gorm:"column:avatar"`
	Bio         string    `gorm:"column:bio"`
	Website     string    `gorm:"column:website"`
	CreatedAt   time.Time `gorm:"column:created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

func (userRecord) TableName() string { return "users" }

func (r userRecord) toModel() *model.User {
	return &model.User{
		ID:          r.ID,
		Username:    r.Username,
		Email:       r.Email,
		DisplayName: r.DisplayName,
		Avatar:      r.Avatar,
		Bio:         r.Bio,
		Website:     r.Website,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

type socialsRecord struct {
	UserID    string `gorm:"column:user_id;primaryKey"`
	GitHub    string `gorm:"column:github"`
	YouTube   string `gorm:"column:youtube"`
	LinkedIn  string `gorm:"column:linkedin"`
	Instagram string `gorm:"column:instagram"`
}

func (socialsRecord) TableName() string { return "socials" }

type settingsRecord struct {
	UserID string         `gorm:"column:user_id;primaryKey"`
	Data   datatypes.JSON `gorm:"column:data"`
}

func (settingsRecord) TableName() string { return "settings" }

type sectionRecord struct {
	ID          string         `gorm:"column:id;primaryKey"`
	UserID      string         `gorm:"column:user_id"`
	Type        string         `gorm:"column:type"`
	Title       string         `gorm:"column:title"`
	Description string         `gorm:"column:description"`
	Link        *string        `gorm:"column:link"`
	Tags        datatypes.JSON `gorm:"column:tags"`
	CreatedAt   time.Time      `gorm:"column:created_at"`
	UpdatedAt   time.Time      `gorm:"column:updated_at"`
}

func (sectionRecord) TableName() string { return "section_items" }

func newSectionRecord(item *model.SectionItem) (*sectionRecord, error) {
	tags := item.Tags
	if tags == nil {
		tags = []string{}
	}
	raw, err := json.Marshal(tags)
	if err != nil {
		return nil, fmt.Errorf("postgres: encoding tags: %w", err)
	}
	return &sectionRecord{
		ID:          item.ID,
		UserID:      item.UserID,
		Type:        string(item.Type),
		Title:       item.Title,
		Description: item.Description,
		Link:        item.Link,
		Tags:        datatypes.JSON(raw),
		CreatedAt:   item.CreatedAt,
		UpdatedAt:   item.UpdatedAt,
	}, nil
}

func (r sectionRecord) toModel() (*model.SectionItem, error) {
	item := &model.SectionItem{
		ID:          r.ID,
		UserID:      r.UserID,
		Type:        model.SectionType(r.Type),
		Title:       r.Title,
		Description: r.Description,
		Link:        r.Link,
		Tags:        []string{},
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if len(r.Tags) > 0 {
		if err := json.Unmarshal(r.Tags, &item.Tags); err != nil {
			return nil, fmt.Errorf("postgres: decoding tags of %s: %w", r.ID, err)
		}
	}
	return item, nil
}

type notificationRecord struct {
	ID        string    `gorm:"column:id;primaryKey"`
	UserID    string    `gorm:"column:user_id"`
	Title     string    `gorm:"column:title"`
	Body      string    `gorm:"column:body"`
	Read      bool      `gorm:"column:read"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (notificationRecord) TableName() string { return "notifications" }

type postRecord struct {
	ID        string    `gorm:"column:id;primaryKey"`
	UserID    string    `gorm:"column:user_id"`
	Text      string    `gorm:"column:text"`
	MediaURL  *string   `gorm:"column:media_url"`
	Votes     int       `gorm:"column:votes"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (postRecord) TableName() string { return "posts" }

// postRow is a post joined with its author's username.
type postRow struct {
	postRecord
	Username string `gorm:"column:username"`
}
