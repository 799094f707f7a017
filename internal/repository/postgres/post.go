package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/devpulse/devpulse/internal/model"
)

func (db *DB) CreatePost(ctx context.Context, post *model.Post) error {
	post.ID = xid.New().String()
	post.CreatedAt = time.Now().UTC()

	rec := postRecord{
		ID:        post.ID,
		UserID:    post.UserID,
		Text:      post.Text,
		MediaURL:  post.MediaURL,
		Votes:     post.Votes,
		CreatedAt: post.CreatedAt,
	}
	if err := db.gorm.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("postgres: creating post: %w", err)
	}
	return nil
}

func (db *DB) ListPosts(ctx context.Context, limit int) ([]model.Post, error) {
	var rows []postRow
	err := db.gorm.WithContext(ctx).
		Table("posts").
		Select("posts.*, users.username").
		Joins("JOIN users ON users.id = posts.user_id").
		Order("posts.created_at DESC").
		Order("posts.id DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("postgres: listing posts: %w", err)
	}

	list := make([]model.Post, 0, len(rows))
	for _, r := range rows {
		list = append(list, model.Post{
			ID:        r.ID,
			UserID:    r.UserID,
			Username:  r.Username,
			Text:      r.Text,
			MediaURL:  r.MediaURL,
			Votes:     r.Votes,
			CreatedAt: r.CreatedAt,
		})
	}
	return list, nil
}
