package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/devpulse/devpulse/internal/model"
)

func (db *DB) CreatePost(ctx context.Context, post *model.Post) error {
	post.ID = xid.New().String()
	post.CreatedAt = time.Now()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO posts (id, user_id, text, media_url, votes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		post.ID, post.UserID, post.Text, post.MediaURL, post.Votes, post.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating post: %w", err)
	}
	return nil
}

func (db *DB) ListPosts(ctx context.Context, limit int) ([]model.Post, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT p.id, p.user_id, u.username, p.text, p.media_url, p.votes, p.created_at
		 FROM posts p
		 JOIN users u ON u.id = p.user_id
		 ORDER BY p.created_at DESC, p.id DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing posts: %w", err)
	}
	defer rows.Close()

	list := []model.Post{}
	for rows.Next() {
		var (
			p     model.Post
			media sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.UserID, &p.Username, &p.Text, &media, &p.Votes, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning post row: %w", err)
		}
		if media.Valid {
			p.MediaURL = &media.String
		}
		list = append(list, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating posts: %w", err)
	}
	return list, nil
}
