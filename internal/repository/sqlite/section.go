package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/devpulse/devpulse/internal/apperror"
	"github.com/devpulse/devpulse/internal/model"
)

const sectionColumns = `id, user_id, type, title, description, link, tags, created_at, updated_at`

// CreateSection inserts a new section item. ID and timestamps are assigned
// here and written back into item.
//
// xid IDs are 20 URL-safe chars and sort by creation time, which gives
// ListSections a stable tie-breaker for items created in the same instant.
func (db *DB) CreateSection(ctx context.Context, item *model.SectionItem) error {
	item.ID = xid.New().String()
	now := time.Now()
	item.CreatedAt = now
	item.UpdatedAt = now

	tags, err := encodeTags(item.Tags)
	if err != nil {
		return err
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO section_items (`+sectionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID,
		item.UserID,
		string(item.Type),
		item.Title,
		item.Description,
		item.Link,
		tags,
		item.CreatedAt,
		item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating section item: %w", err)
	}
	return nil
}

func (db *DB) GetSection(ctx context.Context, id string) (*model.SectionItem, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+sectionColumns+` FROM section_items WHERE id = ?`, id)
	item, err := scanSection(row)
	if err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("section item", id)
		}
		return nil, fmt.Errorf("sqlite: getting section item %s: %w", id, err)
	}
	return item, nil
}

// UpdateSection overwrites the editable fields. The category and owner
// never change after creation.
func (db *DB) UpdateSection(ctx context.Context, item *model.SectionItem) error {
	item.UpdatedAt = time.Now()

	tags, err := encodeTags(item.Tags)
	if err != nil {
		return err
	}

	result, err := db.conn.ExecContext(ctx,
		`UPDATE section_items
		 SET title = ?, description = ?, link = ?, tags = ?, updated_at = ?
		 WHERE id = ?`,
		item.Title,
		item.Description,
		item.Link,
		tags,
		item.UpdatedAt,
		item.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating section item %s: %w", item.ID, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("section item", item.ID)
	}
	return nil
}

func (db *DB) DeleteSection(ctx context.Context, id string) (int64, error) {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM section_items WHERE id = ?`, id)
	if err != nil {
		return 0, fmt.Errorf("sqlite: deleting section item %s: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	return n, nil
}

// ListSections returns every item the user owns, newest first.
func (db *DB) ListSections(ctx context.Context, userID string) ([]model.SectionItem, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+sectionColumns+`
		 FROM section_items
		 WHERE user_id = ?
		 ORDER BY created_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing section items: %w", err)
	}
	defer rows.Close()

	items := []model.SectionItem{}
	for rows.Next() {
		item, err := scanSection(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning section item row: %w", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating section items: %w", err)
	}
	return items, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanSection(s scanner) (*model.SectionItem, error) {
	var (
		item     model.SectionItem
		itemType string
		link     sql.NullString
		tags     string
	)
	err := s.Scan(
		&item.ID,
		&item.UserID,
		&itemType,
		&item.Title,
		&item.Description,
		&link,
		&tags,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	item.Type = model.SectionType(itemType)
	if link.Valid {
		item.Link = &link.String
	}
	item.Tags = []string{}
	if tags != "" {
		if err := json.Unmarshal([]byte(tags), &item.Tags); err != nil {
			return nil, fmt.Errorf("decoding tags of %s: %w", item.ID, err)
		}
	}
	return &item, nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	raw, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("sqlite: encoding tags: %w", err)
	}
	return string(raw), nil
}
