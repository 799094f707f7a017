package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/devpulse/devpulse/internal/apperror"
	"github.com/devpulse/devpulse/internal/model"
)

func (db *DB) CreateSection(ctx context.Context, item *model.SectionItem) error {
	item.ID = xid.New().String()
	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now

	rec, err := newSectionRecord(item)
	if err != nil {
		return err
	}
	if err := db.gorm.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("postgres: creating section item: %w", err)
	}
	return nil
}

func (db *DB) GetSection(ctx context.Context, id string) (*model.SectionItem, error) {
	var rec sectionRecord
	err := db.gorm.WithContext(ctx).Where("id = ?", id).Take(&rec).Error
	if err != nil {
		if isNotFound(err) {
			return nil, apperror.NotFound("section item", id)
		}
		return nil, fmt.Errorf("postgres: getting section item %s: %w", id, err)
	}
	return rec.toModel()
}

// UpdateSection rewrites the editable columns. Owner and category are fixed
// at creation.
func (db *DB) UpdateSection(ctx context.Context, item *model.SectionItem) error {
	item.UpdatedAt = time.Now().UTC()
	rec, err := newSectionRecord(item)
	if err != nil {
		return err
	}

	result := db.gorm.WithContext(ctx).Model(&sectionRecord{}).Where("id = ?", item.ID).Updates(map[string]any{
		"title":       rec.Title,
		"description": rec.Description,
		"link":        rec.Link,
		"tags":        rec.Tags,
		"updated_at":  rec.UpdatedAt,
	})
	if result.Error != nil {
		return fmt.Errorf("postgres: updating section item %s: %w", item.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperror.NotFound("section item", item.ID)
	}
	return nil
}

func (db *DB) DeleteSection(ctx context.Context, id string) (int64, error) {
	result := db.gorm.WithContext(ctx).Where("id = ?", id).Delete(&sectionRecord{})
	if result.Error != nil {
		return 0, fmt.Errorf("postgres: deleting section item %s: %w", id, result.Error)
	}
	return result.RowsAffected, nil
}

func (db *DB) ListSections(ctx context.Context, userID string) ([]model.SectionItem, error) {
	var recs []sectionRecord
	err := db.gorm.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("postgres: listing section items: %w", err)
	}

	items := make([]model.SectionItem, 0, len(recs))
	for _, rec := range recs {
		item, err := rec.toModel()
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, nil
}
