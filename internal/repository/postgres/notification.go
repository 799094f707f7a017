package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/devpulse/devpulse/internal/apperror"
	"github.com/devpulse/devpulse/internal/model"
)

func (db *DB) CreateNotification(ctx context.Context, n *model.Notification) error {
	n.ID = xid.New().String()
	n.CreatedAt = time.Now().UTC()

	rec := notificationRecord{
		ID:        n.ID,
		UserID:    n.UserID,
		Title:     n.Title,
		Body:      n.Body,
		Read:      n.Read,
		CreatedAt: n.CreatedAt,
	}
	if err := db.gorm.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("postgres: creating notification: %w", err)
	}
	return nil
}

func (db *DB) ListNotifications(ctx context.Context, userID string) ([]model.Notification, error) {
	var recs []notificationRecord
	err := db.gorm.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("postgres: listing notifications: %w", err)
	}

	list := make([]model.Notification, 0, len(recs))
	for _, r := range recs {
		list = append(list, model.Notification{
			ID:        r.ID,
			UserID:    r.UserID,
			Title:     r.Title,
			Body:      r.Body,
			Read:      r.Read,
			CreatedAt: r.CreatedAt,
		})
	}
	return list, nil
}

func (db *DB) MarkNotificationRead(ctx context.Context, userID, id string) error {
	result := db.gorm.WithContext(ctx).
		Model(&notificationRecord{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("read", true)
	if result.Error != nil {
		return fmt.Errorf("postgres: marking notification %s read: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperror.NotFound("notification", id)
	}
	return nil
}

func (db *DB) ClearNotifications(ctx context.Context, userID string) (int64, error) {
	result := db.gorm.WithContext(ctx).Where("user_id = ?", userID).Delete(&notificationRecord{})
	if result.Error != nil {
		return 0, fmt.Errorf("postgres: clearing notifications for %s: %w", userID, result.Error)
	}
	return result.RowsAffected, nil
}
