package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/devpulse/devpulse/internal/apperror"
	"github.com/devpulse/devpulse/internal/model"
	"github.com/devpulse/devpulse/internal/repository"
)

const MaxNotificationTitleLength = 200

type NotificationService struct {
	repo   repository.NotificationRepository
	logger *slog.Logger
}

func NewNotificationService(repo repository.NotificationRepository, logger *slog.Logger) *NotificationService {
	return &NotificationService{repo: repo, logger: logger}
}

// List returns the user's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, userID string) ([]model.Notification, error) {
	list, err := s.repo.ListNotifications(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}
	return list, nil
}

func (s *NotificationService) Create(ctx context.Context, userID, title, body string) (*model.Notification, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperror.ValidationFailed("title", "Title is required.")
	}
	if utf8.RuneCountInString(title) > MaxNotificationTitleLength {
		return nil, apperror.ValidationFailed("title",
			fmt.Sprintf("Title must be at most %d characters.", MaxNotificationTitleLength))
	}

	n := &model.Notification{UserID: userID, Title: title, Body: strings.TrimSpace(body)}
	if err := s.repo.CreateNotification(ctx, n); err != nil {
		return nil, fmt.Errorf("creating notification: %w", err)
	}
	s.logger.Info("notification created", slog.String("id", n.ID), slog.String("user_id", userID))
	return n, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, id string) error {
	if strings.TrimSpace(id) == "" {
		return apperror.ValidationFailed("id", "Notification id is required.")
	}
	return s.repo.MarkNotificationRead(ctx, userID, id)
}

// Clear deletes every notification the user owns and reports how many went.
func (s *NotificationService) Clear(ctx context.Context, userID string) (int64, error) {
	n, err := s.repo.ClearNotifications(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("clearing notifications: %w", err)
	}
	s.logger.Info("notifications cleared", slog.String("user_id", userID), slog.Int64("count", n))
	return n, nil
}
