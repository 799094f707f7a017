package service

import (
	"context"
	"fmt"
)

// HealthStore is what the health check needs from the store.
type HealthStore interface {
	Ping(ctx context.Context) error
	CountUsers(ctx context.Context) (int64, error)
}

// HealthReport is the data block of the health response.
type HealthReport struct {
	Connection       string `json:"connection"`
	Database         string `json:"database"`
	CurrentUserCount int64  `json:"currentUserCount"`
}

type HealthService struct {
	store  HealthStore
	driver string
}

// NewHealthService reports on store; driver names the backend in the report.
func NewHealthService(store HealthStore, driver string) *HealthService {
	return &HealthService{store: store, driver: driver}
}

func (s *HealthService) Check(ctx context.Context) (*HealthReport, error) {
	if err := s.store.Ping(ctx); err != nil {
		return nil, fmt.Errorf("pinging %s: %w", s.driver, err)
	}
	n, err := s.store.CountUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting users: %w", err)
	}
	return &HealthReport{Connection: "ok", Database: s.driver, CurrentUserCount: n}, nil
}
