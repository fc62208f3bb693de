package storage

import (
	"context"

	"refurbtracker/internal/domain"
)

// Stats summarizes what the store currently holds.
type Stats struct {
	Products    int `json:"products"`
	ActiveUsers int `json:"active_users"`
	Rules       int `json:"rules"`
}

// Repository defines the data storage operations the tracker depends on.
// Keeping it an interface lets tests swap the Badger implementation for an
// in-memory one.
type Repository interface {
	// GetProductHistory returns every persisted product keyed by ProductKey.
	GetProductHistory(ctx context.Context) (map[string]domain.Product, error)
	// SaveProductHistory upserts the given products, chunked to respect the
	// store's transaction size limit.
	SaveProductHistory(ctx context.Context, products []domain.Product) error

	SaveUser(ctx context.Context, user domain.User) error
	GetUser(ctx context.Context, userID int64) (domain.User, error)
	// GetActiveUsers returns every user with IsActive set.
	GetActiveUsers(ctx context.Context) ([]domain.User, error)

	GetUserTrackingRules(ctx context.Context, userID int64) ([]domain.TrackingRule, error)
	SaveTrackingRule(ctx context.Context, userID int64, rule domain.TrackingRule) error
	DeleteTrackingRule(ctx context.Context, userID int64, ruleID string) error

	GetSystemState(ctx context.Context) (domain.SystemState, error)
	SaveSystemState(ctx context.Context, isTracking bool) error

	SaveNotification(ctx context.Context, userID int64, message string, productIDs []string) error

	Stats(ctx context.Context) (Stats, error)

	// Close gracefully shuts down the repository connection.
	Close() error
}
