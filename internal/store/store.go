// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/ashureev/yieldchat/internal/domain"
)

// Repository persists anonymous users and completed predictions.
type Repository interface {
	// GetUser retrieves a user by their user ID.
	GetUser(ctx context.Context, userID string) (*domain.User, error)

	// UpsertUser creates or updates a user record.
	UpsertUser(ctx context.Context, user *domain.User) error

	// UpdateLastSeen updates the last_seen_at timestamp for a user.
	UpdateLastSeen(ctx context.Context, userID string, lastSeen time.Time) error

	// RecordPrediction stores a completed conversation.
	RecordPrediction(ctx context.Context, rec *domain.PredictionRecord) error

	// ListPredictions returns the newest predictions of a user, newest first.
	ListPredictions(ctx context.Context, userID string, limit int) ([]*domain.PredictionRecord, error)

	// PurgePredictions removes predictions created before cutoff.
	PurgePredictions(ctx context.Context, cutoff time.Time) (int64, error)

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
