package port

import (
	"context"

	"pnlmon/internal/domain/model"
)

type Repository interface {
	// Aggregate cache: last-known figures per user, for cold-start display
	SaveAggregate(ctx context.Context, userID string, agg model.AggregatePnL, ts int64) error
	LoadAggregate(ctx context.Context, userID string) (model.AggregatePnL, bool, error)

	// Cached position list (JSON payload), stored alongside the aggregate
	SavePositions(ctx context.Context, userID string, payload string, ts int64) error

	// ClearUser removes every cached entry for the user (logout)
	ClearUser(ctx context.Context, userID string) error

	// Snapshot history
	InsertSnapshot(ctx context.Context, ts int64, payload string) error

	// Connection management
	Close() error
}
