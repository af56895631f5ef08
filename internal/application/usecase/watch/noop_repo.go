package watch

import (
	"context"

	"pnlmon/internal/application/port"
	"pnlmon/internal/domain/model"
)

type noopRepo struct{}

// NewNoopRepo is used when no cache store is enabled; cold starts then simply
// begin at zero.
func NewNoopRepo() port.Repository { return &noopRepo{} }

func (n *noopRepo) SaveAggregate(ctx context.Context, userID string, agg model.AggregatePnL, ts int64) error {
	return nil
}

func (n *noopRepo) LoadAggregate(ctx context.Context, userID string) (model.AggregatePnL, bool, error) {
	return model.AggregatePnL{}, false, nil
}

func (n *noopRepo) SavePositions(ctx context.Context, userID string, payload string, ts int64) error {
	return nil
}

func (n *noopRepo) ClearUser(ctx context.Context, userID string) error {
	return nil
}

func (n *noopRepo) InsertSnapshot(ctx context.Context, ts int64, payload string) error {
	return nil
}

func (n *noopRepo) Close() error { return nil }
