package composite

import (
	"context"

	"pnlmon/internal/application/port"
	"pnlmon/internal/domain/model"
)

// Repo fans writes out to every configured store. Reads come from the first
// store that has the value.
type Repo struct {
	repos []port.Repository
}

func New(repos ...port.Repository) *Repo {
	// nil repos are allowed; filter in constructor for safety
	out := make([]port.Repository, 0, len(repos))
	for _, r := range repos {
		if r != nil {
			out = append(out, r)
		}
	}
	return &Repo{repos: out}
}

func (r *Repo) SaveAggregate(ctx context.Context, userID string, agg model.AggregatePnL, ts int64) error {
	var firstErr error
	for _, repo := range r.repos {
		if err := repo.SaveAggregate(ctx, userID, agg, ts); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (r *Repo) LoadAggregate(ctx context.Context, userID string) (model.AggregatePnL, bool, error) {
	var firstErr error
	for _, repo := range r.repos {
		agg, ok, err := repo.LoadAggregate(ctx, userID)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if ok {
			return agg, true, nil
		}
	}
	return model.AggregatePnL{}, false, firstErr
}

func (r *Repo) SavePositions(ctx context.Context, userID string, payload string, ts int64) error {
	var firstErr error
	for _, repo := range r.repos {
		if err := repo.SavePositions(ctx, userID, payload, ts); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (r *Repo) ClearUser(ctx context.Context, userID string) error {
	var firstErr error
	for _, repo := range r.repos {
		if err := repo.ClearUser(ctx, userID); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (r *Repo) InsertSnapshot(ctx context.Context, ts int64, payload string) error {
	var firstErr error
	for _, repo := range r.repos {
		if err := repo.InsertSnapshot(ctx, ts, payload); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (r *Repo) Close() error {
	var firstErr error
	for _, repo := range r.repos {
		if err := repo.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

var _ port.Repository = (*Repo)(nil)
