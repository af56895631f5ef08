package postgres

import (
	"context"
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib"

	"pnlmon/internal/application/port"
	"pnlmon/internal/domain/model"
)

// Repo keeps the long-lived aggregate history. The per-user cache concerns
// are served by the local stores; this one only records snapshots.
type Repo struct {
	db *sql.DB
}

func New(dsn string) (*Repo, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	r := &Repo{db: db}
	if err := r.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *Repo) Close() error { return r.db.Close() }

func (r *Repo) migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS pnl_snapshots (
  id BIGSERIAL PRIMARY KEY,
  ts_ms BIGINT NOT NULL,
  payload TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_pnl_snapshots_ts ON pnl_snapshots(ts_ms);
`)
	return err
}

func (r *Repo) SaveAggregate(ctx context.Context, userID string, agg model.AggregatePnL, ts int64) error {
	return nil
}

func (r *Repo) LoadAggregate(ctx context.Context, userID string) (model.AggregatePnL, bool, error) {
	return model.AggregatePnL{}, false, nil
}

func (r *Repo) SavePositions(ctx context.Context, userID string, payload string, ts int64) error {
	return nil
}

func (r *Repo) ClearUser(ctx context.Context, userID string) error {
	return nil
}

func (r *Repo) InsertSnapshot(ctx context.Context, ts int64, payload string) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO pnl_snapshots(ts_ms, payload) VALUES($1, $2)`, ts, payload)
	return err
}

var _ port.Repository = (*Repo)(nil)
