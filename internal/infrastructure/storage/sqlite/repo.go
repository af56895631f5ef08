package sqlite

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"pnlmon/internal/application/port"
	"pnlmon/internal/domain/model"
)

// Repo is the local cold-start cache: last-known aggregate and position list
// per user, plus an aggregate snapshot history.
type Repo struct {
	db *sql.DB
}

func New(path string) (*Repo, error) {
	// ensure directory exists
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		_ = os.MkdirAll(dir, 0o755)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

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
CREATE TABLE IF NOT EXISTS pnl_cache (
  user_id TEXT PRIMARY KEY,
  total_pnl REAL NOT NULL,
  total_invested REAL NOT NULL,
  pnl_percent REAL NOT NULL,
  ts_ms INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS positions_cache (
  user_id TEXT PRIMARY KEY,
  payload TEXT NOT NULL,
  ts_ms INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS pnl_snapshots (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  ts_ms INTEGER NOT NULL,
  payload TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_pnl_snapshots_ts ON pnl_snapshots(ts_ms);
`)
	return err
}

func (r *Repo) SaveAggregate(ctx context.Context, userID string, agg model.AggregatePnL, ts int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO pnl_cache(user_id, total_pnl, total_invested, pnl_percent, ts_ms)
		VALUES(?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
		total_pnl=excluded.total_pnl, total_invested=excluded.total_invested,
		pnl_percent=excluded.pnl_percent, ts_ms=excluded.ts_ms
	`, userID, agg.TotalPnL, agg.TotalInvested, agg.PnLPercent, ts)
	return err
}

func (r *Repo) LoadAggregate(ctx context.Context, userID string) (model.AggregatePnL, bool, error) {
	var agg model.AggregatePnL
	err := r.db.QueryRowContext(ctx,
		`SELECT total_pnl, total_invested, pnl_percent FROM pnl_cache WHERE user_id=?`, userID).
		Scan(&agg.TotalPnL, &agg.TotalInvested, &agg.PnLPercent)
	if err == sql.ErrNoRows {
		return model.AggregatePnL{}, false, nil
	}
	if err != nil {
		return model.AggregatePnL{}, false, err
	}
	return agg, true, nil
}

func (r *Repo) SavePositions(ctx context.Context, userID string, payload string, ts int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO positions_cache(user_id, payload, ts_ms)
		VALUES(?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
		payload=excluded.payload, ts_ms=excluded.ts_ms
	`, userID, payload, ts)
	return err
}

func (r *Repo) ClearUser(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM pnl_cache WHERE user_id=?`, userID); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `DELETE FROM positions_cache WHERE user_id=?`, userID)
	return err
}

func (r *Repo) InsertSnapshot(ctx context.Context, ts int64, payload string) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO pnl_snapshots(ts_ms, payload) VALUES(?, ?)`, ts, payload)
	return err
}

var _ port.Repository = (*Repo)(nil)
