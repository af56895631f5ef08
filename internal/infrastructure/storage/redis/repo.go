package redis

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"pnlmon/internal/application/port"
	"pnlmon/internal/domain/model"
)

// Repo caches the latest aggregate per user in a hash and publishes every
// update on a pub/sub channel for downstream consumers.
type Repo struct {
	rdb     *redis.Client
	prefix  string
	ttl     time.Duration
	pubChan string
	stream  string
}

func New(rdb *redis.Client, prefix string, ttl time.Duration) *Repo {
	return &Repo{
		rdb:     rdb,
		prefix:  prefix,
		ttl:     ttl,
		pubChan: prefix + ":pnl:pub",
		stream:  prefix + ":pnl:history",
	}
}

func (r *Repo) aggKey(userID string) string       { return r.prefix + ":pnl:" + userID }
func (r *Repo) positionsKey(userID string) string { return r.prefix + ":positions:" + userID }

func (r *Repo) SaveAggregate(ctx context.Context, userID string, agg model.AggregatePnL, ts int64) error {
	pipe := r.rdb.Pipeline()
	pipe.HSet(ctx, r.aggKey(userID), map[string]any{
		"total_pnl":      strconv.FormatFloat(agg.TotalPnL, 'f', -1, 64),
		"total_invested": strconv.FormatFloat(agg.TotalInvested, 'f', -1, 64),
		"pnl_percent":    strconv.FormatFloat(agg.PnLPercent, 'f', -1, 64),
		"ts_ms":          ts,
	})
	if r.ttl > 0 {
		pipe.Expire(ctx, r.aggKey(userID), r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}

	// publish for live consumers
	b, _ := json.Marshal(struct {
		UserID string  `json:"user_id"`
		Ts     int64   `json:"ts_ms"`
		Agg    any     `json:"aggregate"`
		Pnl    float64 `json:"total_pnl"`
	}{UserID: userID, Ts: ts, Agg: agg, Pnl: agg.TotalPnL})
	return r.rdb.Publish(ctx, r.pubChan, string(b)).Err()
}

func (r *Repo) LoadAggregate(ctx context.Context, userID string) (model.AggregatePnL, bool, error) {
	vals, err := r.rdb.HGetAll(ctx, r.aggKey(userID)).Result()
	if err != nil {
		return model.AggregatePnL{}, false, err
	}
	if len(vals) == 0 {
		return model.AggregatePnL{}, false, nil
	}

	var agg model.AggregatePnL
	agg.TotalPnL, _ = strconv.ParseFloat(vals["total_pnl"], 64)
	agg.TotalInvested, _ = strconv.ParseFloat(vals["total_invested"], 64)
	agg.PnLPercent, _ = strconv.ParseFloat(vals["pnl_percent"], 64)
	return agg, true, nil
}

func (r *Repo) SavePositions(ctx context.Context, userID string, payload string, ts int64) error {
	return r.rdb.Set(ctx, r.positionsKey(userID), payload, r.ttl).Err()
}

func (r *Repo) ClearUser(ctx context.Context, userID string) error {
	return r.rdb.Del(ctx, r.aggKey(userID), r.positionsKey(userID)).Err()
}

func (r *Repo) InsertSnapshot(ctx context.Context, ts int64, payload string) error {
	// XADD <stream> * ts payload
	return r.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: r.stream,
		Values: map[string]any{
			"ts_ms":   ts,
			"payload": payload,
		},
	}).Err()
}

func (r *Repo) Close() error { return r.rdb.Close() }

var _ port.Repository = (*Repo)(nil)
