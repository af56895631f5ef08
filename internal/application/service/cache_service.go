package service

import (
	"context"
	"encoding/json"
	"time"

	"pnlmon/internal/application/port"
	"pnlmon/internal/domain/model"

	"github.com/rs/zerolog/log"
)

// CacheService mirrors the latest aggregate and position list into the
// configured stores so a returning user sees last-known figures before the
// first refresh completes. Cache writes never fail the caller; errors are
// logged and the loop continues.
type CacheService struct {
	repo port.Repository
}

func NewCacheService(repo port.Repository) *CacheService {
	return &CacheService{repo: repo}
}

func (s *CacheService) Persist(ctx context.Context, userID string, agg model.AggregatePnL, positions []model.Position) {
	if userID == "" {
		return
	}
	ts := time.Now().UnixMilli()
	if err := s.repo.SaveAggregate(ctx, userID, agg, ts); err != nil {
		log.Error().Err(err).Str("user", userID).Msg("aggregate cache write failed")
	}
	b, err := json.Marshal(positions)
	if err != nil {
		log.Error().Err(err).Str("user", userID).Msg("positions marshal failed")
		return
	}
	if err := s.repo.SavePositions(ctx, userID, string(b), ts); err != nil {
		log.Error().Err(err).Str("user", userID).Msg("positions cache write failed")
	}
}

// LoadCached returns the cached aggregate, or zeros when nothing is cached or
// no user is given.
func (s *CacheService) LoadCached(ctx context.Context, userID string) model.AggregatePnL {
	if userID == "" {
		return model.AggregatePnL{}
	}
	agg, ok, err := s.repo.LoadAggregate(ctx, userID)
	if err != nil {
		log.Error().Err(err).Str("user", userID).Msg("aggregate cache read failed")
		return model.AggregatePnL{}
	}
	if !ok {
		return model.AggregatePnL{}
	}
	return agg
}

// ClearSession removes the user's cached entries on logout so a later session
// never sees another user's figures.
func (s *CacheService) ClearSession(ctx context.Context, userID string) {
	if userID == "" {
		return
	}
	if err := s.repo.ClearUser(ctx, userID); err != nil {
		log.Error().Err(err).Str("user", userID).Msg("cache clear failed")
	}
}

func (s *CacheService) SaveSnapshot(ctx context.Context, ts int64, agg model.AggregatePnL) {
	b, err := json.Marshal(agg)
	if err != nil {
		log.Error().Err(err).Msg("snapshot marshal failed")
		return
	}
	if err := s.repo.InsertSnapshot(ctx, ts, string(b)); err != nil {
		log.Error().Err(err).Msg("snapshot write failed")
	}
}
