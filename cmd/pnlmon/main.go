package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pnlmon/internal/application/port"
	"pnlmon/internal/application/service"
	"pnlmon/internal/application/usecase/watch"
	"pnlmon/internal/domain/model"
	"pnlmon/internal/infrastructure/backend"
	"pnlmon/internal/infrastructure/config"
	"pnlmon/internal/infrastructure/feed/deriv"
	"pnlmon/internal/infrastructure/feed/spot"
	"pnlmon/internal/infrastructure/logger"
	compositerepo "pnlmon/internal/infrastructure/storage/composite"
	postgresrepo "pnlmon/internal/infrastructure/storage/postgres"
	redisrepo "pnlmon/internal/infrastructure/storage/redis"
	sqliterepo "pnlmon/internal/infrastructure/storage/sqlite"
	"pnlmon/internal/interfaces/console"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// staticSession serves the configured credential; an empty token means no
// active session.
type staticSession struct {
	userID string
	token  string
}

func (s staticSession) Current() (port.Session, bool) {
	if s.token == "" {
		return port.Session{}, false
	}
	return port.Session{UserID: s.userID, Token: s.token}, true
}

func main() {
	logger.Setup()

	configPath := flag.String("config", "configs/config.toml", "path to config.toml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("config", *configPath).Msg("load config failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo := buildRepository(ctx, cfg)
	defer repo.Close()

	client := backend.NewClient(cfg.Backend.BaseURL)
	session := staticSession{userID: cfg.Backend.UserID, token: cfg.Backend.Token}

	// feeds (infrastructure -> application ports)
	factory := func(class model.InstrumentClass) port.PriceFeed {
		if class == model.ClassSpot {
			return spot.NewTradeFeed(cfg.Spot.WsURL, cfg.Spot.Quote)
		}
		return deriv.NewTickerFeed(cfg.Derivatives.WsURL, class)
	}

	svc := watch.NewService(watch.ServiceDeps{
		Loader:        service.NewSnapshotLoader(client, session),
		Mux:           service.NewFeedMux(factory),
		Valuation:     service.NewValuationEngine(),
		Cache:         service.NewCacheService(repo),
		Session:       session,
		Sink:          console.NewSink(),
		PollEvery:     time.Duration(cfg.App.PollSeconds) * time.Second,
		SnapshotEvery: time.Duration(cfg.App.SnapshotEveryMin) * time.Minute,
	})

	log.Info().
		Str("config", *configPath).
		Str("backend", cfg.Backend.BaseURL).
		Int("poll_seconds", cfg.App.PollSeconds).
		Msg("pnlmon started")

	if err := svc.Run(ctx); err != nil {
		log.Error().Err(err).Msg("watch service exited")
	}
}

func buildRepository(ctx context.Context, cfg *config.Config) port.Repository {
	var repos []port.Repository

	if cfg.Storage.SQLite.Enabled {
		r, err := sqliterepo.New(cfg.Storage.SQLite.Path)
		if err != nil {
			log.Error().Err(err).Str("path", cfg.Storage.SQLite.Path).Msg("sqlite init failed")
		} else {
			repos = append(repos, r)
		}
	}

	if cfg.Storage.Redis.Enabled {
		rdb := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Storage.Redis.Addr,
			Password: cfg.Storage.Redis.Password,
			DB:       cfg.Storage.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Error().Err(err).Str("addr", cfg.Storage.Redis.Addr).Msg("redis ping failed")
			_ = rdb.Close()
		} else {
			ttl := time.Duration(cfg.Storage.Redis.TTLMinutes) * time.Minute
			repos = append(repos, redisrepo.New(rdb, cfg.Storage.Redis.Prefix, ttl))
		}
	}

	if cfg.Storage.Postgres.Enabled {
		r, err := postgresrepo.New(cfg.Storage.Postgres.DSN)
		if err != nil {
			log.Error().Err(err).Msg("postgres init failed")
		} else {
			repos = append(repos, r)
		}
	}

	if len(repos) == 0 {
		log.Warn().Msg("no cache store enabled; cold starts begin at zero")
		return watch.NewNoopRepo()
	}
	return compositerepo.New(repos...)
}
