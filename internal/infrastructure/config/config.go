package config

import (
	"errors"
	"strings"

	"github.com/BurntSushi/toml"
)

type Config struct {
	App struct {
		PollSeconds      int `toml:"poll_seconds"`       // position snapshot interval
		SnapshotEveryMin int `toml:"snapshot_every_min"` // persisted history interval
	} `toml:"app"`

	Backend struct {
		BaseURL string `toml:"base_url"` // e.g. https://api.example.com
		Token   string `toml:"token"`    // bearer token; empty means no session
		UserID  string `toml:"user_id"`
	} `toml:"backend"`

	Spot struct {
		WsURL string `toml:"ws_url"` // e.g. wss://stream.binance.com:9443
		Quote string `toml:"quote"`  // quote suffix stripped from pair tickers
	} `toml:"spot"`

	Derivatives struct {
		WsURL string `toml:"ws_url"` // e.g. wss://socket.delta.exchange
	} `toml:"derivatives"`

	Storage struct {
		SQLite struct {
			Enabled bool   `toml:"enabled"`
			Path    string `toml:"path"`
		} `toml:"sqlite"`

		Redis struct {
			Enabled    bool   `toml:"enabled"`
			Addr       string `toml:"addr"`
			Password   string `toml:"password"`
			DB         int    `toml:"db"`
			Prefix     string `toml:"prefix"`
			TTLMinutes int    `toml:"ttl_minutes"`
		} `toml:"redis"`

		Postgres struct {
			Enabled bool   `toml:"enabled"`
			DSN     string `toml:"dsn"`
		} `toml:"postgres"`
	} `toml:"storage"`
}

func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func ApplyDefaults(cfg *Config) {
	if cfg.App.PollSeconds <= 0 {
		cfg.App.PollSeconds = 30
	}
	if cfg.App.SnapshotEveryMin <= 0 {
		cfg.App.SnapshotEveryMin = 5
	}
	if strings.TrimSpace(cfg.Spot.Quote) == "" {
		cfg.Spot.Quote = "USDT"
	}
	if cfg.Storage.SQLite.Enabled && strings.TrimSpace(cfg.Storage.SQLite.Path) == "" {
		cfg.Storage.SQLite.Path = "data/pnlmon.db"
	}
	if cfg.Storage.Redis.Enabled && strings.TrimSpace(cfg.Storage.Redis.Prefix) == "" {
		cfg.Storage.Redis.Prefix = "pnlmon"
	}
}

func Validate(cfg *Config) error {
	if strings.TrimSpace(cfg.Backend.BaseURL) == "" {
		return errors.New("backend.base_url is empty")
	}
	if strings.TrimSpace(cfg.Spot.WsURL) == "" {
		return errors.New("spot.ws_url is empty")
	}
	if strings.TrimSpace(cfg.Derivatives.WsURL) == "" {
		return errors.New("derivatives.ws_url is empty")
	}
	if cfg.Storage.Redis.Enabled && strings.TrimSpace(cfg.Storage.Redis.Addr) == "" {
		return errors.New("storage.redis.addr is empty but redis enabled")
	}
	if cfg.Storage.Postgres.Enabled && strings.TrimSpace(cfg.Storage.Postgres.DSN) == "" {
		return errors.New("storage.postgres.dsn is empty but postgres enabled")
	}
	return nil
}
