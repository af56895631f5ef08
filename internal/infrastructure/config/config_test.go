package config

import "testing"

func validConfig() *Config {
	var cfg Config
	cfg.Backend.BaseURL = "https://api.example.com"
	cfg.Spot.WsURL = "wss://stream.example.com"
	cfg.Derivatives.WsURL = "wss://socket.example.com"
	return &cfg
}

func TestApplyDefaults(t *testing.T) {
	cfg := validConfig()
	ApplyDefaults(cfg)

	if cfg.App.PollSeconds != 30 {
		t.Errorf("expected default poll_seconds=30, got %d", cfg.App.PollSeconds)
	}
	if cfg.App.SnapshotEveryMin != 5 {
		t.Errorf("expected default snapshot_every_min=5, got %d", cfg.App.SnapshotEveryMin)
	}
	if cfg.Spot.Quote != "USDT" {
		t.Errorf("expected default quote USDT, got %q", cfg.Spot.Quote)
	}
}

func TestValidateRequiresBackend(t *testing.T) {
	cfg := validConfig()
	cfg.Backend.BaseURL = ""
	if err := Validate(cfg); err == nil {
		t.Errorf("expected error for empty backend.base_url")
	}
}

func TestValidateRequiresFeedURLs(t *testing.T) {
	cfg := validConfig()
	cfg.Spot.WsURL = ""
	if err := Validate(cfg); err == nil {
		t.Errorf("expected error for empty spot.ws_url")
	}

	cfg = validConfig()
	cfg.Derivatives.WsURL = ""
	if err := Validate(cfg); err == nil {
		t.Errorf("expected error for empty derivatives.ws_url")
	}
}

func TestValidateRedisNeedsAddr(t *testing.T) {
	cfg := validConfig()
	cfg.Storage.Redis.Enabled = true
	if err := Validate(cfg); err == nil {
		t.Errorf("expected error for enabled redis without addr")
	}
}
