package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures environment driven configuration values for the meetgrid service.
type Config struct {
	HTTPAddr          string
	SQLiteDSN         string
	FrontendURL       string
	RedisURL          string
	CookieSecure      bool
	HeartbeatInterval time.Duration
	HeartbeatTimeout  time.Duration
	RoomTTL           time.Duration
	SweepInterval     time.Duration
	LogLevel          slog.Level
}

// Load parses configuration values from the current process environment.
//
// Optional fields fall back to defaults. Missing required values and values
// that fail to parse are collected and reported together.
func Load() (Config, error) {
	cfg := Config{
		HTTPAddr:          ":3632",
		SQLiteDSN:         "file:meetgrid.db?_pragma=foreign_keys(1)",
		HeartbeatInterval: 15 * time.Second,
		HeartbeatTimeout:  25 * time.Second,
		RoomTTL:           31 * 24 * time.Hour,
		SweepInterval:     time.Hour,
		LogLevel:          slog.LevelInfo,
	}

	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 2)

	if addr := strings.TrimSpace(os.Getenv("MEETGRID_HTTP_ADDR")); addr != "" {
		cfg.HTTPAddr = addr
	}

	if dsn := strings.TrimSpace(os.Getenv("MEETGRID_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if frontend := strings.TrimSpace(os.Getenv("MEETGRID_FRONTEND_URL")); frontend == "" {
		missing = append(missing, "MEETGRID_FRONTEND_URL")
	} else {
		cfg.FrontendURL = strings.TrimRight(frontend, "/")
	}

	cfg.RedisURL = strings.TrimSpace(os.Getenv("MEETGRID_REDIS_URL"))

	if secureValue := strings.TrimSpace(os.Getenv("MEETGRID_COOKIE_SECURE")); secureValue != "" {
		secure, err := strconv.ParseBool(secureValue)
		if err != nil {
			invalid = append(invalid, "MEETGRID_COOKIE_SECURE")
		} else {
			cfg.CookieSecure = secure
		}
	}

	durations := []struct {
		key    string
		target *time.Duration
	}{
		{"MEETGRID_HEARTBEAT_INTERVAL", &cfg.HeartbeatInterval},
		{"MEETGRID_HEARTBEAT_TIMEOUT", &cfg.HeartbeatTimeout},
		{"MEETGRID_ROOM_TTL", &cfg.RoomTTL},
		{"MEETGRID_SWEEP_INTERVAL", &cfg.SweepInterval},
	}
	for _, d := range durations {
		value := strings.TrimSpace(os.Getenv(d.key))
		if value == "" {
			continue
		}
		parsed, err := time.ParseDuration(value)
		if err != nil || parsed <= 0 {
			invalid = append(invalid, d.key)
			continue
		}
		*d.target = parsed
	}

	if levelValue := strings.TrimSpace(os.Getenv("MEETGRID_LOG_LEVEL")); levelValue != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(levelValue)); err != nil {
			invalid = append(invalid, "MEETGRID_LOG_LEVEL")
		}
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("必須の環境変数が設定されていません: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("環境変数の値が不正です: %s", strings.Join(invalid, ", "))
	}
	if cfg.HeartbeatTimeout <= cfg.HeartbeatInterval {
		return Config{}, fmt.Errorf("MEETGRID_HEARTBEAT_TIMEOUT (%s) は MEETGRID_HEARTBEAT_INTERVAL (%s) より長くする必要があります", cfg.HeartbeatTimeout, cfg.HeartbeatInterval)
	}

	return cfg, nil
}
