// Package factory builds a state.Store from environment configuration.
package factory

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/postpilothq/postpilot/state"
	redisstore "github.com/postpilothq/postpilot/state/redis"
	sqlitestore "github.com/postpilothq/postpilot/state/sqlite"
)

func FromEnv(ctx context.Context) (state.Store, error) {
	_ = ctx

	backend := strings.ToLower(strings.TrimSpace(getenv("POSTPILOT_STATE_BACKEND", "sqlite")))
	switch backend {
	case "sqlite":
		path := getenv("POSTPILOT_SQLITE_PATH", "./.postpilot/state.db")
		return sqlitestore.New(path)

	case "redis":
		return newRedisStoreFromEnv()

	default:
		return nil, fmt.Errorf("unsupported POSTPILOT_STATE_BACKEND %q (use sqlite or redis)", backend)
	}
}

func newRedisStoreFromEnv() (state.Store, error) {
	addr := getenv("POSTPILOT_REDIS_ADDR", "127.0.0.1:6379")
	password := strings.TrimSpace(os.Getenv("POSTPILOT_REDIS_PASSWORD"))
	db := getenvInt("POSTPILOT_REDIS_DB", 0)
	ttl := getenvDuration("POSTPILOT_REDIS_TTL", 72*time.Hour)

	opts := []redisstore.Option{
		redisstore.WithPassword(password),
		redisstore.WithDB(db),
		redisstore.WithTTL(ttl),
	}
	return redisstore.New(addr, opts...)
}

func getenv(key, fallback string) string {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	return val
}

func getenvInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return d
}
