package session

import (
	"context"
	"fmt"

	"tg_invest_bot/internal/config"
)

// Open constructs the session store named by SESSION_BACKEND.
func Open(ctx context.Context, cfg config.Config) (FullStore, error) {
	switch cfg.SessionBackend {
	case config.BackendMemory:
		return NewMemoryStore(), nil
	case config.BackendRedis:
		return NewRedisStore(ctx, cfg.RedisURL)
	case config.BackendMongo:
		return NewMongoStore(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown session backend %q", cfg.SessionBackend)
	}
}
