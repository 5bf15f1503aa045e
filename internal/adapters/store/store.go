// Package store holds the Gateway backends selected by store.driver.
package store

import (
	"context"
	"fmt"

	"github.com/dkeye/Lobby/internal/config"
	"github.com/dkeye/Lobby/internal/core"
	"github.com/dkeye/Lobby/internal/domain"
	"github.com/rs/zerolog/log"
)

// Open connects the configured backend.
func Open(ctx context.Context, cfg config.StoreConfig) (core.Gateway, error) {
	log.Info().Str("module", "store").Str("driver", cfg.Driver).Msg("opening gateway")
	switch cfg.Driver {
	case "", "memory":
		return NewMemory(), nil
	case "sqlite":
		return OpenSQLite(cfg.SQLitePath)
	case "postgres":
		return OpenPostgres(ctx, cfg.PostgresDSN)
	case "redis":
		return OpenRedis(ctx, cfg.RedisURL, cfg.Retain)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// lastN returns a copy of the newest n messages of a save-ordered slice.
func lastN(msgs []domain.Message, n int) []domain.Message {
	if n > 0 && len(msgs) > n {
		msgs = msgs[len(msgs)-n:]
	}
	out := make([]domain.Message, len(msgs))
	copy(out, msgs)
	return out
}
