// Package session persists the Bluesky login between runs so that each
// invocation can refresh tokens instead of logging in again.
package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/park285/bsky-shogi-thread/internal/bsky"
	"github.com/park285/bsky-shogi-thread/internal/config"
)

// Store is a bsky.SessionStore owning its backing resources.
type Store interface {
	bsky.SessionStore
	Close() error
}

// Open builds the store selected by cfg.SessionStore. Redis stores share rdb,
// which the caller keeps ownership of.
func Open(ctx context.Context, cfg *config.AppConfig, rdb *redis.Client) (Store, error) {
	switch cfg.SessionStore {
	case config.SessionStoreFile, "":
		return NewFileStore(cfg.SessionFile), nil
	case config.SessionStoreRedis:
		if rdb == nil {
			return nil, fmt.Errorf("redis session store needs a redis client")
		}
		return NewRedisStore(rdb, redisKey(cfg.BskyIdentifier)), nil
	case config.SessionStorePostgres:
		return OpenPostgres(ctx, cfg.DatabaseURL, cfg.BskyIdentifier)
	default:
		return nil, fmt.Errorf("unknown session store %q", cfg.SessionStore)
	}
}

func redisKey(identifier string) string {
	return "bsky:session:" + strings.ToLower(strings.TrimSpace(identifier))
}

func valid(s *bsky.Session) bool {
	return s != nil && s.DID != "" && s.RefreshJwt != ""
}
