// Package app wires configuration into a ready-to-run bot.
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/park285/bsky-shogi-thread/internal/bot"
	"github.com/park285/bsky-shogi-thread/internal/bsky"
	"github.com/park285/bsky-shogi-thread/internal/config"
	"github.com/park285/bsky-shogi-thread/internal/msgcat"
	"github.com/park285/bsky-shogi-thread/internal/render"
	"github.com/park285/bsky-shogi-thread/internal/runlock"
	"github.com/park285/bsky-shogi-thread/internal/session"
	"github.com/park285/bsky-shogi-thread/internal/shogi"
)

type Deps struct {
	Bot      *bot.Bot
	Client   *bsky.Client
	Session  *bsky.Session
	Sessions session.Store
	Redis    *redis.Client // nil without REDIS_URL
	Locker   *runlock.Locker
}

// New builds every collaborator and logs in. Extra client options are applied
// after the configured ones.
func New(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger, clientOpts ...bsky.Option) (deps *Deps, err error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	texts, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	if err := texts.Require(bot.MessageKeys()...); err != nil {
		return nil, err
	}

	deps = &Deps{}
	defer func() {
		if err != nil {
			_ = deps.Close()
			deps = nil
		}
	}()

	if cfg.RedisURL != "" {
		deps.Redis, err = openRedis(ctx, cfg.RedisURL)
		if err != nil {
			return deps, err
		}
		if cfg.LockEnabled() {
			deps.Locker = runlock.New(deps.Redis, cfg.RunLockKey, cfg.RunLockTTL)
		}
	}

	deps.Sessions, err = session.Open(ctx, cfg, deps.Redis)
	if err != nil {
		return deps, fmt.Errorf("open session store: %w", err)
	}

	opts := append([]bsky.Option{
		bsky.WithTimeout(cfg.HTTPTimeout),
		bsky.WithRetry(cfg.HTTPRetry),
		bsky.WithLogger(logger),
	}, clientOpts...)
	deps.Client = bsky.NewClient(cfg.BskyService, opts...)

	deps.Session, err = deps.Client.Login(ctx, deps.Sessions, cfg.BskyIdentifier, cfg.BskyPassword)
	if err != nil {
		return deps, err
	}

	deps.Bot = bot.New(bot.Config{
		Feed:     deps.Client,
		Rules:    shogi.Rules{},
		Notation: shogi.Notation{},
		Renderer: render.New(),
		Texts:    texts,
		Self:     bot.Identity{DID: deps.Session.DID, Handle: deps.Session.Handle},
		Scan: bot.ScanOptions{
			FeedLimit:    cfg.AuthorFeedLimit,
			ParentHeight: cfg.ThreadParentHeight,
		},
		Langs: cfg.PostLangs,
	})
	return deps, nil
}

func (d *Deps) Close() error {
	if d == nil {
		return nil
	}
	var err error
	if d.Sessions != nil {
		err = multierr.Append(err, d.Sessions.Close())
	}
	if d.Redis != nil {
		err = multierr.Append(err, d.Redis.Close())
	}
	return err
}

func openRedis(ctx context.Context, raw string) (*redis.Client, error) {
	raw = strings.TrimSpace(raw)
	opts, err := redis.ParseURL(raw)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}
