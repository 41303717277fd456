package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	SessionStoreFile     = "file"
	SessionStoreRedis    = "redis"
	SessionStorePostgres = "postgres"
)

type AppConfig struct {
	BskyService    string
	BskyIdentifier string
	BskyPassword   string

	SessionStore string
	SessionFile  string

	RedisURL    string
	DatabaseURL string

	ThreadParentHeight int
	AuthorFeedLimit    int
	PostLangs          []string
	MessagesDir        string

	HTTPTimeout time.Duration
	HTTPRetry   int

	RunLock    bool
	RunLockTTL time.Duration
	RunLockKey string
}

// LockEnabled reports whether invocations should take the Redis run lock.
func (c *AppConfig) LockEnabled() bool {
	return c.RunLock && c.RedisURL != ""
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		BskyService:        "https://bsky.social",
		SessionStore:       SessionStoreFile,
		SessionFile:        "config.json",
		ThreadParentHeight: 500,
		AuthorFeedLimit:    10,
		PostLangs:          []string{"ja"},
		HTTPTimeout:        10 * time.Second,
		HTTPRetry:          3,
		RunLock:            true,
		RunLockTTL:         120 * time.Second,
		RunLockKey:         "bsky-shogi-thread:run",
	}

	if v := strings.TrimSpace(os.Getenv("BSKY_SERVICE")); v != "" {
		cfg.BskyService = strings.TrimRight(v, "/")
	}
	cfg.BskyIdentifier = strings.TrimSpace(os.Getenv("BSKY_IDENTIFIER"))
	cfg.BskyPassword = strings.TrimSpace(os.Getenv("BSKY_PASSWORD"))

	if v := strings.TrimSpace(os.Getenv("SESSION_STORE")); v != "" {
		cfg.SessionStore = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv("SESSION_FILE")); v != "" {
		cfg.SessionFile = v
	}

	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))

	if v := strings.TrimSpace(os.Getenv("THREAD_PARENT_HEIGHT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ThreadParentHeight = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("AUTHOR_FEED_LIMIT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			cfg.AuthorFeedLimit = n
		}
	}
	if v, ok := os.LookupEnv("POST_LANGS"); ok {
		cfg.PostLangs = splitList(v)
	}
	cfg.MessagesDir = strings.TrimSpace(os.Getenv("MESSAGES_DIR"))

	if v := strings.TrimSpace(os.Getenv("HTTP_TIMEOUT_SEC")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.HTTPTimeout = time.Duration(n) * time.Second
		}
	}
	if v := strings.TrimSpace(os.Getenv("HTTP_RETRY")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.HTTPRetry = n
		}
	}

	if v := strings.TrimSpace(os.Getenv("RUN_LOCK")); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			cfg.RunLock = b
		}
	}
	if v := strings.TrimSpace(os.Getenv("RUN_LOCK_TTL_SEC")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RunLockTTL = time.Duration(n) * time.Second
		}
	}
	if v := strings.TrimSpace(os.Getenv("RUN_LOCK_KEY")); v != "" {
		cfg.RunLockKey = v
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) validate() error {
	if c.BskyIdentifier == "" {
		return errors.New("BSKY_IDENTIFIER is required")
	}
	if c.BskyPassword == "" {
		return errors.New("BSKY_PASSWORD is required")
	}
	switch c.SessionStore {
	case SessionStoreFile:
	case SessionStoreRedis:
		if c.RedisURL == "" {
			return errors.New("REDIS_URL is required for SESSION_STORE=redis")
		}
	case SessionStorePostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for SESSION_STORE=postgres")
		}
	default:
		return fmt.Errorf("unknown SESSION_STORE %q", c.SessionStore)
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
