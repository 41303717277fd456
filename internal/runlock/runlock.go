// Package runlock keeps two invocations from advancing the same game at once.
package runlock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrHeld is returned by Acquire when another holder owns the lock.
var ErrHeld = errors.New("run lock held elsewhere")

// releaseScript deletes the key only while it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type Locker struct {
	rdb *redis.Client
	key string
	ttl time.Duration
}

func New(rdb *redis.Client, key string, ttl time.Duration) *Locker {
	return &Locker{rdb: rdb, key: key, ttl: ttl}
}

// Lock is a held lock. Release it exactly once.
type Lock struct {
	l     *Locker
	token string
}

func (l *Locker) Acquire(ctx context.Context) (*Lock, error) {
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire %s: %w", l.key, err)
	}
	if !ok {
		return nil, ErrHeld
	}
	return &Lock{l: l, token: token}, nil
}

func (k *Lock) Token() string { return k.token }

// Release frees the lock if it has not expired and been taken over. The
// returned bool reports whether our token was still in place.
func (k *Lock) Release(ctx context.Context) (bool, error) {
	n, err := releaseScript.Run(ctx, k.l.rdb, []string{k.l.key}, k.token).Int()
	if err != nil {
		return false, fmt.Errorf("release %s: %w", k.l.key, err)
	}
	return n == 1, nil
}
