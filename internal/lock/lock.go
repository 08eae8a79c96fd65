// Package lock guards against two runs sampling the same product at once.
package lock

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix  = "pricehist:run:"
	DefaultTTL = 10 * time.Minute
)

var ErrLocked = errors.New("another run holds the lock")

// Release frees a held lock.
type Release func(ctx context.Context) error

// Locker acquires a named run lock.
type Locker interface {
	Acquire(ctx context.Context, name string) (Release, error)
}

// Noop never blocks. It is used when no Redis is configured.
type Noop struct{}

func (Noop) Acquire(context.Context, string) (Release, error) {
	return func(context.Context) error { return nil }, nil
}

// Redis holds a lock as a key with a random token and a TTL, so a crashed run
// cannot keep the lock forever.
type Redis struct {
	Client *redis.Client
	TTL    time.Duration
}

// deletes the key only while it still holds our token
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// NewRedis accepts either a redis:// URL or a bare host:port address.
func NewRedis(url string, ttl time.Duration) (*Redis, error) {
	opts := &redis.Options{Addr: url}
	if strings.Contains(url, "://") {
		var err error
		if opts, err = redis.ParseURL(url); err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{Client: redis.NewClient(opts), TTL: ttl}, nil
}

func Key(name string) string {
	return keyPrefix + name
}

func (l *Redis) Acquire(ctx context.Context, name string) (Release, error) {
	key := Key(name)
	token := uuid.NewString()

	ok, err := l.Client.SetNX(ctx, key, token, l.TTL).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire %s: %w", key, err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, ErrLocked)
	}

	return func(ctx context.Context) error {
		return unlockScript.Run(ctx, l.Client, []string{key}, token).Err()
	}, nil
}

func (l *Redis) Close() error {
	return l.Client.Close()
}
