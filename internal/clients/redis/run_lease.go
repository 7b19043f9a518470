package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	pkgerrors "github.com/yungbote/mockgrader/internal/pkg/errors"
	"github.com/yungbote/mockgrader/internal/platform/envutil"
	"github.com/yungbote/mockgrader/internal/platform/logger"
)

var ErrLeaseHeld = pkgerrors.ErrLeaseHeld

// releaseScript deletes the key only while it still carries our token, so a
// run that outlived its TTL cannot drop a successor's lease.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type Locker interface {
	Acquire(ctx context.Context, name string, ttl time.Duration) (*Lease, error)
	Close() error
}

type Lease struct {
	rdb   *goredis.Client
	key   string
	token string
}

type locker struct {
	log    *logger.Logger
	rdb    *goredis.Client
	prefix string
}

// NewLockerFromEnv connects to REDIS_ADDR. Callers treat a missing address as
// "no locking" and skip construction.
func NewLockerFromEnv(log *logger.Logger) (Locker, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := envutil.String("REDIS_ADDR", "")
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    envutil.String("REDIS_PASSWORD", ""),
		DB:          envutil.Int("REDIS_DB", 0),
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewLocker(log, rdb, envutil.String("REDIS_LEASE_PREFIX", "mockgrader:lease:")), nil
}

func NewLocker(log *logger.Logger, rdb *goredis.Client, prefix string) Locker {
	return &locker{
		log:    log.With("service", "RedisRunLease"),
		rdb:    rdb,
		prefix: prefix,
	}
}

func LeaseKey(prefix, name string) string {
	return prefix + strings.TrimSpace(name)
}

func (l *locker) Acquire(ctx context.Context, name string, ttl time.Duration) (*Lease, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("lease ttl must be positive")
	}
	key := LeaseKey(l.prefix, name)
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis setnx %s: %w", key, err)
	}
	if !ok {
		return nil, ErrLeaseHeld
	}
	l.log.Debug("run lease acquired", "key", key, "ttl", ttl.String())
	return &Lease{rdb: l.rdb, key: key, token: token}, nil
}

// Release is a no-op on a nil lease.
func (le *Lease) Release(ctx context.Context) error {
	if le == nil || le.rdb == nil {
		return nil
	}
	if err := releaseScript.Run(ctx, le.rdb, []string{le.key}, le.token).Err(); err != nil && !errors.Is(err, goredis.Nil) {
		return fmt.Errorf("redis release %s: %w", le.key, err)
	}
	return nil
}

func (l *locker) Close() error {
	if l == nil || l.rdb == nil {
		return nil
	}
	return l.rdb.Close()
}
