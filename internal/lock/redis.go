package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"contractledger/internal/logging"
	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

const extendScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`

const (
	keyPrefix    = "contractledger:lock:"
	minRetryWait = 10 * time.Millisecond
	maxRetryWait = 200 * time.Millisecond
)

// Redis is a Locker shared by every replica pointing at the same server.
// While held, the lease is extended every ttl/3, so the TTL only bounds how
// long a crashed holder can block others.
type Redis struct {
	client *redis.Client
	script *redis.Script
	extend *redis.Script
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedis(client *redis.Client, ttl time.Duration, logger *zap.Logger) (*Redis, error) {
	if client == nil {
		return nil, errors.New("lock client not configured")
	}
	if ttl <= 0 {
		return nil, errors.New("lock ttl must be positive")
	}
	return &Redis{
		client: client,
		script: redis.NewScript(releaseScript),
		extend: redis.NewScript(extendScript),
		ttl:    ttl,
		logger: logging.OrNop(logger),
	}, nil
}

func (l *Redis) Lock(ctx context.Context, key string) (func(), error) {
	if key == "" {
		return nil, errors.New("lock key is empty")
	}
	fullKey := keyPrefix + key
	token := uuid.NewString()
	wait := minRetryWait

	for {
		ok, err := l.client.SetNX(ctx, fullKey, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			break
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		if wait *= 2; wait > maxRetryWait {
			wait = maxRetryWait
		}
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go l.keepAlive(fullKey, key, token, stop, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
			// Release must run even when the caller's ctx is already cancelled.
			releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if err := l.script.Run(releaseCtx, l.client, []string{fullKey}, token).Err(); err != nil {
				l.logger.Warn("lock: release failed", zap.String("key", key), zap.Error(err))
			}
		})
	}, nil
}

// keepAlive extends the lease until stop is closed or the token is no
// longer the holder.
func (l *Redis) keepAlive(fullKey, key, token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	interval := l.ttl / 3
	if interval <= 0 {
		interval = l.ttl
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
		ctx, cancel := context.WithTimeout(context.Background(), interval)
		n, err := l.extend.Run(ctx, l.client, []string{fullKey}, token, l.ttl.Milliseconds()).Int64()
		cancel()
		if err != nil {
			l.logger.Warn("lock: extend failed", zap.String("key", key), zap.Error(err))
			continue
		}
		if n == 0 {
			l.logger.Error("lock: lease lost", zap.String("key", key))
			return
		}
	}
}
