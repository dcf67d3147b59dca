package lock

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"glampbook/internal/app/middleware"
	"glampbook/internal/pkg/errs"
)

// releaseScript deletes the key only while it still holds our token, so an
// expired lock re-acquired by someone else is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is a single-instance SET NX PX lock. TTL bounds how long a
// crashed holder keeps the key; Wait bounds how long Lock polls.
type RedisLocker struct {
	Client    *redis.Client
	Prefix    string
	TTL       time.Duration
	Wait      time.Duration
	PollEvery time.Duration
}

func NewRedisClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   0,
	})
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(context.Context) error, error) {
	if l.Client == nil {
		return nil, errs.New("lock: redis client not configured")
	}
	full := l.Prefix + key
	token := uuid.NewString()

	waitCtx, cancel := context.WithTimeout(ctx, l.wait())
	defer cancel()
	policy := backoff.WithContext(backoff.NewConstantBackOff(l.pollEvery()), waitCtx)
	err := backoff.Retry(func() error {
		ok, err := l.Client.SetNX(waitCtx, full, token, l.ttl()).Result()
		if err != nil {
			return backoff.Permanent(err)
		}
		if !ok {
			return middleware.ErrLockUnavailable
		}
		return nil
	}, policy)
	if err != nil {
		if errs.Is(err, middleware.ErrLockUnavailable) || waitCtx.Err() != nil {
			return nil, errs.Wrapf(middleware.ErrLockUnavailable, "%s", key)
		}
		return nil, errs.Wrapf(err, "lock %s", key)
	}

	return func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.Client, []string{full}, token).Err(); err != nil && !errs.Is(err, redis.Nil) {
			return errs.Wrapf(err, "unlock %s", key)
		}
		return nil
	}, nil
}

func (l *RedisLocker) ttl() time.Duration {
	if l.TTL <= 0 {
		return 10 * time.Second
	}
	return l.TTL
}

func (l *RedisLocker) wait() time.Duration {
	if l.Wait <= 0 {
		return 3 * time.Second
	}
	return l.Wait
}

func (l *RedisLocker) pollEvery() time.Duration {
	if l.PollEvery <= 0 {
		return 25 * time.Millisecond
	}
	return l.PollEvery
}

var _ middleware.Locker = (*RedisLocker)(nil)
