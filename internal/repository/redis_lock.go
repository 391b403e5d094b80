package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mansoorceksport/clubdesk/internal/domain"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const memberLockKeyPrefix = "lock:settlement:member:"

// releaseScript deletes the lock only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisMemberLocker implements domain.MemberLocker with one expiring Redis key per member.
type RedisMemberLocker struct {
	client   *redis.Client
	ttl      time.Duration
	wait     time.Duration
	interval time.Duration
	logger   *zap.Logger
}

// NewRedisMemberLocker creates a locker. ttl bounds how long a crashed holder blocks the
// member; wait bounds how long Acquire polls before reporting a conflict.
func NewRedisMemberLocker(client *redis.Client, ttl, wait time.Duration, logger *zap.Logger) *RedisMemberLocker {
	return &RedisMemberLocker{
		client:   client,
		ttl:      ttl,
		wait:     wait,
		interval: 25 * time.Millisecond,
		logger:   logger.Named("member-lock"),
	}
}

func (l *RedisMemberLocker) Acquire(ctx context.Context, memberID int64) (func(), error) {
	key := fmt.Sprintf("%s%d", memberLockKeyPrefix, memberID)
	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, domain.Persistence(fmt.Errorf("failed to acquire member lock: %w", err))
		}
		if ok {
			return func() { l.release(key, token) }, nil
		}
		if !time.Now().Before(deadline) {
			return nil, domain.ErrConcurrentSettlement
		}

		timer := time.NewTimer(l.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, domain.Persistence(ctx.Err())
		case <-timer.C:
		}
	}
}

// release runs on its own context so a cancelled request still frees the member.
func (l *RedisMemberLocker) release(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
		l.logger.Warn("failed to release member lock", zap.String("key", key), zap.Error(err))
	}
}
