package notify

import (
	"cactus/backend/models"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisSendLog keeps one sorted set per user, scored by send time in
// milliseconds. Entries older than Retention are trimmed on append.
type RedisSendLog struct {
	Client    *redis.Client
	Prefix    string
	Retention time.Duration
}

func NewRedisSendLog(client *redis.Client) *RedisSendLog {
	return &RedisSendLog{
		Client:    client,
		Prefix:    "cactus:notifications:",
		Retention: 48 * time.Hour,
	}
}

func (l *RedisSendLog) key(userID string) string {
	return l.Prefix + userID
}

func member(entry models.NotificationLog) string {
	ref := entry.Ref
	if ref == "" {
		ref = uuid.NewString()
	}
	return string(entry.Kind) + "|" + ref
}

// reserveScript checks the daily count and the gap and appends in one step.
// KEYS[1] user set; ARGV: sent ms, day start ms, gap ms, limit, member,
// trim cutoff ms, ttl ms.
var reserveScript = redis.NewScript(`
local key = KEYS[1]
local sent = tonumber(ARGV[1])
if redis.call('ZCOUNT', key, ARGV[2], '+inf') >= tonumber(ARGV[4]) then
	return 0
end
local last = redis.call('ZREVRANGE', key, 0, 0, 'WITHSCORES')
if #last > 0 and sent - tonumber(last[2]) < tonumber(ARGV[3]) then
	return 0
end
redis.call('ZADD', key, sent, ARGV[5])
redis.call('ZREMRANGEBYSCORE', key, '-inf', '(' .. ARGV[6])
redis.call('PEXPIRE', key, ARGV[7])
return 1
`)

func (l *RedisSendLog) Append(ctx context.Context, entry models.NotificationLog) error {
	key := l.key(entry.UserID)
	cutoff := entry.SentAt.Add(-l.Retention).UnixMilli()

	_, err := l.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, key, redis.Z{Score: float64(entry.SentAt.UnixMilli()), Member: member(entry)})
		pipe.ZRemRangeByScore(ctx, key, "-inf", "("+strconv.FormatInt(cutoff, 10))
		pipe.Expire(ctx, key, l.Retention)
		return nil
	})
	if err != nil {
		return fmt.Errorf("send log append: %w", err)
	}
	return nil
}

func (l *RedisSendLog) Since(ctx context.Context, userID string, t time.Time) ([]models.NotificationLog, error) {
	zs, err := l.Client.ZRangeByScoreWithScores(ctx, l.key(userID), &redis.ZRangeBy{
		Min: strconv.FormatInt(t.UnixMilli(), 10),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("send log since: %w", err)
	}
	entries := make([]models.NotificationLog, 0, len(zs))
	for _, z := range zs {
		entries = append(entries, decodeEntry(userID, z))
	}
	return entries, nil
}

func (l *RedisSendLog) Last(ctx context.Context, userID string) (*models.NotificationLog, error) {
	zs, err := l.Client.ZRevRangeWithScores(ctx, l.key(userID), 0, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("send log last: %w", err)
	}
	if len(zs) == 0 {
		return nil, nil
	}
	entry := decodeEntry(userID, zs[0])
	return &entry, nil
}

func (l *RedisSendLog) Reserve(ctx context.Context, r Reservation) (bool, error) {
	sent := r.Entry.SentAt.UnixMilli()
	ok, err := reserveScript.Run(ctx, l.Client, []string{l.key(r.Entry.UserID)},
		sent,
		r.DayStart.UnixMilli(),
		r.MinGap.Milliseconds(),
		r.Limit,
		member(r.Entry),
		r.Entry.SentAt.Add(-l.Retention).UnixMilli(),
		l.Retention.Milliseconds(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("send log reserve: %w", err)
	}
	return ok == 1, nil
}

func (l *RedisSendLog) Cancel(ctx context.Context, entry models.NotificationLog) error {
	if err := l.Client.ZRem(ctx, l.key(entry.UserID), member(entry)).Err(); err != nil {
		return fmt.Errorf("send log cancel: %w", err)
	}
	return nil
}

func decodeEntry(userID string, z redis.Z) models.NotificationLog {
	raw, _ := z.Member.(string)
	kind, ref, _ := strings.Cut(raw, "|")
	return models.NotificationLog{
		UserID: userID,
		Kind:   models.NotificationKind(kind),
		Ref:    ref,
		SentAt: time.UnixMilli(int64(z.Score)).UTC(),
	}
}
