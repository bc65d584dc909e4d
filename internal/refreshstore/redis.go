package refreshstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hitoshi/authgate/internal/model"
)

// ExpiredRetention は期限切れ後もRedis上にレコードを残す期間。
// この間は期限切れとして判別でき、経過後はRedisのキー失効で自動的に消える。
const ExpiredRetention = time.Hour

const defaultKeyPrefix = "authgate:refresh:"

// consumeScript はハッシュを読み出して同じスクリプト内で削除する。
// キーが存在しない場合は空の配列を返す。
const consumeScript = `
local values = redis.call("HGETALL", KEYS[1])
if #values == 0 then
  return values
end
redis.call("DEL", KEYS[1])
return values
`

var consumeLua = redis.NewScript(consumeScript)

// RedisStore はRedisのハッシュとキー失効による実装。
// DeleteExpiredはキー失効に任せるため常に0件を返す。
type RedisStore struct {
	rdb    redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewRedisStore はRedisStoreを生成する。
// prefixが空の場合は既定のプレフィックスを使用する。nowがnilの場合はtime.Nowを使用する。
func NewRedisStore(rdb redis.UniversalClient, prefix string, now func() time.Time) *RedisStore {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	if now == nil {
		now = time.Now
	}
	return &RedisStore{rdb: rdb, prefix: prefix, now: now}
}

// NewRedisClient はREDIS_URL形式の接続文字列からクライアントを生成する。
func NewRedisClient(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

func (s *RedisStore) key(token string) string {
	return s.prefix + token
}

// Put はトークンを登録する。
func (s *RedisStore) Put(ctx context.Context, token, userID string, ttl time.Duration) error {
	now := s.now()
	expiresAt := now.Add(ttl)
	key := s.key(token)

	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, key,
		"user_id", userID,
		"expires_at", strconv.FormatInt(expiresAt.UnixMilli(), 10),
		"created_at", strconv.FormatInt(now.UnixMilli(), 10),
	)
	pipe.PExpire(ctx, key, ttl+ExpiredRetention)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store refresh token: %w", err)
	}
	return nil
}

// Get はトークンのレコードを返す。存在しない場合はnilを返す。
func (s *RedisStore) Get(ctx context.Context, token string) (*model.RefreshToken, error) {
	values, err := s.rdb.HGetAll(ctx, s.key(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get refresh token: %w", err)
	}
	if len(values) == 0 {
		return nil, nil
	}
	return recordFromHash(token, values)
}

// Consume はLuaスクリプトでトークンを読み出しと同時に削除する。
func (s *RedisStore) Consume(ctx context.Context, token string) (*model.RefreshToken, error) {
	raw, err := consumeLua.Run(ctx, s.rdb, []string{s.key(token)}).StringSlice()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to consume refresh token: %w", err)
	}
	if len(raw) == 0 {
		return nil, nil
	}

	values := make(map[string]string, len(raw)/2)
	for i := 0; i+1 < len(raw); i += 2 {
		values[raw[i]] = raw[i+1]
	}
	return recordFromHash(token, values)
}

// recordFromHash はRedisハッシュのフィールドからレコードを復元する。
func recordFromHash(token string, values map[string]string) (*model.RefreshToken, error) {
	expiresAt, err := parseMillis(values["expires_at"])
	if err != nil {
		return nil, fmt.Errorf("corrupt refresh token record: %w", err)
	}
	createdAt, err := parseMillis(values["created_at"])
	if err != nil {
		return nil, fmt.Errorf("corrupt refresh token record: %w", err)
	}

	return &model.RefreshToken{
		Token:     token,
		UserID:    values["user_id"],
		ExpiresAt: expiresAt,
		CreatedAt: createdAt,
	}, nil
}

// Delete はトークンを削除する。
func (s *RedisStore) Delete(ctx context.Context, token string) error {
	if err := s.rdb.Del(ctx, s.key(token)).Err(); err != nil {
		return fmt.Errorf("failed to delete refresh token: %w", err)
	}
	return nil
}

// DeleteExpired はキー失効に任せるため何もしない。
func (s *RedisStore) DeleteExpired(ctx context.Context) (int64, error) {
	return 0, nil
}

func parseMillis(s string) (time.Time, error) {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms), nil
}

// compile-time interface check
var _ Store = (*RedisStore)(nil)
