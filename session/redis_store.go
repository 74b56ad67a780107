package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const deleteSessionScript = `
local data = redis.call("GET", KEYS[1])
if not data then
  return 0
end
redis.call("DEL", KEYS[1])
if ARGV[1] ~= "" then
  redis.call("SREM", ARGV[2] .. ARGV[1], ARGV[3])
end
return 1
`

var deleteSessionLua = redis.NewScript(deleteSessionScript)

// KEYS[1] per-user index, ARGV[1] session key prefix. Returns how many
// indexed sessions were still live. Runs atomically with respect to Save.
const deleteUserSessionsScript = `
local ids = redis.call("SMEMBERS", KEYS[1])
local removed = 0
for _, id in ipairs(ids) do
  removed = removed + redis.call("DEL", ARGV[1] .. id)
end
redis.call("DEL", KEYS[1])
return removed
`

var deleteUserSessionsLua = redis.NewScript(deleteUserSessionsScript)

// RedisStore keeps sessions as JSON blobs whose TTL tracks ExpiresAt. A set per
// user indexes the live session ids so they can be revoked together.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewRedisStore creates a [Store] backed by client. prefix namespaces the keys
// and defaults to "sess".
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "sess"
	}
	return &RedisStore{
		redis:  client,
		prefix: prefix,
		now:    time.Now,
	}
}

func (s *RedisStore) key(id string) string {
	return s.prefix + ":" + id
}

func (s *RedisStore) userPrefix() string {
	return s.prefix + ":user:"
}

func (s *RedisStore) userKey(userID string) string {
	return s.userPrefix() + userID
}

// Save writes sess with a TTL equal to the time left until ExpiresAt.
func (s *RedisStore) Save(ctx context.Context, sess *Session) error {
	if sess == nil || sess.ID == "" {
		return errors.New("session: id required")
	}
	ttl := sess.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return errors.New("session: already expired")
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("session: encode: %w", err)
	}

	userKey := s.userKey(sess.UserID)
	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(sess.ID), data, ttl)
		pipe.SAdd(ctx, userKey, sess.ID)
		pipe.Expire(ctx, userKey, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Get loads a session by id.
func (s *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	data, err := s.redis.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		// A blob we cannot read is as good as absent; drop it.
		_ = s.redis.Del(ctx, s.key(id)).Err()
		return nil, ErrNotFound
	}
	return &sess, nil
}

// Delete removes a session. Deleting an unknown id is not an error.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	userID := ""
	if sess, err := s.Get(ctx, id); err == nil {
		userID = sess.UserID
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}

	if err := deleteSessionLua.Run(ctx, s.redis, []string{s.key(id)}, userID, s.userPrefix(), id).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// DeleteAllForUser removes every session of userID and returns how many were
// still live.
func (s *RedisStore) DeleteAllForUser(ctx context.Context, userID string) (int, error) {
	removed, err := deleteUserSessionsLua.Run(ctx, s.redis, []string{s.userKey(userID)}, s.prefix+":").Int()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return removed, nil
}
