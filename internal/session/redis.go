package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const keyPrefix = "session:"

// touchScript runs the idle check and the activity refresh as one atomic unit
// per session id. Two concurrent requests can therefore never both observe a
// stale last_activity and disagree about the session's fate. The refresh only
// ever moves last_activity forward.
//
// KEYS[1] session key
// ARGV[1] now (unix ms)  ARGV[2] idle timeout (ms)  ARGV[3] gc ttl (ms)  ARGV[4] refresh flag
var touchScript = redis.NewScript(`
local la = redis.call('HGET', KEYS[1], 'last_activity')
if not la then
  return {-1}
end
local now = tonumber(ARGV[1])
if now - tonumber(la) > tonumber(ARGV[2]) then
  redis.call('DEL', KEYS[1])
  return {-2}
end
if ARGV[4] == '1' then
  redis.call('PEXPIRE', KEYS[1], ARGV[3])
  if now > tonumber(la) then
    redis.call('HSET', KEYS[1], 'last_activity', ARGV[1])
    la = ARGV[1]
  end
end
local user = redis.call('HGET', KEYS[1], 'user')
return {0, user, la}
`)

// RedisStore keeps sessions in Redis hashes under "session:<id>".
type RedisStore struct {
	client      *redis.Client
	idleTimeout time.Duration
	now         func() time.Time
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithIdleTimeout overrides the default idle timeout.
func WithIdleTimeout(d time.Duration) RedisOption {
	return func(s *RedisStore) {
		if d > 0 {
			s.idleTimeout = d
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) RedisOption {
	return func(s *RedisStore) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(redisURL string, opts ...RedisOption) (*RedisStore, error) {
	parsed, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	parsed.DialTimeout = 5 * time.Second
	parsed.ReadTimeout = 3 * time.Second
	parsed.WriteTimeout = 3 * time.Second

	client := redis.NewClient(parsed)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	s := &RedisStore{client: client, idleTimeout: DefaultIdleTimeout, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close releases the underlying client.
func (s *RedisStore) Close() error { return s.client.Close() }

func (s *RedisStore) key(id string) string { return keyPrefix + id }

// gcTTL keeps abandoned keys from living forever. It is a backstop well past
// the idle timeout; the logical expiry decision always happens in the script.
func (s *RedisStore) gcTTL() time.Duration { return 2 * s.idleTimeout }

func (s *RedisStore) Create(ctx context.Context, user Snapshot) (string, error) {
	id := uuid.NewString()
	data, err := json.Marshal(user)
	if err != nil {
		return "", err
	}
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, s.key(id), "user", data, "last_activity", s.now().UnixMilli())
	pipe.PExpire(ctx, s.key(id), s.gcTTL())
	if _, err := pipe.Exec(ctx); err != nil {
		return "", err
	}
	return id, nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (Session, error) {
	return s.run(ctx, id, false)
}

func (s *RedisStore) Touch(ctx context.Context, id string) (Session, error) {
	return s.run(ctx, id, true)
}

func (s *RedisStore) run(ctx context.Context, id string, refresh bool) (Session, error) {
	refreshArg := "0"
	if refresh {
		refreshArg = "1"
	}
	res, err := touchScript.Run(ctx, s.client, []string{s.key(id)},
		s.now().UnixMilli(), s.idleTimeout.Milliseconds(), s.gcTTL().Milliseconds(), refreshArg).Result()
	if err != nil {
		return Session{}, err
	}
	vals, ok := res.([]interface{})
	if !ok || len(vals) == 0 {
		return Session{}, fmt.Errorf("unexpected script result %T", res)
	}
	code, _ := vals[0].(int64)
	switch code {
	case -1:
		return Session{}, ErrNotFound
	case -2:
		return Session{}, ErrExpired
	}
	if len(vals) != 3 {
		return Session{}, fmt.Errorf("unexpected script result length %d", len(vals))
	}
	raw, _ := vals[1].(string)
	var user Snapshot
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return Session{}, fmt.Errorf("corrupt session %s: %w", id, err)
	}
	laStr, _ := vals[2].(string)
	la, err := parseMillis(laStr)
	if err != nil {
		return Session{}, fmt.Errorf("corrupt session %s: %w", id, err)
	}
	return Session{ID: id, User: user, LastActivity: la}, nil
}

func (s *RedisStore) Destroy(ctx context.Context, id string) error {
	return s.client.Del(ctx, s.key(id)).Err()
}

// SwitchOrganization retargets the session's current tenant without touching
// the home organization.
func (s *RedisStore) SwitchOrganization(ctx context.Context, id, orgID string) error {
	raw, err := s.client.HGet(ctx, s.key(id), "user").Result()
	if err == redis.Nil {
		return ErrNotFound
	} else if err != nil {
		return err
	}
	var user Snapshot
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return fmt.Errorf("corrupt session %s: %w", id, err)
	}
	user.CurrentOrganizationID = orgID
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return s.client.HSet(ctx, s.key(id), "user", data).Err()
}

func parseMillis(v string) (time.Time, error) {
	var ms int64
	if _, err := fmt.Sscanf(v, "%d", &ms); err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms), nil
}
