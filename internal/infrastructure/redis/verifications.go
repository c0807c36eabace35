package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mridang-api/internal/domain"
	goredis "github.com/redis/go-redis/v9"
)

const keyPrefix = "otp:"

// Conditional scripts reply 0 when the key is gone, -1 when it holds another
// code, and otherwise 1 or the new attempt count.
const (
	deleteIfCodeScript = `
local raw = redis.call('GET', KEYS[1])
if not raw then return 0 end
if cjson.decode(raw).code ~= ARGV[1] then return -1 end
redis.call('DEL', KEYS[1])
return 1`

	incrementAttemptsScript = `
local raw = redis.call('GET', KEYS[1])
if not raw then return 0 end
local v = cjson.decode(raw)
if v.code ~= ARGV[1] then return -1 end
v.attempts = (v.attempts or 0) + 1
redis.call('SET', KEYS[1], cjson.encode(v), 'KEEPTTL')
return v.attempts`
)

// KV is the subset of the go-redis client the store needs.
type KV interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.StatusCmd
	Get(ctx context.Context, key string) *goredis.StringCmd
	Del(ctx context.Context, keys ...string) *goredis.IntCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *goredis.Cmd
}

// VerificationStore keeps pending codes in Redis as JSON, expiring with the record's TTL.
type VerificationStore struct {
	kv  KV
	now func() time.Time
}

func NewVerificationStore(kv KV) *VerificationStore {
	return &VerificationStore{kv: kv, now: time.Now}
}

func redisKey(channel domain.Channel, identifier string) string {
	return keyPrefix + string(channel) + ":" + identifier
}

func (s *VerificationStore) Put(ctx context.Context, v *domain.Verification) error {
	ttl := v.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return s.Delete(ctx, v.Channel, v.Identifier)
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal verification: %w", err)
	}
	if err := s.kv.Set(ctx, redisKey(v.Channel, v.Identifier), raw, ttl).Err(); err != nil {
		return fmt.Errorf("set verification: %w", err)
	}
	return nil
}

func (s *VerificationStore) Get(ctx context.Context, channel domain.Channel, identifier string) (*domain.Verification, error) {
	raw, err := s.kv.Get(ctx, redisKey(channel, identifier)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, fmt.Errorf("verification not found: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get verification: %w", err)
	}
	var v domain.Verification
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("unmarshal verification: %w", err)
	}
	if v.Expired(s.now()) {
		if err := s.Delete(ctx, channel, identifier); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("verification not found: %w", domain.ErrNotFound)
	}
	return &v, nil
}

func (s *VerificationStore) Delete(ctx context.Context, channel domain.Channel, identifier string) error {
	if err := s.kv.Del(ctx, redisKey(channel, identifier)).Err(); err != nil {
		return fmt.Errorf("delete verification: %w", err)
	}
	return nil
}

// DeleteIfCode deletes the record only while it still holds code.
func (s *VerificationStore) DeleteIfCode(ctx context.Context, channel domain.Channel, identifier, code string) error {
	_, err := s.eval(ctx, "delete verification", deleteIfCodeScript, channel, identifier, code)
	return err
}

// IncrementAttempts adds one failed attempt to the record holding code,
// keeping its TTL, and returns the new count.
func (s *VerificationStore) IncrementAttempts(ctx context.Context, channel domain.Channel, identifier, code string) (int, error) {
	return s.eval(ctx, "increment attempts", incrementAttemptsScript, channel, identifier, code)
}

func (s *VerificationStore) eval(ctx context.Context, op, script string, channel domain.Channel, identifier, code string) (int, error) {
	n, err := s.kv.Eval(ctx, script, []string{redisKey(channel, identifier)}, code).Int64()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	switch n {
	case 0:
		return 0, fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	case -1:
		return 0, fmt.Errorf("%s: %w", op, domain.ErrConflict)
	}
	return int(n), nil
}
