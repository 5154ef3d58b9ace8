package preference

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces preference keys in Redis.
const DefaultKeyPrefix = "lessonloop:prefs:"

// RedisStore keeps each snapshot as a JSON string under prefix+userID.
// Apply uses WATCH/MULTI so concurrent writers across processes still see
// exactly one winner per expected count.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisStore wraps an existing client. An empty prefix selects
// DefaultKeyPrefix.
func NewRedisStore(rdb *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisStore{rdb: rdb, prefix: prefix}
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

// Ping verifies Redis connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *RedisStore) key(userID string) string {
	return s.prefix + userID
}

func (s *RedisStore) Get(ctx context.Context, userID string) (Snapshot, error) {
	if userID == "" {
		return Snapshot{}, ErrEmptyUser
	}
	key := s.key(userID)

	def, err := json.Marshal(Default())
	if err != nil {
		return Snapshot{}, err
	}
	// SETNX makes first access create the default record exactly once.
	if err := s.rdb.SetNX(ctx, key, def, 0).Err(); err != nil {
		return Snapshot{}, fmt.Errorf("init preferences: %w", err)
	}

	raw, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return Snapshot{}, fmt.Errorf("read preferences: %w", err)
	}
	return decodeSnapshot(raw)
}

func (s *RedisStore) Apply(ctx context.Context, userID string, delta Delta, expected uint64) (ApplyResult, error) {
	if userID == "" {
		return ApplyResult{}, ErrEmptyUser
	}
	key := s.key(userID)

	var result ApplyResult
	txf := func(tx *redis.Tx) error {
		cur := Default()
		raw, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			if cur, err = decodeSnapshot(raw); err != nil {
				return err
			}
		}

		if cur.ChangeCount != expected {
			result = ApplyResult{Applied: false, Snapshot: cur}
			return nil
		}

		next := delta.ApplyTo(cur)
		next.ChangeCount = cur.ChangeCount + 1
		data, err := json.Marshal(next)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		if err != nil {
			return err
		}
		result = ApplyResult{Applied: true, Snapshot: next}
		return nil
	}

	err := s.rdb.Watch(ctx, txf, key)
	if errors.Is(err, redis.TxFailedErr) {
		// Another writer committed between WATCH and EXEC.
		cur, gerr := s.Get(ctx, userID)
		if gerr != nil {
			return ApplyResult{}, gerr
		}
		return ApplyResult{Applied: false, Snapshot: cur}, nil
	}
	if err != nil {
		return ApplyResult{}, fmt.Errorf("apply preferences: %w", err)
	}
	return result, nil
}

func decodeSnapshot(raw []byte) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(raw, &s); err != nil {
		return Snapshot{}, fmt.Errorf("decode preferences: %w", err)
	}
	return s.Normalize(), nil
}
