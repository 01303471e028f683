// Package redis provides a Redis-backed checkpoint.Store for production
// deployments, satisfying the single-writer-per-key contract (spec §5) with
// a Lua-scripted compare-and-set so two concurrent Saves for the same key
// cannot both succeed.
package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/careflow-systems/hospital-core/runtime/workflow/checkpoint"
)

// client is the subset of *redis.Client this store depends on, narrowed to
// plain Go return values so tests can substitute a fake without a live Redis
// server and without depending on go-redis's internal command-result types.
type client interface {
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Eval(ctx context.Context, script string, keys []string, args ...any) error
}

// redisClientAdapter satisfies client using a real *redis.Client.
type redisClientAdapter struct {
	rdb *goredis.Client
}

func (a redisClientAdapter) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	return a.rdb.HGetAll(ctx, key).Result()
}

func (a redisClientAdapter) Eval(ctx context.Context, script string, keys []string, args ...any) error {
	return a.rdb.Eval(ctx, script, keys, args...).Err()
}

// casScript atomically checks the stored version against ARGV[1] and, if it
// matches, writes the new version/state/updated_at. KEYS[1] is the checkpoint
// hash key; ARGV is expectedVersion, newVersion, state, updatedAtUnixNano.
const casScript = `
local current = redis.call('HGET', KEYS[1], 'version')
if current and current ~= ARGV[1] then
  return redis.error_reply('version_conflict')
end
if (not current) and ARGV[1] ~= '0' then
  return redis.error_reply('version_conflict')
end
redis.call('HSET', KEYS[1], 'version', ARGV[2], 'state', ARGV[3], 'updated_at', ARGV[4])
return redis.status_reply('OK')
`

// Store is a Redis-backed checkpoint.Store. Each key is stored as a hash
// with fields version, state, updated_at under a configurable key prefix.
type Store struct {
	rdb    client
	prefix string
}

// Option configures a Store.
type Option func(*Store)

// WithKeyPrefix overrides the default "checkpoint:" Redis key prefix.
func WithKeyPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = prefix }
}

// New returns a Store backed by rdb.
func New(rdb *goredis.Client, opts ...Option) *Store {
	return newWithClient(redisClientAdapter{rdb: rdb}, opts...)
}

func newWithClient(rdb client, opts ...Option) *Store {
	s := &Store{rdb: rdb, prefix: "checkpoint:"}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) redisKey(key checkpoint.Key) string {
	return s.prefix + key.String()
}

// Load implements checkpoint.Store.
func (s *Store) Load(ctx context.Context, key checkpoint.Key) (checkpoint.Record, error) {
	fields, err := s.rdb.HGetAll(ctx, s.redisKey(key))
	if err != nil {
		return checkpoint.Record{}, fmt.Errorf("checkpoint/redis: load: %w", err)
	}
	if len(fields) == 0 {
		return checkpoint.Record{}, checkpoint.ErrNotFound
	}

	var version int
	if _, err := fmt.Sscanf(fields["version"], "%d", &version); err != nil {
		return checkpoint.Record{}, fmt.Errorf("checkpoint/redis: parse version: %w", err)
	}
	var updatedAtNano int64
	if _, err := fmt.Sscanf(fields["updated_at"], "%d", &updatedAtNano); err != nil {
		return checkpoint.Record{}, fmt.Errorf("checkpoint/redis: parse updated_at: %w", err)
	}

	return checkpoint.Record{
		Version:   version,
		State:     []byte(fields["state"]),
		UpdatedAt: time.Unix(0, updatedAtNano).UTC(),
	}, nil
}

// Save implements checkpoint.Store via a server-side Lua compare-and-set so
// a stale writer observes ErrVersionConflict instead of silently clobbering
// a newer checkpoint.
func (s *Store) Save(ctx context.Context, key checkpoint.Key, expectedVersion int, state []byte) (checkpoint.Record, error) {
	newVersion := expectedVersion + 1
	now := time.Now().UTC()

	err := s.rdb.Eval(ctx, casScript, []string{s.redisKey(key)},
		fmt.Sprintf("%d", expectedVersion),
		fmt.Sprintf("%d", newVersion),
		string(state),
		fmt.Sprintf("%d", now.UnixNano()),
	)
	if err != nil {
		if isVersionConflict(err) {
			return checkpoint.Record{}, checkpoint.ErrVersionConflict
		}
		return checkpoint.Record{}, fmt.Errorf("checkpoint/redis: save: %w", err)
	}

	return checkpoint.Record{Version: newVersion, State: state, UpdatedAt: now}, nil
}

func isVersionConflict(err error) bool {
	return err != nil && strings.Contains(err.Error(), "version_conflict")
}
