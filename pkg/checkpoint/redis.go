package checkpoint

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	errs "imgaudit/pkg/errors"
	"imgaudit/pkg/logger"
	"imgaudit/pkg/retry"
)

const redisWriteAttempts = 3

// redisWriteBackoff spaces Set attempts when the server blips.
var redisWriteBackoff retry.BackoffStrategy = &retry.ExponentialBackoff{
	BaseDelay:    100 * time.Millisecond,
	MaxDelay:     2 * time.Second,
	Multiplier:   2.0,
	JitterFactor: 0.1,
}

// RedisOptions configures a RedisStore
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Key      string
}

// RedisStore keeps the cursor under a single Redis key
type RedisStore struct {
	client *redis.Client
	key    string
	logger logger.Logger
}

// NewRedisStore connects lazily to the Redis server at opts.Addr
func NewRedisStore(opts RedisOptions, log logger.Logger) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return NewRedisStoreWithClient(client, opts.Key, log)
}

// NewRedisStoreWithClient wraps an existing client
func NewRedisStoreWithClient(client *redis.Client, key string, log logger.Logger) *RedisStore {
	if key == "" {
		key = "imgaudit:checkpoint"
	}
	return &RedisStore{
		client: client,
		key:    key,
		logger: logger.OrNop(log),
	}
}

// Read loads the cursor, falling back to DefaultCursor
func (s *RedisStore) Read(ctx context.Context) int64 {
	raw, err := s.client.Get(ctx, s.key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.WarnWithFields("Checkpoint unreadable, starting from default", map[string]interface{}{
				"key":   s.key,
				"error": err.Error(),
			})
		}
		return DefaultCursor
	}

	id, err := parseCursor(raw)
	if err != nil {
		s.logger.WarnWithFields("Checkpoint content invalid, starting from default", map[string]interface{}{
			"key":     s.key,
			"content": raw,
		})
		return DefaultCursor
	}
	return id
}

// Write stores the cursor without expiry. Transport failures are retried a
// few times before the write is reported as failed.
func (s *RedisStore) Write(ctx context.Context, id int64) error {
	set := func(ctx context.Context) error {
		if err := s.client.Set(ctx, s.key, strconv.FormatInt(id, 10), 0).Err(); err != nil {
			return errs.New(errs.ErrorTypeNetwork, "redis set", err)
		}
		return nil
	}
	err := retry.Do(ctx, set, &retry.Config{
		MaxAttempts: redisWriteAttempts,
		Backoff:     redisWriteBackoff,
		RetryIf:     retry.DefaultRetryIf,
		Logger:      s.logger,
		Operation:   "checkpoint_write",
	})
	if err != nil {
		return errs.New(errs.ErrorTypeCheckpoint, "failed to write checkpoint to redis", err)
	}
	s.logger.DebugWithFields("Checkpoint saved", map[string]interface{}{
		"key":    s.key,
		"cursor": id,
	})
	return nil
}

// Close releases the underlying client
func (s *RedisStore) Close() error {
	return s.client.Close()
}
