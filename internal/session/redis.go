package session

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps sessions in Redis as hashes under prefix+id, letting
// several console replicas share logins.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// RedisOptions holds connection settings for NewRedisClient.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisClient builds a pooled client with conservative timeouts.
func NewRedisClient(o RedisOptions) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         o.Addr,
		Password:     o.Password,
		DB:           o.DB,
		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

// Key returns the Redis key for a session id.
func (s *RedisStore) Key(id string) string { return s.prefix + id }

// Load implements Store.
func (s *RedisStore) Load(ctx context.Context, id string) (Data, error) {
	fields, err := s.client.HGetAll(ctx, s.Key(id)).Result()
	if err != nil {
		return Data{}, fmt.Errorf("%w: hgetall: %w", ErrStore, err)
	}
	if len(fields) == 0 {
		return Data{}, ErrNotFound
	}
	return Data{
		Credential: fields[string(FieldCredential)],
		Flash:      fields[string(FieldFlash)],
	}, nil
}

// Save implements Store.
func (s *RedisStore) Save(ctx context.Context, id string, data Data, ttl time.Duration) error {
	key := s.Key(id)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if data.Empty() {
			return nil
		}
		values := make(map[string]any, 2)
		if data.Credential != "" {
			values[string(FieldCredential)] = data.Credential
		}
		if data.Flash != "" {
			values[string(FieldFlash)] = data.Flash
		}
		pipe.HSet(ctx, key, values)
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: save: %w", ErrStore, err)
	}
	return nil
}

// SetField implements Store. Redis drops a hash once its last field is
// removed, which covers the empty-entry rule.
func (s *RedisStore) SetField(ctx context.Context, id string, f Field, value string, ttl time.Duration) error {
	if _, err := (Data{}).With(f, value); err != nil {
		return err
	}
	key := s.Key(id)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if value == "" {
			pipe.HDel(ctx, key, string(f))
			return nil
		}
		pipe.HSet(ctx, key, string(f), value)
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: set %s: %w", ErrStore, f, err)
	}
	return nil
}

// Delete implements Store.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.Key(id)).Err(); err != nil {
		return fmt.Errorf("%w: del: %w", ErrStore, err)
	}
	return nil
}

// Ping checks connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Close releases the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
