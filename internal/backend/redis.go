package backend

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-redis/redis/v8"

	"git.uuxo.net/uuxo/mimedb/internal/config"
	"git.uuxo.net/uuxo/mimedb/internal/mimestore"
)

// RedisBackend keeps the database in a single hash: field is the MIME type,
// value its space-joined extensions. Several instances can share it.
type RedisBackend struct {
	client *redis.Client
	key    string
}

// NewRedisBackend connects lazily to the server described by cfg.
func NewRedisBackend(cfg config.RedisConfig) *RedisBackend {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return NewRedisBackendWithClient(client, cfg.Key)
}

// NewRedisBackendWithClient wraps an existing client.
func NewRedisBackendWithClient(client *redis.Client, key string) *RedisBackend {
	return &RedisBackend{client: client, key: key}
}

func (b *RedisBackend) Name() string { return "redis" }

func (b *RedisBackend) Load(ctx context.Context) (*mimestore.Store, error) {
	fields, err := b.client.HGetAll(ctx, b.key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s from redis: %w", b.key, err)
	}

	s := mimestore.NewEmpty(nil)
	for mime, exts := range fields {
		for _, ext := range strings.Fields(exts) {
			s.Add(ext, mime)
		}
	}
	log.Debugf("Loaded %d MIME types from redis key %s", s.Len(), b.key)
	return s, nil
}

// Save replaces the hash in a MULTI/EXEC block so readers never see a partial table.
func (b *RedisBackend) Save(ctx context.Context, s *mimestore.Store) error {
	values := make([]interface{}, 0, 2*s.Len())
	for _, mime := range s.Types() {
		values = append(values, mime, strings.Join(s.Extensions(mime), " "))
	}

	_, err := b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, b.key)
		if len(values) > 0 {
			pipe.HSet(ctx, b.key, values...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write %s to redis: %w", b.key, err)
	}
	log.Debugf("Saved %d MIME types to redis key %s", s.Len(), b.key)
	return nil
}

func (b *RedisBackend) Close() error {
	return b.client.Close()
}
