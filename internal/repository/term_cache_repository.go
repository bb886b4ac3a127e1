package repository

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-redis/redis/v8"
)

// TermCacheRepository 是基于 Redis 的本体检索结果缓存。
type TermCacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

type redisTermCacheRepository struct {
	redisClient *redis.Client
	prefix      string
}

// NewTermCacheRepository 创建一个新的 TermCacheRepository 实例，所有键都带有 prefix 前缀。
func NewTermCacheRepository(redisClient *redis.Client, prefix string) TermCacheRepository {
	return &redisTermCacheRepository{redisClient: redisClient, prefix: prefix}
}

func (r *redisTermCacheRepository) key(k string) string {
	return r.prefix + ":" + k
}

// Get 读取缓存，键不存在时返回 (nil, false, nil)。
func (r *redisTermCacheRepository) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := r.redisClient.Get(ctx, r.key(key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrapf(err, "failed to get cached terms %s", key)
	}
	return data, true, nil
}

// Set 写入缓存。
func (r *redisTermCacheRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.redisClient.Set(ctx, r.key(key), value, ttl).Err(); err != nil {
		return errors.Wrapf(err, "failed to cache terms %s", key)
	}
	return nil
}
