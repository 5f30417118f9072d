package cachestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ponymod/derpiguard/tagmod/helpers"

	"github.com/go-redis/cache/v9"
	"github.com/redis/go-redis/v9"
)

// TagStore shared between bot instances through redis, with a small in-process LFU in front. Values are msgpack encoded by go-redis/cache.
type RedisTagStore struct {
	Data   *cache.Cache
	TTL    time.Duration
	Prefix string
}

var _ TagStore = (*RedisTagStore)(nil)

// Connects and pings redis before returning.
func NewRedisTagStore(ctx context.Context, redisURL string, ttl time.Duration) (*RedisTagStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &RedisTagStore{
		Data: cache.New(&cache.Options{
			Redis:      rdb,
			LocalCache: cache.NewTinyLFU(2_000, min(ttl, time.Minute)),
		}),
		TTL:    ttl,
		Prefix: "derpiguard/tags/",
	}, nil
}

// normalized URLs can be long, so keys are hashed
func (s *RedisTagStore) key(ref string) string {
	return s.Prefix + helpers.HashOfString(ref)
}

func (s *RedisTagStore) GetTags(ctx context.Context, ref string) ([][]string, bool, error) {
	var sets [][]string
	err := s.Data.Get(ctx, s.key(ref), &sets)
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return sets, true, nil
}

func (s *RedisTagStore) PutTags(ctx context.Context, ref string, sets [][]string) error {
	if sets == nil {
		sets = [][]string{}
	}
	return s.Data.Set(&cache.Item{
		Ctx:   ctx,
		Key:   s.key(ref),
		Value: sets,
		TTL:   s.TTL,
	})
}

func (s *RedisTagStore) Purge(ctx context.Context, ref string) error {
	err := s.Data.Delete(ctx, s.key(ref))
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil
	}
	return err
}
