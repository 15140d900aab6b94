package kv

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-redis/redis/v8"
)

const redisKeyPrefix = "ploxora:kv:"

// RedisStore keeps a namespace as a hash of values plus a sorted set that
// records insertion order.
type RedisStore struct {
	rdb       *redis.Client
	namespace string
}

// NewRedisStore creates a store bound to a namespace
func NewRedisStore(rdb *redis.Client, namespace string) *RedisStore {
	return &RedisStore{rdb: rdb, namespace: namespace}
}

// NewRedisOpener returns an Opener backed by rdb
func NewRedisOpener(rdb *redis.Client) Opener {
	return func(namespace string) Store {
		return NewRedisStore(rdb, namespace)
	}
}

func (s *RedisStore) hashKey() string  { return redisKeyPrefix + s.namespace }
func (s *RedisStore) orderKey() string { return redisKeyPrefix + s.namespace + ":order" }
func (s *RedisStore) seqKey() string   { return redisKeyPrefix + s.namespace + ":seq" }

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := s.rdb.HGet(ctx, s.hashKey(), key).Bytes()
	if err == redis.Nil {
		return nil, notFound(s.namespace, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s/%s: %w", s.namespace, key, err)
	}
	return v, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	seq, err := s.rdb.Incr(ctx, s.seqKey()).Result()
	if err != nil {
		return fmt.Errorf("failed to store %s/%s: %w", s.namespace, key, err)
	}
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.hashKey(), key, value)
		// NX keeps the original insertion position on updates
		pipe.ZAddNX(ctx, s.orderKey(), &redis.Z{Score: float64(seq), Member: key})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store %s/%s: %w", s.namespace, key, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HDel(ctx, s.hashKey(), key)
		pipe.ZRem(ctx, s.orderKey(), key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", s.namespace, key, err)
	}
	return nil
}

func (s *RedisStore) Iterate(ctx context.Context, fn func(key string, value []byte) error) error {
	keys, err := s.rdb.ZRange(ctx, s.orderKey(), 0, -1).Result()
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", s.namespace, err)
	}
	if len(keys) == 0 {
		return nil
	}
	values, err := s.rdb.HMGet(ctx, s.hashKey(), keys...).Result()
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", s.namespace, err)
	}
	for i, k := range keys {
		var raw []byte
		switch v := values[i].(type) {
		case nil:
			// removed between the two reads
			continue
		case string:
			raw = []byte(v)
		default:
			raw = []byte(strconv.Quote(fmt.Sprint(v)))
		}
		if err := fn(k, raw); err != nil {
			return iterateDone(err)
		}
	}
	return nil
}
