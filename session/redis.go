package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisPrefix = "tastereview:session:"

// Redis stores each session as a hash whose expiry is pushed back on every write.
type Redis struct {
	rdb *redis.Client
	ttl time.Duration
}

var _ Store = (*Redis)(nil)

func NewRedis(rdb *redis.Client, ttl time.Duration) *Redis {
	return &Redis{rdb: rdb, ttl: ttl}
}

// Dial connects to redis and checks the connection.
func Dial(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

func (r *Redis) Get(ctx context.Context, sid, key string) (string, bool, error) {
	value, err := r.rdb.HGet(ctx, redisPrefix+sid, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("hget session: %w", err)
	}
	return value, true, nil
}

func (r *Redis) Set(ctx context.Context, sid, key, value string) error {
	hash := redisPrefix + sid
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, hash, key, value)
		pipe.Expire(ctx, hash, r.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("hset session: %w", err)
	}
	return nil
}

func (r *Redis) Remove(ctx context.Context, sid string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := r.rdb.HDel(ctx, redisPrefix+sid, keys...).Err(); err != nil {
		return fmt.Errorf("hdel session: %w", err)
	}
	return nil
}
