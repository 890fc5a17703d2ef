package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const blacklistKey = "autorefund:blacklist"

// zsetClient описывает команды Redis, нужные RedisBlacklist.
type zsetClient interface {
	ZRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd
	ZAddNX(ctx context.Context, key string, members ...redis.Z) *redis.IntCmd
	ZRem(ctx context.Context, key string, members ...interface{}) *redis.IntCmd
	Close() error
}

// RedisBlacklist хранит чёрный список в sorted set, со временем добавления в качестве score.
type RedisBlacklist struct {
	rdb zsetClient
	key string
	now func() time.Time
}

// NewRedisBlacklist подключается к Redis и проверяет соединение.
func NewRedisBlacklist(addr string) (*RedisBlacklist, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &RedisBlacklist{rdb: rdb, key: blacklistKey, now: time.Now}, nil
}

// Close закрывает соединение с Redis.
func (r *RedisBlacklist) Close() error {
	return r.rdb.Close()
}

// LoadBlacklist возвращает чёрный список в порядке добавления.
func (r *RedisBlacklist) LoadBlacklist(ctx context.Context) ([]string, error) {
	res, err := r.rdb.ZRange(ctx, r.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("zrange blacklist: %w", err)
	}
	return res, nil
}

// AddToBlacklist добавляет покупателя, сохраняя исходное время добавления при повторе.
func (r *RedisBlacklist) AddToBlacklist(ctx context.Context, username string) error {
	err := r.rdb.ZAddNX(ctx, r.key, redis.Z{
		Score:  float64(r.now().UnixNano()),
		Member: username,
	}).Err()
	if err != nil {
		return fmt.Errorf("zadd blacklist: %w", err)
	}
	return nil
}

// RemoveFromBlacklist удаляет покупателя.
func (r *RedisBlacklist) RemoveFromBlacklist(ctx context.Context, username string) error {
	if err := r.rdb.ZRem(ctx, r.key, username).Err(); err != nil {
		return fmt.Errorf("zrem blacklist: %w", err)
	}
	return nil
}
