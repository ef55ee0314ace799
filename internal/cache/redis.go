package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/tripbooking/config"
	"github.com/Domenick1991/tripbooking/internal/domain"
	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

// RedisCache keeps catalog records that do not change during a booking.
// Slot counters and promo usage are never stored here.
type RedisCache struct {
	client        *redis.Client
	experienceTTL time.Duration
}

func NewRedisCache(cfg config.RedisConfig, experienceTTL time.Duration) *RedisCache {
	return NewRedisCacheWithClient(
		redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		experienceTTL,
	)
}

func NewRedisCacheWithClient(client *redis.Client, experienceTTL time.Duration) *RedisCache {
	return &RedisCache{client: client, experienceTTL: experienceTTL}
}

// GetExperience returns nil, nil on a cache miss.
func (c *RedisCache) GetExperience(ctx context.Context, id string) (*domain.Experience, error) {
	data, err := c.client.Get(ctx, experienceKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var exp domain.Experience
	if err := json.Unmarshal(data, &exp); err != nil {
		return nil, err
	}
	return &exp, nil
}

func (c *RedisCache) SetExperience(ctx context.Context, exp *domain.Experience) error {
	payload, err := json.Marshal(exp)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, experienceKey(exp.ID), payload, c.experienceTTL).Err()
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func experienceKey(id string) string {
	return fmt.Sprintf("cache:experience:%s", id)
}
