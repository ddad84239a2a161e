package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"storerate/internal/models"
)

const defaultStoreTTL = 5 * time.Minute

// NewRedisClient connects to redis and pings it.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redisv9.Client, error) {
	client := redisv9.NewClient(&redisv9.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis failed: %w", err)
	}
	return client, nil
}

// StoreCache keeps store detail payloads in redis for a fixed TTL.
type StoreCache struct {
	client redisv9.Cmdable
	ttl    time.Duration
}

func NewStoreCache(client redisv9.Cmdable, ttl time.Duration) *StoreCache {
	if ttl <= 0 {
		ttl = defaultStoreTTL
	}
	return &StoreCache{client: client, ttl: ttl}
}

func (c *StoreCache) GetStoreDetail(ctx context.Context, storeID string) (*models.StoreDetail, bool, error) {
	raw, err := c.client.Get(ctx, StoreDetailKey(storeID)).Bytes()
	if err == redisv9.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get store detail failed: %w", err)
	}

	var detail models.StoreDetail
	if err := json.Unmarshal(raw, &detail); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached store detail failed: %w", err)
	}
	return &detail, true, nil
}

func (c *StoreCache) SetStoreDetail(ctx context.Context, detail *models.StoreDetail) error {
	payload, err := json.Marshal(detail)
	if err != nil {
		return fmt.Errorf("marshal store detail cache failed: %w", err)
	}
	if err := c.client.Set(ctx, StoreDetailKey(detail.Store.ID), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set store detail failed: %w", err)
	}
	return nil
}

func (c *StoreCache) InvalidateStore(ctx context.Context, storeID string) error {
	if err := c.client.Del(ctx, StoreDetailKey(storeID)).Err(); err != nil {
		return fmt.Errorf("redis delete store detail failed: %w", err)
	}
	return nil
}

// StoreDetailKey is the redis key of a store's cached detail.
func StoreDetailKey(storeID string) string {
	return fmt.Sprintf("storerate:store:detail:%s", storeID)
}
