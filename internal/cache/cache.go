package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/LolHubFun/server-vps/internal/config"
	"github.com/LolHubFun/server-vps/internal/logger"
	"github.com/redis/go-redis/v9"
)

// Store 键值缓存接口，实现必须尽力而为：缓存整体不可用时调用方仍要能工作
type Store interface {
	Get(ctx context.Context, key string, dest interface{}) bool
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration)
	Delete(ctx context.Context, keys ...string)
	ClearProjectCache(ctx context.Context, contractAddress string)
}

// Cache 基于Redis的缓存实现
type Cache struct {
	client *redis.Client
}

var _ Store = (*Cache)(nil)

// New 创建Redis缓存，启动时探活一次
func New(cfg config.RedisConfig) (*Cache, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Cache{client: client}, nil
}

// Close 关闭连接
func (c *Cache) Close() error {
	return c.client.Close()
}

// Get 读取并反序列化到dest，命中返回true；任何错误按未命中处理
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) bool {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Error("Failed to get cache key %s: %v", key, err)
		}
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		logger.Error("Failed to decode cache key %s: %v", key, err)
		return false
	}
	return true
}

// Set 序列化后写入，错误只记录不上抛
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	data, err := json.Marshal(value)
	if err != nil {
		logger.Error("Failed to encode cache key %s: %v", key, err)
		return
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		logger.Error("Failed to set cache key %s: %v", key, err)
	}
}

// Delete 删除一批键
func (c *Cache) Delete(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		logger.Error("Failed to delete cache keys %v: %v", keys, err)
	}
}

// Incr 自增计数键，第一次计数时设置过期；限流用
func (c *Cache) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	n, err := c.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if n == 1 {
		if err := c.client.Expire(ctx, key, ttl).Err(); err != nil {
			logger.Error("Failed to expire rate limit key %s: %v", key, err)
		}
	}
	return n, nil
}

// ClearProjectCache 清掉一个项目的全部关联缓存
func (c *Cache) ClearProjectCache(ctx context.Context, contractAddress string) {
	c.Delete(ctx,
		DetailKey(contractAddress),
		TradesKey(contractAddress),
		SidecarKey(contractAddress),
	)
	logger.Info("Cleared cache for project %s", contractAddress)
}
