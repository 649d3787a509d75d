package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"studytime/backend/config"
)

// Client Redis 客户端封装
// 用于 Token 黑名单、学时配置缓存与接口限流
type Client struct {
	rdb    *goredis.Client
	logger *zap.Logger
}

// NewClient 创建 Redis 连接并执行 Ping 健康检查
func NewClient(cfg *config.RedisConfig, logger *zap.Logger) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("Redis 连接失败: %w", err)
	}

	logger.Info("Redis 连接成功", zap.String("addr", cfg.Addr))

	return &Client{rdb: rdb, logger: logger}, nil
}

// ── Token 黑名单 ──

const blacklistPrefix = "token:blacklist:"

// BlacklistToken 将 JWT ID 加入黑名单，TTL 与 Token 剩余有效期一致
func (c *Client) BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil // Token 已过期，无需加入黑名单
	}
	return c.rdb.Set(ctx, blacklistPrefix+jti, "1", ttl).Err()
}

// IsBlacklisted 检查 JWT ID 是否在黑名单中
func (c *Client) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	n, err := c.rdb.Exists(ctx, blacklistPrefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ── 学时配置缓存 ──

const dailyLimitPrefix = "study:daily_limit:"

// GetCachedDailyLimit 读取用户日上限缓存（秒）
// 缓存未命中返回 (0, false, nil)
func (c *Client) GetCachedDailyLimit(ctx context.Context, userID string) (int64, bool, error) {
	val, err := c.rdb.Get(ctx, dailyLimitPrefix+userID).Result()
	if err == goredis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		// 缓存内容损坏，按未命中处理
		return 0, false, nil
	}
	return n, true, nil
}

// SetCachedDailyLimit 写入用户日上限缓存
func (c *Client) SetCachedDailyLimit(ctx context.Context, userID string, limitSeconds int64, ttl time.Duration) error {
	return c.rdb.Set(ctx, dailyLimitPrefix+userID, strconv.FormatInt(limitSeconds, 10), ttl).Err()
}

// InvalidateDailyLimit 删除用户日上限缓存（配置更新后调用）
func (c *Client) InvalidateDailyLimit(ctx context.Context, userID string) error {
	return c.rdb.Del(ctx, dailyLimitPrefix+userID).Err()
}

// ── 接口限流（固定窗口计数）──

// CheckRateLimit 检查 key 在窗口内是否超出 limit 次
// 返回 true 表示放行
func (c *Client) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	count, err := c.rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if count == 1 {
		if err := c.rdb.Expire(ctx, key, window).Err(); err != nil {
			return false, err
		}
	}
	return count <= int64(limit), nil
}

// Close 关闭 Redis 连接
func (c *Client) Close() error {
	return c.rdb.Close()
}
