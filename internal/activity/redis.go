package activity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const defaultRedisKey = "kluivert:activity"

// RedisConfig 描述 Redis 发布器的连接参数。
type RedisConfig struct {
	Address  string
	Password string
	DB       int
	Key      string
	// MaxLen 为列表保留的最大长度，0 表示不裁剪。
	MaxLen int64
}

// RedisPublisher 使用 Redis list 保存事件，最新事件位于列表头部。
type RedisPublisher struct {
	client redis.UniversalClient
	key    string
	maxLen int64
}

// NewRedisPublisher 创建 Redis 发布器并检查连通性。
func NewRedisPublisher(ctx context.Context, cfg RedisConfig) (*RedisPublisher, error) {
	if cfg.Address == "" {
		return nil, errors.New("Redis address 不能为空")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("连接 Redis 失败: %w", err)
	}
	return newRedisPublisher(client, cfg.Key, cfg.MaxLen), nil
}

// newRedisPublisher 基于已有客户端创建发布器。
func newRedisPublisher(client redis.UniversalClient, key string, maxLen int64) *RedisPublisher {
	if key == "" {
		key = defaultRedisKey
	}
	return &RedisPublisher{client: client, key: key, maxLen: maxLen}
}

// Publish 将事件以 JSON 形式写入列表头部。
func (p *RedisPublisher) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("序列化事件失败: %w", err)
	}
	pipe := p.client.TxPipeline()
	pipe.LPush(ctx, p.key, payload)
	if p.maxLen > 0 {
		pipe.LTrim(ctx, p.key, 0, p.maxLen-1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("Redis 发布事件失败: %w", err)
	}
	return nil
}

// Close 关闭 Redis 连接。
func (p *RedisPublisher) Close() error {
	if p == nil || p.client == nil {
		return nil
	}
	return p.client.Close()
}
