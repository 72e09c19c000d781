package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig 描述 Redis 检查点存储的连接参数。
type RedisConfig struct {
	Address  string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
}

// RedisSaver 将检查点以 JSON 形式保存在 Redis 中，多个进程共享同一会话记忆。
type RedisSaver struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisSaver 创建 Redis 检查点存储并检测连通性。
func NewRedisSaver(ctx context.Context, cfg RedisConfig) (*RedisSaver, error) {
	if cfg.Address == "" {
		return nil, errors.New("Redis address 不能为空")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("连接 Redis 失败: %w", err)
	}
	return newRedisSaver(client, cfg.Prefix, cfg.TTL), nil
}

// newRedisSaver 基于已有客户端创建存储。
func newRedisSaver(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisSaver {
	if prefix == "" {
		prefix = "kluivert:checkpoint"
	}
	return &RedisSaver{client: client, prefix: prefix, ttl: ttl}
}

func (r *RedisSaver) key(threadID string) string {
	return r.prefix + ":" + threadID
}

// Get 读取线程的检查点。
func (r *RedisSaver) Get(ctx context.Context, threadID string) (Checkpoint, bool, error) {
	raw, err := r.client.Get(ctx, r.key(threadID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Checkpoint{}, false, nil
		}
		return Checkpoint{}, false, fmt.Errorf("Redis 读取检查点失败: %w", err)
	}
	var cp Checkpoint
	if err := json.Unmarshal(raw, &cp); err != nil {
		return Checkpoint{}, false, fmt.Errorf("解析检查点失败: %w", err)
	}
	return cp, true, nil
}

// Put 写入线程的检查点。
func (r *RedisSaver) Put(ctx context.Context, checkpoint Checkpoint) error {
	if checkpoint.UpdatedAt.IsZero() {
		checkpoint.UpdatedAt = time.Now()
	}
	encoded, err := json.Marshal(checkpoint)
	if err != nil {
		return fmt.Errorf("序列化检查点失败: %w", err)
	}
	if err := r.client.Set(ctx, r.key(checkpoint.ThreadID), encoded, r.ttl).Err(); err != nil {
		return fmt.Errorf("Redis 写入检查点失败: %w", err)
	}
	return nil
}

// Close 关闭 Redis 连接。
func (r *RedisSaver) Close() error {
	if r == nil || r.client == nil {
		return nil
	}
	return r.client.Close()
}
