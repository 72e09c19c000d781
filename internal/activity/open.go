package activity

import (
	"context"
	"fmt"
	"strings"

	"Kluivert-Agent/internal/config"
)

// Open 按配置构建发布器。审计日志总是启用，redis 与 rabbitmq 驱动在其之外追加投递。
func Open(ctx context.Context, cfg config.ActivityConfig) (*Fanout, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "log":
		return NewFanout(LogPublisher{}), nil
	case "memory":
		return NewFanout(LogPublisher{}, NewMemoryPublisher(256)), nil
	case "redis":
		pub, err := NewRedisPublisher(ctx, RedisConfig{
			Address:  cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Key:      cfg.Redis.Key,
			MaxLen:   1000,
		})
		if err != nil {
			return nil, err
		}
		return NewFanout(LogPublisher{}, pub), nil
	case "rabbitmq":
		pub, err := NewRabbitMQPublisher(RabbitMQConfig{
			URL:     cfg.RabbitMQ.URL,
			Queue:   cfg.RabbitMQ.Queue,
			Durable: cfg.RabbitMQ.Durable,
		})
		if err != nil {
			return nil, err
		}
		return NewFanout(LogPublisher{}, pub), nil
	default:
		return nil, fmt.Errorf("不支持的活动发布驱动: %s", cfg.Driver)
	}
}
