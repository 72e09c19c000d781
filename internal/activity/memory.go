package activity

import (
	"context"
	"sync"
)

// MemoryPublisher 将事件保存在内存中，主要用于测试与调试。
type MemoryPublisher struct {
	mu     sync.Mutex
	events []Event
	limit  int
}

// NewMemoryPublisher 创建内存发布器，limit 为保留的最大事件数，0 表示不限。
func NewMemoryPublisher(limit int) *MemoryPublisher {
	return &MemoryPublisher{limit: limit}
}

// Publish 追加事件。
func (m *MemoryPublisher) Publish(ctx context.Context, event Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	if m.limit > 0 && len(m.events) > m.limit {
		m.events = append([]Event(nil), m.events[len(m.events)-m.limit:]...)
	}
	return nil
}

// Events 返回已保存事件的副本。
func (m *MemoryPublisher) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.events...)
}
