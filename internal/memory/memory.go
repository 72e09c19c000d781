package memory

import (
	"context"
	"sync"
	"time"

	"Kluivert-Agent/internal/llm"
)

// Checkpoint 是某个线程在某一步之后的完整对话状态。
type Checkpoint struct {
	ThreadID  string        `json:"thread_id"`
	Messages  []llm.Message `json:"messages"`
	Step      int           `json:"step"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Saver 按线程标识保存与读取检查点。
type Saver interface {
	Get(ctx context.Context, threadID string) (Checkpoint, bool, error)
	Put(ctx context.Context, checkpoint Checkpoint) error
}

// MemorySaver 将检查点保存在进程内存中。
type MemorySaver struct {
	mu      sync.RWMutex
	threads map[string]Checkpoint
}

// NewMemorySaver 创建进程内检查点存储。
func NewMemorySaver() *MemorySaver {
	return &MemorySaver{threads: make(map[string]Checkpoint)}
}

// Get 返回线程的最新检查点。
func (m *MemorySaver) Get(_ context.Context, threadID string) (Checkpoint, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cp, ok := m.threads[threadID]
	if !ok {
		return Checkpoint{}, false, nil
	}
	return clone(cp), true, nil
}

// Put 覆盖线程的检查点。
func (m *MemorySaver) Put(_ context.Context, checkpoint Checkpoint) error {
	if checkpoint.UpdatedAt.IsZero() {
		checkpoint.UpdatedAt = time.Now()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.threads[checkpoint.ThreadID] = clone(checkpoint)
	return nil
}

// Threads 返回当前保存的线程数量。
func (m *MemorySaver) Threads() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.threads)
}

func clone(cp Checkpoint) Checkpoint {
	out := cp
	out.Messages = make([]llm.Message, len(cp.Messages))
	for i, msg := range cp.Messages {
		msg.ToolCalls = append([]llm.ToolCall(nil), msg.ToolCalls...)
		out.Messages[i] = msg
	}
	return out
}
