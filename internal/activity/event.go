package activity

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event 记录一次智能体交互的结果，主要由自主模式产生。
type Event struct {
	ID         string    `json:"id"`
	Mode       string    `json:"mode"`
	Iteration  int       `json:"iteration"`
	Prompt     string    `json:"prompt"`
	Response   string    `json:"response,omitempty"`
	Error      string    `json:"error,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewEvent 创建带唯一标识的事件。
func NewEvent(mode string, iteration int, prompt, response string, err error) Event {
	ev := Event{
		ID:         uuid.NewString(),
		Mode:       mode,
		Iteration:  iteration,
		Prompt:     prompt,
		Response:   response,
		OccurredAt: time.Now().UTC(),
	}
	if err != nil {
		ev.Error = err.Error()
	}
	return ev
}

// Failed 表示事件是否记录了一次失败。
func (e Event) Failed() bool { return e.Error != "" }

// Publisher 将事件投递到外部。
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// PublisherFunc 允许使用普通函数实现 Publisher。
type PublisherFunc func(ctx context.Context, event Event) error

// Publish 实现 Publisher 接口。
func (f PublisherFunc) Publish(ctx context.Context, event Event) error {
	return f(ctx, event)
}
