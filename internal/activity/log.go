package activity

import (
	"context"
	"log/slog"

	"Kluivert-Agent/pkg/logger"
)

// LogPublisher 将事件写入审计日志。
type LogPublisher struct{}

// Publish 输出一条审计记录。
func (LogPublisher) Publish(_ context.Context, event Event) error {
	attrs := []any{
		slog.String("event_id", event.ID),
		slog.String("mode", event.Mode),
		slog.Int("iteration", event.Iteration),
	}
	if event.Failed() {
		logger.Audit().Error("agent_activity", append(attrs, slog.String("error", event.Error))...)
		return nil
	}
	logger.Audit().Info("agent_activity", append(attrs, slog.String("response", event.Response))...)
	return nil
}
