package session

import (
	"context"
	"strings"
	"time"

	"Kluivert-Agent/internal/agent"
	xerrors "Kluivert-Agent/internal/errors"
	"Kluivert-Agent/internal/observability/metrics"
)

// ChunkObserver 在每个被识别的增量输出到达时收到该输出及其文本。
type ChunkObserver func(chunk agent.StreamChunk, text string)

type turnOptions struct {
	observer ChunkObserver
	mode     string
}

// TurnOption 定义单轮交互的可选参数。
type TurnOption func(*turnOptions)

// WithChunkObserver 在文本拼接的同时把每个增量输出交给观察者。
func WithChunkObserver(fn ChunkObserver) TurnOption {
	return func(o *turnOptions) { o.observer = fn }
}

// WithMode 标记本轮交互的来源，用于指标。
func WithMode(mode string) TurnOption {
	return func(o *turnOptions) {
		if mode != "" {
			o.mode = mode
		}
	}
}

// RunTurn 提交一条用户消息并把流式输出归并为一段文本：
// 模型与工具输出各取第一条消息内容，按到达顺序拼接，其余输出忽略。
func RunTurn(ctx context.Context, s *Session, text string, opts ...TurnOption) (reply string, err error) {
	o := turnOptions{mode: "chat"}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	started := time.Now()
	recognised := 0
	defer func() {
		metrics.ObserveTurn(o.mode, err, recognised, time.Since(started))
	}()

	if s == nil || s.Agent == nil {
		return "", xerrors.New(xerrors.CodeTurnExecution, "会话未初始化")
	}

	var b strings.Builder
	for chunk, streamErr := range s.Agent.Stream(ctx, agent.UserInput(text), s.Config) {
		if streamErr != nil {
			return "", xerrors.Wrap(xerrors.CodeTurnExecution, streamErr, "执行对话失败")
		}
		var part string
		switch c := chunk.(type) {
		case agent.AgentChunk:
			if len(c.Messages) == 0 {
				return "", xerrors.New(xerrors.CodeTurnExecution, "模型输出不包含消息")
			}
			part = c.Messages[0].Content
		case agent.ToolsChunk:
			if len(c.Messages) == 0 {
				return "", xerrors.New(xerrors.CodeTurnExecution, "工具输出不包含消息")
			}
			part = c.Messages[0].Content
		default:
			continue
		}
		recognised++
		b.WriteString(part)
		if o.observer != nil {
			o.observer(chunk, part)
		}
	}
	if recognised == 0 {
		return "", xerrors.New(xerrors.CodeTurnExecution, "对话未产生任何输出")
	}
	return b.String(), nil
}
