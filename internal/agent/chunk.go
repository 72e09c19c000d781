package agent

import (
	"context"
	"iter"

	"Kluivert-Agent/internal/llm"
)

// StreamChunk 是推理流中的一个增量输出，取值仅限 AgentChunk、ToolsChunk 与 NodeChunk。
type StreamChunk interface {
	isStreamChunk()
}

// AgentChunk 携带模型节点产生的消息。
type AgentChunk struct {
	Messages []llm.Message
}

// ToolsChunk 携带工具节点产生的消息。
type ToolsChunk struct {
	Messages []llm.Message
}

// NodeChunk 是引擎内部的簿记输出，消费方应忽略。
type NodeChunk struct {
	Node string
	Step int
}

func (AgentChunk) isStreamChunk() {}
func (ToolsChunk) isStreamChunk() {}
func (NodeChunk) isStreamChunk()  {}

// Input 是一次交互提交给引擎的消息。
type Input struct {
	Messages []llm.Message
}

// RunConfig 选择交互所属的会话线程。
type RunConfig struct {
	ThreadID string `json:"thread_id"`
}

// Runnable 是可流式执行的推理能力。
type Runnable interface {
	Stream(ctx context.Context, in Input, cfg RunConfig) iter.Seq2[StreamChunk, error]
}

// UserInput 构造只包含一条用户消息的输入。
func UserInput(text string) Input {
	return Input{Messages: []llm.Message{{Role: llm.RoleUser, Content: text}}}
}
