package llm

import (
	"context"
	"encoding/json"
)

// Role 标识消息的发送方。
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message 是与大模型交换的一条消息。助手消息可能携带工具调用，
// 工具消息通过 ToolCallID 关联到对应的调用。
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	Name       string     `json:"name,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
}

// ToolCall 描述模型请求执行的一次工具调用，Arguments 为 JSON 字符串。
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolDefinition 是暴露给模型的工具声明，Parameters 为 JSON Schema。
type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// Request 描述一次推理调用的完整上下文。
type Request struct {
	Messages []Message
	Tools    []ToolDefinition
}

// Response 是大模型推理得到的助手消息。
type Response struct {
	Message      Message
	FinishReason string
}

// Client 定义了调用大模型的统一接口。
type Client interface {
	Generate(ctx context.Context, req Request) (*Response, error)
}

// ClientFunc 允许使用普通函数实现 Client，主要用于测试。
type ClientFunc func(ctx context.Context, req Request) (*Response, error)

// Generate 实现 Client 接口。
func (f ClientFunc) Generate(ctx context.Context, req Request) (*Response, error) {
	return f(ctx, req)
}
