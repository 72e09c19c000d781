package session

import "sync"

// MessageRole 标识对话记录中消息的来源。
type MessageRole string

const (
	RoleUser  MessageRole = "user"
	RoleAgent MessageRole = "agent"
	RoleError MessageRole = "error"
)

// ChatMessage 是展示给用户的一条对话记录。
type ChatMessage struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content"`
}

// Transcript 是只追加的对话记录。
type Transcript struct {
	mu       sync.Mutex
	messages []ChatMessage
}

// Append 追加一条记录。
func (t *Transcript) Append(role MessageRole, content string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = append(t.messages, ChatMessage{Role: role, Content: content})
}

// Messages 返回记录的副本。
func (t *Transcript) Messages() []ChatMessage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]ChatMessage(nil), t.messages...)
}

// Len 返回记录条数。
func (t *Transcript) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.messages)
}
