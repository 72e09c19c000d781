package driver

import (
	"context"
	"sync"
	"sync/atomic"

	xerrors "Kluivert-Agent/internal/errors"
	"Kluivert-Agent/internal/session"
)

// Initializer 创建新的智能体会话，session.Factory 实现了该接口。
type Initializer interface {
	Initialize(ctx context.Context) (*session.Session, error)
}

// State 描述驱动器当前所处的阶段。
type State string

const (
	StateIdle     State = "idle"
	StateAwaiting State = "awaiting"
	StateRunning  State = "running"
	StateStopped  State = "stopped"
)

// Chat 每次收到用户输入执行一轮交互。首次发送时初始化会话并在之后复用。
type Chat struct {
	init     Initializer
	turnOpts []session.TurnOption
	lock     *TurnLock

	mu      sync.Mutex
	session *session.Session
	busy    atomic.Bool
}

// ChatOption 定义 Chat 的可选配置。
type ChatOption func(*Chat)

// WithSession 使用调用方提供的会话，跳过初始化。
func WithSession(s *session.Session) ChatOption {
	return func(c *Chat) { c.session = s }
}

// WithTurnOptions 为每一轮交互附加参数。
func WithTurnOptions(opts ...session.TurnOption) ChatOption {
	return func(c *Chat) { c.turnOpts = append(c.turnOpts, opts...) }
}

// WithTurnLock 与其他驱动器共用交互锁，Send 在锁空闲前阻塞。
func WithTurnLock(l *TurnLock) ChatOption {
	return func(c *Chat) { c.lock = l }
}

// NewChat 创建对话驱动器。
func NewChat(init Initializer, opts ...ChatOption) *Chat {
	c := &Chat{init: init}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Send 提交一条用户消息并返回智能体的回复。同一时刻只处理一轮交互。
func (c *Chat) Send(ctx context.Context, text string, opts ...session.TurnOption) (string, error) {
	if err := c.lock.Acquire(ctx); err != nil {
		return "", err
	}
	defer c.lock.Release()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.busy.Store(true)
	defer c.busy.Store(false)

	if c.session == nil {
		if c.init == nil {
			return "", xerrors.New(xerrors.CodeAgentInitialization, "未配置会话工厂")
		}
		s, err := c.init.Initialize(ctx)
		if err != nil {
			return "", err
		}
		c.session = s
	}
	turnOpts := append(append([]session.TurnOption{session.WithMode("chat")}, c.turnOpts...), opts...)
	return session.RunTurn(ctx, c.session, text, turnOpts...)
}

// Session 返回当前持有的会话，可能为 nil。
func (c *Chat) Session() *session.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// State 返回驱动器状态。
func (c *Chat) State() State {
	if c.busy.Load() {
		return StateAwaiting
	}
	return StateIdle
}
