package driver

import (
	"context"
	"errors"
	"sync"
	"time"

	"Kluivert-Agent/internal/activity"
	"Kluivert-Agent/internal/config"
	xerrors "Kluivert-Agent/internal/errors"
	"Kluivert-Agent/internal/session"
	"Kluivert-Agent/pkg/logger"
)

const (
	modeAuto        = "auto"
	defaultInterval = 10 * time.Second
)

// Sleeper 等待 d 或直到 ctx 结束，被取消时返回 ctx.Err()。
type Sleeper func(ctx context.Context, d time.Duration) error

// ContextSleeper 是基于定时器的默认 Sleeper。
func ContextSleeper(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Autonomous 以固定间隔向智能体提交同一条提示，直到被取消或出错。
type Autonomous struct {
	init      Initializer
	publisher activity.Publisher
	prompt    string
	interval  time.Duration
	sleep     Sleeper
	turnOpts  []session.TurnOption
	lock      *TurnLock

	mu        sync.Mutex
	session   *session.Session
	state     State
	iteration int
}

// AutonomousOption 定义 Autonomous 的可选配置。
type AutonomousOption func(*Autonomous)

// WithPrompt 替换每轮提交的提示。
func WithPrompt(prompt string) AutonomousOption {
	return func(a *Autonomous) {
		if prompt != "" {
			a.prompt = prompt
		}
	}
}

// WithInterval 设置两轮之间的等待时长。
func WithInterval(d time.Duration) AutonomousOption {
	return func(a *Autonomous) {
		if d > 0 {
			a.interval = d
		}
	}
}

// WithSleeper 替换等待实现。
func WithSleeper(s Sleeper) AutonomousOption {
	return func(a *Autonomous) {
		if s != nil {
			a.sleep = s
		}
	}
}

// WithPublisher 设置每轮结果的发布器。
func WithPublisher(p activity.Publisher) AutonomousOption {
	return func(a *Autonomous) {
		if p != nil {
			a.publisher = p
		}
	}
}

// WithAutonomousSession 使用已有会话，首轮不再初始化。
func WithAutonomousSession(s *session.Session) AutonomousOption {
	return func(a *Autonomous) { a.session = s }
}

// WithAutonomousTurnOptions 为每一轮交互附加参数。
func WithAutonomousTurnOptions(opts ...session.TurnOption) AutonomousOption {
	return func(a *Autonomous) { a.turnOpts = append(a.turnOpts, opts...) }
}

// WithAutonomousTurnLock 与其他驱动器共用交互锁。
func WithAutonomousTurnLock(l *TurnLock) AutonomousOption {
	return func(a *Autonomous) { a.lock = l }
}

// NewAutonomous 创建自主模式驱动器。
func NewAutonomous(init Initializer, opts ...AutonomousOption) *Autonomous {
	a := &Autonomous{
		init:      init,
		publisher: activity.LogPublisher{},
		prompt:    config.DefaultAutonomousPrompt,
		interval:  defaultInterval,
		sleep:     ContextSleeper,
		state:     StateIdle,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

// Run 循环执行交互直到 ctx 被取消（返回 nil）或某一轮失败（返回该错误）。
// 取消只在两轮之间生效，进行中的一轮会执行完毕。
func (a *Autonomous) Run(ctx context.Context) error {
	log := logger.Named("autonomous")
	a.setState(StateRunning)
	defer a.setState(StateStopped)

	log.Info("Starting autonomous mode...", "interval", a.interval.String())
	for {
		if ctx.Err() != nil {
			log.Info("autonomous mode stopped")
			return nil
		}
		if _, err := a.RunOnce(ctx); err != nil {
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				log.Info("autonomous mode stopped")
				return nil
			}
			log.Error("autonomous iteration failed", "error", err)
			return err
		}
		if err := a.sleep(ctx, a.interval); err != nil {
			log.Info("autonomous mode stopped")
			return nil
		}
	}
}

// RunOnce 执行一轮自主交互并发布结果。ctx 只影响等待交互锁，
// 拿到锁之后本轮不再响应 ctx 的取消。
func (a *Autonomous) RunOnce(ctx context.Context) (string, error) {
	if err := a.lock.Acquire(ctx); err != nil {
		return "", err
	}
	defer a.lock.Release()

	ctx = context.WithoutCancel(ctx)

	a.mu.Lock()
	a.iteration++
	iteration := a.iteration
	s := a.session
	a.mu.Unlock()

	if s == nil {
		var err error
		if a.init == nil {
			err = xerrors.New(xerrors.CodeAgentInitialization, "未配置会话工厂")
		} else {
			s, err = a.init.Initialize(ctx)
		}
		if err != nil {
			a.publish(ctx, activity.NewEvent(modeAuto, iteration, a.prompt, "", err))
			return "", err
		}
		a.mu.Lock()
		a.session = s
		a.mu.Unlock()
	}

	opts := append([]session.TurnOption{session.WithMode(modeAuto)}, a.turnOpts...)
	reply, err := session.RunTurn(ctx, s, a.prompt, opts...)
	a.publish(ctx, activity.NewEvent(modeAuto, iteration, a.prompt, reply, err))
	if err != nil {
		return "", err
	}
	return reply, nil
}

// Iterations 返回已开始的轮数。
func (a *Autonomous) Iterations() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.iteration
}

// State 返回驱动器状态。
func (a *Autonomous) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Start 在后台运行 Run，返回可停止的任务句柄。
func (a *Autonomous) Start(ctx context.Context) *Task {
	ctx, cancel := context.WithCancel(ctx)
	t := &Task{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(t.done)
		defer cancel()
		t.err = a.Run(ctx)
	}()
	return t
}

func (a *Autonomous) setState(s State) {
	a.mu.Lock()
	a.state = s
	a.mu.Unlock()
}

func (a *Autonomous) publish(ctx context.Context, event activity.Event) {
	if err := a.publisher.Publish(context.WithoutCancel(ctx), event); err != nil {
		logger.Named("autonomous").Warn("发布活动事件失败", "event_id", event.ID, "error", err)
	}
}

// Task 是后台运行的自主模式。
type Task struct {
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// Stop 请求停止，并不等待退出。进行中的一轮会先完成。
func (t *Task) Stop() { t.cancel() }

// Done 在任务退出后关闭。
func (t *Task) Done() <-chan struct{} { return t.done }

// Err 返回任务的退出原因，任务结束前为 nil。
func (t *Task) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}

// Wait 阻塞直到任务结束并返回其错误。
func (t *Task) Wait() error {
	<-t.done
	return t.err
}
