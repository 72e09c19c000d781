package driver

import (
	"context"

	"golang.org/x/sync/semaphore"

	xerrors "Kluivert-Agent/internal/errors"
)

// TurnLock 保证同一进程内同一线程同时只有一轮交互。守护进程中的 HTTP 处理与
// 后台自主模式共用同一把锁。
type TurnLock struct {
	sem *semaphore.Weighted
}

// NewTurnLock 创建一把空闲的交互锁。
func NewTurnLock() *TurnLock {
	return &TurnLock{sem: semaphore.NewWeighted(1)}
}

// Acquire 等待轮到当前交互，ctx 结束时放弃等待并返回 TIMEOUT。nil 锁总是立即成功。
func (l *TurnLock) Acquire(ctx context.Context) error {
	if l == nil {
		return nil
	}
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return xerrors.Wrap(xerrors.CodeTimeout, err, "等待进行中的交互结束时被取消",
			xerrors.WithSeverity(xerrors.SeverityInfo))
	}
	return nil
}

// Release 释放由 Acquire 获得的锁。
func (l *TurnLock) Release() {
	if l == nil {
		return
	}
	l.sem.Release(1)
}
