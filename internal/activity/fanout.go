package activity

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// Fanout 将事件广播给多个发布器。
type Fanout struct {
	publishers []Publisher
}

// NewFanout 创建广播发布器，忽略 nil 成员。
func NewFanout(publishers ...Publisher) *Fanout {
	set := make([]Publisher, 0, len(publishers))
	for _, p := range publishers {
		if p != nil {
			set = append(set, p)
		}
	}
	return &Fanout{publishers: set}
}

// Publish 将事件投递至所有成员，汇总全部失败。
func (f *Fanout) Publish(ctx context.Context, event Event) error {
	if f == nil {
		return nil
	}
	var errs []error
	for i, p := range f.publishers {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, fmt.Errorf("publisher %d (%T): %w", i, p, err))
		}
	}
	return errors.Join(errs...)
}

// Close 关闭所有实现了 io.Closer 的成员。
func (f *Fanout) Close() error {
	if f == nil {
		return nil
	}
	var errs []error
	for _, p := range f.publishers {
		if c, ok := p.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Len 返回成员数量。
func (f *Fanout) Len() int {
	if f == nil {
		return 0
	}
	return len(f.publishers)
}
