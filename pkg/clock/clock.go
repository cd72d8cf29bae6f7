// Package clock 提供“当前时间”协作者，业务代码通过注入 Clock 获取时间，测试中可替换为手动时钟。
package clock

import (
	"sync"
	"time"
)

// Clock 当前时间来源
type Clock interface {
	Now() time.Time
}

type systemClock struct {
	loc *time.Location
}

// System 返回系统时钟，Now 的结果转换到指定时区
func System(loc *time.Location) Clock {
	if loc == nil {
		loc = time.UTC
	}
	return systemClock{loc: loc}
}

func (c systemClock) Now() time.Time { return time.Now().In(c.loc) }

// Manual 可手动控制的时钟（测试用）
type Manual struct {
	mu      sync.Mutex
	current time.Time
}

// NewManual 创建初始时间为 start 的手动时钟
func NewManual(start time.Time) *Manual {
	return &Manual{current: start}
}

// Now 返回当前记录的时间
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Set 将时钟设置为 t
func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	m.current = t
	m.mu.Unlock()
}

// Advance 将时钟前移 d 并返回新时间
func (m *Manual) Advance(d time.Duration) time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = m.current.Add(d)
	return m.current
}
