package xsteptrace

import (
	"context"
	"time"
)

// =============================================================================
// Initialize 选项
// =============================================================================

type initOptions struct {
	sequence    int
	hasSequence bool
	entry       time.Time
	methodName  string
	clock       func() time.Time
	selector    *DebugSelector
	reporter    func(context.Context, error)
}

// InitOption Initialize 选项
type InitOption func(*initOptions)

// WithSequence 上游传入的跳数，新追踪的序号为 n+1。未指定时为 0。
func WithSequence(n int) InitOption {
	return func(o *initOptions) {
		o.sequence = n
		o.hasSequence = true
	}
}

// WithEntryStamp 指定根步骤的进入时间
func WithEntryStamp(t time.Time) InitOption {
	return func(o *initOptions) {
		o.entry = t
	}
}

// WithMethodName 指定根步骤名称，默认取 Initialize 调用方的函数名。
func WithMethodName(name string) InitOption {
	return func(o *initOptions) {
		o.methodName = name
	}
}

// WithClock 替换时钟，nil 被忽略。
func WithClock(clock func() time.Time) InitOption {
	return func(o *initOptions) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithDebugSelector 指定调试选择器，nil 被忽略。
func WithDebugSelector(s *DebugSelector) InitOption {
	return func(o *initOptions) {
		if s != nil {
			o.selector = s
		}
	}
}

// WithExceptionReporter 指定收尾故障的上报回调，nil 被忽略。
func WithExceptionReporter(fn func(context.Context, error)) InitOption {
	return func(o *initOptions) {
		if fn != nil {
			o.reporter = fn
		}
	}
}

// =============================================================================
// Enter / Exit 选项
// =============================================================================

type enterOptions struct {
	major bool
	at    time.Time
}

// EnterOption Enter 选项
type EnterOption func(*enterOptions)

// AsMajor 用该步骤名称覆盖追踪的显示名称
func AsMajor() EnterOption {
	return func(o *enterOptions) {
		o.major = true
	}
}

// EnterAt 指定进入时间
func EnterAt(t time.Time) EnterOption {
	return func(o *enterOptions) {
		o.at = t
	}
}

type exitOptions struct {
	at time.Time
}

// ExitOption Exit 选项
type ExitOption func(*exitOptions)

// ExitAt 指定退出时间
func ExitAt(t time.Time) ExitOption {
	return func(o *exitOptions) {
		o.at = t
	}
}
