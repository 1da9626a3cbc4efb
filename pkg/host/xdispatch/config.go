package xdispatch

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/omeyang/xrequest/pkg/config/xsettings"
	"github.com/omeyang/xrequest/pkg/context/xapictx"
	"github.com/omeyang/xrequest/pkg/context/xunit"
	"github.com/omeyang/xrequest/pkg/observability/xlog"
	"github.com/omeyang/xrequest/pkg/observability/xsteptrace"
)

// Sink 接收请求结束时的追踪结果。ctx 在调用返回后即被清空，不能保留。
type Sink func(ctx context.Context, tl *xsteptrace.TraceLog)

// Config 调度适配器配置
type Config struct {
	// Settings 传给 ConsistContext，nil 时所有请求按匿名处理
	Settings *xapictx.Settings
	// Pool 为 nil 时每个请求新建 Unit
	Pool *xunit.Pool
	// Selector 为 nil 时使用进程默认选择器
	Selector *xsteptrace.DebugSelector
	// Sink 为 nil 时丢弃追踪结果
	Sink Sink
	// Headers 零值字段使用默认名称
	Headers HeaderNames
	// AlwaysTrace 上游未携带 trace id 时生成一个新的
	AlwaysTrace bool
}

// FromSettings 由配置文件生成 Config，Pool 与 Sink 由调用方补充
func FromSettings(s *xsettings.Settings, resolver xapictx.CredentialResolver) Config {
	return Config{
		Settings: s.APISettings(resolver),
		Headers: HeaderNames{
			TraceID:       s.Headers.TraceID,
			TraceSequence: s.Headers.TraceSequence,
			Token:         s.Headers.Token,
			CultureQuery:  s.Headers.CultureQuery,
		},
	}
}

func (c Config) normalized() Config {
	c.Headers = c.Headers.withDefaults()
	return c
}

func (c Config) acquire() *xunit.Unit {
	if c.Pool == nil {
		return xunit.New()
	}
	return c.Pool.Acquire()
}

// begin 按上游 trace id 与跳数开始追踪
func (c Config) begin(ctx context.Context, traceID, sequence, method string) {
	traceID = strings.TrimSpace(traceID)
	if traceID == "" {
		if !c.AlwaysTrace {
			return
		}
		traceID = uuid.NewString()
	}
	opts := []xsteptrace.InitOption{
		xsteptrace.WithMethodName(method),
		xsteptrace.WithDebugSelector(c.Selector),
	}
	if n, ok := parseSequence(sequence); ok {
		opts = append(opts, xsteptrace.WithSequence(n))
	} else if sequence != "" {
		xlog.Warn(ctx, "xdispatch: invalid trace sequence, treated as first hop",
			slog.String(xsteptrace.KeyTraceSequence, sequence))
	}
	xsteptrace.Initialize(ctx, traceID, opts...)
}

// finish 收尾：关闭所有步骤、交付追踪结果、清空并归还 Unit
func (c Config) finish(ctx context.Context, u *xunit.Unit, failure uuid.UUID) {
	defer func() {
		xapictx.Clear(ctx)
		if c.Pool != nil {
			c.Pool.Release(u)
		}
	}()
	if !xsteptrace.IsTracing(ctx) {
		return
	}
	for xsteptrace.CurrentDepth(ctx) > 0 {
		xsteptrace.Exit(ctx, failure)
	}
	xsteptrace.Exit(ctx, failure)

	tl := xsteptrace.GetCurrentTraceLog(ctx, true)
	if tl != nil && c.Sink != nil {
		c.Sink(ctx, tl)
	}
}
