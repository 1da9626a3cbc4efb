package xlog

import (
	"context"
	"errors"
	"log/slog"

	"github.com/omeyang/xrequest/pkg/context/xunit"
)

// ErrNilHandler 当 NewEnrichHandler 的 base handler 为 nil 时返回
var ErrNilHandler = errors.New("xlog: base handler is nil")

// EnrichHandler 从 context 中的执行单元提取环境属性并注入日志。
//
// Best-effort：没有执行单元或槽位为空时照常记录。
type EnrichHandler struct {
	base slog.Handler
}

// NewEnrichHandler 创建 EnrichHandler
func NewEnrichHandler(base slog.Handler) (*EnrichHandler, error) {
	if base == nil {
		return nil, ErrNilHandler
	}
	return &EnrichHandler{base: base}, nil
}

// Enabled 委托给底层 handler
func (h *EnrichHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.base.Enabled(ctx, level)
}

// maxEnrichAttrs 栈上预分配的属性数量（unit 1 + api 4 + trace 3）
const maxEnrichAttrs = 8

// Handle 在调用底层 handler 前追加执行单元属性。
// 根据 slog 契约，修改前先 Clone record。
func (h *EnrichHandler) Handle(ctx context.Context, r slog.Record) error {
	u, ok := xunit.FromContext(ctx)
	if !ok {
		return h.base.Handle(ctx, r)
	}

	var buf [maxEnrichAttrs]slog.Attr
	attrs := append(buf[:0], slog.Uint64(KeyUnitID, u.ID()))
	attrs = u.AppendLogAttrs(attrs)

	r = r.Clone()
	r.AddAttrs(attrs...)
	return h.base.Handle(ctx, r)
}

// WithAttrs 返回带额外属性的新 handler
func (h *EnrichHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &EnrichHandler{base: h.base.WithAttrs(attrs)}
}

// WithGroup 返回带分组的新 handler
func (h *EnrichHandler) WithGroup(name string) slog.Handler {
	return &EnrichHandler{base: h.base.WithGroup(name)}
}
