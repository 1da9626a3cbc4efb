package xunit

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"slices"
	"sync/atomic"
)

var (
	// ErrNilContext 表示传入的 context 为 nil。
	ErrNilContext = errors.New("xunit: nil context")

	// ErrNilUnit 表示传入的 Unit 为 nil。
	ErrNilUnit = errors.New("xunit: nil unit")

	// ErrMissingUnit 表示 context 中没有 Unit。
	ErrMissingUnit = errors.New("xunit: missing unit")
)

// Slot 槽位名称
type Slot string

// 约定的槽位名称
const (
	SlotAPIContext   Slot = "ApiContext"
	SlotTraceContext Slot = "TraceContext"
)

// LogAttrAppender 由槽位值实现，用于向日志追加该槽位的环境属性。
type LogAttrAppender interface {
	AppendLogAttrs(attrs []slog.Attr) []slog.Attr
}

// unitSeq 进程内 Unit 编号
var unitSeq atomic.Uint64

// Unit 执行单元的状态存储。
// 零值不可用，请通过 New 或 Pool.Acquire 获取。
type Unit struct {
	id     uint64
	reuses uint64
	slots  map[Slot]any
}

// New 创建新的 Unit。
func New() *Unit {
	return &Unit{
		id:    unitSeq.Add(1),
		slots: make(map[Slot]any, 2),
	}
}

// ID 返回 Unit 的进程内编号，仅用于诊断。
func (u *Unit) ID() uint64 {
	return u.id
}

// Reuses 返回该 Unit 被 Pool 复用的次数。
func (u *Unit) Reuses() uint64 {
	return u.reuses
}

// Get 读取槽位值。
func (u *Unit) Get(slot Slot) (any, bool) {
	v, ok := u.slots[slot]
	return v, ok
}

// Set 写入槽位值，v 为 nil 时删除该槽位。
func (u *Unit) Set(slot Slot, v any) {
	if v == nil {
		delete(u.slots, slot)
		return
	}
	u.slots[slot] = v
}

// Delete 删除槽位。
func (u *Unit) Delete(slot Slot) {
	delete(u.slots, slot)
}

// Len 返回已占用的槽位数。
func (u *Unit) Len() int {
	return len(u.slots)
}

// Clear 清空全部槽位。
func (u *Unit) Clear() {
	clear(u.slots)
}

// Snapshot 槽位快照
type Snapshot struct {
	slots map[Slot]any
}

// Len 返回快照中的槽位数。
func (s Snapshot) Len() int {
	return len(s.slots)
}

// Snapshot 复制当前槽位表。
//
// 复制是浅拷贝：槽位值（如 *xapictx.Context）本身在两个 Unit 间共享，
// 交接后原 Unit 应调用 Clear 放弃所有权。
func (u *Unit) Snapshot() Snapshot {
	return Snapshot{slots: maps.Clone(u.slots)}
}

// Restore 用快照替换当前槽位表。
func (u *Unit) Restore(s Snapshot) {
	clear(u.slots)
	maps.Copy(u.slots, s.slots)
}

// AppendLogAttrs 按槽位名称顺序收集实现了 LogAttrAppender 的槽位属性。
func (u *Unit) AppendLogAttrs(attrs []slog.Attr) []slog.Attr {
	if u == nil || len(u.slots) == 0 {
		return attrs
	}
	keys := slices.Sorted(maps.Keys(u.slots))
	for _, k := range keys {
		if a, ok := u.slots[k].(LogAttrAppender); ok {
			attrs = a.AppendLogAttrs(attrs)
		}
	}
	return attrs
}

// =============================================================================
// Context 传播
// =============================================================================

type contextKey struct{}

// WithUnit 将 Unit 注入 context。
func WithUnit(ctx context.Context, u *Unit) (context.Context, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	if u == nil {
		return nil, ErrNilUnit
	}
	return context.WithValue(ctx, contextKey{}, u), nil
}

// FromContext 从 context 提取 Unit。
func FromContext(ctx context.Context) (*Unit, bool) {
	if ctx == nil {
		return nil, false
	}
	u, ok := ctx.Value(contextKey{}).(*Unit)
	return u, ok && u != nil
}

// Require 从 context 提取 Unit，缺失时返回错误。
func Require(ctx context.Context) (*Unit, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	u, ok := FromContext(ctx)
	if !ok {
		return nil, ErrMissingUnit
	}
	return u, nil
}
