package xsteptrace

import "sync/atomic"

// DebugSelector 选中一个 trace id 进行调试采集。并发安全。
type DebugSelector struct {
	id atomic.Pointer[string]
}

// NewDebugSelector 创建选中 id 的选择器，空 id 表示不选中任何追踪。
func NewDebugSelector(id string) *DebugSelector {
	s := &DebugSelector{}
	s.Set(id)
	return s
}

// Set 替换选中的 trace id
func (s *DebugSelector) Set(id string) {
	s.id.Store(&id)
}

// ID 返回选中的 trace id
func (s *DebugSelector) ID() string {
	if s == nil {
		return ""
	}
	if p := s.id.Load(); p != nil {
		return *p
	}
	return ""
}

// Matches traceID 与选中的 id 完全相同时返回 true，空值永不匹配。
func (s *DebugSelector) Matches(traceID string) bool {
	if traceID == "" {
		return false
	}
	return s.ID() == traceID
}

var defaultSelector DebugSelector

// DefaultDebugSelector 进程默认选择器，未通过 WithDebugSelector 指定时使用。
func DefaultDebugSelector() *DebugSelector {
	return &defaultSelector
}

// SetDebugTraceID 设置进程默认选择器的 trace id
func SetDebugTraceID(id string) {
	defaultSelector.Set(id)
}
