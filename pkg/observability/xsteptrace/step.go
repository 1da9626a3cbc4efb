package xsteptrace

import (
	"time"

	"github.com/google/uuid"
)

// Step 调用树中的一个步骤
type Step struct {
	MethodFullName string     `json:"method_full_name"`
	EntryStamp     *time.Time `json:"entry_stamp,omitempty"`
	ExitStamp      *time.Time `json:"exit_stamp,omitempty"`
	ExceptionKey   *uuid.UUID `json:"exception_key,omitempty"`
	Children       []*Step    `json:"children,omitempty"`
	DebugInfo      *DebugInfo `json:"debug_info,omitempty"`
}

// TraceLog 完成的调用树，根步骤即整个请求。
type TraceLog struct {
	Step
	TraceID       string `json:"trace_id"`
	TraceSequence int    `json:"trace_sequence"`
}

// DebugInfo 调试采集内容
type DebugInfo struct {
	Lines           []string `json:"lines,omitempty"`
	HTTPRequestRaw  string   `json:"http_request_raw,omitempty"`
	HTTPResponseRaw string   `json:"http_response_raw,omitempty"`
}

// RawExchange 一次原始 HTTP 交换
type RawExchange struct {
	Request  string
	Response string
}

// Depth 以该步骤为根的子树的最大嵌套深度，叶子为 0。
func (s *Step) Depth() int {
	d := 0
	for _, c := range s.Children {
		d = max(d, c.Depth()+1)
	}
	return d
}

// Duration 步骤耗时，未退出时为 0。
func (s *Step) Duration() time.Duration {
	if s.EntryStamp == nil || s.ExitStamp == nil {
		return 0
	}
	return s.ExitStamp.Sub(*s.EntryStamp)
}

// Walk 先序遍历子树。fn 返回 false 时跳过该步骤的子步骤。
// 根步骤的 parent 为 nil，depth 为 0。
func (s *Step) Walk(fn func(step, parent *Step, depth int) bool) {
	s.walk(nil, 0, fn)
}

func (s *Step) walk(parent *Step, depth int, fn func(step, parent *Step, depth int) bool) {
	if !fn(s, parent, depth) {
		return
	}
	for _, c := range s.Children {
		c.walk(s, depth+1, fn)
	}
}

// Failed 步骤是否带有异常 key
func (s *Step) Failed() bool {
	return s.ExceptionKey != nil && *s.ExceptionKey != uuid.Nil
}
