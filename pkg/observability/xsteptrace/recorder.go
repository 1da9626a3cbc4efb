package xsteptrace

import (
	"context"
	"log/slog"
	"math"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/omeyang/xrequest/pkg/context/xapictx"
	"github.com/omeyang/xrequest/pkg/context/xunit"
	"github.com/omeyang/xrequest/pkg/observability/xlog"
)

// 日志属性 Key
const (
	KeyTraceID       = "trace_id"
	KeyTraceSequence = "trace_sequence"
	KeyTraceDepth    = "trace_depth"
)

const (
	rootIndex = 0
	// unwound 根步骤已退出
	unwound = -1
)

// node 调用树节点，以 arena 下标互相引用
type node struct {
	label     string
	entry     time.Time
	exit      time.Time
	exited    bool
	exception uuid.UUID
	parent    int
	children  []int
	debug     *DebugInfo
}

// recording 执行单元上正在进行的追踪
type recording struct {
	traceID  string
	sequence int
	nodes    []node
	current  int
	clock    func() time.Time
	selector *DebugSelector
	reporter func(context.Context, error)
}

var _ xunit.LogAttrAppender = (*recording)(nil)

func utcNow() time.Time {
	return time.Now().UTC()
}

func reportToLog(ctx context.Context, err error) {
	xlog.Error(ctx, "xsteptrace: finalize trace failed", xlog.Err(err))
}

// load 取出执行单元及其追踪状态；未追踪时 rec 为 nil。
func load(ctx context.Context) (*xunit.Unit, *recording) {
	u, ok := xunit.FromContext(ctx)
	if !ok {
		return nil, nil
	}
	v, _ := u.Get(xunit.SlotTraceContext)
	rec, _ := v.(*recording)
	return u, rec
}

func active(ctx context.Context) *recording {
	_, rec := load(ctx)
	return rec
}

// stepLabel 组合步骤名称
func stepLabel(prefix, methodName string) string {
	if strings.TrimSpace(prefix) == "" {
		return methodName
	}
	return prefix + "." + methodName
}

// callerName 返回调用 Initialize 的函数名
func callerName(skip int) string {
	pc, _, _, ok := runtime.Caller(skip + 1)
	if !ok {
		return ""
	}
	if fn := runtime.FuncForPC(pc); fn != nil {
		return fn.Name()
	}
	return ""
}

// =============================================================================
// 生命周期
// =============================================================================

// Initialize 为当前执行单元开始一次追踪。
//
// traceID 为空白时为空操作；已有追踪时被新追踪替换。
func Initialize(ctx context.Context, traceID string, opts ...InitOption) {
	if strings.TrimSpace(traceID) == "" {
		return
	}
	u, ok := xunit.FromContext(ctx)
	if !ok {
		xlog.Warn(ctx, "xsteptrace: no execution unit in context, tracing skipped", slog.String(KeyTraceID, traceID))
		return
	}

	o := initOptions{
		clock:    utcNow,
		selector: DefaultDebugSelector(),
		reporter: reportToLog,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.methodName == "" {
		o.methodName = callerName(1)
	}
	if o.entry.IsZero() {
		o.entry = o.clock()
	}

	rec := &recording{
		traceID:  traceID,
		nodes:    make([]node, 1, 8),
		current:  rootIndex,
		clock:    o.clock,
		selector: o.selector,
		reporter: o.reporter,
	}
	if o.hasSequence {
		rec.sequence = nextSequence(o.sequence)
	}
	rec.nodes[rootIndex] = node{label: o.methodName, entry: o.entry, parent: unwound}
	u.Set(xunit.SlotTraceContext, rec)
}

// nextSequence 上游跳数加一，到达 math.MaxInt 后不再增长
func nextSequence(n int) int {
	if n >= math.MaxInt {
		return math.MaxInt
	}
	return n + 1
}

// Dispose 丢弃当前执行单元的追踪状态
func Dispose(ctx context.Context) {
	if u, ok := xunit.FromContext(ctx); ok {
		u.Delete(xunit.SlotTraceContext)
	}
}

// IsTracing 当前执行单元是否正在追踪
func IsTracing(ctx context.Context) bool {
	return active(ctx) != nil
}

// TraceID 正在进行的追踪的 id，未追踪时为空。
func TraceID(ctx context.Context) string {
	if rec := active(ctx); rec != nil {
		return rec.traceID
	}
	return ""
}

// TraceSequence 正在进行的追踪的跳数
func TraceSequence(ctx context.Context) (int, bool) {
	if rec := active(ctx); rec != nil {
		return rec.sequence, true
	}
	return 0, false
}

// CurrentDepth 当前步骤相对根的深度。根或未追踪时为 0。
func CurrentDepth(ctx context.Context) int {
	if rec := active(ctx); rec != nil {
		return rec.depth()
	}
	return 0
}

// =============================================================================
// Enter / Exit
// =============================================================================

// Enter 在当前步骤下进入新步骤，名称为 prefix.methodName（prefix 为空白时为 methodName）。
func Enter(ctx context.Context, prefix, methodName string, opts ...EnterOption) {
	rec := active(ctx)
	if rec == nil {
		return
	}
	rec.enter(stepLabel(prefix, methodName), opts)
}

// EnterRuntime 以 API 操作的路由快照进入新步骤
func EnterRuntime(ctx context.Context, rc xapictx.RuntimeContext, opts ...EnterOption) {
	rec := active(ctx)
	if rec == nil {
		return
	}
	rec.enter(rc.Label(), opts)
}

// Exit 退出当前步骤。exceptionKey 非空表示步骤异常结束。
func Exit(ctx context.Context, exceptionKey uuid.UUID, opts ...ExitOption) {
	rec := active(ctx)
	if rec == nil {
		return
	}
	var o exitOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.at.IsZero() {
		o.at = rec.clock()
	}
	rec.exit(exceptionKey, o.at)
}

// SetMajorMethodName 覆盖追踪的显示名称，空白名称被忽略。
func SetMajorMethodName(ctx context.Context, name string) {
	rec := active(ctx)
	if rec == nil || strings.TrimSpace(name) == "" {
		return
	}
	rec.nodes[rootIndex].label = name
}

func (r *recording) enter(label string, opts []EnterOption) {
	var o enterOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.at.IsZero() {
		o.at = r.clock()
	}

	parent := r.current
	if parent == unwound {
		parent = rootIndex
	}
	idx := len(r.nodes)
	r.nodes = append(r.nodes, node{label: label, entry: o.at, parent: parent})
	r.nodes[parent].children = append(r.nodes[parent].children, idx)
	r.current = idx

	if o.major && strings.TrimSpace(label) != "" {
		r.nodes[rootIndex].label = label
	}
}

func (r *recording) exit(exceptionKey uuid.UUID, at time.Time) {
	// 根的异常 key 先到先得，根已退出后仍然生效
	root := &r.nodes[rootIndex]
	if root.exception == uuid.Nil {
		root.exception = exceptionKey
	}
	if r.current == unwound {
		return
	}
	n := &r.nodes[r.current]
	if at.Before(n.entry) {
		at = n.entry
	}
	n.exit = at
	n.exited = true
	if r.current != rootIndex {
		n.exception = exceptionKey
	}
	r.current = n.parent
}

func (r *recording) depth() int {
	d := 0
	for i := r.current; i > rootIndex; i = r.nodes[i].parent {
		d++
	}
	return d
}

// AppendLogAttrs 实现 xunit.LogAttrAppender
func (r *recording) AppendLogAttrs(attrs []slog.Attr) []slog.Attr {
	return append(attrs,
		slog.String(KeyTraceID, r.traceID),
		slog.Int(KeyTraceSequence, r.sequence),
		slog.Int(KeyTraceDepth, r.depth()),
	)
}

// =============================================================================
// 收尾
// =============================================================================

// GetCurrentTraceLog 返回当前追踪的快照，未追踪时返回 nil。
//
// 根的 ExitStamp 取最后一个直接子步骤的 ExitStamp。dispose 为 true 时，
// 无论成功与否都会释放追踪状态。内部故障经异常上报回调报告后返回 nil。
func GetCurrentTraceLog(ctx context.Context, dispose bool) (tl *TraceLog) {
	u, rec := load(ctx)
	if rec == nil {
		return nil
	}
	if dispose {
		defer u.Delete(xunit.SlotTraceContext)
	}
	defer func() {
		if p := recover(); p != nil {
			tl = nil
			rec.reporter(ctx, &OperationFailureError{Op: "finalize", TraceID: rec.traceID, Cause: p})
		}
	}()
	return rec.snapshot()
}

func (r *recording) snapshot() *TraceLog {
	root := r.build(rootIndex)
	if kids := r.nodes[rootIndex].children; len(kids) > 0 {
		last := r.nodes[kids[len(kids)-1]]
		root.ExitStamp = nil
		if last.exited {
			at := last.exit
			if at.Before(r.nodes[rootIndex].entry) {
				at = r.nodes[rootIndex].entry
			}
			root.ExitStamp = &at
		}
	}
	return &TraceLog{
		Step:          *root,
		TraceID:       r.traceID,
		TraceSequence: r.sequence,
	}
}

// build 将 arena 中的子树复制为导出结构
func (r *recording) build(idx int) *Step {
	n := &r.nodes[idx]
	entry := n.entry
	s := &Step{
		MethodFullName: n.label,
		EntryStamp:     &entry,
	}
	if n.exited {
		exit := n.exit
		s.ExitStamp = &exit
	}
	if n.exception != uuid.Nil {
		key := n.exception
		s.ExceptionKey = &key
	}
	if n.debug != nil {
		s.DebugInfo = &DebugInfo{
			Lines:           slices.Clone(n.debug.Lines),
			HTTPRequestRaw:  n.debug.HTTPRequestRaw,
			HTTPResponseRaw: n.debug.HTTPResponseRaw,
		}
	}
	if len(n.children) > 0 {
		s.Children = make([]*Step, 0, len(n.children))
		for _, c := range n.children {
			s.Children = append(s.Children, r.build(c))
		}
	}
	return s
}
