package xdispatch

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"google.golang.org/grpc/metadata"

	"github.com/omeyang/xrequest/pkg/context/xunit"
	"github.com/omeyang/xrequest/pkg/observability/xsteptrace"
)

// =============================================================================
// 跨服务传播
// =============================================================================

// InjectToRequest 使用默认头部名把追踪信息写入出站 HTTP 请求
func InjectToRequest(ctx context.Context, req *http.Request) {
	DefaultHeaderNames().InjectToRequest(ctx, req)
}

// InjectToOutgoingContext 使用默认头部名把追踪信息写入出站 gRPC metadata
func InjectToOutgoingContext(ctx context.Context) context.Context {
	return DefaultHeaderNames().InjectToOutgoingContext(ctx)
}

// InjectToRequest 写入 trace id 与当前跳数，未追踪时不做任何事
func (h HeaderNames) InjectToRequest(ctx context.Context, req *http.Request) {
	if req == nil {
		return
	}
	traceID, seq, ok := current(ctx)
	if !ok {
		return
	}
	if req.Header == nil {
		req.Header = make(http.Header)
	}
	h = h.withDefaults()
	req.Header.Set(h.TraceID, traceID)
	req.Header.Set(h.TraceSequence, seq)
}

// InjectToOutgoingContext 复制已有 metadata 后写入 trace id 与当前跳数
func (h HeaderNames) InjectToOutgoingContext(ctx context.Context) context.Context {
	traceID, seq, ok := current(ctx)
	if !ok {
		return ctx
	}
	md, found := metadata.FromOutgoingContext(ctx)
	if found {
		md = md.Copy()
	} else {
		md = metadata.New(nil)
	}
	h = h.withDefaults()
	md.Set(strings.ToLower(h.TraceID), traceID)
	md.Set(strings.ToLower(h.TraceSequence), seq)
	return metadata.NewOutgoingContext(ctx, md)
}

func current(ctx context.Context) (traceID, seq string, ok bool) {
	traceID = xsteptrace.TraceID(ctx)
	if traceID == "" {
		return "", "", false
	}
	n, _ := xsteptrace.TraceSequence(ctx)
	return traceID, strconv.Itoa(n), true
}

// =============================================================================
// 异步续接
// =============================================================================

// Handoff 把 ctx 中 Unit 的全部状态移交给 dst，并返回携带 dst 的 context。
//
// 移交后原 Unit 被清空：调度层的收尾不再产出追踪结果，
// 由持有 dst 的一方负责 GetCurrentTraceLog 与 Clear。
// 返回的 context 不随原请求取消。
func Handoff(ctx context.Context, dst *xunit.Unit) (context.Context, error) {
	src, err := xunit.Require(ctx)
	if err != nil {
		return nil, err
	}
	if dst == nil {
		return nil, xunit.ErrNilUnit
	}
	if src == dst {
		return ctx, nil
	}
	dst.Restore(src.Snapshot())
	src.Clear()
	return xunit.WithUnit(context.WithoutCancel(ctx), dst)
}
