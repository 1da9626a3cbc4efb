package xsteptrace_test

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/omeyang/xrequest/pkg/context/xunit"
	"github.com/omeyang/xrequest/pkg/observability/xsteptrace"
)

// Example_requestTree 演示一次请求内的步骤记录与收尾。
func Example_requestTree() {
	ctx, _ := xunit.WithUnit(context.Background(), xunit.New())
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	// 上游已经过 1 跳
	xsteptrace.Initialize(ctx, "req-42", xsteptrace.WithSequence(1),
		xsteptrace.WithEntryStamp(start), xsteptrace.WithMethodName("HTTP GET /orders"))

	xsteptrace.Enter(ctx, "OrderService", "List", xsteptrace.EnterAt(start.Add(time.Millisecond)))
	xsteptrace.Enter(ctx, "OrderRepo", "Query", xsteptrace.EnterAt(start.Add(2*time.Millisecond)))
	xsteptrace.Exit(ctx, uuid.Nil, xsteptrace.ExitAt(start.Add(7*time.Millisecond)))
	xsteptrace.Exit(ctx, uuid.Nil, xsteptrace.ExitAt(start.Add(9*time.Millisecond)))

	tl := xsteptrace.GetCurrentTraceLog(ctx, true)
	fmt.Printf("%s seq=%d took=%s\n", tl.TraceID, tl.TraceSequence, tl.Duration())
	tl.Walk(func(s, _ *xsteptrace.Step, depth int) bool {
		fmt.Printf("%s%s %s\n", strings.Repeat("  ", depth), s.MethodFullName, s.Duration())
		return true
	})
	fmt.Println("tracing:", xsteptrace.IsTracing(ctx))

	// Output:
	// req-42 seq=2 took=9ms
	// HTTP GET /orders 9ms
	//   OrderService.List 8ms
	//     OrderRepo.Query 5ms
	// tracing: false
}
