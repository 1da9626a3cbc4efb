// Package xsteptrace 记录单次请求执行内的分层调用树。
//
// 状态存放在 context 携带的执行单元（xunit.Unit）的 TraceContext 槽位中。
// 槽位为空即"未追踪"：所有埋点调用都是空操作，业务代码可以无条件埋点。
//
// # 生命周期
//
//	xsteptrace.Initialize(ctx, traceID, xsteptrace.WithSequence(seq))
//
//	xsteptrace.Enter(ctx, "OrderService", "Load")
//	// ...
//	xsteptrace.Exit(ctx, uuid.Nil)
//
//	log := xsteptrace.GetCurrentTraceLog(ctx, true) // 收尾并释放状态
//
// # 根节点
//
// TraceLog 本身就是根步骤，名称为发起追踪的方法名。Initialize 进入根步骤，
// 当前步骤为根时 Exit 即退出根步骤。此后新的 Enter 仍挂在根下。
// 收尾时根的 ExitStamp 取最后一个直接子步骤的 ExitStamp，没有子步骤时保留自身的值。
//
// # 异常归因
//
// 每个步骤记录自己退出时的异常 key；根的异常 key 只记录第一个非空值，
// 后续外层失败不会覆盖先发生的内层失败。
//
// # 调试采集
//
// WriteLine、WriteRawExchange 等调用仅在当前 trace id 与 DebugSelector 的 id
// 完全相同时生效，空 id 永不匹配。进程默认选择器见 DefaultDebugSelector。
//
// # 收尾失败
//
// GetCurrentTraceLog 内部的意外 panic 会被转换为 *OperationFailureError，
// 交给异常上报回调（默认写 xlog.Error），结果为 nil；dispose 为 true 时状态总会被释放。
package xsteptrace
