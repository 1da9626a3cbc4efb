// Package xdispatch 把一次入站请求接入执行单元、API 上下文与步骤追踪。
//
// 每个请求的固定流程：
//
//  1. 从池中取出 Unit 并注入 context
//  2. xapictx.ConsistContext：token、客户端 IP、User-Agent、语言、URL、Basic 认证
//  3. xsteptrace.Initialize：trace id 与跳数来自上游头部，根步骤名为 "METHOD path"
//  4. 执行业务 handler
//  5. 收尾（defer 中执行，panic 也不例外）：关闭未退出的步骤，
//     异常时生成 exception key，GetCurrentTraceLog 交给 Sink，Clear 后归还 Unit
//
// 凭证解析失败时 HTTP 返回 401（解析器不可用时 503），gRPC 返回 Unauthenticated（Unavailable）。
//
// # 跨服务传播
//
// [InjectToRequest] 与 [InjectToOutgoingContext] 把 trace id 与当前跳数写入出站请求，
// 下游的 Initialize 会将跳数加一。
//
// # 异步续接
//
// [Handoff] 把当前 Unit 的全部状态移交给另一个 Unit，原 Unit 被清空。
package xdispatch
