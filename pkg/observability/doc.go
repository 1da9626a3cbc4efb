// Package observability 提供可观测性相关的子包。
//
// 子包列表：
//   - xlog: 结构化日志，基于 log/slog 扩展，自动附带执行单元中的请求信息
//   - xsteptrace: 请求内分层步骤追踪，可导出为 OpenTelemetry span 与指标
//
// 设计原则：
//   - 未开启追踪时各记录操作直接返回
//   - 追踪结果在请求收尾时一次性产出，由调用方决定投递方式
package observability
