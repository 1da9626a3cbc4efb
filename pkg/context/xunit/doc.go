// Package xunit 提供执行单元（execution unit）级别的状态存储。
//
// 一个 Unit 对应一次逻辑请求在某个时刻所占用的执行单元。Unit 通过 context.Context
// 在调用链中传播，调用链上的任意代码都可以经由 ctx 读写同一个 Unit 的槽位，
// 无需逐层传递参数。
//
// # 槽位
//
// Unit 内部按 Slot 名称存放任意值。约定的槽位：
//   - SlotAPIContext   : 请求环境信息（xapictx.Context）
//   - SlotTraceContext : 调用链追踪记录（xsteptrace）
//
// Clear 会清空全部槽位，即同时丢弃环境信息与追踪状态。
//
// # 复用
//
// Pool 基于 sync.Pool 复用 Unit。Release 不会自动清空：
// 在归还之前调用 Clear 是调度层的责任，遗漏会让上一次请求的状态泄漏到下一次请求。
//
// # 并发
//
// Unit 同一时刻只归属一个 goroutine，不是并发安全的。跨 goroutine 交接时，
// 使用 Snapshot/Restore 把状态复制到另一个 Unit。
package xunit
