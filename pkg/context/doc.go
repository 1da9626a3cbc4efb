// Package context 提供请求级执行单元与 API 上下文相关的子包。
//
// 子包列表：
//   - xunit: 执行单元（请求级键值存储）及其对象池
//   - xapictx: API 上下文，承载令牌、客户端信息、文化设置与凭证
//
// 设计原则：
//   - 执行单元随 context.Context 传递，同一请求内的各层共享同一份状态
//   - 请求结束时清空并归还执行单元，避免状态泄漏到下一个请求
package context
