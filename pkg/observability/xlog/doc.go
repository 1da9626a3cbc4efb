// Package xlog 基于 log/slog 的结构化日志库。
//
// # 核心功能
//
//   - Builder 模式配置（输出目标、级别、格式、文件轮转）
//   - 自动从 context 携带的执行单元（xunit.Unit）注入环境属性（EnrichHandler，默认启用）
//   - 动态级别调整
//   - 全局 Logger 便利函数
//
// # 创建 Logger
//
//	logger, cleanup, err := xlog.New().
//		SetLevel(xlog.LevelDebug).
//		SetFormat("json").
//		SetRotation("/var/log/app.log", 100, 3).
//		Build()
//	if err != nil {
//		return err
//	}
//	defer cleanup()
//
// Builder 采用 first-error-wins：遇到第一个配置错误后，Build 返回该错误。
//
// # 环境属性注入
//
// EnrichHandler 在每条日志上追加 unit_id，以及执行单元各槽位提供的属性：
//   - xapictx: client_ip、user_agent、operator、culture
//   - xsteptrace: trace_id、trace_sequence、trace_depth
//
// context 中没有执行单元时不追加任何属性。
//
// # 全局 Logger
//
// [Default]、[SetDefault]、[ResetDefault] 以及 [Debug]、[Info]、[Warn]、[Error]。
// 库内部的告警和错误通过全局函数输出。服务端推荐依赖注入。
package xlog
