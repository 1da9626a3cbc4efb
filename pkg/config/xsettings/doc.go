// Package xsettings 加载并校验 xrequest 的运行时配置。
//
// 基于 knadh/koanf/v2，支持 YAML 与 JSON，文件或字节数据均可：
//
//	s, err := xsettings.Load("/etc/app/xrequest.yaml")
//	if err != nil {
//	    return err
//	}
//	s.Apply(nil) // 调试 trace id 与进程默认语言
//
// 未出现在配置中的键保留 [Default] 的值。
//
// # 热更新
//
// [Watch] 通过 fsnotify 监视配置文件所在目录，防抖后重新加载，
// 典型用法是在回调中调用 Apply，在线切换被采集调试信息的 trace id。
//
// # 与其他包的衔接
//
//   - [Settings.BuildLogger]：按 log 段构建 xlog 日志器（含文件轮转）
//   - [Settings.CredentialPipeline]：按 credential 段组装缓存、重试、熔断
//   - [Settings.APISettings]：生成 xapictx.ConsistContext 使用的设置
package xsettings
