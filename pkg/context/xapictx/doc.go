// Package xapictx 管理单次请求执行期间的环境状态（身份、语言、客户端信息）。
//
// 状态存放在 context 携带的执行单元（xunit.Unit）的 ApiContext 槽位中，
// 调用链上的代码只需持有 ctx，无需逐层传递身份参数。
//
// # 生命周期
//
//	// 调度层：请求开始
//	err := xapictx.ConsistContext(ctx, token, settings, ip, ua, culture, uri, nil)
//
//	// 业务代码：任意深度读取
//	cred := xapictx.CurrentCredential(ctx)
//	key, err := xapictx.CurrentOperatorKey(ctx)
//
//	// 调度层：归还执行单元前必须清理
//	xapictx.Clear(ctx)
//
// # 身份重置
//
// ConsistContext 在 token 为空时显式清空凭证与 token。执行单元被池复用时，
// 上一次请求的身份不会带入下一次请求。
//
// # 错误
//
// 需要身份的派生访问器（CurrentOperatorKey、CurrentFullIdentifier）在缺少凭证时
// 返回 *MissingStateError，errors.Is 可匹配 ErrMissingAmbientState 以及具体字段的哨兵错误。
//
// # 没有执行单元的 ctx
//
// 访问器返回零值，GetOrCreate 返回不入槽的空 Context，ConsistContext 返回 xunit.ErrMissingUnit。
package xapictx
