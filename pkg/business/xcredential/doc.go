// Package xcredential 提供 [xapictx.CredentialResolver] 的装饰器。
//
// 解析器本身由业务方实现（查库、调用认证服务等），
// 本包只负责在其外层叠加缓存、熔断与重试：
//
//   - [NewCachedResolver]：token → 凭证的 LRU 缓存，带 TTL，不缓存错误
//   - [NewBreakerResolver]：基于 sony/gobreaker/v2 的熔断保护
//   - [NewRetryResolver]：基于 avast/retry-go/v5 的重试，[Permanent] 标记的错误不重试
//   - [Chain]：按顺序组合以上装饰器
//
// # 推荐顺序
//
//	pipeline, err := xcredential.Chain(backend,
//	    xcredential.WithCache(xcredential.CacheConfig{Size: 1024, TTL: 5 * time.Minute}),
//	    xcredential.WithRetry(xcredential.RetryConfig{Attempts: 2}),
//	    xcredential.WithBreaker(xcredential.BreakerConfig{Name: "auth"}),
//	)
//	defer pipeline.Close()
//
// 第一个中间件位于最外层：缓存命中时不会触达重试与熔断；
// 熔断打开时返回 [ErrResolverUnavailable]，重试层不会再重试。
package xcredential
