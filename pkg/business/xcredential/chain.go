package xcredential

import (
	"context"
	"errors"
	"io"
	"slices"

	"github.com/omeyang/xrequest/pkg/context/xapictx"
)

// Middleware 包装一个解析器并返回新的解析器
type Middleware func(next xapictx.CredentialResolver) (xapictx.CredentialResolver, error)

// WithCache 返回缓存中间件
func WithCache(cfg CacheConfig) Middleware {
	return func(next xapictx.CredentialResolver) (xapictx.CredentialResolver, error) {
		return NewCachedResolver(next, cfg)
	}
}

// WithBreaker 返回熔断中间件
func WithBreaker(cfg BreakerConfig) Middleware {
	return func(next xapictx.CredentialResolver) (xapictx.CredentialResolver, error) {
		return NewBreakerResolver(next, cfg)
	}
}

// WithRetry 返回重试中间件
func WithRetry(cfg RetryConfig) Middleware {
	return func(next xapictx.CredentialResolver) (xapictx.CredentialResolver, error) {
		return NewRetryResolver(next, cfg)
	}
}

// Pipeline 组合后的解析器，持有需要释放的层
type Pipeline struct {
	head    xapictx.CredentialResolver
	closers []io.Closer
}

// Chain 组合 base 与中间件，mws[0] 位于最外层。
//
// 中间件构建失败时，已构建的层会被关闭。
func Chain(base xapictx.CredentialResolver, mws ...Middleware) (*Pipeline, error) {
	if base == nil {
		return nil, ErrNilResolver
	}
	p := &Pipeline{head: base}
	for _, mw := range slices.Backward(mws) {
		if mw == nil {
			continue
		}
		next, err := mw(p.head)
		if err != nil {
			_ = p.Close()
			return nil, err
		}
		if c, ok := next.(io.Closer); ok {
			p.closers = append(p.closers, c)
		}
		p.head = next
	}
	return p, nil
}

// Resolve 实现 xapictx.CredentialResolver
func (p *Pipeline) Resolve(ctx context.Context, token string) (xapictx.Credential, error) {
	return p.head.Resolve(ctx, token)
}

// Close 由外向内关闭所有可关闭的层
func (p *Pipeline) Close() error {
	var errs []error
	for _, c := range slices.Backward(p.closers) {
		errs = append(errs, c.Close())
	}
	p.closers = nil
	return errors.Join(errs...)
}
