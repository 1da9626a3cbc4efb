package xcredential

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v5"

	"github.com/omeyang/xrequest/pkg/context/xapictx"
	"github.com/omeyang/xrequest/pkg/observability/xlog"
)

const (
	defaultAttempts = 2
	defaultDelay    = 50 * time.Millisecond
)

// RetryConfig 重试配置
type RetryConfig struct {
	// Attempts 总尝试次数（含首次），0 使用默认值 2
	Attempts uint
	// Delay 两次尝试之间的固定间隔，<=0 使用默认值 50ms
	Delay time.Duration
}

// RetryResolver 对可恢复错误进行固定间隔重试。
//
// 不重试：[Permanent] 错误、[ErrResolverUnavailable]、context 已结束。
type RetryResolver struct {
	next     xapictx.CredentialResolver
	attempts uint
	delay    time.Duration
}

// NewRetryResolver 创建带重试的解析器
func NewRetryResolver(next xapictx.CredentialResolver, cfg RetryConfig) (*RetryResolver, error) {
	if next == nil {
		return nil, ErrNilResolver
	}
	r := &RetryResolver{next: next, attempts: cfg.Attempts, delay: cfg.Delay}
	if r.attempts == 0 {
		r.attempts = defaultAttempts
	}
	if r.delay <= 0 {
		r.delay = defaultDelay
	}
	return r, nil
}

// Resolve 实现 xapictx.CredentialResolver
func (r *RetryResolver) Resolve(ctx context.Context, token string) (xapictx.Credential, error) {
	return retry.NewWithData[xapictx.Credential](
		retry.Context(ctx),
		retry.Attempts(r.attempts),
		retry.Delay(r.delay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		// 传入 RetryIf 会覆盖内置判断，需要自行检查 Unrecoverable
		retry.RetryIf(func(err error) bool {
			return retry.IsRecoverable(err) &&
				!errors.Is(err, ErrResolverUnavailable) &&
				ctx.Err() == nil
		}),
		retry.OnRetry(func(n uint, err error) {
			xlog.Debug(ctx, "retrying credential resolve",
				slog.Uint64("attempt", uint64(n)+1),
				xlog.Err(err),
			)
		}),
	).Do(func() (xapictx.Credential, error) {
		return r.next.Resolve(ctx, token)
	})
}
