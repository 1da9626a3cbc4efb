package xcredential

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/omeyang/xrequest/pkg/context/xapictx"
	"github.com/omeyang/xrequest/pkg/observability/xlog"
)

const (
	defaultBreakerName   = "xcredential"
	defaultMaxFailures   = 5
	defaultOpenTimeout   = 30 * time.Second
	defaultHalfOpenProbe = 1
)

// BreakerConfig 熔断配置
type BreakerConfig struct {
	// Name 熔断器名称，出现在日志与错误中
	Name string
	// MaxFailures 连续失败多少次后熔断，为 0 时使用默认值 5
	MaxFailures uint32
	// OpenTimeout 熔断打开后多久进入半开，<=0 使用默认值 30s
	OpenTimeout time.Duration
}

// BreakerResolver 在解析器外层加熔断保护。
//
// [Permanent] 错误与 context 取消不计为后端失败。
type BreakerResolver struct {
	next xapictx.CredentialResolver
	cb   *gobreaker.CircuitBreaker[xapictx.Credential]
}

// NewBreakerResolver 创建带熔断的解析器
func NewBreakerResolver(next xapictx.CredentialResolver, cfg BreakerConfig) (*BreakerResolver, error) {
	if next == nil {
		return nil, ErrNilResolver
	}
	return &BreakerResolver{
		next: next,
		cb:   gobreaker.NewCircuitBreaker[xapictx.Credential](buildSettings(cfg)),
	}, nil
}

func buildSettings(cfg BreakerConfig) gobreaker.Settings {
	name := cfg.Name
	if name == "" {
		name = defaultBreakerName
	}
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = defaultMaxFailures
	}
	timeout := cfg.OpenTimeout
	if timeout <= 0 {
		timeout = defaultOpenTimeout
	}
	return gobreaker.Settings{
		Name:        name,
		MaxRequests: defaultHalfOpenProbe,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || IsPermanent(err) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			xlog.Warn(context.Background(), "credential breaker state changed",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	}
}

// Resolve 实现 xapictx.CredentialResolver
func (b *BreakerResolver) Resolve(ctx context.Context, token string) (xapictx.Credential, error) {
	cred, err := b.cb.Execute(func() (xapictx.Credential, error) {
		return b.next.Resolve(ctx, token)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: breaker %s: %w", ErrResolverUnavailable, b.cb.Name(), err)
	}
	return cred, err
}

// State 返回熔断器当前状态
func (b *BreakerResolver) State() gobreaker.State {
	return b.cb.State()
}

// Counts 返回当前统计窗口内的计数
func (b *BreakerResolver) Counts() gobreaker.Counts {
	return b.cb.Counts()
}
