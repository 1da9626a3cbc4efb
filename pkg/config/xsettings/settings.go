package xsettings

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"

	"github.com/omeyang/xrequest/pkg/business/xcredential"
	"github.com/omeyang/xrequest/pkg/context/xapictx"
	"github.com/omeyang/xrequest/pkg/observability/xlog"
	"github.com/omeyang/xrequest/pkg/observability/xsteptrace"
)

// =============================================================================
// 配置结构
// =============================================================================

// Settings 完整配置
type Settings struct {
	// DebugTraceID 需要采集调试信息的 trace id，空表示关闭
	DebugTraceID string `koanf:"debug_trace_id" json:"debug_trace_id"`
	// DefaultCulture 默认语言（BCP 47），空表示沿用进程默认
	DefaultCulture string             `koanf:"default_culture" json:"default_culture"`
	Log            LogSettings        `koanf:"log" json:"log"`
	Credential     CredentialSettings `koanf:"credential" json:"credential"`
	Headers        HeaderSettings     `koanf:"headers" json:"headers"`
}

// LogSettings 日志配置
type LogSettings struct {
	Level  string `koanf:"level" json:"level"`
	Format string `koanf:"format" json:"format"`
	// File 非空时写入文件并按大小轮转
	File       string `koanf:"file" json:"file"`
	MaxSizeMB  int    `koanf:"max_size_mb" json:"max_size_mb"`
	MaxBackups int    `koanf:"max_backups" json:"max_backups"`
}

// CredentialSettings 凭证解析管道配置
type CredentialSettings struct {
	Cache   CacheSettings   `koanf:"cache" json:"cache"`
	Breaker BreakerSettings `koanf:"breaker" json:"breaker"`
	Retry   RetrySettings   `koanf:"retry" json:"retry"`
}

// CacheSettings Size 为 0 时不启用缓存
type CacheSettings struct {
	Size int           `koanf:"size" json:"size"`
	TTL  time.Duration `koanf:"ttl" json:"ttl"`
}

// BreakerSettings MaxFailures 为 0 时不启用熔断
type BreakerSettings struct {
	MaxFailures uint32        `koanf:"max_failures" json:"max_failures"`
	OpenTimeout time.Duration `koanf:"open_timeout" json:"open_timeout"`
}

// RetrySettings Attempts 不大于 1 时不启用重试
type RetrySettings struct {
	Attempts uint          `koanf:"attempts" json:"attempts"`
	Delay    time.Duration `koanf:"delay" json:"delay"`
}

// HeaderSettings 传输层使用的头部与查询参数名
type HeaderSettings struct {
	TraceID       string `koanf:"trace_id" json:"trace_id"`
	TraceSequence string `koanf:"trace_sequence" json:"trace_sequence"`
	Token         string `koanf:"token" json:"token"`
	CultureQuery  string `koanf:"culture_query" json:"culture_query"`
}

// Default 返回默认配置
func Default() *Settings {
	return &Settings{
		DefaultCulture: "en-US",
		Log: LogSettings{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  100,
			MaxBackups: 3,
		},
		Credential: CredentialSettings{
			Cache:   CacheSettings{Size: 1024, TTL: 5 * time.Minute},
			Breaker: BreakerSettings{MaxFailures: 5, OpenTimeout: 30 * time.Second},
			Retry:   RetrySettings{Attempts: 2, Delay: 50 * time.Millisecond},
		},
		Headers: HeaderSettings{
			TraceID:       "X-Trace-ID",
			TraceSequence: "X-Trace-Sequence",
			Token:         "X-Api-Token",
			CultureQuery:  "language",
		},
	}
}

// =============================================================================
// 校验
// =============================================================================

// Validate 校验全部字段，返回所有问题的合并错误
func (s *Settings) Validate() error {
	var errs []error
	bad := func(field string, err error) {
		errs = append(errs, fmt.Errorf("%w: %s: %w", ErrInvalidSettings, field, err))
	}

	if s.DefaultCulture != "" {
		if _, err := language.Parse(s.DefaultCulture); err != nil {
			bad("default_culture", err)
		}
	}

	if _, err := xlog.ParseLevel(s.Log.Level); err != nil {
		bad("log.level", err)
	}
	switch strings.ToLower(s.Log.Format) {
	case "", "text", "json":
	default:
		bad("log.format", fmt.Errorf("unknown format %q", s.Log.Format))
	}
	if s.Log.File != "" && s.Log.MaxSizeMB <= 0 {
		bad("log.max_size_mb", errors.New("must be positive when log.file is set"))
	}
	if s.Log.MaxBackups < 0 {
		bad("log.max_backups", errors.New("must not be negative"))
	}

	c := s.Credential
	if c.Cache.Size < 0 {
		bad("credential.cache.size", errors.New("must not be negative"))
	}
	if c.Cache.TTL < 0 {
		bad("credential.cache.ttl", errors.New("must not be negative"))
	}
	if c.Breaker.OpenTimeout < 0 {
		bad("credential.breaker.open_timeout", errors.New("must not be negative"))
	}
	if c.Retry.Delay < 0 {
		bad("credential.retry.delay", errors.New("must not be negative"))
	}

	for field, v := range map[string]string{
		"headers.trace_id":       s.Headers.TraceID,
		"headers.trace_sequence": s.Headers.TraceSequence,
		"headers.token":          s.Headers.Token,
	} {
		if strings.TrimSpace(v) == "" {
			bad(field, errors.New("must not be empty"))
		}
	}
	return errors.Join(errs...)
}

// =============================================================================
// 派生
// =============================================================================

// DefaultCultureTag 返回默认语言，未配置或无法解析时返回 language.Und
func (s *Settings) DefaultCultureTag() language.Tag {
	if s.DefaultCulture == "" {
		return language.Und
	}
	tag, err := language.Parse(s.DefaultCulture)
	if err != nil {
		return language.Und
	}
	return tag
}

// Apply 将运行期可切换的配置应用到进程：
// 调试 trace id 写入 selector（nil 时写入进程默认选择器），
// 默认语言非空时更新 xapictx 的进程默认语言。
func (s *Settings) Apply(selector *xsteptrace.DebugSelector) {
	if selector == nil {
		selector = xsteptrace.DefaultDebugSelector()
	}
	selector.Set(s.DebugTraceID)
	if tag := s.DefaultCultureTag(); tag != language.Und {
		xapictx.SetDefaultCulture(tag)
	}
}

// APISettings 生成 ConsistContext 使用的设置
func (s *Settings) APISettings(resolver xapictx.CredentialResolver) *xapictx.Settings {
	return &xapictx.Settings{
		Resolver:       resolver,
		DefaultCulture: s.DefaultCultureTag(),
	}
}

// BuildLogger 按 log 段构建日志器，返回的 cleanup 用于关闭轮转文件
func (s *Settings) BuildLogger() (xlog.LoggerWithLevel, func() error, error) {
	b := xlog.New().
		SetLevelString(s.Log.Level).
		SetFormat(strings.ToLower(s.Log.Format))
	if s.Log.File != "" {
		b.SetRotation(s.Log.File, s.Log.MaxSizeMB, s.Log.MaxBackups)
	}
	return b.Build()
}

// CredentialPipeline 按 credential 段在 base 外层组装缓存、重试、熔断。
//
// 顺序为 缓存 → 重试 → 熔断 → base，各层可单独关闭。
func (s *Settings) CredentialPipeline(base xapictx.CredentialResolver) (*xcredential.Pipeline, error) {
	c := s.Credential
	var mws []xcredential.Middleware
	if c.Cache.Size > 0 {
		mws = append(mws, xcredential.WithCache(xcredential.CacheConfig{Size: c.Cache.Size, TTL: c.Cache.TTL}))
	}
	if c.Retry.Attempts > 1 {
		mws = append(mws, xcredential.WithRetry(xcredential.RetryConfig{Attempts: c.Retry.Attempts, Delay: c.Retry.Delay}))
	}
	if c.Breaker.MaxFailures > 0 {
		mws = append(mws, xcredential.WithBreaker(xcredential.BreakerConfig{
			Name:        "credential",
			MaxFailures: c.Breaker.MaxFailures,
			OpenTimeout: c.Breaker.OpenTimeout,
		}))
	}
	return xcredential.Chain(base, mws...)
}
