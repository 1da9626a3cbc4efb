package xcredential

import (
	"errors"

	"github.com/avast/retry-go/v5"
)

var (
	// ErrNilResolver 被装饰的解析器为 nil
	ErrNilResolver = errors.New("xcredential: resolver cannot be nil")

	// ErrInvalidCacheSize 缓存容量必须为正数
	ErrInvalidCacheSize = errors.New("xcredential: cache size must be positive")

	// ErrInvalidTTL 缓存 TTL 不能为负数
	ErrInvalidTTL = errors.New("xcredential: cache ttl must not be negative")

	// ErrResolverUnavailable 熔断器打开或半开限流，解析被拒绝
	ErrResolverUnavailable = errors.New("xcredential: resolver unavailable")
)

// Permanent 将错误标记为不可重试（例如 token 不存在或已吊销）。
//
// 被标记的错误同样不会计入熔断器的失败次数。
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return retry.Unrecoverable(err)
}

// IsPermanent 判断错误是否被 [Permanent] 标记过
func IsPermanent(err error) bool {
	return err != nil && !retry.IsRecoverable(err)
}
