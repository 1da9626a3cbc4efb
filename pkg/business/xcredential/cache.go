package xcredential

import (
	"context"
	"reflect"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/omeyang/xrequest/pkg/context/xapictx"
)

// CacheConfig 缓存配置
type CacheConfig struct {
	// Size 最大条目数，必须为正数
	Size int
	// TTL 条目过期时间，0 表示不过期（仅按 LRU 淘汰）
	TTL time.Duration
}

// CacheStats 缓存命中统计
type CacheStats struct {
	Hits   uint64
	Misses uint64
	Len    int
}

// CachedResolver 按 token 缓存解析结果。
//
// 只缓存成功且非 nil 的凭证：错误与“未知 token”每次都会回源。
type CachedResolver struct {
	next      xapictx.CredentialResolver
	lru       *expirable.LRU[string, xapictx.Credential]
	hits      atomic.Uint64
	misses    atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

// NewCachedResolver 创建带缓存的解析器，使用完毕后需调用 Close
func NewCachedResolver(next xapictx.CredentialResolver, cfg CacheConfig) (*CachedResolver, error) {
	if next == nil {
		return nil, ErrNilResolver
	}
	if cfg.Size <= 0 {
		return nil, ErrInvalidCacheSize
	}
	if cfg.TTL < 0 {
		return nil, ErrInvalidTTL
	}
	return &CachedResolver{
		next: next,
		lru:  expirable.NewLRU[string, xapictx.Credential](cfg.Size, nil, cfg.TTL),
	}, nil
}

// Resolve 实现 xapictx.CredentialResolver
func (c *CachedResolver) Resolve(ctx context.Context, token string) (xapictx.Credential, error) {
	if !c.closed.Load() {
		if cred, ok := c.lru.Get(token); ok {
			c.hits.Add(1)
			return cred, nil
		}
	}
	c.misses.Add(1)

	cred, err := c.next.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}
	if xapictx.IsNilCredential(cred) {
		return nil, nil
	}
	if !c.closed.Load() {
		c.lru.Add(token, cred)
	}
	return cred, nil
}

// Invalidate 删除指定 token 的缓存，返回是否存在
func (c *CachedResolver) Invalidate(token string) bool {
	return c.lru.Remove(token)
}

// Purge 清空缓存
func (c *CachedResolver) Purge() {
	c.lru.Purge()
}

// Stats 返回命中统计
func (c *CachedResolver) Stats() CacheStats {
	return CacheStats{Hits: c.hits.Load(), Misses: c.misses.Load(), Len: c.lru.Len()}
}

// Close 清空缓存并停止后台过期清理 goroutine，可重复调用。
//
// 关闭后 Resolve 直接回源。
func (c *CachedResolver) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.lru.Purge()
		stopCleanupGoroutine(c.lru)
	})
	return nil
}

// stopCleanupGoroutine 关闭 expirable.LRU 内部的 done 通道。
//
// expirable.LRU 在 TTL > 0 时启动清理 goroutine，但没有公开的停止方法。
// 字段不存在或类型不符时返回 false，由 goleak 测试兜底发现上游变化。
func stopCleanupGoroutine(lru any) (stopped bool) {
	defer func() {
		if r := recover(); r != nil {
			stopped = false
		}
	}()

	v := reflect.ValueOf(lru)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return false
	}
	done := v.Elem().FieldByName("done")
	if !done.IsValid() || done.Type() != reflect.TypeFor[chan struct{}]() || done.IsNil() {
		return false
	}
	ch := *(*chan struct{})(unsafe.Pointer(done.UnsafeAddr())) //nolint:gosec // 访问上游未导出字段
	close(ch)
	return true
}
