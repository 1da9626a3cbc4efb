package xapictx

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"golang.org/x/text/language"

	"github.com/omeyang/xrequest/pkg/context/xunit"
)

// 日志属性 Key
const (
	KeyClientIP  = "client_ip"
	KeyUserAgent = "user_agent"
	KeyOperator  = "operator"
	KeyCulture   = "culture"
)

// Context 一次请求执行的环境状态
type Context struct {
	Token       string
	Credential  Credential
	IPAddress   string
	UserAgent   string
	CultureCode string
	CurrentURI  *url.URL
	BasicAuth   *AccessCredential

	// defaultCulture ConsistContext 时从 Settings 记录
	defaultCulture language.Tag
}

var _ xunit.LogAttrAppender = (*Context)(nil)

// UserInfo 凭证实现了 UserEssential 时返回它，否则返回 nil。
func (c *Context) UserInfo() UserEssential {
	if c == nil || IsNilCredential(c.Credential) {
		return nil
	}
	u, _ := c.Credential.(UserEssential)
	return u
}

// AppendLogAttrs 实现 xunit.LogAttrAppender，只追加非空字段。
func (c *Context) AppendLogAttrs(attrs []slog.Attr) []slog.Attr {
	if c == nil {
		return attrs
	}
	if c.IPAddress != "" {
		attrs = append(attrs, slog.String(KeyClientIP, c.IPAddress))
	}
	if c.UserAgent != "" {
		attrs = append(attrs, slog.String(KeyUserAgent, c.UserAgent))
	}
	if !IsNilCredential(c.Credential) {
		attrs = append(attrs, slog.String(KeyOperator, c.Credential.CredentialName()))
	}
	if c.CultureCode != "" {
		attrs = append(attrs, slog.String(KeyCulture, c.CultureCode))
	}
	return attrs
}

// =============================================================================
// 槽位访问
// =============================================================================

// lookup 返回执行单元中已存在的 Context，不创建。
func lookup(ctx context.Context) *Context {
	u, ok := xunit.FromContext(ctx)
	if !ok {
		return nil
	}
	v, _ := u.Get(xunit.SlotAPIContext)
	c, _ := v.(*Context)
	return c
}

// GetOrCreate 返回执行单元的 Context，首次访问时创建空实例。
//
// ctx 中没有执行单元时返回一个不入槽的空 Context。
func GetOrCreate(ctx context.Context) *Context {
	u, ok := xunit.FromContext(ctx)
	if !ok {
		return &Context{}
	}
	if v, ok := u.Get(xunit.SlotAPIContext); ok {
		if c, ok := v.(*Context); ok {
			return c
		}
	}
	c := &Context{}
	u.Set(xunit.SlotAPIContext, c)
	return c
}

// ConsistContext 用传输层信息填充当前执行单元的 Context。
//
// token 非空且 settings 提供了 Resolver 时解析凭证并保存 token；
// 否则显式清空凭证和 token。解析失败时凭证和 token 同样被清空，
// 其余字段保持已写入的值，错误原样返回。
func ConsistContext(
	ctx context.Context,
	token string,
	settings *Settings,
	ip, userAgent, cultureCode string,
	uri *url.URL,
	basicAuth *AccessCredential,
) error {
	if _, err := xunit.Require(ctx); err != nil {
		return err
	}
	c := GetOrCreate(ctx)

	c.IPAddress = ip
	c.UserAgent = userAgent
	c.CultureCode = cultureCode
	c.CurrentURI = uri
	c.BasicAuth = basicAuth
	c.defaultCulture = language.Und
	if settings != nil {
		c.defaultCulture = settings.DefaultCulture
	}

	c.Credential = nil
	c.Token = ""
	if settings == nil || settings.Resolver == nil || strings.TrimSpace(token) == "" {
		return nil
	}

	cred, err := settings.Resolver.Resolve(ctx, token)
	if err != nil {
		return err
	}
	if IsNilCredential(cred) {
		cred = nil
	}
	c.Credential = cred
	c.Token = token
	return nil
}

// Clear 丢弃执行单元中的全部状态（包括追踪状态）。
// 执行单元归还到池之前必须调用。
func Clear(ctx context.Context) {
	if u, ok := xunit.FromContext(ctx); ok {
		u.Clear()
	}
}

// Reinitialize 用空 Context 替换当前 Context，追踪状态不受影响。
func Reinitialize(ctx context.Context) {
	if u, ok := xunit.FromContext(ctx); ok {
		u.Set(xunit.SlotAPIContext, &Context{})
	}
}
