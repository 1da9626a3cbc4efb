package xapictx

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/text/language"
)

// defaultCulture 进程默认语言
var defaultCulture atomic.Pointer[language.Tag]

func init() {
	SetDefaultCulture(language.English)
}

// SetDefaultCulture 设置进程默认语言
func SetDefaultCulture(tag language.Tag) {
	defaultCulture.Store(&tag)
}

// DefaultCulture 返回进程默认语言
func DefaultCulture() language.Tag {
	return *defaultCulture.Load()
}

// CurrentCredential 返回归一化后的凭证，匿名请求返回 nil。
func CurrentCredential(ctx context.Context) *BaseCredential {
	c := lookup(ctx)
	if c == nil || IsNilCredential(c.Credential) {
		return nil
	}
	if b, ok := c.Credential.(*BaseCredential); ok {
		cp := *b
		return &cp
	}
	return &BaseCredential{
		Key:  c.Credential.CredentialKey(),
		Name: c.Credential.CredentialName(),
	}
}

// CurrentUserInfo 返回当前用户信息，凭证不是用户或匿名时返回 nil。
func CurrentUserInfo(ctx context.Context) UserEssential {
	return lookup(ctx).UserInfo()
}

// IsUser 当前凭证是否为用户
func IsUser(ctx context.Context) bool {
	return CurrentUserInfo(ctx) != nil
}

// CurrentCultureInfo 依次尝试：请求指定的语言、用户偏好、设置中的默认语言、进程默认语言。
// 无法解析的语言代码被跳过。
func CurrentCultureInfo(ctx context.Context) language.Tag {
	c := lookup(ctx)
	if c == nil {
		return DefaultCulture()
	}
	if tag, ok := parseCulture(c.CultureCode); ok {
		return tag
	}
	if u := c.UserInfo(); u != nil {
		if tag, ok := parseCulture(u.CultureCode()); ok {
			return tag
		}
	}
	if c.defaultCulture != language.Und {
		return c.defaultCulture
	}
	return DefaultCulture()
}

func parseCulture(code string) (language.Tag, bool) {
	if code == "" {
		return language.Und, false
	}
	tag, err := language.Parse(code)
	if err != nil || tag == language.Und {
		return language.Und, false
	}
	return tag, true
}

// CurrentPermissions 返回当前用户的权限集，匿名时返回空切片（非 nil）。
func CurrentPermissions(ctx context.Context) []string {
	if u := CurrentUserInfo(ctx); u != nil {
		if p := u.Permissions(); p != nil {
			return p
		}
	}
	return []string{}
}

// CurrentOperatorKey 返回当前操作者的 key。
// 匿名或 key 为空时返回 *MissingStateError。
func CurrentOperatorKey(ctx context.Context) (uuid.UUID, error) {
	cred := CurrentCredential(ctx)
	if cred == nil {
		return uuid.Nil, missing("operator key", ErrMissingCredential)
	}
	if cred.Key == uuid.Nil {
		return uuid.Nil, missing("operator key", ErrMissingCredentialKey)
	}
	return cred.Key, nil
}

// CurrentFullIdentifier 返回 "{name}[{key},TOKEN: {token}]" 形式的身份描述，用于审计日志。
func CurrentFullIdentifier(ctx context.Context) (string, error) {
	c := lookup(ctx)
	if c == nil || IsNilCredential(c.Credential) {
		return "", missing("full identifier", ErrMissingCredential)
	}
	return fmt.Sprintf("%s[%s,TOKEN: %s]", c.Credential.CredentialName(), c.Credential.CredentialKey(), c.Token), nil
}

// Token 当前请求的 token
func Token(ctx context.Context) string {
	if c := lookup(ctx); c != nil {
		return c.Token
	}
	return ""
}

// IPAddress 客户端地址
func IPAddress(ctx context.Context) string {
	if c := lookup(ctx); c != nil {
		return c.IPAddress
	}
	return ""
}

// UserAgent 客户端 User-Agent
func UserAgent(ctx context.Context) string {
	if c := lookup(ctx); c != nil {
		return c.UserAgent
	}
	return ""
}
