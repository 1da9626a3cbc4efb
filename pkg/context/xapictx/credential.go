package xapictx

import (
	"context"
	"reflect"
	"slices"

	"github.com/google/uuid"
	"golang.org/x/text/language"
)

// =============================================================================
// 凭证模型
// =============================================================================

// Credential 已解析的身份
type Credential interface {
	CredentialKey() uuid.UUID
	CredentialName() string
}

// IsNilCredential 判断凭证是否为空，包括装在接口里的 nil 指针
func IsNilCredential(c Credential) bool {
	if c == nil {
		return true
	}
	v := reflect.ValueOf(c)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return v.IsNil()
	default:
		return false
	}
}

// BaseCredential 凭证的归一化形态（key + name）
type BaseCredential struct {
	Key  uuid.UUID `json:"key"`
	Name string    `json:"name"`
}

// CredentialKey 实现 Credential
func (c BaseCredential) CredentialKey() uuid.UUID { return c.Key }

// CredentialName 实现 Credential
func (c BaseCredential) CredentialName() string { return c.Name }

// UserEssential 携带语言偏好与权限集的用户凭证
type UserEssential interface {
	Credential
	CultureCode() string
	Permissions() []string
}

// UserInfo UserEssential 的结构体实现
type UserInfo struct {
	Key           uuid.UUID `json:"key"`
	Name          string    `json:"name"`
	Culture       string    `json:"culture,omitempty"`
	PermissionSet []string  `json:"permissions,omitempty"`
}

var _ UserEssential = (*UserInfo)(nil)

func (u *UserInfo) CredentialKey() uuid.UUID { return u.Key }
func (u *UserInfo) CredentialName() string   { return u.Name }
func (u *UserInfo) CultureCode() string      { return u.Culture }

// Permissions 返回权限集的副本
func (u *UserInfo) Permissions() []string {
	return slices.Clone(u.PermissionSet)
}

// AccessCredential Basic 认证或代理透传的凭证
type AccessCredential struct {
	AccessIdentifier string `json:"access_identifier"`
	Token            string `json:"-"`
	Domain           string `json:"domain,omitempty"`
}

// =============================================================================
// 凭证解析
// =============================================================================

// CredentialResolver 将 token 解析为凭证。
// 返回 (nil, nil) 表示 token 不对应任何身份，请求按匿名处理。
type CredentialResolver interface {
	Resolve(ctx context.Context, token string) (Credential, error)
}

// ResolverFunc 函数适配器
type ResolverFunc func(ctx context.Context, token string) (Credential, error)

// Resolve 实现 CredentialResolver
func (f ResolverFunc) Resolve(ctx context.Context, token string) (Credential, error) {
	return f(ctx, token)
}

// Settings ConsistContext 使用的设置
type Settings struct {
	// Resolver 为 nil 时不解析 token，请求按匿名处理
	Resolver CredentialResolver

	// DefaultCulture 请求与用户都未指定语言时使用，零值表示使用进程默认值
	DefaultCulture language.Tag
}
