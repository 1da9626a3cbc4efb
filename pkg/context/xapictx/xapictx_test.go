package xapictx_test

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/omeyang/xrequest/pkg/context/xapictx"
	"github.com/omeyang/xrequest/pkg/context/xunit"
)

func unitCtx(t *testing.T) (context.Context, *xunit.Unit) {
	t.Helper()
	u := xunit.New()
	ctx, err := xunit.WithUnit(context.Background(), u)
	require.NoError(t, err)
	return ctx, u
}

var alice = &xapictx.UserInfo{
	Key:           uuid.MustParse("7d9f3c9e-7a53-4c1b-9a43-2f5b2b0d3a11"),
	Name:          "alice",
	Culture:       "fr-FR",
	PermissionSet: []string{"order.read", "order.write"},
}

func staticResolver(cred xapictx.Credential) *xapictx.Settings {
	return &xapictx.Settings{
		Resolver: xapictx.ResolverFunc(func(context.Context, string) (xapictx.Credential, error) {
			return cred, nil
		}),
	}
}

func TestGetOrCreate(t *testing.T) {
	ctx, u := unitCtx(t)

	c1 := xapictx.GetOrCreate(ctx)
	require.NotNil(t, c1)
	assert.Same(t, c1, xapictx.GetOrCreate(ctx))
	assert.Equal(t, 1, u.Len())

	detached := xapictx.GetOrCreate(context.Background())
	require.NotNil(t, detached)
	assert.NotSame(t, detached, xapictx.GetOrCreate(context.Background()))
}

func TestConsistContext_PopulatesFields(t *testing.T) {
	ctx, _ := unitCtx(t)
	uri, _ := url.Parse("https://api.example.com/v1/orders?language=de")
	basic := &xapictx.AccessCredential{AccessIdentifier: "proxy", Token: "pw"}

	err := xapictx.ConsistContext(ctx, "tok-1", staticResolver(alice), "10.1.1.1", "curl/8", "de", uri, basic)
	require.NoError(t, err)

	c := xapictx.GetOrCreate(ctx)
	assert.Equal(t, "tok-1", c.Token)
	assert.Equal(t, "10.1.1.1", xapictx.IPAddress(ctx))
	assert.Equal(t, "curl/8", xapictx.UserAgent(ctx))
	assert.Equal(t, "tok-1", xapictx.Token(ctx))
	assert.Equal(t, uri, c.CurrentURI)
	assert.Same(t, basic, c.BasicAuth)
	assert.True(t, xapictx.IsUser(ctx))
}

// 同一执行单元上先登录后匿名，身份不得残留
func TestConsistContext_EmptyTokenClearsIdentity(t *testing.T) {
	ctx, _ := unitCtx(t)
	settings := staticResolver(alice)

	require.NoError(t, xapictx.ConsistContext(ctx, "tok-1", settings, "", "", "", nil, nil))
	require.NotNil(t, xapictx.CurrentCredential(ctx))

	require.NoError(t, xapictx.ConsistContext(ctx, "", settings, "", "", "", nil, nil))
	assert.Nil(t, xapictx.CurrentCredential(ctx))
	assert.Empty(t, xapictx.Token(ctx))

	require.NoError(t, xapictx.ConsistContext(ctx, "tok-1", settings, "", "", "", nil, nil))
	require.NoError(t, xapictx.ConsistContext(ctx, "   ", settings, "", "", "", nil, nil))
	assert.Nil(t, xapictx.CurrentCredential(ctx))
}

func TestConsistContext_NoResolver(t *testing.T) {
	ctx, _ := unitCtx(t)
	require.NoError(t, xapictx.ConsistContext(ctx, "tok", &xapictx.Settings{}, "", "", "", nil, nil))
	assert.Nil(t, xapictx.CurrentCredential(ctx))
	assert.Empty(t, xapictx.Token(ctx))

	require.NoError(t, xapictx.ConsistContext(ctx, "tok", nil, "", "", "", nil, nil))
	assert.Empty(t, xapictx.Token(ctx))
}

func TestConsistContext_ResolverError(t *testing.T) {
	ctx, _ := unitCtx(t)
	require.NoError(t, xapictx.ConsistContext(ctx, "tok-1", staticResolver(alice), "", "", "", nil, nil))

	boom := errors.New("directory down")
	settings := &xapictx.Settings{
		Resolver: xapictx.ResolverFunc(func(context.Context, string) (xapictx.Credential, error) {
			return nil, boom
		}),
	}
	err := xapictx.ConsistContext(ctx, "tok-2", settings, "10.0.0.2", "", "", nil, nil)
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, xapictx.CurrentCredential(ctx))
	assert.Empty(t, xapictx.Token(ctx))
	assert.Equal(t, "10.0.0.2", xapictx.IPAddress(ctx))
}

func TestConsistContext_NoUnit(t *testing.T) {
	err := xapictx.ConsistContext(context.Background(), "tok", nil, "", "", "", nil, nil)
	assert.ErrorIs(t, err, xunit.ErrMissingUnit)
}

func TestConsistContext_UnknownTokenKeepsToken(t *testing.T) {
	ctx, _ := unitCtx(t)
	require.NoError(t, xapictx.ConsistContext(ctx, "stale", staticResolver(nil), "", "", "", nil, nil))
	assert.Nil(t, xapictx.CurrentCredential(ctx))
	assert.Equal(t, "stale", xapictx.Token(ctx))
}

func TestConsistContext_TypedNilCredentialIsAnonymous(t *testing.T) {
	ctx, _ := unitCtx(t)
	var miss *xapictx.UserInfo
	require.NoError(t, xapictx.ConsistContext(ctx, "tok-miss", staticResolver(miss), "10.0.0.3", "", "", nil, nil))

	assert.NotPanics(t, func() {
		assert.Nil(t, xapictx.CurrentCredential(ctx))
		assert.Nil(t, xapictx.CurrentUserInfo(ctx))
		assert.False(t, xapictx.IsUser(ctx))
		_, err := xapictx.CurrentFullIdentifier(ctx)
		assert.ErrorIs(t, err, xapictx.ErrMissingCredential)
	})
	assert.Nil(t, xapictx.GetOrCreate(ctx).Credential)
	assert.Equal(t, "tok-miss", xapictx.Token(ctx))

	attrs := xapictx.GetOrCreate(ctx).AppendLogAttrs(nil)
	for _, a := range attrs {
		assert.NotEqual(t, xapictx.KeyOperator, a.Key)
	}
}

func TestIsNilCredential(t *testing.T) {
	var u *xapictx.UserInfo
	var b *xapictx.BaseCredential
	assert.True(t, xapictx.IsNilCredential(nil))
	assert.True(t, xapictx.IsNilCredential(u))
	assert.True(t, xapictx.IsNilCredential(b))
	assert.False(t, xapictx.IsNilCredential(alice))
	assert.False(t, xapictx.IsNilCredential(xapictx.BaseCredential{Name: "svc"}))
}

func TestClear_ThenGetOrCreateIsEmpty(t *testing.T) {
	ctx, u := unitCtx(t)
	uri, _ := url.Parse("https://example.com/")
	require.NoError(t, xapictx.ConsistContext(ctx, "tok", staticResolver(alice), "1.2.3.4", "ua", "fr", uri, nil))
	u.Set(xunit.SlotTraceContext, "trace-state")

	xapictx.Clear(ctx)
	assert.Equal(t, 0, u.Len())

	c := xapictx.GetOrCreate(ctx)
	assert.Equal(t, xapictx.Context{}, *c)
	assert.Nil(t, c.UserInfo())
}

func TestReinitialize_KeepsTraceSlot(t *testing.T) {
	ctx, u := unitCtx(t)
	require.NoError(t, xapictx.ConsistContext(ctx, "tok", staticResolver(alice), "1.2.3.4", "", "", nil, nil))
	u.Set(xunit.SlotTraceContext, "trace-state")
	before := xapictx.GetOrCreate(ctx)

	xapictx.Reinitialize(ctx)

	after := xapictx.GetOrCreate(ctx)
	assert.NotSame(t, before, after)
	assert.Nil(t, xapictx.CurrentCredential(ctx))
	v, ok := u.Get(xunit.SlotTraceContext)
	require.True(t, ok)
	assert.Equal(t, "trace-state", v)
}

func TestCurrentCredential_Normalized(t *testing.T) {
	ctx, _ := unitCtx(t)
	require.NoError(t, xapictx.ConsistContext(ctx, "tok", staticResolver(alice), "", "", "", nil, nil))

	cred := xapictx.CurrentCredential(ctx)
	require.NotNil(t, cred)
	assert.Equal(t, xapictx.BaseCredential{Key: alice.Key, Name: "alice"}, *cred)

	// 修改返回值不影响存储
	cred.Name = "mallory"
	assert.Equal(t, "alice", xapictx.CurrentCredential(ctx).Name)
}

func TestCurrentCredential_Service(t *testing.T) {
	ctx, _ := unitCtx(t)
	svc := xapictx.BaseCredential{Key: uuid.New(), Name: "billing"}
	require.NoError(t, xapictx.ConsistContext(ctx, "tok", staticResolver(svc), "", "", "", nil, nil))

	assert.Equal(t, svc, *xapictx.CurrentCredential(ctx))
	assert.False(t, xapictx.IsUser(ctx))
	assert.Nil(t, xapictx.CurrentUserInfo(ctx))
}

func TestCurrentCultureInfo_Order(t *testing.T) {
	t.Cleanup(func() { xapictx.SetDefaultCulture(language.English) })

	tests := []struct {
		name     string
		culture  string
		cred     xapictx.Credential
		settings language.Tag
		want     language.Tag
	}{
		{"explicit wins", "de-DE", alice, language.Japanese, language.MustParse("de-DE")},
		{"user preference", "", alice, language.Japanese, language.MustParse("fr-FR")},
		{"invalid explicit skipped", "!!", alice, language.Und, language.MustParse("fr-FR")},
		{"settings default", "", nil, language.Japanese, language.Japanese},
		{"process default", "", nil, language.Und, language.English},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, _ := unitCtx(t)
			settings := staticResolver(tt.cred)
			settings.DefaultCulture = tt.settings
			require.NoError(t, xapictx.ConsistContext(ctx, "tok", settings, "", "", tt.culture, nil, nil))
			assert.Equal(t, tt.want, xapictx.CurrentCultureInfo(ctx))
		})
	}

	xapictx.SetDefaultCulture(language.SimplifiedChinese)
	assert.Equal(t, language.SimplifiedChinese, xapictx.CurrentCultureInfo(context.Background()))
}

func TestCurrentPermissions_NeverNil(t *testing.T) {
	ctx, _ := unitCtx(t)
	perms := xapictx.CurrentPermissions(ctx)
	assert.NotNil(t, perms)
	assert.Empty(t, perms)
	assert.NotNil(t, xapictx.CurrentPermissions(context.Background()))

	require.NoError(t, xapictx.ConsistContext(ctx, "tok", staticResolver(&xapictx.UserInfo{Name: "bob"}), "", "", "", nil, nil))
	assert.NotNil(t, xapictx.CurrentPermissions(ctx))

	require.NoError(t, xapictx.ConsistContext(ctx, "tok", staticResolver(alice), "", "", "", nil, nil))
	assert.Equal(t, []string{"order.read", "order.write"}, xapictx.CurrentPermissions(ctx))
}

func TestCurrentOperatorKey(t *testing.T) {
	ctx, _ := unitCtx(t)

	_, err := xapictx.CurrentOperatorKey(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, xapictx.ErrMissingAmbientState)
	assert.ErrorIs(t, err, xapictx.ErrMissingCredential)
	var mse *xapictx.MissingStateError
	require.ErrorAs(t, err, &mse)
	assert.Equal(t, "operator key", mse.Field)

	require.NoError(t, xapictx.ConsistContext(ctx, "tok", staticResolver(xapictx.BaseCredential{Name: "nokey"}), "", "", "", nil, nil))
	_, err = xapictx.CurrentOperatorKey(ctx)
	assert.ErrorIs(t, err, xapictx.ErrMissingCredentialKey)
	assert.ErrorIs(t, err, xapictx.ErrMissingAmbientState)

	require.NoError(t, xapictx.ConsistContext(ctx, "tok", staticResolver(alice), "", "", "", nil, nil))
	key, err := xapictx.CurrentOperatorKey(ctx)
	require.NoError(t, err)
	assert.Equal(t, alice.Key, key)
}

func TestCurrentFullIdentifier(t *testing.T) {
	ctx, _ := unitCtx(t)
	_, err := xapictx.CurrentFullIdentifier(ctx)
	assert.ErrorIs(t, err, xapictx.ErrMissingCredential)

	require.NoError(t, xapictx.ConsistContext(ctx, "tok-9", staticResolver(alice), "", "", "", nil, nil))
	id, err := xapictx.CurrentFullIdentifier(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alice[7d9f3c9e-7a53-4c1b-9a43-2f5b2b0d3a11,TOKEN: tok-9]", id)
}

func TestUnitSnapshot_Handoff(t *testing.T) {
	ctx, u := unitCtx(t)
	require.NoError(t, xapictx.ConsistContext(ctx, "tok", staticResolver(alice), "", "", "", nil, nil))

	dstCtx, dst := unitCtx(t)
	dst.Restore(u.Snapshot())
	assert.Equal(t, *xapictx.CurrentCredential(ctx), *xapictx.CurrentCredential(dstCtx))
}
