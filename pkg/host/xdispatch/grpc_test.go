package xdispatch_test

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/omeyang/xrequest/pkg/context/xapictx"
	"github.com/omeyang/xrequest/pkg/context/xunit"
	"github.com/omeyang/xrequest/pkg/host/xdispatch"
)

var listInfo = &grpc.UnaryServerInfo{FullMethod: "/orders.v1.Orders/List"}

func incoming(kv ...string) context.Context {
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(kv...))
	return peer.NewContext(ctx, &peer.Peer{Addr: &net.TCPAddr{IP: net.ParseIP("10.1.2.3"), Port: 5000}})
}

func TestUnaryServerInterceptor_PopulatesContextAndTrace(t *testing.T) {
	var s sink
	interceptor := xdispatch.UnaryServerInterceptor(xdispatch.Config{
		Settings: &xapictx.Settings{Resolver: testResolver},
		Sink:     s.collect,
	})

	ctx := incoming(
		"authorization", "Bearer tok-1",
		"x-trace-id", "trace-grpc",
		"x-trace-sequence", "0",
		"user-agent", "grpc-go/1.79",
		"language", "ja",
	)
	resp, err := interceptor(ctx, "req", listInfo, func(ctx context.Context, _ any) (any, error) {
		assert.Equal(t, "alice", xapictx.CurrentUserInfo(ctx).CredentialName())
		assert.Equal(t, "10.1.2.3", xapictx.IPAddress(ctx))
		assert.Equal(t, "grpc-go/1.79", xapictx.UserAgent(ctx))
		assert.Equal(t, "ja", xapictx.CurrentCultureInfo(ctx).String())
		return "resp", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "resp", resp)
	require.Len(t, s.all(), 1)
	tl := s.all()[0]
	assert.Equal(t, "trace-grpc", tl.TraceID)
	assert.Equal(t, 1, tl.TraceSequence)
	assert.Equal(t, "/orders.v1.Orders/List", tl.MethodFullName)
	assert.Nil(t, tl.ExceptionKey)
}

func TestUnaryServerInterceptor_HandlerErrorGetsExceptionKey(t *testing.T) {
	var s sink
	interceptor := xdispatch.UnaryServerInterceptor(xdispatch.Config{Sink: s.collect})
	want := status.Error(codes.NotFound, "no such order")

	_, err := interceptor(incoming("x-trace-id", "trace-err"), "req", listInfo,
		func(context.Context, any) (any, error) { return nil, want })

	assert.Equal(t, want, err)
	require.Len(t, s.all(), 1)
	assert.NotNil(t, s.all()[0].ExceptionKey)
}

func TestUnaryServerInterceptor_PanicClearsUnit(t *testing.T) {
	var s sink
	pool := xunit.NewPool()
	interceptor := xdispatch.UnaryServerInterceptor(xdispatch.Config{Pool: pool, Sink: s.collect})

	var seen *xunit.Unit
	resp, err := interceptor(incoming("x-trace-id", "trace-panic"), "req", listInfo,
		func(ctx context.Context, _ any) (any, error) {
			seen, _ = xunit.FromContext(ctx)
			panic(errors.New("boom"))
		})

	assert.Nil(t, resp)
	assert.Equal(t, codes.Internal, status.Code(err))
	require.NotNil(t, seen)
	assert.Equal(t, 0, seen.Len())
	assert.Equal(t, uint64(1), pool.Stats().Released)
	require.Len(t, s.all(), 1)
	assert.NotNil(t, s.all()[0].ExceptionKey)
}

func TestUnaryServerInterceptor_ResolverFailure(t *testing.T) {
	interceptor := xdispatch.UnaryServerInterceptor(xdispatch.Config{
		Settings: &xapictx.Settings{Resolver: testResolver},
	})
	handler := func(context.Context, any) (any, error) {
		t.Fatal("handler must not run")
		return nil, nil
	}

	_, err := interceptor(incoming("x-api-token", "tok-revoked"), "req", listInfo, handler)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	_, err = interceptor(incoming("x-api-token", "tok-down"), "req", listInfo, handler)
	assert.Equal(t, codes.Unavailable, status.Code(err))
}

func TestUnaryServerInterceptor_NoMetadata(t *testing.T) {
	interceptor := xdispatch.UnaryServerInterceptor(xdispatch.Config{})
	_, err := interceptor(context.Background(), "req", nil, func(ctx context.Context, _ any) (any, error) {
		assert.Empty(t, xapictx.IPAddress(ctx))
		assert.Nil(t, xapictx.CurrentCredential(ctx))
		return nil, nil
	})
	assert.NoError(t, err)
}
