package xdispatch

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/omeyang/xrequest/pkg/context/xapictx"
	"github.com/omeyang/xrequest/pkg/context/xunit"
	"github.com/omeyang/xrequest/pkg/observability/xlog"
	"github.com/omeyang/xrequest/pkg/observability/xsteptrace"
)

// UnaryServerInterceptor 返回 gRPC 一元服务端拦截器。
// handler 返回错误或 panic 时根步骤带上 exception key。
func UnaryServerInterceptor(cfg Config) grpc.UnaryServerInterceptor {
	cfg = cfg.normalized()
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		u := cfg.acquire()
		ctx, err = xunit.WithUnit(ctx, u)
		if err != nil {
			return nil, status.Error(codes.Internal, err.Error())
		}

		var failure uuid.UUID
		defer func() {
			if rec := recover(); rec != nil {
				failure = uuid.New()
				xlog.Error(ctx, "xdispatch: handler panicked",
					slog.Any("panic", rec),
					slog.String("exception_key", failure.String()))
				resp, err = nil, status.Errorf(codes.Internal, "internal error: %s", failure)
			}
			cfg.finish(ctx, u, failure)
		}()

		method := ""
		if info != nil {
			method = info.FullMethod
		}
		md, _ := metadata.FromIncomingContext(ctx)
		remote := ""
		if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
			remote = p.Addr.String()
		}
		resolveErr := xapictx.ConsistContext(ctx,
			pickToken(mdValue(md, headerAuthorization), mdValue(md, cfg.Headers.Token)),
			cfg.Settings,
			clientIP(mdValue(md, headerForwardedFor), mdValue(md, headerRealIP), remote),
			mdValue(md, "user-agent"),
			mdValue(md, cfg.Headers.CultureQuery),
			&url.URL{Path: method},
			nil,
		)

		cfg.begin(ctx, mdValue(md, cfg.Headers.TraceID), mdValue(md, cfg.Headers.TraceSequence), method)

		if resolveErr != nil {
			xlog.Warn(ctx, "xdispatch: credential resolve failed", xlog.Err(resolveErr))
			xsteptrace.WriteLine(ctx, "credential resolve failed: %v", resolveErr)
			if resolverUnavailable(resolveErr) {
				return nil, status.Error(codes.Unavailable, "credential resolver unavailable")
			}
			return nil, status.Error(codes.Unauthenticated, "invalid credential")
		}

		resp, err = handler(ctx, req)
		if err != nil {
			failure = uuid.New()
			xsteptrace.WriteLine(ctx, "handler error: %v", err)
		}
		return resp, err
	}
}

// mdValue 取 metadata 的第一个值（键不区分大小写）
func mdValue(md metadata.MD, key string) string {
	if md == nil {
		return ""
	}
	vals := md.Get(strings.ToLower(key))
	if len(vals) == 0 {
		return ""
	}
	return strings.TrimSpace(vals[0])
}
