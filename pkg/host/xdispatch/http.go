package xdispatch

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/omeyang/xrequest/pkg/business/xcredential"
	"github.com/omeyang/xrequest/pkg/context/xapictx"
	"github.com/omeyang/xrequest/pkg/context/xunit"
	"github.com/omeyang/xrequest/pkg/observability/xlog"
	"github.com/omeyang/xrequest/pkg/observability/xsteptrace"
)

// maxCapturedBody 调试模式下记录的响应体上限
const maxCapturedBody = 64 << 10

// HTTPMiddleware 返回 HTTP 中间件
func HTTPMiddleware(cfg Config) func(http.Handler) http.Handler {
	cfg = cfg.normalized()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u := cfg.acquire()
			ctx, err := xunit.WithUnit(r.Context(), u)
			if err != nil {
				// r.Context() 不会为 nil，这里只做兜底
				next.ServeHTTP(w, r)
				return
			}
			rw := &responseRecorder{ResponseWriter: w, status: http.StatusOK}

			var failure uuid.UUID
			defer func() {
				if rec := recover(); rec != nil {
					failure = uuid.New()
					xlog.Error(ctx, "xdispatch: handler panicked",
						slog.Any("panic", rec),
						slog.String("exception_key", failure.String()))
					if !rw.wroteHeader {
						http.Error(rw, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
					}
				}
				if failure == uuid.Nil && rw.status >= http.StatusInternalServerError {
					failure = uuid.New()
				}
				if rw.capture != nil {
					xsteptrace.WriteHTTPResponseRaw(ctx, rw.status, rw.Header(), rw.capture.String())
				}
				cfg.finish(ctx, u, failure)
			}()

			var basic *xapictx.AccessCredential
			if user, pass, ok := r.BasicAuth(); ok {
				basic = &xapictx.AccessCredential{AccessIdentifier: user, Token: pass}
			}
			resolveErr := xapictx.ConsistContext(ctx,
				pickToken(r.Header.Get(headerAuthorization), r.Header.Get(cfg.Headers.Token)),
				cfg.Settings,
				clientIP(r.Header.Get(headerForwardedFor), r.Header.Get(headerRealIP), r.RemoteAddr),
				r.UserAgent(),
				r.URL.Query().Get(cfg.Headers.CultureQuery),
				r.URL,
				basic,
			)

			cfg.begin(ctx, r.Header.Get(cfg.Headers.TraceID), r.Header.Get(cfg.Headers.TraceSequence),
				r.Method+" "+r.URL.Path)
			if xsteptrace.IsDebugging(ctx) {
				xsteptrace.WriteHTTPRequestRaw(ctx, r)
				rw.capture = &bytes.Buffer{}
			}

			if resolveErr != nil {
				status := resolveStatus(resolveErr)
				xlog.Warn(ctx, "xdispatch: credential resolve failed", xlog.Err(resolveErr), slog.Int("status", status))
				xsteptrace.WriteLine(ctx, "credential resolve failed: %v", resolveErr)
				http.Error(rw, http.StatusText(status), status)
				return
			}

			next.ServeHTTP(rw, r.WithContext(ctx))
		})
	}
}

// resolverUnavailable 解析失败是否源于后端不可用（而非凭证无效）
func resolverUnavailable(err error) bool {
	return errors.Is(err, xcredential.ErrResolverUnavailable) ||
		errors.Is(err, context.DeadlineExceeded)
}

func resolveStatus(err error) int {
	if resolverUnavailable(err) {
		return http.StatusServiceUnavailable
	}
	return http.StatusUnauthorized
}

// responseRecorder 记录状态码，调试模式下额外记录响应体
type responseRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
	capture     *bytes.Buffer
}

func (w *responseRecorder) WriteHeader(code int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *responseRecorder) Write(p []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	if w.capture != nil && w.capture.Len() < maxCapturedBody {
		w.capture.Write(p[:min(len(p), maxCapturedBody-w.capture.Len())])
	}
	return w.ResponseWriter.Write(p)
}

// Unwrap 供 http.ResponseController 访问底层 writer
func (w *responseRecorder) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
