package xsteptrace

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"

	"github.com/omeyang/xrequest/pkg/observability/xlog"
)

// IsDebugging 当前追踪是否被 DebugSelector 选中
func IsDebugging(ctx context.Context) bool {
	rec := active(ctx)
	return rec != nil && rec.selector.Matches(rec.traceID)
}

// debugTarget 调试采集生效时返回当前步骤的 DebugInfo，否则返回 nil。
// 根步骤已退出时写入根步骤。
func debugTarget(ctx context.Context) *DebugInfo {
	rec := active(ctx)
	if rec == nil || !rec.selector.Matches(rec.traceID) {
		return nil
	}
	idx := rec.current
	if idx == unwound {
		idx = rootIndex
	}
	n := &rec.nodes[idx]
	if n.debug == nil {
		n.debug = &DebugInfo{}
	}
	return n.debug
}

// WriteLine 向当前步骤追加一行调试文本
func WriteLine(ctx context.Context, format string, args ...any) {
	d := debugTarget(ctx)
	if d == nil {
		return
	}
	if len(args) > 0 {
		format = fmt.Sprintf(format, args...)
	}
	d.Lines = append(d.Lines, format)
}

// WriteRawExchange 记录一次原始 HTTP 交换，空字段不覆盖已有内容。
func WriteRawExchange(ctx context.Context, ex RawExchange) {
	d := debugTarget(ctx)
	if d == nil {
		return
	}
	if ex.Request != "" {
		d.HTTPRequestRaw = ex.Request
	}
	if ex.Response != "" {
		d.HTTPResponseRaw = ex.Response
	}
}

// WriteHTTPRequestRaw 记录请求的原始报文（含 body）。
// body 被读取后会替换为等价的副本，调用方仍可读取。
func WriteHTTPRequestRaw(ctx context.Context, req *http.Request) {
	if req == nil {
		return
	}
	d := debugTarget(ctx)
	if d == nil {
		return
	}
	raw, err := httputil.DumpRequest(req, true)
	if err != nil {
		xlog.Warn(ctx, "xsteptrace: dump request failed", xlog.Err(err), slog.String("url", req.URL.String()))
		return
	}
	d.HTTPRequestRaw = string(raw)
}

// WriteHTTPResponseRaw 以 HTTP/1.1 报文格式记录响应
func WriteHTTPResponseRaw(ctx context.Context, status int, header http.Header, body string) {
	d := debugTarget(ctx)
	if d == nil {
		return
	}
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "HTTP/1.1 %03d %s\r\n", status, http.StatusText(status))
	if err := header.Write(&buf); err != nil {
		xlog.Warn(ctx, "xsteptrace: write response header failed", xlog.Err(err))
	}
	buf.WriteString("\r\n")
	buf.WriteString(body)
	d.HTTPResponseRaw = buf.String()
}
