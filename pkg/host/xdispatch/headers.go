package xdispatch

import (
	"math"
	"net"
	"strconv"
	"strings"
)

// 默认头部名称
const (
	DefaultTraceIDHeader       = "X-Trace-ID"
	DefaultTraceSequenceHeader = "X-Trace-Sequence"
	DefaultTokenHeader         = "X-Api-Token"
	DefaultCultureQuery        = "language"
)

const (
	headerAuthorization = "Authorization"
	headerForwardedFor  = "X-Forwarded-For"
	headerRealIP        = "X-Real-IP"
	bearerPrefix        = "bearer "
)

// HeaderNames 传输层使用的头部名（gRPC 下按小写作为 metadata 键）
type HeaderNames struct {
	TraceID       string
	TraceSequence string
	Token         string
	// CultureQuery HTTP 查询参数名；gRPC 下作为 metadata 键
	CultureQuery string
}

// DefaultHeaderNames 返回默认头部名
func DefaultHeaderNames() HeaderNames {
	return HeaderNames{}.withDefaults()
}

func (h HeaderNames) withDefaults() HeaderNames {
	if h.TraceID == "" {
		h.TraceID = DefaultTraceIDHeader
	}
	if h.TraceSequence == "" {
		h.TraceSequence = DefaultTraceSequenceHeader
	}
	if h.Token == "" {
		h.Token = DefaultTokenHeader
	}
	if h.CultureQuery == "" {
		h.CultureQuery = DefaultCultureQuery
	}
	return h
}

// bearerToken 从 Authorization 值中取出 Bearer token
func bearerToken(authorization string) string {
	if len(authorization) > len(bearerPrefix) && strings.EqualFold(authorization[:len(bearerPrefix)], bearerPrefix) {
		return strings.TrimSpace(authorization[len(bearerPrefix):])
	}
	return ""
}

// pickToken Bearer 优先，其次专用 token 头
func pickToken(authorization, header string) string {
	if tok := bearerToken(authorization); tok != "" {
		return tok
	}
	return strings.TrimSpace(header)
}

// clientIP X-Forwarded-For 第一段，其次 X-Real-IP，最后是对端地址
func clientIP(forwardedFor, realIP, remoteAddr string) string {
	if forwardedFor != "" {
		first, _, _ := strings.Cut(forwardedFor, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(realIP); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return host
	}
	return remoteAddr
}

// parseSequence 非负整数才有效，math.MaxInt 无法再加一跳，同样无效
func parseSequence(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n == math.MaxInt {
		return 0, false
	}
	return n, true
}
