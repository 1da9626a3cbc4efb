package xdispatch_test

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/omeyang/xrequest/pkg/business/xcredential"
	"github.com/omeyang/xrequest/pkg/context/xapictx"
	"github.com/omeyang/xrequest/pkg/observability/xsteptrace"
)

var (
	aliceKey  = uuid.MustParse("7d9f3c9e-7a53-4c1b-9a43-2f5b2b0d3a11")
	errDenied = errors.New("token revoked")
)

// testResolver tok-1 → alice；tok-revoked → 永久错误；tok-down → 不可用
var testResolver = xapictx.ResolverFunc(func(_ context.Context, token string) (xapictx.Credential, error) {
	switch token {
	case "tok-1":
		return &xapictx.UserInfo{Key: aliceKey, Name: "alice", Culture: "de"}, nil
	case "tok-revoked":
		return nil, xcredential.Permanent(errDenied)
	case "tok-down":
		return nil, xcredential.ErrResolverUnavailable
	default:
		return nil, nil
	}
})

// sink 收集追踪结果
type sink struct {
	mu   sync.Mutex
	logs []*xsteptrace.TraceLog
}

func (s *sink) collect(_ context.Context, tl *xsteptrace.TraceLog) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, tl)
}

func (s *sink) all() []*xsteptrace.TraceLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*xsteptrace.TraceLog(nil), s.logs...)
}
