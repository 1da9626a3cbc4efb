package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/omeyang/xrequest/pkg/observability/xsteptrace"
)

type renderOptions struct {
	debug      bool
	failedOnly bool
}

// renderTrace 打印头部行与缩进树：
//
//	trace req-42 seq=2 took=9ms
//	HTTP GET /orders 9ms
//	  OrderService.List 8ms
//	    OrderRepo.Query 5ms !exception=...
func renderTrace(w io.Writer, tl *xsteptrace.TraceLog, opts renderOptions) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "trace %s seq=%d took=%s\n", tl.TraceID, tl.TraceSequence, tl.Duration())

	keep := func(*xsteptrace.Step) bool { return true }
	if opts.failedOnly {
		keep = hasFailure
	}

	tl.Walk(func(s, _ *xsteptrace.Step, depth int) bool {
		if !keep(s) {
			return false
		}
		indent := strings.Repeat("  ", depth)
		fmt.Fprintf(bw, "%s%s %s%s\n", indent, displayName(s), stepDuration(s), marker(s))
		if opts.debug && s.DebugInfo != nil {
			writeDebug(bw, indent+"  ", s.DebugInfo)
		}
		return true
	})
	return bw.Flush()
}

func displayName(s *xsteptrace.Step) string {
	if strings.TrimSpace(s.MethodFullName) == "" {
		return "(anonymous)"
	}
	return s.MethodFullName
}

func stepDuration(s *xsteptrace.Step) string {
	if s.ExitStamp == nil {
		return "(open)"
	}
	return s.Duration().Round(time.Microsecond).String()
}

func marker(s *xsteptrace.Step) string {
	if !s.Failed() {
		return ""
	}
	return " !exception=" + s.ExceptionKey.String()
}

// hasFailure 子树中是否存在异常步骤
func hasFailure(s *xsteptrace.Step) bool {
	found := false
	s.Walk(func(c, _ *xsteptrace.Step, _ int) bool {
		if c.Failed() {
			found = true
		}
		return !found
	})
	return found
}

func writeDebug(w io.Writer, indent string, d *xsteptrace.DebugInfo) {
	for _, line := range d.Lines {
		fmt.Fprintf(w, "%s> %s\n", indent, line)
	}
	if d.HTTPRequestRaw != "" {
		fmt.Fprintf(w, "%s> request: %s\n", indent, firstLine(d.HTTPRequestRaw))
	}
	if d.HTTPResponseRaw != "" {
		fmt.Fprintf(w, "%s> response: %s\n", indent, firstLine(d.HTTPResponseRaw))
	}
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return strings.TrimRight(line, "\r")
}
