package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xrequest/pkg/observability/xsteptrace"
)

var (
	t0      = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	failKey = uuid.MustParse("0b0e6a1c-3b7a-4f4e-9a55-6a1f3c7d2e10")
)

func at(ms int) *time.Time {
	t := t0.Add(time.Duration(ms) * time.Millisecond)
	return &t
}

func sampleTrace() *xsteptrace.TraceLog {
	return &xsteptrace.TraceLog{
		TraceID:       "req-42",
		TraceSequence: 2,
		Step: xsteptrace.Step{
			MethodFullName: "HTTP GET /orders",
			EntryStamp:     at(0),
			ExitStamp:      at(9),
			ExceptionKey:   &failKey,
			DebugInfo:      &xsteptrace.DebugInfo{HTTPRequestRaw: "GET /orders HTTP/1.1\r\nHost: x\r\n\r\n"},
			Children: []*xsteptrace.Step{
				{
					MethodFullName: "OrderService.List",
					EntryStamp:     at(1),
					ExitStamp:      at(8),
					ExceptionKey:   &failKey,
					DebugInfo:      &xsteptrace.DebugInfo{Lines: []string{"cache miss"}},
					Children: []*xsteptrace.Step{
						{MethodFullName: "OrderRepo.Query", EntryStamp: at(2), ExitStamp: at(7), ExceptionKey: &failKey},
					},
				},
				{MethodFullName: "", EntryStamp: at(8)},
			},
		},
	}
}

func writeTrace(t *testing.T, tl *xsteptrace.TraceLog) string {
	t.Helper()
	data, err := json.Marshal(tl)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "trace.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func runCLI(args ...string) (code int, stdout, stderr string) {
	var out, errOut bytes.Buffer
	code = run(context.Background(), append([]string{"xtracectl"}, args...), &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestRender(t *testing.T) {
	code, out, _ := runCLI("render", writeTrace(t, sampleTrace()))
	require.Equal(t, 0, code)

	want := "trace req-42 seq=2 took=9ms\n" +
		"HTTP GET /orders 9ms !exception=" + failKey.String() + "\n" +
		"  OrderService.List 7ms !exception=" + failKey.String() + "\n" +
		"    OrderRepo.Query 5ms !exception=" + failKey.String() + "\n" +
		"  (anonymous) (open)\n"
	assert.Equal(t, want, out)
}

func TestRender_Debug(t *testing.T) {
	code, out, _ := runCLI("render", "--debug", writeTrace(t, sampleTrace()))
	require.Equal(t, 0, code)
	assert.Contains(t, out, "  > request: GET /orders HTTP/1.1\n")
	assert.Contains(t, out, "    > cache miss\n")
}

func TestRender_FailedOnly(t *testing.T) {
	code, out, _ := runCLI("render", "-f", writeTrace(t, sampleTrace()))
	require.Equal(t, 0, code)
	assert.Contains(t, out, "OrderRepo.Query")
	assert.NotContains(t, out, "(anonymous)")
}

func TestRender_Errors(t *testing.T) {
	code, _, stderr := runCLI("render")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "参数错误")

	code, _, _ = runCLI("render", filepath.Join(t.TempDir(), "missing.json"))
	assert.Equal(t, 1, code)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0o600))
	code, _, stderr = runCLI("render", bad)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "bad.json")
}

func TestCheckConfig(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.yaml")
	require.NoError(t, os.WriteFile(good, []byte("debug_trace_id: dbg\n"), 0o600))
	code, out, _ := runCLI("check-config", good)
	assert.Equal(t, 0, code)
	assert.Contains(t, out, `ok (debug_trace_id="dbg", default_culture="en-US")`)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("log:\n  level: loud\n  format: xml\n"), 0o600))
	code, _, stderr := runCLI("check-config", bad)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "2 problem(s)")
	assert.Contains(t, stderr, "log.level")
	assert.Contains(t, stderr, "log.format")

	code, _, stderr = runCLI("check-config", filepath.Join(dir, "settings.toml"))
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "unsupported")

	code, _, _ = runCLI("check-config")
	assert.Equal(t, 2, code)
}

func TestUnknownFlag(t *testing.T) {
	code, _, _ := runCLI("render", "--nope", "x.json")
	assert.Equal(t, 2, code)
}

func TestHasFailure(t *testing.T) {
	tl := sampleTrace()
	assert.True(t, hasFailure(&tl.Step))
	assert.False(t, hasFailure(tl.Children[1]))
}
