package xlog_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xrequest/pkg/context/xunit"
	"github.com/omeyang/xrequest/pkg/observability/xlog"
)

type staticAttrs []slog.Attr

func (s staticAttrs) AppendLogAttrs(attrs []slog.Attr) []slog.Attr {
	return append(attrs, s...)
}

func TestNewEnrichHandler_Nil(t *testing.T) {
	h, err := xlog.NewEnrichHandler(nil)
	assert.Nil(t, h)
	assert.ErrorIs(t, err, xlog.ErrNilHandler)
}

func TestEnrichHandler_UnitAttrs(t *testing.T) {
	var buf bytes.Buffer
	h, err := xlog.NewEnrichHandler(slog.NewJSONHandler(&buf, nil))
	require.NoError(t, err)

	u := xunit.New()
	u.Set(xunit.SlotTraceContext, staticAttrs{slog.String("trace_id", "t-1")})
	u.Set(xunit.SlotAPIContext, staticAttrs{slog.String("client_ip", "10.0.0.1")})
	ctx, err := xunit.WithUnit(context.Background(), u)
	require.NoError(t, err)

	slog.New(h).InfoContext(ctx, "enriched")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "t-1", lines[0]["trace_id"])
	assert.Equal(t, "10.0.0.1", lines[0]["client_ip"])
	assert.EqualValues(t, u.ID(), lines[0][xlog.KeyUnitID])
}

func TestEnrichHandler_NoUnit(t *testing.T) {
	var buf bytes.Buffer
	h, err := xlog.NewEnrichHandler(slog.NewJSONHandler(&buf, nil))
	require.NoError(t, err)

	slog.New(h).InfoContext(context.Background(), "bare")
	assert.NotContains(t, buf.String(), xlog.KeyUnitID)
}

func TestEnrichHandler_WithAttrsAndGroup(t *testing.T) {
	var buf bytes.Buffer
	h, err := xlog.NewEnrichHandler(slog.NewJSONHandler(&buf, nil))
	require.NoError(t, err)

	logger := slog.New(h.WithAttrs([]slog.Attr{slog.String("svc", "api")}).WithGroup("req"))
	ctx, err := xunit.WithUnit(context.Background(), xunit.New())
	require.NoError(t, err)
	logger.InfoContext(ctx, "grouped", slog.String("path", "/x"))

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "api", lines[0]["svc"])
	req, ok := lines[0]["req"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "/x", req["path"])
}

func TestBuilder_EnrichDisabled(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := xlog.New().SetOutput(&buf).SetFormat("json").SetEnrich(false).Build()
	require.NoError(t, err)

	ctx, err := xunit.WithUnit(context.Background(), xunit.New())
	require.NoError(t, err)
	logger.Info(ctx, "plain")
	assert.NotContains(t, buf.String(), xlog.KeyUnitID)
}

func TestGlobal_SetAndReset(t *testing.T) {
	t.Cleanup(xlog.ResetDefault)

	var buf bytes.Buffer
	logger := newJSONLogger(t, &buf, xlog.LevelDebug)
	xlog.SetDefault(logger)
	xlog.SetDefault(nil)
	assert.Same(t, logger, xlog.Default())

	ctx := context.Background()
	xlog.Debug(ctx, "g-debug")
	xlog.Info(ctx, "g-info")
	xlog.Warn(ctx, "g-warn")
	xlog.Error(ctx, "g-error")
	assert.Len(t, decodeLines(t, &buf), 4)

	xlog.ResetDefault()
	assert.NotSame(t, logger, xlog.Default())
}
