package xsteptrace

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultInstrumentationName = "github.com/omeyang/xrequest/pkg/observability/xsteptrace"

	metricTraceFinalized = "xrequest.trace.finalized"
	metricTraceDuration  = "xrequest.trace.duration"

	attrTraceID       = "xrequest.trace_id"
	attrTraceSequence = "xrequest.trace_sequence"
	attrExceptionKey  = "xrequest.exception_key"
	attrFailed        = "xrequest.failed"

	eventDebugLine = "debug.line"
)

// ErrNilTraceLog Export 的参数为 nil
var ErrNilTraceLog = errors.New("xsteptrace: nil trace log")

type otelConfig struct {
	instrumentationName string
	tracerProvider      trace.TracerProvider
	meterProvider       metric.MeterProvider
}

// OTelOption OTelExporter 选项
type OTelOption func(*otelConfig)

// WithInstrumentationName 设置 instrumentation 名称
func WithInstrumentationName(name string) OTelOption {
	return func(cfg *otelConfig) {
		if name != "" {
			cfg.instrumentationName = name
		}
	}
}

// WithTracerProvider 设置 TracerProvider，默认使用全局 provider。
func WithTracerProvider(provider trace.TracerProvider) OTelOption {
	return func(cfg *otelConfig) {
		if provider != nil {
			cfg.tracerProvider = provider
		}
	}
}

// WithMeterProvider 设置 MeterProvider，默认使用全局 provider。
func WithMeterProvider(provider metric.MeterProvider) OTelOption {
	return func(cfg *otelConfig) {
		if provider != nil {
			cfg.meterProvider = provider
		}
	}
}

// OTelExporter 将完成的调用树回放为 OpenTelemetry span。
type OTelExporter struct {
	tracer    trace.Tracer
	finalized metric.Int64Counter
	duration  metric.Float64Histogram
}

// NewOTelExporter 创建 OTelExporter
func NewOTelExporter(opts ...OTelOption) (*OTelExporter, error) {
	cfg := &otelConfig{
		instrumentationName: defaultInstrumentationName,
		tracerProvider:      otel.GetTracerProvider(),
		meterProvider:       otel.GetMeterProvider(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	meter := cfg.meterProvider.Meter(cfg.instrumentationName)
	finalized, err := meter.Int64Counter(
		metricTraceFinalized,
		metric.WithDescription("finalized request traces"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("xsteptrace: create counter failed: %w", err)
	}
	duration, err := meter.Float64Histogram(
		metricTraceDuration,
		metric.WithDescription("request trace duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("xsteptrace: create histogram failed: %w", err)
	}

	return &OTelExporter{
		tracer:    cfg.tracerProvider.Tracer(cfg.instrumentationName),
		finalized: finalized,
		duration:  duration,
	}, nil
}

// Export 为每个步骤创建一个 span，时间戳取自步骤本身。
// 未退出的步骤以进入时间结束。
func (e *OTelExporter) Export(ctx context.Context, tl *TraceLog) error {
	if tl == nil {
		return ErrNilTraceLog
	}
	if ctx == nil {
		ctx = context.Background()
	}

	rootAttrs := []attribute.KeyValue{
		attribute.String(attrTraceID, tl.TraceID),
		attribute.Int(attrTraceSequence, tl.TraceSequence),
	}
	e.exportStep(ctx, &tl.Step, rootAttrs)

	failed := tl.Failed()
	e.finalized.Add(ctx, 1, metric.WithAttributes(attribute.Bool(attrFailed, failed)))
	if d := tl.Duration(); d > 0 {
		e.duration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.Bool(attrFailed, failed)))
	}
	return nil
}

func (e *OTelExporter) exportStep(ctx context.Context, s *Step, attrs []attribute.KeyValue) {
	startOpts := []trace.SpanStartOption{trace.WithAttributes(attrs...)}
	if s.EntryStamp != nil {
		startOpts = append(startOpts, trace.WithTimestamp(*s.EntryStamp))
	}
	name := s.MethodFullName
	if name == "" {
		name = "anonymous"
	}
	ctx, span := e.tracer.Start(ctx, name, startOpts...)

	if s.Failed() {
		key := s.ExceptionKey.String()
		span.SetAttributes(attribute.String(attrExceptionKey, key))
		span.SetStatus(codes.Error, key)
	}
	if s.DebugInfo != nil {
		for _, line := range s.DebugInfo.Lines {
			span.AddEvent(eventDebugLine, trace.WithAttributes(attribute.String("line", line)))
		}
	}

	for _, c := range s.Children {
		e.exportStep(ctx, c, nil)
	}

	var endOpts []trace.SpanEndOption
	switch {
	case s.ExitStamp != nil:
		endOpts = append(endOpts, trace.WithTimestamp(*s.ExitStamp))
	case s.EntryStamp != nil:
		endOpts = append(endOpts, trace.WithTimestamp(*s.EntryStamp))
	}
	span.End(endOpts...)
}
