package api

import (
	"context"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName        = "aura-api/api"
	observabilityName = "observability.event"
	eventDomain       = "aura.api"
)

// requestMetrics collects per-stage timings for one request and emits them
// once, both as a log entry and as a span event.
type requestMetrics struct {
	logger     *log.Logger
	route      string
	name       string
	span       trace.Span
	start      time.Time
	stages     map[string]time.Duration
	attrs      map[string]any
	errorStage string
}

// newRequestMetrics starts a span named "<name>.request" and returns the
// context carrying it.
func newRequestMetrics(ctx context.Context, logger *log.Logger, route, name string) (*requestMetrics, context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	spanCtx, span := otel.Tracer(tracerName).Start(ctx, name+".request",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attribute.String("http.route", route)),
	)
	return &requestMetrics{
		logger: logger,
		route:  route,
		name:   name,
		span:   span,
		start:  time.Now(),
		stages: map[string]time.Duration{},
		attrs:  map[string]any{},
	}, spanCtx
}

// Observe records how long a stage took.
func (m *requestMetrics) Observe(stage string, d time.Duration) {
	if m == nil || d <= 0 {
		return
	}
	m.stages[stage] = d
}

// Set attaches a request-level attribute.
func (m *requestMetrics) Set(key string, value any) {
	if m == nil {
		return
	}
	m.attrs[key] = value
}

func (m *requestMetrics) SetErrorStage(stage string) {
	if m == nil || stage == "" {
		return
	}
	m.errorStage = stage
}

func (m *requestMetrics) key(k string) string {
	return "aura." + m.name + "." + k
}

// Log ends the span and writes the "<name>.request.metrics" entry.
func (m *requestMetrics) Log(status int, err error) {
	if m == nil {
		return
	}
	total := durationToMillis(time.Since(m.start))
	severity, number := severityForStatus(status, err)

	fields := log.Fields{
		"route":           m.route,
		"status":          status,
		"total_ms":        total,
		"event.name":      m.name + ".request",
		"event.domain":    eventDomain,
		"severity_text":   severity,
		"severity_number": number,
	}
	attrs := []attribute.KeyValue{
		attribute.String("http.route", m.route),
		attribute.Int("http.status_code", status),
		attribute.Float64(m.key("total_ms"), total),
	}
	for stage, d := range m.stages {
		ms := durationToMillis(d)
		fields[stage+"_ms"] = ms
		attrs = append(attrs, attribute.Float64(m.key(stage+"_ms"), ms))
	}
	for k, v := range m.attrs {
		fields[k] = v
		attrs = append(attrs, toAttribute(m.key(k), v))
	}
	if m.errorStage != "" {
		fields["error_stage"] = m.errorStage
		attrs = append(attrs, attribute.String(m.key("error_stage"), m.errorStage))
	}
	if err != nil {
		fields["error"] = err.Error()
		attrs = append(attrs, attribute.String("error.message", err.Error()))
	}

	if m.span != nil {
		sc := m.span.SpanContext()
		if sc.HasTraceID() {
			fields["trace_id"] = sc.TraceID().String()
		}
		m.span.SetAttributes(attrs...)
		m.span.AddEvent(observabilityName, trace.WithAttributes(append(attrs,
			attribute.String("event.name", m.name+".request"),
			attribute.String("severity_text", severity),
		)...))
		if severity == "ERROR" {
			msg := http.StatusText(status)
			if err != nil {
				msg = err.Error()
			}
			m.span.SetStatus(codes.Error, msg)
		} else {
			m.span.SetStatus(codes.Ok, "")
		}
		m.span.End()
	}

	if m.logger == nil {
		return
	}
	entry := m.logger.WithFields(fields)
	switch severity {
	case "ERROR":
		entry.Error(m.name + ".request.metrics")
	case "WARN":
		entry.Warn(m.name + ".request.metrics")
	default:
		entry.Info(m.name + ".request.metrics")
	}
}

func toAttribute(key string, v any) attribute.KeyValue {
	switch val := v.(type) {
	case bool:
		return attribute.Bool(key, val)
	case int:
		return attribute.Int(key, val)
	case int64:
		return attribute.Int64(key, val)
	case float64:
		return attribute.Float64(key, val)
	case string:
		return attribute.String(key, val)
	default:
		return attribute.String(key, "")
	}
}

func severityForStatus(status int, err error) (string, int) {
	switch {
	case status >= http.StatusInternalServerError:
		return "ERROR", 17
	case status >= http.StatusBadRequest:
		return "WARN", 13
	case err != nil:
		return "ERROR", 17
	default:
		return "INFO", 9
	}
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
