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
	organizeSpanName    = "organize.generate"
	organizeEventName   = "organize.request.metrics"
	organizeEventDomain = "tidyboard"
	tracerName          = "tidyboard-api/api"
)

// organizeRequestMetrics collects per-request timings for the suggestion
// endpoint and emits them both as a span and as a structured log event.
type organizeRequestMetrics struct {
	logger *log.Logger
	span   trace.Span
	start  time.Time

	authDuration     time.Duration
	generateDuration time.Duration
	encodeDuration   time.Duration

	suggestionsReturned int
	tasksAnalyzed       int
	errorStage          string
}

func newOrganizeRequestMetrics(ctx context.Context, logger *log.Logger) (*organizeRequestMetrics, context.Context) {
	m := &organizeRequestMetrics{
		logger: logger,
		start:  time.Now(),
	}
	spanCtx, span := otel.Tracer(tracerName).Start(ctx, organizeSpanName)
	m.span = span
	return m, spanCtx
}

func (m *organizeRequestMetrics) ObserveAuth(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.authDuration = duration
}

func (m *organizeRequestMetrics) ObserveGenerate(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.generateDuration = duration
}

func (m *organizeRequestMetrics) ObserveEncode(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.encodeDuration = duration
}

func (m *organizeRequestMetrics) SetSuggestionsReturned(count int) {
	if count < 0 {
		count = 0
	}
	m.suggestionsReturned = count
}

func (m *organizeRequestMetrics) SetTasksAnalyzed(count int) {
	if count < 0 {
		count = 0
	}
	m.tasksAnalyzed = count
}

func (m *organizeRequestMetrics) SetErrorStage(stage string) {
	if stage == "" {
		return
	}
	m.errorStage = stage
}

// Log finishes the request span and emits one observability event carrying
// every collected attribute. It must be called exactly once per request.
func (m *organizeRequestMetrics) Log(status int, err error) {
	if m == nil {
		return
	}

	severityText, severityNumber := severityForStatus(status, err)

	attrs := []attribute.KeyValue{
		attribute.String("http.route", "/api/organize/suggestions"),
		attribute.Int("http.status_code", status),
		attribute.Float64("organize.total_ms", durationToMillis(time.Since(m.start))),
		attribute.Int("organize.suggestions_returned", m.suggestionsReturned),
		attribute.Int("organize.tasks_analyzed", m.tasksAnalyzed),
	}
	if m.authDuration > 0 {
		attrs = append(attrs, attribute.Float64("organize.auth_ms", durationToMillis(m.authDuration)))
	}
	if m.generateDuration > 0 {
		attrs = append(attrs, attribute.Float64("organize.generate_ms", durationToMillis(m.generateDuration)))
	}
	if m.encodeDuration > 0 {
		attrs = append(attrs, attribute.Float64("organize.encode_ms", durationToMillis(m.encodeDuration)))
	}
	if m.errorStage != "" {
		attrs = append(attrs, attribute.String("organize.error_stage", m.errorStage))
	}
	if err != nil {
		attrs = append(attrs, attribute.String("error.message", err.Error()))
	}

	traceID := ""
	if m.span != nil {
		m.span.SetAttributes(attrs...)
		eventAttrs := append([]attribute.KeyValue{
			attribute.String("event.name", organizeEventName),
			attribute.String("event.domain", organizeEventDomain),
			attribute.String("severity_text", severityText),
			attribute.Int("severity_number", severityNumber),
		}, attrs...)
		m.span.AddEvent("observability.event", trace.WithAttributes(eventAttrs...))
		if err != nil {
			m.span.SetStatus(codes.Error, err.Error())
		} else if status >= http.StatusInternalServerError {
			m.span.SetStatus(codes.Error, http.StatusText(status))
		} else {
			m.span.SetStatus(codes.Ok, "")
		}
		if sc := m.span.SpanContext(); sc.HasTraceID() {
			traceID = sc.TraceID().String()
		}
		m.span.End()
	}

	if m.logger == nil {
		return
	}
	attrMap := make(map[string]any, len(attrs))
	for _, kv := range attrs {
		attrMap[string(kv.Key)] = kv.Value.AsInterface()
	}
	fields := log.Fields{
		"event.name":      organizeEventName,
		"event.domain":    organizeEventDomain,
		"attributes":      attrMap,
		"severity_text":   severityText,
		"severity_number": severityNumber,
	}
	if traceID != "" {
		fields["trace_id"] = traceID
	}
	m.logger.WithFields(fields).Info("observability.event")
}

func severityForStatus(status int, err error) (string, int) {
	switch {
	case err != nil || status >= http.StatusInternalServerError:
		return "ERROR", 17
	case status >= http.StatusBadRequest:
		return "WARN", 13
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
