package gateway

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName      = "projects-board/gateway"
	requestSpanName = "gateway.request"
)

// callMetrics captures timing and outcome of a single gateway call, emitting
// an otel span plus one structured summary line when the call finishes.
type callMetrics struct {
	logger *log.Logger
	span   trace.Span
	op     string
	start  time.Time
}

func newCallMetrics(ctx context.Context, logger *log.Logger, op string) (*callMetrics, context.Context) {
	spanCtx, span := otel.Tracer(tracerName).Start(ctx, requestSpanName)
	span.SetAttributes(attribute.String("gateway.op", op))
	return &callMetrics{
		logger: logger,
		span:   span,
		op:     op,
		start:  time.Now(),
	}, spanCtx
}

// Finish records the call outcome. A zero status means the transport failed
// before a response arrived.
func (m *callMetrics) Finish(status int, err error) {
	if m == nil {
		return
	}
	if status > 0 {
		m.span.SetAttributes(attribute.Int("http.status_code", status))
	}
	if err != nil {
		m.span.RecordError(err)
		m.span.SetStatus(codes.Error, err.Error())
	} else {
		m.span.SetStatus(codes.Ok, "")
	}
	m.span.End()

	if m.logger == nil {
		return
	}
	fields := log.Fields{
		"op":       m.op,
		"status":   status,
		"total_ms": float64(time.Since(m.start)) / float64(time.Millisecond),
	}
	if sc := m.span.SpanContext(); sc.HasTraceID() {
		fields["trace_id"] = sc.TraceID().String()
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	m.logger.WithFields(fields).Info("gateway.request.metrics")
}
