package application

import (
	"context"
	"time"

	"github.com/Zhima-Mochi/travelshop/internal/observability"
	"github.com/Zhima-Mochi/travelshop/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const spanPrefix = "UC."

// Instruments holds the logger, tracer and RED metrics every use case of a
// service reports to. Build it once per use case via NewInstruments.
type Instruments struct {
	log    observability.Logger
	tracer observability.Tracer

	reqCounter   observability.Counter   // usecase_requests_total{use_case,outcome}
	durHistogram observability.Histogram // usecase_duration_seconds{use_case}
	extCounter   observability.Counter   // external_requests_total{peer,endpoint,outcome}
	extHistogram observability.Histogram // external_request_duration_seconds{peer,endpoint}
	metrics      observability.Metrics
}

func NewInstruments(tel observability.Observability, service string) Instruments {
	baseLog := observability.NopLogger()
	tracer := observability.NopTracer()
	metricsProvider := observability.NopMetrics()
	if tel != nil {
		baseLog = tel.Logger()
		tracer = tel.Tracer()
		metricsProvider = tel.Metrics()
	}
	return Instruments{
		log:          baseLog.With(observability.F("service", service)),
		tracer:       tracer,
		reqCounter:   metricsProvider.Counter(observability.MUsecaseRequests),
		durHistogram: metricsProvider.Histogram(observability.MUsecaseDuration),
		extCounter:   metricsProvider.Counter(observability.MExternalRequests),
		extHistogram: metricsProvider.Histogram(observability.MExternalRequestDuration),
		metrics:      metricsProvider,
	}
}

// Logger returns the request scoped logger from ctx, falling back to the base logger.
func (in Instruments) Logger(ctx context.Context) observability.Logger {
	return logctx.FromOr(ctx, in.log)
}

func (in Instruments) Metrics() observability.Metrics { return in.metrics }

// Call tracks one use case execution. Set Outcome/Status on failure paths and
// call End exactly once (usually deferred).
type Call struct {
	UseCase string
	Outcome string
	Status  string

	ctx    context.Context
	in     Instruments
	span   trace.Span
	start  time.Time
	logger observability.Logger
	fields []observability.Field
}

// Begin starts the span and the latency clock for a use case. The returned
// context carries the span and a logger tagged with use_case.
func (in Instruments) Begin(ctx context.Context, useCase, spanName string, attrs ...attribute.KeyValue) (context.Context, *Call) {
	logger := in.Logger(ctx).With(observability.F("use_case", useCase))
	attrs = append(attrs, attribute.String("use_case", useCase))
	ctx, span := in.tracer.Start(ctx, spanPrefix+spanName, attrs...)
	ctx = logctx.With(ctx, logger)
	return ctx, &Call{
		UseCase: useCase,
		Outcome: "success",
		Status:  "OK",
		ctx:     ctx,
		in:      in,
		span:    span,
		start:   time.Now(),
		logger:  logger,
	}
}

func (c *Call) Span() trace.Span { return c.span }

func (c *Call) Logger() observability.Logger { return c.logger }

// Fail marks the call as failed with a machine readable status.
func (c *Call) Fail(status string) {
	c.Outcome, c.Status = "error", status
}

// Field adds a field to the final use_case_done line.
func (c *Call) Field(key string, value any) {
	c.fields = append(c.fields, observability.F(key, value))
}

func (c *Call) End(err error) {
	lat := time.Since(c.start).Seconds()

	if c.span != nil {
		if err != nil {
			c.span.RecordError(err)
			c.span.SetStatus(codes.Error, c.Status)
		} else {
			c.span.SetStatus(codes.Ok, c.Status)
		}
		c.span.End()
	}

	if c.in.reqCounter != nil {
		c.in.reqCounter.Add(1,
			observability.L("use_case", c.UseCase),
			observability.L("outcome", c.Outcome),
		)
	}
	if c.in.durHistogram != nil {
		c.in.durHistogram.Observe(lat,
			observability.L("use_case", c.UseCase),
		)
	}

	fields := []observability.Field{
		observability.F("outcome", c.Outcome),
		observability.F("status", c.Status),
		observability.F("latency_seconds", lat),
	}
	if sc := trace.SpanContextFromContext(c.ctx); sc.IsValid() {
		fields = append(fields,
			observability.F("trace_id", sc.TraceID().String()),
			observability.F("span_id", sc.SpanID().String()),
		)
	}
	fields = append(fields, c.fields...)
	if err != nil {
		fields = append(fields, observability.F("error", err.Error()))
	}
	c.logger.Info("use_case_done", fields...)
}

// External records one outbound call (provider HTTP, publish, mail).
func (in Instruments) External(peer, endpoint, outcome string, started time.Time) {
	if in.extCounter != nil {
		in.extCounter.Add(1,
			observability.L("peer", peer),
			observability.L("endpoint", endpoint),
			observability.L("outcome", outcome),
		)
	}
	if in.extHistogram != nil {
		in.extHistogram.Observe(time.Since(started).Seconds(),
			observability.L("peer", peer),
			observability.L("endpoint", endpoint),
		)
	}
}
