package core

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

type Analyzer interface {
	Analyze(ctx context.Context, image Image) (*Result, error)
	GetAnalysis(ctx context.Context, id string) (*Analysis, error)
}

type analyzer struct {
	tracer     trace.Tracer
	metrics    *ExtractionMetrics
	requestor  Requestor
	repository Repository
}

func NewAnalyzer(requestor Requestor, repository Repository) Analyzer {
	if repository == nil {
		repository = NewNopRepository()
	}

	return &analyzer{
		tracer:     otel.GetTracerProvider().Tracer("calendar-photo-converter/core"),
		metrics:    NewExtractionMetrics(),
		requestor:  requestor,
		repository: repository,
	}
}

// Analyze runs one extraction call: request, parse, then record the outcome.
// Recording is best effort and never fails the call.
func (a *analyzer) Analyze(ctx context.Context, image Image) (*Result, error) {
	start := time.Now()

	if image.MediaType == "" {
		image.MediaType = MediaTypeFromFileName(image.FileName)
	}

	ctx, span := a.tracer.Start(ctx, "analyzer.Analyze", trace.WithAttributes(
		attribute.String("image.media_type", image.MediaType),
		attribute.Int("image.size", len(image.Data)),
	))
	defer span.End()

	events, err := a.extract(ctx, image)
	outcome := outcomeOf(events, err)

	a.metrics.Observe(ctx, outcome, start)
	span.SetAttributes(attribute.String("extraction.outcome", string(outcome)))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	analysis := &Analysis{
		FileName:   image.FileName,
		MediaType:  image.MediaType,
		SizeBytes:  int64(len(image.Data)),
		EventCount: len(events),
		Outcome:    outcome,
	}
	if err != nil {
		analysis.ErrorMessage = err.Error()
	}

	saved, saveErr := a.repository.SaveAnalysis(ctx, analysis)
	if saveErr != nil {
		log.Ctx(ctx).Warn().Err(saveErr).Msg("failed to record analysis")
	}

	if err != nil {
		return nil, err
	}

	result := &Result{Events: events}
	if saved != nil {
		result.AnalysisId = saved.Id
	}

	log.Ctx(ctx).Info().Str("file", image.FileName).Int("events", len(events)).Str("outcome", string(outcome)).
		Msg("calendar image analyzed")

	return result, nil
}

func (a *analyzer) extract(ctx context.Context, image Image) ([]CalendarEvent, error) {
	raw, err := a.requestor.Request(ctx, image)
	if err != nil {
		return nil, err
	}

	log.Ctx(ctx).Debug().Str("response", raw).Msg("vision model response")

	events, err := ParseEvents(raw)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("raw_response", raw).Msg("failed to parse vision model response")
		return nil, err
	}

	return events, nil
}

func (a *analyzer) GetAnalysis(ctx context.Context, id string) (*Analysis, error) {
	return a.repository.GetAnalysisById(ctx, id)
}

func outcomeOf(events []CalendarEvent, err error) Outcome {
	switch {
	case err == nil && len(events) == 0:
		return OutcomeEmpty
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, ErrUpstream):
		return OutcomeUpstreamFailure
	case errors.Is(err, ErrParseFailure):
		return OutcomeParseFailure
	default:
		return OutcomeRejected
	}
}

/*

 */

type ExtractionMetrics struct {
	total   metric.Int64Counter
	latency metric.Float64Histogram
}

func NewExtractionMetrics() *ExtractionMetrics {
	meter := otel.Meter("calendar-photo-converter/extraction")

	total, _ := meter.Int64Counter("extraction.total", metric.WithDescription("Extraction calls by outcome"))
	latency, _ := meter.Float64Histogram("extraction.duration.ms", metric.WithDescription("Extraction call duration in milliseconds"))

	return &ExtractionMetrics{total: total, latency: latency}
}

func (m *ExtractionMetrics) Observe(ctx context.Context, outcome Outcome, start time.Time) {
	attrs := metric.WithAttributes(attribute.String("extraction.outcome", string(outcome)))

	m.total.Add(ctx, 1, attrs)
	m.latency.Record(ctx, float64(time.Since(start).Milliseconds()), attrs)
}
