package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"calendar-photo-converter/pkg/resources"
)

type Repository interface {
	SaveAnalysis(ctx context.Context, analysis *Analysis) (*Analysis, error)
	GetAnalysisById(ctx context.Context, id string) (*Analysis, error)
}

type repository struct {
	tracer  trace.Tracer
	metrics *DBMetrics
	pool    resources.DBInstance
}

func NewRepository(pool resources.DBInstance) Repository {
	return &repository{
		tracer:  otel.GetTracerProvider().Tracer("calendar-photo-converter/core"),
		metrics: NewDBMetrics(),
		pool:    pool,
	}
}

func (r *repository) SaveAnalysis(ctx context.Context, analysis *Analysis) (*Analysis, error) {
	start := time.Now()

	var err error

	defer func() { r.metrics.Observe(ctx, "save_analysis", start, err) }()

	ctx, span := r.tracer.Start(ctx, "repository.SaveAnalysis")
	defer span.End()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	var (
		saved   Analysis
		outcome string
	)

	err = tx.QueryRow(ctx,
		"INSERT INTO analyses (file_name, media_type, size_bytes, event_count, outcome, error_message) "+
			"VALUES ($1, $2, $3, $4, $5, $6) "+
			"RETURNING id, file_name, media_type, size_bytes, event_count, outcome, error_message, created_at",
		analysis.FileName, analysis.MediaType, analysis.SizeBytes, analysis.EventCount, string(analysis.Outcome), analysis.ErrorMessage).
		Scan(&saved.Id, &saved.FileName, &saved.MediaType, &saved.SizeBytes, &saved.EventCount, &outcome, &saved.ErrorMessage, &saved.CreatedAt)
	if err != nil {
		_ = tx.Rollback(ctx)
		return nil, fmt.Errorf("failed to insert analysis: %w", err)
	}

	err = tx.Commit(ctx)
	if err != nil {
		_ = tx.Rollback(ctx)
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	saved.Outcome = Outcome(outcome)

	return &saved, nil
}

func (r *repository) GetAnalysisById(ctx context.Context, id string) (*Analysis, error) {
	start := time.Now()

	var err error

	defer func() { r.metrics.Observe(ctx, "get_analysis_by_id", start, err) }()

	ctx, span := r.tracer.Start(ctx, "repository.GetAnalysisById")
	defer span.End()

	var (
		a       Analysis
		outcome string
	)

	err = r.pool.QueryRow(
		ctx,
		`SELECT id, file_name, media_type, size_bytes, event_count, outcome, error_message, created_at
		 FROM analyses
		 WHERE id = $1`,
		id,
	).Scan(
		&a.Id,
		&a.FileName,
		&a.MediaType,
		&a.SizeBytes,
		&a.EventCount,
		&outcome,
		&a.ErrorMessage,
		&a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAnalysisNotFound
		}

		return nil, fmt.Errorf("failed to get analysis by id: %w", err)
	}

	a.Outcome = Outcome(outcome)

	return &a, nil
}

const analysesSchema = `CREATE TABLE IF NOT EXISTS analyses (
	id            UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	file_name     TEXT        NOT NULL,
	media_type    TEXT        NOT NULL,
	size_bytes    BIGINT      NOT NULL,
	event_count   INTEGER     NOT NULL DEFAULT 0,
	outcome       TEXT        NOT NULL,
	error_message TEXT        NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
)`

func EnsureSchema(ctx context.Context, pool resources.DBInstance) error {
	_, err := pool.Exec(ctx, analysesSchema)
	if err != nil {
		return fmt.Errorf("failed to create analyses table: %w", err)
	}

	return nil
}

// nopRepository stands in when no database is configured.
type nopRepository struct{}

func NewNopRepository() Repository {
	return nopRepository{}
}

func (nopRepository) SaveAnalysis(_ context.Context, analysis *Analysis) (*Analysis, error) {
	return analysis, nil
}

func (nopRepository) GetAnalysisById(_ context.Context, _ string) (*Analysis, error) {
	return nil, ErrAnalysisNotFound
}

// DBMetrics counts analysis log queries, failures and latency per operation.
type DBMetrics struct {
	queries  metric.Int64Counter
	failures metric.Int64Counter
	duration metric.Float64Histogram
}

func NewDBMetrics() *DBMetrics {
	meter := otel.Meter("calendar-photo-converter/db")

	m := new(DBMetrics)
	m.queries, _ = meter.Int64Counter("analysis_log.queries")
	m.failures, _ = meter.Int64Counter("analysis_log.failures")
	m.duration, _ = meter.Float64Histogram("analysis_log.duration.ms", metric.WithUnit("ms"))

	return m
}

func (m *DBMetrics) Observe(ctx context.Context, op string, start time.Time, err error) {
	attrs := metric.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", op),
	)

	m.queries.Add(ctx, 1, attrs)
	m.duration.Record(ctx, float64(time.Since(start).Microseconds())/1000, attrs)

	// a missing analysis is an answer, not a failure
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		m.failures.Add(ctx, 1, attrs)
	}
}
