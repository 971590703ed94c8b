package repository

import (
	"context"
	"fmt"
	"time"

	"hedera-pulse/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const createMetricsTable = `
CREATE TABLE IF NOT EXISTS metrics (
    id          BIGSERIAL        PRIMARY KEY,
    timestamp   TIMESTAMPTZ      NOT NULL DEFAULT NOW(),
    value       DOUBLE PRECISION NOT NULL,
    source      TEXT             NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_metrics_source_timestamp
    ON metrics (source, timestamp DESC);
`

const (
	DefaultSeriesLimit = 100
	DefaultRawLimit    = 10
	maxLimit           = 1000
)

type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type MetricRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewMetricRepository(pool PgxPool, tracer trace.Tracer) *MetricRepository {
	return &MetricRepository{pool: pool, tracer: tracer}
}

func (r *MetricRepository) RunMigrations(ctx context.Context) error {
	ctx, span := r.tracer.Start(ctx, "metric-repo.run-migrations")
	defer span.End()

	_, err := r.pool.Exec(ctx, createMetricsTable)
	return err
}

// Insert stores one observation. A zero ts is recorded as now.
func (r *MetricRepository) Insert(ctx context.Context, source string, value float64, ts time.Time) (domain.StoredMetric, error) {
	ctx, span := r.tracer.Start(ctx, "metric-repo.insert")
	defer span.End()
	span.SetAttributes(attribute.String("metric.source", source))

	if ts.IsZero() {
		ts = time.Now()
	}
	m := domain.StoredMetric{Value: value, Source: source}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO metrics (timestamp, value, source) VALUES ($1, $2, $3) RETURNING id, timestamp`,
		ts.UTC(), value, source,
	).Scan(&m.ID, &m.Timestamp)
	if err != nil {
		return domain.StoredMetric{}, fmt.Errorf("insert %s metric: %w", source, err)
	}
	return m, nil
}

// Latest returns the newest rows for source, newest first.
func (r *MetricRepository) Latest(ctx context.Context, source string, limit int) ([]domain.StoredMetric, error) {
	ctx, span := r.tracer.Start(ctx, "metric-repo.latest")
	defer span.End()
	span.SetAttributes(attribute.String("metric.source", source))

	rows, err := r.pool.Query(ctx,
		`SELECT id, timestamp, value, source
		 FROM metrics
		 WHERE source = $1
		 ORDER BY timestamp DESC, id DESC
		 LIMIT $2`,
		source, clampLimit(limit, DefaultSeriesLimit),
	)
	if err != nil {
		return nil, err
	}
	return scanMetrics(rows)
}

// LatestAll returns the newest rows across every source.
func (r *MetricRepository) LatestAll(ctx context.Context, limit int) ([]domain.StoredMetric, error) {
	ctx, span := r.tracer.Start(ctx, "metric-repo.latest-all")
	defer span.End()

	rows, err := r.pool.Query(ctx,
		`SELECT id, timestamp, value, source
		 FROM metrics
		 ORDER BY timestamp DESC, id DESC
		 LIMIT $1`,
		clampLimit(limit, DefaultRawLimit),
	)
	if err != nil {
		return nil, err
	}
	return scanMetrics(rows)
}

func scanMetrics(rows pgx.Rows) ([]domain.StoredMetric, error) {
	defer rows.Close()

	out := []domain.StoredMetric{}
	for rows.Next() {
		var m domain.StoredMetric
		if err := rows.Scan(&m.ID, &m.Timestamp, &m.Value, &m.Source); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func clampLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}
