package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"hedera-pulse/internal/domain"
	"hedera-pulse/internal/provider"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type HederaSource interface {
	FetchTransactionCount(ctx context.Context) (int, error)
	FetchTokenSupply(ctx context.Context, tokenID string) (float64, error)
}

type FearGreedSource interface {
	FetchLatest(ctx context.Context) (*provider.FearGreedPoint, error)
}

type MetricStore interface {
	Insert(ctx context.Context, source string, value float64, ts time.Time) (domain.StoredMetric, error)
	Latest(ctx context.Context, source string, limit int) ([]domain.StoredMetric, error)
	LatestAll(ctx context.Context, limit int) ([]domain.StoredMetric, error)
}

type StatusStore interface {
	Save(ctx context.Context, status domain.CollectorStatus) error
	Load(ctx context.Context) (domain.CollectorStatus, error)
}

// MetricService collects the three feeds into storage and serves them back.
type MetricService struct {
	tracer    trace.Tracer
	log       zerolog.Logger
	hedera    HederaSource
	fearGreed FearGreedSource
	repo      MetricStore
	status    StatusStore
	tokenID   string

	now      func() time.Time
	newRunID func() string

	mu     sync.Mutex
	subs   map[int]chan domain.CollectionResult
	nextID int
}

func NewMetricService(
	tracer trace.Tracer,
	log zerolog.Logger,
	hedera HederaSource,
	fearGreed FearGreedSource,
	repo MetricStore,
	status StatusStore,
	tokenID string,
) *MetricService {
	return &MetricService{
		tracer:    tracer,
		log:       log.With().Str("component", "metric-service").Logger(),
		hedera:    hedera,
		fearGreed: fearGreed,
		repo:      repo,
		status:    status,
		tokenID:   tokenID,
		now:       time.Now,
		newRunID:  uuid.NewString,
		subs:      make(map[int]chan domain.CollectionResult),
	}
}

type collectStep struct {
	source string
	fetch  func(ctx context.Context) (float64, error)
}

// Collect fetches tx count, USDC supply and greed/fear in that order and
// stores each value as soon as it is read. The first failure ends the run;
// values stored before it are kept.
func (s *MetricService) Collect(ctx context.Context) (domain.CollectionResult, error) {
	ctx, span := s.tracer.Start(ctx, "metric-service.collect")
	defer span.End()

	result := domain.CollectionResult{
		RunID:     s.newRunID(),
		StartedAt: s.now().UTC(),
		Values:    make(map[string]float64, len(domain.Feeds)),
	}
	span.SetAttributes(attribute.String("collector.run_id", result.RunID))

	steps := []collectStep{
		{domain.SourceHederaTxCount, func(ctx context.Context) (float64, error) {
			n, err := s.hedera.FetchTransactionCount(ctx)
			return float64(n), err
		}},
		{domain.SourceHederaUSDC, func(ctx context.Context) (float64, error) {
			return s.hedera.FetchTokenSupply(ctx, s.tokenID)
		}},
		{domain.SourceCryptoGreedFear, func(ctx context.Context) (float64, error) {
			point, err := s.fearGreed.FetchLatest(ctx)
			if err != nil {
				return 0, err
			}
			return float64(point.Value), nil
		}},
	}

	var runErr error
	for _, step := range steps {
		value, err := step.fetch(ctx)
		if err != nil {
			runErr = fmt.Errorf("collect %s: %w", step.source, err)
			break
		}
		if _, err := s.repo.Insert(ctx, step.source, value, result.StartedAt); err != nil {
			runErr = fmt.Errorf("store %s: %w", step.source, err)
			break
		}
		result.Values[step.source] = value
	}

	result.CompletedAt = s.now().UTC()
	if runErr != nil {
		result.Error = runErr.Error()
		span.RecordError(runErr)
		span.SetStatus(codes.Error, runErr.Error())
		s.log.Error().Err(runErr).Str("run_id", result.RunID).Msg("collection failed")
	} else {
		s.log.Info().Str("run_id", result.RunID).Interface("values", result.Values).Msg("collection complete")
	}

	s.recordStatus(ctx, result)
	s.broadcast(result)
	return result, runErr
}

func (s *MetricService) recordStatus(ctx context.Context, result domain.CollectionResult) {
	if s.status == nil {
		return
	}
	prev, err := s.status.Load(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to read collector status")
	}
	next := domain.CollectorStatus{
		LastRunID:     result.RunID,
		LastRunAt:     result.CompletedAt,
		LastSuccessAt: prev.LastSuccessAt,
		LastError:     result.Error,
	}
	if result.Error == "" {
		next.LastSuccessAt = result.CompletedAt
	}
	if err := s.status.Save(ctx, next); err != nil {
		s.log.Warn().Err(err).Msg("failed to write collector status")
	}
}

// Subscribe delivers each collection result. Slow readers only see the newest one.
func (s *MetricService) Subscribe() (<-chan domain.CollectionResult, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	ch := make(chan domain.CollectionResult, 1)
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			close(ch)
			s.mu.Unlock()
		})
	}
}

func (s *MetricService) broadcast(result domain.CollectionResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		ch <- result
	}
}

// GetSeries returns the newest stored values of a feed, newest first.
func (s *MetricService) GetSeries(ctx context.Context, feed domain.Feed, limit int) (domain.Series, error) {
	ctx, span := s.tracer.Start(ctx, "metric-service.get-series")
	defer span.End()
	span.SetAttributes(attribute.String("metric.feed", string(feed)))

	if !feed.Valid() {
		return nil, fmt.Errorf("unknown feed: %s", feed)
	}
	rows, err := s.repo.Latest(ctx, feed.StorageSource(), limit)
	if err != nil {
		return nil, err
	}
	series := make(domain.Series, 0, len(rows))
	for _, row := range rows {
		series = append(series, row.ToMetric())
	}
	return series, nil
}

func (s *MetricService) GetRaw(ctx context.Context, limit int) ([]domain.StoredMetric, error) {
	ctx, span := s.tracer.Start(ctx, "metric-service.get-raw")
	defer span.End()

	return s.repo.LatestAll(ctx, limit)
}

func (s *MetricService) GetStatus(ctx context.Context) (domain.CollectorStatus, error) {
	if s.status == nil {
		return domain.CollectorStatus{}, nil
	}
	return s.status.Load(ctx)
}
