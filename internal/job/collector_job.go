package job

import (
	"context"
	"time"

	"hedera-pulse/internal/domain"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

const defaultCollectInterval = 300 * time.Second

type Collector interface {
	Collect(ctx context.Context) (domain.CollectionResult, error)
}

// CollectorJob runs the metric collector on a fixed interval.
type CollectorJob struct {
	tracer    trace.Tracer
	log       zerolog.Logger
	collector Collector
	interval  time.Duration
	newTicker func(time.Duration) (<-chan time.Time, func())
}

func NewCollectorJob(tracer trace.Tracer, log zerolog.Logger, collector Collector, pollIntervalSecs int) *CollectorJob {
	interval := time.Duration(pollIntervalSecs) * time.Second
	if interval <= 0 {
		interval = defaultCollectInterval
	}
	return &CollectorJob{
		tracer:    tracer,
		log:       log.With().Str("component", "collector-job").Logger(),
		collector: collector,
		interval:  interval,
		newTicker: func(d time.Duration) (<-chan time.Time, func()) {
			t := time.NewTicker(d)
			return t.C, t.Stop
		},
	}
}

// Start blocks until ctx is cancelled.
func (j *CollectorJob) Start(ctx context.Context) {
	j.log.Info().Dur("interval", j.interval).Msg("collector starting")
	j.pollLoop(ctx, j.runOnce)
	j.log.Info().Msg("collector stopped")
}

func (j *CollectorJob) runOnce(ctx context.Context) error {
	// a cycle never outlives the next tick
	ctx, cancel := context.WithTimeout(ctx, j.interval)
	defer cancel()

	ctx, span := j.tracer.Start(ctx, "collector-job.run")
	defer span.End()

	_, err := j.collector.Collect(ctx)
	return err
}

func (j *CollectorJob) pollLoop(ctx context.Context, fn func(context.Context) error) {
	if err := fn(ctx); err != nil {
		j.log.Warn().Err(err).Msg("initial collection failed")
	}

	ticks, stop := j.newTicker(j.interval)
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticks:
			if err := fn(ctx); err != nil {
				j.log.Warn().Err(err).Msg("collection failed")
			}
		}
	}
}
