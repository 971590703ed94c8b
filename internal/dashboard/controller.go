// Package dashboard keeps the dashboard's view of the three metric feeds
// current by refreshing them together on a fixed interval.
package dashboard

import (
	"context"
	"errors"
	"sync"
	"time"

	"hedera-pulse/internal/domain"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const DefaultInterval = 60 * time.Second

// SeriesFetcher fetches one feed. *metricsclient.Client satisfies it.
type SeriesFetcher interface {
	FetchSeries(ctx context.Context, feed domain.Feed) (domain.Series, error)
}

// Ticker is the subset of *time.Ticker the controller needs.
type Ticker interface {
	Chan() <-chan time.Time
	Stop()
}

type TickerFactory func(d time.Duration) Ticker

type stdTicker struct{ t *time.Ticker }

func (s stdTicker) Chan() <-chan time.Time { return s.t.C }
func (s stdTicker) Stop()                  { s.t.Stop() }

func newStdTicker(d time.Duration) Ticker { return stdTicker{t: time.NewTicker(d)} }

type Option func(*Controller)

func WithInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.interval = d
		}
	}
}

func WithTicker(f TickerFactory) Option {
	return func(c *Controller) {
		if f != nil {
			c.newTicker = f
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// Controller owns the RefreshState container. Each refresh cycle fetches all
// feeds concurrently and applies the combined outcome all-or-nothing.
//
// Overlapping cycles are resolved last-started-wins: starting a cycle cancels
// any older cycle still in flight, and a cycle only applies its result if no
// newer cycle has started since. If every fetch outlasts the interval, each
// cycle is cancelled by the next and the state never leaves its current status.
type Controller struct {
	fetcher   SeriesFetcher
	tracer    trace.Tracer
	log       zerolog.Logger
	interval  time.Duration
	newTicker TickerFactory
	now       func() time.Time

	mu       sync.Mutex
	state    domain.RefreshState
	started  uint64
	inflight map[uint64]context.CancelFunc
	subs     map[int]chan domain.RefreshState
	nextSub  int

	cancel context.CancelFunc
	done   chan struct{}
	cycles sync.WaitGroup
}

func NewController(fetcher SeriesFetcher, tracer trace.Tracer, log zerolog.Logger, opts ...Option) *Controller {
	c := &Controller{
		fetcher:   fetcher,
		tracer:    tracer,
		log:       log.With().Str("component", "refresh-controller").Logger(),
		interval:  DefaultInterval,
		newTicker: newStdTicker,
		now:       time.Now,
		state:     domain.InitialRefreshState(),
		inflight:  make(map[uint64]context.CancelFunc),
		subs:      make(map[int]chan domain.RefreshState),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) Interval() time.Duration { return c.interval }

// State returns a copy of the current snapshot.
func (c *Controller) State() domain.RefreshState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

// Subscribe returns a channel that receives the state after every applied
// cycle. Only the latest state is buffered for slow readers. The returned
// func closes the channel.
func (c *Controller) Subscribe() (<-chan domain.RefreshState, func()) {
	ch := make(chan domain.RefreshState, 1)

	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	c.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			close(ch)
			c.mu.Unlock()
		})
	}
}

// Refresh runs one cycle and returns the state in effect when it finished.
func (c *Controller) Refresh(ctx context.Context) domain.RefreshState {
	c.mu.Lock()
	c.started++
	gen := c.started
	cycleCtx, cancel := context.WithCancel(ctx)
	for g, cancelOlder := range c.inflight {
		cancelOlder()
		delete(c.inflight, g)
	}
	c.inflight[gen] = cancel
	c.mu.Unlock()

	defer func() {
		cancel()
		c.mu.Lock()
		delete(c.inflight, gen)
		c.mu.Unlock()
	}()

	cycleCtx, span := c.tracer.Start(cycleCtx, "refresh-controller.refresh")
	defer span.End()
	span.SetAttributes(attribute.Int64("generation", int64(gen)))

	results, failures := c.fetchAll(cycleCtx)

	if errors.Is(cycleCtx.Err(), context.Canceled) {
		c.log.Debug().Uint64("generation", gen).Msg("refresh cycle cancelled, result discarded")
		return c.State()
	}

	state, applied := c.apply(gen, results, failures)
	if !applied {
		c.log.Debug().Uint64("generation", gen).Msg("refresh cycle superseded, result discarded")
		return state
	}

	if len(failures) > 0 {
		evt := c.log.Warn().Uint64("generation", gen)
		for _, f := range failures {
			evt = evt.Str(string(f.Feed), f.Error)
		}
		evt.Msg("refresh cycle failed")
	} else {
		c.log.Debug().
			Uint64("generation", gen).
			Int("tx_count", len(state.TxCount)).
			Int("usdc_minted", len(state.USDCMinted)).
			Int("greed_fear", len(state.GreedFear)).
			Msg("refresh cycle applied")
	}
	return state
}

// fetchAll fans out one request per feed and joins on the first failure or
// on all of them succeeding.
func (c *Controller) fetchAll(ctx context.Context) (map[domain.Feed]domain.Series, []domain.FeedFailure) {
	g, gctx := errgroup.WithContext(ctx)

	var mu sync.Mutex
	results := make(map[domain.Feed]domain.Series, len(domain.Feeds))
	var failures []domain.FeedFailure

	for _, feed := range domain.Feeds {
		g.Go(func() error {
			series, err := c.fetcher.FetchSeries(gctx, feed)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				// Siblings cancelled by the first failure are not failures of their own.
				if !(errors.Is(err, context.Canceled) && ctx.Err() == nil && gctx.Err() != nil) {
					failures = append(failures, domain.FeedFailure{Feed: feed, Error: err.Error()})
				}
				return err
			}
			results[feed] = series
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if len(failures) == 0 {
			failures = append(failures, domain.FeedFailure{Error: err.Error()})
		}
		return nil, failures
	}
	return results, nil
}

func (c *Controller) apply(gen uint64, results map[domain.Feed]domain.Series, failures []domain.FeedFailure) (domain.RefreshState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.started {
		return c.state.Clone(), false
	}

	var next domain.RefreshState
	if len(failures) > 0 {
		// Keep whatever the previous state showed; nothing from this cycle is applied.
		next = domain.RefreshState{
			TxCount:    c.state.TxCount,
			USDCMinted: c.state.USDCMinted,
			GreedFear:  c.state.GreedFear,
			Error:      domain.FetchErrorMessage,
			Failures:   failures,
		}
	} else {
		next = domain.RefreshState{
			TxCount:    results[domain.FeedTxCount],
			USDCMinted: results[domain.FeedUSDCMinted],
			GreedFear:  results[domain.FeedGreedFear],
		}
	}
	next.Loading = false
	next.Generation = gen
	next.UpdatedAt = c.now()

	c.state = next
	for _, ch := range c.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- next.Clone():
		default:
		}
	}
	return next.Clone(), true
}

// Start refreshes immediately and then once per interval until Stop is called
// or ctx is done. It returns without waiting for the first refresh. Calling
// Start on a running controller is a no-op.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	if c.cancel != nil {
		c.mu.Unlock()
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	c.cancel = cancel
	c.done = done
	ticker := c.newTicker(c.interval)
	c.mu.Unlock()

	c.log.Info().Dur("interval", c.interval).Msg("refresh controller starting")

	c.spawn(runCtx)
	go c.loop(runCtx, ticker, done)
}

func (c *Controller) loop(ctx context.Context, ticker Ticker, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			c.spawn(ctx)
		}
	}
}

// spawn runs a cycle without blocking the scheduler, so a slow cycle never
// delays the next tick.
func (c *Controller) spawn(ctx context.Context) {
	c.cycles.Add(1)
	go func() {
		defer c.cycles.Done()
		c.Refresh(ctx)
	}()
}

// Stop cancels the schedule and any cycle it started, then waits for them to
// return. The current state is left untouched. Safe to call at any time.
func (c *Controller) Stop() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	c.cycles.Wait()
	c.log.Info().Msg("refresh controller stopped")
}

// Running reports whether a schedule is active.
func (c *Controller) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancel != nil
}
