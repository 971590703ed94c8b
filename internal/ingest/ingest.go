// Package ingest copies Hedera mirror node transactions into Postgres,
// resuming after the newest transaction already stored.
package ingest

import (
	"context"
	"fmt"

	"hedera-pulse/internal/domain"
	"hedera-pulse/internal/provider"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DefaultStartTimestamp is used when nothing has been stored yet and no start
// was given.
const DefaultStartTimestamp = "1745634000.000000000"

type TransactionSource interface {
	FetchTransactionsSince(ctx context.Context, startTimestamp string, maxPages int) ([]provider.HederaTransaction, error)
}

type TransactionStore interface {
	Save(ctx context.Context, txs []domain.Transaction) (int, error)
	LatestConsensusTimestamp(ctx context.Context) (string, error)
}

type Ingester struct {
	tracer   trace.Tracer
	log      zerolog.Logger
	source   TransactionSource
	store    TransactionStore
	fallback string
	maxPages int
}

// NewIngester builds an ingester that reads at most maxPages pages per run
// (0 for no limit). fallback is the start used on an empty store; "" selects
// DefaultStartTimestamp.
func NewIngester(tracer trace.Tracer, log zerolog.Logger, source TransactionSource, store TransactionStore, fallback string, maxPages int) *Ingester {
	if fallback == "" {
		fallback = DefaultStartTimestamp
	}
	return &Ingester{
		tracer:   tracer,
		log:      log.With().Str("component", "hedera-ingest").Logger(),
		source:   source,
		store:    store,
		fallback: fallback,
		maxPages: max(maxPages, 0),
	}
}

// ValidateStart rejects anything that is not a "seconds.nanos" timestamp.
func ValidateStart(ts string) error {
	if _, err := provider.ParseConsensusTimestamp(ts); err != nil {
		return fmt.Errorf("invalid start timestamp %q: %w", ts, err)
	}
	return nil
}

// Run ingests one batch. An explicit start wins; otherwise the run resumes
// after the newest stored transaction. Whatever was fetched before a fetch
// error is still stored, and the fetch error is returned afterwards.
func (in *Ingester) Run(ctx context.Context, start string) (domain.IngestResult, error) {
	ctx, span := in.tracer.Start(ctx, "ingest.run")
	defer span.End()

	if start == "" {
		latest, err := in.store.LatestConsensusTimestamp(ctx)
		if err != nil {
			return domain.IngestResult{}, err
		}
		start = latest
		if start == "" {
			start = in.fallback
		}
	}
	if err := ValidateStart(start); err != nil {
		return domain.IngestResult{}, err
	}

	result := domain.IngestResult{Start: start}
	span.SetAttributes(attribute.String("ingest.start", start))
	in.log.Info().Str("start", start).Int("max_pages", in.maxPages).Msg("ingest starting")

	raw, fetchErr := in.source.FetchTransactionsSince(ctx, start, in.maxPages)
	result.Fetched = len(raw)

	txs := make([]domain.Transaction, 0, len(raw))
	for _, r := range raw {
		at, err := r.ConsensusTime()
		if err != nil || r.TransactionID == "" {
			result.Skipped++
			in.log.Warn().Str("transaction_id", r.TransactionID).Str("consensus_timestamp", r.ConsensusTimestamp).Msg("skipping malformed transaction")
			continue
		}
		txs = append(txs, domain.Transaction{
			ID:                 r.TransactionID,
			ConsensusTimestamp: r.ConsensusTimestamp,
			ConsensusAt:        at,
			Name:               r.Name,
			Result:             r.Result,
		})
		result.Last = r.ConsensusTimestamp
	}

	stored, err := in.store.Save(ctx, txs)
	result.Stored = stored
	if err != nil {
		return result, err
	}

	span.SetAttributes(
		attribute.Int("ingest.fetched", result.Fetched),
		attribute.Int("ingest.stored", result.Stored),
	)
	evt := in.log.Info()
	if fetchErr != nil {
		evt = in.log.Warn().Err(fetchErr)
	}
	evt.Int("fetched", result.Fetched).
		Int("stored", result.Stored).
		Int("skipped", result.Skipped).
		Str("last", result.Last).
		Msg("ingest finished")

	return result, fetchErr
}
