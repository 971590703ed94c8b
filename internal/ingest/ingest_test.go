package ingest

import (
	"context"
	"errors"
	"testing"

	"hedera-pulse/internal/domain"
	"hedera-pulse/internal/provider"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

var testTracer = trace.NewNoopTracerProvider().Tracer("test")

type fakeSource struct {
	txs      []provider.HederaTransaction
	err      error
	start    string
	maxPages int
	calls    int
}

func (f *fakeSource) FetchTransactionsSince(ctx context.Context, start string, maxPages int) ([]provider.HederaTransaction, error) {
	f.calls++
	f.start, f.maxPages = start, maxPages
	return f.txs, f.err
}

type fakeStore struct {
	latest    string
	latestErr error
	saveErr   error
	saved     []domain.Transaction
}

func (f *fakeStore) Save(ctx context.Context, txs []domain.Transaction) (int, error) {
	if f.saveErr != nil {
		return 0, f.saveErr
	}
	f.saved = append(f.saved, txs...)
	return len(txs), nil
}

func (f *fakeStore) LatestConsensusTimestamp(ctx context.Context) (string, error) {
	return f.latest, f.latestErr
}

func twoTransactions() []provider.HederaTransaction {
	return []provider.HederaTransaction{
		{TransactionID: "0.0.1-1745634001-0", ConsensusTimestamp: "1745634001.000000001", Name: "CRYPTOTRANSFER", Result: "SUCCESS"},
		{TransactionID: "0.0.2-1745634002-0", ConsensusTimestamp: "1745634002.5", Name: "TOKENMINT", Result: "SUCCESS"},
	}
}

func TestRunUsesFallbackOnEmptyStore(t *testing.T) {
	src := &fakeSource{txs: twoTransactions()}
	store := &fakeStore{}
	in := NewIngester(testTracer, zerolog.Nop(), src, store, "", 5)

	res, err := in.Run(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if src.start != DefaultStartTimestamp || src.maxPages != 5 {
		t.Fatalf("unexpected fetch args %q %d", src.start, src.maxPages)
	}
	if res.Fetched != 2 || res.Stored != 2 || res.Last != "1745634002.5" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if got := store.saved[1].ConsensusAt.Nanosecond(); got != 500000000 {
		t.Fatalf("expected parsed consensus time, got %d ns", got)
	}
}

func TestRunResumesAfterLatestStored(t *testing.T) {
	src := &fakeSource{}
	store := &fakeStore{latest: "1745634002.000000000"}
	in := NewIngester(testTracer, zerolog.Nop(), src, store, "1.0", 0)

	if _, err := in.Run(context.Background(), ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if src.start != store.latest {
		t.Fatalf("expected resume from %q, got %q", store.latest, src.start)
	}
}

func TestRunExplicitStartWins(t *testing.T) {
	src := &fakeSource{}
	store := &fakeStore{latest: "1745634002.000000000", latestErr: errors.New("not consulted")}
	in := NewIngester(testTracer, zerolog.Nop(), src, store, "", 0)

	if _, err := in.Run(context.Background(), "1700000000.000000000"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if src.start != "1700000000.000000000" {
		t.Fatalf("explicit start ignored, got %q", src.start)
	}
}

func TestRunRejectsBadStart(t *testing.T) {
	src := &fakeSource{}
	in := NewIngester(testTracer, zerolog.Nop(), src, &fakeStore{}, "", 0)

	if _, err := in.Run(context.Background(), "yesterday"); err == nil {
		t.Fatal("expected error for malformed start")
	}
	if src.calls != 0 {
		t.Fatal("no fetch expected with a bad start")
	}
}

func TestRunStoresPartialPagesBeforeFetchError(t *testing.T) {
	boom := errors.New("mirror node error 429")
	src := &fakeSource{txs: twoTransactions()[:1], err: boom}
	store := &fakeStore{}
	in := NewIngester(testTracer, zerolog.Nop(), src, store, "", 0)

	res, err := in.Run(context.Background(), "")
	if !errors.Is(err, boom) {
		t.Fatalf("expected fetch error, got %v", err)
	}
	if res.Stored != 1 || len(store.saved) != 1 {
		t.Fatalf("partial page should be stored, got %+v", res)
	}
}

func TestRunSkipsMalformedTransactions(t *testing.T) {
	txs := append(twoTransactions(),
		provider.HederaTransaction{TransactionID: "0.0.3", ConsensusTimestamp: "not-a-time"},
		provider.HederaTransaction{ConsensusTimestamp: "1745634003.0"},
	)
	store := &fakeStore{}
	in := NewIngester(testTracer, zerolog.Nop(), &fakeSource{txs: txs}, store, "", 0)

	res, err := in.Run(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Skipped != 2 || res.Stored != 2 || res.Fetched != 4 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestRunSaveError(t *testing.T) {
	store := &fakeStore{saveErr: errors.New("db down")}
	in := NewIngester(testTracer, zerolog.Nop(), &fakeSource{txs: twoTransactions()}, store, "", 0)

	if _, err := in.Run(context.Background(), ""); !errors.Is(err, store.saveErr) {
		t.Fatalf("expected save error, got %v", err)
	}
}
