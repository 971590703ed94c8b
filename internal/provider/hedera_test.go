package provider

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     make(http.Header),
	}
}

func newTestHederaProvider(rt roundTripFunc) *HederaProvider {
	p := NewHederaProvider(trace.NewNoopTracerProvider().Tracer("test"), "https://mirror.test/api/v1")
	p.client = &http.Client{Transport: rt}
	p.limiter = NewRateLimiter(100, time.Millisecond)
	return p
}

func TestHederaFetchTransactionCountReadsOnePage(t *testing.T) {
	calls := 0
	p := newTestHederaProvider(func(req *http.Request) (*http.Response, error) {
		calls++
		if req.URL.Path != "/api/v1/transactions" {
			t.Fatalf("unexpected path: %s", req.URL.Path)
		}
		return jsonResponse(http.StatusOK, `{"transactions":[{"transaction_id":"a"},{"transaction_id":"b"},{"transaction_id":"c"}],"links":{"next":"/api/v1/transactions?timestamp=lt:1"}}`), nil
	})

	count, err := p.FetchTransactionCount(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 transactions, got %d", count)
	}
	if calls != 1 {
		t.Fatalf("count should not follow pagination, got %d calls", calls)
	}
}

func TestHederaFetchTransactionsSinceFollowsNextLinks(t *testing.T) {
	var seen []string
	p := newTestHederaProvider(func(req *http.Request) (*http.Response, error) {
		seen = append(seen, req.URL.String())
		switch len(seen) {
		case 1:
			if got := req.URL.Query().Get("timestamp"); got != "gt:1700000000.000000000" {
				t.Fatalf("unexpected timestamp filter: %q", got)
			}
			if req.URL.Query().Get("order") != "asc" {
				t.Fatalf("expected ascending order, got %s", req.URL.RawQuery)
			}
			return jsonResponse(http.StatusOK, `{"transactions":[{"transaction_id":"1","consensus_timestamp":"1700000001.000000001"}],"links":{"next":"/api/v1/transactions?limit=100&timestamp=gt:1700000001.000000001"}}`), nil
		case 2:
			return jsonResponse(http.StatusOK, `{"transactions":[{"transaction_id":"2","consensus_timestamp":"1700000002.5"}],"links":{"next":null}}`), nil
		default:
			t.Fatalf("unexpected extra request: %s", req.URL)
			return nil, nil
		}
	})

	txs, err := p.FetchTransactionsSince(context.Background(), "1700000000.000000000", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(txs) != 2 || txs[1].TransactionID != "2" {
		t.Fatalf("unexpected transactions: %+v", txs)
	}
	if !strings.HasPrefix(seen[1], "https://mirror.test/api/v1/transactions?") {
		t.Fatalf("next link should resolve against the mirror host, got %s", seen[1])
	}

	ts, err := txs[1].ConsensusTime()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ts.Equal(time.Unix(1700000002, 500_000_000).UTC()) {
		t.Fatalf("unexpected consensus time: %v", ts)
	}
}

func TestHederaFetchTransactionsSinceStopsAtMaxPages(t *testing.T) {
	calls := 0
	p := newTestHederaProvider(func(req *http.Request) (*http.Response, error) {
		calls++
		return jsonResponse(http.StatusOK, `{"transactions":[{"transaction_id":"x"}],"links":{"next":"/api/v1/transactions?page=more"}}`), nil
	})

	txs, err := p.FetchTransactionsSince(context.Background(), "", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 || len(txs) != 3 {
		t.Fatalf("expected 3 pages, got calls=%d txs=%d", calls, len(txs))
	}
}

func TestHederaFetchTransactionsSinceKeepsPartialResultsOnError(t *testing.T) {
	calls := 0
	p := newTestHederaProvider(func(req *http.Request) (*http.Response, error) {
		calls++
		if calls == 2 {
			return jsonResponse(http.StatusTooManyRequests, `{"_status":"rate limited"}`), nil
		}
		return jsonResponse(http.StatusOK, `{"transactions":[{"transaction_id":"x"}],"links":{"next":"/api/v1/transactions?page=2"}}`), nil
	})

	txs, err := p.FetchTransactionsSince(context.Background(), "", 0)
	if err == nil || !strings.Contains(err.Error(), "429") {
		t.Fatalf("expected status error, got %v", err)
	}
	if len(txs) != 1 {
		t.Fatalf("expected the first page to be returned, got %d", len(txs))
	}
}

func TestHederaFetchTokenSupply(t *testing.T) {
	cases := map[string]float64{
		`{"token_id":"0.0.456858","total_supply":"5000000000000"}`: 5e12,
		`{"token_id":"0.0.456858","total_supply":12345}`:           12345,
		`{"token_id":"0.0.456858"}`:                                0,
	}
	for body, want := range cases {
		p := newTestHederaProvider(func(req *http.Request) (*http.Response, error) {
			if req.URL.Path != "/api/v1/tokens/0.0.456858" {
				t.Fatalf("unexpected path: %s", req.URL.Path)
			}
			return jsonResponse(http.StatusOK, body), nil
		})
		got, err := p.FetchTokenSupply(context.Background(), "0.0.456858")
		if err != nil {
			t.Fatalf("unexpected error for %s: %v", body, err)
		}
		if got != want {
			t.Fatalf("body %s: expected %v, got %v", body, want, got)
		}
	}
}

func TestHederaTransportErrorIsWrapped(t *testing.T) {
	boom := errors.New("dial tcp: refused")
	p := newTestHederaProvider(func(req *http.Request) (*http.Response, error) {
		return nil, boom
	})
	if _, err := p.FetchTokenSupply(context.Background(), "0.0.1"); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped transport error, got %v", err)
	}
}

func TestParseConsensusTimestamp(t *testing.T) {
	ts, err := ParseConsensusTimestamp("1700000000.123456789")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ts.Nanosecond() != 123456789 || ts.Unix() != 1700000000 {
		t.Fatalf("unexpected time: %v", ts)
	}
	if _, err := ParseConsensusTimestamp("not-a-time"); err == nil {
		t.Fatal("expected parse error")
	}
}
