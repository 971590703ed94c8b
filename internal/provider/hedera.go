package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	hederaMirrorBaseURL = "https://mainnet-public.mirrornode.hedera.com/api/v1"
	hederaPageLimit     = 100
)

// HederaProvider reads transaction and token data from a Hedera mirror node.
// Every request, including each pagination step, waits on the limiter.
type HederaProvider struct {
	client  *http.Client
	baseURL string
	tracer  trace.Tracer
	limiter *RateLimiter
}

func NewHederaProvider(tracer trace.Tracer, baseURL string) *HederaProvider {
	if baseURL == "" {
		baseURL = hederaMirrorBaseURL
	}
	return &HederaProvider{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: strings.TrimRight(baseURL, "/"),
		tracer:  tracer,
		// public mirror nodes throttle aggressively; ten calls a second is plenty
		limiter: NewRateLimiter(10, 100*time.Millisecond),
	}
}

type transactionsPage struct {
	Transactions []HederaTransaction `json:"transactions"`
	Links        struct {
		Next *string `json:"next"`
	} `json:"links"`
}

// FetchTransactionCount returns the number of transactions on the newest
// mirror node page.
func (p *HederaProvider) FetchTransactionCount(ctx context.Context) (int, error) {
	ctx, span := p.tracer.Start(ctx, "hedera.fetch-transaction-count")
	defer span.End()

	txs, err := p.fetchPages(ctx, p.baseURL+"/transactions", 1)
	if err != nil {
		return 0, fmt.Errorf("fetch transactions: %w", err)
	}
	span.SetAttributes(attribute.Int("hedera.tx_count", len(txs)))
	return len(txs), nil
}

// FetchTransactionsSince walks transactions after startTimestamp (a
// "seconds.nanos" consensus timestamp, empty for all) in ascending order,
// stopping after maxPages pages or when the mirror node has no next link.
func (p *HederaProvider) FetchTransactionsSince(ctx context.Context, startTimestamp string, maxPages int) ([]HederaTransaction, error) {
	ctx, span := p.tracer.Start(ctx, "hedera.fetch-transactions-since")
	defer span.End()

	q := url.Values{}
	q.Set("limit", fmt.Sprint(hederaPageLimit))
	q.Set("order", "asc")
	if startTimestamp != "" {
		q.Set("timestamp", "gt:"+startTimestamp)
	}
	txs, err := p.fetchPages(ctx, p.baseURL+"/transactions?"+q.Encode(), maxPages)
	if err != nil {
		return txs, fmt.Errorf("fetch transactions since %q: %w", startTimestamp, err)
	}
	span.SetAttributes(attribute.Int("hedera.tx_count", len(txs)))
	return txs, nil
}

func (p *HederaProvider) fetchPages(ctx context.Context, next string, maxPages int) ([]HederaTransaction, error) {
	var out []HederaTransaction
	for page := 0; next != "" && (maxPages <= 0 || page < maxPages); page++ {
		body, err := p.doRequest(ctx, next)
		if err != nil {
			return out, err
		}
		var parsed transactionsPage
		if err := json.Unmarshal(body, &parsed); err != nil {
			return out, fmt.Errorf("parse transactions page: %w", err)
		}
		out = append(out, parsed.Transactions...)

		next = ""
		if parsed.Links.Next != nil && *parsed.Links.Next != "" {
			next, err = p.resolve(*parsed.Links.Next)
			if err != nil {
				return out, err
			}
		}
	}
	return out, nil
}

// resolve turns a mirror node "links.next" path into an absolute URL.
func (p *HederaProvider) resolve(next string) (string, error) {
	base, err := url.Parse(p.baseURL)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(next)
	if err != nil {
		return "", fmt.Errorf("parse next link %q: %w", next, err)
	}
	return base.ResolveReference(ref).String(), nil
}

// FetchTokenSupply returns the token's raw total_supply, without applying decimals.
func (p *HederaProvider) FetchTokenSupply(ctx context.Context, tokenID string) (float64, error) {
	ctx, span := p.tracer.Start(ctx, "hedera.fetch-token-supply")
	defer span.End()
	span.SetAttributes(attribute.String("hedera.token_id", tokenID))

	body, err := p.doRequest(ctx, p.baseURL+"/tokens/"+url.PathEscape(tokenID))
	if err != nil {
		return 0, fmt.Errorf("fetch token %s: %w", tokenID, err)
	}

	var token struct {
		TotalSupply any `json:"total_supply"`
	}
	if err := json.Unmarshal(body, &token); err != nil {
		return 0, fmt.Errorf("parse token %s: %w", tokenID, err)
	}
	return asFloat(token.TotalSupply), nil
}

func (p *HederaProvider) doRequest(ctx context.Context, url string) ([]byte, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}
	return getBody(ctx, p.client, url, "mirror node")
}
