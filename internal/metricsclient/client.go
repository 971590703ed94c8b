// Package metricsclient reads the time series served by the metrics API.
package metricsclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"hedera-pulse/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// StatusError is returned when the API answers with a non-2xx status.
type StatusError struct {
	Feed       domain.Feed
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("metrics API error %d for %s: %s", e.StatusCode, e.Feed, e.Body)
}

// Client fetches a single feed per call. It does not retry, cache or validate.
type Client struct {
	client  *http.Client
	baseURL string
	tracer  trace.Tracer
}

func New(baseURL string, tracer trace.Tracer) *Client {
	return &Client{
		client:  &http.Client{},
		baseURL: strings.TrimRight(baseURL, "/"),
		tracer:  tracer,
	}
}

func (c *Client) BaseURL() string { return c.baseURL }

// FetchSeries issues one GET for the feed and decodes the JSON array body.
// Transport errors are returned as-is.
func (c *Client) FetchSeries(ctx context.Context, feed domain.Feed) (domain.Series, error) {
	ctx, span := c.tracer.Start(ctx, "metrics-client.fetch-series")
	defer span.End()
	span.SetAttributes(attribute.String("feed", string(feed)))

	if !feed.Valid() {
		return nil, fmt.Errorf("unknown feed: %q", feed)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+feed.Path(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{Feed: feed, StatusCode: resp.StatusCode, Body: string(body)}
	}

	var series domain.Series
	if err := json.NewDecoder(resp.Body).Decode(&series); err != nil {
		return nil, err
	}
	if series == nil {
		series = domain.Series{}
	}
	return series, nil
}

func (c *Client) FetchTxCount(ctx context.Context) (domain.Series, error) {
	return c.FetchSeries(ctx, domain.FeedTxCount)
}

func (c *Client) FetchUSDCMinted(ctx context.Context) (domain.Series, error) {
	return c.FetchSeries(ctx, domain.FeedUSDCMinted)
}

func (c *Client) FetchGreedFear(ctx context.Context) (domain.Series, error) {
	return c.FetchSeries(ctx, domain.FeedGreedFear)
}
