package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const fearGreedBaseURL = "https://api.alternative.me"

var ErrNoFearGreedRows = errors.New("fear & greed response has no rows")

// FearGreedProvider reads the crypto Fear & Greed index from alternative.me.
type FearGreedProvider struct {
	client  *http.Client
	baseURL string
	tracer  trace.Tracer
}

func NewFearGreedProvider(tracer trace.Tracer, baseURL string) *FearGreedProvider {
	if baseURL == "" {
		baseURL = fearGreedBaseURL
	}
	return &FearGreedProvider{
		client:  &http.Client{Timeout: 15 * time.Second},
		baseURL: strings.TrimRight(baseURL, "/"),
		tracer:  tracer,
	}
}

// alternative.me sends every field as a string.
type fearGreedRow struct {
	Value          string `json:"value"`
	Classification string `json:"value_classification"`
	Timestamp      string `json:"timestamp"`
	NextUpdate     string `json:"time_until_update"`
}

func (r fearGreedRow) point() (*FearGreedPoint, error) {
	value, err := strconv.Atoi(strings.TrimSpace(r.Value))
	if err != nil {
		return nil, fmt.Errorf("parse fear & greed value: %w", err)
	}
	if value < 0 || value > 100 {
		return nil, fmt.Errorf("fear & greed value %d outside 0..100", value)
	}

	sec, err := strconv.ParseInt(strings.TrimSpace(r.Timestamp), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse fear & greed timestamp: %w", err)
	}
	// some mirrors of the feed report milliseconds
	if sec > 1_000_000_000_000 {
		sec /= 1000
	}

	next, err := strconv.Atoi(strings.TrimSpace(r.NextUpdate))
	if err != nil || next < 0 {
		next = 0
	}

	return &FearGreedPoint{
		Value:            value,
		Classification:   r.Classification,
		Timestamp:        time.Unix(sec, 0).UTC(),
		TimeUntilUpdateS: next,
	}, nil
}

// FetchLatest returns the most recent index reading.
func (p *FearGreedProvider) FetchLatest(ctx context.Context) (*FearGreedPoint, error) {
	ctx, span := p.tracer.Start(ctx, "feargreed.fetch-latest")
	defer span.End()

	body, err := getBody(ctx, p.client, p.baseURL+"/fng/?limit=1", "fear & greed API")
	if err != nil {
		return nil, err
	}

	var payload struct {
		Data []fearGreedRow `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode fear & greed response: %w", err)
	}
	if len(payload.Data) == 0 {
		return nil, ErrNoFearGreedRows
	}

	point, err := payload.Data[0].point()
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("feargreed.value", point.Value))
	return point, nil
}
