package domain

import "time"

// Metric is a single observation of a feed as served by the metrics API.
type Metric struct {
	Timestamp string  `json:"timestamp"`
	Value     float64 `json:"value"`
	Source    string  `json:"source"`
}

// Series is an ordered run of observations for one feed. Order is whatever the API returned.
type Series []Metric

// StoredMetric is a metrics row as persisted by the collector.
type StoredMetric struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
	Source    string    `json:"source"`
}

// ToMetric converts a stored row to its API representation.
func (m StoredMetric) ToMetric() Metric {
	return Metric{
		Timestamp: m.Timestamp.UTC().Format(time.RFC3339),
		Value:     m.Value,
		Source:    m.Source,
	}
}

type Feed string

const (
	FeedTxCount    Feed = "tx-count"
	FeedUSDCMinted Feed = "usdc-minted"
	FeedGreedFear  Feed = "greed-fear"
)

// Source labels used by the collector when storing rows.
const (
	SourceHederaTxCount   = "hedera_tx_count"
	SourceHederaUSDC      = "hedera_usdc"
	SourceCryptoGreedFear = "crypto_greed_fear"
)

// Feeds lists every feed in display order.
var Feeds = []Feed{FeedTxCount, FeedUSDCMinted, FeedGreedFear}

var feedPaths = map[Feed]string{
	FeedTxCount:    "/metrics/hedera/tx-count",
	FeedUSDCMinted: "/metrics/hedera/usdc-minted",
	FeedGreedFear:  "/metrics/crypto/greed-fear",
}

var feedSources = map[Feed]string{
	FeedTxCount:    SourceHederaTxCount,
	FeedUSDCMinted: SourceHederaUSDC,
	FeedGreedFear:  SourceCryptoGreedFear,
}

var feedTitles = map[Feed]string{
	FeedTxCount:    "Hedera Transaction Count",
	FeedUSDCMinted: "USDC Minted on Hedera",
	FeedGreedFear:  "Crypto Greed/Fear Index",
}

// Path returns the endpoint path relative to the API base URL.
func (f Feed) Path() string { return feedPaths[f] }

// StorageSource returns the source label rows of this feed are stored under.
func (f Feed) StorageSource() string { return feedSources[f] }

func (f Feed) Title() string { return feedTitles[f] }

func (f Feed) Valid() bool {
	_, ok := feedPaths[f]
	return ok
}

// CollectionResult summarizes one collector cycle.
type CollectionResult struct {
	RunID       string             `json:"run_id"`
	StartedAt   time.Time          `json:"started_at"`
	CompletedAt time.Time          `json:"completed_at"`
	Values      map[string]float64 `json:"values"`
	Error       string             `json:"error,omitempty"`
}

// CollectorStatus is the last known outcome of the collector.
type CollectorStatus struct {
	LastRunID     string    `json:"last_run_id"`
	LastRunAt     time.Time `json:"last_run_at"`
	LastSuccessAt time.Time `json:"last_success_at"`
	LastError     string    `json:"last_error,omitempty"`
}
