package domain

import "time"

// Transaction is one mirror node transaction kept by the ingest run.
// ConsensusTimestamp is the raw "seconds.nanos" string the mirror node pages on.
type Transaction struct {
	ID                 string    `json:"transaction_id"`
	ConsensusTimestamp string    `json:"consensus_timestamp"`
	ConsensusAt        time.Time `json:"consensus_at"`
	Name               string    `json:"name"`
	Result             string    `json:"result"`
}

// IngestResult summarizes one ingest run.
type IngestResult struct {
	Start   string `json:"start"`
	Last    string `json:"last,omitempty"`
	Fetched int    `json:"fetched"`
	Stored  int    `json:"stored"`
	Skipped int    `json:"skipped"`
}
