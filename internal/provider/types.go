package provider

import (
	"math"
	"strconv"
	"strings"
	"time"
)

type FearGreedPoint struct {
	Value            int
	Classification   string
	Timestamp        time.Time
	TimeUntilUpdateS int
}

// HederaTransaction is the subset of a mirror node transaction record we read.
type HederaTransaction struct {
	TransactionID      string `json:"transaction_id"`
	ConsensusTimestamp string `json:"consensus_timestamp"`
	Name               string `json:"name"`
	Result             string `json:"result"`
}

// ConsensusTime parses the mirror node "seconds.nanos" timestamp.
func (t HederaTransaction) ConsensusTime() (time.Time, error) {
	return ParseConsensusTimestamp(t.ConsensusTimestamp)
}

func ParseConsensusTimestamp(ts string) (time.Time, error) {
	secPart, nanoPart, _ := strings.Cut(strings.TrimSpace(ts), ".")
	sec, err := strconv.ParseInt(secPart, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	var nanos int64
	if nanoPart != "" {
		// right-pad so "1.5" reads as 500ms
		if len(nanoPart) < 9 {
			nanoPart += strings.Repeat("0", 9-len(nanoPart))
		}
		nanos, err = strconv.ParseInt(nanoPart[:9], 10, 64)
		if err != nil {
			return time.Time{}, err
		}
	}
	return time.Unix(sec, nanos).UTC(), nil
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0
		}
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case string:
		return parseFloatString(n)
	default:
		return 0
	}
}

func parseFloatString(v string) float64 {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0
	}
	return n
}
