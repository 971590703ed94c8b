package domain

import "time"

// FetchErrorMessage is the only failure text shown to dashboard users.
const FetchErrorMessage = "Failed to fetch metrics data"

type RefreshStatus string

const (
	StatusInitializing RefreshStatus = "initializing"
	StatusReady        RefreshStatus = "ready"
	StatusFailed       RefreshStatus = "failed"
)

// FeedFailure records why a single feed failed during a refresh cycle.
type FeedFailure struct {
	Feed  Feed   `json:"feed"`
	Error string `json:"error"`
}

// RefreshState is the dashboard's snapshot of the three feeds. It is replaced
// as a whole on every applied refresh cycle, never merged field by field.
type RefreshState struct {
	TxCount    Series        `json:"tx_count"`
	USDCMinted Series        `json:"usdc_minted"`
	GreedFear  Series        `json:"greed_fear"`
	Loading    bool          `json:"loading"`
	Error      string        `json:"error,omitempty"`
	Failures   []FeedFailure `json:"failures,omitempty"`
	Generation uint64        `json:"generation"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// InitialRefreshState is the state before any cycle has completed.
func InitialRefreshState() RefreshState {
	return RefreshState{
		TxCount:    Series{},
		USDCMinted: Series{},
		GreedFear:  Series{},
		Loading:    true,
	}
}

func (s RefreshState) Status() RefreshStatus {
	switch {
	case s.Loading:
		return StatusInitializing
	case s.Error != "":
		return StatusFailed
	default:
		return StatusReady
	}
}

func (s RefreshState) Series(feed Feed) Series {
	switch feed {
	case FeedTxCount:
		return s.TxCount
	case FeedUSDCMinted:
		return s.USDCMinted
	case FeedGreedFear:
		return s.GreedFear
	default:
		return nil
	}
}

// Clone returns a deep copy so callers cannot mutate the controller's slices.
func (s RefreshState) Clone() RefreshState {
	out := s
	out.TxCount = cloneSeries(s.TxCount)
	out.USDCMinted = cloneSeries(s.USDCMinted)
	out.GreedFear = cloneSeries(s.GreedFear)
	if s.Failures != nil {
		out.Failures = append([]FeedFailure(nil), s.Failures...)
	}
	return out
}

func cloneSeries(s Series) Series {
	if s == nil {
		return nil
	}
	return append(Series{}, s...)
}
