package models

import "time"

// AlertType identifies one of the three alert kinds.
type AlertType string

const (
	AlertMarketState    AlertType = "market_state"
	AlertWhaleActivity  AlertType = "whale_activity"
	AlertHighImpactNews AlertType = "high_impact_news"
)

// Severity labels a candidate alert for display.
type Severity string

const (
	SeverityInfo Severity = "info"
	SeverityWarn Severity = "warn"
)

// Band is the market score's position relative to the configured threshold.
type Band string

const (
	BandAbove Band = "above"
	BandBelow Band = "below"
)

// CandidateAlert is a potential notification produced by a rule evaluator.
// It lives for one cycle only and is never persisted beyond dispatch.
type CandidateAlert struct {
	Type      AlertType `json:"type"`
	Severity  Severity  `json:"severity"`
	Title     string    `json:"title"`
	Message   string    `json:"message"` // at most two lines
	Score     float64   `json:"score,omitempty"`
	RefID     string    `json:"ref_id,omitempty"` // news item ID for news alerts
	CreatedAt time.Time `json:"created_at"`
}

// ContextKey returns the key under which the caller supplies the alert's
// formatting context: the news item ID when present, the type tag otherwise.
func (a CandidateAlert) ContextKey() string {
	if a.RefID != "" {
		return a.RefID
	}
	return string(a.Type)
}

// AlertContext is the caller-supplied record needed to format a message for
// one candidate alert. The dispatcher never derives it itself.
type AlertContext struct {
	Symbol   string `json:"symbol"`
	Bias     string `json:"bias"`
	Category string `json:"category"`
}

// DispatchResult reports the outcome of one attempted candidate.
type DispatchResult struct {
	Type       AlertType `json:"type"`
	Dispatched bool      `json:"dispatched"`
	Reason     string    `json:"reason,omitempty"`
	MessageID  string    `json:"message_id,omitempty"`
}
