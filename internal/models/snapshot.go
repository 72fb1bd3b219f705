// Package models defines the core domain entities: intelligence snapshots,
// candidate alerts, and the engine's two state records.
package models

import (
	"errors"
	"time"
)

// Snapshot is one cycle's input record of derived market-intelligence metrics.
// It is immutable for the duration of a cycle; its Timestamp is the
// authoritative clock for all temporal logic downstream.
type Snapshot struct {
	MarketScore      float64    `json:"market_score"` // conventionally 0-100
	MarketBias       string     `json:"market_bias"`
	MarketConfidence float64    `json:"market_confidence"` // percent
	News             []NewsItem `json:"news"`
	WhaleNetFlow     float64    `json:"whale_net_flow"` // signed net flow
	Timestamp        time.Time  `json:"timestamp"`
}

// NewsItem is a single scored news entry within a snapshot.
type NewsItem struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Score      float64 `json:"score"` // 0-10 impact scale
	Bias       string  `json:"bias"`
	Confidence float64 `json:"confidence"` // percent
	Category   string  `json:"category"`
}

// Validate checks structural snapshot constraints. Out-of-range numeric
// values are not rejected here; the rule evaluators clamp them instead.
func (s *Snapshot) Validate() error {
	if s.Timestamp.IsZero() {
		return errors.New("snapshot timestamp must not be zero")
	}
	seen := make(map[string]bool, len(s.News))
	for _, item := range s.News {
		if item.ID == "" {
			return errors.New("news item ID must not be empty")
		}
		if seen[item.ID] {
			return errors.New("news item IDs must be unique: " + item.ID)
		}
		seen[item.ID] = true
	}
	return nil
}
