// Package engine evaluates market-intelligence snapshots against the three
// alert rules and maintains the evaluation state between cycles.
package engine

import (
	"time"

	"github.com/tidewatch/intelsentry/internal/logger"
	"github.com/tidewatch/intelsentry/internal/models"
	"github.com/tidewatch/intelsentry/internal/store"
)

// Config holds the evaluation thresholds and the per-type cooldown.
type Config struct {
	MarketScoreThreshold float64
	NewsScoreThreshold   float64
	WhaleFlowThreshold   float64
	Cooldown             time.Duration
}

func DefaultConfig() Config {
	return Config{
		MarketScoreThreshold: 70,
		NewsScoreThreshold:   8,
		WhaleFlowThreshold:   2000,
		Cooldown:             30 * time.Minute,
	}
}

// Engine folds the rule evaluators over one snapshot per cycle.
type Engine struct {
	store  store.EvalStore
	config Config
}

func New(s store.EvalStore, config Config) *Engine {
	return &Engine{store: s, config: config}
}

// Evaluate runs the evaluators in fixed order (market, whale, news), feeding
// each one's output state into the next, persists the final state, and
// returns the cycle's candidate alerts. It has no failure mode of its own:
// malformed snapshot fields are clamped or skipped by the evaluators, and a
// store error degrades to a fresh state rather than aborting the cycle.
func (e *Engine) Evaluate(snap models.Snapshot) []models.CandidateAlert {
	state, err := e.store.Load()
	if err != nil {
		logger.Warn("Failed to load evaluation state, starting fresh: %v", err)
		state = models.NewEvalState()
	}

	var alerts []models.CandidateAlert
	for _, rule := range []ruleFunc{evaluateMarketState, evaluateWhaleActivity, evaluateHighImpactNews} {
		var out []models.CandidateAlert
		out, state = rule(snap, e.config, state)
		alerts = append(alerts, out...)
	}

	if err := e.store.Save(state); err != nil {
		logger.Warn("Failed to persist evaluation state: %v", err)
	}
	return alerts
}
