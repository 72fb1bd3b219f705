package engine

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/tidewatch/intelsentry/internal/models"
)

const (
	newsScoreFloor   = 0.0
	newsScoreCeiling = 10.0
)

// ruleFunc is a deterministic evaluator over one snapshot. The snapshot's
// timestamp is the only clock; evaluators never read wall-clock time.
type ruleFunc func(snap models.Snapshot, cfg Config, state models.EvalState) ([]models.CandidateAlert, models.EvalState)

func cooldownClear(lastFired, now time.Time, cooldown time.Duration) bool {
	return lastFired.IsZero() || now.Sub(lastFired) >= cooldown
}

func clampPercent(v float64) float64 {
	return math.Min(math.Max(v, 0), 100)
}

func biasOrNeutral(bias string) string {
	if bias == "" {
		return "neutral"
	}
	return bias
}

// evaluateMarketState fires on band crossings of the market score against the
// configured threshold. The first observation records the band silently, so a
// fresh process never alerts on startup.
func evaluateMarketState(snap models.Snapshot, cfg Config, state models.EvalState) ([]models.CandidateAlert, models.EvalState) {
	band := models.BandBelow
	if snap.MarketScore >= cfg.MarketScoreThreshold {
		band = models.BandAbove
	}

	prev := state.LastBand
	state.LastBand = band

	if prev == "" || band == prev {
		return nil, state
	}
	if !cooldownClear(state.LastFired[models.AlertMarketState], snap.Timestamp, cfg.Cooldown) {
		return nil, state
	}
	state.LastFired[models.AlertMarketState] = snap.Timestamp

	direction := "crossed above"
	severity := models.SeverityInfo
	if band == models.BandBelow {
		direction = "crossed below"
		severity = models.SeverityWarn
	}

	alert := models.CandidateAlert{
		Type:     models.AlertMarketState,
		Severity: severity,
		Title:    fmt.Sprintf("Market score %s %.0f", direction, cfg.MarketScoreThreshold),
		Message: fmt.Sprintf("Score is now %.1f with a %s bias.\nConfidence %.0f%%.",
			snap.MarketScore, biasOrNeutral(snap.MarketBias), clampPercent(snap.MarketConfidence)),
		Score:     snap.MarketScore,
		CreatedAt: snap.Timestamp,
	}
	return []models.CandidateAlert{alert}, state
}

// evaluateWhaleActivity fires when the net flow moves by at least the
// configured delta since the previous cycle. The first observation only
// records the baseline value.
func evaluateWhaleActivity(snap models.Snapshot, cfg Config, state models.EvalState) ([]models.CandidateAlert, models.EvalState) {
	flow := snap.WhaleNetFlow
	prev := state.LastNetFlow
	state.LastNetFlow = &flow

	if prev == nil {
		return nil, state
	}
	delta := flow - *prev
	if math.Abs(delta) < cfg.WhaleFlowThreshold {
		return nil, state
	}
	if !cooldownClear(state.LastFired[models.AlertWhaleActivity], snap.Timestamp, cfg.Cooldown) {
		return nil, state
	}
	state.LastFired[models.AlertWhaleActivity] = snap.Timestamp

	direction := "inflow"
	if delta < 0 {
		direction = "outflow"
	}
	severity := models.SeverityInfo
	if math.Abs(delta) >= 2*cfg.WhaleFlowThreshold {
		severity = models.SeverityWarn
	}

	alert := models.CandidateAlert{
		Type:     models.AlertWhaleActivity,
		Severity: severity,
		Title:    fmt.Sprintf("Whale %s of %.0f", direction, math.Abs(delta)),
		Message: fmt.Sprintf("Net flow moved from %.0f to %.0f.\nDelta %.0f exceeds the %.0f threshold.",
			*prev, flow, math.Abs(delta), cfg.WhaleFlowThreshold),
		Score:     math.Abs(delta),
		CreatedAt: snap.Timestamp,
	}
	return []models.CandidateAlert{alert}, state
}

// evaluateHighImpactNews produces at most one candidate per cycle from the
// snapshot's news list. Items are ranked by descending clamped score with ties
// broken by ascending ID so the walk order is reproducible. The first item not
// already in the candidated set is burned into that set even when cooldown
// blocks the alert, so an item whose only chance coincided with cooldown is
// never reconsidered.
func evaluateHighImpactNews(snap models.Snapshot, cfg Config, state models.EvalState) ([]models.CandidateAlert, models.EvalState) {
	type scored struct {
		item  models.NewsItem
		score float64
	}

	var qualifying []scored
	for _, item := range snap.News {
		if item.ID == "" {
			continue // malformed entry, treated as absent
		}
		score := math.Min(math.Max(item.Score, newsScoreFloor), newsScoreCeiling)
		if score >= cfg.NewsScoreThreshold {
			qualifying = append(qualifying, scored{item: item, score: score})
		}
	}

	sort.Slice(qualifying, func(i, j int) bool {
		if qualifying[i].score != qualifying[j].score {
			return qualifying[i].score > qualifying[j].score
		}
		return qualifying[i].item.ID < qualifying[j].item.ID
	})

	for _, q := range qualifying {
		if state.CandidatedNews[q.item.ID] {
			continue
		}
		state.CandidatedNews[q.item.ID] = true
		if !cooldownClear(state.LastFired[models.AlertHighImpactNews], snap.Timestamp, cfg.Cooldown) {
			break
		}
		state.LastFired[models.AlertHighImpactNews] = snap.Timestamp

		severity := models.SeverityInfo
		if q.score >= 9 {
			severity = models.SeverityWarn
		}
		alert := models.CandidateAlert{
			Type:     models.AlertHighImpactNews,
			Severity: severity,
			Title:    q.item.Title,
			Message: fmt.Sprintf("Impact %.1f/10 with a %s bias.\nConfidence %.0f%%.",
				q.score, biasOrNeutral(q.item.Bias), clampPercent(q.item.Confidence)),
			Score:     q.score,
			RefID:     q.item.ID,
			CreatedAt: snap.Timestamp,
		}
		return []models.CandidateAlert{alert}, state
	}

	return nil, state
}
