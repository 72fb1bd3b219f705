// Package dispatch consumes a cycle's candidate alerts, applies delivery
// throttling and deduplication, and hands at most one formatted message per
// cycle to the delivery channel.
package dispatch

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/tidewatch/intelsentry/internal/logger"
	"github.com/tidewatch/intelsentry/internal/models"
	"github.com/tidewatch/intelsentry/internal/store"
)

// Channel is the external delivery capability. Implementations own their own
// timeouts; a timeout surfaces here as an ordinary send error.
type Channel interface {
	Send(ctx context.Context, text string) (messageID string, err error)
}

// Config holds the delivery-level throttle settings.
type Config struct {
	ChannelCooldown time.Duration
}

// Dispatcher applies the delivery rules on top of the engine's candidates.
type Dispatcher struct {
	store   store.DispatchStore
	channel Channel
	config  Config
}

func New(s store.DispatchStore, channel Channel, config Config) *Dispatcher {
	return &Dispatcher{store: s, channel: channel, config: config}
}

// Fixed delivery priority, independent of alert scores.
var priority = map[models.AlertType]int{
	models.AlertMarketState:    0,
	models.AlertWhaleActivity:  1,
	models.AlertHighImpactNews: 2,
}

// Dispatch walks the candidates in priority order and sends at most one
// message. now must be the cycle timestamp; the dispatcher never samples the
// wall clock. Failures (missing context, cooldown, dedup, send errors) are
// reported as non-dispatch results and do not consume the one-message budget;
// only a successful send does. Dispatch state is mutated strictly after the
// channel confirms delivery, so a failed send is retryable on a later cycle.
func (d *Dispatcher) Dispatch(ctx context.Context, now time.Time, alerts []models.CandidateAlert, contexts map[string]models.AlertContext) []models.DispatchResult {
	if len(alerts) == 0 {
		return nil
	}

	state, err := d.store.Load()
	if err != nil {
		logger.Warn("Failed to load dispatch state, starting fresh: %v", err)
		state = models.NewDispatchState()
	}

	ordered := make([]models.CandidateAlert, len(alerts))
	copy(ordered, alerts)
	sort.SliceStable(ordered, func(i, j int) bool {
		return priority[ordered[i].Type] < priority[ordered[j].Type]
	})

	results := make([]models.DispatchResult, 0, len(ordered))
	sent := false
	for _, alert := range ordered {
		if sent {
			results = append(results, reject(alert, "message budget spent this cycle"))
			continue
		}

		actx, ok := contexts[alert.ContextKey()]
		if !ok {
			results = append(results, reject(alert, "no context for alert"))
			continue
		}

		if reason := d.cooldownReason(state, alert.Type, now); reason != "" {
			results = append(results, reject(alert, reason))
			continue
		}

		if alert.Type == models.AlertHighImpactNews && state.DeliveredNews[alert.RefID] {
			results = append(results, reject(alert, "news item already delivered"))
			continue
		}

		text := FormatMessage(alert, actx)
		messageID, err := d.channel.Send(ctx, text)
		if err != nil {
			results = append(results, reject(alert, fmt.Sprintf("send failed: %v", err)))
			continue
		}

		state.LastSentByType[alert.Type] = now
		state.LastSentGlobal = now
		if alert.Type == models.AlertHighImpactNews && alert.RefID != "" {
			state.DeliveredNews[alert.RefID] = true
		}
		if err := d.store.Save(state); err != nil {
			logger.Warn("Failed to persist dispatch state: %v", err)
		}

		results = append(results, models.DispatchResult{
			Type:       alert.Type,
			Dispatched: true,
			MessageID:  messageID,
		})
		sent = true
	}

	return results
}

// cooldownReason checks the channel cooldown against both the global and the
// per-type last-sent timestamps; both must be clear.
func (d *Dispatcher) cooldownReason(state models.DispatchState, typ models.AlertType, now time.Time) string {
	if !state.LastSentGlobal.IsZero() && now.Sub(state.LastSentGlobal) < d.config.ChannelCooldown {
		return "channel cooldown active (global)"
	}
	if last, ok := state.LastSentByType[typ]; ok && now.Sub(last) < d.config.ChannelCooldown {
		return fmt.Sprintf("channel cooldown active (%s)", typ)
	}
	return ""
}

func reject(alert models.CandidateAlert, reason string) models.DispatchResult {
	return models.DispatchResult{Type: alert.Type, Reason: reason}
}
