package models

import (
	"testing"
	"time"
)

func TestSnapshotValidate(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		snap    Snapshot
		wantErr bool
	}{
		{
			name: "valid snapshot",
			snap: Snapshot{
				MarketScore: 62.5,
				News:        []NewsItem{{ID: "n1", Title: "a"}, {ID: "n2", Title: "b"}},
				Timestamp:   now,
			},
		},
		{
			name:    "zero timestamp",
			snap:    Snapshot{MarketScore: 50},
			wantErr: true,
		},
		{
			name:    "empty news ID",
			snap:    Snapshot{News: []NewsItem{{Title: "a"}}, Timestamp: now},
			wantErr: true,
		},
		{
			name:    "duplicate news IDs",
			snap:    Snapshot{News: []NewsItem{{ID: "n1"}, {ID: "n1"}}, Timestamp: now},
			wantErr: true,
		},
		{
			name: "out-of-range scores are not rejected here",
			snap: Snapshot{MarketScore: -40, News: []NewsItem{{ID: "n1", Score: 99}}, Timestamp: now},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.snap.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEvalStateClone(t *testing.T) {
	flow := 100.0
	state := NewEvalState()
	state.LastBand = BandBelow
	state.LastNetFlow = &flow
	state.CandidatedNews["n1"] = true
	state.LastFired[AlertMarketState] = time.Now()

	clone := state.Clone()
	clone.CandidatedNews["n2"] = true
	clone.LastFired[AlertWhaleActivity] = time.Now()
	*clone.LastNetFlow = -5

	if state.CandidatedNews["n2"] {
		t.Error("clone aliased the candidated set")
	}
	if _, ok := state.LastFired[AlertWhaleActivity]; ok {
		t.Error("clone aliased the last-fired map")
	}
	if *state.LastNetFlow != 100 {
		t.Errorf("clone aliased the net flow pointer: %v", *state.LastNetFlow)
	}
}

func TestDispatchStateClone(t *testing.T) {
	state := NewDispatchState()
	state.DeliveredNews["n1"] = true

	clone := state.Clone()
	clone.DeliveredNews["n2"] = true
	clone.LastSentByType[AlertMarketState] = time.Now()

	if state.DeliveredNews["n2"] {
		t.Error("clone aliased the delivered set")
	}
	if len(state.LastSentByType) != 0 {
		t.Error("clone aliased the last-sent map")
	}
}

func TestContextKey(t *testing.T) {
	news := CandidateAlert{Type: AlertHighImpactNews, RefID: "n1"}
	if news.ContextKey() != "n1" {
		t.Errorf("news key = %q, want item ID", news.ContextKey())
	}
	market := CandidateAlert{Type: AlertMarketState}
	if market.ContextKey() != string(AlertMarketState) {
		t.Errorf("market key = %q, want type tag", market.ContextKey())
	}
}
