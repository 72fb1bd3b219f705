package models

import "time"

// EvalState is the alert engine's record of what was last observed and last
// alerted. LastBand and LastNetFlow update on every cycle; LastFired entries
// update only when the corresponding alert type actually fires.
type EvalState struct {
	LastBand       Band                    `json:"last_band,omitempty"`
	LastNetFlow    *float64                `json:"last_net_flow,omitempty"`
	CandidatedNews map[string]bool         `json:"candidated_news"`
	LastFired      map[AlertType]time.Time `json:"last_fired"`
}

// NewEvalState returns an empty evaluation state ready for the first cycle.
func NewEvalState() EvalState {
	return EvalState{
		CandidatedNews: make(map[string]bool),
		LastFired:      make(map[AlertType]time.Time),
	}
}

// Clone returns a deep copy so stores can hand out state without aliasing.
func (s EvalState) Clone() EvalState {
	out := EvalState{
		LastBand:       s.LastBand,
		CandidatedNews: make(map[string]bool, len(s.CandidatedNews)),
		LastFired:      make(map[AlertType]time.Time, len(s.LastFired)),
	}
	if s.LastNetFlow != nil {
		flow := *s.LastNetFlow
		out.LastNetFlow = &flow
	}
	for id := range s.CandidatedNews {
		out.CandidatedNews[id] = true
	}
	for typ, at := range s.LastFired {
		out.LastFired[typ] = at
	}
	return out
}

// DispatchState is the dispatcher's delivery history, owned independently of
// EvalState. DeliveredNews only ever grows for the life of the process.
type DispatchState struct {
	LastSentByType map[AlertType]time.Time `json:"last_sent_by_type"`
	LastSentGlobal time.Time               `json:"last_sent_global,omitempty"`
	DeliveredNews  map[string]bool         `json:"delivered_news"`
}

// NewDispatchState returns an empty dispatch state.
func NewDispatchState() DispatchState {
	return DispatchState{
		LastSentByType: make(map[AlertType]time.Time),
		DeliveredNews:  make(map[string]bool),
	}
}

// Clone returns a deep copy so stores can hand out state without aliasing.
func (s DispatchState) Clone() DispatchState {
	out := DispatchState{
		LastSentByType: make(map[AlertType]time.Time, len(s.LastSentByType)),
		LastSentGlobal: s.LastSentGlobal,
		DeliveredNews:  make(map[string]bool, len(s.DeliveredNews)),
	}
	for typ, at := range s.LastSentByType {
		out.LastSentByType[typ] = at
	}
	for id := range s.DeliveredNews {
		out.DeliveredNews[id] = true
	}
	return out
}
