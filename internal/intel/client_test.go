package intel

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const snapshotJSON = `{
	"market": {"score": 82.4, "bias": "bullish", "confidence": 71},
	"news": [
		{"id": "n1", "title": "Exchange outage", "score": 9.1, "bias": "bearish", "confidence": 80, "category": "event"}
	],
	"whale_net_flow": -12500.5,
	"generated_at": "2026-03-01T12:00:00Z"
}`

func newTestClient(baseURL string) *Client {
	return NewClient(baseURL, 5*time.Second, ClientConfig{
		MaxRetries:     3,
		RetryDelayBase: time.Millisecond,
	})
}

func TestFetchSnapshot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/intel/snapshot" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(snapshotJSON)) //nolint:errcheck
	}))
	defer srv.Close()

	snap, err := newTestClient(srv.URL).FetchSnapshot(context.Background())
	if err != nil {
		t.Fatalf("FetchSnapshot failed: %v", err)
	}

	if snap.MarketScore != 82.4 {
		t.Errorf("market score = %v, want 82.4", snap.MarketScore)
	}
	if snap.MarketBias != "bullish" {
		t.Errorf("market bias = %q", snap.MarketBias)
	}
	if snap.WhaleNetFlow != -12500.5 {
		t.Errorf("whale net flow = %v", snap.WhaleNetFlow)
	}
	if len(snap.News) != 1 || snap.News[0].ID != "n1" || snap.News[0].Category != "event" {
		t.Errorf("news = %+v", snap.News)
	}
	want := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if !snap.Timestamp.Equal(want) {
		t.Errorf("timestamp = %v, want %v", snap.Timestamp, want)
	}
}

func TestFetchSnapshot_MissingTimestampDefaults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"market": {"score": 50}}`)) //nolint:errcheck
	}))
	defer srv.Close()

	snap, err := newTestClient(srv.URL).FetchSnapshot(context.Background())
	if err != nil {
		t.Fatalf("FetchSnapshot failed: %v", err)
	}
	if snap.Timestamp.IsZero() {
		t.Error("expected a defaulted timestamp for a snapshot without one")
	}
}

func TestFetchSnapshot_RetriesServerErrors(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(snapshotJSON)) //nolint:errcheck
	}))
	defer srv.Close()

	if _, err := newTestClient(srv.URL).FetchSnapshot(context.Background()); err != nil {
		t.Fatalf("expected retries to recover, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 attempts, got %d", calls)
	}
}

func TestFetchSnapshot_ClientErrorNotRetried(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	if _, err := newTestClient(srv.URL).FetchSnapshot(context.Background()); err == nil {
		t.Fatal("expected an error for a 404 response")
	}
	if calls != 1 {
		t.Errorf("4xx must not be retried: %d attempts", calls)
	}
}
