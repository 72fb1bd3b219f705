// Package intel provides the HTTP client for the upstream market-intelligence
// API that produces the per-cycle snapshot.
package intel

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/tidewatch/intelsentry/internal/logger"
	"github.com/tidewatch/intelsentry/internal/models"
)

// Client fetches snapshots from the intelligence API.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	maxRetries     int
	retryDelayBase time.Duration
}

// ClientConfig holds retry and connection-pool settings.
type ClientConfig struct {
	MaxRetries          int
	RetryDelayBase      time.Duration
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
}

// NewClient creates a new intelligence API client.
func NewClient(baseURL string, timeout time.Duration, cfg ClientConfig) *Client {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelayBase <= 0 {
		cfg.RetryDelayBase = time.Second
	}

	transport := &http.Transport{
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:     cfg.IdleConnTimeout,
	}

	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		maxRetries:     cfg.MaxRetries,
		retryDelayBase: cfg.RetryDelayBase,
	}
}

// snapshotResponse is the wire shape of the snapshot endpoint.
type snapshotResponse struct {
	Market struct {
		Score      float64 `json:"score"`
		Bias       string  `json:"bias"`
		Confidence float64 `json:"confidence"`
	} `json:"market"`
	News []struct {
		ID         string  `json:"id"`
		Title      string  `json:"title"`
		Score      float64 `json:"score"`
		Bias       string  `json:"bias"`
		Confidence float64 `json:"confidence"`
		Category   string  `json:"category"`
	} `json:"news"`
	WhaleNetFlow float64   `json:"whale_net_flow"`
	GeneratedAt  time.Time `json:"generated_at"`
}

// FetchSnapshot retrieves the current derived-metrics snapshot.
func (c *Client) FetchSnapshot(ctx context.Context) (*models.Snapshot, error) {
	resp, err := c.doRequest(ctx, c.baseURL+"/api/v1/intel/snapshot")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch snapshot: %w", err)
	}
	defer resp.Body.Close()

	var sr snapshotResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}

	snap := &models.Snapshot{
		MarketScore:      sr.Market.Score,
		MarketBias:       sr.Market.Bias,
		MarketConfidence: sr.Market.Confidence,
		WhaleNetFlow:     sr.WhaleNetFlow,
		Timestamp:        sr.GeneratedAt,
	}
	if snap.Timestamp.IsZero() {
		snap.Timestamp = time.Now()
	}
	for _, item := range sr.News {
		snap.News = append(snap.News, models.NewsItem{
			ID:         item.ID,
			Title:      item.Title,
			Score:      item.Score,
			Bias:       item.Bias,
			Confidence: item.Confidence,
			Category:   item.Category,
		})
	}

	// Structural problems are logged, not fatal: the evaluators clamp or skip
	// malformed fields themselves.
	if err := snap.Validate(); err != nil {
		logger.Warn("Snapshot failed validation, evaluating anyway: %v", err)
	}

	return snap, nil
}

// doRequest performs an HTTP GET with linear-backoff retry on transport
// errors and 5xx responses.
func (c *Client) doRequest(ctx context.Context, urlStr string) (*http.Response, error) {
	var lastErr error

	for i := 0; i < c.maxRetries; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			time.Sleep(c.retryDelayBase * time.Duration(i+1))
			continue
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = fmt.Errorf("server error: %d", resp.StatusCode)
			time.Sleep(c.retryDelayBase * time.Duration(i+1))
			continue
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
		}

		return resp, nil
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}
