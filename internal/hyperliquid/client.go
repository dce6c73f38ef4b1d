package hyperliquid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/perpfolio/reconciler-backend/internal/httputil"
	"github.com/perpfolio/reconciler-backend/internal/models"
)

const (
	MainnetAPIURL = "https://api.hyperliquid.xyz"
	TestnetAPIURL = "https://api.hyperliquid-testnet.xyz"
)

// TimestampUnit is how the Hyperliquid info API encodes fill times.
const TimestampUnit = models.UnitMilliseconds

// Client talks to the Hyperliquid info API. Read-only: the reconciler
// never places orders.
type Client struct {
	baseURL    string
	httpClient *http.Client
	retry      httputil.RetryConfig
}

func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = MainnetAPIURL
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		retry: httputil.RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   2 * time.Second,
			MaxDelay:    10 * time.Second,
		},
	}
}

// UserFills returns every fill the venue reports for a wallet address,
// in venue-native shape. Stream order is not guaranteed.
func (c *Client) UserFills(ctx context.Context, walletAddress string) ([]RawFill, error) {
	body, _ := json.Marshal(map[string]string{
		"type": "userFills",
		"user": walletAddress,
	})

	resp, err := httputil.Do(ctx, c.httpClient, c.retry, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/info", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return nil, fmt.Errorf("user fills request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("user fills request failed: status %d", resp.StatusCode)
	}

	var fills []RawFill
	if err := json.NewDecoder(resp.Body).Decode(&fills); err != nil {
		return nil, fmt.Errorf("decode user fills: %w", err)
	}
	return fills, nil
}

// FetchFills retrieves and normalizes a wallet's fills. Malformed fills
// are logged and dropped; only transport-level failures return an error.
func (c *Client) FetchFills(ctx context.Context, walletAddress string) ([]models.Fill, error) {
	raw, err := c.UserFills(ctx, walletAddress)
	if err != nil {
		return nil, err
	}

	fills, bad := NormalizeFills(raw, TimestampUnit)
	fmt.Printf("[HL] Fetched %d fills for %s (%d malformed)\n", len(fills), shortAddr(walletAddress), bad)
	return fills, nil
}

func shortAddr(addr string) string {
	if len(addr) > 10 {
		return addr[:10] + "..."
	}
	return addr
}
