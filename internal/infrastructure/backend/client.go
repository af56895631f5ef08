package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"pnlmon/internal/domain/model"
)

// ErrUnauthorized means the bearer token was rejected. Callers treat it as
// "nothing to show", not as a failure to surface.
var ErrUnauthorized = errors.New("backend: unauthorized")

const tradesPath = "/trading/api/trading/trades/"

// Client is the read-only REST client for the trading backend.
type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type tradesResp struct {
	Results []model.Position `json:"results"`
}

// ListTrades fetches all trades for the token's user. Status filtering is the
// caller's concern; the full list comes back as reported.
func (c *Client) ListTrades(ctx context.Context, token string) ([]model.Position, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+tradesPath, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend: list trades: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, ErrUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("backend: http %d: %s", resp.StatusCode, string(body))
	}

	var out tradesResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("backend: decode trades: %w", err)
	}
	return out.Results, nil
}
