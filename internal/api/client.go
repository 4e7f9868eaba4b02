package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"splat-tracker/internal/config"

	"github.com/valyala/fasthttp"
)

// ErrNotConfigured is returned when no SYNC_BASE_URL is set; the engine
// then runs on local data only.
var ErrNotConfigured = errors.New("sync client not configured")

// Client fetches parsed match results from the remote service.
type Client struct {
	baseURL string
	apiKey  string
	client  *fasthttp.Client
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL: cfg.SyncBaseURL,
		apiKey:  cfg.SyncAPIKey,
		client: &fasthttp.Client{
			MaxConnsPerHost:     100,
			ReadTimeout:         10 * time.Second,
			WriteTimeout:        10 * time.Second,
			MaxIdleConnDuration: 1 * time.Minute,
		},
	}
}

func (c *Client) Enabled() bool {
	return c.baseURL != ""
}

// GetLatestBattles fetches the most recent versus results for an account.
func (c *Client) GetLatestBattles(ctx context.Context, accountID string) (*BattleListResponse, error) {
	url := fmt.Sprintf("%s/v1/accounts/%s/battles/latest", c.baseURL, accountID)
	return doRequest[BattleListResponse](ctx, c, url)
}

// GetLatestCoopResults fetches the most recent co-op shift results.
func (c *Client) GetLatestCoopResults(ctx context.Context, accountID string) (*CoopListResponse, error) {
	url := fmt.Sprintf("%s/v1/accounts/%s/coop/latest", c.baseURL, accountID)
	return doRequest[CoopListResponse](ctx, c, url)
}

func doRequest[T any](ctx context.Context, client *Client, url string) (*T, error) {
	if !client.Enabled() {
		return nil, ErrNotConfigured
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodGet)
	if client.apiKey != "" {
		req.Header.Set("Authorization", client.apiKey)
	}

	deadline, ok := ctx.Deadline()
	if ok {
		if err := client.client.DoDeadline(req, resp, deadline); err != nil {
			return nil, err
		}
	} else {
		if err := client.client.Do(req, resp); err != nil {
			return nil, err
		}
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, fmt.Errorf("API error: %d", resp.StatusCode())
	}

	var result T
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, err
	}
	return &result, nil
}
