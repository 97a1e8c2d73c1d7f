package pstryk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/pstryklab/pstryk-go/types"
)

const DefaultBaseUrl = "https://api.pstryk.pl/integrations"

// ErrAuth is returned when the API rejects the configured token (401/403).
// It is fatal at startup, a refresh cycle treats it like any other failure
// and falls back to the cache.
var ErrAuth = errors.New("pstryk: authentication failed, check api token")

type Client struct {
	baseUrl    string
	apiToken   string
	httpClient *http.Client
}

func New(baseUrl string, apiToken string, timeout time.Duration) *Client {
	if baseUrl == "" {
		baseUrl = DefaultBaseUrl
	}
	return &Client{
		baseUrl:    baseUrl,
		apiToken:   apiToken,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Window is the half-open UTC time span requested from the API.
type Window struct {
	Start time.Time
	End   time.Time
}

// DefaultWindow spans from the previous day's UTC midnight to two days
// ahead, so the frame list always covers yesterday, today and tomorrow.
func DefaultWindow(now time.Time) Window {
	midnight := now.UTC().Truncate(24 * time.Hour)
	return Window{
		Start: midnight.AddDate(0, 0, -1),
		End:   midnight.AddDate(0, 0, 2),
	}
}

func (w Window) query(resolution types.Resolution) url.Values {
	q := url.Values{}
	q.Set("resolution", string(resolution))
	q.Set("window_start", w.Start.UTC().Format("2006-01-02T15:04:05Z"))
	q.Set("window_end", w.End.UTC().Format("2006-01-02T15:04:05Z"))
	return q
}

// FetchPricing returns the raw buy price frames for the window.
func (c *Client) FetchPricing(ctx context.Context, w Window) ([]PriceFrame, error) {
	var resp priceResponse
	if err := c.get(ctx, "pricing", w.query(types.ResolutionHour), &resp); err != nil {
		return nil, fmt.Errorf("fetching buy prices: %w", err)
	}
	return resp.Frames, nil
}

// FetchProsumerPricing returns the raw sell price frames for the window.
func (c *Client) FetchProsumerPricing(ctx context.Context, w Window) ([]PriceFrame, error) {
	var resp priceResponse
	if err := c.get(ctx, "prosumer-pricing", w.query(types.ResolutionHour), &resp); err != nil {
		return nil, fmt.Errorf("fetching sell prices: %w", err)
	}
	return resp.Frames, nil
}

func (c *Client) FetchEnergyUsage(ctx context.Context, resolution types.Resolution, w Window) (*EnergyResponse, error) {
	var resp EnergyResponse
	if err := c.get(ctx, "meter-data/energy-usage", w.query(resolution), &resp); err != nil {
		return nil, fmt.Errorf("fetching energy usage (%s): %w", resolution, err)
	}
	return &resp, nil
}

func (c *Client) FetchEnergyCost(ctx context.Context, resolution types.Resolution, w Window) (*EnergyResponse, error) {
	var resp EnergyResponse
	if err := c.get(ctx, "meter-data/energy-cost", w.query(resolution), &resp); err != nil {
		return nil, fmt.Errorf("fetching energy cost (%s): %w", resolution, err)
	}
	return &resp, nil
}

// ValidateToken makes a minimal pricing request to prove the token works.
// Returns ErrAuth (wrapped) when the API rejects the token.
func (c *Client) ValidateToken(ctx context.Context) error {
	midnight := time.Now().UTC().Truncate(24 * time.Hour)
	w := Window{Start: midnight, End: midnight.AddDate(0, 0, 1)}
	var resp priceResponse
	if err := c.get(ctx, "pricing", w.query(types.ResolutionHour), &resp); err != nil {
		return fmt.Errorf("validating api token: %w", err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, endpoint string, query url.Values, out any) error {
	u := fmt.Sprintf("%s/%s/?%s", c.baseUrl, endpoint, query.Encode())

	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiToken))
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return ErrAuth
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
