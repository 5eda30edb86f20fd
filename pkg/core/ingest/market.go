package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Default API endpoints. Tests point these at a local server.
const (
	defaultProfileBaseURL = "https://financialmodelingprep.com/api/v3"
	defaultPeersBaseURL   = "https://finnhub.io/api/v1"
)

// Profile is the slice of a company profile the valuation needs.
type Profile struct {
	Ticker    string  `json:"symbol"`
	Company   string  `json:"companyName"`
	Beta      float64 `json:"beta"`
	Price     float64 `json:"price"`
	MarketCap float64 `json:"mktCap"`
	Country   string  `json:"country"`
	Industry  string  `json:"industry"`
}

// SharesOutstanding estimates the share count as market cap over price.
func (p *Profile) SharesOutstanding() (float64, error) {
	if p.Price <= 0 {
		return 0, fmt.Errorf("cannot derive shares outstanding: price is %v", p.Price)
	}
	return p.MarketCap / p.Price, nil
}

// MarketClient reads company profiles, trailing multiples and peer lists
// from the market data APIs.
type MarketClient struct {
	httpClient *http.Client

	// ProfileBaseURL serves the profile and key-metrics endpoints.
	ProfileBaseURL string
	// PeersBaseURL serves the peer listing endpoint.
	PeersBaseURL string

	profileKey string
	peersKey   string
}

// NewMarketClient creates a client. profileKey authenticates the profile
// and key-metrics endpoints, peersKey the peer listing.
func NewMarketClient(profileKey, peersKey string) *MarketClient {
	return &MarketClient{
		httpClient:     newHTTPClient(),
		ProfileBaseURL: defaultProfileBaseURL,
		PeersBaseURL:   defaultPeersBaseURL,
		profileKey:     profileKey,
		peersKey:       peersKey,
	}
}

// Profile fetches the company profile for a ticker.
func (c *MarketClient) Profile(ctx context.Context, ticker string) (*Profile, error) {
	endpoint := fmt.Sprintf("%s/profile/%s?apikey=%s",
		c.ProfileBaseURL, strings.ToUpper(ticker), url.QueryEscape(c.profileKey))

	var profiles []Profile
	if err := c.getJSON(ctx, endpoint, &profiles); err != nil {
		return nil, fmt.Errorf("profile for %s: %w", ticker, err)
	}
	if len(profiles) == 0 {
		return nil, fmt.Errorf("no profile returned for %s", ticker)
	}
	return &profiles[0], nil
}

// EVToEBITDA fetches the company's own trailing EV/EBITDA multiple.
func (c *MarketClient) EVToEBITDA(ctx context.Context, ticker string) (float64, error) {
	endpoint := fmt.Sprintf("%s/key-metrics-ttm/%s?apikey=%s",
		c.ProfileBaseURL, strings.ToUpper(ticker), url.QueryEscape(c.profileKey))

	var metrics []struct {
		EVOverEBITDA float64 `json:"enterpriseValueOverEBITDATTM"`
	}
	if err := c.getJSON(ctx, endpoint, &metrics); err != nil {
		return 0, fmt.Errorf("key metrics for %s: %w", ticker, err)
	}
	if len(metrics) == 0 || metrics[0].EVOverEBITDA == 0 {
		return 0, fmt.Errorf("no EV/EBITDA multiple for %s", ticker)
	}
	return metrics[0].EVOverEBITDA, nil
}

// Peers lists industry peers for a ticker. The ticker itself is removed
// from the listing.
func (c *MarketClient) Peers(ctx context.Context, ticker string) ([]string, error) {
	upper := strings.ToUpper(ticker)
	endpoint := fmt.Sprintf("%s/stock/peers?symbol=%s&grouping=industry&token=%s",
		c.PeersBaseURL, upper, url.QueryEscape(c.peersKey))

	var listing []string
	if err := c.getJSON(ctx, endpoint, &listing); err != nil {
		return nil, fmt.Errorf("peers for %s: %w", ticker, err)
	}

	peers := make([]string, 0, len(listing))
	for _, symbol := range listing {
		if strings.EqualFold(symbol, upper) {
			continue
		}
		peers = append(peers, symbol)
	}
	return peers, nil
}

// PeerMultiples fetches the trailing EV/EBITDA multiple for each peer,
// skipping peers whose multiple is unavailable.
func (c *MarketClient) PeerMultiples(ctx context.Context, peers []string) []float64 {
	multiples := make([]float64, 0, len(peers))
	for _, peer := range peers {
		multiple, err := c.EVToEBITDA(ctx, peer)
		if err != nil {
			fmt.Printf("[WARN] skipping peer %s: %v\n", peer, err)
			continue
		}
		multiples = append(multiples, multiple)
	}
	return multiples
}

func (c *MarketClient) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
