package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/patrickmn/go-cache"

	"watermate-backend/config"
	"watermate-backend/internal/model"
)

// ErrNoResults is returned when the geocoding API cannot resolve a query.
var ErrNoResults = errors.New("no geocoding results")

// Geocoder resolves a free-form place query to coordinates.
type Geocoder interface {
	Forward(ctx context.Context, query string) (*model.Coordinates, error)
}

// Client is an HTTP client for a positionstack-style forward geocoding API.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	results *cache.Cache
	ttl     time.Duration
}

// NewClient creates a geocoding client from configuration. Resolved queries
// are cached in memory so repeated signups from the same city do not burn
// API quota.
func NewClient(cfg *config.GeocoderConfig) *Client {
	ttl := time.Duration(cfg.CacheTTLMinutes) * time.Minute
	return &Client{
		baseURL: cfg.URL,
		apiKey:  cfg.APIKey,
		client: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		results: cache.New(ttl, 2*ttl),
		ttl:     ttl,
	}
}

// apiResponse models the subset of the geocoding API response we consume.
type apiResponse struct {
	Data []struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"data"`
}

// Forward resolves a query like "Beacon, NY, US" to coordinates.
func (g *Client) Forward(ctx context.Context, query string) (*model.Coordinates, error) {
	if cached, found := g.results.Get(query); found {
		coords := cached.(model.Coordinates)
		return &coords, nil
	}

	params := url.Values{}
	params.Set("access_key", g.apiKey)
	params.Set("query", query)
	params.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocoding request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocoder returned non-200 status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read geocoder response: %w", err)
	}

	var apiResp apiResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal geocoder response: %w", err)
	}

	if len(apiResp.Data) == 0 {
		return nil, ErrNoResults
	}

	coords := model.Coordinates{
		Latitude:  apiResp.Data[0].Latitude,
		Longitude: apiResp.Data[0].Longitude,
	}
	g.results.Set(query, coords, g.ttl)
	return &coords, nil
}
