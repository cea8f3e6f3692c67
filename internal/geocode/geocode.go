// Package geocode resolves coordinates to street addresses via a
// Nominatim-style reverse geocoding API.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	defaultReverseURL = "https://nominatim.openstreetmap.org/reverse"
	defaultTimeout    = 5 * time.Second
	userAgent         = "onsight/1.0"
)

// Client performs reverse geocoding lookups. Lookups are best-effort
// enrichment: callers are expected to treat errors as "no address".
type Client struct {
	httpClient *http.Client

	// Overridable URL for testing.
	reverseURL string
}

// NewClient creates a geocoding client. baseURL and timeout fall back to
// the public Nominatim endpoint and a 5 second timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultReverseURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		reverseURL: baseURL,
	}
}

// reverseResponse is the response from the Nominatim reverse API.
type reverseResponse struct {
	DisplayName string `json:"display_name"`
	Error       string `json:"error"`
}

// Reverse resolves a coordinate to a display address.
func (c *Client) Reverse(ctx context.Context, lat, lon float64) (string, error) {
	params := url.Values{
		"lat":    {strconv.FormatFloat(lat, 'f', -1, 64)},
		"lon":    {strconv.FormatFloat(lon, 'f', -1, 64)},
		"format": {"jsonv2"},
	}

	req, err := http.NewRequestWithContext(ctx, "GET", c.reverseURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("sending request: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			err = fmt.Errorf("%w (also failed to close body: %v)", err, closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var result reverseResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if result.Error != "" {
		return "", fmt.Errorf("reverse geocode: %s", result.Error)
	}

	return result.DisplayName, nil
}
