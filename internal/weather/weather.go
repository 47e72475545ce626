// Package weather looks up the current temperature from open-meteo.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const DefaultBaseURL = "https://api.open-meteo.com/v1/forecast"

const (
	Unavailable     = "מזג האוויר אינו זמין כרגע."
	LocationUnknown = "מיקום לא זמין."
)

type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{BaseURL: DefaultBaseURL, HTTP: httpClient}
}

type forecast struct {
	CurrentWeather *struct {
		Temperature float64 `json:"temperature"`
	} `json:"current_weather"`
}

// Temperature returns the current temperature at loc in degrees Celsius.
func (c *Client) Temperature(ctx context.Context, loc Location) (float64, error) {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(loc.Lat, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(loc.Lon, 'f', -1, 64))
	q.Set("current_weather", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("api error: %d - %s", resp.StatusCode, string(body))
	}

	var f forecast
	if err := json.Unmarshal(body, &f); err != nil {
		return 0, fmt.Errorf("unmarshal response: %w", err)
	}
	if f.CurrentWeather == nil {
		return 0, fmt.Errorf("no current_weather in response")
	}

	return f.CurrentWeather.Temperature, nil
}

// Describe renders the current temperature as a short sentence. Failures
// degrade to a fixed notice instead of an error.
func (c *Client) Describe(ctx context.Context, loc *Location) string {
	if loc == nil {
		return LocationUnknown
	}
	temp, err := c.Temperature(ctx, *loc)
	if err != nil {
		return Unavailable
	}
	return fmt.Sprintf("%d מעלות.", int(math.Round(temp)))
}
