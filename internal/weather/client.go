// Package weather enriches fixtures with historical kickoff weather from Open-Meteo.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"
	_ "time/tzdata" // kickoff hours are indexed in the archive timezone

	"github.com/SpaceTransformer/xgoals-framework/internal/metrics"
	"github.com/SpaceTransformer/xgoals-framework/internal/models"

	"github.com/rs/zerolog/log"
)

const (
	DefaultGeocodingURL = "https://geocoding-api.open-meteo.com/v1/search"
	DefaultArchiveURL   = "https://archive-api.open-meteo.com/v1/archive"
	DefaultTimezone     = "Europe/Rome"

	hourlyVariables = "temperature_2m,precipitation,windspeed_10m,weathercode"
)

// ErrCityNotFound is returned when the geocoder has no match for a city
var ErrCityNotFound = errors.New("city not found")

// Coordinates locate a geocoded city
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type geocodeResponse struct {
	Results []Coordinates `json:"results"`
}

type hourlySeries struct {
	Time          []string   `json:"time"`
	Temperature   []*float64 `json:"temperature_2m"`
	Precipitation []*float64 `json:"precipitation"`
	WindSpeed     []*float64 `json:"windspeed_10m"`
	WeatherCode   []*int     `json:"weathercode"`
}

type archiveResponse struct {
	Hourly *hourlySeries `json:"hourly"`
}

// Options configures a Client
type Options struct {
	GeocodingURL string
	ArchiveURL   string
	Timezone     string
	Timeout      time.Duration
	HTTPClient   *http.Client
}

// Client looks up kickoff weather. Successful geocodes are remembered by
// cleaned city name; misses are not, so a later lookup can retry them.
type Client struct {
	geocodingURL string
	archiveURL   string
	timezone     string
	location     *time.Location
	httpClient   *http.Client

	mu       sync.Mutex
	geocodes map[string]Coordinates
}

// NewClient creates a weather client
func NewClient(opts Options) *Client {
	c := &Client{
		geocodingURL: opts.GeocodingURL,
		archiveURL:   opts.ArchiveURL,
		timezone:     opts.Timezone,
		httpClient:   opts.HTTPClient,
		geocodes:     make(map[string]Coordinates),
	}
	if c.geocodingURL == "" {
		c.geocodingURL = DefaultGeocodingURL
	}
	if c.archiveURL == "" {
		c.archiveURL = DefaultArchiveURL
	}
	if c.timezone == "" {
		c.timezone = DefaultTimezone
	}
	if c.httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		c.httpClient = &http.Client{Timeout: timeout}
	}

	loc, err := time.LoadLocation(c.timezone)
	if err != nil {
		log.Warn().Err(err).Str("timezone", c.timezone).Msg("Unknown timezone, indexing kickoff hours in UTC")
		loc = time.UTC
	}
	c.location = loc

	return c
}

// Lookup returns the weather at kickoff for a venue city. Any failure along
// the way yields the empty sample; the error is only logged.
func (c *Client) Lookup(ctx context.Context, fixtureID int, city string, kickoff int64) models.WeatherSample {
	sample, err := c.lookup(ctx, city, kickoff)
	if err != nil {
		log.Warn().
			Err(err).
			Int("fixture_id", fixtureID).
			Str("city", city).
			Msg("Weather lookup failed, continuing without weather")
		metrics.RecordWeatherLookup("failed")
		return models.WeatherSample{}
	}
	metrics.RecordWeatherLookup("success")
	return sample
}

func (c *Client) lookup(ctx context.Context, city string, kickoff int64) (models.WeatherSample, error) {
	if city == "" {
		return models.WeatherSample{}, fmt.Errorf("venue city: %w", ErrCityNotFound)
	}
	if kickoff <= 0 {
		return models.WeatherSample{}, fmt.Errorf("invalid kickoff timestamp %d", kickoff)
	}

	clean := CleanCityName(city)
	coords, err := c.Geocode(ctx, clean)
	if err != nil {
		return models.WeatherSample{}, err
	}

	at := time.Unix(kickoff, 0).In(c.location)
	series, err := c.hourly(ctx, coords, at.Format("2006-01-02"))
	if err != nil {
		return models.WeatherSample{}, err
	}

	hour := at.Hour()
	if hour >= len(series.WeatherCode) || hour >= len(series.Temperature) ||
		hour >= len(series.Precipitation) || hour >= len(series.WindSpeed) {
		return models.WeatherSample{}, fmt.Errorf("no hourly data for hour %d", hour)
	}

	sample := models.WeatherSample{
		City:          city,
		Temperature:   series.Temperature[hour],
		Precipitation: series.Precipitation[hour],
		WindSpeed:     series.WindSpeed[hour],
		WeatherCode:   series.WeatherCode[hour],
		Timestamp:     kickoff,
	}
	if sample.WeatherCode != nil {
		sample.Description = Describe(*sample.WeatherCode)
	} else {
		sample.Description = UnclassifiedDescription
	}

	log.Debug().
		Str("city", clean).
		Float64("lat", coords.Latitude).
		Float64("lon", coords.Longitude).
		Int("hour", hour).
		Msg("Weather retrieved")

	return sample, nil
}

// Geocode resolves a cleaned city name to coordinates
func (c *Client) Geocode(ctx context.Context, city string) (Coordinates, error) {
	c.mu.Lock()
	coords, ok := c.geocodes[city]
	c.mu.Unlock()
	if ok {
		return coords, nil
	}

	params := url.Values{
		"name":  {city},
		"count": {"1"},
	}
	var resp geocodeResponse
	if err := c.getJSON(ctx, c.geocodingURL, params, &resp); err != nil {
		return Coordinates{}, fmt.Errorf("geocode %s: %w", city, err)
	}
	if len(resp.Results) == 0 {
		return Coordinates{}, fmt.Errorf("geocode %s: %w", city, ErrCityNotFound)
	}

	coords = resp.Results[0]
	c.mu.Lock()
	c.geocodes[city] = coords
	c.mu.Unlock()

	return coords, nil
}

func (c *Client) hourly(ctx context.Context, coords Coordinates, day string) (*hourlySeries, error) {
	params := url.Values{
		"latitude":   {strconv.FormatFloat(coords.Latitude, 'f', -1, 64)},
		"longitude":  {strconv.FormatFloat(coords.Longitude, 'f', -1, 64)},
		"start_date": {day},
		"end_date":   {day},
		"hourly":     {hourlyVariables},
		"timezone":   {c.timezone},
	}
	var resp archiveResponse
	if err := c.getJSON(ctx, c.archiveURL, params, &resp); err != nil {
		return nil, fmt.Errorf("weather archive %s: %w", day, err)
	}
	if resp.Hourly == nil {
		return nil, fmt.Errorf("weather archive %s: response has no hourly block", day)
	}
	return resp.Hourly, nil
}

func (c *Client) getJSON(ctx context.Context, base string, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("status %d: %s", resp.StatusCode, body)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}
