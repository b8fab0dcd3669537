// backend/weather/client.go
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/gewnthar/lottometeo/backend/config"
	"github.com/gewnthar/lottometeo/backend/models"
)

// Client fetches current conditions for one city from an OpenWeatherMap-compatible API.
type Client struct {
	apiKey     string
	baseURL    string
	city       string
	country    string
	units      string
	lang       string
	httpClient *http.Client
	clock      clockwork.Clock
	logger     *zap.Logger
}

// NewClient creates a weather client from configuration.
func NewClient(cfg config.WeatherConfig, logger *zap.Logger) *Client {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    cfg.APIURL,
		city:       cfg.City,
		country:    cfg.CountryCode,
		units:      cfg.Units,
		lang:       cfg.Lang,
		httpClient: &http.Client{Timeout: timeout},
		clock:      clockwork.NewRealClock(),
		logger:     logger.Named("weather"),
	}
}

// WithClock replaces the clock used to stamp fallback observations.
func (c *Client) WithClock(clock clockwork.Clock) *Client {
	c.clock = clock
	return c
}

// Fetch always returns an observation. When the API key is missing or the provider
// fails, the result is the fallback observation with IsFallback set.
func (c *Client) Fetch(ctx context.Context) models.WeatherObservation {
	obs, err := c.FetchCurrent(ctx)
	if err != nil {
		c.logger.Warn("weather provider unavailable, using fallback", zap.String("city", c.city), zap.Error(err))
		return Fallback(c.city, c.country, c.clock.Now())
	}
	return obs
}

// FetchCurrent calls the provider. Every error wraps models.ErrFetch.
func (c *Client) FetchCurrent(ctx context.Context) (models.WeatherObservation, error) {
	if c.apiKey == "" {
		return models.WeatherObservation{}, fmt.Errorf("%w: weather API key is not configured", models.ErrFetch)
	}

	params := url.Values{}
	q := c.city
	if c.country != "" {
		q += "," + c.country
	}
	params.Set("q", q)
	params.Set("appid", c.apiKey)
	if c.units != "" {
		params.Set("units", c.units)
	}
	if c.lang != "" {
		params.Set("lang", c.lang)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return models.WeatherObservation{}, fmt.Errorf("%w: create weather request: %v", models.ErrFetch, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.WeatherObservation{}, fmt.Errorf("%w: weather request: %v", models.ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return models.WeatherObservation{}, fmt.Errorf("%w: weather API status %d: %s", models.ErrFetch, resp.StatusCode, body)
	}

	var payload currentResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return models.WeatherObservation{}, fmt.Errorf("%w: decode weather response: %v", models.ErrFetch, err)
	}
	return payload.toObservation(c.clock.Now()), nil
}

type currentResponse struct {
	Dt   int64  `json:"dt"`
	Name string `json:"name"`
	Sys  struct {
		Country string `json:"country"`
	} `json:"sys"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		TempMin   float64 `json:"temp_min"`
		TempMax   float64 `json:"temp_max"`
		Pressure  float64 `json:"pressure"`
		Humidity  float64 `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Wind struct {
		Speed float64 `json:"speed"`
		Deg   float64 `json:"deg"`
	} `json:"wind"`
	Clouds struct {
		All int `json:"all"`
	} `json:"clouds"`
	Visibility int `json:"visibility"`
}

func (r currentResponse) toObservation(now time.Time) models.WeatherObservation {
	ts := now.UTC()
	if r.Dt > 0 {
		ts = time.Unix(r.Dt, 0).UTC()
	}
	obs := models.WeatherObservation{
		Timestamp:     ts,
		City:          r.Name,
		Country:       r.Sys.Country,
		Temperature:   r.Main.Temp,
		FeelsLike:     r.Main.FeelsLike,
		TempMin:       r.Main.TempMin,
		TempMax:       r.Main.TempMax,
		Humidity:      r.Main.Humidity,
		PressureHPa:   r.Main.Pressure,
		PressureMMHg:  HPaToMMHg(r.Main.Pressure),
		WindSpeed:     r.Wind.Speed,
		WindDeg:       r.Wind.Deg,
		WindDirection: WindDirection(r.Wind.Deg),
		Visibility:    r.Visibility,
		Cloudiness:    r.Clouds.All,
	}
	if len(r.Weather) > 0 {
		obs.WeatherMain = r.Weather[0].Main
		obs.WeatherDescription = r.Weather[0].Description
	}
	return obs
}
