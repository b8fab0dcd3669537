package weather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gewnthar/lottometeo/backend/config"
	"github.com/gewnthar/lottometeo/backend/models"
)

const sampleResponse = `{
	"dt": 1767355200,
	"name": "Moscow",
	"sys": {"country": "RU"},
	"main": {"temp": -3.5, "feels_like": -8.1, "temp_min": -4, "temp_max": -3, "pressure": 1013.4, "humidity": 86},
	"weather": [{"main": "Snow", "description": "небольшой снег"}],
	"wind": {"speed": 4.2, "deg": 46},
	"clouds": {"all": 100},
	"visibility": 6000
}`

func newTestClient(t *testing.T, url, key string) (*Client, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC))
	c := NewClient(config.WeatherConfig{
		APIKey:      key,
		APIURL:      url,
		City:        "Moscow",
		CountryCode: "RU",
		Units:       "metric",
		Lang:        "ru",
		HTTPTimeout: time.Second,
	}, zap.NewNop()).WithClock(clock)
	return c, clock
}

func TestHPaToMMHg(t *testing.T) {
	assert.Equal(t, 759.8, HPaToMMHg(1013))
	assert.Equal(t, 760.1, HPaToMMHg(1013.4))
	assert.Equal(t, 0.0, HPaToMMHg(0))
	assert.Equal(t, 740.3, HPaToMMHg(987))
}

func TestWindDirection(t *testing.T) {
	tests := []struct {
		deg  float64
		want string
	}{
		{0, "north"},
		{22, "north"},
		{44, "north-east"},
		{46, "north-east"},
		{90, "east"},
		{180, "south"},
		{270, "west"},
		{315, "north-west"},
		{350, "north"},
		{360, "north"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, WindDirection(tt.deg), "deg %v", tt.deg)
	}
}

func TestFetch_ParsesProviderResponse(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		gotQuery = map[string]string{"q": q.Get("q"), "appid": q.Get("appid"), "units": q.Get("units"), "lang": q.Get("lang")}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sampleResponse))
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv.URL, "secret")
	obs := c.Fetch(context.Background())

	assert.Equal(t, map[string]string{"q": "Moscow,RU", "appid": "secret", "units": "metric", "lang": "ru"}, gotQuery)
	assert.False(t, obs.IsFallback)
	assert.Equal(t, "Moscow", obs.City)
	assert.Equal(t, "RU", obs.Country)
	assert.Equal(t, -3.5, obs.Temperature)
	assert.Equal(t, 1013.4, obs.PressureHPa)
	assert.Equal(t, 760.1, obs.PressureMMHg)
	assert.Equal(t, "north-east", obs.WindDirection)
	assert.Equal(t, 6000, obs.Visibility)
	assert.Equal(t, 100, obs.Cloudiness)
	assert.Equal(t, "небольшой снег", obs.WeatherDescription)
	assert.Equal(t, time.Unix(1767355200, 0).UTC(), obs.Timestamp)
	assert.False(t, obs.IsDemo())
}

func TestFetch_MissingKeyReturnsFallback(t *testing.T) {
	c, clock := newTestClient(t, "http://127.0.0.1:1", "")
	obs := c.Fetch(context.Background())

	assert.True(t, obs.IsFallback)
	assert.True(t, obs.IsDemo())
	assert.Equal(t, clock.Now(), obs.Timestamp)
	assert.Equal(t, "Moscow", obs.City)
	assert.Equal(t, 15.0, obs.Temperature)
	assert.Equal(t, 759.8, obs.PressureMMHg)
	assert.Equal(t, "south", obs.WindDirection)
	assert.Equal(t, fallbackDescription, obs.WeatherDescription)
}

func TestFetch_ProviderErrorReturnsFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"cod":401,"message":"Invalid API key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv.URL, "bad")
	_, err := c.FetchCurrent(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrFetch)
	assert.Contains(t, err.Error(), "401")

	obs := c.Fetch(context.Background())
	assert.True(t, obs.IsFallback)
}

func TestFetch_MalformedBodyReturnsFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"main":`))
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv.URL, "secret")
	_, err := c.FetchCurrent(context.Background())
	assert.ErrorIs(t, err, models.ErrFetch)
	assert.True(t, c.Fetch(context.Background()).IsFallback)
}
