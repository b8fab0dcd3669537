// backend/weather/fallback.go
package weather

import (
	"time"

	"github.com/gewnthar/lottometeo/backend/models"
)

const fallbackDescription = "fallback data"

// Fallback returns the fixed observation used when the provider cannot be reached.
// Only the timestamp and location vary.
func Fallback(city, country string, now time.Time) models.WeatherObservation {
	const (
		temp  = 15.0
		hpa   = 1013.0
		bears = 180.0
	)
	return models.WeatherObservation{
		Timestamp:          now.UTC(),
		City:               city,
		Country:            country,
		Temperature:        temp,
		FeelsLike:          14,
		TempMin:            temp,
		TempMax:            temp,
		Humidity:           65,
		PressureHPa:        hpa,
		PressureMMHg:       HPaToMMHg(hpa),
		WindSpeed:          3,
		WindDeg:            bears,
		WindDirection:      WindDirection(bears),
		Visibility:         10000,
		Cloudiness:         40,
		WeatherMain:        "Clouds",
		WeatherDescription: fallbackDescription,
		IsFallback:         true,
	}
}
