// backend/models/weather.go
package models

import "time"

// WeatherObservation is one snapshot of current conditions. Rows are append-only.
type WeatherObservation struct {
	ID                 int64     `db:"id" json:"id,omitempty"`
	Timestamp          time.Time `db:"observed_at" json:"timestamp"`
	City               string    `db:"city" json:"city"`
	Country            string    `db:"country" json:"country,omitempty"`
	Temperature        float64   `db:"temperature" json:"temperature"`
	FeelsLike          float64   `db:"feels_like" json:"feels_like"`
	TempMin            float64   `db:"temp_min" json:"temp_min"`
	TempMax            float64   `db:"temp_max" json:"temp_max"`
	Humidity           float64   `db:"humidity" json:"humidity"`
	PressureHPa        float64   `db:"pressure_hpa" json:"pressure_hpa"`
	PressureMMHg       float64   `db:"pressure_mmhg" json:"pressure_mmhg"`
	WindSpeed          float64   `db:"wind_speed" json:"wind_speed"`
	WindDeg            float64   `db:"wind_deg" json:"wind_deg"`
	WindDirection      string    `db:"wind_direction" json:"wind_direction"`
	Visibility         int       `db:"visibility" json:"visibility"`
	Cloudiness         int       `db:"cloudiness" json:"cloudiness"`
	WeatherMain        string    `db:"weather_main" json:"weather_main,omitempty"`
	WeatherDescription string    `db:"weather_description" json:"weather_description"`

	// Set on synthetic readings produced when the provider is unavailable.
	IsFallback bool `db:"-" json:"is_fallback"`
}

// IsDemo reports whether the observation must be kept out of the store and away
// from draw snapshots.
func (o WeatherObservation) IsDemo() bool {
	return o.IsFallback || (o.Temperature == 0 && o.PressureHPa == 0)
}
