// backend/models/api_models.go
package models

import "time"

// APIResponse is the envelope every query endpoint returns.
type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// ScrapeSummary reports the outcome of one scrape cycle.
type ScrapeSummary struct {
	RowsSeen   int         `json:"rows_seen"`
	Extracted  int         `json:"extracted"`
	Duplicates int         `json:"duplicates"`
	Dropped    int         `json:"dropped"`
	Saved      int         `json:"saved"`
	Latest     *DrawRecord `json:"latest,omitempty"`
	Problems   []string    `json:"problems,omitempty"`
}

// WeatherCollection reports the outcome of one weather collection.
type WeatherCollection struct {
	Observation WeatherObservation `json:"observation"`
	Saved       bool               `json:"saved"`
	LinkedDraws int64              `json:"linked_draws"`
}

// ImportSummary reports a CSV backfill.
type ImportSummary struct {
	Rows     int      `json:"rows"`
	Saved    int      `json:"saved"`
	Rejected int      `json:"rejected"`
	Problems []string `json:"problems,omitempty"`
}

// CombinedRun reports a combined collection: weather first, then the draw scrape.
type CombinedRun struct {
	Weather       *WeatherCollection `json:"weather,omitempty"`
	Scrape        *ScrapeSummary     `json:"scrape,omitempty"`
	RelinkedDraws int64              `json:"relinked_draws"`
}

// HealthStatus is returned by the health endpoint.
type HealthStatus struct {
	Status        string     `json:"status"`
	Database      string     `json:"database"`
	Reason        string     `json:"reason,omitempty"`
	Draws         int        `json:"draws"`
	LatestWeather *time.Time `json:"latest_weather,omitempty"`
}
