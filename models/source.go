// backend/models/source.go
package models

import "time"

// Ingestion sources tracked in data_sources.
const (
	SourceArchivePage = "archive_page"
	SourceArchiveCSV  = "archive_csv"
	SourceCSVUpload   = "csv_upload"
	SourceWeatherAPI  = "weather_api"
)

// Source run outcomes. Anything other than OutcomeSuccess leaves LastSuccessAt unchanged.
const (
	OutcomeSuccess    = "success"
	OutcomeFallback   = "fallback"
	OutcomeFetchError = "fetch_error"
	OutcomeStoreError = "store_error"
)

// DataSourceStatus is the latest known state of one ingestion source.
type DataSourceStatus struct {
	SourceName    string     `json:"source_name"`
	SourceURL     string     `json:"source_url,omitempty"`
	LastOutcome   string     `json:"last_outcome"`
	LastCheckedAt time.Time  `json:"last_checked_at"`
	LastSuccessAt *time.Time `json:"last_success_at,omitempty"`
	RowsSeen      int        `json:"rows_seen"`
	Saved         int        `json:"saved"`
	Dropped       int        `json:"dropped"`
	UpdatedAt     time.Time  `json:"updated_at"`
}
