// backend/models/stats.go
package models

// Frequency classes.
const (
	ClassHot    = "hot"
	ClassCold   = "cold"
	ClassNormal = "normal"
)

// NumberFrequency is the observed count of one number across both fields.
type NumberFrequency struct {
	Number       int     `json:"number"`
	Count        int     `json:"count"`
	Expected     float64 `json:"expected"`
	DeviationPct float64 `json:"deviation_pct"`
	Class        string  `json:"class"`
}

// FrequencyStats summarises every number 1..20. Numbers is ordered by number,
// Ranked by (count desc, number asc).
type FrequencyStats struct {
	TotalNumbers       int               `json:"total_numbers"`
	TotalDrawsEstimate float64           `json:"total_draws_estimate"`
	DrawsCounted       int               `json:"draws_counted"`
	ExpectedCount      float64           `json:"expected_count"`
	Numbers            []NumberFrequency `json:"numbers"`
	Ranked             []NumberFrequency `json:"ranked"`
	MostCommon         []NumberFrequency `json:"most_common"`
	LeastCommon        []NumberFrequency `json:"least_common"`
	Hot                []int             `json:"hot"`
	Cold               []int             `json:"cold"`
}

// PredictionFilter narrows the draws used for a prediction. Nil bounds are open.
// Pressure bounds are in mmHg.
type PredictionFilter struct {
	TempMin       *float64 `json:"temp_min,omitempty"`
	TempMax       *float64 `json:"temp_max,omitempty"`
	HumidityMin   *float64 `json:"humidity_min,omitempty"`
	HumidityMax   *float64 `json:"humidity_max,omitempty"`
	PressureMin   *float64 `json:"pressure_min,omitempty"`
	PressureMax   *float64 `json:"pressure_max,omitempty"`
	WindSpeedMin  *float64 `json:"wind_speed_min,omitempty"`
	WindSpeedMax  *float64 `json:"wind_speed_max,omitempty"`
	WindDirection string   `json:"wind_direction,omitempty"`
	Description   string   `json:"description,omitempty"`
}

// PredictedNumber is one recommended number with its clamped heuristic score.
type PredictedNumber struct {
	Number      int  `json:"number"`
	Occurrences int  `json:"occurrences"`
	Probability int  `json:"probability"`
	Padded      bool `json:"padded,omitempty"`
}

// Prediction is the weather-filtered recommendation. When HasData is false the
// number slices are empty.
type Prediction struct {
	HasData      bool              `json:"has_data"`
	Message      string            `json:"message,omitempty"`
	MatchedDraws int               `json:"matched_draws"`
	Field1       []PredictedNumber `json:"field_1"`
	Field2       []PredictedNumber `json:"field_2"`
	Confidence   float64           `json:"confidence"`
	Filter       PredictionFilter  `json:"filter"`
}

// ConditionBucket holds number percentages for one weather/temperature/pressure group.
type ConditionBucket struct {
	Key         string          `json:"key"`
	Weather     string          `json:"weather"`
	Temperature string          `json:"temperature"`
	Pressure    string          `json:"pressure"`
	Draws       int             `json:"draws"`
	Numbers     []NumberPercent `json:"numbers"`
}

// NumberPercent is a number's share of the draws in a bucket.
type NumberPercent struct {
	Number  int     `json:"number"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}
