// backend/models/draw.go
package models

import (
	"fmt"
	"time"
)

const (
	NumbersPerField = 4
	NumbersPerDraw  = 2 * NumbersPerField
	MinNumber       = 1
	MaxNumber       = 20
)

// DrawRecord is one lottery draw as published by the archive page.
// Date ("DD.MM.YYYY") is kept as the source prints it; Time is "HH:MM" with a zero-padded hour.
type DrawRecord struct {
	DrawID             string    `db:"draw_id" json:"draw_id"`
	Date               string    `db:"draw_date" json:"date"`
	Time               string    `db:"draw_time" json:"time"`
	Field1             []int     `db:"field_1" json:"field_1"`
	Field2             []int     `db:"field_2" json:"field_2"`
	Temperature        *float64  `db:"temperature" json:"temperature,omitempty"`
	WeatherDescription *string   `db:"weather_description" json:"weather_description,omitempty"`
	Pressure           *float64  `db:"pressure" json:"pressure,omitempty"` // mmHg
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
}

// HasWeather reports whether a weather snapshot has been linked to the draw.
func (d DrawRecord) HasWeather() bool {
	return d.Temperature != nil && d.WeatherDescription != nil
}

// Numbers returns both fields flattened, field 1 first.
func (d DrawRecord) Numbers() []int {
	out := make([]int, 0, len(d.Field1)+len(d.Field2))
	out = append(out, d.Field1...)
	return append(out, d.Field2...)
}

// ValidateDraw checks the shape invariants every stored draw must satisfy.
func ValidateDraw(d DrawRecord) error {
	if d.DrawID == "" {
		return fmt.Errorf("%w: empty draw id", ErrValidation)
	}
	if d.Date == "" {
		return fmt.Errorf("%w: draw %s has no date", ErrValidation, d.DrawID)
	}
	if len(d.Field1) != NumbersPerField || len(d.Field2) != NumbersPerField {
		return fmt.Errorf("%w: draw %s needs %d+%d numbers, got %d+%d",
			ErrValidation, d.DrawID, NumbersPerField, NumbersPerField, len(d.Field1), len(d.Field2))
	}
	seen := make(map[int]bool, NumbersPerDraw)
	for _, n := range d.Numbers() {
		if n < MinNumber || n > MaxNumber {
			return fmt.Errorf("%w: draw %s has number %d outside [%d,%d]", ErrValidation, d.DrawID, n, MinNumber, MaxNumber)
		}
		if seen[n] {
			return fmt.Errorf("%w: draw %s repeats number %d", ErrValidation, d.DrawID, n)
		}
		seen[n] = true
	}
	return nil
}
