// backend/handlers/stats_handler.go
package handlers

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/gewnthar/lottometeo/backend/models"
)

// Frequency handles GET /api/stats/frequency.
func (h *Handler) Frequency(c echo.Context) error {
	stats, err := h.svc.FrequencyStats(c.Request().Context())
	if err != nil {
		return h.respondWithError(c, err, nil)
	}
	return respond(c, stats)
}

// Predict handles GET /api/stats/predict. Every filter parameter is optional;
// pressure bounds are in mmHg.
func (h *Handler) Predict(c echo.Context) error {
	filter, err := parseFilter(c)
	if err != nil {
		return h.respondWithError(c, err, nil)
	}
	pred, err := h.svc.Predict(c.Request().Context(), filter)
	if err != nil {
		return h.respondWithError(c, err, pred)
	}
	return respond(c, pred)
}

// Conditions handles GET /api/stats/conditions.
func (h *Handler) Conditions(c echo.Context) error {
	buckets, err := h.svc.Conditions(c.Request().Context())
	if err != nil {
		return h.respondWithError(c, err, nil)
	}
	return respond(c, buckets)
}

func parseFilter(c echo.Context) (models.PredictionFilter, error) {
	f := models.PredictionFilter{
		WindDirection: strings.TrimSpace(c.QueryParam("wind_direction")),
		Description:   strings.TrimSpace(c.QueryParam("description")),
	}
	bounds := []struct {
		name string
		dst  **float64
	}{
		{"temp_min", &f.TempMin},
		{"temp_max", &f.TempMax},
		{"humidity_min", &f.HumidityMin},
		{"humidity_max", &f.HumidityMax},
		{"pressure_min", &f.PressureMin},
		{"pressure_max", &f.PressureMax},
		{"wind_speed_min", &f.WindSpeedMin},
		{"wind_speed_max", &f.WindSpeedMax},
	}
	for _, b := range bounds {
		raw := strings.TrimSpace(c.QueryParam(b.name))
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return f, fmt.Errorf("%w: %s must be a number, got %q", models.ErrValidation, b.name, raw)
		}
		*b.dst = &v
	}
	return f, nil
}
