// backend/handlers/draw_handler.go
package handlers

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/gewnthar/lottometeo/backend/models"
)

const defaultListLimit = 100

// Health reports store reachability. A degraded store answers 503 so load balancers notice.
func (h *Handler) Health(c echo.Context) error {
	status := h.svc.Health(c.Request().Context())
	code := http.StatusOK
	if status.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, models.APIResponse{Success: code == http.StatusOK, Data: status, Reason: status.Reason})
}

// ListDraws handles GET /api/draws?limit=N. limit=0 returns every draw.
func (h *Handler) ListDraws(c echo.Context) error {
	limit, err := bindLimit(c)
	if err != nil {
		return h.respondWithError(c, err, nil)
	}
	draws, err := h.svc.ListDraws(c.Request().Context(), limit)
	if err != nil {
		return h.respondWithError(c, err, nil)
	}
	return respond(c, draws)
}

// ExportDraws streams every stored draw as a CSV attachment.
func (h *Handler) ExportDraws(c echo.Context) error {
	var buf bytes.Buffer
	if err := h.svc.ExportDrawsCSV(c.Request().Context(), &buf); err != nil {
		return h.respondWithError(c, err, nil)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="draws.csv"`)
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// LatestWeather handles GET /api/weather/latest.
func (h *Handler) LatestWeather(c echo.Context) error {
	obs, err := h.svc.LatestWeather(c.Request().Context())
	if err != nil {
		return h.respondWithError(c, err, nil)
	}
	return respond(c, obs)
}

// WeatherHistory handles GET /api/weather?limit=N.
func (h *Handler) WeatherHistory(c echo.Context) error {
	limit, err := bindLimit(c)
	if err != nil {
		return h.respondWithError(c, err, nil)
	}
	history, err := h.svc.WeatherHistory(c.Request().Context(), limit)
	if err != nil {
		return h.respondWithError(c, err, nil)
	}
	return respond(c, history)
}

// DataSources handles GET /api/sources.
func (h *Handler) DataSources(c echo.Context) error {
	sources, err := h.svc.DataSources(c.Request().Context())
	if err != nil {
		return h.respondWithError(c, err, nil)
	}
	return respond(c, sources)
}

func bindLimit(c echo.Context) (int, error) {
	limit := defaultListLimit
	if err := echo.QueryParamsBinder(c).Int("limit", &limit).BindError(); err != nil {
		return 0, fmt.Errorf("%w: limit must be an integer", models.ErrValidation)
	}
	if limit < 0 {
		return 0, fmt.Errorf("%w: limit must not be negative", models.ErrValidation)
	}
	return limit, nil
}
