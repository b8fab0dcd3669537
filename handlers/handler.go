// backend/handlers/handler.go
package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/gewnthar/lottometeo/backend/models"
)

// LottoAPI is the service surface the HTTP layer calls. *services.LottoService implements it.
type LottoAPI interface {
	Health(ctx context.Context) models.HealthStatus
	ListDraws(ctx context.Context, limit int) ([]models.DrawRecord, error)
	ExportDrawsCSV(ctx context.Context, w io.Writer) error
	ImportDrawsCSV(ctx context.Context, r io.Reader) (*models.ImportSummary, error)
	BackfillArchive(ctx context.Context) (*models.ImportSummary, error)
	DataSources(ctx context.Context) ([]models.DataSourceStatus, error)
	FrequencyStats(ctx context.Context) (models.FrequencyStats, error)
	Predict(ctx context.Context, filter models.PredictionFilter) (models.Prediction, error)
	Conditions(ctx context.Context) ([]models.ConditionBucket, error)
	LatestWeather(ctx context.Context) (*models.WeatherObservation, error)
	WeatherHistory(ctx context.Context, limit int) ([]models.WeatherObservation, error)
	ScrapeDraws(ctx context.Context) (*models.ScrapeSummary, error)
	CollectWeather(ctx context.Context) (*models.WeatherCollection, error)
	CollectCombined(ctx context.Context) (*models.CombinedRun, error)
	ResetAll(ctx context.Context) error
}

// Handler holds shared dependencies used by all route handlers.
type Handler struct {
	svc         LottoAPI
	adminSecret []byte
	logger      *zap.Logger
}

// New creates a Handler. An empty adminSecret leaves the admin routes open.
func New(svc LottoAPI, adminSecret []byte, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, adminSecret: adminSecret, logger: logger.Named("http")}
}

// Register mounts every route on e.
func (h *Handler) Register(e *echo.Echo) {
	api := e.Group("/api")
	api.GET("/health", h.Health)
	api.GET("/draws", h.ListDraws)
	api.GET("/draws/export.csv", h.ExportDraws)
	api.GET("/stats/frequency", h.Frequency)
	api.GET("/stats/predict", h.Predict)
	api.GET("/stats/conditions", h.Conditions)
	api.GET("/weather", h.WeatherHistory)
	api.GET("/weather/latest", h.LatestWeather)
	api.GET("/sources", h.DataSources)

	admin := api.Group("/admin", AdminAuth(h.adminSecret))
	admin.POST("/scrape", h.Scrape)
	admin.POST("/weather", h.CollectWeather)
	admin.POST("/collect", h.Collect)
	admin.POST("/import", h.Import)
	admin.POST("/backfill", h.Backfill)
	admin.POST("/reset", h.Reset)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

func respond(c echo.Context, data any) error {
	return c.JSON(http.StatusOK, models.APIResponse{Success: true, Data: data})
}

// respondWithError renders a structured failure. Missing data is not an HTTP error:
// it is reported with success=false and reason no_data alongside whatever partial
// data the caller produced.
func (h *Handler) respondWithError(c echo.Context, err error, data any) error {
	reason := models.FailureReason(err)
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("path", c.Path()), zap.String("reason", reason), zap.Error(err))
	} else {
		h.logger.Debug("request returned no result", zap.String("path", c.Path()), zap.String("reason", reason), zap.Error(err))
	}
	return c.JSON(code, models.APIResponse{
		Success: false,
		Data:    data,
		Message: err.Error(),
		Reason:  reason,
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrStoreUnreachable), errors.Is(err, models.ErrNoSchema):
		return http.StatusServiceUnavailable
	case errors.Is(err, models.ErrStore):
		return http.StatusInternalServerError
	case errors.Is(err, models.ErrNoData):
		return http.StatusOK
	case errors.Is(err, models.ErrFetch):
		return http.StatusBadGateway
	case errors.Is(err, models.ErrValidation), errors.Is(err, models.ErrExtraction):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
