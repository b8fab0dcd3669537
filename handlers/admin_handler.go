// backend/handlers/admin_handler.go
package handlers

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/gewnthar/lottometeo/backend/models"
)

// maxImportBytes bounds a CSV upload.
const maxImportBytes = 16 << 20

// Scrape handles POST /api/admin/scrape: one scrape cycle outside the schedule.
func (h *Handler) Scrape(c echo.Context) error {
	summary, err := h.svc.ScrapeDraws(c.Request().Context())
	if err != nil {
		return h.respondWithError(c, err, summary)
	}
	h.logger.Info("manual scrape finished", zap.Int("saved", summary.Saved))
	return respond(c, summary)
}

// CollectWeather handles POST /api/admin/weather.
func (h *Handler) CollectWeather(c echo.Context) error {
	collection, err := h.svc.CollectWeather(c.Request().Context())
	if err != nil {
		return h.respondWithError(c, err, collection)
	}
	return respond(c, collection)
}

// Collect handles POST /api/admin/collect: the same combined run the scheduler performs.
func (h *Handler) Collect(c echo.Context) error {
	run, err := h.svc.CollectCombined(c.Request().Context())
	if err != nil {
		return h.respondWithError(c, err, run)
	}
	return respond(c, run)
}

// Import handles POST /api/admin/import. The CSV is read from a multipart "file"
// field when present, otherwise from the raw request body.
func (h *Handler) Import(c echo.Context) error {
	body, err := importBody(c)
	if err != nil {
		return h.respondWithError(c, err, nil)
	}

	summary, err := h.svc.ImportDrawsCSV(c.Request().Context(), bytes.NewReader(body))
	if err != nil {
		return h.respondWithError(c, err, summary)
	}
	return respond(c, summary)
}

// Backfill handles POST /api/admin/backfill: import the configured archive CSV export.
func (h *Handler) Backfill(c echo.Context) error {
	summary, err := h.svc.BackfillArchive(c.Request().Context())
	if err != nil {
		return h.respondWithError(c, err, summary)
	}
	return respond(c, summary)
}

// Reset handles POST /api/admin/reset?confirm=yes.
func (h *Handler) Reset(c echo.Context) error {
	if c.QueryParam("confirm") != "yes" {
		return h.respondWithError(c, fmt.Errorf("%w: reset requires confirm=yes", models.ErrValidation), nil)
	}
	if err := h.svc.ResetAll(c.Request().Context()); err != nil {
		return h.respondWithError(c, err, nil)
	}
	return c.JSON(http.StatusOK, models.APIResponse{Success: true, Message: "all draws and weather history deleted"})
}

// importBody reads the whole upload. Anything over maxImportBytes is rejected rather
// than truncated, so a partial archive is never imported.
func importBody(c echo.Context) ([]byte, error) {
	var src io.Reader = c.Request().Body
	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		fh, err := c.FormFile("file")
		if err != nil {
			return nil, fmt.Errorf("%w: multipart upload needs a \"file\" field", models.ErrValidation)
		}
		if fh.Size > maxImportBytes {
			return nil, tooLarge()
		}
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: open upload: %v", models.ErrValidation, err)
		}
		defer f.Close()
		src = f
	}

	body, err := io.ReadAll(io.LimitReader(src, maxImportBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read upload: %v", models.ErrValidation, err)
	}
	if len(body) > maxImportBytes {
		return nil, tooLarge()
	}
	return body, nil
}

func tooLarge() error {
	return fmt.Errorf("%w: upload exceeds %d MiB", models.ErrValidation, maxImportBytes>>20)
}
