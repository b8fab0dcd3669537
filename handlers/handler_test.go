package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gewnthar/lottometeo/backend/models"
)

type fakeAPI struct {
	health     models.HealthStatus
	draws      []models.DrawRecord
	err        error
	prediction models.Prediction
	gotFilter  models.PredictionFilter
	gotLimit   int
	imported   string
	resets     int
}

func (f *fakeAPI) Health(context.Context) models.HealthStatus { return f.health }

func (f *fakeAPI) ListDraws(_ context.Context, limit int) ([]models.DrawRecord, error) {
	f.gotLimit = limit
	return f.draws, f.err
}

func (f *fakeAPI) ExportDrawsCSV(_ context.Context, w io.Writer) error {
	if f.err != nil {
		return f.err
	}
	_, err := io.WriteString(w, "draw_id,date\n1,01.01.2026\n")
	return err
}

func (f *fakeAPI) ImportDrawsCSV(_ context.Context, r io.Reader) (*models.ImportSummary, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	f.imported = string(b)
	return &models.ImportSummary{Rows: 1, Saved: 1}, f.err
}

func (f *fakeAPI) BackfillArchive(context.Context) (*models.ImportSummary, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.ImportSummary{Rows: 10, Saved: 9, Rejected: 1}, nil
}

func (f *fakeAPI) DataSources(context.Context) ([]models.DataSourceStatus, error) {
	return []models.DataSourceStatus{{SourceName: models.SourceArchivePage, LastOutcome: models.OutcomeSuccess}}, f.err
}

func (f *fakeAPI) FrequencyStats(context.Context) (models.FrequencyStats, error) {
	return models.FrequencyStats{TotalNumbers: 8}, f.err
}

func (f *fakeAPI) Predict(_ context.Context, filter models.PredictionFilter) (models.Prediction, error) {
	f.gotFilter = filter
	return f.prediction, f.err
}

func (f *fakeAPI) Conditions(context.Context) ([]models.ConditionBucket, error) {
	return []models.ConditionBucket{{Key: "snow_cold_low"}}, f.err
}

func (f *fakeAPI) LatestWeather(context.Context) (*models.WeatherObservation, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.WeatherObservation{City: "Moscow"}, nil
}

func (f *fakeAPI) WeatherHistory(_ context.Context, limit int) ([]models.WeatherObservation, error) {
	f.gotLimit = limit
	return []models.WeatherObservation{}, f.err
}

func (f *fakeAPI) ScrapeDraws(context.Context) (*models.ScrapeSummary, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.ScrapeSummary{Saved: 3}, nil
}

func (f *fakeAPI) CollectWeather(context.Context) (*models.WeatherCollection, error) {
	return &models.WeatherCollection{Saved: true}, f.err
}

func (f *fakeAPI) CollectCombined(context.Context) (*models.CombinedRun, error) {
	return &models.CombinedRun{RelinkedDraws: 2}, f.err
}

func (f *fakeAPI) ResetAll(context.Context) error {
	f.resets++
	return f.err
}

func newServer(api LottoAPI, secret string) *echo.Echo {
	e := echo.New()
	New(api, []byte(secret), zap.NewNop()).Register(e)
	return e
}

func do(t *testing.T, e *echo.Echo, req *http.Request) (*httptest.ResponseRecorder, models.APIResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	var body models.APIResponse
	if strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestListDraws(t *testing.T) {
	api := &fakeAPI{draws: []models.DrawRecord{{DrawID: "12346"}}}
	e := newServer(api, "")

	rec, body := do(t, e, httptest.NewRequest(http.MethodGet, "/api/draws?limit=5", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, body.Success)
	assert.Equal(t, 5, api.gotLimit)
	assert.Contains(t, rec.Body.String(), `"draw_id":"12346"`)

	_, _ = do(t, e, httptest.NewRequest(http.MethodGet, "/api/draws", nil))
	assert.Equal(t, defaultListLimit, api.gotLimit)
}

func TestListDraws_BadLimit(t *testing.T) {
	e := newServer(&fakeAPI{}, "")
	for _, q := range []string{"limit=abc", "limit=-1"} {
		t.Run(q, func(t *testing.T) {
			rec, body := do(t, e, httptest.NewRequest(http.MethodGet, "/api/draws?"+q, nil))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, models.ReasonValidation, body.Reason)
		})
	}
}

func TestStoreFailuresAreStructured(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   int
		reason string
	}{
		{"unreachable", fmt.Errorf("frequency stats: %w", models.ErrStoreUnreachable), http.StatusServiceUnavailable, models.ReasonStoreUnreachable},
		{"no schema", fmt.Errorf("frequency stats: %w", models.ErrNoSchema), http.StatusServiceUnavailable, models.ReasonNoSchema},
		{"store", fmt.Errorf("frequency stats: %w: deadlock", models.ErrStore), http.StatusInternalServerError, models.ReasonStoreFailure},
		{"no data", fmt.Errorf("%w: no draws stored", models.ErrNoData), http.StatusOK, models.ReasonNoData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newServer(&fakeAPI{err: tt.err}, "")
			rec, body := do(t, e, httptest.NewRequest(http.MethodGet, "/api/stats/frequency", nil))
			assert.Equal(t, tt.code, rec.Code)
			assert.False(t, body.Success)
			assert.Equal(t, tt.reason, body.Reason)
			assert.NotEmpty(t, body.Message)
		})
	}
}

func TestPredict_ParsesFilter(t *testing.T) {
	api := &fakeAPI{prediction: models.Prediction{HasData: true, MatchedDraws: 4}}
	e := newServer(api, "")

	rec, body := do(t, e, httptest.NewRequest(http.MethodGet,
		"/api/stats/predict?temp_min=-5&temp_max=2.5&pressure_min=740&description=%D1%81%D0%BD%D0%B5%D0%B3&wind_direction=north", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, body.Success)

	require.NotNil(t, api.gotFilter.TempMin)
	assert.Equal(t, -5.0, *api.gotFilter.TempMin)
	assert.Equal(t, 2.5, *api.gotFilter.TempMax)
	assert.Equal(t, 740.0, *api.gotFilter.PressureMin)
	assert.Nil(t, api.gotFilter.PressureMax)
	assert.Nil(t, api.gotFilter.HumidityMin)
	assert.Equal(t, "снег", api.gotFilter.Description)
	assert.Equal(t, "north", api.gotFilter.WindDirection)
}

func TestPredict_NoDataIsReportedNotFabricated(t *testing.T) {
	api := &fakeAPI{
		prediction: models.Prediction{HasData: false, Field1: []models.PredictedNumber{}, Field2: []models.PredictedNumber{}},
		err:        fmt.Errorf("%w: no draws match the weather filter", models.ErrNoData),
	}
	e := newServer(api, "")

	rec, body := do(t, e, httptest.NewRequest(http.MethodGet, "/api/stats/predict?temp_min=40", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, body.Success)
	assert.Equal(t, models.ReasonNoData, body.Reason)
	assert.Contains(t, rec.Body.String(), `"has_data":false`)
	assert.Contains(t, rec.Body.String(), `"field_1":[]`)
}

func TestPredict_BadNumber(t *testing.T) {
	e := newServer(&fakeAPI{}, "")
	rec, body := do(t, e, httptest.NewRequest(http.MethodGet, "/api/stats/predict?humidity_max=wet", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body.Message, "humidity_max")
}

func TestHealth(t *testing.T) {
	e := newServer(&fakeAPI{health: models.HealthStatus{Status: "ok", Database: "up", Draws: 7}}, "")
	rec, body := do(t, e, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, body.Success)

	e = newServer(&fakeAPI{health: models.HealthStatus{Status: "degraded", Database: "down", Reason: models.ReasonStoreUnreachable}}, "")
	rec, body = do(t, e, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, models.ReasonStoreUnreachable, body.Reason)
}

func TestExportDraws(t *testing.T) {
	e := newServer(&fakeAPI{}, "")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/draws/export.csv", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get(echo.HeaderContentType))
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), "draws.csv")
	assert.Equal(t, "draw_id,date\n1,01.01.2026\n", rec.Body.String())
}

func TestWeatherLatest(t *testing.T) {
	e := newServer(&fakeAPI{}, "")
	rec, body := do(t, e, httptest.NewRequest(http.MethodGet, "/api/weather/latest", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, body.Success)
	assert.Contains(t, rec.Body.String(), `"city":"Moscow"`)
}

func TestAdminRoutes_Open(t *testing.T) {
	api := &fakeAPI{}
	e := newServer(api, "")

	rec, body := do(t, e, httptest.NewRequest(http.MethodPost, "/api/admin/scrape", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, body.Success)

	rec, _ = do(t, e, httptest.NewRequest(http.MethodPost, "/api/admin/collect", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = do(t, e, httptest.NewRequest(http.MethodPost, "/api/admin/reset", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, api.resets)

	rec, _ = do(t, e, httptest.NewRequest(http.MethodPost, "/api/admin/reset?confirm=yes", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, api.resets)
}

func TestAdminScrape_FetchFailure(t *testing.T) {
	e := newServer(&fakeAPI{err: fmt.Errorf("scrape draws: %w: status 503", models.ErrFetch)}, "")
	rec, body := do(t, e, httptest.NewRequest(http.MethodPost, "/api/admin/scrape", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, models.ReasonFetchFailure, body.Reason)
}

func TestAdminAuth(t *testing.T) {
	const secret = "s3cret"
	now := time.Now()
	valid, err := IssueAdminToken([]byte(secret), time.Hour, now)
	require.NoError(t, err)
	expired, err := IssueAdminToken([]byte(secret), time.Minute, now.Add(-time.Hour))
	require.NoError(t, err)
	wrongKey, err := IssueAdminToken([]byte("other"), time.Hour, now)
	require.NoError(t, err)
	notAdmin, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "viewer"}).SignedString([]byte(secret))
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		code   int
		reason string
	}{
		{"missing", "", http.StatusUnauthorized, ReasonUnauthorized},
		{"bearer", "Bearer " + valid, http.StatusOK, ""},
		{"bare token", valid, http.StatusOK, ""},
		{"expired", "Bearer " + expired, http.StatusUnauthorized, ReasonUnauthorized},
		{"wrong key", "Bearer " + wrongKey, http.StatusUnauthorized, ReasonUnauthorized},
		{"not admin", "Bearer " + notAdmin, http.StatusForbidden, ReasonForbidden},
		{"garbage", "Bearer abc.def", http.StatusUnauthorized, ReasonUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newServer(&fakeAPI{}, secret)
			req := httptest.NewRequest(http.MethodPost, "/api/admin/weather", nil)
			if tt.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tt.header)
			}
			rec, body := do(t, e, req)
			assert.Equal(t, tt.code, rec.Code)
			assert.Equal(t, tt.code == http.StatusOK, body.Success)
			assert.Equal(t, tt.reason, body.Reason)
			if tt.reason != "" {
				assert.NotEmpty(t, body.Message)
			}
		})
	}

	// Read routes stay public.
	e := newServer(&fakeAPI{}, secret)
	rec, _ := do(t, e, httptest.NewRequest(http.MethodGet, "/api/stats/conditions", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestIssueAdminToken_EmptySecret(t *testing.T) {
	_, err := IssueAdminToken(nil, time.Hour, time.Now())
	assert.Error(t, err)
}

func TestImport_RawBody(t *testing.T) {
	api := &fakeAPI{}
	e := newServer(api, "")
	req := httptest.NewRequest(http.MethodPost, "/api/admin/import", strings.NewReader("draw_id,date\n"))
	req.Header.Set(echo.HeaderContentType, "text/csv")

	rec, body := do(t, e, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, body.Success)
	assert.Equal(t, "draw_id,date\n", api.imported)
}

func TestImport_Multipart(t *testing.T) {
	api := &fakeAPI{}
	e := newServer(api, "")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "draws.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte("draw_id,date,time\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/admin/import", &buf)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())

	rec, _ := do(t, e, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "draw_id,date,time\n", api.imported)

	req = httptest.NewRequest(http.MethodPost, "/api/admin/import", strings.NewReader(""))
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	rec, body := do(t, e, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, models.ReasonValidation, body.Reason)
}

func TestImport_RejectsOversizedUpload(t *testing.T) {
	api := &fakeAPI{}
	e := newServer(api, "")
	big := strings.Repeat("x", maxImportBytes+1)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/import", strings.NewReader(big))
	req.Header.Set(echo.HeaderContentType, "text/csv")
	rec, body := do(t, e, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, models.ReasonValidation, body.Reason)
	assert.Empty(t, api.imported)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "draws.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(big))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req = httptest.NewRequest(http.MethodPost, "/api/admin/import", &buf)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	rec, body = do(t, e, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, models.ReasonValidation, body.Reason)
	assert.Empty(t, api.imported)

	exact := strings.Repeat("y", maxImportBytes)
	req = httptest.NewRequest(http.MethodPost, "/api/admin/import", strings.NewReader(exact))
	req.Header.Set(echo.HeaderContentType, "text/csv")
	rec, _ = do(t, e, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, api.imported, maxImportBytes)
}

func TestMetricsRoute(t *testing.T) {
	e := newServer(&fakeAPI{}, "")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestBackfillAndSources(t *testing.T) {
	e := newServer(&fakeAPI{}, "")
	rec, body := do(t, e, httptest.NewRequest(http.MethodPost, "/api/admin/backfill", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, body.Success)
	assert.Contains(t, rec.Body.String(), `"saved":9`)

	rec, _ = do(t, e, httptest.NewRequest(http.MethodGet, "/api/sources", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"source_name":"archive_page"`)

	e = newServer(&fakeAPI{err: fmt.Errorf("%w: archive CSV backfill is not configured", models.ErrValidation)}, "")
	rec, body = do(t, e, httptest.NewRequest(http.MethodPost, "/api/admin/backfill", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, models.ReasonValidation, body.Reason)
}
