// backend/services/lotto_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/gewnthar/lottometeo/backend/events"
	"github.com/gewnthar/lottometeo/backend/models"
	"github.com/gewnthar/lottometeo/backend/observability"
	"github.com/gewnthar/lottometeo/backend/scraper"
	"github.com/gewnthar/lottometeo/backend/stats"
)

// maxReportedProblems caps the per-row problems echoed back in a summary.
const maxReportedProblems = 20

// Store is the persistence the service needs. *database.Store implements it.
type Store interface {
	Ping(ctx context.Context) error
	UpsertDraws(ctx context.Context, draws []models.DrawRecord) (int, error)
	ListDraws(ctx context.Context, limit int) ([]models.DrawRecord, error)
	ListDrawsWithWeather(ctx context.Context) ([]models.DrawRecord, error)
	CountDraws(ctx context.Context) (int, error)
	LinkWeatherToRecentDraws(ctx context.Context, obs models.WeatherObservation, n int) (int64, error)
	InsertWeather(ctx context.Context, obs *models.WeatherObservation) (bool, error)
	ListWeather(ctx context.Context, limit int) ([]models.WeatherObservation, error)
	LatestWeather(ctx context.Context) (*models.WeatherObservation, error)
	CorrelationSnapshot(ctx context.Context) ([]models.DrawRecord, []models.WeatherObservation, error)
	ResetAll(ctx context.Context) error
	RecordSourceRun(ctx context.Context, run models.DataSourceStatus) error
	ListDataSources(ctx context.Context) ([]models.DataSourceStatus, error)
}

// DrawSource yields draws from the lottery archive. *scraper.DrawScraper implements it.
type DrawSource interface {
	Scrape(ctx context.Context) (*scraper.ExtractResult, error)
}

// WeatherSource always returns an observation, possibly a fallback one.
// *weather.Client implements it.
type WeatherSource interface {
	Fetch(ctx context.Context) models.WeatherObservation
}

// ArchiveSource downloads a CSV export of past draws. *scraper.DrawScraper implements it.
type ArchiveSource interface {
	DownloadArchiveCSV(ctx context.Context, url string) ([]models.DrawRecord, []*scraper.ParseError, error)
}

// LottoService owns ingestion and the read-side statistics. It is constructed once
// and shared by the scheduler and the HTTP handlers.
type LottoService struct {
	store      Store
	draws      DrawSource
	weather    WeatherSource
	archive    ArchiveSource
	archiveURL string
	publisher  events.Publisher
	publishing bool
	predictor  *stats.Predictor
	linkRecent int
	clock      clockwork.Clock
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewLottoService wires the service. linkRecent is how many of the newest draws
// receive each real weather observation.
func NewLottoService(store Store, draws DrawSource, weather WeatherSource, publisher events.Publisher,
	predictor *stats.Predictor, linkRecent int, metrics *observability.Metrics, logger *zap.Logger) *LottoService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	_, nop := publisher.(events.Nop)
	return &LottoService{
		store:      store,
		draws:      draws,
		weather:    weather,
		publisher:  publisher,
		publishing: !nop,
		predictor:  predictor,
		linkRecent: linkRecent,
		clock:      clockwork.NewRealClock(),
		metrics:    metrics,
		logger:     logger.Named("service"),
	}
}

// WithArchive enables BackfillArchive from the CSV export at url.
func (s *LottoService) WithArchive(src ArchiveSource, url string) *LottoService {
	s.archive = src
	s.archiveURL = url
	return s
}

// WithClock replaces the clock used to stamp source runs.
func (s *LottoService) WithClock(clock clockwork.Clock) *LottoService {
	s.clock = clock
	return s
}

// ScrapeDraws runs one scrape cycle and upserts what it extracted.
func (s *LottoService) ScrapeDraws(ctx context.Context) (*models.ScrapeSummary, error) {
	result, err := s.draws.Scrape(ctx)
	if err != nil {
		s.metrics.ScrapeRuns.WithLabelValues(models.OutcomeFetchError).Inc()
		s.recordSource(ctx, models.DataSourceStatus{SourceName: models.SourceArchivePage, LastOutcome: models.OutcomeFetchError})
		return nil, fmt.Errorf("scrape draws: %w", err)
	}

	summary := &models.ScrapeSummary{
		RowsSeen:   result.RowsSeen,
		Extracted:  len(result.Draws),
		Duplicates: result.Duplicates,
		Dropped:    len(result.Problems),
	}
	for i, p := range result.Problems {
		if i == maxReportedProblems {
			break
		}
		summary.Problems = append(summary.Problems, p.Error())
	}
	if len(result.Draws) == 0 {
		s.logger.Warn("no draws extracted from archive", zap.Int("rows", result.RowsSeen))
		s.metrics.ScrapeRuns.WithLabelValues(models.OutcomeSuccess).Inc()
		s.recordSource(ctx, scrapeRun(summary, models.OutcomeSuccess))
		return summary, nil
	}

	saved, err := s.store.UpsertDraws(ctx, result.Draws)
	if err != nil {
		s.metrics.ScrapeRuns.WithLabelValues(models.OutcomeStoreError).Inc()
		s.recordSource(ctx, scrapeRun(summary, models.OutcomeStoreError))
		return summary, fmt.Errorf("save scraped draws: %w", err)
	}
	summary.Saved = saved
	latest := result.Draws[0]
	summary.Latest = &latest

	s.metrics.ScrapeRuns.WithLabelValues(models.OutcomeSuccess).Inc()
	s.recordSource(ctx, scrapeRun(summary, models.OutcomeSuccess))
	s.metrics.DrawsUpserted.Add(float64(saved))
	s.publishDraws(ctx, result.Draws)

	s.logger.Info("scrape cycle finished",
		zap.Int("extracted", summary.Extracted),
		zap.Int("saved", saved),
		zap.String("latest_draw", latest.DrawID))
	return summary, nil
}

// CollectWeather fetches an observation, stores it when it is real and links it to
// the most recent draws.
func (s *LottoService) CollectWeather(ctx context.Context) (*models.WeatherCollection, error) {
	obs := s.weather.Fetch(ctx)
	source, outcome := "live", models.OutcomeSuccess
	if obs.IsFallback {
		source, outcome = "fallback", models.OutcomeFallback
	}
	s.metrics.WeatherCollections.WithLabelValues(source).Inc()

	collection := &models.WeatherCollection{Observation: obs}
	saved, err := s.SaveWeather(ctx, &obs)
	if err != nil {
		s.recordSource(ctx, models.DataSourceStatus{SourceName: models.SourceWeatherAPI, LastOutcome: models.OutcomeStoreError, RowsSeen: 1})
		return collection, err
	}
	run := models.DataSourceStatus{SourceName: models.SourceWeatherAPI, LastOutcome: outcome, RowsSeen: 1}
	if saved {
		run.Saved = 1
	}
	s.recordSource(ctx, run)
	collection.Observation = obs
	collection.Saved = saved
	if !saved {
		return collection, nil
	}

	linked, err := s.LinkToRecentDraws(ctx, obs)
	if err != nil {
		return collection, err
	}
	collection.LinkedDraws = linked

	s.publishWeather(ctx, obs)
	return collection, nil
}

// SaveWeather appends a real observation to history. Fallback observations are
// refused with false and no error.
func (s *LottoService) SaveWeather(ctx context.Context, obs *models.WeatherObservation) (bool, error) {
	saved, err := s.store.InsertWeather(ctx, obs)
	if err != nil {
		return false, fmt.Errorf("save weather: %w", err)
	}
	if saved {
		s.metrics.WeatherSaved.Inc()
	}
	return saved, nil
}

// LinkToRecentDraws attaches the observation to the configured number of newest draws.
func (s *LottoService) LinkToRecentDraws(ctx context.Context, obs models.WeatherObservation) (int64, error) {
	n, err := s.store.LinkWeatherToRecentDraws(ctx, obs, s.linkRecent)
	if err != nil {
		return 0, fmt.Errorf("link weather: %w", err)
	}
	s.metrics.DrawsLinked.Add(float64(n))
	return n, nil
}

// CollectCombined collects weather before scraping so the link step has fresh data,
// then links again so draws saved by the scrape get the same snapshot. A weather
// failure does not prevent the scrape.
func (s *LottoService) CollectCombined(ctx context.Context) (*models.CombinedRun, error) {
	run := &models.CombinedRun{}
	var errs []error

	collection, err := s.CollectWeather(ctx)
	run.Weather = collection
	if err != nil {
		s.logger.Error("weather step of combined collection failed", zap.Error(err))
		errs = append(errs, err)
	}

	summary, err := s.ScrapeDraws(ctx)
	run.Scrape = summary
	if err != nil {
		errs = append(errs, err)
	}

	if err == nil && summary.Saved > 0 && collection != nil && collection.Saved {
		n, err := s.LinkToRecentDraws(ctx, collection.Observation)
		if err != nil {
			errs = append(errs, err)
		}
		run.RelinkedDraws = n
	}
	return run, errors.Join(errs...)
}

// RunCombined is the scheduler entry point for combined slots.
func (s *LottoService) RunCombined(ctx context.Context) error {
	_, err := s.CollectCombined(ctx)
	return err
}

// RunWeather is the scheduler entry point for weather-only slots.
func (s *LottoService) RunWeather(ctx context.Context) error {
	_, err := s.CollectWeather(ctx)
	return err
}

// ListDraws returns stored draws newest first. limit <= 0 returns all of them.
func (s *LottoService) ListDraws(ctx context.Context, limit int) ([]models.DrawRecord, error) {
	draws, err := s.store.ListDraws(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list draws: %w", err)
	}
	if draws == nil {
		draws = []models.DrawRecord{}
	}
	return draws, nil
}

// FrequencyStats computes per-number frequencies over every stored draw.
func (s *LottoService) FrequencyStats(ctx context.Context) (models.FrequencyStats, error) {
	draws, err := s.store.ListDraws(ctx, 0)
	if err != nil {
		return models.FrequencyStats{}, fmt.Errorf("frequency stats: %w", err)
	}
	return stats.Frequency(draws)
}

// Predict recommends numbers from the draws whose day matches the weather filter.
func (s *LottoService) Predict(ctx context.Context, filter models.PredictionFilter) (models.Prediction, error) {
	draws, observations, err := s.store.CorrelationSnapshot(ctx)
	if err != nil {
		return models.Prediction{Filter: filter}, fmt.Errorf("predict: %w", err)
	}
	return s.predictor.Predict(draws, observations, filter)
}

// Conditions groups weather-linked draws by weather, temperature and pressure band.
func (s *LottoService) Conditions(ctx context.Context) ([]models.ConditionBucket, error) {
	draws, err := s.store.ListDrawsWithWeather(ctx)
	if err != nil {
		return nil, fmt.Errorf("conditions: %w", err)
	}
	return stats.Conditions(draws)
}

// LatestWeather returns the newest stored observation.
func (s *LottoService) LatestWeather(ctx context.Context) (*models.WeatherObservation, error) {
	obs, err := s.store.LatestWeather(ctx)
	if err != nil {
		return nil, fmt.Errorf("latest weather: %w", err)
	}
	if obs == nil {
		return nil, fmt.Errorf("%w: no weather observations stored", models.ErrNoData)
	}
	return obs, nil
}

// WeatherHistory returns stored observations, newest first.
func (s *LottoService) WeatherHistory(ctx context.Context, limit int) ([]models.WeatherObservation, error) {
	history, err := s.store.ListWeather(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("weather history: %w", err)
	}
	if history == nil {
		history = []models.WeatherObservation{}
	}
	return history, nil
}

// ExportDrawsCSV writes every stored draw as CSV.
func (s *LottoService) ExportDrawsCSV(ctx context.Context, w io.Writer) error {
	draws, err := s.store.ListDraws(ctx, 0)
	if err != nil {
		return fmt.Errorf("export draws: %w", err)
	}
	return scraper.WriteDrawsCSV(w, draws)
}

// ImportDrawsCSV backfills draws from an archive CSV. Invalid rows are reported,
// valid ones are upserted.
func (s *LottoService) ImportDrawsCSV(ctx context.Context, r io.Reader) (*models.ImportSummary, error) {
	draws, problems, err := scraper.ParseDrawsCSV(r)
	if err != nil {
		return nil, fmt.Errorf("import draws: %w", err)
	}
	return s.importDraws(ctx, models.SourceCSVUpload, "", draws, problems)
}

// BackfillArchive downloads the configured archive CSV export and upserts it.
func (s *LottoService) BackfillArchive(ctx context.Context) (*models.ImportSummary, error) {
	if s.archive == nil || s.archiveURL == "" {
		return nil, fmt.Errorf("%w: archive CSV backfill is not configured", models.ErrValidation)
	}
	draws, problems, err := s.archive.DownloadArchiveCSV(ctx, s.archiveURL)
	if err != nil {
		s.recordSource(ctx, models.DataSourceStatus{SourceName: models.SourceArchiveCSV, SourceURL: s.archiveURL, LastOutcome: models.OutcomeFetchError})
		return nil, fmt.Errorf("backfill archive: %w", err)
	}
	return s.importDraws(ctx, models.SourceArchiveCSV, s.archiveURL, draws, problems)
}

func (s *LottoService) importDraws(ctx context.Context, source, url string, draws []models.DrawRecord, problems []*scraper.ParseError) (*models.ImportSummary, error) {
	summary := &models.ImportSummary{Rows: len(draws) + len(problems), Rejected: len(problems)}
	for i, p := range problems {
		if i == maxReportedProblems {
			break
		}
		summary.Problems = append(summary.Problems, p.Error())
	}
	run := models.DataSourceStatus{SourceName: source, SourceURL: url, LastOutcome: models.OutcomeSuccess,
		RowsSeen: summary.Rows, Dropped: summary.Rejected}
	if len(draws) == 0 {
		s.recordSource(ctx, run)
		return summary, nil
	}

	saved, err := s.store.UpsertDraws(ctx, draws)
	if err != nil {
		run.LastOutcome = models.OutcomeStoreError
		s.recordSource(ctx, run)
		return summary, fmt.Errorf("import draws: %w", err)
	}
	summary.Saved = saved
	run.Saved = saved
	s.recordSource(ctx, run)
	s.metrics.DrawsUpserted.Add(float64(saved))
	s.publishDraws(ctx, draws)
	s.logger.Info("draws imported", zap.String("source", source), zap.Int("saved", saved), zap.Int("rejected", summary.Rejected))
	return summary, nil
}

// DataSources reports the last run of every ingestion source.
func (s *LottoService) DataSources(ctx context.Context) ([]models.DataSourceStatus, error) {
	sources, err := s.store.ListDataSources(ctx)
	if err != nil {
		return nil, fmt.Errorf("data sources: %w", err)
	}
	if sources == nil {
		sources = []models.DataSourceStatus{}
	}
	return sources, nil
}

// ResetAll deletes every draw and observation.
func (s *LottoService) ResetAll(ctx context.Context) error {
	if err := s.store.ResetAll(ctx); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	return nil
}

// Health reports store reachability and a few counters.
func (s *LottoService) Health(ctx context.Context) models.HealthStatus {
	status := models.HealthStatus{Status: "ok", Database: "up"}
	if err := s.store.Ping(ctx); err != nil {
		status.Status = "degraded"
		status.Database = "down"
		status.Reason = models.FailureReason(err)
		return status
	}
	n, err := s.store.CountDraws(ctx)
	if err != nil {
		status.Status = "degraded"
		status.Reason = models.FailureReason(err)
		return status
	}
	status.Draws = n
	if obs, err := s.store.LatestWeather(ctx); err == nil && obs != nil {
		ts := obs.Timestamp
		status.LatestWeather = &ts
	}
	return status
}

// recordSource stamps and stores a source run. Failures are logged, not returned.
func (s *LottoService) recordSource(ctx context.Context, run models.DataSourceStatus) {
	run.LastCheckedAt = s.clock.Now().UTC()
	if err := s.store.RecordSourceRun(ctx, run); err != nil {
		s.logger.Warn("failed to record source run", zap.String("source", run.SourceName), zap.Error(err))
	}
}

func scrapeRun(summary *models.ScrapeSummary, outcome string) models.DataSourceStatus {
	return models.DataSourceStatus{
		SourceName:  models.SourceArchivePage,
		LastOutcome: outcome,
		RowsSeen:    summary.RowsSeen,
		Saved:       summary.Saved,
		Dropped:     summary.Dropped + summary.Duplicates,
	}
}

func (s *LottoService) publishDraws(ctx context.Context, draws []models.DrawRecord) {
	if !s.publishing {
		return
	}
	if err := s.publisher.PublishDraws(ctx, draws); err != nil {
		s.publishFailed(err)
		return
	}
	s.metrics.EventsPublished.Add(float64(len(draws)))
}

func (s *LottoService) publishWeather(ctx context.Context, obs models.WeatherObservation) {
	if !s.publishing {
		return
	}
	if err := s.publisher.PublishWeather(ctx, obs); err != nil {
		s.publishFailed(err)
		return
	}
	s.metrics.EventsPublished.Inc()
}

func (s *LottoService) publishFailed(err error) {
	s.metrics.PublishErrors.Inc()
	s.logger.Warn("failed to publish event", zap.Error(err))
}
