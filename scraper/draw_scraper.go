// backend/scraper/draw_scraper.go
package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/gewnthar/lottometeo/backend/config"
	"github.com/gewnthar/lottometeo/backend/models"
	"github.com/gewnthar/lottometeo/backend/observability"
)

const (
	// DefaultRowSelector matches one draw row on the 4x20 archive page.
	DefaultRowSelector = ".content-main__circ-render-table-row"
	// fallbackRowSelector is used when the configured selector matches nothing.
	fallbackRowSelector = `[class*="draw"], tr, div[class*="row"]`
)

// Row drop reasons, also used as metric labels.
const (
	ReasonNoID          = "no_id"
	ReasonNoDate        = "no_date"
	ReasonTooFewNumbers = "too_few_numbers"
	ReasonInvalid       = "invalid"
	ReasonWrapper       = "wrapper"
)

// ParseError describes one archive row that did not yield a draw.
type ParseError struct {
	Row    int
	DrawID string
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.DrawID != "" {
		return fmt.Sprintf("row %d (draw %s): %s: %v", e.Row, e.DrawID, e.Reason, e.Err)
	}
	return fmt.Sprintf("row %d: %s: %v", e.Row, e.Reason, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ExtractResult is the outcome of extracting draws from one archive document.
type ExtractResult struct {
	Draws      []models.DrawRecord
	RowsSeen   int
	Duplicates int
	Problems   []*ParseError
}

// Fetcher retrieves the archive page. The default HTTPFetcher parses the HTML as
// served; a rendering fetcher can be substituted.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (io.ReadCloser, error)
}

// HTTPFetcher is a plain GET fetcher.
type HTTPFetcher struct {
	Client    *http.Client
	UserAgent string
}

// Fetch returns the response body. Every error wraps models.ErrFetch.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request for %s: %v", models.ErrFetch, url, err)
	}
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}
	req.Header.Set("Accept-Language", "ru-RU,ru;q=0.9")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %v", models.ErrFetch, url, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: get %s: status code %d", models.ErrFetch, url, resp.StatusCode)
	}
	return resp.Body, nil
}

// DrawScraper extracts draw records from the lottery archive page.
type DrawScraper struct {
	fetcher     Fetcher
	url         string
	rowSelector string
	logger      *zap.Logger
	metrics     *observability.Metrics
}

// NewDrawScraper builds a scraper that fetches over HTTP.
func NewDrawScraper(cfg config.LotteryConfig, logger *zap.Logger, metrics *observability.Metrics) *DrawScraper {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	fetcher := &HTTPFetcher{
		Client:    &http.Client{Timeout: timeout},
		UserAgent: "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36",
	}
	return NewDrawScraperWithFetcher(fetcher, cfg.URL, cfg.RowSelector, logger, metrics)
}

// NewDrawScraperWithFetcher builds a scraper around any Fetcher.
func NewDrawScraperWithFetcher(fetcher Fetcher, url, rowSelector string, logger *zap.Logger, metrics *observability.Metrics) *DrawScraper {
	if rowSelector == "" {
		rowSelector = DefaultRowSelector
	}
	return &DrawScraper{
		fetcher:     fetcher,
		url:         url,
		rowSelector: rowSelector,
		logger:      logger.Named("scraper"),
		metrics:     metrics,
	}
}

// Scrape fetches the archive page and extracts its draws. It fails only when the page
// cannot be fetched or parsed at all; bad rows are reported in the result.
func (s *DrawScraper) Scrape(ctx context.Context) (*ExtractResult, error) {
	s.logger.Info("scraping draw archive", zap.String("url", s.url))

	body, err := s.fetcher.Fetch(ctx, s.url)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("%w: parse HTML from %s: %v", models.ErrFetch, s.url, err)
	}

	result := ExtractDraws(doc, s.rowSelector)
	for _, p := range result.Problems {
		s.metrics.RowsDropped.WithLabelValues(p.Reason).Inc()
		s.logger.Debug("dropped archive row", zap.Int("row", p.Row), zap.String("draw_id", p.DrawID),
			zap.String("reason", p.Reason), zap.Error(p.Err))
	}
	if result.Duplicates > 0 {
		s.metrics.RowsDropped.WithLabelValues("duplicate").Add(float64(result.Duplicates))
	}

	s.logger.Info("draw archive scraped",
		zap.Int("rows", result.RowsSeen),
		zap.Int("draws", len(result.Draws)),
		zap.Int("duplicates", result.Duplicates),
		zap.Int("dropped", len(result.Problems)))
	return result, nil
}

// ExtractDraws turns archive rows into validated draws, keeping the first occurrence
// of each draw id. It does no I/O.
func ExtractDraws(doc *goquery.Document, rowSelector string) *ExtractResult {
	if rowSelector == "" {
		rowSelector = DefaultRowSelector
	}
	rows := doc.Find(rowSelector)
	nested := rowSelector
	if rows.Length() == 0 {
		rows = doc.Find(fallbackRowSelector)
		// the fallback also matches table cells, so nesting says nothing there
		nested = ""
	}

	result := &ExtractResult{}
	seen := make(map[string]bool)
	rows.Each(func(i int, row *goquery.Selection) {
		if strings.TrimSpace(row.Text()) == "" {
			return
		}
		result.RowsSeen++

		if spansSeveralDraws(row, nested) {
			result.Problems = append(result.Problems, &ParseError{Row: i, Reason: ReasonWrapper,
				Err: fmt.Errorf("%w: row spans several draws", models.ErrExtraction)})
			return
		}

		draw, perr := extractRow(i, row)
		if perr != nil {
			result.Problems = append(result.Problems, perr)
			return
		}
		if seen[draw.DrawID] {
			result.Duplicates++
			return
		}
		seen[draw.DrawID] = true
		result.Draws = append(result.Draws, draw)
	})
	return result
}

func extractRow(i int, row *goquery.Selection) (models.DrawRecord, *ParseError) {
	id, ok := extractDrawID(row)
	if !ok {
		return models.DrawRecord{}, &ParseError{Row: i, Reason: ReasonNoID,
			Err: fmt.Errorf("%w: no draw id in row", models.ErrExtraction)}
	}

	date, clock, ok := extractDateTime(row.Text())
	if !ok {
		return models.DrawRecord{}, &ParseError{Row: i, DrawID: id, Reason: ReasonNoDate,
			Err: fmt.Errorf("%w: no draw date in row", models.ErrExtraction)}
	}

	numbers, strategy, ok := extractNumbers(row)
	if ok {
		numbers = distinctSorted(numbers)
	}
	if len(numbers) < models.NumbersPerDraw {
		return models.DrawRecord{}, &ParseError{Row: i, DrawID: id, Reason: ReasonTooFewNumbers,
			Err: fmt.Errorf("%w: found %d distinct numbers, need %d", models.ErrExtraction, len(numbers), models.NumbersPerDraw)}
	}
	numbers = numbers[:models.NumbersPerDraw]

	draw := models.DrawRecord{
		DrawID: id,
		Date:   date,
		Time:   clock,
		Field1: append([]int(nil), numbers[:models.NumbersPerField]...),
		Field2: append([]int(nil), numbers[models.NumbersPerField:]...),
	}
	if err := models.ValidateDraw(draw); err != nil {
		return models.DrawRecord{}, &ParseError{Row: i, DrawID: id, Reason: ReasonInvalid,
			Err: fmt.Errorf("%s strategy: %w", strategy, err)}
	}
	return draw, nil
}
