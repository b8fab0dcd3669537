// backend/scraper/csv_downloader.go
package scraper

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/gewnthar/lottometeo/backend/models"
)

// DownloadArchiveCSV fetches a CSV export of past draws with the scraper's fetcher
// and parses it. Rows that fail validation come back as problems.
func (s *DrawScraper) DownloadArchiveCSV(ctx context.Context, url string) ([]models.DrawRecord, []*ParseError, error) {
	if url == "" {
		return nil, nil, fmt.Errorf("%w: archive CSV url is not configured", models.ErrValidation)
	}
	s.logger.Info("downloading archive CSV", zap.String("url", url))

	body, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, nil, err
	}
	defer body.Close()

	draws, problems, err := ParseDrawsCSV(body)
	if err != nil {
		return nil, nil, fmt.Errorf("archive CSV from %s: %w", url, err)
	}
	for _, p := range problems {
		s.metrics.RowsDropped.WithLabelValues(p.Reason).Inc()
	}

	s.logger.Info("archive CSV downloaded",
		zap.Int("draws", len(draws)),
		zap.Int("dropped", len(problems)))
	return draws, problems, nil
}
