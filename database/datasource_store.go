// backend/database/datasource_store.go
package database

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/gewnthar/lottometeo/backend/models"
)

// RecordSourceRun inserts or updates the status row for one ingestion source.
// last_success_at only moves forward on a successful run.
func (s *Store) RecordSourceRun(ctx context.Context, run models.DataSourceStatus) error {
	var lastSuccess sql.NullTime
	if run.LastOutcome == models.OutcomeSuccess {
		lastSuccess = sql.NullTime{Time: run.LastCheckedAt, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO data_sources (
			source_name, source_url, last_outcome, last_checked_at,
			last_success_at, rows_seen, saved, dropped, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, NOW())
		ON DUPLICATE KEY UPDATE
			source_url = VALUES(source_url),
			last_outcome = VALUES(last_outcome),
			last_checked_at = VALUES(last_checked_at),
			last_success_at = COALESCE(VALUES(last_success_at), last_success_at),
			rows_seen = VALUES(rows_seen),
			saved = VALUES(saved),
			dropped = VALUES(dropped),
			updated_at = NOW()`,
		run.SourceName, run.SourceURL, run.LastOutcome, run.LastCheckedAt,
		lastSuccess, run.RowsSeen, run.Saved, run.Dropped,
	)
	if err != nil {
		return classify("record source run "+run.SourceName, err)
	}
	s.logger.Debug("source run recorded", zap.String("source", run.SourceName), zap.String("outcome", run.LastOutcome))
	return nil
}

// ListDataSources returns every tracked source ordered by name.
func (s *Store) ListDataSources(ctx context.Context) ([]models.DataSourceStatus, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT source_name, source_url, last_outcome, last_checked_at,
		       last_success_at, rows_seen, saved, dropped, updated_at
		FROM data_sources
		ORDER BY source_name`)
	if err != nil {
		return nil, classify("list data sources", err)
	}
	defer rows.Close()

	var sources []models.DataSourceStatus
	for rows.Next() {
		var (
			v           models.DataSourceStatus
			lastSuccess sql.NullTime
		)
		if err := rows.Scan(&v.SourceName, &v.SourceURL, &v.LastOutcome, &v.LastCheckedAt,
			&lastSuccess, &v.RowsSeen, &v.Saved, &v.Dropped, &v.UpdatedAt); err != nil {
			s.logger.Warn("failed to scan data source row", zap.Error(err))
			continue
		}
		if lastSuccess.Valid {
			t := lastSuccess.Time
			v.LastSuccessAt = &t
		}
		sources = append(sources, v)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list data sources", err)
	}
	return sources, nil
}
