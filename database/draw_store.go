// backend/database/draw_store.go
package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/gewnthar/lottometeo/backend/models"
)

// newestFirst orders draws by published date, then time, then id. Dates and times are
// stored as text, so both are converted for ordering; "9:00" sorts before "22:00".
const newestFirst = `STR_TO_DATE(draw_date, '%d.%m.%Y') DESC, STR_TO_DATE(draw_time, '%H:%i') DESC, draw_id DESC`

const drawColumns = `draw_id, draw_date, draw_time, field_1, field_2, temperature, weather_description, pressure, created_at`

// UpsertDraws saves draws keyed by draw_id. Re-ingesting an id refreshes its scraped
// columns and keeps any weather snapshot already linked to it. Invalid records are
// skipped and logged. Returns the number of records written.
func (s *Store) UpsertDraws(ctx context.Context, draws []models.DrawRecord) (int, error) {
	if len(draws) == 0 {
		s.logger.Debug("no draws provided to save")
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, classify("begin draw upsert", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO draws (draw_id, draw_date, draw_time, field_1, field_2)
		VALUES (?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			draw_date = VALUES(draw_date),
			draw_time = VALUES(draw_time),
			field_1 = VALUES(field_1),
			field_2 = VALUES(field_2)
	`)
	if err != nil {
		return 0, classify("prepare draw upsert", err)
	}
	defer stmt.Close()

	saved := 0
	for _, d := range draws {
		if err := models.ValidateDraw(d); err != nil {
			s.logger.Warn("rejecting draw", zap.String("draw_id", d.DrawID), zap.Error(err))
			continue
		}
		f1, err := json.Marshal(d.Field1)
		if err != nil {
			return 0, fmt.Errorf("encode field_1 for draw %s: %w", d.DrawID, err)
		}
		f2, err := json.Marshal(d.Field2)
		if err != nil {
			return 0, fmt.Errorf("encode field_2 for draw %s: %w", d.DrawID, err)
		}
		if _, err := stmt.ExecContext(ctx, d.DrawID, d.Date, d.Time, string(f1), string(f2)); err != nil {
			return 0, classify(fmt.Sprintf("upsert draw %s", d.DrawID), err)
		}
		saved++
	}

	if err := tx.Commit(); err != nil {
		return 0, classify("commit draw upsert", err)
	}

	s.logger.Info("saved draws", zap.Int("saved", saved), zap.Int("offered", len(draws)))
	return saved, nil
}

// ListDraws returns draws with their weather snapshot, newest first. limit <= 0 means all.
func (s *Store) ListDraws(ctx context.Context, limit int) ([]models.DrawRecord, error) {
	query := `SELECT ` + drawColumns + ` FROM draws ORDER BY ` + newestFirst
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify("list draws", err)
	}
	defer rows.Close()

	draws, err := s.scanDraws(rows)
	if err != nil {
		return nil, classify("list draws", err)
	}
	return draws, nil
}

// ListDrawsWithWeather returns only draws that carry a linked weather snapshot, newest first.
func (s *Store) ListDrawsWithWeather(ctx context.Context) ([]models.DrawRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+drawColumns+` FROM draws
		WHERE temperature IS NOT NULL AND weather_description IS NOT NULL
		ORDER BY `+newestFirst)
	if err != nil {
		return nil, classify("list draws with weather", err)
	}
	defer rows.Close()

	draws, err := s.scanDraws(rows)
	if err != nil {
		return nil, classify("list draws with weather", err)
	}
	return draws, nil
}

// CountDraws returns the number of stored draws.
func (s *Store) CountDraws(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM draws`).Scan(&n); err != nil {
		return 0, classify("count draws", err)
	}
	return n, nil
}

// LinkWeatherToRecentDraws copies the observation's temperature, description and
// mmHg pressure onto the n most recent draws. Fallback observations are never linked.
// Updating zero rows is not an error.
func (s *Store) LinkWeatherToRecentDraws(ctx context.Context, obs models.WeatherObservation, n int) (int64, error) {
	if obs.IsDemo() {
		s.logger.Debug("skipping link for fallback observation")
		return 0, nil
	}
	if n <= 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE draws
		SET temperature = ?, weather_description = ?, pressure = ?
		ORDER BY `+newestFirst+`
		LIMIT ?`,
		obs.Temperature, obs.WeatherDescription, obs.PressureMMHg, n,
	)
	if err != nil {
		return 0, classify("link weather to draws", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, classify("link weather to draws", err)
	}
	s.logger.Info("linked weather to recent draws", zap.Int64("rows", affected), zap.Int("requested", n))
	return affected, nil
}

// ResetAll deletes every draw and weather row.
func (s *Store) ResetAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classify("begin reset", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{`DELETE FROM draws`, `DELETE FROM weather_history`} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return classify("reset", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return classify("commit reset", err)
	}
	s.logger.Warn("all draws and weather history deleted")
	return nil
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func (s *Store) scanDraws(rows rowScanner) ([]models.DrawRecord, error) {
	var draws []models.DrawRecord
	for rows.Next() {
		var (
			d           models.DrawRecord
			f1, f2      string
			temperature sql.NullFloat64
			description sql.NullString
			pressure    sql.NullFloat64
		)
		if err := rows.Scan(&d.DrawID, &d.Date, &d.Time, &f1, &f2, &temperature, &description, &pressure, &d.CreatedAt); err != nil {
			s.logger.Warn("failed to scan draw row", zap.Error(err))
			continue
		}
		if err := json.Unmarshal([]byte(f1), &d.Field1); err != nil {
			s.logger.Warn("bad field_1 in stored draw", zap.String("draw_id", d.DrawID), zap.Error(err))
			continue
		}
		if err := json.Unmarshal([]byte(f2), &d.Field2); err != nil {
			s.logger.Warn("bad field_2 in stored draw", zap.String("draw_id", d.DrawID), zap.Error(err))
			continue
		}
		if temperature.Valid {
			v := temperature.Float64
			d.Temperature = &v
		}
		if description.Valid {
			v := description.String
			d.WeatherDescription = &v
		}
		if pressure.Valid {
			v := pressure.Float64
			d.Pressure = &v
		}
		draws = append(draws, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return draws, nil
}
