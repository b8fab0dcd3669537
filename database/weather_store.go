// backend/database/weather_store.go
package database

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/gewnthar/lottometeo/backend/models"
)

const weatherColumns = `id, observed_at, city, country, temperature, feels_like, temp_min, temp_max,
	humidity, pressure_hpa, pressure_mmhg, wind_speed, wind_deg, wind_direction,
	visibility, cloudiness, weather_main, weather_description`

// InsertWeather appends an observation to weather_history and sets obs.ID.
// Fallback observations are refused: it returns false without touching the table.
func (s *Store) InsertWeather(ctx context.Context, obs *models.WeatherObservation) (bool, error) {
	if obs == nil || obs.IsDemo() {
		s.logger.Info("refusing to store fallback weather observation")
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO weather_history (
			observed_at, city, country, temperature, feels_like, temp_min, temp_max,
			humidity, pressure_hpa, pressure_mmhg, wind_speed, wind_deg, wind_direction,
			visibility, cloudiness, weather_main, weather_description
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		obs.Timestamp.UTC(), obs.City, obs.Country, obs.Temperature, obs.FeelsLike, obs.TempMin, obs.TempMax,
		obs.Humidity, obs.PressureHPa, obs.PressureMMHg, obs.WindSpeed, obs.WindDeg, obs.WindDirection,
		obs.Visibility, obs.Cloudiness, obs.WeatherMain, obs.WeatherDescription,
	)
	if err != nil {
		return false, classify("insert weather", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		obs.ID = id
	}
	s.logger.Debug("weather observation stored", zap.Int64("id", obs.ID), zap.String("city", obs.City))
	return true, nil
}

// ListWeather returns observations newest first. limit <= 0 means all.
func (s *Store) ListWeather(ctx context.Context, limit int) ([]models.WeatherObservation, error) {
	query := `SELECT ` + weatherColumns + ` FROM weather_history ORDER BY observed_at DESC, id DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify("list weather", err)
	}
	defer rows.Close()

	obs, err := s.scanWeather(rows)
	if err != nil {
		return nil, classify("list weather", err)
	}
	return obs, nil
}

// LatestWeather returns the newest stored observation, or nil when history is empty.
func (s *Store) LatestWeather(ctx context.Context) (*models.WeatherObservation, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+weatherColumns+` FROM weather_history ORDER BY observed_at DESC, id DESC LIMIT 1`)
	var o models.WeatherObservation
	err := row.Scan(&o.ID, &o.Timestamp, &o.City, &o.Country, &o.Temperature, &o.FeelsLike, &o.TempMin, &o.TempMax,
		&o.Humidity, &o.PressureHPa, &o.PressureMMHg, &o.WindSpeed, &o.WindDeg, &o.WindDirection,
		&o.Visibility, &o.Cloudiness, &o.WeatherMain, &o.WeatherDescription)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classify("latest weather", err)
	}
	return &o, nil
}

// CorrelationSnapshot reads every draw and every observation inside one read-only
// transaction so statistics never see a half-applied write.
func (s *Store) CorrelationSnapshot(ctx context.Context) ([]models.DrawRecord, []models.WeatherObservation, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, nil, classify("begin snapshot", err)
	}
	defer tx.Rollback()

	drawRows, err := tx.QueryContext(ctx, `SELECT `+drawColumns+` FROM draws ORDER BY `+newestFirst)
	if err != nil {
		return nil, nil, classify("snapshot draws", err)
	}
	draws, err := s.scanDraws(drawRows)
	drawRows.Close()
	if err != nil {
		return nil, nil, classify("snapshot draws", err)
	}

	weatherRows, err := tx.QueryContext(ctx, `SELECT `+weatherColumns+` FROM weather_history ORDER BY observed_at`)
	if err != nil {
		return nil, nil, classify("snapshot weather", err)
	}
	observations, err := s.scanWeather(weatherRows)
	weatherRows.Close()
	if err != nil {
		return nil, nil, classify("snapshot weather", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, classify("commit snapshot", err)
	}
	return draws, observations, nil
}

func (s *Store) scanWeather(rows rowScanner) ([]models.WeatherObservation, error) {
	var out []models.WeatherObservation
	for rows.Next() {
		var o models.WeatherObservation
		if err := rows.Scan(&o.ID, &o.Timestamp, &o.City, &o.Country, &o.Temperature, &o.FeelsLike, &o.TempMin, &o.TempMax,
			&o.Humidity, &o.PressureHPa, &o.PressureMMHg, &o.WindSpeed, &o.WindDeg, &o.WindDirection,
			&o.Visibility, &o.Cloudiness, &o.WeatherMain, &o.WeatherDescription); err != nil {
			s.logger.Warn("failed to scan weather row", zap.Error(err))
			continue
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
