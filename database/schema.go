// backend/database/schema.go
package database

import (
	"context"

	"go.uber.org/zap"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS draws (
		draw_id             VARCHAR(64)  NOT NULL,
		draw_date           VARCHAR(10)  NOT NULL,
		draw_time           VARCHAR(5)   NOT NULL,
		field_1             VARCHAR(32)  NOT NULL,
		field_2             VARCHAR(32)  NOT NULL,
		temperature         DOUBLE       NULL,
		weather_description VARCHAR(255) NULL,
		pressure            DOUBLE       NULL,
		created_at          DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at          DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (draw_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS weather_history (
		id                  BIGINT       NOT NULL AUTO_INCREMENT,
		observed_at         DATETIME     NOT NULL,
		city                VARCHAR(128) NOT NULL,
		country             VARCHAR(8)   NOT NULL DEFAULT '',
		temperature         DOUBLE       NOT NULL,
		feels_like          DOUBLE       NOT NULL,
		temp_min            DOUBLE       NOT NULL,
		temp_max            DOUBLE       NOT NULL,
		humidity            DOUBLE       NOT NULL,
		pressure_hpa        DOUBLE       NOT NULL,
		pressure_mmhg       DOUBLE       NOT NULL,
		wind_speed          DOUBLE       NOT NULL,
		wind_deg            DOUBLE       NOT NULL,
		wind_direction      VARCHAR(16)  NOT NULL,
		visibility          INT          NOT NULL,
		cloudiness          INT          NOT NULL,
		weather_main        VARCHAR(64)  NOT NULL DEFAULT '',
		weather_description VARCHAR(255) NOT NULL,
		created_at          DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		KEY idx_weather_observed_at (observed_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS data_sources (
		source_name     VARCHAR(32)  NOT NULL,
		source_url      VARCHAR(512) NOT NULL DEFAULT '',
		last_outcome    VARCHAR(32)  NOT NULL,
		last_checked_at DATETIME     NOT NULL,
		last_success_at DATETIME     NULL,
		rows_seen       INT          NOT NULL DEFAULT 0,
		saved           INT          NOT NULL DEFAULT 0,
		dropped         INT          NOT NULL DEFAULT 0,
		updated_at      DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (source_name)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// EnsureSchema creates the tables when missing. Safe on every start.
func (s *Store) EnsureSchema(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return classify("ensure schema", err)
		}
	}
	s.logger.Info("schema ready", zap.Strings("tables", []string{"draws", "weather_history", "data_sources"}))
	return nil
}
