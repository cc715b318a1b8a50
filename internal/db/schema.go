package db

import (
	"context"
	"database/sql"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS ropers (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		first_name VARCHAR(64) NOT NULL,
		last_name VARCHAR(64) NOT NULL,
		specialty VARCHAR(16) NOT NULL,
		rating INT NOT NULL DEFAULT 0,
		level VARCHAR(32) NOT NULL DEFAULT '',
		phone VARCHAR(32) NOT NULL DEFAULT '',
		email VARCHAR(128) NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS series (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(128) NOT NULL,
		season VARCHAR(32) NOT NULL DEFAULT '',
		status VARCHAR(16) NOT NULL DEFAULT 'upcoming',
		start_date DATE NULL,
		end_date DATE NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS events (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		series_id BIGINT NOT NULL DEFAULT 0,
		name VARCHAR(128) NOT NULL,
		event_date DATE NULL,
		location VARCHAR(128) NOT NULL DEFAULT '',
		rounds INT NOT NULL DEFAULT 1,
		status VARCHAR(16) NOT NULL DEFAULT 'draft',
		entry_fee DECIMAL(12,2) NOT NULL DEFAULT 0,
		prize_pool DECIMAL(12,2) NOT NULL DEFAULT 0,
		deduction_pct DECIMAL(6,4) NOT NULL DEFAULT 0,
		max_team_rating INT NOT NULL DEFAULT 0,
		admin_pin_hash VARCHAR(255) NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		KEY idx_events_series (series_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS teams (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		event_id BIGINT NOT NULL,
		header_id BIGINT NOT NULL,
		heeler_id BIGINT NOT NULL,
		rating INT NOT NULL DEFAULT 0,
		status VARCHAR(16) NOT NULL DEFAULT 'active',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uniq_team_pair (event_id, header_id, heeler_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS draw_slots (
		event_id BIGINT NOT NULL,
		round INT NOT NULL,
		position INT NOT NULL,
		team_id BIGINT NOT NULL,
		PRIMARY KEY (event_id, round, position)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS runs (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		event_id BIGINT NOT NULL,
		team_id BIGINT NOT NULL,
		round INT NOT NULL,
		position INT NOT NULL DEFAULT 0,
		time_sec DECIMAL(8,3) NULL,
		penalty DECIMAL(8,3) NOT NULL DEFAULT 0,
		total_sec DECIMAL(8,3) NULL,
		no_time TINYINT(1) NOT NULL DEFAULT 0,
		dq TINYINT(1) NOT NULL DEFAULT 0,
		status VARCHAR(16) NOT NULL DEFAULT 'pending',
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uniq_run (event_id, round, team_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS payoff_rules (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		event_id BIGINT NOT NULL,
		position INT NOT NULL,
		percentage DECIMAL(6,4) NOT NULL,
		UNIQUE KEY uniq_payoff_place (event_id, position)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates missing tables. Existing tables are left untouched.
func Migrate(ctx context.Context, conn *sql.DB) error {
	for i, stmt := range schema {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement %d: %w", i, err)
		}
	}
	return nil
}
