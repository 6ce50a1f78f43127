package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is applied in order by Migrate.  Every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS lots (
		id             BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		owner_id       BIGINT UNSIGNED NOT NULL,
		name           VARCHAR(255)    NOT NULL,
		total_slots    INT             NOT NULL,
		price_per_hour DECIMAL(10,2)   NOT NULL,
		auto_approval  TINYINT(1)      NOT NULL DEFAULT 0,
		created_at     DATETIME(6)     NOT NULL,
		updated_at     DATETIME(6)     NOT NULL,
		KEY idx_lots_owner (owner_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS reservations (
		id              BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		lot_id          BIGINT UNSIGNED NOT NULL,
		driver_id       BIGINT UNSIGNED NOT NULL,
		vehicle_plate   VARCHAR(32)     NOT NULL,
		start_time      DATETIME(6)     NOT NULL,
		end_time        DATETIME(6)     NOT NULL,
		price_per_hour  DECIMAL(10,2)   NOT NULL,
		total_price     DECIMAL(10,2)   NOT NULL,
		extra_charges   DECIMAL(10,2)   NOT NULL DEFAULT 0,
		amount_due      DECIMAL(10,2)   NOT NULL,
		status          VARCHAR(32)     NOT NULL,
		payment_status  VARCHAR(32)     NOT NULL,
		is_inside       TINYINT(1)      NOT NULL DEFAULT 0,
		gate_entry_time DATETIME(6)     NULL,
		gate_exit_time  DATETIME(6)     NULL,
		version         INT UNSIGNED    NOT NULL DEFAULT 1,
		created_at      DATETIME(6)     NOT NULL,
		updated_at      DATETIME(6)     NOT NULL,
		KEY idx_res_lot_window (lot_id, status, start_time, end_time),
		KEY idx_res_plate (lot_id, vehicle_plate, status),
		KEY idx_res_driver (driver_id),
		CONSTRAINT fk_res_lot FOREIGN KEY (lot_id) REFERENCES lots (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates the lots and reservations tables when missing.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	return nil
}
