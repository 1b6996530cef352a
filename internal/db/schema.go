package db

import (
	"context"
	"database/sql"
	"fmt"
)

var tables = []struct {
	name string
	ddl  string
}{
	{"users", `
CREATE TABLE IF NOT EXISTS users (
	id CHAR(36) PRIMARY KEY,
	name VARCHAR(120) NOT NULL,
	email VARCHAR(255) NOT NULL,
	phone VARCHAR(30) NOT NULL DEFAULT '',
	password_hash VARCHAR(255) NOT NULL,
	role VARCHAR(20) NOT NULL DEFAULT 'user',
	status VARCHAR(20) NOT NULL DEFAULT 'active',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	UNIQUE KEY uniq_email (email)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`},
	{"cars", `
CREATE TABLE IF NOT EXISTS cars (
	id CHAR(36) PRIMARY KEY,
	title VARCHAR(255) NOT NULL,
	year INT NOT NULL DEFAULT 0,
	price BIGINT NOT NULL DEFAULT 0,
	status VARCHAR(20) NOT NULL DEFAULT 'available',
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`},
	{"test_drive_requests", `
CREATE TABLE IF NOT EXISTS test_drive_requests (
	id CHAR(36) PRIMARY KEY,
	user_id CHAR(36) NOT NULL,
	car_id CHAR(36) NOT NULL,
	customer_name VARCHAR(120) NOT NULL,
	customer_email VARCHAR(255) NOT NULL,
	customer_phone VARCHAR(30) NOT NULL,
	scheduled_date CHAR(10) NOT NULL,
	scheduled_time CHAR(5) NOT NULL,
	duration_minutes INT NOT NULL DEFAULT 30,
	location VARCHAR(255) NOT NULL DEFAULT 'Showroom',
	status VARCHAR(32) NOT NULL,
	user_notes TEXT NULL,
	admin_notes TEXT NULL,
	rejection_reason TEXT NULL,
	proposed_date CHAR(10) NULL,
	proposed_time CHAR(5) NULL,
	proposal_note TEXT NULL,
	proposed_by CHAR(36) NULL,
	confirmed_by CHAR(36) NULL,
	confirmed_at DATETIME NULL,
	cancelled_by CHAR(36) NULL,
	cancelled_at DATETIME NULL,
	completed_at DATETIME NULL,
	feedback TEXT NULL,
	experience_rating TINYINT NULL,
	is_interested TINYINT(1) NULL,
	version BIGINT NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	KEY idx_user (user_id),
	KEY idx_car_slot (car_id, scheduled_date, scheduled_time),
	KEY idx_status (status)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`},
	{"payments", `
CREATE TABLE IF NOT EXISTS payments (
	id CHAR(36) PRIMARY KEY,
	transaction_id VARCHAR(64) NOT NULL,
	payer_id CHAR(36) NOT NULL DEFAULT '',
	reference_code VARCHAR(80) NOT NULL,
	payment_type VARCHAR(20) NOT NULL,
	amount BIGINT NOT NULL,
	currency CHAR(3) NOT NULL DEFAULT 'IDR',
	payment_method VARCHAR(64) NOT NULL,
	method_type VARCHAR(20) NOT NULL,
	status VARCHAR(20) NOT NULL,
	bank_name VARCHAR(64) NULL,
	account_holder VARCHAR(128) NULL,
	proof_of_payment VARCHAR(512) NULL,
	gateway_name VARCHAR(64) NULL,
	gateway_transaction_id VARCHAR(128) NULL,
	gateway_response JSON NULL,
	rejection_reason TEXT NULL,
	rejected_by CHAR(36) NULL,
	rejected_at DATETIME NULL,
	rejection_count INT NOT NULL DEFAULT 0,
	verified_by CHAR(36) NULL,
	verified_at DATETIME NULL,
	notes TEXT NULL,
	payment_date DATETIME NOT NULL,
	version BIGINT NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	UNIQUE KEY uniq_reference (reference_code),
	KEY idx_transaction (transaction_id),
	KEY idx_gateway_tx (gateway_transaction_id),
	KEY idx_status (status)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`},
}

// EnsureSchema creates the service tables that do not exist yet.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return fmt.Errorf("db tidak tersedia")
	}
	for _, t := range tables {
		if HasTable(ctx, db, t.name) {
			continue
		}
		if _, err := db.ExecContext(ctx, t.ddl); err != nil {
			return fmt.Errorf("create table %s: %w", t.name, err)
		}
	}
	return nil
}
