package mysql

import (
	"context"
	"fmt"
)

// schema is applied in order by Migrate. Foreign keys are by convention
// (indexed columns), not enforced constraints.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	email VARCHAR(255) NOT NULL,
	password_hash VARCHAR(255) NOT NULL,
	phone VARCHAR(100) NOT NULL DEFAULT '',
	university VARCHAR(255) NOT NULL DEFAULT '',
	student_id VARCHAR(100) NOT NULL DEFAULT '',
	is_driver TINYINT(1) NOT NULL DEFAULT 0,
	bio TEXT NULL,
	rating DECIMAL(3,1) NOT NULL DEFAULT 0,
	review_count INT NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	UNIQUE KEY uniq_users_email (email)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

	`CREATE TABLE IF NOT EXISTS rides (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	driver_id BIGINT NOT NULL,
	origin VARCHAR(255) NOT NULL,
	destination VARCHAR(255) NOT NULL,
	departure_time DATETIME NOT NULL,
	price DECIMAL(10,2) NOT NULL DEFAULT 0,
	total_seats INT NOT NULL,
	description TEXT NULL,
	is_recurring TINYINT(1) NOT NULL DEFAULT 0,
	recurring_days VARCHAR(100) NOT NULL DEFAULT '',
	status VARCHAR(20) NOT NULL DEFAULT 'active',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	KEY idx_rides_driver (driver_id),
	KEY idx_rides_status_departure (status, departure_time)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

	`CREATE TABLE IF NOT EXISTS bookings (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	ride_id BIGINT NOT NULL,
	passenger_id BIGINT NOT NULL,
	seats INT NOT NULL DEFAULT 1,
	message TEXT NULL,
	status VARCHAR(20) NOT NULL DEFAULT 'pending',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	KEY idx_bookings_ride (ride_id, status),
	KEY idx_bookings_passenger (passenger_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

	`CREATE TABLE IF NOT EXISTS messages (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	sender_id BIGINT NOT NULL,
	receiver_id BIGINT NOT NULL,
	ride_id BIGINT NULL,
	content TEXT NOT NULL,
	is_read TINYINT(1) NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL,
	KEY idx_messages_sender (sender_id),
	KEY idx_messages_receiver (receiver_id, is_read)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

	`CREATE TABLE IF NOT EXISTS reviews (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	ride_id BIGINT NOT NULL,
	reviewer_id BIGINT NOT NULL,
	reviewee_id BIGINT NOT NULL,
	rating TINYINT NOT NULL,
	comment TEXT NULL,
	created_at DATETIME NOT NULL,
	UNIQUE KEY uniq_review (ride_id, reviewer_id, reviewee_id),
	KEY idx_reviews_reviewee (reviewee_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

	`CREATE TABLE IF NOT EXISTS emergency_contacts (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	user_id BIGINT NOT NULL,
	name VARCHAR(255) NOT NULL,
	phone VARCHAR(100) NOT NULL,
	relationship VARCHAR(100) NOT NULL DEFAULT '',
	is_primary TINYINT(1) NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL,
	KEY idx_contacts_user (user_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

	`CREATE TABLE IF NOT EXISTS emergency_alerts (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	user_id BIGINT NOT NULL,
	ride_id BIGINT NOT NULL,
	type VARCHAR(20) NOT NULL,
	description TEXT NULL,
	latitude DOUBLE NULL,
	longitude DOUBLE NULL,
	status VARCHAR(20) NOT NULL DEFAULT 'active',
	created_at DATETIME NOT NULL,
	resolved_at DATETIME NULL,
	KEY idx_alerts_user (user_id),
	KEY idx_alerts_ride (ride_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,
}

// Migrate creates missing tables. It is safe to run repeatedly.
func (s *Store) Migrate(ctx context.Context) error {
	for i, ddl := range schema {
		if _, err := s.DB.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("apply schema step %d: %w", i+1, err)
		}
	}
	return nil
}
