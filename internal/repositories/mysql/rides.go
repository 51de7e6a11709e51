package mysql

import (
	"context"
	"database/sql"
	"strings"

	"campusride/internal/domain/models"
	"campusride/internal/repositories"
)

var rideSelect = `
	SELECT r.id, r.driver_id, r.origin, r.destination, r.departure_time, r.price, r.total_seats,
		COALESCE(r.description, ''), r.is_recurring, r.recurring_days, r.status, r.created_at, r.updated_at,
		(SELECT COALESCE(SUM(b.seats), 0) FROM bookings b
			WHERE b.ride_id = r.id AND b.status IN ` + seatHoldingIn() + `) AS held_seats
	FROM rides r`

func scanRide(row rowScanner) (models.Ride, error) {
	var (
		r      models.Ride
		status string
		held   int
	)
	err := row.Scan(
		&r.ID,
		&r.DriverID,
		&r.Origin,
		&r.Destination,
		&r.DepartureTime,
		&r.Price,
		&r.TotalSeats,
		&r.Description,
		&r.IsRecurring,
		&r.RecurringDays,
		&status,
		&r.CreatedAt,
		&r.UpdatedAt,
		&held,
	)
	if err != nil {
		return models.Ride{}, err
	}
	r.Status = models.RideStatus(status)
	return r.WithHeldSeats(held), nil
}

func (s *Store) CreateRide(ctx context.Context, ride models.Ride) (models.Ride, error) {
	now := s.now()
	res, err := s.DB.ExecContext(ctx, `
		INSERT INTO rides (driver_id, origin, destination, departure_time, price, total_seats,
			description, is_recurring, recurring_days, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ride.DriverID, ride.Origin, ride.Destination, ride.DepartureTime, ride.Price, ride.TotalSeats,
		nullString(ride.Description), ride.IsRecurring, ride.RecurringDays, string(ride.Status), now, now,
	)
	if err != nil {
		return models.Ride{}, mapErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Ride{}, err
	}
	ride.ID = id
	ride.CreatedAt = now
	ride.UpdatedAt = now
	return ride.WithHeldSeats(0), nil
}

func (s *Store) GetRide(ctx context.Context, id int64) (models.Ride, error) {
	r, err := scanRide(s.DB.QueryRowContext(ctx, rideSelect+` WHERE r.id = ? LIMIT 1`, id))
	return r, mapErr(err)
}

func (s *Store) ListRides(ctx context.Context, filter models.RideFilter) ([]models.Ride, error) {
	where := []string{"1=1"}
	args := []any{}
	if filter.DriverID != 0 {
		where = append(where, "r.driver_id = ?")
		args = append(args, filter.DriverID)
	}
	if filter.Status != "" {
		where = append(where, "r.status = ?")
		args = append(args, string(filter.Status))
	}
	if o := strings.TrimSpace(filter.Origin); o != "" {
		where = append(where, "LOWER(r.origin) LIKE ?")
		args = append(args, "%"+strings.ToLower(o)+"%")
	}
	if d := strings.TrimSpace(filter.Destination); d != "" {
		where = append(where, "LOWER(r.destination) LIKE ?")
		args = append(args, "%"+strings.ToLower(d)+"%")
	}
	if filter.Date != nil {
		where = append(where, "DATE(r.departure_time) = ?")
		args = append(args, filter.Date.UTC().Format("2006-01-02"))
	}

	query := rideSelect + ` WHERE ` + strings.Join(where, " AND ") + ` ORDER BY r.departure_time ASC, r.id ASC`
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Ride{}
	for rows.Next() {
		r, err := scanRide(rows)
		if err != nil {
			return out, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// lockRide reads the ride row FOR UPDATE inside tx.
func lockRide(ctx context.Context, tx *sql.Tx, id int64) (status string, total int, err error) {
	err = tx.QueryRowContext(ctx, `SELECT status, total_seats FROM rides WHERE id = ? FOR UPDATE`, id).Scan(&status, &total)
	return status, total, mapErr(err)
}

func heldSeats(ctx context.Context, tx *sql.Tx, rideID int64) (int, error) {
	var held int
	err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(seats), 0) FROM bookings WHERE ride_id = ? AND status IN `+seatHoldingIn(),
		rideID,
	).Scan(&held)
	return held, err
}

func (s *Store) UpdateRide(ctx context.Context, ride models.Ride) (models.Ride, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, _, err := lockRide(ctx, tx, ride.ID); err != nil {
			return err
		}
		held, err := heldSeats(ctx, tx, ride.ID)
		if err != nil {
			return err
		}
		if ride.TotalSeats < held {
			return repositories.ErrCapacityBelowHeld
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE rides
			SET origin = ?, destination = ?, departure_time = ?, price = ?, total_seats = ?,
				description = ?, is_recurring = ?, recurring_days = ?, updated_at = ?
			WHERE id = ?`,
			ride.Origin, ride.Destination, ride.DepartureTime, ride.Price, ride.TotalSeats,
			nullString(ride.Description), ride.IsRecurring, ride.RecurringDays, s.now(), ride.ID,
		)
		return err
	})
	if err != nil {
		return models.Ride{}, err
	}
	return s.GetRide(ctx, ride.ID)
}

func (s *Store) CancelRide(ctx context.Context, id int64) (int, error) {
	var cancelled int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, _, err := lockRide(ctx, tx, id); err != nil {
			return err
		}
		now := s.now()
		if _, err := tx.ExecContext(ctx, `UPDATE rides SET status = ?, updated_at = ? WHERE id = ?`,
			string(models.RideCancelled), now, id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `
			UPDATE bookings SET status = ?, updated_at = ?
			WHERE ride_id = ? AND status IN (?, ?)`,
			string(models.BookingCancelled), now, id,
			string(models.BookingPending), string(models.BookingConfirmed),
		)
		if err != nil {
			return err
		}
		cancelled, err = res.RowsAffected()
		return err
	})
	return int(cancelled), err
}
