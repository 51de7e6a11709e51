package mysql

import (
	"context"
	"database/sql"

	"campusride/internal/domain/models"
	"campusride/internal/repositories"
)

const bookingColumns = `id, ride_id, passenger_id, seats, COALESCE(message, ''), status, created_at, updated_at`

func scanBooking(row rowScanner) (models.Booking, error) {
	var (
		b      models.Booking
		status string
	)
	err := row.Scan(&b.ID, &b.RideID, &b.PassengerID, &b.Seats, &b.Message, &status, &b.CreatedAt, &b.UpdatedAt)
	b.Status = models.BookingStatus(status)
	return b, err
}

func (s *Store) ReserveSeat(ctx context.Context, booking models.Booking) (models.Booking, error) {
	if booking.Seats <= 0 {
		booking.Seats = 1
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		status, total, err := lockRide(ctx, tx, booking.RideID)
		if err != nil {
			return err
		}
		if models.RideStatus(status) != models.RideActive {
			return repositories.ErrRideNotActive
		}

		var existing int
		if err := tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM bookings
			WHERE ride_id = ? AND passenger_id = ? AND status <> ?`,
			booking.RideID, booking.PassengerID, string(models.BookingCancelled),
		).Scan(&existing); err != nil {
			return err
		}
		if existing > 0 {
			return repositories.ErrActiveBookingExists
		}

		held, err := heldSeats(ctx, tx, booking.RideID)
		if err != nil {
			return err
		}
		if models.AvailableSeats(total, held) < booking.Seats {
			return repositories.ErrNoSeats
		}

		now := s.now()
		res, err := tx.ExecContext(ctx, `
			INSERT INTO bookings (ride_id, passenger_id, seats, message, status, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			booking.RideID, booking.PassengerID, booking.Seats, nullString(booking.Message),
			string(models.BookingPending), now, now,
		)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		booking.ID = id
		booking.Status = models.BookingPending
		booking.CreatedAt = now
		booking.UpdatedAt = now
		return nil
	})
	if err != nil {
		return models.Booking{}, err
	}
	return booking, nil
}

func (s *Store) GetBooking(ctx context.Context, id int64) (models.Booking, error) {
	b, err := scanBooking(s.DB.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ? LIMIT 1`, id))
	return b, mapErr(err)
}

func (s *Store) ListBookingsByRide(ctx context.Context, rideID int64) ([]models.Booking, error) {
	return s.queryBookings(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE ride_id = ? ORDER BY id ASC`, rideID)
}

func (s *Store) ListBookingsByPassenger(ctx context.Context, passengerID int64) ([]models.Booking, error) {
	return s.queryBookings(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE passenger_id = ? ORDER BY id ASC`, passengerID)
}

func (s *Store) queryBookings(ctx context.Context, query string, args ...any) ([]models.Booking, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return out, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *Store) UpdateBookingStatus(ctx context.Context, id int64, from, to models.BookingStatus) (models.Booking, error) {
	res, err := s.DB.ExecContext(ctx, `UPDATE bookings SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(to), s.now(), id, string(from))
	if err != nil {
		return models.Booking{}, err
	}
	if err := requireAffected(res); err != nil {
		// Distinguish a missing row from a lost race.
		if _, getErr := s.GetBooking(ctx, id); getErr != nil {
			return models.Booking{}, getErr
		}
		return models.Booking{}, repositories.ErrStaleStatus
	}
	return s.GetBooking(ctx, id)
}

func (s *Store) DeleteBooking(ctx context.Context, id int64) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}
