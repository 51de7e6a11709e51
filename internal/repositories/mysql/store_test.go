package mysql

import (
	"context"
	"errors"
	"testing"
	"time"

	"campusride/internal/domain/models"
	"campusride/internal/repositories"

	"github.com/DATA-DOG/go-sqlmock"
	driver "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(db, WithClock(func() time.Time { return fixedNow })), mock
}

func TestReserveSeat_InsertsPendingBooking(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status, total_seats FROM rides WHERE id = \\? FOR UPDATE").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"status", "total_seats"}).AddRow("active", 3))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM bookings").
		WithArgs(int64(7), int64(2), "cancelled").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectQuery("SELECT COALESCE\\(SUM\\(seats\\), 0\\) FROM bookings").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"held"}).AddRow(1))
	mock.ExpectExec("INSERT INTO bookings").
		WithArgs(int64(7), int64(2), 1, sqlmock.AnyArg(), "pending", fixedNow, fixedNow).
		WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectCommit()

	b, err := s.ReserveSeat(context.Background(), models.Booking{RideID: 7, PassengerID: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(11), b.ID)
	assert.Equal(t, models.BookingPending, b.Status)
	assert.Equal(t, 1, b.Seats)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReserveSeat_NoSeatsRollsBack(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM rides WHERE id = \\? FOR UPDATE").
		WillReturnRows(sqlmock.NewRows([]string{"status", "total_seats"}).AddRow("active", 2))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM bookings").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectQuery("SELECT COALESCE\\(SUM\\(seats\\), 0\\) FROM bookings").
		WillReturnRows(sqlmock.NewRows([]string{"held"}).AddRow(2))
	mock.ExpectRollback()

	_, err := s.ReserveSeat(context.Background(), models.Booking{RideID: 1, PassengerID: 2, Seats: 1})
	assert.ErrorIs(t, err, repositories.ErrNoSeats)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReserveSeat_RejectsCancelledRideAndDuplicates(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WillReturnRows(sqlmock.NewRows([]string{"status", "total_seats"}).AddRow("cancelled", 3))
	mock.ExpectRollback()
	_, err := s.ReserveSeat(context.Background(), models.Booking{RideID: 1, PassengerID: 2})
	assert.ErrorIs(t, err, repositories.ErrRideNotActive)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WillReturnRows(sqlmock.NewRows([]string{"status", "total_seats"}).AddRow("active", 3))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM bookings").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	mock.ExpectRollback()
	_, err = s.ReserveSeat(context.Background(), models.Booking{RideID: 1, PassengerID: 2})
	assert.ErrorIs(t, err, repositories.ErrActiveBookingExists)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetRide_DerivesAvailableSeats(t *testing.T) {
	s, mock := newMockStore(t)

	cols := []string{"id", "driver_id", "origin", "destination", "departure_time", "price", "total_seats",
		"description", "is_recurring", "recurring_days", "status", "created_at", "updated_at", "held_seats"}
	mock.ExpectQuery("FROM rides r WHERE r.id = \\?").
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(
			5, 9, "North Campus", "Downtown", fixedNow.Add(24*time.Hour), 4.5, 3,
			"", false, "", "active", fixedNow, fixedNow, 1,
		))

	r, err := s.GetRide(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, 3, r.TotalSeats)
	assert.Equal(t, 2, r.AvailableSeats)
	assert.Equal(t, models.RideActive, r.Status)

	mock.ExpectQuery("FROM rides r WHERE r.id = \\?").
		WithArgs(int64(6)).
		WillReturnRows(sqlmock.NewRows(cols))
	_, err = s.GetRide(context.Background(), 6)
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelRide_CascadesInTransaction(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"status", "total_seats"}).AddRow("active", 3))
	mock.ExpectExec("UPDATE rides SET status = \\?").
		WithArgs("cancelled", fixedNow, int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE bookings SET status = \\?").
		WithArgs("cancelled", fixedNow, int64(3), "pending", "confirmed").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	n, err := s.CancelRide(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateRide_CapacityBelowHeld(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WillReturnRows(sqlmock.NewRows([]string{"status", "total_seats"}).AddRow("active", 4))
	mock.ExpectQuery("SELECT COALESCE\\(SUM\\(seats\\), 0\\) FROM bookings").
		WillReturnRows(sqlmock.NewRows([]string{"held"}).AddRow(3))
	mock.ExpectRollback()

	_, err := s.UpdateRide(context.Background(), models.Ride{ID: 1, TotalSeats: 2})
	assert.ErrorIs(t, err, repositories.ErrCapacityBelowHeld)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateBookingStatus_StaleVersusMissing(t *testing.T) {
	s, mock := newMockStore(t)
	bookingCols := []string{"id", "ride_id", "passenger_id", "seats", "message", "status", "created_at", "updated_at"}

	mock.ExpectExec("UPDATE bookings SET status = \\?").
		WithArgs("confirmed", fixedNow, int64(4), "pending").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("FROM bookings WHERE id = \\?").
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows(bookingCols).AddRow(4, 1, 2, 1, "", "cancelled", fixedNow, fixedNow))

	_, err := s.UpdateBookingStatus(context.Background(), 4, models.BookingPending, models.BookingConfirmed)
	assert.ErrorIs(t, err, repositories.ErrStaleStatus)

	mock.ExpectExec("UPDATE bookings SET status = \\?").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("FROM bookings WHERE id = \\?").
		WillReturnRows(sqlmock.NewRows(bookingCols))

	_, err = s.UpdateBookingStatus(context.Background(), 99, models.BookingPending, models.BookingConfirmed)
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO users").
		WillReturnError(&driver.MySQLError{Number: 1062, Message: "Duplicate entry"})

	_, err := s.CreateUser(context.Background(), models.User{Name: "A", Email: "a@uni.edu", PasswordHash: "x"})
	assert.ErrorIs(t, err, repositories.ErrDuplicate)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateReview_RecomputesAggregate(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM users WHERE id = \\? FOR UPDATE").
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(9))
	mock.ExpectExec("INSERT INTO reviews").
		WillReturnResult(sqlmock.NewResult(3, 1))
	mock.ExpectQuery("SELECT COALESCE\\(AVG\\(rating\\), 0\\), COUNT\\(\\*\\) FROM reviews").
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"avg", "n"}).AddRow(4.3333, 3))
	mock.ExpectExec("UPDATE users SET rating = \\?, review_count = \\?").
		WithArgs(4.3, 3, int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	r, summary, err := s.CreateReview(context.Background(), models.Review{RideID: 1, ReviewerID: 2, RevieweeID: 9, Rating: 5})
	require.NoError(t, err)
	assert.Equal(t, int64(3), r.ID)
	assert.Equal(t, 4.3, summary.Rating)
	assert.Equal(t, 3, summary.ReviewCount)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateReview_DuplicateRollsBack(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(9))
	mock.ExpectExec("INSERT INTO reviews").
		WillReturnError(&driver.MySQLError{Number: 1062, Message: "Duplicate entry"})
	mock.ExpectRollback()

	_, _, err := s.CreateReview(context.Background(), models.Review{RideID: 1, ReviewerID: 2, RevieweeID: 9, Rating: 4})
	assert.ErrorIs(t, err, repositories.ErrDuplicate)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveAlert_AlreadyResolved(t *testing.T) {
	s, mock := newMockStore(t)
	cols := []string{"id", "user_id", "ride_id", "type", "description", "latitude", "longitude", "status", "created_at", "resolved_at"}

	mock.ExpectExec("UPDATE emergency_alerts SET status = \\?").
		WithArgs("resolved", fixedNow, int64(2), "active").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("FROM emergency_alerts WHERE id = \\?").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(2, 1, 1, "safety", "", nil, nil, "resolved", fixedNow, fixedNow))

	_, err := s.ResolveAlert(context.Background(), 2, fixedNow)
	assert.ErrorIs(t, err, repositories.ErrStaleStatus)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCountUnread(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM messages WHERE receiver_id = \\? AND is_read = 0").
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(2))

	n, err := s.CountUnread(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestMigrate_AppliesEveryStep(t *testing.T) {
	s, mock := newMockStore(t)
	for range schema {
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS").WillReturnResult(sqlmock.NewResult(0, 0))
	}
	require.NoError(t, s.Migrate(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())

	s2, mock2 := newMockStore(t)
	mock2.ExpectExec("CREATE TABLE IF NOT EXISTS users").WillReturnError(errors.New("boom"))
	err := s2.Migrate(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step 1")
}
