package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"campusride/internal/domain/models"
	"campusride/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock() func() time.Time {
	t0 := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	return func() time.Time { return t0 }
}

func seedRide(t *testing.T, s *Store, seats int) (driver, ride int64) {
	t.Helper()
	ctx := context.Background()
	d, err := s.CreateUser(ctx, models.User{Name: "Dana", Email: "dana@uni.edu", IsDriver: true})
	require.NoError(t, err)
	r, err := s.CreateRide(ctx, models.Ride{
		DriverID:      d.ID,
		Origin:        "North Campus",
		Destination:   "Central Station",
		DepartureTime: time.Date(2026, 3, 3, 7, 30, 0, 0, time.UTC),
		TotalSeats:    seats,
		Status:        models.RideActive,
	})
	require.NoError(t, err)
	return d.ID, r.ID
}

func seedPassenger(t *testing.T, s *Store, email string) int64 {
	t.Helper()
	u, err := s.CreateUser(context.Background(), models.User{Name: email, Email: email})
	require.NoError(t, err)
	return u.ID
}

func TestCreateUserRejectsDuplicateEmail(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, err := s.CreateUser(ctx, models.User{Email: "a@uni.edu"})
	require.NoError(t, err)
	_, err = s.CreateUser(ctx, models.User{Email: "A@uni.edu"})
	assert.ErrorIs(t, err, repositories.ErrDuplicate)
}

func TestIDsArePerStore(t *testing.T) {
	a, b := New(), New()
	ua, _ := a.CreateUser(context.Background(), models.User{Email: "x@uni.edu"})
	ub, _ := b.CreateUser(context.Background(), models.User{Email: "x@uni.edu"})
	assert.Equal(t, int64(1), ua.ID)
	assert.Equal(t, int64(1), ub.ID)
}

func TestReserveSeatDerivesAvailability(t *testing.T) {
	s := New(WithClock(fixedClock()))
	ctx := context.Background()
	_, rideID := seedRide(t, s, 2)
	p1 := seedPassenger(t, s, "p1@uni.edu")
	p2 := seedPassenger(t, s, "p2@uni.edu")
	p3 := seedPassenger(t, s, "p3@uni.edu")

	b1, err := s.ReserveSeat(ctx, models.Booking{RideID: rideID, PassengerID: p1})
	require.NoError(t, err)
	assert.Equal(t, models.BookingPending, b1.Status)
	assert.Equal(t, 1, b1.Seats)

	ride, _ := s.GetRide(ctx, rideID)
	assert.Equal(t, 1, ride.AvailableSeats)

	_, err = s.ReserveSeat(ctx, models.Booking{RideID: rideID, PassengerID: p1})
	assert.ErrorIs(t, err, repositories.ErrActiveBookingExists)

	_, err = s.ReserveSeat(ctx, models.Booking{RideID: rideID, PassengerID: p2})
	require.NoError(t, err)

	_, err = s.ReserveSeat(ctx, models.Booking{RideID: rideID, PassengerID: p3})
	assert.ErrorIs(t, err, repositories.ErrNoSeats)

	// Confirming does not consume a second seat.
	_, err = s.UpdateBookingStatus(ctx, b1.ID, models.BookingPending, models.BookingConfirmed)
	require.NoError(t, err)
	ride, _ = s.GetRide(ctx, rideID)
	assert.Equal(t, 0, ride.AvailableSeats)

	// Cancelling frees it, and the passenger may book again.
	_, err = s.UpdateBookingStatus(ctx, b1.ID, models.BookingConfirmed, models.BookingCancelled)
	require.NoError(t, err)
	ride, _ = s.GetRide(ctx, rideID)
	assert.Equal(t, 1, ride.AvailableSeats)
	_, err = s.ReserveSeat(ctx, models.Booking{RideID: rideID, PassengerID: p1})
	assert.NoError(t, err)
}

func TestReserveSeatConcurrentNeverOverbooks(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, rideID := seedRide(t, s, 3)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		pid := seedPassenger(t, s, "p"+string(rune('a'+i))+"@uni.edu")
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.ReserveSeat(ctx, models.Booking{RideID: rideID, PassengerID: pid})
		}()
	}
	wg.Wait()

	bookings, _ := s.ListBookingsByRide(ctx, rideID)
	assert.Len(t, bookings, 3)
	ride, _ := s.GetRide(ctx, rideID)
	assert.Equal(t, 0, ride.AvailableSeats)
}

func TestUpdateBookingStatusIsCompareAndSet(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, rideID := seedRide(t, s, 2)
	p := seedPassenger(t, s, "p@uni.edu")
	b, _ := s.ReserveSeat(ctx, models.Booking{RideID: rideID, PassengerID: p})

	_, err := s.UpdateBookingStatus(ctx, b.ID, models.BookingConfirmed, models.BookingCompleted)
	assert.ErrorIs(t, err, repositories.ErrStaleStatus)
	_, err = s.UpdateBookingStatus(ctx, 999, models.BookingPending, models.BookingConfirmed)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestCancelRideCascadesOnlyActiveBookings(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, rideID := seedRide(t, s, 4)
	ids := map[string]int64{}
	for _, name := range []string{"pending", "confirmed", "cancelled", "completed"} {
		pid := seedPassenger(t, s, name+"@uni.edu")
		b, err := s.ReserveSeat(ctx, models.Booking{RideID: rideID, PassengerID: pid})
		require.NoError(t, err)
		ids[name] = b.ID
	}
	_, _ = s.UpdateBookingStatus(ctx, ids["confirmed"], models.BookingPending, models.BookingConfirmed)
	_, _ = s.UpdateBookingStatus(ctx, ids["cancelled"], models.BookingPending, models.BookingCancelled)
	_, _ = s.UpdateBookingStatus(ctx, ids["completed"], models.BookingPending, models.BookingConfirmed)
	_, _ = s.UpdateBookingStatus(ctx, ids["completed"], models.BookingConfirmed, models.BookingCompleted)

	n, err := s.CancelRide(ctx, rideID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	expect := map[string]models.BookingStatus{
		"pending":   models.BookingCancelled,
		"confirmed": models.BookingCancelled,
		"cancelled": models.BookingCancelled,
		"completed": models.BookingCompleted,
	}
	for name, want := range expect {
		b, _ := s.GetBooking(ctx, ids[name])
		assert.Equal(t, want, b.Status, name)
	}
	ride, _ := s.GetRide(ctx, rideID)
	assert.Equal(t, models.RideCancelled, ride.Status)

	_, err = s.ReserveSeat(ctx, models.Booking{RideID: rideID, PassengerID: seedPassenger(t, s, "late@uni.edu")})
	assert.ErrorIs(t, err, repositories.ErrRideNotActive)
}

func TestUpdateRideRejectsCapacityBelowHeld(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, rideID := seedRide(t, s, 3)
	for _, e := range []string{"a@uni.edu", "b@uni.edu"} {
		_, err := s.ReserveSeat(ctx, models.Booking{RideID: rideID, PassengerID: seedPassenger(t, s, e)})
		require.NoError(t, err)
	}
	ride, _ := s.GetRide(ctx, rideID)
	ride.TotalSeats = 1
	_, err := s.UpdateRide(ctx, ride)
	assert.ErrorIs(t, err, repositories.ErrCapacityBelowHeld)

	ride.TotalSeats = 2
	updated, err := s.UpdateRide(ctx, ride)
	require.NoError(t, err)
	assert.Equal(t, 0, updated.AvailableSeats)
}

func TestListRidesFilters(t *testing.T) {
	s := New()
	ctx := context.Background()
	driverID, _ := seedRide(t, s, 2)
	_, err := s.CreateRide(ctx, models.Ride{
		DriverID: driverID, Origin: "South Gate", Destination: "Airport",
		DepartureTime: time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC), TotalSeats: 1, Status: models.RideActive,
	})
	require.NoError(t, err)

	all, _ := s.ListRides(ctx, models.RideFilter{Status: models.RideActive})
	assert.Len(t, all, 2)
	assert.Equal(t, "North Campus", all[0].Origin)

	byDest, _ := s.ListRides(ctx, models.RideFilter{Destination: "airp"})
	require.Len(t, byDest, 1)
	assert.Equal(t, "South Gate", byDest[0].Origin)

	day := time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)
	byDate, _ := s.ListRides(ctx, models.RideFilter{Date: &day})
	require.Len(t, byDate, 1)
	assert.Equal(t, "Central Station", byDate[0].Destination)
}

func TestCreateReviewRecomputesAggregate(t *testing.T) {
	s := New()
	ctx := context.Background()
	driverID, rideID := seedRide(t, s, 3)
	for i, rating := range []int{4, 5} {
		_, _, err := s.CreateReview(ctx, models.Review{
			RideID: rideID, ReviewerID: int64(100 + i), RevieweeID: driverID, Rating: rating,
		})
		require.NoError(t, err)
	}
	_, summary, err := s.CreateReview(ctx, models.Review{RideID: rideID, ReviewerID: 200, RevieweeID: driverID, Rating: 3})
	require.NoError(t, err)
	assert.Equal(t, models.RatingSummary{Rating: 4.0, ReviewCount: 3}, summary)

	driver, _ := s.GetUser(ctx, driverID)
	assert.Equal(t, 4.0, driver.Rating)
	assert.Equal(t, 3, driver.ReviewCount)

	_, _, err = s.CreateReview(ctx, models.Review{RideID: rideID, ReviewerID: 200, RevieweeID: driverID, Rating: 1})
	assert.ErrorIs(t, err, repositories.ErrDuplicate)

	reviews, _ := s.ListReviewsForUser(ctx, driverID)
	require.Len(t, reviews, 3)
	assert.Equal(t, 3, reviews[0].Rating)
}

func TestMessagesConversationAndUnread(t *testing.T) {
	s := New()
	ctx := context.Background()
	m1, _ := s.CreateMessage(ctx, models.Message{SenderID: 1, ReceiverID: 2, Content: "hi"})
	_, _ = s.CreateMessage(ctx, models.Message{SenderID: 2, ReceiverID: 1, Content: "hello"})
	_, _ = s.CreateMessage(ctx, models.Message{SenderID: 3, ReceiverID: 2, Content: "ride?"})

	conv, _ := s.ListConversation(ctx, 2, 1)
	require.Len(t, conv, 2)
	assert.Equal(t, "hi", conv[0].Content)

	n, _ := s.CountUnread(ctx, 2)
	assert.Equal(t, 2, n)
	read, err := s.MarkMessageRead(ctx, m1.ID)
	require.NoError(t, err)
	assert.True(t, read.IsRead)
	n, _ = s.CountUnread(ctx, 2)
	assert.Equal(t, 1, n)

	all, _ := s.ListMessagesForUser(ctx, 2)
	require.Len(t, all, 3)
	assert.Equal(t, "ride?", all[0].Content)
}

func TestResolveAlertOnce(t *testing.T) {
	s := New()
	ctx := context.Background()
	a, err := s.CreateAlert(ctx, models.EmergencyAlert{UserID: 1, RideID: 1, Type: models.EmergencyMedical, Status: models.AlertResolved})
	require.NoError(t, err)
	assert.Equal(t, models.AlertActive, a.Status)

	at := time.Date(2026, 3, 3, 8, 0, 0, 0, time.UTC)
	resolved, err := s.ResolveAlert(ctx, a.ID, at)
	require.NoError(t, err)
	assert.Equal(t, models.AlertResolved, resolved.Status)
	require.NotNil(t, resolved.ResolvedAt)
	assert.True(t, resolved.ResolvedAt.Equal(at))

	_, err = s.ResolveAlert(ctx, a.ID, at)
	assert.ErrorIs(t, err, repositories.ErrStaleStatus)
}

func TestContactsOrderedPrimaryFirst(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, _ = s.CreateContact(ctx, models.EmergencyContact{UserID: 1, Name: "Sam"})
	_, _ = s.CreateContact(ctx, models.EmergencyContact{UserID: 1, Name: "Mum", IsPrimary: true})
	_, _ = s.CreateContact(ctx, models.EmergencyContact{UserID: 2, Name: "Other"})

	list, _ := s.ListContacts(ctx, 1)
	require.Len(t, list, 2)
	assert.Equal(t, "Mum", list[0].Name)

	require.NoError(t, s.DeleteContact(ctx, list[1].ID))
	assert.ErrorIs(t, s.DeleteContact(ctx, list[1].ID), repositories.ErrNotFound)
}
