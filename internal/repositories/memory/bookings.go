package memory

import (
	"context"
	"sort"

	"campusride/internal/domain/models"
	"campusride/internal/repositories"
)

func (s *Store) ReserveSeat(ctx context.Context, booking models.Booking) (models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ride, ok := s.rides[booking.RideID]
	if !ok {
		return models.Booking{}, repositories.ErrNotFound
	}
	if ride.Status != models.RideActive {
		return models.Booking{}, repositories.ErrRideNotActive
	}
	for _, b := range s.bookings {
		if b.RideID == booking.RideID && b.PassengerID == booking.PassengerID && b.Status != models.BookingCancelled {
			return models.Booking{}, repositories.ErrActiveBookingExists
		}
	}
	if booking.Seats <= 0 {
		booking.Seats = 1
	}
	if models.AvailableSeats(ride.TotalSeats, s.heldSeats(ride.ID)) < booking.Seats {
		return models.Booking{}, repositories.ErrNoSeats
	}

	s.seq.booking++
	now := s.now()
	booking.ID = s.seq.booking
	booking.Status = models.BookingPending
	booking.CreatedAt = now
	booking.UpdatedAt = now
	s.bookings[booking.ID] = booking
	return booking, nil
}

func (s *Store) GetBooking(ctx context.Context, id int64) (models.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.bookings[id]
	if !ok {
		return models.Booking{}, repositories.ErrNotFound
	}
	return b, nil
}

func (s *Store) ListBookingsByRide(ctx context.Context, rideID int64) ([]models.Booking, error) {
	return s.listBookings(func(b models.Booking) bool { return b.RideID == rideID }), nil
}

func (s *Store) ListBookingsByPassenger(ctx context.Context, passengerID int64) ([]models.Booking, error) {
	return s.listBookings(func(b models.Booking) bool { return b.PassengerID == passengerID }), nil
}

func (s *Store) listBookings(keep func(models.Booking) bool) []models.Booking {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.Booking{}
	for _, b := range s.bookings {
		if keep(b) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) UpdateBookingStatus(ctx context.Context, id int64, from, to models.BookingStatus) (models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[id]
	if !ok {
		return models.Booking{}, repositories.ErrNotFound
	}
	if b.Status != from {
		return models.Booking{}, repositories.ErrStaleStatus
	}
	b.Status = to
	b.UpdatedAt = s.now()
	s.bookings[id] = b
	return b, nil
}

func (s *Store) DeleteBooking(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.bookings[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.bookings, id)
	return nil
}
