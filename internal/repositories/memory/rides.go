package memory

import (
	"context"
	"sort"
	"strings"

	"campusride/internal/domain/models"
	"campusride/internal/repositories"
)

// heldSeats counts seat-holding bookings on a ride. Caller holds s.mu.
func (s *Store) heldSeats(rideID int64) int {
	held := 0
	for _, b := range s.bookings {
		if b.RideID == rideID && b.Status.HoldsSeat() {
			held += b.Seats
		}
	}
	return held
}

func (s *Store) derive(r models.Ride) models.Ride {
	return r.WithHeldSeats(s.heldSeats(r.ID))
}

func (s *Store) CreateRide(ctx context.Context, ride models.Ride) (models.Ride, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq.ride++
	now := s.now()
	ride.ID = s.seq.ride
	ride.CreatedAt = now
	ride.UpdatedAt = now
	s.rides[ride.ID] = ride
	return s.derive(ride), nil
}

func (s *Store) GetRide(ctx context.Context, id int64) (models.Ride, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rides[id]
	if !ok {
		return models.Ride{}, repositories.ErrNotFound
	}
	return s.derive(r), nil
}

func (s *Store) ListRides(ctx context.Context, filter models.RideFilter) ([]models.Ride, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.Ride{}
	for _, r := range s.rides {
		if !matchRide(r, filter) {
			continue
		}
		out = append(out, s.derive(r))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DepartureTime.Equal(out[j].DepartureTime) {
			return out[i].ID < out[j].ID
		}
		return out[i].DepartureTime.Before(out[j].DepartureTime)
	})
	return out, nil
}

func matchRide(r models.Ride, f models.RideFilter) bool {
	if f.DriverID != 0 && r.DriverID != f.DriverID {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if f.Origin != "" && !containsFold(r.Origin, f.Origin) {
		return false
	}
	if f.Destination != "" && !containsFold(r.Destination, f.Destination) {
		return false
	}
	if f.Date != nil {
		y1, m1, d1 := r.DepartureTime.UTC().Date()
		y2, m2, d2 := f.Date.UTC().Date()
		if y1 != y2 || m1 != m2 || d1 != d2 {
			return false
		}
	}
	return true
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(strings.TrimSpace(sub)))
}

func (s *Store) UpdateRide(ctx context.Context, ride models.Ride) (models.Ride, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.rides[ride.ID]
	if !ok {
		return models.Ride{}, repositories.ErrNotFound
	}
	if ride.TotalSeats < s.heldSeats(ride.ID) {
		return models.Ride{}, repositories.ErrCapacityBelowHeld
	}
	ride.DriverID = existing.DriverID
	ride.Status = existing.Status
	ride.CreatedAt = existing.CreatedAt
	ride.UpdatedAt = s.now()
	s.rides[ride.ID] = ride
	return s.derive(ride), nil
}

func (s *Store) CancelRide(ctx context.Context, id int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rides[id]
	if !ok {
		return 0, repositories.ErrNotFound
	}
	now := s.now()
	r.Status = models.RideCancelled
	r.UpdatedAt = now
	s.rides[id] = r

	cancelled := 0
	for bid, b := range s.bookings {
		if b.RideID != id {
			continue
		}
		if b.Status == models.BookingPending || b.Status == models.BookingConfirmed {
			b.Status = models.BookingCancelled
			b.UpdatedAt = now
			s.bookings[bid] = b
			cancelled++
		}
	}
	return cancelled, nil
}
