package services

import (
	"context"
	"fmt"
	"strings"

	"campusride/internal/domain"
	"campusride/internal/domain/models"
	"campusride/internal/events"
	"campusride/internal/repositories"

	"go.uber.org/zap"
)

const maxBookingMessage = 500

type BookingService struct {
	Store  repositories.Store
	Events events.Publisher
	Log    *zap.Logger
}

// Create reserves one seat for the passenger. Capacity, ride status and the
// one-active-booking rule are checked atomically by the store.
func (s BookingService) Create(ctx context.Context, passenger models.User, rideID int64, message string) (models.Booking, error) {
	if rideID <= 0 {
		return models.Booking{}, domain.ValidationError{Field: "rideId", Msg: "is required"}
	}
	message = strings.TrimSpace(message)
	if len([]rune(message)) > maxBookingMessage {
		return models.Booking{}, domain.ValidationError{Field: "message", Msg: "must be at most 500 characters"}
	}

	ride, err := s.Store.GetRide(ctx, rideID)
	if err != nil {
		return models.Booking{}, translate(err, "ride")
	}
	if ride.DriverID == passenger.ID {
		return models.Booking{}, domain.ValidationError{Field: "rideId", Msg: "you cannot book your own ride"}
	}

	booking, err := s.Store.ReserveSeat(ctx, models.Booking{
		RideID:      rideID,
		PassengerID: passenger.ID,
		Seats:       1,
		Message:     message,
	})
	if err != nil {
		return models.Booking{}, translate(err, "booking")
	}

	log := moduleLogger(ctx, s.Log, "bookings")
	log.Info("booking created",
		zap.String("action", "create"),
		zap.Int64("booking_id", booking.ID),
		zap.Int64("ride_id", rideID),
		zap.Int64("passenger_id", passenger.ID),
	)
	publish(ctx, s.Events, log, events.New(events.BookingCreated, map[string]any{
		"bookingId":   booking.ID,
		"rideId":      rideID,
		"passengerId": passenger.ID,
		"driverId":    ride.DriverID,
	}))
	return booking, nil
}

func (s BookingService) ListMine(ctx context.Context, passengerID int64) ([]models.BookingDetail, error) {
	bookings, err := s.Store.ListBookingsByPassenger(ctx, passengerID)
	if err != nil {
		return nil, translate(err, "booking")
	}

	rides := map[int64]models.Ride{}
	out := make([]models.BookingDetail, 0, len(bookings))
	for _, b := range bookings {
		ride, ok := rides[b.RideID]
		if !ok {
			ride, err = s.Store.GetRide(ctx, b.RideID)
			if err != nil {
				return nil, translate(err, "ride")
			}
			rides[b.RideID] = ride
		}
		out = append(out, models.BookingDetail{Booking: b, Ride: ride})
	}
	return out, nil
}

// participant loads the booking and its ride and reports the requester's role.
func (s BookingService) participant(ctx context.Context, requester models.User, id int64) (models.Booking, models.Ride, bool, error) {
	booking, err := s.Store.GetBooking(ctx, id)
	if err != nil {
		return models.Booking{}, models.Ride{}, false, translate(err, "booking")
	}
	ride, err := s.Store.GetRide(ctx, booking.RideID)
	if err != nil {
		return models.Booking{}, models.Ride{}, false, translate(err, "ride")
	}
	isDriver := ride.DriverID == requester.ID
	if !isDriver && booking.PassengerID != requester.ID {
		return models.Booking{}, models.Ride{}, false, domain.ForbiddenError{Msg: "you are not part of this booking"}
	}
	return booking, ride, isDriver, nil
}

func (s BookingService) Get(ctx context.Context, requester models.User, id int64) (models.BookingDetail, error) {
	booking, ride, _, err := s.participant(ctx, requester, id)
	if err != nil {
		return models.BookingDetail{}, err
	}
	return models.BookingDetail{Booking: booking, Ride: ride}, nil
}

// UpdateStatus moves a booking along its lifecycle. The driver may confirm,
// cancel or complete; the passenger may only cancel.
func (s BookingService) UpdateStatus(ctx context.Context, requester models.User, id int64, to models.BookingStatus) (models.Booking, error) {
	if !to.Valid() {
		return models.Booking{}, domain.ValidationError{Field: "status", Msg: "must be one of pending, confirmed, cancelled, completed"}
	}

	booking, ride, isDriver, err := s.participant(ctx, requester, id)
	if err != nil {
		return models.Booking{}, err
	}
	if !isDriver && to != models.BookingCancelled {
		return models.Booking{}, domain.ForbiddenError{Msg: "passengers can only cancel their booking"}
	}
	if !models.CanTransition(booking.Status, to) {
		return models.Booking{}, domain.ValidationError{
			Field: "status",
			Msg:   fmt.Sprintf("cannot change booking from %s to %s", booking.Status, to),
		}
	}

	updated, err := s.Store.UpdateBookingStatus(ctx, id, booking.Status, to)
	if err != nil {
		return models.Booking{}, translate(err, "booking")
	}

	log := moduleLogger(ctx, s.Log, "bookings")
	log.Info("booking status changed",
		zap.String("action", "update_status"),
		zap.Int64("booking_id", id),
		zap.String("from", string(booking.Status)),
		zap.String("to", string(to)),
		zap.Int64("actor_id", requester.ID),
	)
	publish(ctx, s.Events, log, events.New(events.BookingStatusChanged, map[string]any{
		"bookingId":   id,
		"rideId":      ride.ID,
		"passengerId": booking.PassengerID,
		"from":        booking.Status,
		"to":          to,
	}))
	return updated, nil
}

func (s BookingService) Delete(ctx context.Context, requester models.User, id int64) error {
	if _, _, _, err := s.participant(ctx, requester, id); err != nil {
		return err
	}
	if err := s.Store.DeleteBooking(ctx, id); err != nil {
		return translate(err, "booking")
	}
	moduleLogger(ctx, s.Log, "bookings").Info("booking deleted",
		zap.String("action", "delete"),
		zap.Int64("booking_id", id),
		zap.Int64("actor_id", requester.ID),
	)
	return nil
}
