package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"campusride/internal/domain"
	"campusride/internal/domain/models"
	"campusride/internal/events"
	"campusride/internal/repositories"
	"campusride/internal/utils"

	"go.uber.org/zap"
)

const (
	minSeats = 1
	maxSeats = 8
)

type RideInput struct {
	Origin        string
	Destination   string
	DepartureTime time.Time
	Price         float64
	TotalSeats    int
	Description   string
	IsRecurring   bool
	RecurringDays string
}

type RideService struct {
	Store  repositories.Store
	Events events.Publisher
	Log    *zap.Logger
	Now    func() time.Time
}

func (s RideService) validate(r models.Ride, checkDeparture bool) error {
	if strings.TrimSpace(r.Origin) == "" {
		return domain.ValidationError{Field: "origin", Msg: "is required"}
	}
	if strings.TrimSpace(r.Destination) == "" {
		return domain.ValidationError{Field: "destination", Msg: "is required"}
	}
	if r.TotalSeats < minSeats || r.TotalSeats > maxSeats {
		return domain.ValidationError{Field: "totalSeats", Msg: "must be between 1 and 8"}
	}
	if r.Price < 0 {
		return domain.ValidationError{Field: "price", Msg: "cannot be negative"}
	}
	if checkDeparture && !r.DepartureTime.After(nowFunc(s.Now)) {
		return domain.ValidationError{Field: "departureTime", Msg: "must be in the future"}
	}
	return nil
}

func (s RideService) Create(ctx context.Context, driver models.User, in RideInput) (models.Ride, error) {
	if !driver.IsDriver {
		return models.Ride{}, domain.ForbiddenError{Msg: "only drivers can post rides"}
	}

	ride := models.Ride{
		DriverID:      driver.ID,
		Origin:        utils.NormalizeSpace(in.Origin),
		Destination:   utils.NormalizeSpace(in.Destination),
		DepartureTime: in.DepartureTime.UTC(),
		Price:         in.Price,
		TotalSeats:    in.TotalSeats,
		Description:   strings.TrimSpace(in.Description),
		IsRecurring:   in.IsRecurring,
		RecurringDays: strings.TrimSpace(in.RecurringDays),
		Status:        models.RideActive,
	}
	if err := s.validate(ride, true); err != nil {
		return models.Ride{}, err
	}

	created, err := s.Store.CreateRide(ctx, ride)
	if err != nil {
		return models.Ride{}, translate(err, "ride")
	}

	moduleLogger(ctx, s.Log, "rides").Info("ride created",
		zap.String("action", "create"),
		zap.Int64("ride_id", created.ID),
		zap.Int64("driver_id", driver.ID),
		zap.Int("total_seats", created.TotalSeats),
	)
	return created, nil
}

func (s RideService) Get(ctx context.Context, id int64) (models.Ride, error) {
	r, err := s.Store.GetRide(ctx, id)
	return r, translate(err, "ride")
}

// List returns active rides only.
func (s RideService) List(ctx context.Context, filter models.RideFilter) ([]models.Ride, error) {
	filter.Status = models.RideActive
	filter.DriverID = 0
	rides, err := s.Store.ListRides(ctx, filter)
	return rides, translate(err, "ride")
}

// ListByDriver returns every ride of the driver, any status. A driver may
// only list their own rides.
func (s RideService) ListByDriver(ctx context.Context, requester models.User, driverID int64) ([]models.Ride, error) {
	if !requester.IsDriver {
		return nil, domain.ForbiddenError{Msg: "only drivers can list driver rides"}
	}
	if requester.ID != driverID {
		return nil, domain.ForbiddenError{Msg: "you can only list your own rides"}
	}
	rides, err := s.Store.ListRides(ctx, models.RideFilter{DriverID: driverID})
	return rides, translate(err, "ride")
}

func (s RideService) owned(ctx context.Context, requester models.User, id int64) (models.Ride, error) {
	ride, err := s.Store.GetRide(ctx, id)
	if err != nil {
		return models.Ride{}, translate(err, "ride")
	}
	if ride.DriverID != requester.ID {
		return models.Ride{}, domain.ForbiddenError{Msg: "you are not the driver of this ride"}
	}
	return ride, nil
}

func (s RideService) Update(ctx context.Context, requester models.User, id int64, patch models.RideUpdate) (models.Ride, error) {
	ride, err := s.owned(ctx, requester, id)
	if err != nil {
		return models.Ride{}, err
	}
	if ride.Status == models.RideCancelled {
		return models.Ride{}, domain.ValidationError{Field: "status", Msg: "ride is cancelled"}
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return models.Ride{}, domain.ValidationError{Field: "status", Msg: "must be active or cancelled"}
	}

	if hasFieldChanges(patch) {
		patch.Apply(&ride)
		ride.Origin = utils.NormalizeSpace(ride.Origin)
		ride.Destination = utils.NormalizeSpace(ride.Destination)
		ride.DepartureTime = ride.DepartureTime.UTC()
		if err := s.validate(ride, patch.DepartureTime != nil); err != nil {
			return models.Ride{}, err
		}
		ride, err = s.Store.UpdateRide(ctx, ride)
		if err != nil {
			return models.Ride{}, translate(err, "ride")
		}
		moduleLogger(ctx, s.Log, "rides").Info("ride updated",
			zap.String("action", "update"),
			zap.Int64("ride_id", id),
		)
	}

	if patch.Status != nil && *patch.Status == models.RideCancelled {
		return s.cancel(ctx, ride)
	}
	return ride, nil
}

func hasFieldChanges(p models.RideUpdate) bool {
	return p.Origin != nil || p.Destination != nil || p.DepartureTime != nil || p.Price != nil ||
		p.TotalSeats != nil || p.Description != nil || p.IsRecurring != nil || p.RecurringDays != nil
}

// Cancel soft-deletes the ride and cancels its pending and confirmed bookings.
func (s RideService) Cancel(ctx context.Context, requester models.User, id int64) (models.Ride, error) {
	ride, err := s.owned(ctx, requester, id)
	if err != nil {
		return models.Ride{}, err
	}
	if ride.Status == models.RideCancelled {
		return models.Ride{}, domain.ValidationError{Field: "status", Msg: "ride is already cancelled"}
	}
	return s.cancel(ctx, ride)
}

func (s RideService) cancel(ctx context.Context, ride models.Ride) (models.Ride, error) {
	n, err := s.Store.CancelRide(ctx, ride.ID)
	if err != nil {
		return models.Ride{}, translate(err, "ride")
	}

	log := moduleLogger(ctx, s.Log, "rides")
	log.Info("ride cancelled",
		zap.String("action", "cancel"),
		zap.Int64("ride_id", ride.ID),
		zap.Int("bookings_cancelled", n),
	)
	publish(ctx, s.Events, log, events.New(events.RideCancelled, map[string]any{
		"rideId":            ride.ID,
		"driverId":          ride.DriverID,
		"bookingsCancelled": n,
	}))

	return s.Get(ctx, ride.ID)
}

// ListBookings returns the ride's bookings with passenger profiles, for the
// ride's driver only.
func (s RideService) ListBookings(ctx context.Context, requester models.User, rideID int64) ([]models.RideBooking, error) {
	if _, err := s.owned(ctx, requester, rideID); err != nil {
		return nil, err
	}
	bookings, err := s.Store.ListBookingsByRide(ctx, rideID)
	if err != nil {
		return nil, translate(err, "booking")
	}

	out := make([]models.RideBooking, 0, len(bookings))
	for _, b := range bookings {
		item := models.RideBooking{Booking: b}
		p, err := s.Store.GetUser(ctx, b.PassengerID)
		switch {
		case err == nil:
			item.Passenger = p.ToPublic()
		case errors.Is(err, repositories.ErrNotFound):
			item.Passenger = models.PublicUser{ID: b.PassengerID}
		default:
			return nil, translate(err, "user")
		}
		out = append(out, item)
	}
	return out, nil
}
