package repositories

import (
	"context"
	"errors"
	"time"

	"campusride/internal/domain/models"
)

// Sentinel errors shared by every Store implementation. Services translate
// them into domain errors.
var (
	ErrNotFound            = errors.New("record not found")
	ErrDuplicate           = errors.New("duplicate record")
	ErrNoSeats             = errors.New("no seats available")
	ErrActiveBookingExists = errors.New("passenger already holds an active booking on this ride")
	ErrRideNotActive       = errors.New("ride is not active")
	ErrCapacityBelowHeld   = errors.New("total seats below seats already held")
	ErrStaleStatus         = errors.New("status changed concurrently")
)

type UserRepository interface {
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	GetUser(ctx context.Context, id int64) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	UpdateUser(ctx context.Context, user models.User) (models.User, error)
}

// RideRepository returns rides with AvailableSeats already derived from
// seat-holding bookings.
type RideRepository interface {
	CreateRide(ctx context.Context, ride models.Ride) (models.Ride, error)
	GetRide(ctx context.Context, id int64) (models.Ride, error)
	ListRides(ctx context.Context, filter models.RideFilter) ([]models.Ride, error)
	// UpdateRide persists mutable fields; it fails with ErrCapacityBelowHeld
	// when TotalSeats would drop under the seats currently held.
	UpdateRide(ctx context.Context, ride models.Ride) (models.Ride, error)
	// CancelRide marks the ride cancelled and cancels its pending/confirmed
	// bookings in one step. It returns the number of bookings cancelled.
	CancelRide(ctx context.Context, id int64) (int, error)
}

type BookingRepository interface {
	// ReserveSeat inserts a pending booking after checking, atomically, that
	// the ride is active, has a free seat and that the passenger holds no
	// other non-cancelled booking on it.
	ReserveSeat(ctx context.Context, booking models.Booking) (models.Booking, error)
	GetBooking(ctx context.Context, id int64) (models.Booking, error)
	ListBookingsByRide(ctx context.Context, rideID int64) ([]models.Booking, error)
	ListBookingsByPassenger(ctx context.Context, passengerID int64) ([]models.Booking, error)
	// UpdateBookingStatus is a compare-and-set: ErrStaleStatus when the stored
	// status is no longer from.
	UpdateBookingStatus(ctx context.Context, id int64, from, to models.BookingStatus) (models.Booking, error)
	DeleteBooking(ctx context.Context, id int64) error
}

type MessageRepository interface {
	CreateMessage(ctx context.Context, msg models.Message) (models.Message, error)
	GetMessage(ctx context.Context, id int64) (models.Message, error)
	// ListConversation returns messages exchanged between a and b, oldest first.
	ListConversation(ctx context.Context, a, b int64) ([]models.Message, error)
	// ListMessagesForUser returns messages sent or received by userID, newest first.
	ListMessagesForUser(ctx context.Context, userID int64) ([]models.Message, error)
	MarkMessageRead(ctx context.Context, id int64) (models.Message, error)
	CountUnread(ctx context.Context, userID int64) (int, error)
}

type ReviewRepository interface {
	// CreateReview inserts the review and recomputes the reviewee's rating
	// aggregate in one step. ErrDuplicate when the reviewer already reviewed
	// this reviewee for the ride.
	CreateReview(ctx context.Context, review models.Review) (models.Review, models.RatingSummary, error)
	ListReviewsForUser(ctx context.Context, revieweeID int64) ([]models.Review, error)
}

type EmergencyRepository interface {
	CreateContact(ctx context.Context, contact models.EmergencyContact) (models.EmergencyContact, error)
	GetContact(ctx context.Context, id int64) (models.EmergencyContact, error)
	ListContacts(ctx context.Context, userID int64) ([]models.EmergencyContact, error)
	UpdateContact(ctx context.Context, contact models.EmergencyContact) (models.EmergencyContact, error)
	DeleteContact(ctx context.Context, id int64) error

	CreateAlert(ctx context.Context, alert models.EmergencyAlert) (models.EmergencyAlert, error)
	GetAlert(ctx context.Context, id int64) (models.EmergencyAlert, error)
	ListAlerts(ctx context.Context, userID int64) ([]models.EmergencyAlert, error)
	ResolveAlert(ctx context.Context, id int64, at time.Time) (models.EmergencyAlert, error)
}

// Store is the capability set every storage backend provides. Exactly one
// implementation is selected at process start.
type Store interface {
	UserRepository
	RideRepository
	BookingRepository
	MessageRepository
	ReviewRepository
	EmergencyRepository

	Ping(ctx context.Context) error
	Close() error
}
