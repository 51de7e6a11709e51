package models

import "time"

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingCompleted BookingStatus = "completed"
)

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingPending, BookingConfirmed, BookingCancelled, BookingCompleted:
		return true
	}
	return false
}

// HoldsSeat reports whether a booking in this status counts against ride capacity.
func (s BookingStatus) HoldsSeat() bool {
	return s == BookingPending || s == BookingConfirmed || s == BookingCompleted
}

// SeatHoldingStatuses lists the statuses counted by HoldsSeat, for SQL IN clauses.
var SeatHoldingStatuses = []BookingStatus{BookingPending, BookingConfirmed, BookingCompleted}

var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingPending:   {BookingConfirmed, BookingCancelled},
	BookingConfirmed: {BookingCancelled, BookingCompleted},
}

// CanTransition reports whether from -> to is a lifecycle edge.
func CanTransition(from, to BookingStatus) bool {
	for _, next := range bookingTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type Booking struct {
	ID          int64         `json:"id"`
	RideID      int64         `json:"rideId"`
	PassengerID int64         `json:"passengerId"`
	Seats       int           `json:"seats"`
	Message     string        `json:"message"`
	Status      BookingStatus `json:"status"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// BookingDetail is a booking joined with its ride for passenger/driver views.
type BookingDetail struct {
	Booking
	Ride Ride `json:"ride"`
}

// RideBooking is a booking as the driver sees it, with the passenger profile.
type RideBooking struct {
	Booking
	Passenger PublicUser `json:"passenger"`
}
