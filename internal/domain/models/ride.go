package models

import "time"

type RideStatus string

const (
	RideActive    RideStatus = "active"
	RideCancelled RideStatus = "cancelled"
)

func (s RideStatus) Valid() bool {
	return s == RideActive || s == RideCancelled
}

// Ride is a driver-posted trip offer. AvailableSeats is never stored: it is
// derived from TotalSeats and the bookings currently holding a seat.
type Ride struct {
	ID             int64      `json:"id"`
	DriverID       int64      `json:"driverId"`
	Origin         string     `json:"origin"`
	Destination    string     `json:"destination"`
	DepartureTime  time.Time  `json:"departureTime"`
	Price          float64    `json:"price"`
	TotalSeats     int        `json:"totalSeats"`
	AvailableSeats int        `json:"availableSeats"`
	Description    string     `json:"description"`
	IsRecurring    bool       `json:"isRecurring"`
	RecurringDays  string     `json:"recurringDays"`
	Status         RideStatus `json:"status"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// WithHeldSeats fills AvailableSeats from the number of seat-holding bookings.
func (r Ride) WithHeldSeats(held int) Ride {
	r.AvailableSeats = AvailableSeats(r.TotalSeats, held)
	return r
}

// AvailableSeats is capacity minus held seats, never below zero.
func AvailableSeats(total, held int) int {
	if held >= total {
		return 0
	}
	return total - held
}

// RideFilter narrows ride listings. Zero values mean "any".
type RideFilter struct {
	DriverID    int64
	Status      RideStatus
	Origin      string
	Destination string
	Date        *time.Time
}

// RideUpdate supports PATCH-style updates via pointer presence.
type RideUpdate struct {
	Origin        *string
	Destination   *string
	DepartureTime *time.Time
	Price         *float64
	TotalSeats    *int
	Description   *string
	IsRecurring   *bool
	RecurringDays *string
	Status        *RideStatus
}

// Apply copies the present fields (except Status) onto r.
func (p RideUpdate) Apply(r *Ride) {
	if p.Origin != nil {
		r.Origin = *p.Origin
	}
	if p.Destination != nil {
		r.Destination = *p.Destination
	}
	if p.DepartureTime != nil {
		r.DepartureTime = *p.DepartureTime
	}
	if p.Price != nil {
		r.Price = *p.Price
	}
	if p.TotalSeats != nil {
		r.TotalSeats = *p.TotalSeats
	}
	if p.Description != nil {
		r.Description = *p.Description
	}
	if p.IsRecurring != nil {
		r.IsRecurring = *p.IsRecurring
	}
	if p.RecurringDays != nil {
		r.RecurringDays = *p.RecurringDays
	}
}
