package models

import "time"

type EmergencyType string

const (
	EmergencyMedical  EmergencyType = "medical"
	EmergencySafety   EmergencyType = "safety"
	EmergencyAccident EmergencyType = "accident"
	EmergencyOther    EmergencyType = "other"
)

func (t EmergencyType) Valid() bool {
	switch t {
	case EmergencyMedical, EmergencySafety, EmergencyAccident, EmergencyOther:
		return true
	}
	return false
}

type AlertStatus string

const (
	AlertActive   AlertStatus = "active"
	AlertResolved AlertStatus = "resolved"
)

type EmergencyContact struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"userId"`
	Name         string    `json:"name"`
	Phone        string    `json:"phone"`
	Relationship string    `json:"relationship"`
	IsPrimary    bool      `json:"isPrimary"`
	CreatedAt    time.Time `json:"createdAt"`
}

type EmergencyAlert struct {
	ID          int64         `json:"id"`
	UserID      int64         `json:"userId"`
	RideID      int64         `json:"rideId"`
	Type        EmergencyType `json:"type"`
	Description string        `json:"description"`
	Latitude    *float64      `json:"latitude,omitempty"`
	Longitude   *float64      `json:"longitude,omitempty"`
	Status      AlertStatus   `json:"status"`
	CreatedAt   time.Time     `json:"createdAt"`
	ResolvedAt  *time.Time    `json:"resolvedAt,omitempty"`
}
