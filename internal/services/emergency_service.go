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

	"go.uber.org/zap"
)

type ContactInput struct {
	Name         string
	Phone        string
	Relationship string
	IsPrimary    bool
}

type AlertInput struct {
	RideID      int64
	Type        models.EmergencyType
	Description string
	Latitude    *float64
	Longitude   *float64
}

// AlertResult is returned on raise so the client can show who to call.
type AlertResult struct {
	Alert    models.EmergencyAlert     `json:"alert"`
	Contacts []models.EmergencyContact `json:"contacts"`
}

type EmergencyService struct {
	Store  repositories.Store
	Events events.Publisher
	Log    *zap.Logger
	Now    func() time.Time
}

func (in ContactInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return domain.ValidationError{Field: "name", Msg: "is required"}
	}
	if strings.TrimSpace(in.Phone) == "" {
		return domain.ValidationError{Field: "phone", Msg: "is required"}
	}
	return nil
}

func (s EmergencyService) ListContacts(ctx context.Context, userID int64) ([]models.EmergencyContact, error) {
	contacts, err := s.Store.ListContacts(ctx, userID)
	return contacts, translate(err, "emergency contact")
}

func (s EmergencyService) AddContact(ctx context.Context, userID int64, in ContactInput) (models.EmergencyContact, error) {
	if err := in.validate(); err != nil {
		return models.EmergencyContact{}, err
	}
	c, err := s.Store.CreateContact(ctx, models.EmergencyContact{
		UserID:       userID,
		Name:         strings.TrimSpace(in.Name),
		Phone:        strings.TrimSpace(in.Phone),
		Relationship: strings.TrimSpace(in.Relationship),
		IsPrimary:    in.IsPrimary,
	})
	if err != nil {
		return models.EmergencyContact{}, translate(err, "emergency contact")
	}
	moduleLogger(ctx, s.Log, "emergency").Info("contact added",
		zap.String("action", "add_contact"),
		zap.Int64("user_id", userID),
		zap.Int64("contact_id", c.ID),
	)
	return c, nil
}

func (s EmergencyService) ownContact(ctx context.Context, userID, id int64) (models.EmergencyContact, error) {
	c, err := s.Store.GetContact(ctx, id)
	if err != nil {
		return models.EmergencyContact{}, translate(err, "emergency contact")
	}
	if c.UserID != userID {
		return models.EmergencyContact{}, domain.ForbiddenError{Msg: "this contact belongs to another user"}
	}
	return c, nil
}

func (s EmergencyService) UpdateContact(ctx context.Context, userID, id int64, in ContactInput) (models.EmergencyContact, error) {
	c, err := s.ownContact(ctx, userID, id)
	if err != nil {
		return models.EmergencyContact{}, err
	}
	if err := in.validate(); err != nil {
		return models.EmergencyContact{}, err
	}
	c.Name = strings.TrimSpace(in.Name)
	c.Phone = strings.TrimSpace(in.Phone)
	c.Relationship = strings.TrimSpace(in.Relationship)
	c.IsPrimary = in.IsPrimary

	updated, err := s.Store.UpdateContact(ctx, c)
	return updated, translate(err, "emergency contact")
}

func (s EmergencyService) DeleteContact(ctx context.Context, userID, id int64) error {
	if _, err := s.ownContact(ctx, userID, id); err != nil {
		return err
	}
	return translate(s.Store.DeleteContact(ctx, id), "emergency contact")
}

// Raise records an active alert for a ride and publishes it for external
// responders.
func (s EmergencyService) Raise(ctx context.Context, user models.User, in AlertInput) (AlertResult, error) {
	if !in.Type.Valid() {
		return AlertResult{}, domain.ValidationError{Field: "type", Msg: "must be one of medical, safety, accident, other"}
	}
	if in.Latitude != nil && (*in.Latitude < -90 || *in.Latitude > 90) {
		return AlertResult{}, domain.ValidationError{Field: "latitude", Msg: "must be between -90 and 90"}
	}
	if in.Longitude != nil && (*in.Longitude < -180 || *in.Longitude > 180) {
		return AlertResult{}, domain.ValidationError{Field: "longitude", Msg: "must be between -180 and 180"}
	}
	if in.RideID <= 0 {
		return AlertResult{}, domain.ValidationError{Field: "rideId", Msg: "is required"}
	}
	if _, err := s.Store.GetRide(ctx, in.RideID); err != nil {
		return AlertResult{}, translate(err, "ride")
	}

	alert, err := s.Store.CreateAlert(ctx, models.EmergencyAlert{
		UserID:      user.ID,
		RideID:      in.RideID,
		Type:        in.Type,
		Description: strings.TrimSpace(in.Description),
		Latitude:    in.Latitude,
		Longitude:   in.Longitude,
	})
	if err != nil {
		return AlertResult{}, translate(err, "emergency alert")
	}
	contacts, err := s.Store.ListContacts(ctx, user.ID)
	if err != nil {
		return AlertResult{}, translate(err, "emergency contact")
	}

	log := moduleLogger(ctx, s.Log, "emergency")
	log.Warn("emergency alert raised",
		zap.String("action", "raise_alert"),
		zap.Int64("alert_id", alert.ID),
		zap.Int64("user_id", user.ID),
		zap.Int64("ride_id", in.RideID),
		zap.String("type", string(in.Type)),
		zap.Int("contacts", len(contacts)),
	)
	publish(ctx, s.Events, log, events.New(events.AlertRaised, map[string]any{
		"alert":    alert,
		"userName": user.Name,
		"contacts": contacts,
	}))
	return AlertResult{Alert: alert, Contacts: contacts}, nil
}

func (s EmergencyService) ListAlerts(ctx context.Context, userID int64) ([]models.EmergencyAlert, error) {
	alerts, err := s.Store.ListAlerts(ctx, userID)
	return alerts, translate(err, "emergency alert")
}

func (s EmergencyService) Resolve(ctx context.Context, userID, id int64) (models.EmergencyAlert, error) {
	alert, err := s.Store.GetAlert(ctx, id)
	if err != nil {
		return models.EmergencyAlert{}, translate(err, "emergency alert")
	}
	if alert.UserID != userID {
		return models.EmergencyAlert{}, domain.ForbiddenError{Msg: "this alert belongs to another user"}
	}
	alreadyResolved := domain.ValidationError{Field: "status", Msg: "alert is already resolved"}
	if alert.Status == models.AlertResolved {
		return models.EmergencyAlert{}, alreadyResolved
	}

	resolved, err := s.Store.ResolveAlert(ctx, id, nowFunc(s.Now))
	if errors.Is(err, repositories.ErrStaleStatus) {
		return models.EmergencyAlert{}, alreadyResolved
	}
	if err != nil {
		return models.EmergencyAlert{}, translate(err, "emergency alert")
	}

	log := moduleLogger(ctx, s.Log, "emergency")
	log.Info("emergency alert resolved",
		zap.String("action", "resolve_alert"),
		zap.Int64("alert_id", id),
	)
	publish(ctx, s.Events, log, events.New(events.AlertResolved, map[string]any{"alert": resolved}))
	return resolved, nil
}
