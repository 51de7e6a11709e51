package mysql

import (
	"context"
	"database/sql"
	"time"

	"campusride/internal/domain/models"
	"campusride/internal/repositories"
)

const contactColumns = `id, user_id, name, phone, relationship, is_primary, created_at`

func scanContact(row rowScanner) (models.EmergencyContact, error) {
	var c models.EmergencyContact
	err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.Phone, &c.Relationship, &c.IsPrimary, &c.CreatedAt)
	return c, err
}

func (s *Store) CreateContact(ctx context.Context, contact models.EmergencyContact) (models.EmergencyContact, error) {
	now := s.now()
	res, err := s.DB.ExecContext(ctx, `
		INSERT INTO emergency_contacts (user_id, name, phone, relationship, is_primary, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		contact.UserID, contact.Name, contact.Phone, contact.Relationship, contact.IsPrimary, now,
	)
	if err != nil {
		return models.EmergencyContact{}, mapErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.EmergencyContact{}, err
	}
	contact.ID = id
	contact.CreatedAt = now
	return contact, nil
}

func (s *Store) GetContact(ctx context.Context, id int64) (models.EmergencyContact, error) {
	c, err := scanContact(s.DB.QueryRowContext(ctx, `SELECT `+contactColumns+` FROM emergency_contacts WHERE id = ? LIMIT 1`, id))
	return c, mapErr(err)
}

func (s *Store) ListContacts(ctx context.Context, userID int64) ([]models.EmergencyContact, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT `+contactColumns+` FROM emergency_contacts
		WHERE user_id = ? ORDER BY is_primary DESC, id ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.EmergencyContact{}
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return out, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) UpdateContact(ctx context.Context, contact models.EmergencyContact) (models.EmergencyContact, error) {
	if _, err := s.DB.ExecContext(ctx, `
		UPDATE emergency_contacts SET name = ?, phone = ?, relationship = ?, is_primary = ?
		WHERE id = ?`,
		contact.Name, contact.Phone, contact.Relationship, contact.IsPrimary, contact.ID,
	); err != nil {
		return models.EmergencyContact{}, mapErr(err)
	}
	return s.GetContact(ctx, contact.ID)
}

func (s *Store) DeleteContact(ctx context.Context, id int64) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM emergency_contacts WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

const alertColumns = `id, user_id, ride_id, type, COALESCE(description, ''), latitude, longitude, status, created_at, resolved_at`

func scanAlert(row rowScanner) (models.EmergencyAlert, error) {
	var (
		a           models.EmergencyAlert
		typ, status string
		lat, lng    sql.NullFloat64
		resolvedAt  sql.NullTime
	)
	if err := row.Scan(&a.ID, &a.UserID, &a.RideID, &typ, &a.Description, &lat, &lng, &status, &a.CreatedAt, &resolvedAt); err != nil {
		return models.EmergencyAlert{}, err
	}
	a.Type = models.EmergencyType(typ)
	a.Status = models.AlertStatus(status)
	if lat.Valid {
		v := lat.Float64
		a.Latitude = &v
	}
	if lng.Valid {
		v := lng.Float64
		a.Longitude = &v
	}
	if resolvedAt.Valid {
		v := resolvedAt.Time
		a.ResolvedAt = &v
	}
	return a, nil
}

func nullFloat(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

func (s *Store) CreateAlert(ctx context.Context, alert models.EmergencyAlert) (models.EmergencyAlert, error) {
	now := s.now()
	res, err := s.DB.ExecContext(ctx, `
		INSERT INTO emergency_alerts (user_id, ride_id, type, description, latitude, longitude, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		alert.UserID, alert.RideID, string(alert.Type), nullString(alert.Description),
		nullFloat(alert.Latitude), nullFloat(alert.Longitude), string(models.AlertActive), now,
	)
	if err != nil {
		return models.EmergencyAlert{}, mapErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.EmergencyAlert{}, err
	}
	alert.ID = id
	alert.Status = models.AlertActive
	alert.ResolvedAt = nil
	alert.CreatedAt = now
	return alert, nil
}

func (s *Store) GetAlert(ctx context.Context, id int64) (models.EmergencyAlert, error) {
	a, err := scanAlert(s.DB.QueryRowContext(ctx, `SELECT `+alertColumns+` FROM emergency_alerts WHERE id = ? LIMIT 1`, id))
	return a, mapErr(err)
}

func (s *Store) ListAlerts(ctx context.Context, userID int64) ([]models.EmergencyAlert, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT `+alertColumns+` FROM emergency_alerts
		WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.EmergencyAlert{}
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return out, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) ResolveAlert(ctx context.Context, id int64, at time.Time) (models.EmergencyAlert, error) {
	res, err := s.DB.ExecContext(ctx, `
		UPDATE emergency_alerts SET status = ?, resolved_at = ?
		WHERE id = ? AND status = ?`,
		string(models.AlertResolved), at, id, string(models.AlertActive),
	)
	if err != nil {
		return models.EmergencyAlert{}, err
	}
	if err := requireAffected(res); err != nil {
		if _, getErr := s.GetAlert(ctx, id); getErr != nil {
			return models.EmergencyAlert{}, getErr
		}
		return models.EmergencyAlert{}, repositories.ErrStaleStatus
	}
	return s.GetAlert(ctx, id)
}
