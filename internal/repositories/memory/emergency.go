package memory

import (
	"context"
	"sort"
	"time"

	"campusride/internal/domain/models"
	"campusride/internal/repositories"
)

func (s *Store) CreateContact(ctx context.Context, contact models.EmergencyContact) (models.EmergencyContact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq.contact++
	contact.ID = s.seq.contact
	contact.CreatedAt = s.now()
	s.contacts[contact.ID] = contact
	return contact, nil
}

func (s *Store) GetContact(ctx context.Context, id int64) (models.EmergencyContact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.contacts[id]
	if !ok {
		return models.EmergencyContact{}, repositories.ErrNotFound
	}
	return c, nil
}

func (s *Store) ListContacts(ctx context.Context, userID int64) ([]models.EmergencyContact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.EmergencyContact{}
	for _, c := range s.contacts {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsPrimary != out[j].IsPrimary {
			return out[i].IsPrimary
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) UpdateContact(ctx context.Context, contact models.EmergencyContact) (models.EmergencyContact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.contacts[contact.ID]
	if !ok {
		return models.EmergencyContact{}, repositories.ErrNotFound
	}
	contact.UserID = existing.UserID
	contact.CreatedAt = existing.CreatedAt
	s.contacts[contact.ID] = contact
	return contact, nil
}

func (s *Store) DeleteContact(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.contacts[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.contacts, id)
	return nil
}

func (s *Store) CreateAlert(ctx context.Context, alert models.EmergencyAlert) (models.EmergencyAlert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq.alert++
	alert.ID = s.seq.alert
	alert.Status = models.AlertActive
	alert.ResolvedAt = nil
	alert.CreatedAt = s.now()
	s.alerts[alert.ID] = alert
	return alert, nil
}

func (s *Store) GetAlert(ctx context.Context, id int64) (models.EmergencyAlert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.alerts[id]
	if !ok {
		return models.EmergencyAlert{}, repositories.ErrNotFound
	}
	return a, nil
}

func (s *Store) ListAlerts(ctx context.Context, userID int64) ([]models.EmergencyAlert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.EmergencyAlert{}
	for _, a := range s.alerts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *Store) ResolveAlert(ctx context.Context, id int64, at time.Time) (models.EmergencyAlert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.alerts[id]
	if !ok {
		return models.EmergencyAlert{}, repositories.ErrNotFound
	}
	if a.Status == models.AlertResolved {
		return models.EmergencyAlert{}, repositories.ErrStaleStatus
	}
	a.Status = models.AlertResolved
	a.ResolvedAt = &at
	s.alerts[id] = a
	return a, nil
}
