package memory

import (
	"context"
	"sort"

	"campusride/internal/domain/models"
	"campusride/internal/repositories"
)

func (s *Store) CreateMessage(ctx context.Context, msg models.Message) (models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq.message++
	msg.ID = s.seq.message
	msg.IsRead = false
	msg.CreatedAt = s.now()
	s.messages[msg.ID] = msg
	return msg, nil
}

func (s *Store) GetMessage(ctx context.Context, id int64) (models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.messages[id]
	if !ok {
		return models.Message{}, repositories.ErrNotFound
	}
	return m, nil
}

func (s *Store) ListConversation(ctx context.Context, a, b int64) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.Message{}
	for _, m := range s.messages {
		if (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ListMessagesForUser(ctx context.Context, userID int64) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.Message{}
	for _, m := range s.messages {
		if m.SenderID == userID || m.ReceiverID == userID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *Store) MarkMessageRead(ctx context.Context, id int64) (models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.messages[id]
	if !ok {
		return models.Message{}, repositories.ErrNotFound
	}
	m.IsRead = true
	s.messages[id] = m
	return m, nil
}

func (s *Store) CountUnread(ctx context.Context, userID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, m := range s.messages {
		if m.ReceiverID == userID && !m.IsRead {
			n++
		}
	}
	return n, nil
}
