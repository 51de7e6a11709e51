package mysql

import (
	"context"
	"database/sql"

	"campusride/internal/domain/models"
)

const messageColumns = `id, sender_id, receiver_id, ride_id, content, is_read, created_at`

func scanMessage(row rowScanner) (models.Message, error) {
	var (
		m      models.Message
		rideID sql.NullInt64
	)
	if err := row.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &rideID, &m.Content, &m.IsRead, &m.CreatedAt); err != nil {
		return models.Message{}, err
	}
	if rideID.Valid {
		v := rideID.Int64
		m.RideID = &v
	}
	return m, nil
}

func (s *Store) CreateMessage(ctx context.Context, msg models.Message) (models.Message, error) {
	var rideID sql.NullInt64
	if msg.RideID != nil {
		rideID = sql.NullInt64{Int64: *msg.RideID, Valid: true}
	}
	now := s.now()
	res, err := s.DB.ExecContext(ctx, `
		INSERT INTO messages (sender_id, receiver_id, ride_id, content, is_read, created_at)
		VALUES (?, ?, ?, ?, 0, ?)`,
		msg.SenderID, msg.ReceiverID, rideID, msg.Content, now,
	)
	if err != nil {
		return models.Message{}, mapErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Message{}, err
	}
	msg.ID = id
	msg.IsRead = false
	msg.CreatedAt = now
	return msg, nil
}

func (s *Store) GetMessage(ctx context.Context, id int64) (models.Message, error) {
	m, err := scanMessage(s.DB.QueryRowContext(ctx, `SELECT `+messageColumns+` FROM messages WHERE id = ? LIMIT 1`, id))
	return m, mapErr(err)
}

func (s *Store) ListConversation(ctx context.Context, a, b int64) ([]models.Message, error) {
	return s.queryMessages(ctx, `
		SELECT `+messageColumns+` FROM messages
		WHERE (sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)
		ORDER BY created_at ASC, id ASC`,
		a, b, b, a,
	)
}

func (s *Store) ListMessagesForUser(ctx context.Context, userID int64) ([]models.Message, error) {
	return s.queryMessages(ctx, `
		SELECT `+messageColumns+` FROM messages
		WHERE sender_id = ? OR receiver_id = ?
		ORDER BY created_at DESC, id DESC`,
		userID, userID,
	)
}

func (s *Store) queryMessages(ctx context.Context, query string, args ...any) ([]models.Message, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Message{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return out, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) MarkMessageRead(ctx context.Context, id int64) (models.Message, error) {
	if _, err := s.DB.ExecContext(ctx, `UPDATE messages SET is_read = 1 WHERE id = ?`, id); err != nil {
		return models.Message{}, err
	}
	return s.GetMessage(ctx, id)
}

func (s *Store) CountUnread(ctx context.Context, userID int64) (int, error) {
	var n int
	err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages WHERE receiver_id = ? AND is_read = 0`, userID).Scan(&n)
	return n, err
}
