package services

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"campusride/internal/domain"
	"campusride/internal/domain/models"
	"campusride/internal/realtime"
	"campusride/internal/repositories"

	"go.uber.org/zap"
)

const maxMessageLength = 2000

type MessageService struct {
	Store repositories.Store
	Hub   *realtime.Hub
	Log   *zap.Logger
}

func (s MessageService) Send(ctx context.Context, sender models.User, receiverID int64, rideID *int64, content string) (models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return models.Message{}, domain.ValidationError{Field: "content", Msg: "is required"}
	}
	if utf8.RuneCountInString(content) > maxMessageLength {
		return models.Message{}, domain.ValidationError{Field: "content", Msg: "must be at most 2000 characters"}
	}
	if receiverID == sender.ID {
		return models.Message{}, domain.ValidationError{Field: "receiverId", Msg: "you cannot message yourself"}
	}
	if _, err := s.Store.GetUser(ctx, receiverID); err != nil {
		return models.Message{}, translate(err, "receiver")
	}
	if rideID != nil {
		if _, err := s.Store.GetRide(ctx, *rideID); err != nil {
			return models.Message{}, translate(err, "ride")
		}
	}

	msg, err := s.Store.CreateMessage(ctx, models.Message{
		SenderID:   sender.ID,
		ReceiverID: receiverID,
		RideID:     rideID,
		Content:    content,
	})
	if err != nil {
		return models.Message{}, translate(err, "message")
	}

	delivered := 0
	if s.Hub != nil {
		delivered = s.Hub.Publish(receiverID, realtime.Event{Type: realtime.EventMessage, Data: msg})
	}
	moduleLogger(ctx, s.Log, "messages").Info("message sent",
		zap.String("action", "send"),
		zap.Int64("message_id", msg.ID),
		zap.Int64("sender_id", sender.ID),
		zap.Int64("receiver_id", receiverID),
		zap.Int("live_deliveries", delivered),
	)
	return msg, nil
}

// Conversation returns the messages between userID and otherID, oldest first.
func (s MessageService) Conversation(ctx context.Context, userID, otherID int64) ([]models.Message, error) {
	if _, err := s.Store.GetUser(ctx, otherID); err != nil {
		return nil, translate(err, "user")
	}
	msgs, err := s.Store.ListConversation(ctx, userID, otherID)
	return msgs, translate(err, "message")
}

// Overview returns one entry per counterpart, most recent conversation first.
func (s MessageService) Overview(ctx context.Context, userID int64) ([]models.Conversation, error) {
	msgs, err := s.Store.ListMessagesForUser(ctx, userID)
	if err != nil {
		return nil, translate(err, "message")
	}

	index := map[int64]int{}
	out := []models.Conversation{}
	for _, m := range msgs {
		other := m.SenderID
		if other == userID {
			other = m.ReceiverID
		}
		i, seen := index[other]
		if !seen {
			u, err := s.Store.GetUser(ctx, other)
			if errors.Is(err, repositories.ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, translate(err, "user")
			}
			index[other] = len(out)
			out = append(out, models.Conversation{User: u.ToPublic(), LastMessage: m})
			i = len(out) - 1
		}
		if m.ReceiverID == userID && !m.IsRead {
			out[i].UnreadCount++
		}
	}
	return out, nil
}

func (s MessageService) UnreadCount(ctx context.Context, userID int64) (int, error) {
	n, err := s.Store.CountUnread(ctx, userID)
	return n, translate(err, "message")
}

// MarkRead is allowed for the receiver only.
func (s MessageService) MarkRead(ctx context.Context, userID, id int64) (models.Message, error) {
	msg, err := s.Store.GetMessage(ctx, id)
	if err != nil {
		return models.Message{}, translate(err, "message")
	}
	if msg.ReceiverID != userID {
		return models.Message{}, domain.ForbiddenError{Msg: "only the receiver can mark a message as read"}
	}
	if msg.IsRead {
		return msg, nil
	}

	msg, err = s.Store.MarkMessageRead(ctx, id)
	if err != nil {
		return models.Message{}, translate(err, "message")
	}
	if s.Hub != nil {
		s.Hub.Publish(msg.SenderID, realtime.Event{Type: realtime.EventMessageRead, Data: msg})
	}
	return msg, nil
}
