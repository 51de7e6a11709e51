package models

import "time"

type Message struct {
	ID         int64     `json:"id"`
	SenderID   int64     `json:"senderId"`
	ReceiverID int64     `json:"receiverId"`
	RideID     *int64    `json:"rideId,omitempty"`
	Content    string    `json:"content"`
	IsRead     bool      `json:"isRead"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Conversation summarizes the exchange with one counterpart.
type Conversation struct {
	User        PublicUser `json:"user"`
	LastMessage Message    `json:"lastMessage"`
	UnreadCount int        `json:"unreadCount"`
}
