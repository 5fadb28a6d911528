package entity

import (
	"strings"
	"time"

	"socialdm/pkg/errors"
)

type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeImage MessageType = "image"
)

// MaxMessageLength is the maximum length of a message text in bytes.
const MaxMessageLength = 4000

// Message is one entry of a conversation's log, stored under
// conversations/{conversationId}/messages/{id}.
type Message struct {
	ID             string      `json:"id" firestore:"id"`
	ConversationID string      `json:"conversation_id" firestore:"conversationId"`
	SenderID       string      `json:"sender_id" firestore:"senderId"`
	ReceiverID     string      `json:"receiver_id,omitempty" firestore:"receiverId"`
	Type           MessageType `json:"type" firestore:"type"`
	Text           string      `json:"text" firestore:"text"`
	ImageURL       string      `json:"image_url,omitempty" firestore:"imageUrl,omitempty"`
	ImageWidth     int         `json:"image_width,omitempty" firestore:"imageWidth,omitempty"`
	ImageHeight    int         `json:"image_height,omitempty" firestore:"imageHeight,omitempty"`
	CreatedAt      time.Time   `json:"created_at" firestore:"createdAt,serverTimestamp"`
	IsRead         bool        `json:"is_read" firestore:"isRead"`
	ReadAt         *time.Time  `json:"read_at" firestore:"readAt"`
}

func (m *Message) Validate() error {
	if m.ConversationID == "" {
		return errors.BadRequest("Conversation is required", nil)
	}
	if m.SenderID == "" {
		return errors.BadRequest("Sender is required", nil)
	}
	if len(m.Text) > MaxMessageLength {
		return errors.BadRequest("Message exceeds maximum length", nil)
	}

	switch m.Type {
	case MessageTypeText:
		if strings.TrimSpace(m.Text) == "" {
			return errors.BadRequest("Message text cannot be empty", nil)
		}
	case MessageTypeImage:
		if m.ImageURL == "" {
			return errors.BadRequest("Image URL is required for image messages", nil)
		}
		if m.ImageWidth < 0 || m.ImageHeight < 0 {
			return errors.BadRequest("Image dimensions cannot be negative", nil)
		}
	default:
		return errors.BadRequest("Unsupported message type", nil)
	}
	return nil
}

// IsUnreadFor reports whether the message still counts as unread for userID.
func (m *Message) IsUnreadFor(userID string) bool {
	return m.ReceiverID == userID && !m.IsRead
}

// Summary builds the denormalized lastMessage for the parent conversation.
func (m *Message) Summary(senderName string) *LastMessage {
	text := m.Text
	if m.Type == MessageTypeImage && strings.TrimSpace(text) == "" {
		text = "Sent a photo"
	}
	return &LastMessage{
		Text:       text,
		SenderID:   m.SenderID,
		SenderName: senderName,
		Timestamp:  m.CreatedAt,
		Type:       m.Type,
		ImageURL:   m.ImageURL,
	}
}

// Matches reports whether summary was produced from this message.
func (m *Message) Matches(summary *LastMessage) bool {
	if summary == nil {
		return false
	}
	return summary.SenderID == m.SenderID &&
		summary.Timestamp.Equal(m.CreatedAt) &&
		summary.Type == m.Type &&
		summary.ImageURL == m.ImageURL
}
