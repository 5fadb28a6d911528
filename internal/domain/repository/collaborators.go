package repository

import (
	"context"

	"socialdm/internal/domain/entity"
)

// ProfileProvider resolves the display snapshot of a user.
type ProfileProvider interface {
	GetProfile(ctx context.Context, userID string) (*entity.UserProfile, error)
}

// Notifier dispatches push notifications for new messages.
type Notifier interface {
	NotifyNewMessage(ctx context.Context, recipientID string, conv entity.Conversation, msg *entity.Message) error
}

// MediaStore uploads message attachments and returns their public URL.
type MediaStore interface {
	Upload(ctx context.Context, objectPath, contentType string, data []byte) (string, error)
}
