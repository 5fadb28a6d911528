package repository

import (
	"context"

	"socialdm/internal/domain/entity"
)

// MutateFunc edits a conversation in place. Returning an error aborts the
// mutation and nothing is written.
type MutateFunc func(conv entity.Conversation) error

type ConversationRepository interface {
	GetByID(ctx context.Context, id string) (entity.Conversation, error)
	// CreateIfAbsent stores conv unless a document with its id exists, in
	// which case the stored conversation is returned and created is false.
	CreateIfAbsent(ctx context.Context, conv entity.Conversation) (stored entity.Conversation, created bool, err error)
	Create(ctx context.Context, conv entity.Conversation) error
	// Mutate reads the conversation, applies fn and writes the result
	// atomically, bumping updatedAt.
	Mutate(ctx context.Context, id string, fn MutateFunc) (entity.Conversation, error)
	Delete(ctx context.Context, id string) error
	ListByParticipant(ctx context.Context, userID string) ([]entity.Conversation, error)
	SetArchived(ctx context.Context, id, userID string, archived bool) error
	// UpdateParticipantProfile rewrites the display snapshot of profile.UserID
	// in every conversation they take part in and returns how many changed.
	UpdateParticipantProfile(ctx context.Context, profile entity.UserProfile) (int, error)

	WatchByParticipant(ctx context.Context, userID string) (ConversationStream, error)
	WatchByID(ctx context.Context, id string) (ConversationStream, error)
}
