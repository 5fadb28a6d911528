package repository

import (
	"context"

	"socialdm/internal/domain/entity"
	"socialdm/pkg/utils"
)

type MessageRepository interface {
	// Append writes msg and, in the same transaction, replaces the parent's
	// lastMessage with the message summary and increments the unread
	// counters of its recipients. When the parent does not exist only the
	// message is written and parentUpdated is false. msg.ID and
	// msg.CreatedAt are filled in on return.
	Append(ctx context.Context, msg *entity.Message) (parentUpdated bool, err error)
	GetByID(ctx context.Context, conversationID, messageID string) (*entity.Message, error)
	// List returns up to pageSize messages oldest-first, starting after
	// cursor when it is non-nil.
	List(ctx context.Context, conversationID string, pageSize int, cursor *utils.Cursor) ([]*entity.Message, error)
	// Latest returns the newest message, or nil for an empty log.
	Latest(ctx context.Context, conversationID string) (*entity.Message, error)
	// MarkAllRead flips every unread message addressed to userID and resets
	// the parent's counter for userID. It returns the number of flipped
	// messages.
	MarkAllRead(ctx context.Context, conversationID, userID string) (int, error)
	Delete(ctx context.Context, conversationID, messageID string) error
	// DeleteAll removes the whole log of a conversation.
	DeleteAll(ctx context.Context, conversationID string) (int, error)

	WatchByConversation(ctx context.Context, conversationID string) (MessageStream, error)
}
