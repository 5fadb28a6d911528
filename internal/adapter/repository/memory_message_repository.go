package repository

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"socialdm/internal/domain/entity"
	"socialdm/internal/domain/repository"
	"socialdm/pkg/errors"
	"socialdm/pkg/logger"
	"socialdm/pkg/utils"
)

type memoryMessageRepository struct {
	store *MemoryStore
}

func NewMemoryMessageRepository(store *MemoryStore) repository.MessageRepository {
	return &memoryMessageRepository{store: store}
}

func (r *memoryMessageRepository) Append(ctx context.Context, msg *entity.Message) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	msg.CreatedAt = r.store.tick()

	entries, ok := r.store.messages[msg.ConversationID]
	if !ok {
		entries = make(map[string]*entity.Message)
		r.store.messages[msg.ConversationID] = entries
	}
	if _, exists := entries[msg.ID]; exists {
		return false, errors.Conflict("Message already exists")
	}
	entries[msg.ID] = copyMessage(msg)

	doc, ok := r.store.conversations[msg.ConversationID]
	if !ok {
		r.store.notifyLocked()
		logger.Warn("Conversation %s not found, message %s stored without summary update", msg.ConversationID, msg.ID)
		return false, nil
	}

	conv := entity.FromDocument(doc)
	base := conv.Base()
	base.LastMessage = msg.Summary(base.SenderName(msg.SenderID))
	for _, id := range entity.UnreadRecipients(conv, msg) {
		base.UnreadCount[id]++
	}

	updated := conv.Document()
	updated.UpdatedAt = msg.CreatedAt
	r.store.conversations[msg.ConversationID] = updated
	r.store.notifyLocked()

	return true, nil
}

func (r *memoryMessageRepository) GetByID(ctx context.Context, conversationID, messageID string) (*entity.Message, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	msg, ok := r.store.messages[conversationID][messageID]
	if !ok {
		return nil, errors.NotFound("Message", nil)
	}
	return copyMessage(msg), nil
}

// orderedLocked returns copies of a conversation's messages oldest-first,
// ties broken by id like the Firestore query.
func (r *memoryMessageRepository) orderedLocked(conversationID string) []*entity.Message {
	messages := make([]*entity.Message, 0, len(r.store.messages[conversationID]))
	for _, msg := range r.store.messages[conversationID] {
		messages = append(messages, copyMessage(msg))
	}
	sort.Slice(messages, func(i, j int) bool {
		if messages[i].CreatedAt.Equal(messages[j].CreatedAt) {
			return messages[i].ID < messages[j].ID
		}
		return messages[i].CreatedAt.Before(messages[j].CreatedAt)
	})
	return messages
}

func after(msg *entity.Message, cursor *utils.Cursor) bool {
	if msg.CreatedAt.Equal(cursor.CreatedAt) {
		return msg.ID > cursor.ID
	}
	return msg.CreatedAt.After(cursor.CreatedAt)
}

func (r *memoryMessageRepository) List(ctx context.Context, conversationID string, pageSize int, cursor *utils.Cursor) ([]*entity.Message, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	page := []*entity.Message{}
	for _, msg := range r.orderedLocked(conversationID) {
		if cursor != nil && !after(msg, cursor) {
			continue
		}
		page = append(page, msg)
		if pageSize > 0 && len(page) == pageSize {
			break
		}
	}
	return page, nil
}

func (r *memoryMessageRepository) Latest(ctx context.Context, conversationID string) (*entity.Message, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	messages := r.orderedLocked(conversationID)
	if len(messages) == 0 {
		return nil, nil
	}
	return messages[len(messages)-1], nil
}

func (r *memoryMessageRepository) MarkAllRead(ctx context.Context, conversationID, userID string) (int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	readAt := r.store.tick()
	flipped := 0
	for _, msg := range r.store.messages[conversationID] {
		if !msg.IsUnreadFor(userID) {
			continue
		}
		msg.IsRead = true
		at := readAt
		msg.ReadAt = &at
		flipped++
	}

	if doc, ok := r.store.conversations[conversationID]; ok {
		conv := entity.FromDocument(doc)
		base := conv.Base()
		if _, tracked := base.UnreadCount[userID]; tracked {
			base.UnreadCount[userID] = 0
		}
		updated := conv.Document()
		updated.UpdatedAt = readAt
		r.store.conversations[conversationID] = updated
	}
	r.store.notifyLocked()

	return flipped, nil
}

func (r *memoryMessageRepository) Delete(ctx context.Context, conversationID, messageID string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.messages[conversationID][messageID]; !ok {
		return errors.NotFound("Message", nil)
	}
	delete(r.store.messages[conversationID], messageID)
	r.store.notifyLocked()
	return nil
}

func (r *memoryMessageRepository) DeleteAll(ctx context.Context, conversationID string) (int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	deleted := len(r.store.messages[conversationID])
	delete(r.store.messages, conversationID)
	if deleted > 0 {
		r.store.notifyLocked()
	}
	return deleted, nil
}

func (r *memoryMessageRepository) WatchByConversation(ctx context.Context, conversationID string) (repository.MessageStream, error) {
	return newMemoryStream(ctx, r.store, func() ([]*entity.Message, error) {
		r.store.mu.Lock()
		defer r.store.mu.Unlock()
		return r.orderedLocked(conversationID), nil
	}), nil
}
