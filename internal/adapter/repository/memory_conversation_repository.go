package repository

import (
	"context"

	"socialdm/internal/domain/entity"
	"socialdm/internal/domain/repository"
	"socialdm/pkg/errors"
)

type memoryConversationRepository struct {
	store *MemoryStore
}

func NewMemoryConversationRepository(store *MemoryStore) repository.ConversationRepository {
	return &memoryConversationRepository{store: store}
}

func (r *memoryConversationRepository) getLocked(id string) (entity.Conversation, error) {
	doc, ok := r.store.conversations[id]
	if !ok {
		return nil, errors.NotFound("Conversation", nil)
	}
	return entity.FromDocument(doc), nil
}

func (r *memoryConversationRepository) GetByID(ctx context.Context, id string) (entity.Conversation, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return r.getLocked(id)
}

func (r *memoryConversationRepository) insertLocked(conv entity.Conversation) {
	doc := conv.Document()
	now := r.store.tick()
	doc.CreatedAt = now
	doc.UpdatedAt = now
	r.store.conversations[doc.ID] = doc
	r.store.notifyLocked()
}

func (r *memoryConversationRepository) Create(ctx context.Context, conv entity.Conversation) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.conversations[conv.Base().ID]; ok {
		return errors.Conflict("Conversation already exists")
	}
	r.insertLocked(conv)
	return nil
}

func (r *memoryConversationRepository) CreateIfAbsent(ctx context.Context, conv entity.Conversation) (entity.Conversation, bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	id := conv.Base().ID
	if _, ok := r.store.conversations[id]; ok {
		stored, err := r.getLocked(id)
		return stored, false, err
	}
	r.insertLocked(conv)
	stored, err := r.getLocked(id)
	return stored, true, err
}

func (r *memoryConversationRepository) Mutate(ctx context.Context, id string, fn repository.MutateFunc) (entity.Conversation, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	conv, err := r.getLocked(id)
	if err != nil {
		return nil, err
	}
	if err := fn(conv); err != nil {
		return nil, err
	}

	doc := conv.Document()
	doc.UpdatedAt = r.store.tick()
	r.store.conversations[id] = doc
	r.store.notifyLocked()

	return entity.FromDocument(doc), nil
}

func (r *memoryConversationRepository) Delete(ctx context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.conversations[id]; !ok {
		return errors.NotFound("Conversation", nil)
	}
	delete(r.store.conversations, id)
	r.store.notifyLocked()
	return nil
}

func (r *memoryConversationRepository) listLocked(userID string) []entity.Conversation {
	var conversations []entity.Conversation
	for _, doc := range r.store.conversations {
		conv := entity.FromDocument(doc)
		if conv.Base().HasParticipant(userID) {
			conversations = append(conversations, conv)
		}
	}
	return conversations
}

func (r *memoryConversationRepository) ListByParticipant(ctx context.Context, userID string) ([]entity.Conversation, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return r.listLocked(userID), nil
}

func (r *memoryConversationRepository) SetArchived(ctx context.Context, id, userID string, archived bool) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	conv, err := r.getLocked(id)
	if err != nil {
		return err
	}
	conv.Base().SetArchived(userID, archived)

	doc := conv.Document()
	doc.UpdatedAt = r.store.tick()
	r.store.conversations[id] = doc
	r.store.notifyLocked()
	return nil
}

func (r *memoryConversationRepository) UpdateParticipantProfile(ctx context.Context, profile entity.UserProfile) (int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	updated := 0
	for id, doc := range r.store.conversations {
		conv := entity.FromDocument(doc)
		if !conv.Base().UpdateProfile(profile) {
			continue
		}
		r.store.conversations[id] = conv.Document()
		updated++
	}
	if updated > 0 {
		r.store.notifyLocked()
	}
	return updated, nil
}

func (r *memoryConversationRepository) WatchByParticipant(ctx context.Context, userID string) (repository.ConversationStream, error) {
	return newMemoryStream(ctx, r.store, func() ([]entity.Conversation, error) {
		r.store.mu.Lock()
		defer r.store.mu.Unlock()
		conversations := r.listLocked(userID)
		if conversations == nil {
			conversations = []entity.Conversation{}
		}
		return conversations, nil
	}), nil
}

func (r *memoryConversationRepository) WatchByID(ctx context.Context, id string) (repository.ConversationStream, error) {
	return newMemoryStream(ctx, r.store, func() ([]entity.Conversation, error) {
		r.store.mu.Lock()
		defer r.store.mu.Unlock()
		doc, ok := r.store.conversations[id]
		if !ok {
			return []entity.Conversation{}, nil
		}
		return []entity.Conversation{entity.FromDocument(doc)}, nil
	}), nil
}
