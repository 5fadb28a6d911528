package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"socialdm/internal/domain/entity"
	"socialdm/internal/domain/repository"
	"socialdm/pkg/errors"
	"socialdm/pkg/logger"
)

const (
	conversationsCollection = "conversations"
	messagesCollection      = "messages"
)

type firestoreConversationRepository struct {
	client *firestore.Client
}

func NewFirestoreConversationRepository(client *firestore.Client) repository.ConversationRepository {
	return &firestoreConversationRepository{
		client: client,
	}
}

func (r *firestoreConversationRepository) collection() *firestore.CollectionRef {
	return r.client.Collection(conversationsCollection)
}

func decodeConversation(doc *firestore.DocumentSnapshot) (entity.Conversation, error) {
	var data entity.ConversationDocument
	if err := doc.DataTo(&data); err != nil {
		return nil, errors.Internal("Failed to parse conversation data", err)
	}
	data.ID = doc.Ref.ID
	return entity.FromDocument(&data), nil
}

// storedDocument prepares conv for a write that lets the server assign the
// zero timestamps.
func storedDocument(conv entity.Conversation) *entity.ConversationDocument {
	doc := conv.Document()
	doc.CreatedAt = time.Time{}
	doc.UpdatedAt = time.Time{}
	return doc
}

func (r *firestoreConversationRepository) GetByID(ctx context.Context, id string) (entity.Conversation, error) {
	doc, err := r.collection().Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Conversation", err)
		}
		return nil, errors.FromStore("Failed to get conversation", err)
	}

	return decodeConversation(doc)
}

func (r *firestoreConversationRepository) Create(ctx context.Context, conv entity.Conversation) error {
	_, err := r.collection().Doc(conv.Base().ID).Create(ctx, storedDocument(conv))
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return errors.Conflict("Conversation already exists")
		}
		return errors.FromStore("Failed to create conversation", err)
	}

	return nil
}

func (r *firestoreConversationRepository) CreateIfAbsent(ctx context.Context, conv entity.Conversation) (entity.Conversation, bool, error) {
	created := true
	_, err := r.collection().Doc(conv.Base().ID).Create(ctx, storedDocument(conv))
	if err != nil {
		if status.Code(err) != codes.AlreadyExists {
			return nil, false, errors.FromStore("Failed to create conversation", err)
		}
		created = false
	}

	stored, err := r.GetByID(ctx, conv.Base().ID)
	if err != nil {
		return nil, false, err
	}
	return stored, created, nil
}

func (r *firestoreConversationRepository) Mutate(ctx context.Context, id string, fn repository.MutateFunc) (entity.Conversation, error) {
	ref := r.collection().Doc(id)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return errors.NotFound("Conversation", err)
			}
			return err
		}

		conv, err := decodeConversation(snap)
		if err != nil {
			return err
		}
		if err := fn(conv); err != nil {
			return err
		}

		doc := conv.Document()
		doc.UpdatedAt = time.Time{}
		return tx.Set(ref, doc)
	})
	if err != nil {
		return nil, errors.FromStore("Failed to update conversation", err)
	}

	return r.GetByID(ctx, id)
}

func (r *firestoreConversationRepository) Delete(ctx context.Context, id string) error {
	_, err := r.collection().Doc(id).Delete(ctx, firestore.Exists)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return errors.NotFound("Conversation", err)
		}
		return errors.FromStore("Failed to delete conversation", err)
	}

	return nil
}

// ListByParticipant leaves ordering to the caller; combining array-contains
// with an updatedAt sort would need a composite index.
func (r *firestoreConversationRepository) ListByParticipant(ctx context.Context, userID string) ([]entity.Conversation, error) {
	iter := r.collection().Where("participants", "array-contains", userID).Documents(ctx)
	defer iter.Stop()

	var conversations []entity.Conversation
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			logger.Error("Firestore error while listing conversations for user %s: %v", userID, err)
			return nil, errors.FromStore("Failed to list conversations", err)
		}

		conv, err := decodeConversation(doc)
		if err != nil {
			logger.Warn("Skipping malformed conversation %s: %v", doc.Ref.ID, err)
			continue
		}
		conversations = append(conversations, conv)
	}

	return conversations, nil
}

func (r *firestoreConversationRepository) SetArchived(ctx context.Context, id, userID string, archived bool) error {
	var value interface{} = firestore.ArrayRemove(userID)
	if archived {
		value = firestore.ArrayUnion(userID)
	}

	_, err := r.collection().Doc(id).Update(ctx, []firestore.Update{
		{Path: "archivedBy", Value: value},
		{Path: "updatedAt", Value: firestore.ServerTimestamp},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return errors.NotFound("Conversation", err)
		}
		return errors.FromStore("Failed to update archive state", err)
	}

	return nil
}

// UpdateParticipantProfile does not bump updatedAt: a renamed participant
// must not reorder everyone's conversation list.
func (r *firestoreConversationRepository) UpdateParticipantProfile(ctx context.Context, profile entity.UserProfile) (int, error) {
	docs, err := r.collection().Where("participants", "array-contains", profile.UserID).Documents(ctx).GetAll()
	if err != nil {
		return 0, errors.FromStore("Failed to query conversations", err)
	}
	if len(docs) == 0 {
		return 0, nil
	}

	bw := r.client.BulkWriter(ctx)
	jobs := make([]*firestore.BulkWriterJob, 0, len(docs))
	for _, doc := range docs {
		job, err := bw.Update(doc.Ref, []firestore.Update{
			{FieldPath: firestore.FieldPath{"participantDetails", profile.UserID, "displayName"}, Value: profile.DisplayName},
			{FieldPath: firestore.FieldPath{"participantDetails", profile.UserID, "photoURL"}, Value: profile.PhotoURL},
			{FieldPath: firestore.FieldPath{"participantDetails", profile.UserID, "username"}, Value: profile.Username},
		})
		if err != nil {
			logger.Error("Failed to enqueue profile update for conversation %s: %v", doc.Ref.ID, err)
			continue
		}
		jobs = append(jobs, job)
	}
	bw.End()

	updated := 0
	for _, job := range jobs {
		if _, err := job.Results(); err != nil {
			logger.Error("Profile update for user %s failed: %v", profile.UserID, err)
			continue
		}
		updated++
	}

	return updated, nil
}

func (r *firestoreConversationRepository) WatchByParticipant(ctx context.Context, userID string) (repository.ConversationStream, error) {
	it := r.collection().Where("participants", "array-contains", userID).Snapshots(ctx)
	return &firestoreConversationQueryStream{it: it}, nil
}

func (r *firestoreConversationRepository) WatchByID(ctx context.Context, id string) (repository.ConversationStream, error) {
	it := r.collection().Doc(id).Snapshots(ctx)
	return &firestoreConversationDocStream{it: it}, nil
}

// streamErr turns the errors a stopped or cancelled listener reports into
// iterator.Done.
func streamErr(err error) error {
	if err == iterator.Done {
		return iterator.Done
	}
	if code := status.Code(err); code == codes.Canceled {
		return iterator.Done
	}
	if err == context.Canceled {
		return iterator.Done
	}
	return errors.FromStore("Listener failed", err)
}

type firestoreConversationQueryStream struct {
	it *firestore.QuerySnapshotIterator
}

func (s *firestoreConversationQueryStream) Next() ([]entity.Conversation, error) {
	snap, err := s.it.Next()
	if err != nil {
		return nil, streamErr(err)
	}

	docs, err := snap.Documents.GetAll()
	if err != nil {
		return nil, streamErr(err)
	}

	conversations := make([]entity.Conversation, 0, len(docs))
	for _, doc := range docs {
		conv, err := decodeConversation(doc)
		if err != nil {
			logger.Warn("Skipping malformed conversation %s: %v", doc.Ref.ID, err)
			continue
		}
		conversations = append(conversations, conv)
	}
	return conversations, nil
}

func (s *firestoreConversationQueryStream) Stop() {
	s.it.Stop()
}

type firestoreConversationDocStream struct {
	it *firestore.DocumentSnapshotIterator
}

// Next yields an empty slice once the document has been deleted.
func (s *firestoreConversationDocStream) Next() ([]entity.Conversation, error) {
	snap, err := s.it.Next()
	if err != nil {
		return nil, streamErr(err)
	}
	if !snap.Exists() {
		return []entity.Conversation{}, nil
	}

	conv, err := decodeConversation(snap)
	if err != nil {
		return nil, err
	}
	return []entity.Conversation{conv}, nil
}

func (s *firestoreConversationDocStream) Stop() {
	s.it.Stop()
}
