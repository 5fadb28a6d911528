package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"socialdm/internal/domain/entity"
	"socialdm/internal/domain/repository"
	"socialdm/pkg/errors"
	"socialdm/pkg/logger"
	"socialdm/pkg/utils"
)

type firestoreMessageRepository struct {
	client *firestore.Client
}

func NewFirestoreMessageRepository(client *firestore.Client) repository.MessageRepository {
	return &firestoreMessageRepository{
		client: client,
	}
}

func (r *firestoreMessageRepository) parent(conversationID string) *firestore.DocumentRef {
	return r.client.Collection(conversationsCollection).Doc(conversationID)
}

func (r *firestoreMessageRepository) messages(conversationID string) *firestore.CollectionRef {
	return r.parent(conversationID).Collection(messagesCollection)
}

func decodeMessage(doc *firestore.DocumentSnapshot) (*entity.Message, error) {
	var message entity.Message
	if err := doc.DataTo(&message); err != nil {
		return nil, errors.Internal("Failed to parse message data", err)
	}
	message.ID = doc.Ref.ID
	return &message, nil
}

// summaryUpdates writes lastMessage field by field so its timestamp can be
// the same server timestamp as the message's createdAt.
func summaryUpdates(summary *entity.LastMessage) []firestore.Update {
	imageURL := interface{}(firestore.Delete)
	if summary.ImageURL != "" {
		imageURL = summary.ImageURL
	}
	return []firestore.Update{
		{FieldPath: firestore.FieldPath{"lastMessage", "text"}, Value: summary.Text},
		{FieldPath: firestore.FieldPath{"lastMessage", "senderId"}, Value: summary.SenderID},
		{FieldPath: firestore.FieldPath{"lastMessage", "senderName"}, Value: summary.SenderName},
		{FieldPath: firestore.FieldPath{"lastMessage", "type"}, Value: string(summary.Type)},
		{FieldPath: firestore.FieldPath{"lastMessage", "imageUrl"}, Value: imageURL},
		{FieldPath: firestore.FieldPath{"lastMessage", "timestamp"}, Value: firestore.ServerTimestamp},
	}
}

func (r *firestoreMessageRepository) Append(ctx context.Context, msg *entity.Message) (bool, error) {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	msg.CreatedAt = time.Time{}

	parentRef := r.parent(msg.ConversationID)
	msgRef := r.messages(msg.ConversationID).Doc(msg.ID)

	var parentUpdated bool
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		parentUpdated = false

		snap, err := tx.Get(parentRef)
		if err != nil && status.Code(err) != codes.NotFound {
			return err
		}

		if err := tx.Create(msgRef, msg); err != nil {
			return err
		}
		if snap == nil || !snap.Exists() {
			return nil
		}

		conv, err := decodeConversation(snap)
		if err != nil {
			return err
		}

		updates := summaryUpdates(msg.Summary(conv.Base().SenderName(msg.SenderID)))
		for _, id := range entity.UnreadRecipients(conv, msg) {
			updates = append(updates, firestore.Update{
				FieldPath: firestore.FieldPath{"unreadCount", id},
				Value:     firestore.Increment(1),
			})
		}
		updates = append(updates, firestore.Update{Path: "updatedAt", Value: firestore.ServerTimestamp})

		parentUpdated = true
		return tx.Update(parentRef, updates)
	})
	if err != nil {
		return false, errors.FromStore("Failed to send message", err)
	}

	if !parentUpdated {
		logger.Warn("Conversation %s not found, message %s stored without summary update", msg.ConversationID, msg.ID)
	}

	stored, err := msgRef.Get(ctx)
	if err != nil {
		logger.Warn("Failed to read back message %s, using local time: %v", msg.ID, err)
		msg.CreatedAt = time.Now()
		return parentUpdated, nil
	}
	msg.CreatedAt = stored.CreateTime
	if data, err := decodeMessage(stored); err == nil {
		msg.CreatedAt = data.CreatedAt
	}

	return parentUpdated, nil
}

func (r *firestoreMessageRepository) GetByID(ctx context.Context, conversationID, messageID string) (*entity.Message, error) {
	doc, err := r.messages(conversationID).Doc(messageID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Message", err)
		}
		return nil, errors.FromStore("Failed to get message", err)
	}

	return decodeMessage(doc)
}

func (r *firestoreMessageRepository) orderedQuery(conversationID string) firestore.Query {
	return r.messages(conversationID).
		OrderBy("createdAt", firestore.Asc).
		OrderBy(firestore.DocumentID, firestore.Asc)
}

func collectMessages(iter *firestore.DocumentIterator) ([]*entity.Message, error) {
	defer iter.Stop()

	messages := []*entity.Message{}
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}

		message, err := decodeMessage(doc)
		if err != nil {
			logger.Warn("Skipping malformed message %s: %v", doc.Ref.ID, err)
			continue
		}
		messages = append(messages, message)
	}
	return messages, nil
}

func (r *firestoreMessageRepository) List(ctx context.Context, conversationID string, pageSize int, cursor *utils.Cursor) ([]*entity.Message, error) {
	query := r.orderedQuery(conversationID)
	if cursor != nil {
		query = query.StartAfter(cursor.CreatedAt, cursor.ID)
	}
	if pageSize > 0 {
		query = query.Limit(pageSize)
	}

	messages, err := collectMessages(query.Documents(ctx))
	if err != nil {
		logger.Error("Firestore error while iterating messages for conversation %s: %v", conversationID, err)
		return nil, errors.FromStore("Failed to list messages", err)
	}
	return messages, nil
}

func (r *firestoreMessageRepository) Latest(ctx context.Context, conversationID string) (*entity.Message, error) {
	iter := r.messages(conversationID).
		OrderBy("createdAt", firestore.Desc).
		OrderBy(firestore.DocumentID, firestore.Desc).
		Limit(1).
		Documents(ctx)

	messages, err := collectMessages(iter)
	if err != nil {
		return nil, errors.FromStore("Failed to read latest message", err)
	}
	if len(messages) == 0 {
		return nil, nil
	}
	return messages[0], nil
}

// MarkAllRead runs in one transaction, so a single call is bounded by the
// store's per-transaction write limit.
func (r *firestoreMessageRepository) MarkAllRead(ctx context.Context, conversationID, userID string) (int, error) {
	parentRef := r.parent(conversationID)
	unread := r.messages(conversationID).
		Where("receiverId", "==", userID).
		Where("isRead", "==", false)

	var flipped int
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		flipped = 0

		docs, err := tx.Documents(unread).GetAll()
		if err != nil {
			return err
		}
		snap, err := tx.Get(parentRef)
		if err != nil && status.Code(err) != codes.NotFound {
			return err
		}

		for _, doc := range docs {
			if err := tx.Update(doc.Ref, []firestore.Update{
				{Path: "isRead", Value: true},
				{Path: "readAt", Value: firestore.ServerTimestamp},
			}); err != nil {
				return err
			}
		}
		flipped = len(docs)

		if snap == nil || !snap.Exists() {
			return nil
		}
		return tx.Update(parentRef, []firestore.Update{
			{FieldPath: firestore.FieldPath{"unreadCount", userID}, Value: 0},
			{Path: "updatedAt", Value: firestore.ServerTimestamp},
		})
	})
	if err != nil {
		return 0, errors.FromStore("Failed to mark messages as read", err)
	}

	return flipped, nil
}

func (r *firestoreMessageRepository) Delete(ctx context.Context, conversationID, messageID string) error {
	_, err := r.messages(conversationID).Doc(messageID).Delete(ctx, firestore.Exists)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return errors.NotFound("Message", err)
		}
		return errors.FromStore("Failed to delete message", err)
	}
	return nil
}

func (r *firestoreMessageRepository) DeleteAll(ctx context.Context, conversationID string) (int, error) {
	refs, err := r.messages(conversationID).DocumentRefs(ctx).GetAll()
	if err != nil {
		return 0, errors.FromStore("Failed to list messages for deletion", err)
	}
	if len(refs) == 0 {
		return 0, nil
	}

	bw := r.client.BulkWriter(ctx)
	jobs := make([]*firestore.BulkWriterJob, 0, len(refs))
	for _, ref := range refs {
		job, err := bw.Delete(ref)
		if err != nil {
			logger.Error("Failed to enqueue delete of message %s: %v", ref.ID, err)
			continue
		}
		jobs = append(jobs, job)
	}
	bw.End()

	deleted := 0
	var lastErr error
	for _, job := range jobs {
		if _, err := job.Results(); err != nil {
			lastErr = err
			continue
		}
		deleted++
	}
	if lastErr != nil {
		return deleted, errors.FromStore("Failed to delete some messages", lastErr)
	}

	return deleted, nil
}

func (r *firestoreMessageRepository) WatchByConversation(ctx context.Context, conversationID string) (repository.MessageStream, error) {
	it := r.orderedQuery(conversationID).Snapshots(ctx)
	return &firestoreMessageStream{it: it}, nil
}

type firestoreMessageStream struct {
	it *firestore.QuerySnapshotIterator
}

func (s *firestoreMessageStream) Next() ([]*entity.Message, error) {
	snap, err := s.it.Next()
	if err != nil {
		return nil, streamErr(err)
	}

	messages, err := collectMessages(snap.Documents)
	if err != nil {
		return nil, streamErr(err)
	}
	return messages, nil
}

func (s *firestoreMessageStream) Stop() {
	s.it.Stop()
}
