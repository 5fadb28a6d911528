package usecase

import (
	"context"
	"time"

	"socialdm/internal/domain/entity"
	"socialdm/internal/domain/repository"
	"socialdm/internal/infrastructure/ratelimit"
	"socialdm/pkg/errors"
	"socialdm/pkg/logger"
	"socialdm/pkg/utils"
)

const notifyTimeout = 10 * time.Second

type MessageUseCase struct {
	conversationRepo repository.ConversationRepository
	messageRepo      repository.MessageRepository
	notifier         repository.Notifier
	rateLimiter      *ratelimit.RateLimiter
}

func NewMessageUseCase(
	conversationRepo repository.ConversationRepository,
	messageRepo repository.MessageRepository,
	notifier repository.Notifier,
	rateLimiter *ratelimit.RateLimiter,
) *MessageUseCase {
	return &MessageUseCase{
		conversationRepo: conversationRepo,
		messageRepo:      messageRepo,
		notifier:         notifier,
		rateLimiter:      rateLimiter,
	}
}

type SendMessageInput struct {
	ConversationID string
	SenderID       string
	ReceiverID     string
	Type           entity.MessageType
	Text           string
	ImageURL       string
	ImageWidth     int
	ImageHeight    int
}

type MessagePage struct {
	Messages   []*entity.Message
	NextCursor string
}

// Send appends a message and updates the conversation summary. A
// conversation that vanished before the append still gets the message; the
// summary update is skipped and logged. Without a parent only a sender who
// owns the direct id may write.
func (uc *MessageUseCase) Send(ctx context.Context, input SendMessageInput) (*entity.Message, error) {
	if uc.rateLimiter != nil {
		if allowed, wait := uc.rateLimiter.Allow(input.SenderID, ratelimit.ActionSendMessage); !allowed {
			logger.Warn("SendMessage Rate Limited: User %s must wait %v", input.SenderID, wait)
			return nil, errors.TooManyRequests("Rate limit exceeded. Please wait before sending another message")
		}
	}

	if input.Type == "" {
		input.Type = entity.MessageTypeText
	}
	msg := &entity.Message{
		ConversationID: input.ConversationID,
		SenderID:       input.SenderID,
		ReceiverID:     input.ReceiverID,
		Type:           input.Type,
		Text:           input.Text,
		ImageURL:       input.ImageURL,
		ImageWidth:     input.ImageWidth,
		ImageHeight:    input.ImageHeight,
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}

	conv, err := uc.conversationRepo.GetByID(ctx, input.ConversationID)
	switch {
	case errors.Is(err, errors.CodeNotFound):
		if input.ReceiverID == "" || input.ConversationID != entity.DirectConversationID(input.SenderID, input.ReceiverID) {
			logger.Error("SendMessage Error: User %s wrote to missing conversation %s", input.SenderID, input.ConversationID)
			return nil, err
		}
		conv = nil
	case err != nil:
		logger.Error("SendMessage Error: %v", err)
		return nil, err
	default:
		if err := addressMessage(conv, msg); err != nil {
			return nil, err
		}
	}

	parentUpdated, err := uc.messageRepo.Append(ctx, msg)
	if err != nil {
		logger.Error("SendMessage Error: %v", err)
		return nil, err
	}

	if conv != nil && parentUpdated {
		uc.notifyRecipients(conv, msg)
	}

	return msg, nil
}

// addressMessage checks the sender and fills in the receiver: the other
// participant of a direct conversation, nobody for a group.
func addressMessage(conv entity.Conversation, msg *entity.Message) error {
	base := conv.Base()
	if !base.HasParticipant(msg.SenderID) {
		return errors.Forbidden("You are not a participant of this conversation", nil)
	}

	if conv.IsGroupChat() {
		msg.ReceiverID = ""
		return nil
	}

	other := conv.(*entity.DirectConversation).OtherParticipant(msg.SenderID)
	if msg.ReceiverID == "" {
		msg.ReceiverID = other
	}
	if msg.ReceiverID != other {
		return errors.BadRequest("Receiver is not the other participant of this conversation", nil)
	}
	return nil
}

func (uc *MessageUseCase) notifyRecipients(conv entity.Conversation, msg *entity.Message) {
	if uc.notifier == nil {
		return
	}

	recipients := entity.UnreadRecipients(conv, msg)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()

		for _, recipient := range recipients {
			if err := uc.notifier.NotifyNewMessage(ctx, recipient, conv, msg); err != nil {
				logger.Warn("Push notification to %s for message %s failed: %v", recipient, msg.ID, err)
			}
		}
	}()
}

// GetMessages returns one page oldest-first. NextCursor is empty when the
// page was not full.
func (uc *MessageUseCase) GetMessages(ctx context.Context, actorID, conversationID string, pageSize int, cursorToken string) (*MessagePage, error) {
	if _, err := loadForParticipant(ctx, uc.conversationRepo, actorID, conversationID); err != nil {
		return nil, err
	}

	cursor, err := utils.DecodeCursor(cursorToken)
	if err != nil {
		return nil, errors.BadRequest("Invalid cursor", err)
	}
	pageSize = utils.ClampPageSize(pageSize)

	messages, err := uc.messageRepo.List(ctx, conversationID, pageSize, cursor)
	if err != nil {
		logger.Error("GetMessages Error: %v", err)
		return nil, err
	}

	page := &MessagePage{Messages: messages}
	if len(messages) == pageSize {
		last := messages[len(messages)-1]
		page.NextCursor = utils.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}.Encode()
	}
	return page, nil
}

// MarkAllRead marks every message addressed to the actor as read and resets
// their unread counter.
func (uc *MessageUseCase) MarkAllRead(ctx context.Context, actorID, conversationID string) (int, error) {
	if _, err := loadForParticipant(ctx, uc.conversationRepo, actorID, conversationID); err != nil {
		return 0, err
	}

	flipped, err := uc.messageRepo.MarkAllRead(ctx, conversationID, actorID)
	if err != nil {
		logger.Error("MarkAllRead Error: %v", err)
		return 0, err
	}
	return flipped, nil
}

// DeleteMessage removes a message sent by the actor. If it was the
// conversation's last message the summary falls back to the new tail, and
// if the receiver had not read it their counter goes down by one. That
// follow-up is a separate write; its failure is logged only.
func (uc *MessageUseCase) DeleteMessage(ctx context.Context, actorID, conversationID, messageID string) error {
	msg, err := uc.messageRepo.GetByID(ctx, conversationID, messageID)
	if err != nil {
		return err
	}
	if msg.SenderID != actorID {
		return errors.Forbidden("Only the sender can delete this message", nil)
	}

	if err := uc.messageRepo.Delete(ctx, conversationID, messageID); err != nil {
		logger.Error("DeleteMessage Error: %v", err)
		return err
	}

	if err := uc.reconcileAfterDelete(ctx, msg); err != nil {
		logger.Warn("DeleteMessage: summary of conversation %s not reconciled after deleting %s: %v", conversationID, messageID, err)
	}
	return nil
}

func (uc *MessageUseCase) reconcileAfterDelete(ctx context.Context, msg *entity.Message) error {
	conv, err := uc.conversationRepo.GetByID(ctx, msg.ConversationID)
	if err != nil {
		if errors.Is(err, errors.CodeNotFound) {
			return nil
		}
		return err
	}

	wasLast := msg.Matches(conv.Base().LastMessage)
	wasUnread := !conv.IsGroupChat() && msg.ReceiverID != "" && !msg.IsRead
	if !wasLast && !wasUnread {
		return nil
	}

	var latest *entity.Message
	if wasLast {
		if latest, err = uc.messageRepo.Latest(ctx, msg.ConversationID); err != nil {
			return err
		}
	}

	_, err = uc.conversationRepo.Mutate(ctx, msg.ConversationID, func(c entity.Conversation) error {
		base := c.Base()
		if wasLast && msg.Matches(base.LastMessage) {
			base.LastMessage = nil
			if latest != nil {
				base.LastMessage = latest.Summary(base.SenderName(latest.SenderID))
			}
		}
		if wasUnread {
			if n, ok := base.UnreadCount[msg.ReceiverID]; ok && n > 0 {
				base.UnreadCount[msg.ReceiverID] = n - 1
			}
		}
		return nil
	})
	return err
}

type notifiers []repository.Notifier

func (ns notifiers) NotifyNewMessage(ctx context.Context, recipientID string, conv entity.Conversation, msg *entity.Message) error {
	var firstErr error
	for _, n := range ns {
		if err := n.NotifyNewMessage(ctx, recipientID, conv, msg); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// CombineNotifiers fans a notification out to every non-nil notifier. It
// returns nil when none remain.
func CombineNotifiers(ns ...repository.Notifier) repository.Notifier {
	var out notifiers
	for _, n := range ns {
		if n != nil {
			out = append(out, n)
		}
	}
	switch len(out) {
	case 0:
		return nil
	case 1:
		return out[0]
	}
	return out
}
