package usecase

import (
	"context"
	"sync"

	"google.golang.org/api/iterator"

	"socialdm/internal/domain/entity"
	"socialdm/internal/domain/repository"
	"socialdm/pkg/errors"
	"socialdm/pkg/logger"
)

// Subscription is a running listener. Callbacks run on the listener's own
// goroutine and must not block. After an error is delivered the
// subscription ends.
type Subscription struct {
	cancel context.CancelFunc
	stop   func()
	once   sync.Once
	done   chan struct{}
}

// Unsubscribe stops the listener. It returns immediately; a callback that is
// already running may still complete.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.cancel()
		s.stop()
	})
}

// Done is closed once the listener goroutine has exited.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

type SubscriptionUseCase struct {
	conversationRepo repository.ConversationRepository
	messageRepo      repository.MessageRepository
}

func NewSubscriptionUseCase(conversationRepo repository.ConversationRepository, messageRepo repository.MessageRepository) *SubscriptionUseCase {
	return &SubscriptionUseCase{
		conversationRepo: conversationRepo,
		messageRepo:      messageRepo,
	}
}

// run pumps next into deliver until the stream ends. deliver returns an
// error to end the subscription with it. cancel must cancel ctx.
func run[T any](ctx context.Context, cancel context.CancelFunc, stop func(), next func() (T, error), deliver func(T) error, onError func(error)) *Subscription {
	sub := &Subscription{cancel: cancel, stop: stop, done: make(chan struct{})}

	go func() {
		defer close(sub.done)
		defer sub.Unsubscribe()

		for {
			value, err := next()
			if err == iterator.Done || ctx.Err() != nil {
				return
			}
			if err == nil {
				err = deliver(value)
			}
			if err != nil {
				logger.Warn("Subscription ended: %v", err)
				if onError != nil {
					onError(err)
				}
				return
			}
		}
	}()

	return sub
}

// SubscribeToConversationList pushes the user's full conversation list,
// newest first, on every change.
func (uc *SubscriptionUseCase) SubscribeToConversationList(ctx context.Context, userID string, onUpdate func([]entity.Conversation), onError func(error)) (*Subscription, error) {
	ctx, cancel := context.WithCancel(ctx)
	stream, err := uc.conversationRepo.WatchByParticipant(ctx, userID)
	if err != nil {
		cancel()
		return nil, err
	}

	return run(ctx, cancel, stream.Stop, stream.Next, func(conversations []entity.Conversation) error {
		entity.SortByUpdatedAtDesc(conversations)
		onUpdate(conversations)
		return nil
	}, onError), nil
}

// SubscribeToConversation pushes one conversation on every change. It ends
// with an error when the conversation is deleted or the actor is no longer
// a participant.
func (uc *SubscriptionUseCase) SubscribeToConversation(ctx context.Context, actorID, conversationID string, onUpdate func(entity.Conversation), onError func(error)) (*Subscription, error) {
	if _, err := loadForParticipant(ctx, uc.conversationRepo, actorID, conversationID); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	stream, err := uc.conversationRepo.WatchByID(ctx, conversationID)
	if err != nil {
		cancel()
		return nil, err
	}

	return run(ctx, cancel, stream.Stop, stream.Next, func(conversations []entity.Conversation) error {
		if len(conversations) == 0 {
			return errors.NotFound("Conversation", nil)
		}
		conv := conversations[0]
		if !conv.Base().HasParticipant(actorID) {
			return errors.Forbidden("You are no longer a participant of this conversation", nil)
		}
		onUpdate(conv)
		return nil
	}, onError), nil
}

// SubscribeToMessages pushes the full ordered message log on every change;
// receivers diff by message id. Membership is checked again before every
// delivery, so a removed member gets Forbidden instead of the next log.
func (uc *SubscriptionUseCase) SubscribeToMessages(ctx context.Context, actorID, conversationID string, onUpdate func([]*entity.Message), onError func(error)) (*Subscription, error) {
	if _, err := loadForParticipant(ctx, uc.conversationRepo, actorID, conversationID); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	stream, err := uc.messageRepo.WatchByConversation(ctx, conversationID)
	if err != nil {
		cancel()
		return nil, err
	}

	return run(ctx, cancel, stream.Stop, stream.Next, func(messages []*entity.Message) error {
		if _, err := loadForParticipant(ctx, uc.conversationRepo, actorID, conversationID); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, errors.CodeForbidden) {
				return errors.Forbidden("You are no longer a participant of this conversation", nil)
			}
			return err
		}
		onUpdate(messages)
		return nil
	}, onError), nil
}
