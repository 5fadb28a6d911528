package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"socialdm/internal/domain/entity"
	"socialdm/internal/domain/repository"
	"socialdm/internal/infrastructure/ratelimit"
	"socialdm/pkg/errors"
	"socialdm/pkg/logger"
)

type ConversationUseCase struct {
	conversationRepo repository.ConversationRepository
	messageRepo      repository.MessageRepository
	profiles         repository.ProfileProvider
	rateLimiter      *ratelimit.RateLimiter
}

func NewConversationUseCase(
	conversationRepo repository.ConversationRepository,
	messageRepo repository.MessageRepository,
	profiles repository.ProfileProvider,
	rateLimiter *ratelimit.RateLimiter,
) *ConversationUseCase {
	return &ConversationUseCase{
		conversationRepo: conversationRepo,
		messageRepo:      messageRepo,
		profiles:         profiles,
		rateLimiter:      rateLimiter,
	}
}

// GetOrCreateDirect returns the 1:1 conversation of the two users, creating
// it on first use. Calls with the users in either order resolve to the same
// document.
func (uc *ConversationUseCase) GetOrCreateDirect(ctx context.Context, userA, userB entity.UserProfile) (entity.Conversation, error) {
	if userA.UserID == "" || userB.UserID == "" {
		return nil, errors.BadRequest("Both users are required", nil)
	}
	if userA.UserID == userB.UserID {
		logger.Error("GetOrCreateDirect Error: User %s attempted to start a conversation with themselves", userA.UserID)
		return nil, errors.BadRequest("You cannot start a conversation with yourself", nil)
	}

	conv, created, err := uc.conversationRepo.CreateIfAbsent(ctx, entity.NewDirectConversation(userA, userB, time.Now()))
	if err != nil {
		logger.Error("GetOrCreateDirect Error: %v", err)
		return nil, err
	}
	if created {
		logger.Info("Created direct conversation %s", conv.Base().ID)
		// A fresh conversation starts with an empty log.
		if purged, err := uc.messageRepo.DeleteAll(ctx, conv.Base().ID); err != nil {
			logger.Warn("Failed to clear stale messages of conversation %s: %v", conv.Base().ID, err)
		} else if purged > 0 {
			logger.Warn("Cleared %d stale messages from conversation %s", purged, conv.Base().ID)
		}
	}

	return conv, nil
}

// StartDirect is GetOrCreateDirect for an authenticated caller; both display
// snapshots come from the profile store.
func (uc *ConversationUseCase) StartDirect(ctx context.Context, actorID, otherUserID string) (entity.Conversation, error) {
	actor, err := resolveProfile(ctx, uc.profiles, actorID)
	if err != nil {
		return nil, err
	}
	other, err := resolveProfile(ctx, uc.profiles, otherUserID)
	if err != nil {
		return nil, err
	}
	return uc.GetOrCreateDirect(ctx, actor, other)
}

func (uc *ConversationUseCase) CreateGroup(ctx context.Context, creatorID, groupName string, participantIDs []string) (entity.Conversation, error) {
	if uc.rateLimiter != nil {
		if allowed, wait := uc.rateLimiter.Allow(creatorID, ratelimit.ActionCreateGroup); !allowed {
			logger.Warn("CreateGroup Rate Limited: User %s must wait %v", creatorID, wait)
			return nil, errors.TooManyRequests("Rate limit exceeded. Please wait before creating another group")
		}
	}

	creator, err := resolveProfile(ctx, uc.profiles, creatorID)
	if err != nil {
		return nil, err
	}

	group, err := entity.NewGroupConversation(uuid.New().String(), creator, groupName, participantIDs, time.Now())
	if err != nil {
		return nil, err
	}

	if err := uc.conversationRepo.Create(ctx, group); err != nil {
		logger.Error("CreateGroup Error: %v", err)
		return nil, err
	}
	logger.Info("User %s created group %s with %d participants", creatorID, group.ID, len(group.Participants))

	return uc.conversationRepo.GetByID(ctx, group.ID)
}

func (uc *ConversationUseCase) Get(ctx context.Context, actorID, conversationID string) (entity.Conversation, error) {
	return loadForParticipant(ctx, uc.conversationRepo, actorID, conversationID)
}

// List returns the actor's conversations, most recently updated first.
func (uc *ConversationUseCase) List(ctx context.Context, actorID string) ([]entity.Conversation, error) {
	conversations, err := uc.conversationRepo.ListByParticipant(ctx, actorID)
	if err != nil {
		logger.Error("ListConversations Error: %v", err)
		return nil, err
	}
	if conversations == nil {
		conversations = []entity.Conversation{}
	}

	entity.SortByUpdatedAtDesc(conversations)
	return conversations, nil
}

func (uc *ConversationUseCase) Archive(ctx context.Context, actorID, conversationID string) error {
	return uc.setArchived(ctx, actorID, conversationID, true)
}

func (uc *ConversationUseCase) Unarchive(ctx context.Context, actorID, conversationID string) error {
	return uc.setArchived(ctx, actorID, conversationID, false)
}

func (uc *ConversationUseCase) setArchived(ctx context.Context, actorID, conversationID string, archived bool) error {
	if _, err := loadForParticipant(ctx, uc.conversationRepo, actorID, conversationID); err != nil {
		return err
	}
	return uc.conversationRepo.SetArchived(ctx, conversationID, actorID, archived)
}

// Delete removes the conversation document and then, best-effort, its
// message log. Any participant may delete a direct conversation; only the
// creator may delete a group.
func (uc *ConversationUseCase) Delete(ctx context.Context, actorID, conversationID string) error {
	conv, err := loadForParticipant(ctx, uc.conversationRepo, actorID, conversationID)
	if err != nil {
		return err
	}
	if group, ok := conv.(*entity.GroupConversation); ok && group.CreatedBy != actorID {
		return errors.Forbidden("Only the group creator can delete this group", nil)
	}

	if err := uc.conversationRepo.Delete(ctx, conversationID); err != nil {
		logger.Error("DeleteConversation Error: %v", err)
		return err
	}

	deleted, err := uc.messageRepo.DeleteAll(ctx, conversationID)
	if err != nil {
		logger.Error("DeleteConversation: conversation %s removed but its message log was only partly deleted (%d messages): %v", conversationID, deleted, err)
		return nil
	}
	logger.Info("User %s deleted conversation %s with %d messages", actorID, conversationID, deleted)

	return nil
}

// RefreshParticipantProfile copies a changed profile into every conversation
// the user takes part in.
func (uc *ConversationUseCase) RefreshParticipantProfile(ctx context.Context, profile entity.UserProfile) (int, error) {
	if strings.TrimSpace(profile.UserID) == "" {
		return 0, errors.BadRequest("User is required", nil)
	}

	updated, err := uc.conversationRepo.UpdateParticipantProfile(ctx, profile)
	if err != nil {
		logger.Error("RefreshParticipantProfile Error: %v", err)
		return 0, err
	}
	logger.Debug("Refreshed profile of user %s in %d conversations", profile.UserID, updated)

	return updated, nil
}

// RefreshOwnProfile re-reads the actor's profile from the identity store
// and propagates it.
func (uc *ConversationUseCase) RefreshOwnProfile(ctx context.Context, actorID string) (int, error) {
	if uc.profiles == nil {
		return 0, nil
	}
	profile, err := uc.profiles.GetProfile(ctx, actorID)
	if err != nil {
		return 0, err
	}
	profile.UserID = actorID
	return uc.RefreshParticipantProfile(ctx, *profile)
}
