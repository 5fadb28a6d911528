package usecase

import (
	"context"
	"time"

	"socialdm/internal/domain/entity"
	"socialdm/internal/domain/repository"
	"socialdm/pkg/errors"
	"socialdm/pkg/logger"
)

// MembershipUseCase drives the group membership state machine. Every
// transition runs inside ConversationRepository.Mutate, so a failed guard
// writes nothing.
type MembershipUseCase struct {
	conversationRepo repository.ConversationRepository
	profiles         repository.ProfileProvider
}

func NewMembershipUseCase(conversationRepo repository.ConversationRepository, profiles repository.ProfileProvider) *MembershipUseCase {
	return &MembershipUseCase{
		conversationRepo: conversationRepo,
		profiles:         profiles,
	}
}

// MembershipResult reports whether a join ended up as a pending request
// rather than a membership.
type MembershipResult struct {
	Conversation entity.Conversation
	Pending      bool
}

func (uc *MembershipUseCase) mutateGroup(ctx context.Context, op, groupID string, fn func(g *entity.GroupConversation) error) (entity.Conversation, error) {
	conv, err := uc.conversationRepo.Mutate(ctx, groupID, func(conv entity.Conversation) error {
		group, ok := conv.(*entity.GroupConversation)
		if !ok {
			return errors.InvalidState("This operation is only available for group conversations")
		}
		return fn(group)
	})
	if err != nil {
		if errors.Is(err, errors.CodeForbidden) || errors.Is(err, errors.CodeInvalidState) {
			logger.Debug("%s rejected for group %s: %v", op, groupID, err)
		} else {
			logger.Error("%s Error: %v", op, err)
		}
		return nil, err
	}
	return conv, nil
}

func (uc *MembershipUseCase) AddParticipant(ctx context.Context, actorID, groupID, targetID string) (*MembershipResult, error) {
	if targetID == "" {
		return nil, errors.BadRequest("User is required", nil)
	}
	target, err := resolveProfile(ctx, uc.profiles, targetID)
	if err != nil {
		return nil, err
	}

	var pending bool
	conv, err := uc.mutateGroup(ctx, "AddParticipant", groupID, func(g *entity.GroupConversation) error {
		var err error
		pending, err = g.AddParticipant(actorID, target, time.Now())
		return err
	})
	if err != nil {
		return nil, err
	}

	if pending {
		logger.Info("User %s requested to add %s to group %s, awaiting approval", actorID, targetID, groupID)
	}
	return &MembershipResult{Conversation: conv, Pending: pending}, nil
}

// JoinViaInvite lets the actor join through an invite link. Groups that
// require approval queue a join request instead.
func (uc *MembershipUseCase) JoinViaInvite(ctx context.Context, actorID, groupID string) (*MembershipResult, error) {
	actor, err := resolveProfile(ctx, uc.profiles, actorID)
	if err != nil {
		return nil, err
	}

	var pending bool
	conv, err := uc.mutateGroup(ctx, "JoinViaInvite", groupID, func(g *entity.GroupConversation) error {
		var err error
		pending, err = g.RequestJoin(actor, time.Now())
		return err
	})
	if err != nil {
		return nil, err
	}
	return &MembershipResult{Conversation: conv, Pending: pending}, nil
}

func (uc *MembershipUseCase) ApproveJoinRequest(ctx context.Context, actorID, groupID, userID string) (entity.Conversation, error) {
	return uc.mutateGroup(ctx, "ApproveJoinRequest", groupID, func(g *entity.GroupConversation) error {
		return g.ApproveJoinRequest(actorID, userID, time.Now())
	})
}

func (uc *MembershipUseCase) RejectJoinRequest(ctx context.Context, actorID, groupID, userID string) (entity.Conversation, error) {
	return uc.mutateGroup(ctx, "RejectJoinRequest", groupID, func(g *entity.GroupConversation) error {
		return g.RejectJoinRequest(actorID, userID)
	})
}

func (uc *MembershipUseCase) RemoveParticipant(ctx context.Context, actorID, groupID, userID string) (entity.Conversation, error) {
	return uc.mutateGroup(ctx, "RemoveParticipant", groupID, func(g *entity.GroupConversation) error {
		return g.RemoveParticipant(actorID, userID)
	})
}

func (uc *MembershipUseCase) LeaveGroup(ctx context.Context, actorID, groupID string) error {
	_, err := uc.mutateGroup(ctx, "LeaveGroup", groupID, func(g *entity.GroupConversation) error {
		return g.Leave(actorID)
	})
	return err
}

func (uc *MembershipUseCase) MakeAdmin(ctx context.Context, actorID, groupID, userID string) (entity.Conversation, error) {
	return uc.mutateGroup(ctx, "MakeAdmin", groupID, func(g *entity.GroupConversation) error {
		return g.MakeAdmin(actorID, userID)
	})
}

func (uc *MembershipUseCase) RemoveAdmin(ctx context.Context, actorID, groupID, userID string) (entity.Conversation, error) {
	return uc.mutateGroup(ctx, "RemoveAdmin", groupID, func(g *entity.GroupConversation) error {
		return g.RemoveAdmin(actorID, userID)
	})
}

func (uc *MembershipUseCase) SetRequireApproval(ctx context.Context, actorID, groupID string, value bool) (entity.Conversation, error) {
	return uc.mutateGroup(ctx, "SetRequireApproval", groupID, func(g *entity.GroupConversation) error {
		return g.SetRequireApproval(actorID, value)
	})
}

func (uc *MembershipUseCase) UpdateGroupDetails(ctx context.Context, actorID, groupID string, name, photo *string) (entity.Conversation, error) {
	if name == nil && photo == nil {
		return nil, errors.BadRequest("Nothing to update", nil)
	}
	return uc.mutateGroup(ctx, "UpdateGroupDetails", groupID, func(g *entity.GroupConversation) error {
		return g.UpdateDetails(actorID, name, photo)
	})
}
