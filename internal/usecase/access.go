package usecase

import (
	"context"

	"socialdm/internal/domain/entity"
	"socialdm/internal/domain/repository"
	"socialdm/pkg/errors"
	"socialdm/pkg/logger"
)

// loadForParticipant fetches a conversation and checks that actorID takes
// part in it.
func loadForParticipant(ctx context.Context, repo repository.ConversationRepository, actorID, conversationID string) (entity.Conversation, error) {
	conv, err := repo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.Base().HasParticipant(actorID) {
		return nil, errors.Forbidden("You are not a participant of this conversation", nil)
	}
	return conv, nil
}

// resolveProfile returns the user's display snapshot, or a placeholder
// carrying only the id when the identity store has nothing for them.
func resolveProfile(ctx context.Context, profiles repository.ProfileProvider, userID string) (entity.UserProfile, error) {
	placeholder := entity.UserProfile{UserID: userID}
	if profiles == nil {
		return placeholder, nil
	}

	profile, err := profiles.GetProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, errors.CodeNotFound) {
			logger.Debug("No profile for user %s, using placeholder details", userID)
			return placeholder, nil
		}
		return entity.UserProfile{}, err
	}
	profile.UserID = userID
	return *profile, nil
}
