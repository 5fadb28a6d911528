package handler

import "socialdm/internal/domain/entity"

func conversationView(conv entity.Conversation) *entity.ConversationDocument {
	if conv == nil {
		return nil
	}
	return conv.Document()
}

func conversationViews(conversations []entity.Conversation) []*entity.ConversationDocument {
	views := make([]*entity.ConversationDocument, 0, len(conversations))
	for _, conv := range conversations {
		views = append(views, conv.Document())
	}
	return views
}
