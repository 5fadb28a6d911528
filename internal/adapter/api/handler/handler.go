package handler

import (
	ws "socialdm/internal/infrastructure/websocket"
	"socialdm/internal/usecase"
)

var (
	conversationHandler *ConversationHandler
	messageHandler      *MessageHandler
	groupHandler        *GroupHandler
	webSocketHandler    *WebSocketHandler
	healthHandler       *HealthHandler
)

type Dependencies struct {
	ConversationUseCase *usecase.ConversationUseCase
	MessageUseCase      *usecase.MessageUseCase
	MembershipUseCase   *usecase.MembershipUseCase
	SubscriptionUseCase *usecase.SubscriptionUseCase
	MediaUseCase        *usecase.MediaUseCase
	WSManager           *ws.Manager
	AllowedOrigins      []string
	Environment         string
}

func Setup(deps Dependencies) {
	conversationHandler = NewConversationHandler(deps.ConversationUseCase)
	messageHandler = NewMessageHandler(deps.MessageUseCase, deps.MediaUseCase)
	groupHandler = NewGroupHandler(deps.MembershipUseCase)
	webSocketHandler = NewWebSocketHandler(deps.WSManager, deps.SubscriptionUseCase, deps.AllowedOrigins)
	healthHandler = NewHealthHandler(deps.WSManager, deps.Environment)
}

func GetConversationHandler() *ConversationHandler {
	return conversationHandler
}

func GetMessageHandler() *MessageHandler {
	return messageHandler
}

func GetGroupHandler() *GroupHandler {
	return groupHandler
}

func GetWebSocketHandler() *WebSocketHandler {
	return webSocketHandler
}

func GetHealthHandler() *HealthHandler {
	return healthHandler
}
