package handler

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"

	gorillaws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"socialdm/internal/adapter/api/middleware"
	"socialdm/internal/domain/entity"
	ws "socialdm/internal/infrastructure/websocket"
	"socialdm/internal/usecase"
	"socialdm/pkg/errors"
	"socialdm/pkg/logger"
)

// WebSocketHandler turns subscribe frames into listeners whose updates are
// pushed back over the connection.
type WebSocketHandler struct {
	wsManager           *ws.Manager
	subscriptionUseCase *usecase.SubscriptionUseCase
	upgrader            gorillaws.Upgrader
}

func NewWebSocketHandler(wsManager *ws.Manager, subscriptionUseCase *usecase.SubscriptionUseCase, allowedOrigins []string) *WebSocketHandler {
	return &WebSocketHandler{
		wsManager:           wsManager,
		subscriptionUseCase: subscriptionUseCase,
		upgrader: gorillaws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

// originChecker allows every origin when none are configured.
func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		if len(allowed) == 0 {
			return true
		}
		origin := r.Header.Get("Origin")
		for _, o := range allowed {
			if o == origin {
				return true
			}
		}
		return false
	}
}

func (h *WebSocketHandler) HandleWebSocket(c echo.Context) error {
	userID := middleware.UserID(c)
	if userID == "" {
		return errors.Unauthorized("Authentication required", nil)
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Warn("WebSocket upgrade failed for %s: %v", userID, err)
		return nil
	}

	client := ws.NewClient(userID, conn)
	if !h.wsManager.Add(client) {
		logger.Warn("WebSocket manager stopped, closing connection for %s", userID)
		conn.Close()
		return nil
	}

	go client.WritePump()
	go client.ReadPump(h.wsManager, h.HandleFrame)

	return nil
}

// HandleFrame dispatches one inbound frame.
func (h *WebSocketHandler) HandleFrame(client *ws.Client, raw []byte) {
	var req ws.Request
	if err := json.Unmarshal(raw, &req); err != nil {
		client.Enqueue(ws.NewErrorFrame("", errors.CodeBadRequest, "Malformed frame"))
		return
	}

	switch req.Type {
	case ws.FramePing:
		client.Enqueue(ws.NewFrame(ws.FramePong, "", nil))

	case ws.FrameSubscribeConversations:
		h.subscribeConversations(client)

	case ws.FrameSubscribeConversation:
		if req.ConversationID == "" {
			client.Enqueue(ws.NewErrorFrame("", errors.CodeBadRequest, "conversation_id is required"))
			return
		}
		h.subscribeConversation(client, req.ConversationID)

	case ws.FrameSubscribeMessages:
		if req.ConversationID == "" {
			client.Enqueue(ws.NewErrorFrame("", errors.CodeBadRequest, "conversation_id is required"))
			return
		}
		h.subscribeMessages(client, req.ConversationID)

	case ws.FrameUnsubscribe:
		if client.Unsubscribe(req.Topic) {
			client.Enqueue(ws.NewFrame(ws.FrameUnsubscribed, req.Topic, nil))
		} else {
			client.Enqueue(ws.NewErrorFrame(req.Topic, errors.CodeNotFound, "Not subscribed to this topic"))
		}

	default:
		client.Enqueue(ws.NewErrorFrame("", errors.CodeBadRequest, "Unknown frame type "+req.Type))
	}
}

func (h *WebSocketHandler) subscribeConversations(client *ws.Client) {
	topic := ws.ConversationsTopic()
	sub, err := h.subscriptionUseCase.SubscribeToConversationList(context.Background(), client.UserID,
		func(conversations []entity.Conversation) {
			client.Enqueue(ws.NewFrame(ws.FrameConversations, topic, conversationViews(conversations)))
		},
		func(err error) {
			client.Enqueue(errorFrame(topic, err))
		},
	)
	h.attach(client, topic, sub, err)
}

func (h *WebSocketHandler) subscribeConversation(client *ws.Client, conversationID string) {
	topic := ws.ConversationTopic(conversationID)
	sub, err := h.subscriptionUseCase.SubscribeToConversation(context.Background(), client.UserID, conversationID,
		func(conv entity.Conversation) {
			client.Enqueue(ws.NewFrame(ws.FrameConversation, topic, conversationView(conv)))
		},
		func(err error) {
			client.Enqueue(errorFrame(topic, err))
		},
	)
	h.attach(client, topic, sub, err)
}

func (h *WebSocketHandler) subscribeMessages(client *ws.Client, conversationID string) {
	topic := ws.MessagesTopic(conversationID)
	sub, err := h.subscriptionUseCase.SubscribeToMessages(context.Background(), client.UserID, conversationID,
		func(messages []*entity.Message) {
			client.Enqueue(ws.NewFrame(ws.FrameMessages, topic, messages))
		},
		func(err error) {
			client.Enqueue(errorFrame(topic, err))
		},
	)
	h.attach(client, topic, sub, err)
}

func (h *WebSocketHandler) attach(client *ws.Client, topic string, sub *usecase.Subscription, err error) {
	if err != nil {
		client.Enqueue(errorFrame(topic, err))
		return
	}

	client.Subscribe(topic, sub)
	client.Enqueue(ws.NewFrame(ws.FrameSubscribed, topic, nil))

	go func() {
		<-sub.Done()
		client.Forget(topic, sub)
	}()
}

func errorFrame(topic string, err error) ws.Frame {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return ws.NewErrorFrame(topic, appErr.Code, appErr.Message)
	}
	logger.Error("Subscription %s failed: %v", topic, err)
	return ws.NewErrorFrame(topic, errors.CodeInternal, "An unexpected error occurred")
}
