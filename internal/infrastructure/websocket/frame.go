package websocket

import (
	"encoding/json"
	"time"
)

// Inbound frame types.
const (
	FrameSubscribeConversations = "subscribe_conversations"
	FrameSubscribeConversation  = "subscribe_conversation"
	FrameSubscribeMessages      = "subscribe_messages"
	FrameUnsubscribe            = "unsubscribe"
	FramePing                   = "ping"
)

// Outbound frame types. Every data frame carries the full current state.
const (
	FrameConversations = "conversations"
	FrameConversation  = "conversation"
	FrameMessages      = "messages"
	FrameSubscribed    = "subscribed"
	FrameUnsubscribed  = "unsubscribed"
	FrameError         = "error"
	FramePong          = "pong"
	FrameNotification  = "notification"
)

// Request is a frame sent by the client.
type Request struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id,omitempty"`
	Topic          string `json:"topic,omitempty"`
}

// Frame is a frame sent to the client.
type Frame struct {
	Type      string          `json:"type"`
	Topic     string          `json:"topic,omitempty"`
	Data      interface{}     `json:"data,omitempty"`
	Error     *FrameErrorBody `json:"error,omitempty"`
	Timestamp string          `json:"timestamp"`
}

type FrameErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func ConversationsTopic() string                 { return "conversations" }
func ConversationTopic(id string) string         { return "conversation:" + id }
func MessagesTopic(conversationID string) string { return "messages:" + conversationID }

func NewFrame(frameType, topic string, data interface{}) Frame {
	return Frame{
		Type:      frameType,
		Topic:     topic,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

func NewErrorFrame(topic, code, message string) Frame {
	f := NewFrame(FrameError, topic, nil)
	f.Error = &FrameErrorBody{Code: code, Message: message}
	return f
}

func (f Frame) Encode() ([]byte, error) {
	return json.Marshal(f)
}
