package websocket

import (
	"context"

	"socialdm/internal/domain/entity"
)

const previewLength = 100

// Notice is the payload of a notification frame.
type Notice struct {
	ConversationID string             `json:"conversation_id"`
	MessageID      string             `json:"message_id"`
	SenderID       string             `json:"sender_id"`
	SenderName     string             `json:"sender_name"`
	GroupName      string             `json:"group_name,omitempty"`
	Type           entity.MessageType `json:"type"`
	Preview        string             `json:"preview"`
}

// Notifier sends new-message notices to every open connection of the
// recipient, whatever they are subscribed to.
type Notifier struct {
	manager *Manager
}

func NewNotifier(manager *Manager) *Notifier {
	return &Notifier{manager: manager}
}

func (n *Notifier) NotifyNewMessage(ctx context.Context, recipientID string, conv entity.Conversation, msg *entity.Message) error {
	n.manager.SendToUser(recipientID, NewFrame(FrameNotification, "", newNotice(conv, msg)))
	return nil
}

func newNotice(conv entity.Conversation, msg *entity.Message) Notice {
	summary := msg.Summary(conv.Base().SenderName(msg.SenderID))
	notice := Notice{
		ConversationID: msg.ConversationID,
		MessageID:      msg.ID,
		SenderID:       msg.SenderID,
		SenderName:     summary.SenderName,
		Type:           msg.Type,
		Preview:        summary.Text,
	}
	if group, ok := conv.(*entity.GroupConversation); ok {
		notice.GroupName = group.GroupName
	}
	if runes := []rune(notice.Preview); len(runes) > previewLength {
		notice.Preview = string(runes[:previewLength]) + "..."
	}
	return notice
}
