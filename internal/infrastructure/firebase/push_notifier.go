package firebase

import (
	"context"
	"fmt"
	"unicode/utf8"

	"firebase.google.com/go/v4/messaging"

	"socialdm/internal/domain/entity"
)

const previewLength = 100

// PushNotifier sends new-message notifications over FCM. Each user's
// devices subscribe to the topic user_<uid>.
type PushNotifier struct {
	client *messaging.Client
}

func NewPushNotifier(client *messaging.Client) *PushNotifier {
	return &PushNotifier{client: client}
}

func UserTopic(userID string) string {
	return "user_" + userID
}

func (n *PushNotifier) NotifyNewMessage(ctx context.Context, recipientID string, conv entity.Conversation, msg *entity.Message) error {
	_, err := n.client.Send(ctx, buildMessage(recipientID, conv, msg))
	if err != nil {
		return fmt.Errorf("sending push to %s: %w", recipientID, err)
	}
	return nil
}

func buildMessage(recipientID string, conv entity.Conversation, msg *entity.Message) *messaging.Message {
	base := conv.Base()
	title := base.SenderName(msg.SenderID)
	if group, ok := conv.(*entity.GroupConversation); ok {
		title = fmt.Sprintf("%s @ %s", title, group.GroupName)
	}

	body := msg.Summary("").Text
	if utf8.RuneCountInString(body) > previewLength {
		body = string([]rune(body)[:previewLength]) + "…"
	}

	return &messaging.Message{
		Topic: UserTopic(recipientID),
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: map[string]string{
			"type":            "new_message",
			"conversation_id": conv.Base().ID,
			"message_id":      msg.ID,
			"sender_id":       msg.SenderID,
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				Tag: conv.Base().ID,
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{ThreadID: conv.Base().ID},
			},
		},
	}
}
