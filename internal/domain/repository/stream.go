package repository

import "socialdm/internal/domain/entity"

// ConversationStream delivers the full current result set on every change.
// Next blocks until the next snapshot and returns iterator.Done once the
// stream is stopped or its context is cancelled.
type ConversationStream interface {
	Next() ([]entity.Conversation, error)
	Stop()
}

// MessageStream delivers a conversation's messages oldest-first, in full, on
// every change.
type MessageStream interface {
	Next() ([]*entity.Message, error)
	Stop()
}
