package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	memrepo "socialdm/internal/adapter/repository"
	"socialdm/internal/domain/entity"
	"socialdm/internal/domain/repository"
	"socialdm/internal/infrastructure/ratelimit"
)

type notification struct {
	recipient      string
	conversationID string
	messageID      string
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []notification
}

func (n *recordingNotifier) NotifyNewMessage(ctx context.Context, recipientID string, conv entity.Conversation, msg *entity.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, notification{recipient: recipientID, conversationID: conv.Base().ID, messageID: msg.ID})
	return nil
}

func (n *recordingNotifier) recipients() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	ids := make([]string, 0, len(n.calls))
	for _, c := range n.calls {
		ids = append(ids, c.recipient)
	}
	return ids
}

type fixture struct {
	ctx           context.Context
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
	profiles      *memrepo.MemoryProfileRepository
	notifier      *recordingNotifier

	conversationUC *ConversationUseCase
	messageUC      *MessageUseCase
	membershipUC   *MembershipUseCase
	subscriptionUC *SubscriptionUseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithLimiter(t, nil)
}

func newFixtureWithLimiter(t *testing.T, rl *ratelimit.RateLimiter) *fixture {
	t.Helper()

	store := memrepo.NewMemoryStore()
	f := &fixture{
		ctx:           context.Background(),
		conversations: memrepo.NewMemoryConversationRepository(store),
		messages:      memrepo.NewMemoryMessageRepository(store),
		profiles:      memrepo.NewMemoryProfileRepository(store),
		notifier:      &recordingNotifier{},
	}
	for _, id := range []string{"alice", "bob", "carol", "dave", "erin", "frank"} {
		f.profiles.PutProfile(entity.UserProfile{UserID: id, DisplayName: displayName(id), Username: id})
	}

	f.conversationUC = NewConversationUseCase(f.conversations, f.messages, f.profiles, rl)
	f.messageUC = NewMessageUseCase(f.conversations, f.messages, f.notifier, rl)
	f.membershipUC = NewMembershipUseCase(f.conversations, f.profiles)
	f.subscriptionUC = NewSubscriptionUseCase(f.conversations, f.messages)
	return f
}

func displayName(id string) string {
	return "User " + id
}

func (f *fixture) direct(t *testing.T, a, b string) entity.Conversation {
	t.Helper()
	conv, err := f.conversationUC.StartDirect(f.ctx, a, b)
	require.NoError(t, err)
	return conv
}

func (f *fixture) group(t *testing.T, creator string, members ...string) *entity.GroupConversation {
	t.Helper()
	conv, err := f.conversationUC.CreateGroup(f.ctx, creator, "Weekend plans", members)
	require.NoError(t, err)
	return conv.(*entity.GroupConversation)
}

func (f *fixture) send(t *testing.T, conversationID, sender, text string) *entity.Message {
	t.Helper()
	msg, err := f.messageUC.Send(f.ctx, SendMessageInput{ConversationID: conversationID, SenderID: sender, Text: text})
	require.NoError(t, err)
	return msg
}

func (f *fixture) reload(t *testing.T, id string) entity.Conversation {
	t.Helper()
	conv, err := f.conversations.GetByID(f.ctx, id)
	require.NoError(t, err)
	return conv
}

func (f *fixture) reloadGroup(t *testing.T, id string) *entity.GroupConversation {
	t.Helper()
	return f.reload(t, id).(*entity.GroupConversation)
}

const waitFor = 2 * time.Second
const tick = 10 * time.Millisecond
