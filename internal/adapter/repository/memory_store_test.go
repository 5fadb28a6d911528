package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/iterator"

	"socialdm/internal/domain/entity"
	"socialdm/pkg/errors"
	"socialdm/pkg/utils"
)

func newTestStore() *MemoryStore {
	store := NewMemoryStore()
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return fixed }
	return store
}

func direct(a, b string) *entity.DirectConversation {
	return entity.NewDirectConversation(
		entity.UserProfile{UserID: a, DisplayName: a},
		entity.UserProfile{UserID: b, DisplayName: b},
		time.Now(),
	)
}

func TestMemoryTickIsStrictlyIncreasing(t *testing.T) {
	store := newTestStore()
	first := store.tick()
	second := store.tick()
	assert.True(t, second.After(first))
}

func TestMemoryCreateIfAbsent(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryConversationRepository(newTestStore())

	stored, created, err := repo.CreateIfAbsent(ctx, direct("a", "b"))
	require.NoError(t, err)
	assert.True(t, created)

	again, created, err := repo.CreateIfAbsent(ctx, direct("b", "a"))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, stored.Base().ID, again.Base().ID)
	assert.Equal(t, stored.Base().CreatedAt, again.Base().CreatedAt)

	err = repo.Create(ctx, direct("a", "b"))
	assert.True(t, errors.Is(err, errors.CodeConflict))
}

func TestMemoryMutateRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryConversationRepository(newTestStore())
	require.NoError(t, repo.Create(ctx, direct("a", "b")))

	_, err := repo.Mutate(ctx, "a_b", func(conv entity.Conversation) error {
		conv.Base().SetArchived("a", true)
		return errors.Forbidden("nope", nil)
	})
	require.Error(t, err)

	conv, err := repo.GetByID(ctx, "a_b")
	require.NoError(t, err)
	assert.Empty(t, conv.Base().ArchivedBy)

	_, err = repo.Mutate(ctx, "missing", func(entity.Conversation) error { return nil })
	assert.True(t, errors.Is(err, errors.CodeNotFound))
}

func TestMemoryAppendUpdatesParent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	convs := NewMemoryConversationRepository(store)
	messages := NewMemoryMessageRepository(store)
	require.NoError(t, convs.Create(ctx, direct("a", "b")))

	msg := &entity.Message{ConversationID: "a_b", SenderID: "a", ReceiverID: "b", Type: entity.MessageTypeText, Text: "hi"}
	updated, err := messages.Append(ctx, msg)
	require.NoError(t, err)
	assert.True(t, updated)
	assert.NotEmpty(t, msg.ID)

	conv, err := convs.GetByID(ctx, "a_b")
	require.NoError(t, err)
	assert.Equal(t, 1, conv.Base().UnreadCount["b"])
	assert.Equal(t, 0, conv.Base().UnreadCount["a"])
	require.NotNil(t, conv.Base().LastMessage)
	assert.True(t, msg.Matches(conv.Base().LastMessage))
	assert.Equal(t, msg.CreatedAt, conv.Base().UpdatedAt)
}

func TestMemoryAppendWithoutParentIsDegraded(t *testing.T) {
	ctx := context.Background()
	messages := NewMemoryMessageRepository(newTestStore())

	msg := &entity.Message{ConversationID: "gone", SenderID: "a", Type: entity.MessageTypeText, Text: "hi"}
	updated, err := messages.Append(ctx, msg)
	require.NoError(t, err)
	assert.False(t, updated)

	stored, err := messages.GetByID(ctx, "gone", msg.ID)
	require.NoError(t, err)
	assert.Equal(t, "hi", stored.Text)
}

func TestMemoryListPagesInSendOrder(t *testing.T) {
	ctx := context.Background()
	messages := NewMemoryMessageRepository(newTestStore())

	var sent []string
	for i := 0; i < 5; i++ {
		msg := &entity.Message{ConversationID: "c", SenderID: "a", Type: entity.MessageTypeText, Text: "m"}
		_, err := messages.Append(ctx, msg)
		require.NoError(t, err)
		sent = append(sent, msg.ID)
	}

	var got []string
	var cursor *utils.Cursor
	for {
		page, err := messages.List(ctx, "c", 2, cursor)
		require.NoError(t, err)
		if len(page) == 0 {
			break
		}
		for _, m := range page {
			got = append(got, m.ID)
		}
		last := page[len(page)-1]
		cursor = &utils.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}
	assert.Equal(t, sent, got)

	latest, err := messages.Latest(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, sent[4], latest.ID)
}

func TestMemoryUpdateParticipantProfile(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryConversationRepository(newTestStore())
	require.NoError(t, repo.Create(ctx, direct("a", "b")))
	require.NoError(t, repo.Create(ctx, direct("a", "c")))
	require.NoError(t, repo.Create(ctx, direct("b", "c")))

	before, err := repo.GetByID(ctx, "a_b")
	require.NoError(t, err)

	n, err := repo.UpdateParticipantProfile(ctx, entity.UserProfile{UserID: "a", DisplayName: "Alice"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	after, err := repo.GetByID(ctx, "a_b")
	require.NoError(t, err)
	assert.Equal(t, "Alice", after.Base().ParticipantDetails["a"].DisplayName)
	assert.Equal(t, before.Base().UpdatedAt, after.Base().UpdatedAt)
}

func TestMemoryStreamRedeliversAndStops(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryConversationRepository(newTestStore())

	stream, err := repo.WatchByParticipant(ctx, "a")
	require.NoError(t, err)

	initial, err := stream.Next()
	require.NoError(t, err)
	assert.Empty(t, initial)

	require.NoError(t, repo.Create(ctx, direct("a", "b")))
	next, err := stream.Next()
	require.NoError(t, err)
	require.Len(t, next, 1)
	assert.Equal(t, "a_b", next[0].Base().ID)

	stream.Stop()
	_, err = stream.Next()
	assert.Equal(t, iterator.Done, err)
}

func TestMemoryStreamEndsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	messages := NewMemoryMessageRepository(newTestStore())

	stream, err := messages.WatchByConversation(ctx, "c")
	require.NoError(t, err)
	defer stream.Stop()

	_, err = stream.Next()
	require.NoError(t, err)

	cancel()
	_, err = stream.Next()
	assert.Equal(t, iterator.Done, err)
}
