package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func profile(id string) UserProfile {
	return UserProfile{UserID: id, DisplayName: "User " + id, Username: id}
}

func TestDirectConversationIDIsOrderIndependent(t *testing.T) {
	assert.Equal(t, DirectConversationID("alice", "bob"), DirectConversationID("bob", "alice"))
	assert.Equal(t, "alice_bob", DirectConversationID("bob", "alice"))
}

func TestNewDirectConversation(t *testing.T) {
	conv := NewDirectConversation(profile("b"), profile("a"), t0)

	assert.Equal(t, "a_b", conv.ID)
	assert.False(t, conv.IsGroupChat())
	assert.Nil(t, conv.LastMessage)
	assert.Equal(t, map[string]int{"a": 0, "b": 0}, conv.UnreadCount)
	assert.Equal(t, "a", conv.OtherParticipant("b"))
	require.NoError(t, conv.CheckInvariants())
}

func TestSetArchivedIsPerUser(t *testing.T) {
	conv := NewDirectConversation(profile("a"), profile("b"), t0)

	conv.SetArchived("a", true)
	conv.SetArchived("a", true)
	assert.Equal(t, []string{"a"}, conv.ArchivedBy)
	assert.False(t, conv.IsArchivedBy("b"))

	conv.SetArchived("a", false)
	assert.Empty(t, conv.ArchivedBy)
}

func TestUnreadRecipients(t *testing.T) {
	direct := NewDirectConversation(profile("a"), profile("b"), t0)
	assert.Equal(t, []string{"b"}, UnreadRecipients(direct, &Message{SenderID: "a", ReceiverID: "b"}))
	assert.Empty(t, UnreadRecipients(direct, &Message{SenderID: "a", ReceiverID: "stranger"}))

	group, err := NewGroupConversation("g1", profile("c"), "Team", []string{"d", "e"}, t0)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"d", "e"}, UnreadRecipients(group, &Message{SenderID: "c"}))
}

func TestSortByUpdatedAtDesc(t *testing.T) {
	older := NewDirectConversation(profile("a"), profile("b"), t0)
	newer := NewDirectConversation(profile("a"), profile("c"), t0.Add(time.Minute))
	newest := NewDirectConversation(profile("a"), profile("d"), t0.Add(time.Hour))

	list := []Conversation{older, newest, newer}
	SortByUpdatedAtDesc(list)

	assert.Equal(t, []string{newest.ID, newer.ID, older.ID}, []string{list[0].Base().ID, list[1].Base().ID, list[2].Base().ID})
}

func TestDocumentKeepsVariant(t *testing.T) {
	group, err := NewGroupConversation("g1", profile("c"), "Team", []string{"d"}, t0)
	require.NoError(t, err)
	group.RequireApproval = true

	decoded := FromDocument(group.Document())
	g, ok := decoded.(*GroupConversation)
	require.True(t, ok)
	assert.Equal(t, "Team", g.GroupName)
	assert.True(t, g.RequireApproval)
	assert.Equal(t, []string{"c"}, g.Admins)

	direct := FromDocument(NewDirectConversation(profile("a"), profile("b"), t0).Document())
	_, ok = direct.(*DirectConversation)
	assert.True(t, ok)
}

func TestCloneDoesNotShareState(t *testing.T) {
	conv := NewDirectConversation(profile("a"), profile("b"), t0)
	copied := Clone(conv).(*DirectConversation)

	copied.UnreadCount["a"] = 7
	copied.Participants[0] = "zzz"

	assert.Equal(t, 0, conv.UnreadCount["a"])
	assert.Equal(t, "a", conv.Participants[0])
}

func TestUpdateProfileKeepsRole(t *testing.T) {
	group, err := NewGroupConversation("g1", profile("c"), "Team", []string{"d"}, t0)
	require.NoError(t, err)

	assert.True(t, group.UpdateProfile(UserProfile{UserID: "c", DisplayName: "Carol"}))
	assert.False(t, group.UpdateProfile(UserProfile{UserID: "x", DisplayName: "X"}))

	details := group.ParticipantDetails["c"]
	assert.Equal(t, "Carol", details.DisplayName)
	assert.True(t, details.IsAdmin)
	assert.Equal(t, "Carol", group.SenderName("c"))
	assert.Equal(t, "d", group.SenderName("d"))
}
